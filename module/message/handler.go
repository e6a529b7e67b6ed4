package message

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"PSocial/logger"
	"PSocial/module/message/model"
	"PSocial/service/realtime"
)

// Handler is the reference consumer of the real-time bridge: persist
// first, push after. The bridge comes in via the constructor, so "no
// real-time layer" is just realtime.NoopBridge, never a nil check.
type Handler struct {
	store Store
	rt    realtime.Bridge
}

func NewHandler(store Store, rt realtime.Bridge) *Handler {
	return &Handler{store: store, rt: rt}
}

type sendMessageReq struct {
	SenderID    string `json:"senderId" binding:"required"`
	Message     string `json:"message" binding:"required"`
	MessageType string `json:"messageType"`
}

// Send POST /api/conversations/:conversationId/messages
// 先写库；推送失败只影响在线体验，不影响写入结果。
func (h *Handler) Send(c *gin.Context) {
	convID := c.Param("conversationId")
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MessageType == "" {
		req.MessageType = "text"
	}

	msg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: convID,
		SenderID:       req.SenderID,
		Content:        req.Message,
		MessageType:    req.MessageType,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.store.Insert(c.Request.Context(), msg); err != nil {
		logger.Errorf("[message] insert conv=%s: %v", convID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save message"})
		return
	}

	// fire-and-forget push to everyone currently in the conversation
	h.rt.PushMessageToConversation(convID, realtime.MessagePayload{
		SenderID:    msg.SenderID,
		Message:     msg.Content,
		MessageType: msg.MessageType,
		Timestamp:   msg.CreatedAt,
	})

	c.JSON(http.StatusCreated, msg)
}

// List GET /api/conversations/:conversationId/messages
func (h *Handler) List(c *gin.Context) {
	convID := c.Param("conversationId")
	msgs, err := h.store.ListByConversation(c.Request.Context(), convID, 50)
	if err != nil {
		logger.Errorf("[message] list conv=%s: %v", convID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
