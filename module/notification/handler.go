package notification

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"PSocial/logger"
	"PSocial/module/notification/model"
	"PSocial/service/realtime"
)

type Handler struct {
	store Store
	rt    realtime.Bridge
}

func NewHandler(store Store, rt realtime.Bridge) *Handler {
	return &Handler{store: store, rt: rt}
}

type createNotificationReq struct {
	Kind    string         `json:"kind" binding:"required"`
	ActorID string         `json:"actorId"`
	Payload map[string]any `json:"payload"`
}

// Create POST /api/users/:userId/notifications
// 落库后把存储记录原样推给该用户的全部在线设备。
func (h *Handler) Create(c *gin.Context) {
	userID := c.Param("userId")
	var req createNotificationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n := &model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      req.Kind,
		ActorID:   req.ActorID,
		Payload:   req.Payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.Insert(c.Request.Context(), n); err != nil {
		logger.Errorf("[notification] insert user=%s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save notification"})
		return
	}

	h.rt.PushNotificationToUser(userID, n)

	c.JSON(http.StatusCreated, n)
}

// List GET /api/users/:userId/notifications
func (h *Handler) List(c *gin.Context) {
	userID := c.Param("userId")
	ns, err := h.store.ListByUser(c.Request.Context(), userID, 50)
	if err != nil {
		logger.Errorf("[notification] list user=%s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": ns})
}
