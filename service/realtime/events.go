package realtime

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// 线上协议：JSON 信封 {"event": <name>, "data": <payload>}。
// 事件名与 payload 字段为对外契约，不得改动。

// inbound
const (
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"
	EventSendMessage       = "send_message" // deprecated: REST is the only origin of new_message
)

// outbound
const (
	EventNewMessage       = "new_message"
	EventUserTyping       = "user_typing"
	EventStoppedTyping    = "user_stopped_typing"
	EventNotification     = "notification"
	EventUserStatusChange = "user_status_change"
)

type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(err, "parse frame")
	}
	if f.Event == "" {
		return nil, errors.New("frame missing event")
	}
	return &f, nil
}

// ConversationRef is the payload of every room-scoped inbound event.
type ConversationRef struct {
	ConversationID string `json:"conversationId"`
}

// room naming: user:<id> 个人通知房间, conversation:<id> 会话房间
func UserRoom(userID string) string { return "user:" + userID }

func ConversationRoom(conversationID string) string { return "conversation:" + conversationID }

// MessagePayload is what REST write-handlers hand to the bridge after commit.
type MessagePayload struct {
	SenderID    string    `json:"senderId"`
	Message     string    `json:"message"`
	MessageType string    `json:"messageType"`
	Timestamp   time.Time `json:"timestamp"`
}

type newMessageBody struct {
	SenderID       string    `json:"senderId"`
	ConversationID string    `json:"conversationId"`
	Message        string    `json:"message"`
	MessageType    string    `json:"messageType"`
	Timestamp      time.Time `json:"timestamp"`
}

type typingBody struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
}

type statusChangeBody struct {
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

func encodeFrame(event string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s body", event)
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

func NewMessageFrame(conversationID string, p MessagePayload) ([]byte, error) {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	if p.MessageType == "" {
		p.MessageType = "text"
	}
	return encodeFrame(EventNewMessage, newMessageBody{
		SenderID:       p.SenderID,
		ConversationID: conversationID,
		Message:        p.Message,
		MessageType:    p.MessageType,
		Timestamp:      p.Timestamp,
	})
}

func TypingFrame(userID, conversationID string, typing bool) ([]byte, error) {
	event := EventUserTyping
	if !typing {
		event = EventStoppedTyping
	}
	return encodeFrame(event, typingBody{UserID: userID, ConversationID: conversationID})
}

// NotificationFrame carries the stored notification record as-is.
func NotificationFrame(record any) ([]byte, error) {
	return encodeFrame(EventNotification, record)
}

func StatusChangeFrame(userID, status string) ([]byte, error) {
	return encodeFrame(EventUserStatusChange, statusChangeBody{
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now().UTC(),
	})
}
