package model

import "time"

const MessageTableName = "messages" // 集合名

// Message 一条已落库的会话消息。
type Message struct {
	ID             string    `bson:"_id" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversationId"`
	SenderID       string    `bson:"sender_id" json:"senderId"`
	Content        string    `bson:"content" json:"message"`
	MessageType    string    `bson:"message_type" json:"messageType"` // text/image/voice...
	CreatedAt      time.Time `bson:"created_at" json:"timestamp"`
}
