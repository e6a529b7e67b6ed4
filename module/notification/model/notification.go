package model

import "time"

const NotificationTableName = "notifications"

// Notification 一条已落库的站内通知，推送时原样下发。
type Notification struct {
	ID        string         `bson:"_id" json:"id"`
	UserID    string         `bson:"user_id" json:"userId"`
	Kind      string         `bson:"kind" json:"kind"` // like/comment/follow/mention...
	ActorID   string         `bson:"actor_id" json:"actorId"`
	Payload   map[string]any `bson:"payload,omitempty" json:"payload,omitempty"`
	Read      bool           `bson:"read" json:"read"`
	CreatedAt time.Time      `bson:"created_at" json:"createdAt"`
}
