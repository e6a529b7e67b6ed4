package message

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"PSocial/module/message/model"
)

// Store 消息写库接口；REST 写路径先落库，再调实时层推送。
type Store interface {
	Insert(ctx context.Context, msg *model.Message) error
	ListByConversation(ctx context.Context, conversationID string, limit int64) ([]*model.Message, error)
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(model.MessageTableName)}
}

func (s *MongoStore) Insert(ctx context.Context, msg *model.Message) error {
	if _, err := s.coll.InsertOne(ctx, msg); err != nil {
		return errors.Wrap(err, "insert message")
	}
	return nil
}

func (s *MongoStore) ListByConversation(ctx context.Context, conversationID string, limit int64) ([]*model.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.coll.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find messages")
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []*model.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode messages")
	}
	return out, nil
}

// MemoryStore mongo 未配置时的进程内兜底，开发与测试用。
type MemoryStore struct {
	mu     sync.RWMutex
	byConv map[string][]*model.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byConv: make(map[string][]*model.Message)}
}

func (s *MemoryStore) Insert(_ context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byConv[msg.ConversationID] = append(s.byConv[msg.ConversationID], msg)
	return nil
}

func (s *MemoryStore) ListByConversation(_ context.Context, conversationID string, limit int64) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.byConv[conversationID]
	if limit <= 0 {
		limit = 50
	}
	// 新的在前
	out := make([]*model.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

var (
	_ Store = (*MongoStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
