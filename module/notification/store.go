package notification

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"PSocial/module/notification/model"
)

type Store interface {
	Insert(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]*model.Notification, error)
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(model.NotificationTableName)}
}

func (s *MongoStore) Insert(ctx context.Context, n *model.Notification) error {
	if _, err := s.coll.InsertOne(ctx, n); err != nil {
		return errors.Wrap(err, "insert notification")
	}
	return nil
}

func (s *MongoStore) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find notifications")
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []*model.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode notifications")
	}
	return out, nil
}

type MemoryStore struct {
	mu     sync.RWMutex
	byUser map[string][]*model.Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUser: make(map[string][]*model.Notification)}
}

func (s *MemoryStore) Insert(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[n.UserID] = append(s.byUser[n.UserID], n)
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string, limit int64) ([]*model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns := s.byUser[userID]
	if limit <= 0 {
		limit = 50
	}
	out := make([]*model.Notification, 0, len(ns))
	for i := len(ns) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, ns[i])
	}
	return out, nil
}

var (
	_ Store = (*MongoStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
