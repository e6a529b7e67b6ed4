package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"PSocial/logger"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // 在线集合的有效期，由活跃连接续期
}

// Mirror keeps a best-effort copy of presence in redis so REST read
// paths on other processes can answer "is this user online" without
// reaching the gateway. One set per user holding the live conn IDs;
// the in-process registry stays the source of truth.
//
// All methods swallow redis errors after logging them: presence
// mirroring must never leak failures into connection handling.
type Mirror struct {
	rdb *redis.Client
	ttl time.Duration
}

// presence key: sn:presence:<user>
func presenceKey(user string) string { return "sn:presence:" + user }

func NewMirror(c Config) (*Mirror, error) {
	rdb := redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping")
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Mirror{rdb: rdb, ttl: ttl}, nil
}

// Online records a live connection for the user and renews the TTL.
func (m *Mirror) Online(ctx context.Context, userID, connID string) {
	if m == nil {
		return
	}
	key := presenceKey(userID)
	pipe := m.rdb.Pipeline()
	pipe.SAdd(ctx, key, connID)
	pipe.Expire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warnf("[presence] mirror online user=%s: %v", userID, err)
	}
}

// Offline drops the connection; the key evaporates with its last member.
func (m *Mirror) Offline(ctx context.Context, userID, connID string) {
	if m == nil {
		return
	}
	if err := m.rdb.SRem(ctx, presenceKey(userID), connID).Err(); err != nil {
		logger.Warnf("[presence] mirror offline user=%s: %v", userID, err)
	}
}

// Lookup answers from the mirror only; redis.Nil means offline.
func (m *Mirror) Lookup(ctx context.Context, userID string) (bool, error) {
	if m == nil {
		return false, errors.New("presence mirror disabled")
	}
	n, err := m.rdb.SCard(ctx, presenceKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return n > 0, nil
}

func (m *Mirror) Close() error {
	if m == nil {
		return nil
	}
	return m.rdb.Close()
}
