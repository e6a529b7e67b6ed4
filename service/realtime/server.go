package realtime

import (
	"context"
	"time"

	"PSocial/logger"
)

// TokenVerifier is the auth collaborator used once at handshake.
type TokenVerifier interface {
	VerifyUser(token string) (userID string, err error)
}

// PresenceMirror mirrors online/offline transitions into an external
// cache for the REST read path. Best-effort only; the in-process
// registry stays authoritative.
type PresenceMirror interface {
	Online(ctx context.Context, userID, connID string)
	Offline(ctx context.Context, userID, connID string)
}

type Options struct {
	SendQueueSize int           // 每连接发送队列长度
	WriteTimeout  time.Duration // 单次 socket 写超时
	PingInterval  time.Duration
	PongWait      time.Duration
	FanoutWorkers int
	FanoutQueue   int
}

func (o *Options) norm() {
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 256
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.FanoutWorkers <= 0 {
		o.FanoutWorkers = 4
	}
	if o.FanoutQueue <= 0 {
		o.FanoutQueue = 1024
	}
}

// Gateway owns all live connection state of this process: the presence
// registry, the room router, the inbound dispatcher and the fanout
// pool. It is both the connection lifecycle manager (see ws_server.go)
// and the Bridge the REST write path talks to.
type Gateway struct {
	opts     Options
	verifier TokenVerifier
	mirror   PresenceMirror // may be nil

	reg    *Registry
	rooms  *Router
	disp   *Dispatcher
	fanout *Fanout
}

func NewGateway(verifier TokenVerifier, mirror PresenceMirror, opts Options) *Gateway {
	opts.norm()
	g := &Gateway{
		opts:     opts,
		verifier: verifier,
		mirror:   mirror,
		reg:      NewRegistry(),
		rooms:    NewRouter(),
		disp:     NewDispatcher(),
		fanout:   NewFanout(opts.FanoutWorkers, opts.FanoutQueue),
	}
	g.disp.registerBuiltins()
	return g
}

func (g *Gateway) Registry() *Registry { return g.reg }
func (g *Gateway) Rooms() *Router      { return g.rooms }
func (g *Gateway) Disp() *Dispatcher   { return g.disp }

// admit registers a freshly authenticated connection: both presence
// indices, the personal notification room, and (on the user's first
// connection) an online status push plus the cache mirror.
func (g *Gateway) admit(c *Client) {
	first := g.reg.Register(c)
	g.rooms.Join(UserRoom(c.UserID), c)
	if g.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		g.mirror.Online(ctx, c.UserID, c.ConnID)
		cancel()
	}
	if first {
		g.pushStatusChange(c.UserID, StatusOnline)
	}
	logger.Infof("[gateway] conn=%s user=%s online (first=%v)", c.ConnID, c.UserID, first)
}

// Teardown removes the connection from every room and from the
// registry. Safe to call any number of times; only the first does work.
func (g *Gateway) Teardown(c *Client) {
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		g.rooms.LeaveAll(c)
		last := g.reg.Unregister(c)
		close(c.done)
		if c.WS != nil {
			_ = c.WS.Close()
		}
		if g.mirror != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			g.mirror.Offline(ctx, c.UserID, c.ConnID)
			cancel()
		}
		if last {
			g.pushStatusChange(c.UserID, StatusOffline)
		}
		logger.Infof("[gateway] conn=%s user=%s offline (last=%v)", c.ConnID, c.UserID, last)
	})
}

// Close tears down every live connection, then stops the fanout pool.
// Teardowns run first so the offline status pushes still ride the pool.
func (g *Gateway) Close() {
	for _, c := range g.reg.listAll() {
		g.Teardown(c)
	}
	g.fanout.Close()
	logger.Infof("[gateway] closed")
}

func (g *Gateway) pushStatusChange(userID, status string) {
	payload, err := StatusChangeFrame(userID, status)
	if err != nil {
		logger.Errorf("[gateway] status frame: %v", err)
		return
	}
	g.fanout.Broadcast(g.reg.listAll(), payload)
}

// ===== Bridge =====

func (g *Gateway) PushMessageToConversation(conversationID string, p MessagePayload) {
	payload, err := NewMessageFrame(conversationID, p)
	if err != nil {
		logger.Errorf("[gateway] message frame conv=%s: %v", conversationID, err)
		return
	}
	g.rooms.Broadcast(ConversationRoom(conversationID), payload)
}

func (g *Gateway) PushNotificationToUser(userID string, record any) {
	payload, err := NotificationFrame(record)
	if err != nil {
		logger.Errorf("[gateway] notification frame user=%s: %v", userID, err)
		return
	}
	g.rooms.Broadcast(UserRoom(userID), payload)
}

func (g *Gateway) IsUserOnline(userID string) bool { return g.reg.IsOnline(userID) }

func (g *Gateway) ListOnlineUsers() []string { return g.reg.ListOnline() }
