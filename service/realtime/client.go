package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Client represents a user session connected to the gateway.
// A single user may have multiple devices/connections, each maintained separately.

type ClientState int32

const (
	StateAuthenticated ClientState = iota // 握手成功，仅在个人房间
	StateActive                           // 已加入会话房间（或已开始收发）
	StateClosed                           // 终态：断开后所有入站事件忽略
)

type Client struct {
	ConnID string          // Unique connection ID (unique within the local gateway)
	UserID string          // User ID (determined after authentication)
	WS     *websocket.Conn // WebSocket connection object
	Send   chan []byte     // Outbound message queue (consumed by a single writer goroutine)

	state atomic.Int32
	// rooms is owned by the Router and mutated only under its lock,
	// so the two sides of the bidirectional index never diverge.
	rooms map[string]struct{}

	done      chan struct{} // closed on teardown, stops the writer goroutine
	closeOnce sync.Once
}

// NewClient creates a new client connection object.
func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	c := &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		rooms:  make(map[string]struct{}),
		done:   make(chan struct{}),
	}
	c.state.Store(int32(StateAuthenticated))
	return c
}

func (c *Client) State() ClientState {
	return ClientState(c.state.Load())
}

func (c *Client) setState(s ClientState) {
	c.state.Store(int32(s))
}

// markActive flips Authenticated -> Active; any other transition is left alone.
func (c *Client) markActive() {
	c.state.CompareAndSwap(int32(StateAuthenticated), int32(StateActive))
}

// enqueue puts a frame on the client's send queue without blocking.
// A full queue or a closed client drops the frame and reports false;
// the writer goroutine owns the actual socket write.
func (c *Client) enqueue(payload []byte) bool {
	if c.State() == StateClosed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}
