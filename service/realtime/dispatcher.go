package realtime

import (
	"encoding/json"

	"PSocial/logger"
	"PSocial/tools/errs"
)

// HandlerFunc handles one inbound client event.
type HandlerFunc func(g *Gateway, c *Client, data json.RawMessage) error

// Dispatcher routes inbound frames by event name. Each connection walks
// Authenticated -> Active -> Closed; anything arriving on a Closed
// connection is dropped here, the transport is already gone.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

func (d *Dispatcher) Register(event string, h HandlerFunc) { d.handlers[event] = h }

func (d *Dispatcher) Dispatch(g *Gateway, c *Client, f *Frame) error {
	if c.State() == StateClosed {
		return nil
	}
	h, ok := d.handlers[f.Event]
	if !ok {
		logger.Debugf("[dispatch] no handler for event=%s conn=%s", f.Event, c.ConnID)
		return nil
	}
	return h(g, c, f.Data)
}

func (d *Dispatcher) registerBuiltins() {
	d.Register(EventJoinConversation, handleJoinConversation)
	d.Register(EventLeaveConversation, handleLeaveConversation)
	d.Register(EventTypingStart, handleTypingStart)
	d.Register(EventTypingStop, handleTypingStop)
	d.Register(EventSendMessage, handleSendMessageDeprecated)
}

func parseConversationRef(data json.RawMessage) (string, error) {
	var ref ConversationRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return "", err
	}
	return ref.ConversationID, nil
}

// join_conversation: membership only. Whether the user is a legitimate
// participant is checked by the REST layer when a message is persisted,
// not here.
func handleJoinConversation(g *Gateway, c *Client, data json.RawMessage) error {
	convID, err := parseConversationRef(data)
	if err != nil || convID == "" {
		logger.Debugf("[dispatch] join_conversation bad payload conn=%s err=%v", c.ConnID, err)
		return nil
	}
	g.rooms.Join(ConversationRoom(convID), c)
	c.markActive()
	logger.Debugf("[dispatch] conn=%s user=%s joined conversation=%s", c.ConnID, c.UserID, convID)
	return nil
}

func handleLeaveConversation(g *Gateway, c *Client, data json.RawMessage) error {
	convID, err := parseConversationRef(data)
	if err != nil || convID == "" {
		return nil
	}
	room := ConversationRoom(convID)
	if !g.rooms.Has(room, c) {
		logger.Debugf("[dispatch] leave for room never joined conn=%s room=%s: %v",
			c.ConnID, room, errs.ErrRoomNotJoined)
		return nil
	}
	g.rooms.Leave(room, c)
	return nil
}

func handleTypingStart(g *Gateway, c *Client, data json.RawMessage) error {
	return broadcastTyping(g, c, data, true)
}

func handleTypingStop(g *Gateway, c *Client, data json.RawMessage) error {
	return broadcastTyping(g, c, data, false)
}

// typing_start/typing_stop: ephemeral, no persistence, no ack, and the
// sender never hears its own typing echo.
func broadcastTyping(g *Gateway, c *Client, data json.RawMessage, typing bool) error {
	convID, err := parseConversationRef(data)
	if err != nil || convID == "" {
		return nil
	}
	room := ConversationRoom(convID)
	if !g.rooms.Has(room, c) {
		logger.Debugf("[dispatch] typing for room never joined conn=%s room=%s: %v",
			c.ConnID, room, errs.ErrRoomNotJoined)
		return nil
	}
	payload, err := TypingFrame(c.UserID, convID, typing)
	if err != nil {
		return err
	}
	c.markActive()
	g.rooms.BroadcastExcept(room, payload, c)
	return nil
}

// send_message over the socket is retired: chat content reaches clients
// only after the REST write path has persisted it and called the bridge.
// Old clients still emitting it get silence, not an error.
func handleSendMessageDeprecated(_ *Gateway, c *Client, _ json.RawMessage) error {
	logger.Warnf("[dispatch] ignoring deprecated send_message from conn=%s user=%s", c.ConnID, c.UserID)
	return nil
}
