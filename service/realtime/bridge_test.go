package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// admitted builds a client and runs it through the normal lifecycle
// (registry + personal room), without a real socket.
func admitted(g *Gateway, connID, userID string) *Client {
	c := NewClient(connID, userID, nil, 16)
	g.admit(c)
	return c
}

func TestEndToEndConversationPush(t *testing.T) {
	g := newTestGateway()
	u1 := admitted(g, "c1", "U1")
	u2 := admitted(g, "c2", "U2")
	dispatch(t, g, u1, EventJoinConversation, `{"conversationId":"42"}`)
	dispatch(t, g, u2, EventJoinConversation, `{"conversationId":"42"}`)

	// the REST layer has persisted the message and now calls the bridge
	g.PushMessageToConversation("42", MessagePayload{SenderID: "U1", Message: "hi"})

	for _, c := range []*Client{u1, u2} {
		frames := framesOf(t, c, EventNewMessage)
		require.Len(t, frames, 1, "exactly one new_message per member, sender included")
		var body struct {
			SenderID       string    `json:"senderId"`
			ConversationID string    `json:"conversationId"`
			Message        string    `json:"message"`
			MessageType    string    `json:"messageType"`
			Timestamp      time.Time `json:"timestamp"`
		}
		require.NoError(t, json.Unmarshal(frames[0].Data, &body))
		assert.Equal(t, "U1", body.SenderID)
		assert.Equal(t, "42", body.ConversationID)
		assert.Equal(t, "hi", body.Message)
		assert.Equal(t, "text", body.MessageType)
		assert.False(t, body.Timestamp.IsZero())
	}
}

func TestPushToConversationNobodyJoined(t *testing.T) {
	g := newTestGateway()
	c := admitted(g, "c1", "U1")

	g.PushMessageToConversation("99", MessagePayload{SenderID: "U2", Message: "void"})
	assert.Empty(t, framesOf(t, c, EventNewMessage))
}

func TestNotificationTargeting(t *testing.T) {
	g := newTestGateway()
	target := admitted(g, "c1", "U3")
	secondDevice := admitted(g, "c2", "U3")
	bystander := admitted(g, "c3", "U4")
	dispatch(t, g, bystander, EventJoinConversation, `{"conversationId":"42"}`)

	record := map[string]any{"id": "n1", "kind": "like", "actorId": "U9"}
	g.PushNotificationToUser("U3", record)

	for _, c := range []*Client{target, secondDevice} {
		frames := framesOf(t, c, EventNotification)
		require.Len(t, frames, 1, "every device of the user gets the notification")
		var body map[string]any
		require.NoError(t, json.Unmarshal(frames[0].Data, &body))
		assert.Equal(t, "like", body["kind"])
	}
	assert.Empty(t, framesOf(t, bystander, EventNotification),
		"personal pushes never leak into conversation rooms")
}

func TestDisconnectCleansEverything(t *testing.T) {
	g := newTestGateway()
	c := admitted(g, "c1", "U1")
	dispatch(t, g, c, EventJoinConversation, `{"conversationId":"1"}`)
	dispatch(t, g, c, EventJoinConversation, `{"conversationId":"2"}`)

	g.Teardown(c)

	assert.Empty(t, g.rooms.MembersOf("conversation:1"))
	assert.Empty(t, g.rooms.MembersOf("conversation:2"))
	assert.Empty(t, g.rooms.MembersOf(UserRoom("U1")))
	assert.False(t, g.IsUserOnline("U1"))
	assert.Equal(t, StateClosed, c.State())

	// second teardown is a no-op
	g.Teardown(c)
}

func TestJoinAfterTeardownDoesNotResurrectMembership(t *testing.T) {
	g := newTestGateway()
	c := admitted(g, "c1", "U1")

	g.Teardown(c)

	// A join that raced past the dispatcher's state check lands on the
	// router only after teardown flipped the state; it must be refused.
	g.rooms.Join(ConversationRoom("42"), c)

	assert.Empty(t, g.rooms.MembersOf(ConversationRoom("42")))
	assert.False(t, g.rooms.Has(ConversationRoom("42"), c))
	assert.False(t, g.IsUserOnline("U1"))

	g.Teardown(c)
	assert.Empty(t, g.rooms.MembersOf(ConversationRoom("42")))
}

// waitStatus blocks until the watcher has seen user_status_change for
// the given user/status; status pushes ride the async fanout pool.
func waitStatus(t *testing.T, watcher *Client, userID, status string) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, f := range framesOf(t, watcher, EventUserStatusChange) {
			var body struct {
				UserID string `json:"userId"`
				Status string `json:"status"`
			}
			if json.Unmarshal(f.Data, &body) == nil &&
				body.UserID == userID && body.Status == status {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond, "expected %s/%s status push", userID, status)
}

func TestStatusChangeOnPresenceTransitions(t *testing.T) {
	g := newTestGateway()
	watcher := admitted(g, "c0", "W")

	newcomer := admitted(g, "c1", "U1")
	waitStatus(t, watcher, "U1", StatusOnline)

	g.Teardown(newcomer)
	waitStatus(t, watcher, "U1", StatusOffline)
}

func TestSecondDeviceDoesNotRebroadcastOnline(t *testing.T) {
	g := newTestGateway()
	watcher := admitted(g, "c0", "W")
	waitStatus(t, watcher, "W", StatusOnline) // watcher sees its own arrival

	admitted(g, "c1", "U1")
	waitStatus(t, watcher, "U1", StatusOnline)

	admitted(g, "c2", "U1") // second device of an already-online user
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, framesOf(t, watcher, EventUserStatusChange),
		"only the offline->online transition is announced")
}

func TestGatewayCloseTearsDownAllConnections(t *testing.T) {
	g := newTestGateway()
	u1 := admitted(g, "c1", "U1")
	u2 := admitted(g, "c2", "U2")
	dispatch(t, g, u1, EventJoinConversation, `{"conversationId":"42"}`)

	g.Close()

	assert.Empty(t, g.ListOnlineUsers())
	assert.Empty(t, g.rooms.MembersOf(ConversationRoom("42")))
	assert.Equal(t, StateClosed, u1.State())
	assert.Equal(t, StateClosed, u2.State())

	// Pushes after shutdown are dropped, never a panic.
	g.PushMessageToConversation("42", MessagePayload{SenderID: "U1", Message: "late"})
	g.pushStatusChange("U1", StatusOnline)
	g.Close() // idempotent
}

func TestNoopBridge(t *testing.T) {
	var b Bridge = NoopBridge{}
	b.PushMessageToConversation("42", MessagePayload{SenderID: "U1", Message: "hi"})
	b.PushNotificationToUser("U1", map[string]any{"kind": "like"})
	assert.False(t, b.IsUserOnline("U1"))
	assert.Empty(t, b.ListOnlineUsers())
}
