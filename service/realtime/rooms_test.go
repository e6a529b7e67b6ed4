package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drainFrames empties the client's send queue and returns the decoded frames.
func drainFrames(t *testing.T, c *Client) []*Frame {
	t.Helper()
	var out []*Frame
	for {
		select {
		case raw := <-c.Send:
			f, err := ParseFrame(raw)
			require.NoError(t, err)
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestRoomIsolation(t *testing.T) {
	r := NewRouter()
	a := newTestClient("a", "u1")
	b := newTestClient("b", "u2")
	r.Join("conversation:1", a)
	r.Join("conversation:2", b)

	r.Broadcast("conversation:1", []byte(`{"event":"new_message","data":{}}`))

	assert.Len(t, drainFrames(t, a), 1)
	assert.Empty(t, drainFrames(t, b), "member of another room never sees the broadcast")
}

func TestJoinBeforeDeliverNoReplay(t *testing.T) {
	r := NewRouter()
	a := newTestClient("a", "u1")
	r.Join("conversation:1", a)

	r.Broadcast("conversation:1", []byte(`{"event":"new_message","data":{}}`))

	late := newTestClient("b", "u2")
	r.Join("conversation:1", late)
	assert.Empty(t, drainFrames(t, late), "no replay of history on join")
}

func TestLeaveStopsDelivery(t *testing.T) {
	r := NewRouter()
	a := newTestClient("a", "u1")
	r.Join("conversation:1", a)
	r.Leave("conversation:1", a)

	r.Broadcast("conversation:1", []byte(`{"event":"new_message","data":{}}`))
	assert.Empty(t, drainFrames(t, a))
	assert.Empty(t, r.MembersOf("conversation:1"), "room evaporated with its last member")
}

func TestLeaveAllKeepsIndicesInSync(t *testing.T) {
	r := NewRouter()
	a := newTestClient("a", "u1")
	b := newTestClient("b", "u2")
	r.Join("conversation:1", a)
	r.Join("conversation:2", a)
	r.Join("conversation:2", b)

	left := r.LeaveAll(a)
	assert.ElementsMatch(t, []string{"conversation:1", "conversation:2"}, left)
	assert.Empty(t, a.rooms)
	assert.Empty(t, r.MembersOf("conversation:1"))
	require.Len(t, r.MembersOf("conversation:2"), 1)
	assert.Same(t, b, r.MembersOf("conversation:2")[0])
}

func TestRejoinIsNoop(t *testing.T) {
	r := NewRouter()
	a := newTestClient("a", "u1")
	r.Join("conversation:1", a)
	r.Join("conversation:1", a)

	assert.Len(t, r.MembersOf("conversation:1"), 1)

	r.Broadcast("conversation:1", []byte(`{"event":"new_message","data":{}}`))
	assert.Len(t, drainFrames(t, a), 1, "no duplicate delivery after rejoin")
}

func TestBroadcastIsolatesSlowMember(t *testing.T) {
	r := NewRouter()
	stuck := NewClient("x", "u1", nil, 1)
	y := newTestClient("y", "u2")
	z := newTestClient("z", "u3")
	r.Join("conversation:1", stuck)
	r.Join("conversation:1", y)
	r.Join("conversation:1", z)

	// fill the slow member's queue so the next frame has nowhere to go
	stuck.Send <- []byte(`{"event":"x","data":{}}`)

	r.Broadcast("conversation:1", []byte(`{"event":"new_message","data":{}}`))

	assert.Len(t, drainFrames(t, y), 1)
	assert.Len(t, drainFrames(t, z), 1)
}

func TestBroadcastPerRoomOrder(t *testing.T) {
	r := NewRouter()
	a := NewClient("a", "u1", nil, 16)
	r.Join("conversation:1", a)

	for i := 0; i < 5; i++ {
		payload, err := json.Marshal(Frame{Event: "new_message", Data: json.RawMessage(
			[]byte(`{"seq":` + string(rune('0'+i)) + `}`))})
		require.NoError(t, err)
		r.Broadcast("conversation:1", payload)
	}

	frames := drainFrames(t, a)
	require.Len(t, frames, 5)
	for i, f := range frames {
		var body struct {
			Seq json.Number `json:"seq"`
		}
		require.NoError(t, json.Unmarshal(f.Data, &body))
		assert.Equal(t, json.Number(string(rune('0'+i))), body.Seq, "frames arrive in broadcast order")
	}
}

func TestBroadcastToEmptyRoomIsNoop(t *testing.T) {
	r := NewRouter()
	r.Broadcast("conversation:ghost", []byte(`{"event":"new_message","data":{}}`))
	assert.Empty(t, r.MembersOf("conversation:ghost"))
}
