package realtime

// Bridge is the only surface the REST write path may call. Handlers
// receive it at construction time; when the real-time layer is absent
// they get NoopBridge instead of a nil they'd have to check.
// Every push is fire-and-forget: a missing or broken real-time layer
// degrades to "no live push", never to a failed write.
type Bridge interface {
	PushMessageToConversation(conversationID string, p MessagePayload)
	PushNotificationToUser(userID string, record any)
	IsUserOnline(userID string) bool
	ListOnlineUsers() []string
}

// NoopBridge 实时层缺席时的占位实现。
type NoopBridge struct{}

func (NoopBridge) PushMessageToConversation(string, MessagePayload) {}
func (NoopBridge) PushNotificationToUser(string, any)               {}
func (NoopBridge) IsUserOnline(string) bool                         { return false }
func (NoopBridge) ListOnlineUsers() []string                        { return nil }

var (
	_ Bridge = (*Gateway)(nil)
	_ Bridge = NoopBridge{}
)
