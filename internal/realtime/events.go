package realtime

import "time"

// 服务端推送事件类型
const (
	EventMessageNew      = "message.new"
	EventMessageSent     = "message.sent"
	EventMessageEdited   = "message.edited"
	EventMessageDeleted  = "message.deleted"
	EventMessageRead     = "message.read"
	EventMessageDelivery = "message.delivery"
	EventReactionUpdated = "reaction.updated"
	EventConversation    = "conversation.updated"
	EventTyping          = "typing"
	EventPresence        = "presence"
	EventNotification    = "notification"
	EventHistory         = "history"
	EventError           = "error"
)

// 客户端上行事件类型
const (
	ClientEventTyping   = "typing"
	ClientEventRead     = "read"
	ClientEventPing     = "ping"
	ClientEventSend     = "message.send"
	ClientEventHistory  = "history"
	ClientEventReaction = "reaction"
	ClientEventDelivery = "delivery"
)

// Event 经 Redis 总线转发给客户端的推送事件
type Event struct {
	Type           string      `json:"type"`
	ConversationID uint64      `json:"conversationId,omitempty"`
	Payload        interface{} `json:"payload,omitempty"`
	Timestamp      int64       `json:"timestamp"`
}

func NewEvent(eventType string, convID uint64, payload interface{}) *Event {
	return &Event{
		Type:           eventType,
		ConversationID: convID,
		Payload:        payload,
		Timestamp:      time.Now().UnixMilli(),
	}
}

// ClientEvent 客户端经 WS 上行的事件
type ClientEvent struct {
	Type           string   `json:"type"`
	ConversationID uint64   `json:"conversationId,omitempty"`
	MessageID      uint64   `json:"messageId,omitempty"`
	MessageIDs     []uint64 `json:"messageIds,omitempty"`
	Typing         bool     `json:"typing,omitempty"`

	// message.send
	Content         string  `json:"content,omitempty"`
	ParentMessageID *uint64 `json:"parentMessageId,omitempty"`

	// history
	Cursor string `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty"`

	// reaction：空串表示撤销回应
	Reaction string `json:"reaction,omitempty"`
	// delivery
	Status string `json:"status,omitempty"`
}

// TypingPayload 正在输入事件载荷
type TypingPayload struct {
	UserID uint64 `json:"userId"`
	Typing bool   `json:"typing"`
}

// PresencePayload 在线状态变更载荷
type PresencePayload struct {
	UserID uint64 `json:"userId"`
	Status string `json:"status"`
}

// ReadPayload 已读回执推送载荷
type ReadPayload struct {
	UserID     uint64   `json:"userId"`
	MessageIDs []uint64 `json:"messageIds"`
}

// DeliveryPayload 投递状态变更载荷
type DeliveryPayload struct {
	MessageID uint64 `json:"messageId"`
	Status    string `json:"status"`
}
