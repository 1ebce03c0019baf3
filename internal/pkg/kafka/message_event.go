package kafka

import "Mercato/internal/pkg/es"

// 消息事件操作类型
const (
	OpIndex  = "index"
	OpDelete = "delete"
)

// MessageEvent 消息写路径提交后投递到 Kafka 的索引事件
// 仅驱动搜索索引等旁路消费，不参与消息投递本身
type MessageEvent struct {
	Op        string        `json:"op"`
	MessageID uint64        `json:"messageId"`
	Document  *es.MessageES `json:"document,omitempty"`
}
