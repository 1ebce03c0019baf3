package kafka

import (
	"Mercato/internal/pkg/es"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// MessageIndexHandler 消费消息事件并同步到 ES 搜索索引
type MessageIndexHandler struct {
	messageESRepo es.MessageRepo
}

func NewMessageIndexHandler(messageESRepo es.MessageRepo) *MessageIndexHandler {
	return &MessageIndexHandler{messageESRepo: messageESRepo}
}

func (s *MessageIndexHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("message index consumer setup")
	return nil
}

func (s *MessageIndexHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("message index consumer cleanup")
	return nil
}

func (s *MessageIndexHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-message-events consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("topic-message-events process batch error", "err", err)
		return err
	}
	return nil
}

func (s *MessageIndexHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event MessageEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("unmarshal message event error", "err", err)
		// 格式损坏的事件直接丢弃，重试无意义
		return nil
	}

	switch event.Op {
	case OpIndex:
		if event.Document == nil {
			return nil
		}
		err := s.messageESRepo.IndexMessage(ctx, event.Document)
		if err != nil {
			log.ErrorContext(ctx, "index message error", "messageID", event.MessageID, "err", err)
			return err
		}
		log.InfoContext(ctx, "message indexed", "messageID", event.MessageID)
		return nil
	case OpDelete:
		err := s.messageESRepo.DeleteMessage(ctx, event.MessageID)
		if err != nil {
			log.ErrorContext(ctx, "delete message from index error", "messageID", event.MessageID, "err", err)
			return err
		}
		return nil
	default:
		return nil
	}
}
