package kafka

import (
	"Mercato/internal/api/config"
	"Mercato/internal/pkg/es"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

// ConsumerManager 管理所有 Kafka 消费者
type ConsumerManager struct {
	messageConsumer sarama.ConsumerGroup
	messageHandler  sarama.ConsumerGroupHandler
}

func NewConsumerManager(cfg *config.Config, messageESRepo es.MessageRepo) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	messageConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaMessageConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, errors.Wrap(err, "创建消息索引消费者失败")
	}
	messageHandler := NewMessageIndexHandler(messageESRepo)

	return &ConsumerManager{
		messageConsumer: messageConsumer,
		messageHandler:  messageHandler,
	}, nil
}

// Start 启动所有消费者，阻塞直至上下文取消
func (m *ConsumerManager) Start(ctx context.Context, cfg *config.Config) error {
	go func() {
		topic := cfg.KafkaMessageConsumer.Topic
		log.Info("Message index consumer started", "topic", topic)
		for {
			if err := m.messageConsumer.Consume(ctx, []string{topic}, m.messageHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	err := m.messageConsumer.Close()
	if err != nil {
		log.Error("Failed to close message consumer", "err", err)
	}

	return nil
}
