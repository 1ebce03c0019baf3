package kafka

import (
	"Mercato/internal/api/config"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Producer 异步投递消息事件，失败只记录日志不阻塞写路径
type Producer interface {
	EmitMessageEvent(event *MessageEvent)
	Close() error
}

type producerImpl struct {
	producer sarama.AsyncProducer
	topic    string
}

func NewProducer(cfg *config.Config) (Producer, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	p, err := sarama.NewAsyncProducer(cfg.Kafka.Brokers, saramaCfg)
	if err != nil {
		return nil, errors.Wrap(err, "创建消息事件生产者失败")
	}

	// 失败消息只落日志，索引旁路允许丢失
	go func() {
		for perr := range p.Errors() {
			log.Error("消息事件投递失败", "topic", perr.Msg.Topic, "err", perr.Err)
		}
	}()

	return &producerImpl{producer: p, topic: cfg.Kafka.MessageTopic}, nil
}

func (s *producerImpl) EmitMessageEvent(event *MessageEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("消息事件序列化失败", "messageID", event.MessageID, "err", err)
		return
	}
	s.producer.Input() <- &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(event.Op),
		Value: sarama.ByteEncoder(payload),
	}
}

func (s *producerImpl) Close() error {
	return s.producer.Close()
}
