package service

import (
	"context"
	"time"

	"Mercato/internal/api/config"
	"Mercato/internal/model"
	"Mercato/internal/pkg/kafka"
	"Mercato/internal/pkg/mongo"
	"Mercato/internal/pkg/redis"
	"Mercato/internal/realtime"
	"Mercato/internal/repository"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 单元测试用的内存桩，只实现被测路径需要的方法，其余走嵌入接口（调用即 panic）

type fakeConvRepo struct {
	repository.ConversationRepo
	conv            *model.Conversation
	participants    []*model.ConversationParticipant
	metadataUpdates map[string]interface{}
	roleChangedTo   *uint64
}

func (f *fakeConvRepo) GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error) {
	if f.conv == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.conv, nil
}

func (f *fakeConvRepo) GetParticipant(ctx context.Context, convID, userID uint64) (*model.ConversationParticipant, error) {
	for _, p := range f.participants {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeConvRepo) IsParticipant(ctx context.Context, convID, userID uint64) (bool, error) {
	for _, p := range f.participants {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeConvRepo) ListParticipants(ctx context.Context, convID uint64) ([]*model.ConversationParticipant, error) {
	return f.participants, nil
}

func (f *fakeConvRepo) UpdateMetadata(ctx context.Context, convID uint64, updates map[string]interface{}) error {
	f.metadataUpdates = updates
	return nil
}

func (f *fakeConvRepo) UpdateParticipantRole(ctx context.Context, convID, userID uint64, isAdmin bool, sysMessage *model.Message) error {
	f.roleChangedTo = &userID
	return nil
}

type fakeMessageRepo struct {
	repository.MessageRepo
	messages       map[uint64]*model.Message
	editErr        error
	editedContent  string
	deliveryStatus string
	sent           *model.Message
}

func (f *fakeMessageRepo) GetByID(ctx context.Context, messageID uint64) (*model.Message, error) {
	if msg, ok := f.messages[messageID]; ok {
		return msg, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMessageRepo) Edit(ctx context.Context, messageID, senderID uint64, content string) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.editedContent = content
	return nil
}

func (f *fakeMessageRepo) UpdateDeliveryStatus(ctx context.Context, messageID uint64, status string) error {
	f.deliveryStatus = status
	return nil
}

func (f *fakeMessageRepo) Send(ctx context.Context, msg *model.Message, attachments []*model.MessageAttachment) error {
	msg.ID = 101
	msg.CreatedAt = time.Now()
	f.sent = msg
	return nil
}

type publishedEvent struct {
	userIDs []uint64
	event   *realtime.Event
}

type fakePublisher struct {
	published []publishedEvent
}

func (f *fakePublisher) PublishToUser(ctx context.Context, userID uint64, event *realtime.Event) error {
	f.published = append(f.published, publishedEvent{userIDs: []uint64{userID}, event: event})
	return nil
}

func (f *fakePublisher) PublishToUsers(ctx context.Context, userIDs []uint64, event *realtime.Event) {
	f.published = append(f.published, publishedEvent{userIDs: userIDs, event: event})
}

// eventsFor 返回推送给指定用户的事件类型列表
func (f *fakePublisher) eventsFor(userID uint64) []string {
	var types []string
	for _, p := range f.published {
		for _, id := range p.userIDs {
			if id == userID {
				types = append(types, p.event.Type)
			}
		}
	}
	return types
}

type fakeCache struct{}

func (fakeCache) Get(ctx context.Context, key string) (string, bool, error) { return "", false, nil }
func (fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}
func (fakeCache) Del(ctx context.Context, key string) error             { return nil }
func (fakeCache) InvalidatePattern(ctx context.Context, p string) error { return nil }

type fakeNotificationRepo struct {
	mongo.NotificationRepo
	inserted []*mongo.NotificationModel
}

func (f *fakeNotificationRepo) Insert(ctx context.Context, notice *mongo.NotificationModel) error {
	f.inserted = append(f.inserted, notice)
	return nil
}

type fakeProducer struct {
	events []*kafka.MessageEvent
}

func (f *fakeProducer) EmitMessageEvent(event *kafka.MessageEvent) {
	f.events = append(f.events, event)
}
func (f *fakeProducer) Close() error { return nil }

// setupTestEnv 填充测试配置并把 Redis 指向不可达地址，走失败降级路径
func setupTestEnv() {
	config.Cfg = &config.Config{
		IM: config.IMConfig{
			MessagesPerMinute:  60,
			ReactionsPerMinute: 120,
			TypingTTL:          8,
			CacheTTL:           300,
			DefaultPageSize:    20,
			MaxPageSize:        100,
		},
	}
	redis.Rdb = goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func groupConv(creatorID uint64) *model.Conversation {
	return &model.Conversation{
		ID: 1,
		Metadata: model.ConversationMetadata{
			ConversationID: 1,
			Title:          "群聊",
			IsGroup:        1,
			CreatorID:      creatorID,
		},
	}
}
