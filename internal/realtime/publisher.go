package realtime

import (
	"Mercato/internal/pkg/consts"
	"Mercato/internal/pkg/redis"
	"context"
	log "log/slog"
	"strconv"

	json "github.com/goccy/go-json"
)

// Publisher 将事件经 Redis 个人频道分发至各网关进程
type Publisher interface {
	PublishToUser(ctx context.Context, userID uint64, event *Event) error
	PublishToUsers(ctx context.Context, userIDs []uint64, event *Event)
}

type redisPublisher struct{}

func NewPublisher() Publisher {
	return &redisPublisher{}
}

// UserChannel 用户个人推送频道名
func UserChannel(userID uint64) string {
	return consts.IMUserChannelKey + strconv.FormatUint(userID, 10)
}

func (s *redisPublisher) PublishToUser(ctx context.Context, userID uint64, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return redis.Publish(ctx, UserChannel(userID), payload)
}

// PublishToUsers 逐个用户推送，单个失败不影响其余
func (s *redisPublisher) PublishToUsers(ctx context.Context, userIDs []uint64, event *Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("推送事件序列化失败", "type", event.Type, "err", err)
		return
	}
	for _, id := range userIDs {
		if err = redis.Publish(ctx, UserChannel(id), payload); err != nil {
			log.Error("推送事件发布失败", "userID", id, "type", event.Type, "err", err)
		}
	}
}
