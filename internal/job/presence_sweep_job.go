package job

import (
	"Mercato/internal/repository"
	"context"
	log "log/slog"
	"time"
)

// 超过该时长没有心跳的在线用户被判定为离线
const presenceStaleAfter = 5 * time.Minute

// PresenceSweepJob 将长时间无活动的用户状态回收为离线
type PresenceSweepJob struct {
	userRepo repository.UserRepo
}

func NewPresenceSweepJob(userRepo repository.UserRepo) *PresenceSweepJob {
	return &PresenceSweepJob{userRepo: userRepo}
}

func (s *PresenceSweepJob) Run() {
	ctx := context.Background()

	swept, err := s.userRepo.SweepStalePresence(ctx, time.Now().Add(-presenceStaleAfter))
	if err != nil {
		log.Error("presence sweep job failed", "err", err)
		return
	}
	if swept > 0 {
		log.Info("presence sweep job finished", "swept_count", swept)
	}
}
