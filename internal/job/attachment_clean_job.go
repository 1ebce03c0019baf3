package job

import (
	"Mercato/internal/pkg/consts"
	"Mercato/internal/pkg/minio"
	"Mercato/internal/pkg/redis"
	"context"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
)

// stagedAttachmentMeta 暂存附件元信息里本任务关心的字段
type stagedAttachmentMeta struct {
	FilePath   string    `json:"filePath"`
	MimeType   string    `json:"mimeType"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// AttachmentCleanupJob 清理上传后超过 24 小时仍未绑定到消息的附件
type AttachmentCleanupJob struct{}

func NewAttachmentCleanupJob() *AttachmentCleanupJob {
	return &AttachmentCleanupJob{}
}

func (s *AttachmentCleanupJob) Run() {
	ctx := context.Background()
	log.Info("start attachment cleanup job")

	staged, err := redis.HGetAll(ctx, consts.AttachmentTempKey)
	if err != nil {
		log.Error("failed to get attachment temp hash", "err", err)
		return
	}

	expiration := 24 * time.Hour
	count := 0

	for attachmentKey, val := range staged {
		var meta stagedAttachmentMeta
		if err := json.Unmarshal([]byte(val), &meta); err != nil {
			log.Warn("invalid attachment meta format", "attachmentKey", attachmentKey)
			continue
		}

		if time.Since(meta.UploadedAt) > expiration {
			if err = minio.DeleteFile(ctx, meta.FilePath); err != nil {
				log.Error("failed to delete expired attachment from minio", "object", meta.FilePath, "err", err)
				continue
			}

			if err = redis.HDel(ctx, consts.AttachmentTempKey, attachmentKey); err != nil {
				log.Error("failed to remove attachment meta from redis", "attachmentKey", attachmentKey, "err", err)
			}

			count++
			log.Info("cleanup expired attachment", "object", meta.FilePath, "mime", meta.MimeType)
		}
	}

	if count > 0 {
		log.Info("attachment cleanup job finished", "cleaned_count", count)
	}
}
