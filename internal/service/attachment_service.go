package service

import (
	"Mercato/internal/api/dto"
	"Mercato/internal/pkg/consts"
	"Mercato/internal/pkg/minio"
	"Mercato/internal/pkg/redis"
	"Mercato/internal/pkg/util"
	"context"
	"fmt"
	log "log/slog"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// stagedAttachment 已上传待绑定的附件，经 Redis Hash 暂存
// 发送消息时按 AttachmentKey 取回并落库
type stagedAttachment struct {
	OwnerID      uint64    `json:"ownerId"`
	FileType     string    `json:"fileType"`
	FilePath     string    `json:"filePath"`
	OriginalName string    `json:"originalName"`
	FileSize     int64     `json:"fileSize"`
	MimeType     string    `json:"mimeType"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

type AttachmentService interface {
	Upload(ctx context.Context, userID uint64, fileHeader *multipart.FileHeader) (*dto.UploadResultDTO, error)
}

type attachmentServiceImpl struct{}

func NewAttachmentService() AttachmentService {
	return &attachmentServiceImpl{}
}

// Upload 上传附件
// 以文件头嗅探真实类型，拒绝白名单之外的内容，客户端声明的 MIME 不可信
func (s *attachmentServiceImpl) Upload(ctx context.Context, userID uint64, fileHeader *multipart.FileHeader) (*dto.UploadResultDTO, error) {
	if fileHeader.Size > consts.MaxAttachmentSize {
		return nil, ErrFileTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	contentType, err := util.GetSafeContentType(file)
	if err != nil {
		return nil, err
	}
	category := util.AttachmentCategory(contentType)
	if category == "" {
		return nil, ErrFileNotSupported
	}

	ext := filepath.Ext(fileHeader.Filename)
	objectName := fmt.Sprintf("attachments/%s/%s%s", time.Now().Format("20060102"), uuid.NewString(), ext)

	if _, err = minio.UploadFile(ctx, objectName, file, fileHeader.Size, contentType); err != nil {
		return nil, err
	}

	staged := &stagedAttachment{
		OwnerID:      userID,
		FileType:     category,
		FilePath:     objectName,
		OriginalName: fileHeader.Filename,
		FileSize:     fileHeader.Size,
		MimeType:     contentType,
		UploadedAt:   time.Now(),
	}
	payload, err := json.Marshal(staged)
	if err != nil {
		return nil, err
	}

	attachmentKey := uuid.NewString()
	if err = redis.HSet(ctx, consts.AttachmentTempKey, attachmentKey, string(payload)); err != nil {
		// 暂存失败时清理已上传对象，避免孤儿文件
		if derr := minio.DeleteFile(ctx, objectName); derr != nil {
			log.ErrorContext(ctx, "清理上传对象失败", "object", objectName, "err", derr)
		}
		return nil, err
	}

	return &dto.UploadResultDTO{
		AttachmentKey: attachmentKey,
		FileType:      category,
		URL:           minio.GetPublicURL(objectName),
		OriginalName:  fileHeader.Filename,
		FileSize:      fileHeader.Size,
		MimeType:      contentType,
	}, nil
}

// takeStagedAttachment 取回并校验暂存附件，属主不符视为不存在
func takeStagedAttachment(ctx context.Context, userID uint64, key string) (*stagedAttachment, error) {
	value, err := redis.HGet(ctx, consts.AttachmentTempKey, key)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, ErrFileNotExist
	}

	var staged stagedAttachment
	if err = json.Unmarshal([]byte(value), &staged); err != nil {
		return nil, ErrFileNotExist
	}
	if staged.OwnerID != userID {
		return nil, ErrFileNotExist
	}
	return &staged, nil
}
