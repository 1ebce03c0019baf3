package service

import (
	"Mercato/internal/api/config"
	"Mercato/internal/api/dto"
	"Mercato/internal/pkg/mongo"
	"Mercato/internal/pkg/util"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"
)

type NotificationService interface {
	GetNotifications(ctx context.Context, userID uint64, page, limit int) (*dto.NotificationListDTO, error)
	MarkAsRead(ctx context.Context, userID uint64, noticeID string) error
	MarkAllAsRead(ctx context.Context, userID uint64) error
}

type notificationServiceImpl struct {
	notificationRepo mongo.NotificationRepo
}

func NewNotificationService(notificationRepo mongo.NotificationRepo) NotificationService {
	return &notificationServiceImpl{notificationRepo: notificationRepo}
}

func (s *notificationServiceImpl) GetNotifications(ctx context.Context, userID uint64, page, limit int) (*dto.NotificationListDTO, error) {
	page, limit = util.NormalizePage(page, limit, config.Cfg.IM.DefaultPageSize, config.Cfg.IM.MaxPageSize)

	notices, err := s.notificationRepo.GetNotificationList(ctx, userID, int64(limit), int64((page-1)*limit))
	if err != nil {
		return nil, err
	}
	unread, err := s.notificationRepo.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.NotificationDTO, 0, len(notices))
	for _, n := range notices {
		items = append(items, &dto.NotificationDTO{
			ID:        n.ID.Hex(),
			SenderID:  n.SenderID,
			Type:      int(n.Type),
			TargetID:  n.TargetID,
			Content:   n.Content,
			Payload:   n.Payload,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}

	return &dto.NotificationListDTO{
		Notifications: items,
		UnreadCount:   unread,
		Page:          page,
		Limit:         limit,
	}, nil
}

// MarkAsRead 标记单条通知已读，仅能操作发给自己的通知
func (s *notificationServiceImpl) MarkAsRead(ctx context.Context, userID uint64, noticeID string) error {
	objectID, err := primitive.ObjectIDFromHex(noticeID)
	if err != nil {
		return ErrParamInvalid
	}

	err = s.notificationRepo.MarkAsRead(ctx, userID, objectID)
	if err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

func (s *notificationServiceImpl) MarkAllAsRead(ctx context.Context, userID uint64) error {
	return s.notificationRepo.MarkAllAsRead(ctx, userID)
}
