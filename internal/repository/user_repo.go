package repository

import (
	"Mercato/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepo interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, userID uint64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByIDs(ctx context.Context, userIDs []uint64) ([]*model.User, error)
	CountByIDs(ctx context.Context, userIDs []uint64) (int64, error)

	UpsertPresence(ctx context.Context, userID uint64, status string) error
	GetPresence(ctx context.Context, userID uint64) (*model.UserPresence, error)
	GetPresenceByIDs(ctx context.Context, userIDs []uint64) (map[uint64]*model.UserPresence, error)
	SweepStalePresence(ctx context.Context, staleBefore time.Time) (int64, error)
}

type userRepoImpl struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &userRepoImpl{db: db}
}

func (s *userRepoImpl) Create(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *userRepoImpl) GetByID(ctx context.Context, userID uint64) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *userRepoImpl) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *userRepoImpl) GetByIDs(ctx context.Context, userIDs []uint64) ([]*model.User, error) {
	var users []*model.User
	err := s.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error
	return users, err
}

// CountByIDs 统计给定 ID 中真实存在的用户数，用于校验参与者合法性
func (s *userRepoImpl) CountByIDs(ctx context.Context, userIDs []uint64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id IN ?", userIDs).
		Count(&count).Error
	return count, err
}

// UpsertPresence 覆盖式更新在线状态
func (s *userRepoImpl) UpsertPresence(ctx context.Context, userID uint64, status string) error {
	presence := &model.UserPresence{
		UserID:       userID,
		Status:       status,
		LastActiveAt: time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "last_active_at"}),
	}).Create(presence).Error
}

func (s *userRepoImpl) GetPresence(ctx context.Context, userID uint64) (*model.UserPresence, error) {
	var presence model.UserPresence
	err := s.db.WithContext(ctx).First(&presence, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &presence, nil
}

func (s *userRepoImpl) GetPresenceByIDs(ctx context.Context, userIDs []uint64) (map[uint64]*model.UserPresence, error) {
	var rows []*model.UserPresence
	err := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	resMap := make(map[uint64]*model.UserPresence, len(rows))
	for _, r := range rows {
		resMap[r.UserID] = r
	}
	return resMap, nil
}

// SweepStalePresence 将心跳过期的在线用户批量置为离线
func (s *userRepoImpl) SweepStalePresence(ctx context.Context, staleBefore time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.UserPresence{}).
		Where("status <> ? AND last_active_at < ?", "offline", staleBefore).
		Update("status", "offline")
	return res.RowsAffected, res.Error
}
