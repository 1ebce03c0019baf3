package service

import (
	"Mercato/internal/api/dto"
	"Mercato/internal/model"
	"Mercato/internal/pkg/consts"
	"Mercato/internal/pkg/redis"
	"Mercato/internal/pkg/security"
	"Mercato/internal/repository"
	"context"
	"errors"
	"time"

	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

type UserService interface {
	Register(ctx context.Context, req *dto.RegisterDTO) error
	Login(ctx context.Context, req *dto.CredentialDTO) (*dto.TokenDTO, error)
	Logout(ctx context.Context, token string) error
	GetUserInfo(ctx context.Context, userID uint64) (*dto.UserDTO, error)
	UpdatePresence(ctx context.Context, userID uint64, status string) error
	GetPresence(ctx context.Context, userIDs []uint64) ([]*dto.PresenceDTO, error)
}

type userServiceImpl struct {
	userRepo  repository.UserRepo
	publisher PresenceBroadcaster
}

// PresenceBroadcaster 在线状态变更后向相关用户推送
type PresenceBroadcaster interface {
	BroadcastPresence(ctx context.Context, userID uint64, status string)
}

func NewUserService(userRepo repository.UserRepo, publisher PresenceBroadcaster) UserService {
	return &userServiceImpl{
		userRepo:  userRepo,
		publisher: publisher,
	}
}

func (s *userServiceImpl) Register(ctx context.Context, req *dto.RegisterDTO) error {
	_, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err == nil {
		return ErrUserExist
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return err
	}

	nickname := req.Nickname
	if nickname == "" {
		nickname = req.Username
	}

	user := &model.User{
		Username:     req.Username,
		PasswordHash: hash,
		Nickname:     nickname,
	}
	return s.userRepo.Create(ctx, user)
}

func (s *userServiceImpl) Login(ctx context.Context, req *dto.CredentialDTO) (*dto.TokenDTO, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err = security.CheckPasswordHash(req.Password, user.PasswordHash); err != nil {
		return nil, ErrPasswordIncorrect
	}

	token, err := security.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &dto.TokenDTO{
		Token: token,
		User:  toUserDTO(user),
	}, nil
}

// Logout 以令牌签名为键写入黑名单，有效期覆盖令牌剩余生命周期
func (s *userServiceImpl) Logout(ctx context.Context, token string) error {
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return err
	}
	return redis.SetWithExpiration(ctx, signature, true, time.Hour*24)
}

func (s *userServiceImpl) GetUserInfo(ctx context.Context, userID uint64) (*dto.UserDTO, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toUserDTO(user), nil
}

// UpdatePresence 更新在线状态并广播变更
func (s *userServiceImpl) UpdatePresence(ctx context.Context, userID uint64, status string) error {
	if err := s.userRepo.UpsertPresence(ctx, userID, status); err != nil {
		return err
	}
	s.publisher.BroadcastPresence(ctx, userID, status)
	return nil
}

func (s *userServiceImpl) GetPresence(ctx context.Context, userIDs []uint64) ([]*dto.PresenceDTO, error) {
	presences, err := s.userRepo.GetPresenceByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.PresenceDTO, 0, len(userIDs))
	for _, id := range userIDs {
		if p, ok := presences[id]; ok {
			lastActive := p.LastActiveAt
			result = append(result, &dto.PresenceDTO{
				UserID:       id,
				Status:       p.Status,
				LastActiveAt: &lastActive,
			})
			continue
		}
		// 无记录的用户视为离线
		result = append(result, &dto.PresenceDTO{UserID: id, Status: consts.PresenceOffline})
	}
	return result, nil
}

func toUserDTO(user *model.User) *dto.UserDTO {
	userDTO := &dto.UserDTO{}
	_ = copier.Copy(userDTO, user)
	userDTO.UserID = user.ID
	createdAt := user.CreatedAt
	userDTO.CreatedAt = &createdAt
	return userDTO
}
