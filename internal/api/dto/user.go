package dto

import "time"

// RegisterDTO 注册
type RegisterDTO struct {
	Username string `json:"username" binding:"required" validate:"min=3,max=20"`
	Password string `json:"password" binding:"required" validate:"min=6,max=64"`
	Nickname string `json:"nickname" validate:"omitempty,max=32"`
}

// CredentialDTO 登录凭证
type CredentialDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenDTO 登录响应
type TokenDTO struct {
	Token string   `json:"token"`
	User  *UserDTO `json:"user"`
}

// UserDTO 用户
type UserDTO struct {
	UserID    uint64     `json:"user_id"`
	Username  string     `json:"username"`
	Nickname  string     `json:"nickname"`
	AvatarURL string     `json:"avatar_url"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// PresenceDTO 在线状态
type PresenceDTO struct {
	UserID       uint64     `json:"user_id"`
	Status       string     `json:"status"` // online / offline / away
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}

// UpdatePresenceDTO 更新在线状态请求
type UpdatePresenceDTO struct {
	Status string `json:"status" binding:"required" validate:"oneof=online offline away"`
}
