package dto

import "time"

// CreateConversationDTO 创建会话请求
type CreateConversationDTO struct {
	ParticipantIDs []uint64 `json:"participant_ids" binding:"required" validate:"min=1"`
	Title          string   `json:"title" validate:"omitempty,max=128"`
	Description    string   `json:"description" validate:"omitempty,max=512"`
	IsGroup        bool     `json:"is_group"`
	InitialMessage string   `json:"initial_message" validate:"omitempty,max=4096"`
}

// UpdateConversationDTO 更新会话元数据请求，nil 字段不变更
type UpdateConversationDTO struct {
	Title       *string `json:"title" validate:"omitempty,max=128"`
	Description *string `json:"description" validate:"omitempty,max=512"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,max=255"`
}

// ConversationDTO 会话明细响应
type ConversationDTO struct {
	ConversationID uint64      `json:"conversation_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	IsGroup        bool        `json:"is_group"`
	AvatarURL      string      `json:"avatar_url"`
	CreatorID      uint64      `json:"creator_id"`
	LastMessage    *MessageDTO `json:"last_message,omitempty"`
	UnreadCount    int64       `json:"unread_count"`
	IsArchived     bool        `json:"is_archived"`
	IsPinned       bool        `json:"is_pinned"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      *time.Time  `json:"updated_at,omitempty"`
}

// ConversationListDTO 会话列表响应
type ConversationListDTO struct {
	Conversations []*ConversationDTO `json:"conversations"`
	Page          int                `json:"page"`
	Limit         int                `json:"limit"`
	Total         int64              `json:"total"`
	HasMore       bool               `json:"has_more"`
}

// ParticipantDTO 参与者明细响应
type ParticipantDTO struct {
	UserID    uint64    `json:"user_id"`
	Nickname  string    `json:"nickname"`
	AvatarURL string    `json:"avatar_url"`
	IsAdmin   bool      `json:"is_admin"`
	Presence  string    `json:"presence"`
	JoinedAt  time.Time `json:"joined_at"`
}

// AddParticipantDTO 添加参与者请求
type AddParticipantDTO struct {
	UserID uint64 `json:"user_id" binding:"required"`
}

// UpdateParticipantRoleDTO 变更参与者角色请求
type UpdateParticipantRoleDTO struct {
	IsAdmin bool `json:"is_admin"`
}

// TypingDTO 输入状态请求
type TypingDTO struct {
	Typing bool `json:"typing"`
}
