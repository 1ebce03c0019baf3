package model

import "time"

// Conversation 会话主表
type Conversation struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	LastMessageID *uint64    `gorm:"index" json:"lastMessageId"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"index" json:"updatedAt"`
	DeletedAt     *time.Time `gorm:"index" json:"deletedAt"` // 软删除标记

	Metadata ConversationMetadata `gorm:"foreignKey:ConversationID;references:ID" json:"metadata"`
}

func (Conversation) TableName() string { return "conversations" }

// ConversationMetadata 会话元数据，与会话 1:1，随会话事务内创建
type ConversationMetadata struct {
	ConversationID uint64 `gorm:"primaryKey" json:"conversationId"`
	Title          string `gorm:"type:varchar(128)" json:"title"`
	Description    string `gorm:"type:varchar(512)" json:"description"`
	IsGroup        int8   `gorm:"not null;default:0" json:"isGroup"`
	AvatarURL      string `gorm:"type:varchar(255)" json:"avatarUrl"`
	CreatorID      uint64 `gorm:"not null;index" json:"creatorId"`
}

func (ConversationMetadata) TableName() string { return "conversation_metadata" }

// ConversationParticipant 会话参与者表
// 无参与者记录即无访问权限，这是消息模块的鉴权边界
type ConversationParticipant struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint64     `gorm:"uniqueIndex:idx_conv_user" json:"conversationId"`
	UserID         uint64     `gorm:"uniqueIndex:idx_conv_user;index" json:"userId"`
	IsAdmin        int8       `gorm:"not null;default:0" json:"isAdmin"`
	IsArchived     int8       `gorm:"not null;default:0" json:"isArchived"`
	IsPinned       int8       `gorm:"not null;default:0" json:"isPinned"`
	PinnedAt       *time.Time `json:"pinnedAt"`
	LastReadAt     *time.Time `json:"lastReadAt"`
	JoinedAt       time.Time  `json:"joinedAt"`

	Conversation Conversation `gorm:"foreignKey:ConversationID;references:ID" json:"conversation"`

	// 虚拟字段：仅读不写，存储 SQL 计算结果
	UnreadCount int64 `gorm:"->" json:"unreadCount"`
}

func (ConversationParticipant) TableName() string { return "conversation_participants" }
