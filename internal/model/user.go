package model

import "time"

// User 用户主表
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;type:varchar(64);not null" json:"username"`
	PasswordHash string    `gorm:"type:varchar(128);not null" json:"-"`
	Nickname     string    `gorm:"type:varchar(64)" json:"nickname"`
	AvatarURL    string    `gorm:"type:varchar(255)" json:"avatarUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// UserPresence 用户在线状态
type UserPresence struct {
	UserID       uint64    `gorm:"primaryKey" json:"userId"`
	Status       string    `gorm:"type:varchar(16);not null;default:'offline'" json:"status"` // online / offline / away
	LastActiveAt time.Time `gorm:"index" json:"lastActiveAt"`
}

func (UserPresence) TableName() string { return "user_presence" }
