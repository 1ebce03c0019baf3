package dto

import "time"

// NotificationDTO 通知明细响应
type NotificationDTO struct {
	ID        string                 `json:"id"`
	SenderID  uint64                 `json:"sender_id"`
	Type      int                    `json:"type"`
	TargetID  uint64                 `json:"target_id"`
	Content   string                 `json:"content"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
}

// NotificationListDTO 通知列表响应
type NotificationListDTO struct {
	Notifications []*NotificationDTO `json:"notifications"`
	UnreadCount   int64              `json:"unread_count"`
	Page          int                `json:"page"`
	Limit         int                `json:"limit"`
}
