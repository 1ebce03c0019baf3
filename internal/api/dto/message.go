package dto

import "time"

// SendMessageDTO 发送消息请求
// 附件引用上传接口返回的暂存键
type SendMessageDTO struct {
	Content         string   `json:"content" validate:"omitempty,max=4096"`
	ParentMessageID *uint64  `json:"parent_message_id"`
	AttachmentKeys  []string `json:"attachment_keys" validate:"omitempty,max=9"`
}

// EditMessageDTO 编辑消息请求
type EditMessageDTO struct {
	Content string `json:"content" binding:"required" validate:"max=4096"`
}

// ForwardMessageDTO 转发消息请求
type ForwardMessageDTO struct {
	ConversationIDs []uint64 `json:"conversation_ids" binding:"required" validate:"min=1,max=10"`
}

// ReactionDTO 表情回应请求
type ReactionDTO struct {
	Reaction string `json:"reaction" binding:"required" validate:"max=32"`
}

// BulkMarkReadDTO 批量已读请求
type BulkMarkReadDTO struct {
	MessageIDs []uint64 `json:"message_ids" binding:"required" validate:"min=1,max=200"`
}

// DeliveryStatusDTO 投递状态回报请求
type DeliveryStatusDTO struct {
	Status string `json:"status" binding:"required" validate:"oneof=sent delivered failed"`
}

// AttachmentDTO 附件明细响应
type AttachmentDTO struct {
	ID           uint64 `json:"id"`
	FileType     string `json:"file_type"`
	URL          string `json:"url"`
	OriginalName string `json:"original_name"`
	FileSize     int64  `json:"file_size"`
	MimeType     string `json:"mime_type"`
}

// ReactionItemDTO 单条表情回应响应
type ReactionItemDTO struct {
	UserID    uint64    `json:"user_id"`
	Reaction  string    `json:"reaction"`
	CreatedAt time.Time `json:"created_at"`
}

// ReceiptItemDTO 单条已读回执响应
type ReceiptItemDTO struct {
	UserID uint64    `json:"user_id"`
	ReadAt time.Time `json:"read_at"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID              uint64             `json:"id"`
	ConversationID  uint64             `json:"conversation_id"`
	SenderID        uint64             `json:"sender_id"`
	Content         string             `json:"content"`
	ParentMessageID *uint64            `json:"parent_message_id,omitempty"`
	ForwardedFromID *uint64            `json:"forwarded_from_id,omitempty"`
	DeliveryStatus  string             `json:"delivery_status"`
	DeliveredAt     *time.Time         `json:"delivered_at,omitempty"`
	EditedAt        *time.Time         `json:"edited_at,omitempty"`
	IsSystem        bool               `json:"is_system"`
	IsDeleted       bool               `json:"is_deleted"`
	CreatedAt       time.Time          `json:"created_at"`
	Attachments     []*AttachmentDTO   `json:"attachments,omitempty"`
	Reactions       []*ReactionItemDTO `json:"reactions,omitempty"`
	Receipts        []*ReceiptItemDTO  `json:"receipts,omitempty"`
}

// MessagePageDTO 游标分页消息响应
type MessagePageDTO struct {
	Messages   []*MessageDTO `json:"messages"`
	NextCursor string        `json:"next_cursor,omitempty"`
	PrevCursor string        `json:"prev_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

// ThreadDTO 回复串响应
type ThreadDTO struct {
	Parent  *MessageDTO   `json:"parent"`
	Replies []*MessageDTO `json:"replies"`
	Page    int           `json:"page"`
	Limit   int           `json:"limit"`
	Total   int64         `json:"total"`
	HasMore bool          `json:"has_more"`
}

// ForwardResultDTO 单个目标会话的转发结果
type ForwardResultDTO struct {
	ConversationID uint64 `json:"conversation_id"`
	MessageID      uint64 `json:"message_id,omitempty"`
	Success        bool   `json:"success"`
	Reason         string `json:"reason,omitempty"`
}

// SearchResultDTO 消息搜索响应
type SearchResultDTO struct {
	Messages []*MessageDTO `json:"messages"`
	Page     int           `json:"page"`
	Limit    int           `json:"limit"`
	Total    int64         `json:"total"`
	HasMore  bool          `json:"has_more"`
}

// BulkMarkReadResultDTO 批量已读结果
type BulkMarkReadResultDTO struct {
	MarkedCount int64 `json:"marked_count"`
}
