package model

import "time"

// Message 消息主表
// 排序契约：(created_at, id) 为会话内全序，游标分页依赖该契约
type Message struct {
	ID              uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID  uint64     `gorm:"not null;index:idx_conv_created,priority:1" json:"conversationId"`
	SenderID        uint64     `gorm:"not null;index" json:"senderId"`
	Content         string     `gorm:"type:text" json:"content"`
	ParentMessageID *uint64    `json:"parentMessageId"`                                                // 回复引用
	ForwardedFromID *uint64    `json:"forwardedFromId"`                                                // 转发来源
	DeliveryStatus  string     `gorm:"type:varchar(16);not null;default:'sent'" json:"deliveryStatus"` // sent / delivered / failed
	DeliveredAt     *time.Time `json:"deliveredAt"`
	EditedAt        *time.Time `json:"editedAt"`
	DeletedAt       *time.Time `gorm:"index" json:"deletedAt"` // 软删除标记
	IsSystem        int8       `gorm:"not null;default:0" json:"isSystem"`
	IsRead          int8       `gorm:"not null;default:0" json:"isRead"`
	CreatedAt       time.Time  `gorm:"index:idx_conv_created,priority:2" json:"createdAt"`

	Attachments []MessageAttachment  `gorm:"foreignKey:MessageID" json:"attachments"`
	Reactions   []MessageReaction    `gorm:"foreignKey:MessageID" json:"reactions"`
	Receipts    []MessageReadReceipt `gorm:"foreignKey:MessageID" json:"receipts"`
}

func (Message) TableName() string { return "messages" }

// MessageAttachment 消息附件表
type MessageAttachment struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID    uint64    `gorm:"not null;index" json:"messageId"`
	FileType     string    `gorm:"type:varchar(16);not null" json:"fileType"` // image / document / audio / video
	FilePath     string    `gorm:"type:varchar(255);not null" json:"filePath"`
	OriginalName string    `gorm:"type:varchar(255)" json:"originalName"`
	FileSize     int64     `gorm:"not null;default:0" json:"fileSize"`
	MimeType     string    `gorm:"type:varchar(128)" json:"mimeType"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (MessageAttachment) TableName() string { return "message_attachments" }

// MessageReaction 消息表情回应表
// (message_id, user_id) 唯一，重复回应以覆盖方式生效
type MessageReaction struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID uint64    `gorm:"uniqueIndex:idx_msg_user_reaction" json:"messageId"`
	UserID    uint64    `gorm:"uniqueIndex:idx_msg_user_reaction" json:"userId"`
	Reaction  string    `gorm:"type:varchar(32);not null" json:"reaction"`
	CreatedAt time.Time `json:"createdAt"`
}

func (MessageReaction) TableName() string { return "message_reactions" }

// MessageReadReceipt 消息已读回执表，(message_id, user_id) 唯一
type MessageReadReceipt struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID uint64    `gorm:"uniqueIndex:idx_msg_user_receipt" json:"messageId"`
	UserID    uint64    `gorm:"uniqueIndex:idx_msg_user_receipt" json:"userId"`
	ReadAt    time.Time `gorm:"not null" json:"readAt"`
}

func (MessageReadReceipt) TableName() string { return "message_read_receipts" }
