package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 通知类型
const (
	NoticeTypeParticipantAdded   = int8(1)
	NoticeTypeParticipantRemoved = int8(2)
	NoticeTypeRoleChanged        = int8(3)
	NoticeTypeOwnershipTransfer  = int8(4)
	NoticeTypeConversationClosed = int8(5)
)

// NotificationModel 通知模型
type NotificationModel struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReceiverID uint64             `bson:"receiver_id" json:"receiverId"` // 通知接收者ID
	SenderID   uint64             `bson:"sender_id" json:"senderId"`     // 动作发起者ID (系统通知可为0)
	Type       int8               `bson:"type" json:"type"`
	TargetID   uint64             `bson:"target_id" json:"targetId"` // 关联的会话ID
	Content    string             `bson:"content" json:"content"`
	Payload    map[string]any     `bson:"payload" json:"payload"`
	IsRead     bool               `bson:"is_read" json:"isRead"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
}
