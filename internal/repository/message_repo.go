package repository

import (
	"Mercato/internal/model"
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepo interface {
	Send(ctx context.Context, msg *model.Message, attachments []*model.MessageAttachment) error
	GetByID(ctx context.Context, messageID uint64) (*model.Message, error)
	GetByIDs(ctx context.Context, messageIDs []uint64) ([]*model.Message, error)
	ListByCursor(ctx context.Context, convID uint64, anchorTime time.Time, anchorID uint64, before bool, limit int) ([]*model.Message, error)
	ListThread(ctx context.Context, convID, parentID uint64, limit, offset int) ([]*model.Message, int64, error)
	ContextWindow(ctx context.Context, convID uint64, anchorTime time.Time, anchorID uint64, beforeCount, afterCount int) ([]*model.Message, error)

	Edit(ctx context.Context, messageID, senderID uint64, content string) error
	SoftDelete(ctx context.Context, messageID, senderID uint64) error
	UpdateDeliveryStatus(ctx context.Context, messageID uint64, status string) error

	BulkMarkRead(ctx context.Context, userID uint64, messageIDs []uint64) (int64, []uint64, error)
	UpsertReaction(ctx context.Context, reaction *model.MessageReaction) error
	DeleteReaction(ctx context.Context, messageID, userID uint64) error
	UpsertReceipt(ctx context.Context, receipt *model.MessageReadReceipt) error

	SearchLike(ctx context.Context, convID uint64, keyword string, limit, offset int) ([]*model.Message, int64, error)
	CountAfter(ctx context.Context, convID uint64, after time.Time) (int64, error)
}

type messageRepoImpl struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) MessageRepo {
	return &messageRepoImpl{db: db}
}

// Send 事务内校验发送者资格、写入消息与附件并推进会话指针
func (s *messageRepoImpl) Send(ctx context.Context, msg *model.Message, attachments []*model.MessageAttachment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", msg.ConversationID, msg.SenderID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNotParticipant
		}

		if err = tx.Create(msg).Error; err != nil {
			return err
		}

		for _, a := range attachments {
			a.MessageID = msg.ID
			if err = tx.Create(a).Error; err != nil {
				return err
			}
		}

		return touchLastMessage(tx, msg.ConversationID, msg.ID)
	})
}

// GetByID 获取未删除的消息及其附件、回应与回执
func (s *messageRepoImpl) GetByID(ctx context.Context, messageID uint64) (*model.Message, error) {
	var msg model.Message
	err := s.db.WithContext(ctx).
		Preload("Attachments").
		Preload("Reactions").
		Preload("Receipts").
		Where("deleted_at IS NULL").
		First(&msg, messageID).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *messageRepoImpl) GetByIDs(ctx context.Context, messageIDs []uint64) ([]*model.Message, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var msgs []*model.Message
	err := s.db.WithContext(ctx).
		Where("id IN ? AND deleted_at IS NULL", messageIDs).
		Find(&msgs).Error
	return msgs, err
}

// ListByCursor 基于 (created_at, id) 复合游标分页
// before 为真时取锚点之前的消息（倒序查询后反转为正序返回），否则取锚点之后的消息
// 零值锚点表示从最新一端开始
func (s *messageRepoImpl) ListByCursor(ctx context.Context, convID uint64, anchorTime time.Time, anchorID uint64, before bool, limit int) ([]*model.Message, error) {
	query := s.db.WithContext(ctx).
		Preload("Attachments").
		Preload("Reactions").
		Preload("Receipts").
		Where("conversation_id = ? AND deleted_at IS NULL", convID)

	hasAnchor := !anchorTime.IsZero()
	var msgs []*model.Message
	if before {
		if hasAnchor {
			query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", anchorTime, anchorTime, anchorID)
		}
		err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&msgs).Error
		if err != nil {
			return nil, err
		}
		// 反转为按时间正序返回
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
		return msgs, nil
	}

	if hasAnchor {
		query = query.Where("(created_at > ?) OR (created_at = ? AND id > ?)", anchorTime, anchorTime, anchorID)
	}
	err := query.Order("created_at ASC, id ASC").Limit(limit).Find(&msgs).Error
	return msgs, err
}

// ListThread 分页获取某条消息的回复串
func (s *messageRepoImpl) ListThread(ctx context.Context, convID, parentID uint64, limit, offset int) ([]*model.Message, int64, error) {
	base := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND parent_message_id = ? AND deleted_at IS NULL", convID, parentID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var msgs []*model.Message
	err := base.Session(&gorm.Session{}).
		Preload("Attachments").
		Preload("Reactions").
		Order("created_at ASC, id ASC").
		Limit(limit).Offset(offset).
		Find(&msgs).Error
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// ContextWindow 取锚点消息之前 beforeCount 条与之后 afterCount 条，含锚点本身，按时间正序返回
func (s *messageRepoImpl) ContextWindow(ctx context.Context, convID uint64, anchorTime time.Time, anchorID uint64, beforeCount, afterCount int) ([]*model.Message, error) {
	var older []*model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ? AND deleted_at IS NULL", convID).
		Where("(created_at < ?) OR (created_at = ? AND id < ?)", anchorTime, anchorTime, anchorID).
		Order("created_at DESC, id DESC").
		Limit(beforeCount).
		Find(&older).Error
	if err != nil {
		return nil, err
	}

	var anchorAndNewer []*model.Message
	err = s.db.WithContext(ctx).
		Preload("Attachments").
		Where("conversation_id = ? AND deleted_at IS NULL", convID).
		Where("(created_at > ?) OR (created_at = ? AND id >= ?)", anchorTime, anchorTime, anchorID).
		Order("created_at ASC, id ASC").
		Limit(afterCount + 1).
		Find(&anchorAndNewer).Error
	if err != nil {
		return nil, err
	}

	result := make([]*model.Message, 0, len(older)+len(anchorAndNewer))
	for i := len(older) - 1; i >= 0; i-- {
		result = append(result, older[i])
	}
	result = append(result, anchorAndNewer...)
	return result, nil
}

// Edit 仅允许发送者编辑自己未删除的消息
func (s *messageRepoImpl) Edit(ctx context.Context, messageID, senderID uint64, content string) error {
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND sender_id = ? AND deleted_at IS NULL", messageID, senderID).
		Updates(map[string]interface{}{
			"content":   content,
			"edited_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDelete 仅允许发送者删除自己的消息，内容置空保留占位
func (s *messageRepoImpl) SoftDelete(ctx context.Context, messageID, senderID uint64) error {
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND sender_id = ? AND deleted_at IS NULL", messageID, senderID).
		Updates(map[string]interface{}{
			"content":    "",
			"deleted_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateDeliveryStatus 更新投递状态；状态回退到非 delivered 时清空投递时间
func (s *messageRepoImpl) UpdateDeliveryStatus(ctx context.Context, messageID uint64, status string) error {
	updates := map[string]interface{}{"delivery_status": status}
	if status == "delivered" {
		updates["delivered_at"] = time.Now()
	} else {
		updates["delivered_at"] = nil
	}
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND deleted_at IS NULL", messageID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// BulkMarkRead 事务内批量标记已读
// 仅处理调用者所在会话中由他人发送的消息，越权 ID 静默跳过
// 返回实际标记数与受影响的会话 ID 列表
func (s *messageRepoImpl) BulkMarkRead(ctx context.Context, userID uint64, messageIDs []uint64) (int64, []uint64, error) {
	if len(messageIDs) == 0 {
		return 0, nil, nil
	}

	var marked int64
	var convIDs []uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var eligible []*model.Message
		err := tx.
			Joins("JOIN conversation_participants p ON p.conversation_id = messages.conversation_id AND p.user_id = ?", userID).
			Where("messages.id IN ? AND messages.sender_id <> ? AND messages.deleted_at IS NULL", messageIDs, userID).
			Find(&eligible).Error
		if err != nil {
			return err
		}
		if len(eligible) == 0 {
			return nil
		}

		now := time.Now()
		ids := make([]uint64, 0, len(eligible))
		seen := make(map[uint64]struct{})
		for _, m := range eligible {
			ids = append(ids, m.ID)
			if _, ok := seen[m.ConversationID]; !ok {
				seen[m.ConversationID] = struct{}{}
				convIDs = append(convIDs, m.ConversationID)
			}
		}

		res := tx.Model(&model.Message{}).
			Where("id IN ? AND is_read = 0", ids).
			Update("is_read", 1)
		if res.Error != nil {
			return res.Error
		}
		marked = res.RowsAffected

		for _, id := range ids {
			receipt := &model.MessageReadReceipt{MessageID: id, UserID: userID, ReadAt: now}
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
				DoNothing: true,
			}).Create(receipt).Error
			if err != nil {
				return err
			}
		}

		// 推进各会话的已读水位
		return tx.Model(&model.ConversationParticipant{}).
			Where("conversation_id IN ? AND user_id = ?", convIDs, userID).
			Update("last_read_at", now).Error
	})
	if err != nil {
		return 0, nil, err
	}
	return marked, convIDs, nil
}

// UpsertReaction 同一用户对同一消息的回应以覆盖方式生效
func (s *messageRepoImpl) UpsertReaction(ctx context.Context, reaction *model.MessageReaction) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"reaction", "created_at"}),
	}).Create(reaction).Error
}

func (s *messageRepoImpl) DeleteReaction(ctx context.Context, messageID, userID uint64) error {
	return s.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Delete(&model.MessageReaction{}).Error
}

// UpsertReceipt 回执时间只前进不回退
func (s *messageRepoImpl) UpsertReceipt(ctx context.Context, receipt *model.MessageReadReceipt) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"read_at": gorm.Expr("GREATEST(read_at, VALUES(read_at))"),
		}),
	}).Create(receipt).Error
}

// likeEscaper 关键词中的 LIKE 通配符按字面匹配
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchLike 搜索降级路径：ES 不可用时在会话内按内容模糊匹配
func (s *messageRepoImpl) SearchLike(ctx context.Context, convID uint64, keyword string, limit, offset int) ([]*model.Message, int64, error) {
	pattern := "%" + likeEscaper.Replace(keyword) + "%"
	base := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND deleted_at IS NULL AND content LIKE ?", convID, pattern)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var msgs []*model.Message
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&msgs).Error
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (s *messageRepoImpl) CountAfter(ctx context.Context, convID uint64, after time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND created_at > ? AND deleted_at IS NULL", convID, after).
		Count(&count).Error
	return count, err
}
