package repository

import (
	"Mercato/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type ConversationRepo interface {
	CreateConversation(ctx context.Context, conv *model.Conversation, metadata *model.ConversationMetadata,
		participants []*model.ConversationParticipant, seedMessage *model.Message) error
	GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error)
	SoftDelete(ctx context.Context, convID uint64) error
	UpdateMetadata(ctx context.Context, convID uint64, updates map[string]interface{}) error

	IsParticipant(ctx context.Context, convID uint64, userID uint64) (bool, error)
	GetParticipant(ctx context.Context, convID uint64, userID uint64) (*model.ConversationParticipant, error)
	ListParticipants(ctx context.Context, convID uint64) ([]*model.ConversationParticipant, error)
	CountParticipants(ctx context.Context, convID uint64) (int64, error)

	ListForUser(ctx context.Context, userID uint64, limit, offset int) ([]*model.ConversationParticipant, int64, error)
	GetContactIDs(ctx context.Context, userID uint64) ([]uint64, error)

	SetArchived(ctx context.Context, convID, userID uint64, archived bool) error
	SetPinned(ctx context.Context, convID, userID uint64, pinned bool) error
	MarkRead(ctx context.Context, convID, userID uint64) error

	AddParticipant(ctx context.Context, participant *model.ConversationParticipant, sysMessage *model.Message) error
	RemoveParticipant(ctx context.Context, convID, userID uint64, sysMessage *model.Message) error
	UpdateParticipantRole(ctx context.Context, convID, userID uint64, isAdmin bool, sysMessage *model.Message) error
	Leave(ctx context.Context, convID, userID uint64, successorID *uint64, sysMessage *model.Message, closeConversation bool) error
}

type conversationRepoImpl struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepoImpl{db: db}
}

// CreateConversation 开启事务创建会话、元数据、初始参与者与可选的首条消息
func (s *conversationRepoImpl) CreateConversation(ctx context.Context, conv *model.Conversation, metadata *model.ConversationMetadata,
	participants []*model.ConversationParticipant, seedMessage *model.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}

		metadata.ConversationID = conv.ID
		if err := tx.Create(metadata).Error; err != nil {
			return err
		}

		now := time.Now()
		for _, p := range participants {
			p.ConversationID = conv.ID
			p.JoinedAt = now
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}

		if seedMessage != nil {
			seedMessage.ConversationID = conv.ID
			if err := tx.Create(seedMessage).Error; err != nil {
				return err
			}
			return touchLastMessage(tx, conv.ID, seedMessage.ID)
		}
		return nil
	})
}

// GetConversation 根据会话 ID 获取未删除的会话及元数据
func (s *conversationRepoImpl) GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Preload("Metadata").
		Where("deleted_at IS NULL").
		First(&conv, convID).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *conversationRepoImpl) SoftDelete(ctx context.Context, convID uint64) error {
	return s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ? AND deleted_at IS NULL", convID).
		Update("deleted_at", time.Now()).Error
}

func (s *conversationRepoImpl) UpdateMetadata(ctx context.Context, convID uint64, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(&model.ConversationMetadata{}).
		Where("conversation_id = ?", convID).
		Updates(updates).Error
}

// IsParticipant 检查用户是否是会话参与者
func (s *conversationRepoImpl) IsParticipant(ctx context.Context, convID uint64, userID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *conversationRepoImpl) GetParticipant(ctx context.Context, convID uint64, userID uint64) (*model.ConversationParticipant, error) {
	var p model.ConversationParticipant
	err := s.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipants 按加入时间升序返回会话全部参与者
func (s *conversationRepoImpl) ListParticipants(ctx context.Context, convID uint64) ([]*model.ConversationParticipant, error) {
	var participants []*model.ConversationParticipant
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("joined_at ASC, id ASC").
		Find(&participants).Error
	return participants, err
}

func (s *conversationRepoImpl) CountParticipants(ctx context.Context, convID uint64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ConversationParticipant{}).
		Where("conversation_id = ?", convID).
		Count(&count).Error
	return count, err
}

// ListForUser 联表分页查询用户会话列表
// 未读数为他人发送且未读的消息计数；排除软删除会话与用户已归档的会话
// 排序：置顶优先，其后按 coalesce(updated_at, created_at) 倒序
func (s *conversationRepoImpl) ListForUser(ctx context.Context, userID uint64, limit, offset int) ([]*model.ConversationParticipant, int64, error) {
	base := s.db.WithContext(ctx).Table("conversation_participants p").
		Joins("JOIN conversations c ON p.conversation_id = c.id").
		Where("p.user_id = ? AND p.is_archived = 0 AND c.deleted_at IS NULL", userID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*model.ConversationParticipant
	// 使用 Conversation__ 别名配合 GORM 的嵌套填充特性
	err := base.Session(&gorm.Session{}).
		Select("p.*, " +
			"c.id AS `Conversation__id`, " +
			"c.last_message_id AS `Conversation__last_message_id`, " +
			"c.created_at AS `Conversation__created_at`, " +
			"c.updated_at AS `Conversation__updated_at`, " +
			"(SELECT SUM(CASE WHEN m.sender_id <> p.user_id AND m.is_read = 0 AND m.deleted_at IS NULL THEN 1 ELSE 0 END) " +
			" FROM messages m WHERE m.conversation_id = p.conversation_id) AS unread_count").
		Order("p.is_pinned DESC, COALESCE(c.updated_at, c.created_at) DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// GetContactIDs 返回与用户同会话的全部其他用户 ID，用于状态广播
func (s *conversationRepoImpl) GetContactIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := s.db.WithContext(ctx).Table("conversation_participants p").
		Joins("JOIN conversation_participants me ON me.conversation_id = p.conversation_id").
		Where("me.user_id = ? AND p.user_id <> ?", userID, userID).
		Distinct("p.user_id").
		Pluck("p.user_id", &ids).Error
	return ids, err
}

func (s *conversationRepoImpl) SetArchived(ctx context.Context, convID, userID uint64, archived bool) error {
	value := int8(0)
	if archived {
		value = 1
	}
	return s.db.WithContext(ctx).Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Update("is_archived", value).Error
}

func (s *conversationRepoImpl) SetPinned(ctx context.Context, convID, userID uint64, pinned bool) error {
	updates := map[string]interface{}{"is_pinned": 0, "pinned_at": nil}
	if pinned {
		updates["is_pinned"] = 1
		updates["pinned_at"] = time.Now()
	}
	return s.db.WithContext(ctx).Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Updates(updates).Error
}

// MarkRead 将参与者的已读时间推进到当前时刻，幂等
func (s *conversationRepoImpl) MarkRead(ctx context.Context, convID, userID uint64) error {
	return s.db.WithContext(ctx).Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Update("last_read_at", time.Now()).Error
}

// AddParticipant 事务内新增参与者并落一条系统消息
func (s *conversationRepoImpl) AddParticipant(ctx context.Context, participant *model.ConversationParticipant, sysMessage *model.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		participant.JoinedAt = time.Now()
		if err := tx.Create(participant).Error; err != nil {
			return err
		}
		return insertSystemMessage(tx, sysMessage)
	})
}

// RemoveParticipant 事务内移除参与者并落一条系统消息
func (s *conversationRepoImpl) RemoveParticipant(ctx context.Context, convID, userID uint64, sysMessage *model.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("conversation_id = ? AND user_id = ?", convID, userID).
			Delete(&model.ConversationParticipant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return insertSystemMessage(tx, sysMessage)
	})
}

// UpdateParticipantRole 事务内变更管理员角色并落一条系统消息
func (s *conversationRepoImpl) UpdateParticipantRole(ctx context.Context, convID, userID uint64, isAdmin bool, sysMessage *model.Message) error {
	value := int8(0)
	if isAdmin {
		value = 1
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", convID, userID).
			Update("is_admin", value)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return insertSystemMessage(tx, sysMessage)
	})
}

// Leave 事务内处理退出会话：移除本人、必要时提升继任者、必要时关闭会话
func (s *conversationRepoImpl) Leave(ctx context.Context, convID, userID uint64, successorID *uint64, sysMessage *model.Message, closeConversation bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("conversation_id = ? AND user_id = ?", convID, userID).
			Delete(&model.ConversationParticipant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if successorID != nil {
			err := tx.Model(&model.ConversationParticipant{}).
				Where("conversation_id = ? AND user_id = ?", convID, *successorID).
				Update("is_admin", 1).Error
			if err != nil {
				return err
			}
			// 所有权随管理员身份一并转移
			err = tx.Model(&model.ConversationMetadata{}).
				Where("conversation_id = ? AND creator_id = ?", convID, userID).
				Update("creator_id", *successorID).Error
			if err != nil {
				return err
			}
		}

		if closeConversation {
			return tx.Model(&model.Conversation{}).
				Where("id = ? AND deleted_at IS NULL", convID).
				Update("deleted_at", time.Now()).Error
		}

		return insertSystemMessage(tx, sysMessage)
	})
}

// insertSystemMessage 在当前事务内写入系统消息并推进会话指针
func insertSystemMessage(tx *gorm.DB, sysMessage *model.Message) error {
	if sysMessage == nil {
		return nil
	}
	sysMessage.IsSystem = 1
	if err := tx.Create(sysMessage).Error; err != nil {
		return err
	}
	return touchLastMessage(tx, sysMessage.ConversationID, sysMessage.ID)
}

// touchLastMessage 推进会话的最后消息指针与更新时间
func touchLastMessage(tx *gorm.DB, convID, messageID uint64) error {
	return tx.Model(&model.Conversation{}).
		Where("id = ?", convID).
		Updates(map[string]interface{}{
			"last_message_id": messageID,
			"updated_at":      time.Now(),
		}).Error
}
