package service

import (
	"Mercato/internal/api/config"
	"Mercato/internal/api/dto"
	"Mercato/internal/model"
	"Mercato/internal/pkg/cache"
	"Mercato/internal/pkg/consts"
	"Mercato/internal/pkg/es"
	"Mercato/internal/pkg/kafka"
	"Mercato/internal/pkg/minio"
	"Mercato/internal/pkg/redis"
	"Mercato/internal/pkg/util"
	"Mercato/internal/realtime"
	"Mercato/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// 上下文窗口单侧条数
const contextWindowRadius = 25

type MessageService interface {
	SendMessage(ctx context.Context, senderID, convID uint64, req *dto.SendMessageDTO) (*dto.MessageDTO, error)
	GetMessage(ctx context.Context, userID, messageID uint64) (*dto.MessageDTO, error)
	GetMessages(ctx context.Context, userID, convID uint64, cursor string, before bool, limit int) (*dto.MessagePageDTO, error)
	GetThread(ctx context.Context, userID, convID, parentID uint64, page, limit int) (*dto.ThreadDTO, error)
	GetMessageContext(ctx context.Context, userID, messageID uint64, beforeCount, afterCount int) ([]*dto.MessageDTO, error)

	EditMessage(ctx context.Context, userID, messageID uint64, content string) (*dto.MessageDTO, error)
	DeleteMessage(ctx context.Context, userID, messageID uint64) error
	ForwardMessage(ctx context.Context, userID, messageID uint64, targetConvIDs []uint64) ([]*dto.ForwardResultDTO, error)

	React(ctx context.Context, userID, messageID uint64, reaction string) error
	RemoveReaction(ctx context.Context, userID, messageID uint64) error
	BulkMarkRead(ctx context.Context, userID uint64, messageIDs []uint64) (*dto.BulkMarkReadResultDTO, error)
	ReportDelivery(ctx context.Context, userID, messageID uint64, status string) error

	SearchMessages(ctx context.Context, userID, convID uint64, keyword string, page, limit int) (*dto.SearchResultDTO, error)
}

type messageServiceImpl struct {
	messageRepo   repository.MessageRepo
	convRepo      repository.ConversationRepo
	messageESRepo es.MessageRepo
	cache         cache.Cache
	publisher     realtime.Publisher
	producer      kafka.Producer
}

func NewMessageService(
	messageRepo repository.MessageRepo,
	convRepo repository.ConversationRepo,
	messageESRepo es.MessageRepo,
	c cache.Cache,
	publisher realtime.Publisher,
	producer kafka.Producer,
) MessageService {
	return &messageServiceImpl{
		messageRepo:   messageRepo,
		convRepo:      convRepo,
		messageESRepo: messageESRepo,
		cache:         c,
		publisher:     publisher,
		producer:      producer,
	}
}

// SendMessage 发送消息
// 限流在最前，事务内校验参与者资格；提交后做缓存失效、索引投递与实时推送
func (s *messageServiceImpl) SendMessage(ctx context.Context, senderID, convID uint64, req *dto.SendMessageDTO) (*dto.MessageDTO, error) {
	if req.Content == "" && len(req.AttachmentKeys) == 0 {
		return nil, ErrParamInvalid
	}

	if err := s.checkRateLimit(ctx, senderID, consts.RateLimitKindMessage, config.Cfg.IM.MessagesPerMinute); err != nil {
		return nil, err
	}

	if _, err := s.convRepo.GetConversation(ctx, convID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	if req.ParentMessageID != nil {
		parent, err := s.messageRepo.GetByID(ctx, *req.ParentMessageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrMessageNotFound
			}
			return nil, err
		}
		if parent.ConversationID != convID {
			return nil, ErrParamInvalid
		}
	}

	attachments := make([]*model.MessageAttachment, 0, len(req.AttachmentKeys))
	for _, key := range req.AttachmentKeys {
		staged, err := takeStagedAttachment(ctx, senderID, key)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, &model.MessageAttachment{
			FileType:     staged.FileType,
			FilePath:     staged.FilePath,
			OriginalName: staged.OriginalName,
			FileSize:     staged.FileSize,
			MimeType:     staged.MimeType,
		})
	}

	msg := &model.Message{
		ConversationID:  convID,
		SenderID:        senderID,
		Content:         req.Content,
		ParentMessageID: req.ParentMessageID,
		DeliveryStatus:  consts.DeliveryStatusSent,
	}

	if err := s.messageRepo.Send(ctx, msg, attachments); err != nil {
		if errors.Is(err, repository.ErrNotParticipant) {
			return nil, ForbiddenError
		}
		return nil, err
	}

	// 提交成功后解除附件暂存
	if len(req.AttachmentKeys) > 0 {
		if err := redis.HDel(ctx, consts.AttachmentTempKey, req.AttachmentKeys...); err != nil {
			log.WarnContext(ctx, "附件暂存清理失败", "messageID", msg.ID, "err", err)
		}
	}

	msg.Attachments = make([]model.MessageAttachment, 0, len(attachments))
	for _, a := range attachments {
		msg.Attachments = append(msg.Attachments, *a)
	}

	s.afterMessageWrite(ctx, msg)
	// 其他成员收到新消息广播，发送者收到落库确认
	s.broadcastExcept(ctx, convID, senderID, realtime.NewEvent(realtime.EventMessageNew, convID, toMessageDTO(msg)))
	s.publisher.PublishToUsers(ctx, []uint64{senderID}, realtime.NewEvent(realtime.EventMessageSent, convID, toMessageDTO(msg)))

	return toMessageDTO(msg), nil
}

func (s *messageServiceImpl) GetMessage(ctx context.Context, userID, messageID uint64) (*dto.MessageDTO, error) {
	msg, err := s.getAccessibleMessage(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	return toMessageDTO(msg), nil
}

// GetMessages 游标分页拉取会话消息，结果恒为时间正序
func (s *messageServiceImpl) GetMessages(ctx context.Context, userID, convID uint64, cursor string, before bool, limit int) (*dto.MessagePageDTO, error) {
	if err := s.requireParticipant(ctx, convID, userID); err != nil {
		return nil, err
	}

	_, limit = util.NormalizePage(1, limit, config.Cfg.IM.DefaultPageSize, config.Cfg.IM.MaxPageSize)

	anchorTime, anchorID, err := util.DecodeMessageCursor(cursor)
	if err != nil {
		return nil, ErrParamInvalid
	}
	// 无游标时默认取最新一页
	if cursor == "" {
		before = true
	}

	msgs, err := s.messageRepo.ListByCursor(ctx, convID, anchorTime, anchorID, before, limit)
	if err != nil {
		return nil, err
	}

	result := &dto.MessagePageDTO{
		Messages: toMessageDTOs(msgs),
		HasMore:  len(msgs) >= limit,
	}
	if len(msgs) > 0 {
		first, last := msgs[0], msgs[len(msgs)-1]
		result.PrevCursor = util.EncodeMessageCursor(first.CreatedAt, first.ID)
		result.NextCursor = util.EncodeMessageCursor(last.CreatedAt, last.ID)
	}
	return result, nil
}

// GetThread 拉取回复串
func (s *messageServiceImpl) GetThread(ctx context.Context, userID, convID, parentID uint64, page, limit int) (*dto.ThreadDTO, error) {
	if err := s.requireParticipant(ctx, convID, userID); err != nil {
		return nil, err
	}
	page, limit = util.NormalizePage(page, limit, config.Cfg.IM.DefaultPageSize, config.Cfg.IM.MaxPageSize)

	parent, err := s.messageRepo.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if parent.ConversationID != convID {
		return nil, ErrMessageNotFound
	}

	replies, total, err := s.messageRepo.ListThread(ctx, convID, parentID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	meta := util.NewPageMeta(page, limit, total)
	return &dto.ThreadDTO{
		Parent:  toMessageDTO(parent),
		Replies: toMessageDTOs(replies),
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasMore: meta.HasMore,
	}, nil
}

// GetMessageContext 拉取某条消息前后的上下文窗口，两侧条数由调用方指定
func (s *messageServiceImpl) GetMessageContext(ctx context.Context, userID, messageID uint64, beforeCount, afterCount int) ([]*dto.MessageDTO, error) {
	msg, err := s.getAccessibleMessage(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}

	beforeCount = clampWindowCount(beforeCount)
	afterCount = clampWindowCount(afterCount)

	msgs, err := s.messageRepo.ContextWindow(ctx, msg.ConversationID, msg.CreatedAt, msg.ID, beforeCount, afterCount)
	if err != nil {
		return nil, err
	}
	return toMessageDTOs(msgs), nil
}

// clampWindowCount 负值取默认窗口，上限与分页大小一致
func clampWindowCount(count int) int {
	if count < 0 {
		return contextWindowRadius
	}
	if count > config.Cfg.IM.MaxPageSize {
		return config.Cfg.IM.MaxPageSize
	}
	return count
}

// EditMessage 编辑消息，仅发送者可操作
// 先确认消息存在再做发送者限定更新，非发送者得到的是权限错误而非 404
func (s *messageServiceImpl) EditMessage(ctx context.Context, userID, messageID uint64, content string) (*dto.MessageDTO, error) {
	if content == "" {
		return nil, ErrParamInvalid
	}

	if _, err := s.messageRepo.GetByID(ctx, messageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	if err := s.messageRepo.Edit(ctx, messageID, userID, content); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ForbiddenError
		}
		return nil, err
	}

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	s.afterMessageWrite(ctx, msg)
	s.broadcast(ctx, msg.ConversationID, realtime.NewEvent(realtime.EventMessageEdited, msg.ConversationID, toMessageDTO(msg)))
	return toMessageDTO(msg), nil
}

// DeleteMessage 删除消息，仅发送者可操作；保留占位并同步清理搜索索引
func (s *messageServiceImpl) DeleteMessage(ctx context.Context, userID, messageID uint64) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	if err = s.messageRepo.SoftDelete(ctx, messageID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ForbiddenError
		}
		return err
	}

	s.invalidateConversationCaches(ctx, msg.ConversationID)
	s.producer.EmitMessageEvent(&kafka.MessageEvent{Op: kafka.OpDelete, MessageID: messageID})
	s.broadcast(ctx, msg.ConversationID, realtime.NewEvent(realtime.EventMessageDeleted, msg.ConversationID, map[string]any{
		"messageId": messageID,
	}))
	return nil
}

// ForwardMessage 将消息转发到多个会话，逐个处理并返回各自结果
func (s *messageServiceImpl) ForwardMessage(ctx context.Context, userID, messageID uint64, targetConvIDs []uint64) ([]*dto.ForwardResultDTO, error) {
	source, err := s.getAccessibleMessage(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}

	results := make([]*dto.ForwardResultDTO, 0, len(targetConvIDs))
	for _, targetID := range dedupeIDs(targetConvIDs) {
		result := &dto.ForwardResultDTO{ConversationID: targetID}

		forwarded := &model.Message{
			ConversationID:  targetID,
			SenderID:        userID,
			Content:         source.Content,
			ForwardedFromID: &source.ID,
			DeliveryStatus:  consts.DeliveryStatusSent,
		}
		attachments := make([]*model.MessageAttachment, 0, len(source.Attachments))
		for _, a := range source.Attachments {
			attachments = append(attachments, &model.MessageAttachment{
				FileType:     a.FileType,
				FilePath:     a.FilePath,
				OriginalName: a.OriginalName,
				FileSize:     a.FileSize,
				MimeType:     a.MimeType,
			})
		}

		if serr := s.messageRepo.Send(ctx, forwarded, attachments); serr != nil {
			if errors.Is(serr, repository.ErrNotParticipant) {
				result.Reason = ForbiddenError.Error()
			} else {
				log.ErrorContext(ctx, "转发消息失败", "target", targetID, "err", serr)
				result.Reason = UnExpectedError.Error()
			}
			results = append(results, result)
			continue
		}

		result.Success = true
		result.MessageID = forwarded.ID
		results = append(results, result)

		s.afterMessageWrite(ctx, forwarded)
		s.broadcast(ctx, targetID, realtime.NewEvent(realtime.EventMessageNew, targetID, toMessageDTO(forwarded)))
	}
	return results, nil
}

// React 表情回应，同一用户重复回应覆盖生效
func (s *messageServiceImpl) React(ctx context.Context, userID, messageID uint64, reaction string) error {
	if err := s.checkRateLimit(ctx, userID, consts.RateLimitKindReaction, config.Cfg.IM.ReactionsPerMinute); err != nil {
		return err
	}

	msg, err := s.getAccessibleMessage(ctx, userID, messageID)
	if err != nil {
		return err
	}

	err = s.messageRepo.UpsertReaction(ctx, &model.MessageReaction{
		MessageID: messageID,
		UserID:    userID,
		Reaction:  reaction,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	s.broadcast(ctx, msg.ConversationID, realtime.NewEvent(realtime.EventReactionUpdated, msg.ConversationID, map[string]any{
		"messageId": messageID,
		"userId":    userID,
		"reaction":  reaction,
	}))
	return nil
}

func (s *messageServiceImpl) RemoveReaction(ctx context.Context, userID, messageID uint64) error {
	msg, err := s.getAccessibleMessage(ctx, userID, messageID)
	if err != nil {
		return err
	}

	if err = s.messageRepo.DeleteReaction(ctx, messageID, userID); err != nil {
		return err
	}

	s.broadcast(ctx, msg.ConversationID, realtime.NewEvent(realtime.EventReactionUpdated, msg.ConversationID, map[string]any{
		"messageId": messageID,
		"userId":    userID,
		"reaction":  "",
	}))
	return nil
}

// BulkMarkRead 批量标记已读并推送回执事件
func (s *messageServiceImpl) BulkMarkRead(ctx context.Context, userID uint64, messageIDs []uint64) (*dto.BulkMarkReadResultDTO, error) {
	marked, convIDs, err := s.messageRepo.BulkMarkRead(ctx, userID, messageIDs)
	if err != nil {
		return nil, err
	}

	for _, convID := range convIDs {
		s.invalidateConversationCaches(ctx, convID)
		s.broadcast(ctx, convID, realtime.NewEvent(realtime.EventMessageRead, convID, &realtime.ReadPayload{
			UserID:     userID,
			MessageIDs: messageIDs,
		}))
	}
	return &dto.BulkMarkReadResultDTO{MarkedCount: marked}, nil
}

// ReportDelivery 接收方回报投递状态
func (s *messageServiceImpl) ReportDelivery(ctx context.Context, userID, messageID uint64, status string) error {
	// WS 上行不经过 DTO 校验，枚举检查必须落在服务层
	switch status {
	case consts.DeliveryStatusSent, consts.DeliveryStatusDelivered, consts.DeliveryStatusFailed:
	default:
		return ErrParamInvalid
	}

	msg, err := s.getAccessibleMessage(ctx, userID, messageID)
	if err != nil {
		return err
	}
	// 发送者不回报自己消息的投递状态
	if msg.SenderID == userID {
		return ErrParamInvalid
	}

	if err = s.messageRepo.UpdateDeliveryStatus(ctx, messageID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	s.publisher.PublishToUsers(ctx, []uint64{msg.SenderID}, realtime.NewEvent(realtime.EventMessageDelivery, msg.ConversationID, &realtime.DeliveryPayload{
		MessageID: messageID,
		Status:    status,
	}))
	return nil
}

// SearchMessages 会话内全文检索，ES 故障时降级为数据库模糊匹配
func (s *messageServiceImpl) SearchMessages(ctx context.Context, userID, convID uint64, keyword string, page, limit int) (*dto.SearchResultDTO, error) {
	if keyword == "" {
		return nil, ErrParamInvalid
	}
	if err := s.requireParticipant(ctx, convID, userID); err != nil {
		return nil, err
	}
	page, limit = util.NormalizePage(page, limit, config.Cfg.IM.DefaultPageSize, config.Cfg.IM.MaxPageSize)

	ids, total, err := s.messageESRepo.SearchInConversation(ctx, convID, keyword, (page-1)*limit, limit)
	if err != nil {
		log.WarnContext(ctx, "ES 检索失败，降级为数据库匹配", "convID", convID, "err", err)
		return s.searchFallback(ctx, convID, keyword, page, limit)
	}

	msgs, err := s.messageRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	// 保持 ES 给出的相关度顺序
	byID := make(map[uint64]*model.Message, len(msgs))
	for _, m := range msgs {
		byID[m.ID] = m
	}
	ordered := make([]*model.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
		}
	}

	meta := util.NewPageMeta(page, limit, total)
	return &dto.SearchResultDTO{
		Messages: toMessageDTOs(ordered),
		Page:     page,
		Limit:    limit,
		Total:    total,
		HasMore:  meta.HasMore,
	}, nil
}

func (s *messageServiceImpl) searchFallback(ctx context.Context, convID uint64, keyword string, page, limit int) (*dto.SearchResultDTO, error) {
	msgs, total, err := s.messageRepo.SearchLike(ctx, convID, keyword, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	meta := util.NewPageMeta(page, limit, total)
	return &dto.SearchResultDTO{
		Messages: toMessageDTOs(msgs),
		Page:     page,
		Limit:    limit,
		Total:    total,
		HasMore:  meta.HasMore,
	}, nil
}

// checkRateLimit 滑动窗口限流，窗口固定一分钟
func (s *messageServiceImpl) checkRateLimit(ctx context.Context, userID uint64, kind string, limit int) error {
	key := fmt.Sprintf("%s%s:%d", consts.IMRateLimitKey, kind, userID)
	allowed, err := redis.AllowInWindow(ctx, key, limit, time.Minute)
	if err != nil {
		// 限流器故障时放行，不阻断业务
		log.ErrorContext(ctx, "限流器异常", "key", key, "err", err)
		return nil
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

// getAccessibleMessage 获取消息并校验调用者的会话成员资格
func (s *messageServiceImpl) getAccessibleMessage(ctx context.Context, userID, messageID uint64) (*model.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if err = s.requireParticipant(ctx, msg.ConversationID, userID); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *messageServiceImpl) requireParticipant(ctx context.Context, convID, userID uint64) error {
	ok, err := s.convRepo.IsParticipant(ctx, convID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ForbiddenError
	}
	return nil
}

// afterMessageWrite 消息写入提交后的旁路处理：缓存失效与索引投递
func (s *messageServiceImpl) afterMessageWrite(ctx context.Context, msg *model.Message) {
	s.invalidateConversationCaches(ctx, msg.ConversationID)
	s.producer.EmitMessageEvent(&kafka.MessageEvent{
		Op:        kafka.OpIndex,
		MessageID: msg.ID,
		Document: &es.MessageES{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			SenderID:       msg.SenderID,
			Content:        msg.Content,
			CreatedAt:      msg.CreatedAt,
		},
	})
}

func (s *messageServiceImpl) invalidateConversationCaches(ctx context.Context, convID uint64) {
	key := consts.IMConversationKey + strconv.FormatUint(convID, 10)
	if err := s.cache.Del(ctx, key); err != nil {
		log.WarnContext(ctx, "会话缓存失效失败", "convID", convID, "err", err)
	}

	participants, err := s.convRepo.ListParticipants(ctx, convID)
	if err != nil {
		log.WarnContext(ctx, "获取会话参与者失败", "convID", convID, "err", err)
		return
	}
	for _, p := range participants {
		pattern := fmt.Sprintf("%s%d:*", consts.IMConversationListKey, p.UserID)
		if err = s.cache.InvalidatePattern(ctx, pattern); err != nil {
			log.WarnContext(ctx, "会话列表缓存失效失败", "userID", p.UserID, "err", err)
		}
	}
}

// broadcast 向会话全体参与者推送事件
func (s *messageServiceImpl) broadcast(ctx context.Context, convID uint64, event *realtime.Event) {
	s.broadcastExcept(ctx, convID, 0, event)
}

// broadcastExcept 向会话全体成员广播，excludeID 非零时跳过该成员
func (s *messageServiceImpl) broadcastExcept(ctx context.Context, convID, excludeID uint64, event *realtime.Event) {
	participants, err := s.convRepo.ListParticipants(ctx, convID)
	if err != nil {
		log.ErrorContext(ctx, "获取会话参与者失败", "convID", convID, "err", err)
		return
	}
	ids := make([]uint64, 0, len(participants))
	for _, p := range participants {
		if p.UserID == excludeID {
			continue
		}
		ids = append(ids, p.UserID)
	}
	s.publisher.PublishToUsers(ctx, ids, event)
}

func toMessageDTO(msg *model.Message) *dto.MessageDTO {
	result := &dto.MessageDTO{
		ID:              msg.ID,
		ConversationID:  msg.ConversationID,
		SenderID:        msg.SenderID,
		Content:         msg.Content,
		ParentMessageID: msg.ParentMessageID,
		ForwardedFromID: msg.ForwardedFromID,
		DeliveryStatus:  msg.DeliveryStatus,
		DeliveredAt:     msg.DeliveredAt,
		EditedAt:        msg.EditedAt,
		IsSystem:        msg.IsSystem == 1,
		IsDeleted:       msg.DeletedAt != nil,
		CreatedAt:       msg.CreatedAt,
	}

	for _, a := range msg.Attachments {
		result.Attachments = append(result.Attachments, &dto.AttachmentDTO{
			ID:           a.ID,
			FileType:     a.FileType,
			URL:          minio.GetPublicURL(a.FilePath),
			OriginalName: a.OriginalName,
			FileSize:     a.FileSize,
			MimeType:     a.MimeType,
		})
	}
	for _, r := range msg.Reactions {
		result.Reactions = append(result.Reactions, &dto.ReactionItemDTO{
			UserID:    r.UserID,
			Reaction:  r.Reaction,
			CreatedAt: r.CreatedAt,
		})
	}
	for _, r := range msg.Receipts {
		result.Receipts = append(result.Receipts, &dto.ReceiptItemDTO{
			UserID: r.UserID,
			ReadAt: r.ReadAt,
		})
	}
	return result
}

func toMessageDTOs(msgs []*model.Message) []*dto.MessageDTO {
	result := make([]*dto.MessageDTO, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, toMessageDTO(msg))
	}
	return result
}
