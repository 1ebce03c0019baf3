package service

import (
	"Mercato/internal/api/config"
	"Mercato/internal/api/dto"
	"Mercato/internal/model"
	"Mercato/internal/pkg/cache"
	"Mercato/internal/pkg/consts"
	"Mercato/internal/pkg/minio"
	"Mercato/internal/pkg/mongo"
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

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

type ConversationService interface {
	CreateConversation(ctx context.Context, creatorID uint64, req *dto.CreateConversationDTO) (*dto.ConversationDTO, error)
	GetConversation(ctx context.Context, userID, convID uint64) (*dto.ConversationDTO, error)
	ListConversations(ctx context.Context, userID uint64, page, limit int) (*dto.ConversationListDTO, error)
	UpdateMetadata(ctx context.Context, userID, convID uint64, req *dto.UpdateConversationDTO) error
	DeleteConversation(ctx context.Context, userID, convID uint64) error

	SetArchived(ctx context.Context, userID, convID uint64, archived bool) error
	SetPinned(ctx context.Context, userID, convID uint64, pinned bool) error
	MarkConversationRead(ctx context.Context, userID, convID uint64) error

	ListParticipants(ctx context.Context, userID, convID uint64) ([]*dto.ParticipantDTO, error)
	AddParticipant(ctx context.Context, operatorID, convID, targetID uint64) error
	RemoveParticipant(ctx context.Context, operatorID, convID, targetID uint64) error
	UpdateParticipantRole(ctx context.Context, operatorID, convID, targetID uint64, isAdmin bool) error
	LeaveConversation(ctx context.Context, userID, convID uint64) error

	SetTyping(ctx context.Context, userID, convID uint64, typing bool) error
	GetTypingUsers(ctx context.Context, userID, convID uint64) ([]uint64, error)

	// BroadcastPresence 见 PresenceBroadcaster
	BroadcastPresence(ctx context.Context, userID uint64, status string)
}

type conversationServiceImpl struct {
	convRepo         repository.ConversationRepo
	userRepo         repository.UserRepo
	messageRepo      repository.MessageRepo
	notificationRepo mongo.NotificationRepo
	cache            cache.Cache
	publisher        realtime.Publisher
}

func NewConversationService(
	convRepo repository.ConversationRepo,
	userRepo repository.UserRepo,
	messageRepo repository.MessageRepo,
	notificationRepo mongo.NotificationRepo,
	c cache.Cache,
	publisher realtime.Publisher,
) ConversationService {
	return &conversationServiceImpl{
		convRepo:         convRepo,
		userRepo:         userRepo,
		messageRepo:      messageRepo,
		notificationRepo: notificationRepo,
		cache:            c,
		publisher:        publisher,
	}
}

// CreateConversation 创建会话
// 参与者去重后必须全部真实存在；两人以上自动视为群聊
func (s *conversationServiceImpl) CreateConversation(ctx context.Context, creatorID uint64, req *dto.CreateConversationDTO) (*dto.ConversationDTO, error) {
	ids := dedupeIDs(append(req.ParticipantIDs, creatorID))
	if len(ids) < 2 {
		return nil, ErrInvalidParticipants
	}

	count, err := s.userRepo.CountByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if count != int64(len(ids)) {
		return nil, ErrInvalidParticipants
	}

	isGroup := req.IsGroup || len(ids) > 2

	conv := &model.Conversation{}
	metadata := &model.ConversationMetadata{
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   creatorID,
	}
	if isGroup {
		metadata.IsGroup = 1
	}

	participants := make([]*model.ConversationParticipant, 0, len(ids))
	for _, id := range ids {
		p := &model.ConversationParticipant{UserID: id}
		if id == creatorID {
			p.IsAdmin = 1
		}
		participants = append(participants, p)
	}

	var seed *model.Message
	if req.InitialMessage != "" {
		seed = &model.Message{
			SenderID: creatorID,
			Content:  req.InitialMessage,
		}
	}

	if err = s.convRepo.CreateConversation(ctx, conv, metadata, participants, seed); err != nil {
		return nil, err
	}

	s.invalidateListCaches(ctx, ids)
	s.publisher.PublishToUsers(ctx, ids, realtime.NewEvent(realtime.EventConversation, conv.ID, map[string]any{
		"action": "created",
	}))

	full, err := s.convRepo.GetConversation(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	return s.toConversationDTO(ctx, full, nil), nil
}

// GetConversation 获取会话明细，旁路缓存
func (s *conversationServiceImpl) GetConversation(ctx context.Context, userID, convID uint64) (*dto.ConversationDTO, error) {
	ok, err := s.convRepo.IsParticipant(ctx, convID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ForbiddenError
	}

	key := consts.IMConversationKey + strconv.FormatUint(convID, 10)
	if value, hit, cerr := s.cache.Get(ctx, key); cerr == nil && hit {
		var cached dto.ConversationDTO
		if json.Unmarshal([]byte(value), &cached) == nil {
			// 按用户视角补全个人维度字段
			s.fillParticipantView(ctx, &cached, convID, userID)
			return &cached, nil
		}
	}

	conv, err := s.convRepo.GetConversation(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	result := s.toConversationDTO(ctx, conv, nil)

	if payload, merr := json.Marshal(result); merr == nil {
		ttl := time.Duration(config.Cfg.IM.CacheTTL) * time.Second
		if err = s.cache.Set(ctx, key, string(payload), ttl); err != nil {
			log.WarnContext(ctx, "会话缓存写入失败", "convID", convID, "err", err)
		}
	}

	s.fillParticipantView(ctx, result, convID, userID)
	return result, nil
}

// ListConversations 分页查询会话列表，按 用户+页码 维度缓存
func (s *conversationServiceImpl) ListConversations(ctx context.Context, userID uint64, page, limit int) (*dto.ConversationListDTO, error) {
	page, limit = util.NormalizePage(page, limit, config.Cfg.IM.DefaultPageSize, config.Cfg.IM.MaxPageSize)

	key := fmt.Sprintf("%s%d:%d", consts.IMConversationListKey, userID, page)
	if value, hit, cerr := s.cache.Get(ctx, key); cerr == nil && hit {
		var cached dto.ConversationListDTO
		if json.Unmarshal([]byte(value), &cached) == nil {
			return &cached, nil
		}
	}

	rows, total, err := s.convRepo.ListForUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	conversations := make([]*dto.ConversationDTO, 0, len(rows))
	for _, row := range rows {
		conv, gerr := s.convRepo.GetConversation(ctx, row.ConversationID)
		if gerr != nil {
			continue
		}
		conversations = append(conversations, s.toConversationDTO(ctx, conv, row))
	}

	meta := util.NewPageMeta(page, limit, total)
	result := &dto.ConversationListDTO{
		Conversations: conversations,
		Page:          page,
		Limit:         limit,
		Total:         total,
		HasMore:       meta.HasMore,
	}

	if payload, merr := json.Marshal(result); merr == nil {
		ttl := time.Duration(config.Cfg.IM.CacheTTL) * time.Second
		if err = s.cache.Set(ctx, key, string(payload), ttl); err != nil {
			log.WarnContext(ctx, "会话列表缓存写入失败", "userID", userID, "err", err)
		}
	}
	return result, nil
}

// UpdateMetadata 更新会话元数据，仅创建者可操作
func (s *conversationServiceImpl) UpdateMetadata(ctx context.Context, userID, convID uint64, req *dto.UpdateConversationDTO) error {
	conv, err := s.convRepo.GetConversation(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	if conv.Metadata.CreatorID != userID {
		return ForbiddenError
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if len(updates) == 0 {
		return ErrParamInvalid
	}

	if err := s.convRepo.UpdateMetadata(ctx, convID, updates); err != nil {
		return err
	}

	s.invalidateConversation(ctx, convID)
	s.broadcast(ctx, convID, realtime.NewEvent(realtime.EventConversation, convID, map[string]any{
		"action": "updated",
	}))
	return nil
}

// DeleteConversation 关闭会话，仅创建者可操作
func (s *conversationServiceImpl) DeleteConversation(ctx context.Context, userID, convID uint64) error {
	conv, err := s.convRepo.GetConversation(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	if conv.Metadata.CreatorID != userID {
		return ForbiddenError
	}

	members, err := s.memberIDs(ctx, convID)
	if err != nil {
		return err
	}

	if err = s.convRepo.SoftDelete(ctx, convID); err != nil {
		return err
	}

	s.invalidateConversation(ctx, convID)
	s.publisher.PublishToUsers(ctx, members, realtime.NewEvent(realtime.EventConversation, convID, map[string]any{
		"action": "closed",
	}))
	s.notify(ctx, members, userID, mongo.NoticeTypeConversationClosed, convID, "会话已被关闭")
	return nil
}

func (s *conversationServiceImpl) SetArchived(ctx context.Context, userID, convID uint64, archived bool) error {
	if err := s.requireParticipant(ctx, convID, userID); err != nil {
		return err
	}
	if err := s.convRepo.SetArchived(ctx, convID, userID, archived); err != nil {
		return err
	}
	s.invalidateListCaches(ctx, []uint64{userID})
	return nil
}

func (s *conversationServiceImpl) SetPinned(ctx context.Context, userID, convID uint64, pinned bool) error {
	if err := s.requireParticipant(ctx, convID, userID); err != nil {
		return err
	}
	if err := s.convRepo.SetPinned(ctx, convID, userID, pinned); err != nil {
		return err
	}
	s.invalidateListCaches(ctx, []uint64{userID})
	return nil
}

func (s *conversationServiceImpl) MarkConversationRead(ctx context.Context, userID, convID uint64) error {
	if err := s.requireParticipant(ctx, convID, userID); err != nil {
		return err
	}
	if err := s.convRepo.MarkRead(ctx, convID, userID); err != nil {
		return err
	}
	s.invalidateListCaches(ctx, []uint64{userID})
	return nil
}

func (s *conversationServiceImpl) ListParticipants(ctx context.Context, userID, convID uint64) ([]*dto.ParticipantDTO, error) {
	if err := s.requireParticipant(ctx, convID, userID); err != nil {
		return nil, err
	}

	participants, err := s.convRepo.ListParticipants(ctx, convID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	userMap := make(map[uint64]*model.User, len(users))
	for _, u := range users {
		userMap[u.ID] = u
	}
	presenceMap, err := s.userRepo.GetPresenceByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ParticipantDTO, 0, len(participants))
	for _, p := range participants {
		item := &dto.ParticipantDTO{
			UserID:   p.UserID,
			IsAdmin:  p.IsAdmin == 1,
			Presence: consts.PresenceOffline,
			JoinedAt: p.JoinedAt,
		}
		if pr, ok := presenceMap[p.UserID]; ok {
			item.Presence = pr.Status
		}
		if u, ok := userMap[p.UserID]; ok {
			item.Nickname = u.Nickname
			if u.AvatarURL != "" {
				item.AvatarURL = minio.GetPublicURL(u.AvatarURL)
			}
		}
		result = append(result, item)
	}
	return result, nil
}

// AddParticipant 添加参与者，仅群聊管理员可操作
func (s *conversationServiceImpl) AddParticipant(ctx context.Context, operatorID, convID, targetID uint64) error {
	if _, err := s.requireGroupAdmin(ctx, convID, operatorID); err != nil {
		return err
	}

	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	exists, err := s.convRepo.IsParticipant(ctx, convID, targetID)
	if err != nil {
		return err
	}
	if exists {
		return ErrParticipantExist
	}

	participant := &model.ConversationParticipant{
		ConversationID: convID,
		UserID:         targetID,
	}
	sysMsg := &model.Message{
		ConversationID: convID,
		SenderID:       operatorID,
		Content:        fmt.Sprintf("用户 %d 加入了会话", targetID),
	}
	if err = s.convRepo.AddParticipant(ctx, participant, sysMsg); err != nil {
		return err
	}

	s.invalidateConversation(ctx, convID)
	s.invalidateListCaches(ctx, []uint64{targetID})
	s.broadcast(ctx, convID, realtime.NewEvent(realtime.EventConversation, convID, map[string]any{
		"action": "participant_added",
		"userId": targetID,
	}))
	s.notify(ctx, []uint64{targetID}, operatorID, mongo.NoticeTypeParticipantAdded, convID, "你已被加入会话")
	return nil
}

// RemoveParticipant 移除参与者，仅群聊管理员可操作，创建者不可被移除
func (s *conversationServiceImpl) RemoveParticipant(ctx context.Context, operatorID, convID, targetID uint64) error {
	conv, err := s.requireGroupAdmin(ctx, convID, operatorID)
	if err != nil {
		return err
	}
	if targetID == conv.Metadata.CreatorID {
		return ErrCreatorImmutable
	}

	sysMsg := &model.Message{
		ConversationID: convID,
		SenderID:       operatorID,
		Content:        fmt.Sprintf("用户 %d 已被移出会话", targetID),
	}
	if err = s.convRepo.RemoveParticipant(ctx, convID, targetID, sysMsg); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidParticipants
		}
		return err
	}

	s.invalidateConversation(ctx, convID)
	s.invalidateListCaches(ctx, []uint64{targetID})
	s.broadcast(ctx, convID, realtime.NewEvent(realtime.EventConversation, convID, map[string]any{
		"action": "participant_removed",
		"userId": targetID,
	}))
	s.publisher.PublishToUsers(ctx, []uint64{targetID}, realtime.NewEvent(realtime.EventConversation, convID, map[string]any{
		"action": "participant_removed",
		"userId": targetID,
	}))
	s.notify(ctx, []uint64{targetID}, operatorID, mongo.NoticeTypeParticipantRemoved, convID, "你已被移出会话")
	return nil
}

// UpdateParticipantRole 变更管理员角色，仅群聊管理员可操作，创建者的角色不可变更
func (s *conversationServiceImpl) UpdateParticipantRole(ctx context.Context, operatorID, convID, targetID uint64, isAdmin bool) error {
	conv, err := s.requireGroupAdmin(ctx, convID, operatorID)
	if err != nil {
		return err
	}
	if targetID == conv.Metadata.CreatorID {
		return ErrCreatorImmutable
	}

	action := "取消了管理员身份"
	if isAdmin {
		action = "被设为管理员"
	}
	sysMsg := &model.Message{
		ConversationID: convID,
		SenderID:       operatorID,
		Content:        fmt.Sprintf("用户 %d %s", targetID, action),
	}
	if err = s.convRepo.UpdateParticipantRole(ctx, convID, targetID, isAdmin, sysMsg); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidParticipants
		}
		return err
	}

	s.invalidateConversation(ctx, convID)
	s.broadcast(ctx, convID, realtime.NewEvent(realtime.EventConversation, convID, map[string]any{
		"action":  "role_changed",
		"userId":  targetID,
		"isAdmin": isAdmin,
	}))
	s.notify(ctx, []uint64{targetID}, operatorID, mongo.NoticeTypeRoleChanged, convID, "你的会话角色已变更")
	return nil
}

// LeaveConversation 退出会话
// 创建者退出时所有权移交给最早加入的管理员，否则最早加入的成员
// 最后一名参与者退出时会话随之关闭
func (s *conversationServiceImpl) LeaveConversation(ctx context.Context, userID, convID uint64) error {
	conv, err := s.convRepo.GetConversation(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return err
	}

	participants, err := s.convRepo.ListParticipants(ctx, convID)
	if err != nil {
		return err
	}
	var self *model.ConversationParticipant
	for _, p := range participants {
		if p.UserID == userID {
			self = p
			break
		}
	}
	if self == nil {
		return ForbiddenError
	}

	closeConversation := len(participants) == 1

	var successorID *uint64
	if !closeConversation && conv.Metadata.CreatorID == userID {
		successorID = pickSuccessor(participants, userID)
	}

	var sysMsg *model.Message
	if !closeConversation {
		sysMsg = &model.Message{
			ConversationID: convID,
			SenderID:       userID,
			Content:        fmt.Sprintf("用户 %d 退出了会话", userID),
		}
	}

	if err = s.convRepo.Leave(ctx, convID, userID, successorID, sysMsg, closeConversation); err != nil {
		return err
	}

	s.invalidateConversation(ctx, convID)
	s.invalidateListCaches(ctx, []uint64{userID})
	s.broadcast(ctx, convID, realtime.NewEvent(realtime.EventConversation, convID, map[string]any{
		"action": "participant_left",
		"userId": userID,
	}))
	if successorID != nil {
		s.notify(ctx, []uint64{*successorID}, userID, mongo.NoticeTypeOwnershipTransfer, convID, "你已成为会话创建者")
	}
	return nil
}

// SetTyping 记录输入状态并广播，状态由 TTL 自动过期
func (s *conversationServiceImpl) SetTyping(ctx context.Context, userID, convID uint64, typing bool) error {
	if err := s.requireParticipant(ctx, convID, userID); err != nil {
		return err
	}

	// 输入状态是带 TTL 的临时态，缓存故障只记日志，广播照常
	key := fmt.Sprintf("%s%d:%d", consts.IMTypingKey, convID, userID)
	if typing {
		ttl := time.Duration(config.Cfg.IM.TypingTTL) * time.Second
		if err := redis.SetWithExpiration(ctx, key, "1", ttl); err != nil {
			log.WarnContext(ctx, "输入状态写入失败", "convID", convID, "userID", userID, "err", err)
		}
	} else {
		if err := redis.DeleteKey(ctx, key); err != nil {
			log.WarnContext(ctx, "输入状态清除失败", "convID", convID, "userID", userID, "err", err)
		}
	}

	s.broadcast(ctx, convID, realtime.NewEvent(realtime.EventTyping, convID, &realtime.TypingPayload{
		UserID: userID,
		Typing: typing,
	}))
	return nil
}

// GetTypingUsers 枚举会话内正在输入的用户
func (s *conversationServiceImpl) GetTypingUsers(ctx context.Context, userID, convID uint64) ([]uint64, error) {
	if err := s.requireParticipant(ctx, convID, userID); err != nil {
		return nil, err
	}

	pattern := fmt.Sprintf("%s%d:*", consts.IMTypingKey, convID)
	keys, err := redis.ScanKeys(ctx, pattern)
	if err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("%s%d:", consts.IMTypingKey, convID)
	ids := make([]uint64, 0, len(keys))
	for _, key := range keys {
		id, perr := strconv.ParseUint(key[len(prefix):], 10, 64)
		if perr != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// BroadcastPresence 向用户的全部会话对端广播在线状态变更
func (s *conversationServiceImpl) BroadcastPresence(ctx context.Context, userID uint64, status string) {
	contacts, err := s.convRepo.GetContactIDs(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "获取会话对端失败", "userID", userID, "err", err)
		return
	}
	s.publisher.PublishToUsers(ctx, contacts, realtime.NewEvent(realtime.EventPresence, 0, &realtime.PresencePayload{
		UserID: userID,
		Status: status,
	}))
}

func (s *conversationServiceImpl) requireParticipant(ctx context.Context, convID, userID uint64) error {
	ok, err := s.convRepo.IsParticipant(ctx, convID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ForbiddenError
	}
	return nil
}

func (s *conversationServiceImpl) requireAdmin(ctx context.Context, convID, userID uint64) error {
	p, err := s.convRepo.GetParticipant(ctx, convID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ForbiddenError
		}
		return err
	}
	if p.IsAdmin != 1 {
		return ForbiddenError
	}
	return nil
}

func (s *conversationServiceImpl) getGroupConversation(ctx context.Context, convID uint64) (*model.Conversation, error) {
	conv, err := s.convRepo.GetConversation(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if conv.Metadata.IsGroup != 1 {
		return nil, ErrNotGroupConversation
	}
	return conv, nil
}

func (s *conversationServiceImpl) requireGroupAdmin(ctx context.Context, convID, userID uint64) (*model.Conversation, error) {
	conv, err := s.getGroupConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	if err = s.requireAdmin(ctx, convID, userID); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *conversationServiceImpl) memberIDs(ctx context.Context, convID uint64) ([]uint64, error) {
	participants, err := s.convRepo.ListParticipants(ctx, convID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	return ids, nil
}

// broadcast 向会话全体参与者推送事件
func (s *conversationServiceImpl) broadcast(ctx context.Context, convID uint64, event *realtime.Event) {
	ids, err := s.memberIDs(ctx, convID)
	if err != nil {
		log.ErrorContext(ctx, "获取会话参与者失败", "convID", convID, "err", err)
		return
	}
	s.publisher.PublishToUsers(ctx, ids, event)
}

// notify 写入通知箱并推送通知事件
func (s *conversationServiceImpl) notify(ctx context.Context, receiverIDs []uint64, senderID uint64, noticeType int8, convID uint64, content string) {
	for _, receiverID := range receiverIDs {
		if receiverID == senderID {
			continue
		}
		notice := &mongo.NotificationModel{
			ReceiverID: receiverID,
			SenderID:   senderID,
			Type:       noticeType,
			TargetID:   convID,
			Content:    content,
			IsRead:     false,
			CreatedAt:  time.Now(),
		}
		if err := s.notificationRepo.Insert(ctx, notice); err != nil {
			log.ErrorContext(ctx, "写入通知失败", "receiverID", receiverID, "err", err)
			continue
		}
		s.publisher.PublishToUsers(ctx, []uint64{receiverID}, realtime.NewEvent(realtime.EventNotification, convID, map[string]any{
			"type":    noticeType,
			"content": content,
		}))
	}
}

// invalidateConversation 失效会话明细缓存与全部参与者的列表缓存
func (s *conversationServiceImpl) invalidateConversation(ctx context.Context, convID uint64) {
	key := consts.IMConversationKey + strconv.FormatUint(convID, 10)
	if err := s.cache.Del(ctx, key); err != nil {
		log.WarnContext(ctx, "会话缓存失效失败", "convID", convID, "err", err)
	}
	ids, err := s.memberIDs(ctx, convID)
	if err != nil {
		return
	}
	s.invalidateListCaches(ctx, ids)
}

// invalidateListCaches 按模式失效用户的全部列表缓存页
func (s *conversationServiceImpl) invalidateListCaches(ctx context.Context, userIDs []uint64) {
	for _, id := range userIDs {
		pattern := fmt.Sprintf("%s%d:*", consts.IMConversationListKey, id)
		if err := s.cache.InvalidatePattern(ctx, pattern); err != nil {
			log.WarnContext(ctx, "会话列表缓存失效失败", "userID", id, "err", err)
		}
	}
}

func (s *conversationServiceImpl) fillParticipantView(ctx context.Context, result *dto.ConversationDTO, convID, userID uint64) {
	p, err := s.convRepo.GetParticipant(ctx, convID, userID)
	if err != nil {
		return
	}
	result.IsArchived = p.IsArchived == 1
	result.IsPinned = p.IsPinned == 1
	result.UnreadCount = p.UnreadCount
}

func (s *conversationServiceImpl) toConversationDTO(ctx context.Context, conv *model.Conversation, row *model.ConversationParticipant) *dto.ConversationDTO {
	result := &dto.ConversationDTO{
		ConversationID: conv.ID,
		Title:          conv.Metadata.Title,
		Description:    conv.Metadata.Description,
		IsGroup:        conv.Metadata.IsGroup == 1,
		CreatorID:      conv.Metadata.CreatorID,
		CreatedAt:      conv.CreatedAt,
	}
	if conv.Metadata.AvatarURL != "" {
		result.AvatarURL = minio.GetPublicURL(conv.Metadata.AvatarURL)
	}
	updatedAt := conv.UpdatedAt
	result.UpdatedAt = &updatedAt

	if row != nil {
		result.IsArchived = row.IsArchived == 1
		result.IsPinned = row.IsPinned == 1
		result.UnreadCount = row.UnreadCount
	}

	if conv.LastMessageID != nil {
		msg, err := s.messageRepo.GetByID(ctx, *conv.LastMessageID)
		if err == nil {
			result.LastMessage = toMessageDTO(msg)
		}
	}
	return result
}

// pickSuccessor 在剩余参与者中选择继任者：优先最早加入的管理员
func pickSuccessor(participants []*model.ConversationParticipant, leavingID uint64) *uint64 {
	var firstMember, firstAdmin *model.ConversationParticipant
	for _, p := range participants {
		if p.UserID == leavingID {
			continue
		}
		if firstMember == nil {
			firstMember = p
		}
		if p.IsAdmin == 1 && firstAdmin == nil {
			firstAdmin = p
		}
	}
	if firstAdmin != nil {
		return &firstAdmin.UserID
	}
	if firstMember != nil {
		return &firstMember.UserID
	}
	return nil
}

func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	result := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
