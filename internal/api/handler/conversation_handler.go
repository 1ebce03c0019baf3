package handler

import (
	"Mercato/internal/api/dto"
	"Mercato/internal/pkg/response"
	"Mercato/internal/pkg/util"
	"Mercato/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	convService service.ConversationService
}

func NewConversationHandler(convService service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convService: convService}
}

// Create 创建会话接口
func (s *ConversationHandler) Create(c *gin.Context) {
	var req dto.CreateConversationDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	res, err := s.convService.CreateConversation(c.Request.Context(), userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// List 分页获取会话列表
func (s *ConversationHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	userID := c.GetUint64("user_id")
	res, err := s.convService.ListConversations(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Get 获取会话明细
func (s *ConversationHandler) Get(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	res, err := s.convService.GetConversation(c.Request.Context(), userID, convID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Update 更新会话元数据
func (s *ConversationHandler) Update(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateConversationDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err = util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err = s.convService.UpdateMetadata(c.Request.Context(), userID, convID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Delete 关闭会话
func (s *ConversationHandler) Delete(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err = s.convService.DeleteConversation(c.Request.Context(), userID, convID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Archive 归档
func (s *ConversationHandler) Archive(c *gin.Context) {
	s.setArchived(c, true)
}

// Unarchive 取消归档
func (s *ConversationHandler) Unarchive(c *gin.Context) {
	s.setArchived(c, false)
}

func (s *ConversationHandler) setArchived(c *gin.Context, archived bool) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err = s.convService.SetArchived(c.Request.Context(), userID, convID, archived); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Pin 置顶
func (s *ConversationHandler) Pin(c *gin.Context) {
	s.setPinned(c, true)
}

// Unpin 取消置顶
func (s *ConversationHandler) Unpin(c *gin.Context) {
	s.setPinned(c, false)
}

func (s *ConversationHandler) setPinned(c *gin.Context, pinned bool) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err = s.convService.SetPinned(c.Request.Context(), userID, convID, pinned); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkRead 标记会话已读
func (s *ConversationHandler) MarkRead(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err = s.convService.MarkConversationRead(c.Request.Context(), userID, convID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Participants 获取参与者列表
func (s *ConversationHandler) Participants(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	res, err := s.convService.ListParticipants(c.Request.Context(), userID, convID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// AddParticipant 添加参与者
func (s *ConversationHandler) AddParticipant(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.AddParticipantDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err = s.convService.AddParticipant(c.Request.Context(), userID, convID, req.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// RemoveParticipant 移除参与者
func (s *ConversationHandler) RemoveParticipant(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err = s.convService.RemoveParticipant(c.Request.Context(), userID, convID, targetID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// UpdateParticipantRole 变更参与者角色
func (s *ConversationHandler) UpdateParticipantRole(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	var req dto.UpdateParticipantRoleDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err = s.convService.UpdateParticipantRole(c.Request.Context(), userID, convID, targetID, req.IsAdmin); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Leave 退出会话
func (s *ConversationHandler) Leave(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err = s.convService.LeaveConversation(c.Request.Context(), userID, convID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SetTyping 上报输入状态
func (s *ConversationHandler) SetTyping(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.TypingDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err = s.convService.SetTyping(c.Request.Context(), userID, convID, req.Typing); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// TypingUsers 查询正在输入的用户
func (s *ConversationHandler) TypingUsers(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	res, err := s.convService.GetTypingUsers(c.Request.Context(), userID, convID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func parseConvID(c *gin.Context) (uint64, error) {
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, service.ErrParamInvalid
	}
	return convID, nil
}
