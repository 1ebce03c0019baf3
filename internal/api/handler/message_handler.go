package handler

import (
	"Mercato/internal/api/dto"
	"Mercato/internal/pkg/response"
	"Mercato/internal/pkg/util"
	"Mercato/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messageService service.MessageService
}

func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// Send 发送消息接口
func (s *MessageHandler) Send(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.SendMessageDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err = util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	res, err := s.messageService.SendMessage(c.Request.Context(), userID, convID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// List 游标分页拉取消息
// cursor 为空取最新一页；direction=after 拉取游标之后的新消息
func (s *MessageHandler) List(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	cursor := c.Query("cursor")
	before := c.DefaultQuery("direction", "before") != "after"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	userID := c.GetUint64("user_id")
	res, err := s.messageService.GetMessages(c.Request.Context(), userID, convID, cursor, before, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Get 获取单条消息
func (s *MessageHandler) Get(c *gin.Context) {
	messageID, err := parseMessageID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	res, err := s.messageService.GetMessage(c.Request.Context(), userID, messageID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Thread 拉取回复串
func (s *MessageHandler) Thread(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	parentID, err := strconv.ParseUint(c.Param("messageId"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	userID := c.GetUint64("user_id")
	res, err := s.messageService.GetThread(c.Request.Context(), userID, convID, parentID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Context 拉取消息上下文窗口
func (s *MessageHandler) Context(c *gin.Context) {
	messageID, err := parseMessageID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	before, _ := strconv.Atoi(c.DefaultQuery("before", "-1"))
	after, _ := strconv.Atoi(c.DefaultQuery("after", "-1"))

	userID := c.GetUint64("user_id")
	res, err := s.messageService.GetMessageContext(c.Request.Context(), userID, messageID, before, after)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Edit 编辑消息
func (s *MessageHandler) Edit(c *gin.Context) {
	messageID, err := parseMessageID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.EditMessageDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err = util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	res, err := s.messageService.EditMessage(c.Request.Context(), userID, messageID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Delete 删除消息
func (s *MessageHandler) Delete(c *gin.Context) {
	messageID, err := parseMessageID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err = s.messageService.DeleteMessage(c.Request.Context(), userID, messageID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Forward 转发消息
func (s *MessageHandler) Forward(c *gin.Context) {
	messageID, err := parseMessageID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ForwardMessageDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err = util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	res, err := s.messageService.ForwardMessage(c.Request.Context(), userID, messageID, req.ConversationIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// React 表情回应
func (s *MessageHandler) React(c *gin.Context) {
	messageID, err := parseMessageID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ReactionDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err = util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err = s.messageService.React(c.Request.Context(), userID, messageID, req.Reaction); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// RemoveReaction 取消表情回应
func (s *MessageHandler) RemoveReaction(c *gin.Context) {
	messageID, err := parseMessageID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err = s.messageService.RemoveReaction(c.Request.Context(), userID, messageID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// BulkMarkRead 批量标记已读
func (s *MessageHandler) BulkMarkRead(c *gin.Context) {
	var req dto.BulkMarkReadDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	res, err := s.messageService.BulkMarkRead(c.Request.Context(), userID, req.MessageIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// ReportDelivery 回报投递状态
func (s *MessageHandler) ReportDelivery(c *gin.Context) {
	messageID, err := parseMessageID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.DeliveryStatusDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err = util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err = s.messageService.ReportDelivery(c.Request.Context(), userID, messageID, req.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Search 会话内消息搜索
func (s *MessageHandler) Search(c *gin.Context) {
	convID, err := parseConvID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	keyword := c.Query("q")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	userID := c.GetUint64("user_id")
	res, err := s.messageService.SearchMessages(c.Request.Context(), userID, convID, keyword, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func parseMessageID(c *gin.Context) (uint64, error) {
	messageID, err := strconv.ParseUint(c.Param("messageId"), 10, 64)
	if err != nil {
		return 0, service.ErrParamInvalid
	}
	return messageID, nil
}
