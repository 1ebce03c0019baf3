package handler

import (
	"Mercato/internal/pkg/response"
	"Mercato/internal/service"

	"github.com/gin-gonic/gin"
)

type AttachmentHandler struct {
	attachmentService service.AttachmentService
}

func NewAttachmentHandler(attachmentService service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService}
}

// Upload 上传附件接口，multipart 表单字段名为 file
func (s *AttachmentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	res, err := s.attachmentService.Upload(c.Request.Context(), userID, fileHeader)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
