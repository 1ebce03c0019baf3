package handler

import (
	"Mercato/internal/api/dto"
	"Mercato/internal/pkg/response"
	"Mercato/internal/pkg/util"
	"Mercato/internal/service"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Register 注册接口
func (s *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	if err := s.userService.Register(c.Request.Context(), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Login 登录接口
func (s *UserHandler) Login(c *gin.Context) {
	var req dto.CredentialDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.userService.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Logout 登出接口
func (s *UserHandler) Logout(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if err := s.userService.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetMe 获取当前用户信息
func (s *UserHandler) GetMe(c *gin.Context) {
	userID := c.GetUint64("user_id")
	res, err := s.userService.GetUserInfo(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetUser 获取指定用户信息
func (s *UserHandler) GetUser(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.userService.GetUserInfo(c.Request.Context(), targetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// UpdatePresence 更新在线状态
func (s *UserHandler) UpdatePresence(c *gin.Context) {
	var req dto.UpdatePresenceDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.userService.UpdatePresence(c.Request.Context(), userID, req.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetPresence 批量查询在线状态，ids 以逗号分隔
func (s *UserHandler) GetPresence(c *gin.Context) {
	raw := c.Query("ids")
	if raw == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	parts := strings.Split(raw, ",")
	ids := make([]uint64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			response.Error(c, service.ErrParamInvalid)
			return
		}
		ids = append(ids, id)
	}

	res, err := s.userService.GetPresence(c.Request.Context(), ids)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
