package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	TooManyRequests     = 429
	InternalServerError = 500
)

var (
	ErrParamInvalid         = errors.New("参数错误")
	ErrUserNotFound         = errors.New("用户不存在")
	ErrUserExist            = errors.New("用户已存在")
	ErrPasswordIncorrect    = errors.New("密码错误")
	ErrConversationNotFound = errors.New("会话不存在")
	ErrMessageNotFound      = errors.New("消息不存在")
	ErrNotificationNotFound = errors.New("通知不存在")
	ErrInvalidParticipants  = errors.New("参与者无效")
	ErrParticipantExist     = errors.New("参与者已在会话中")
	ErrNotGroupConversation = errors.New("非群聊会话")
	ErrCreatorImmutable     = errors.New("不能操作会话创建者")
	ErrFileNotSupported     = errors.New("不支持的文件类型")
	ErrFileTooLarge         = errors.New("文件大小超过限制")
	ErrFileNotExist         = errors.New("文件不存在")
	ErrRateLimited          = errors.New("操作过于频繁，请稍后重试")
	UnauthorizedError       = errors.New("登录状态无效")
	ForbiddenError          = errors.New("权限不足")
	UnExpectedError         = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:         BadRequest,
	ErrUserNotFound:         NotFound,
	ErrUserExist:            BadRequest,
	ErrPasswordIncorrect:    Unauthorized,
	ErrConversationNotFound: NotFound,
	ErrMessageNotFound:      NotFound,
	ErrNotificationNotFound: NotFound,
	ErrInvalidParticipants:  BadRequest,
	ErrParticipantExist:     BadRequest,
	ErrNotGroupConversation: BadRequest,
	ErrCreatorImmutable:     Forbidden,
	ErrFileNotSupported:     BadRequest,
	ErrFileTooLarge:         BadRequest,
	ErrFileNotExist:         NotFound,
	ErrRateLimited:          TooManyRequests,
	UnauthorizedError:       Unauthorized,
	ForbiddenError:          Forbidden,
	UnExpectedError:         InternalServerError,
}
