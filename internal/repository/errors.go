package repository

import "errors"

var (
	// ErrNotParticipant 操作者不在会话参与者内，事务内鉴权失败时返回
	ErrNotParticipant = errors.New("not a participant of this conversation")
)
