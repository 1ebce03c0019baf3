package util

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// 游标编码为 [created_at 微秒, message_id] 的 Base64 JSON
// 附带消息 ID 作为同时刻消息的二级排序键，避免跨页丢失或重复

// EncodeMessageCursor 将消息的排序键编码为游标字符串
func EncodeMessageCursor(createdAt time.Time, id uint64) string {
	b, _ := json.Marshal([2]int64{createdAt.UnixMicro(), int64(id)})
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeMessageCursor 将前端传来的游标解码为排序键
func DecodeMessageCursor(cursor string) (time.Time, uint64, error) {
	if cursor == "" {
		return time.Time{}, 0, nil
	}
	b, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, 0, err
	}
	var vals [2]int64
	if err = json.Unmarshal(b, &vals); err != nil {
		return time.Time{}, 0, err
	}
	if vals[1] < 0 {
		return time.Time{}, 0, errors.New("非法游标")
	}
	return time.UnixMicro(vals[0]), uint64(vals[1]), nil
}
