package consts

const (
	MimePrefixImage = "image"
	MimePrefixAudio = "audio"
	MimePrefixVideo = "video"
)

// 文档类附件的 MIME 白名单
var DocumentMimeTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"text/plain": {},
	"text/csv":   {},
}

const (
	// MaxAttachmentSize 附件大小上限 10MB
	MaxAttachmentSize = 10 << 20
)

const (
	DeliveryStatusSent      = "sent"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
)

const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
	PresenceAway    = "away"
)

const (
	RateLimitKindMessage  = "message"
	RateLimitKindReaction = "reaction"
)
