package consts

const (
	IMConversationListKey = "im:conversations:"  // im:conversations:{userId}:{page}
	IMConversationKey     = "im:conversation:"   // im:conversation:{convId}
	IMTypingKey           = "im:typing:"         // im:typing:{convId}:{userId}
	IMUserChannelKey      = "im:user:channel:"   // 用户个人推送频道
	IMRateLimitKey        = "im:ratelimit:"      // im:ratelimit:{kind}:{userId}
	AttachmentTempKey     = "im:attachment:temp" // 待绑定附件 Hash
	TokenBlacklistPrefix  = ""                   // 黑名单直接以签名为键
)
