package api

import "Mercato/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	UserHandler         *handler.UserHandler
	ConversationHandler *handler.ConversationHandler
	MessageHandler      *handler.MessageHandler
	AttachmentHandler   *handler.AttachmentHandler
	NotificationHandler *handler.NotificationHandler
	WSHandler           *handler.WsHandler
}
