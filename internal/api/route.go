package api

import (
	"Mercato/internal/api/middleware"
	"Mercato/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		userGroup := apiGroup.Group("/user")
		{
			userGroup.POST("/login", group.UserHandler.Login)
			userGroup.POST("/register", group.UserHandler.Register)
			userGroup.GET("/:id", group.UserHandler.GetUser)

			authGroup := userGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/logout", group.UserHandler.Logout)
				authGroup.GET("/info", group.UserHandler.GetMe)
				authGroup.PUT("/presence", group.UserHandler.UpdatePresence)
				authGroup.GET("/presence", group.UserHandler.GetPresence)
			}
		}

		convGroup := apiGroup.Group("/conversations")
		convGroup.Use(middleware.AuthMiddleware())
		{
			convGroup.POST("", group.ConversationHandler.Create)
			convGroup.GET("", group.ConversationHandler.List)
			convGroup.GET("/:id", group.ConversationHandler.Get)
			convGroup.PUT("/:id", group.ConversationHandler.Update)
			convGroup.DELETE("/:id", group.ConversationHandler.Delete)

			convGroup.POST("/:id/archive", group.ConversationHandler.Archive)
			convGroup.DELETE("/:id/archive", group.ConversationHandler.Unarchive)
			convGroup.POST("/:id/pin", group.ConversationHandler.Pin)
			convGroup.DELETE("/:id/pin", group.ConversationHandler.Unpin)
			convGroup.POST("/:id/read", group.ConversationHandler.MarkRead)
			convGroup.POST("/:id/leave", group.ConversationHandler.Leave)

			convGroup.GET("/:id/participants", group.ConversationHandler.Participants)
			convGroup.POST("/:id/participants", group.ConversationHandler.AddParticipant)
			convGroup.DELETE("/:id/participants/:userId", group.ConversationHandler.RemoveParticipant)
			convGroup.PUT("/:id/participants/:userId/role", group.ConversationHandler.UpdateParticipantRole)

			convGroup.POST("/:id/typing", group.ConversationHandler.SetTyping)
			convGroup.GET("/:id/typing", group.ConversationHandler.TypingUsers)

			convGroup.POST("/:id/messages", group.MessageHandler.Send)
			convGroup.GET("/:id/messages", group.MessageHandler.List)
			convGroup.GET("/:id/messages/search", group.MessageHandler.Search)
			convGroup.GET("/:id/threads/:messageId", group.MessageHandler.Thread)
		}

		messageGroup := apiGroup.Group("/messages")
		messageGroup.Use(middleware.AuthMiddleware())
		{
			messageGroup.GET("/:messageId", group.MessageHandler.Get)
			messageGroup.GET("/:messageId/context", group.MessageHandler.Context)
			messageGroup.PUT("/:messageId", group.MessageHandler.Edit)
			messageGroup.DELETE("/:messageId", group.MessageHandler.Delete)
			messageGroup.POST("/:messageId/forward", group.MessageHandler.Forward)
			messageGroup.POST("/:messageId/reactions", group.MessageHandler.React)
			messageGroup.DELETE("/:messageId/reactions", group.MessageHandler.RemoveReaction)
			messageGroup.PUT("/:messageId/delivery", group.MessageHandler.ReportDelivery)
			messageGroup.POST("/read", group.MessageHandler.BulkMarkRead)
		}

		notificationGroup := apiGroup.Group("/notifications")
		notificationGroup.Use(middleware.AuthMiddleware())
		{
			notificationGroup.GET("", group.NotificationHandler.List)
			notificationGroup.POST("/:id/read", group.NotificationHandler.MarkRead)
			notificationGroup.POST("/read/all", group.NotificationHandler.MarkAllRead)
		}

		attachmentGroup := apiGroup.Group("/attachments")
		attachmentGroup.Use(middleware.AuthMiddleware())
		{
			attachmentGroup.POST("/upload", group.AttachmentHandler.Upload)
		}

		// WS 握手经 query token 鉴权
		apiGroup.GET("/ws", group.WSHandler.Connect)
	}

	return r
}
