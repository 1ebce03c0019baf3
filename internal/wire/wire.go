package wire

import (
	"Mercato/internal/api"
	"Mercato/internal/api/config"
	"Mercato/internal/api/handler"
	"Mercato/internal/job"
	"Mercato/internal/pkg/cache"
	croninit "Mercato/internal/pkg/cron"
	"Mercato/internal/pkg/es"
	"Mercato/internal/pkg/kafka"
	pkgmongo "Mercato/internal/pkg/mongo"
	"Mercato/internal/realtime"
	"Mercato/internal/repository"
	"Mercato/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	KafkaManager *kafka.ConsumerManager
	CronMgr      *croninit.Manager
	Producer     kafka.Producer
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	convRepo := repository.NewConversationRepo(db)
	messageRepo := repository.NewMessageRepo(db)
	notificationRepo := pkgmongo.NewNotificationRepo(mongoDB)
	messageESRepo := es.NewMessageRepo()

	redisCache := cache.NewRedisCache()
	publisher := realtime.NewPublisher()
	registry := realtime.NewSessionRegistry()

	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, err
	}

	convService := service.NewConversationService(convRepo, userRepo, messageRepo, notificationRepo, redisCache, publisher)
	userService := service.NewUserService(userRepo, convService)
	messageService := service.NewMessageService(messageRepo, convRepo, messageESRepo, redisCache, publisher, producer)
	notificationService := service.NewNotificationService(notificationRepo)
	attachmentService := service.NewAttachmentService()

	handlers := &api.HandlersGroup{
		UserHandler:         handler.NewUserHandler(userService),
		ConversationHandler: handler.NewConversationHandler(convService),
		MessageHandler:      handler.NewMessageHandler(messageService),
		AttachmentHandler:   handler.NewAttachmentHandler(attachmentService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		WSHandler:           handler.NewWsHandler(registry, convService, messageService, userService),
	}

	router := api.SetupRouter(handlers)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, messageESRepo)
	if err != nil {
		return nil, err
	}

	cronMgr := croninit.NewCronManager(
		job.NewAttachmentCleanupJob(),
		job.NewPresenceSweepJob(userRepo),
	)

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		KafkaManager: kafkaMgr,
		CronMgr:      cronMgr,
		Producer:     producer,
	}, nil
}
