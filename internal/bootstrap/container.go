package bootstrap

import (
	"context"
	"log"
	"time"

	"teleconsult-be/internal/config"
	"teleconsult-be/internal/controller"
	"teleconsult-be/internal/handler"
	"teleconsult-be/internal/pkg/logger"
	"teleconsult-be/internal/pkg/mailer"
	"teleconsult-be/internal/repository/implementation"
	"teleconsult-be/internal/service"
	"teleconsult-be/internal/websocket"
	"teleconsult-be/pkg/video"

	pktNats "teleconsult-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ConsultationController controller.IConsultationController

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebsocketHandler    *handler.WebsocketHandler
	WebSocketHub        *websocket.Hub

	// Background Services (Exposed for main.go to run)
	EmailDispatchService service.IEmailDispatchService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.App.ClientURL,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/realtime.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Repositories
	consultationRepo := implementation.NewConsultationRepository(db)
	messageRepo := implementation.NewChatMessageRepository(db)
	doctorRepo := implementation.NewDoctorRepository(db)
	patientRepo := implementation.NewPatientRepository(db)
	notifRepo := implementation.NewNotificationRepository(db)

	// 4. Services
	// A typed-nil publisher would slip past the service's nil check.
	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}
	chatService := service.NewChatService(
		consultationRepo,
		messageRepo,
		doctorRepo,
		patientRepo,
		eventPublisher,
		cfg.Chat.WaitlistMessageLimit,
		sysLogger,
	)
	consultationService := service.NewConsultationService(consultationRepo, messageRepo, eventPublisher, sysLogger)

	// Notification worker: NATS -> store -> websocket badge -> email queue.
	// Hub implements NotificationDelivery.
	notifService := service.NewNotificationService(notifRepo, doctorRepo, natsSub, wsHub, pubSub, wsLogger)
	if natsSub != nil {
		go notifService.Start()
	}

	emailDispatch := service.NewEmailDispatchService(pubSub, emailService)

	// Media room tokens for accepted calls.
	videoIssuer := video.NewIssuer(
		cfg.Video.AppID,
		cfg.Video.AppSecret,
		time.Duration(cfg.Video.TokenTTLMinutes)*time.Minute,
	)

	// 5. Realtime router
	wsRouter := websocket.NewRouter(wsHub, websocket.NewPresenceTracker(), chatService, consultationService, videoIssuer, wsLogger)

	return &Container{
		ConsultationController: controller.NewConsultationController(consultationService),
		NotificationHandler:    handler.NewNotificationHandler(notifService),
		WebsocketHandler:       handler.NewWebsocketHandler(wsHub, wsRouter, wsLogger),
		WebSocketHub:           wsHub,
		EmailDispatchService:   emailDispatch,
	}
}
