package bootstrap

import (
	"context"

	"chat-app-be/internal/config"
	"chat-app-be/internal/controller"
	"chat-app-be/internal/handler"
	"chat-app-be/internal/observability"
	"chat-app-be/internal/pkg/logger"
	"chat-app-be/internal/pkg/mailer"
	"chat-app-be/internal/pkg/serverutils"
	"chat-app-be/internal/pkg/token"
	"chat-app-be/internal/realtime"
	"chat-app-be/internal/repository/memory"
	"chat-app-be/internal/repository/unitofwork"
	"chat-app-be/internal/service"
	"chat-app-be/internal/websocket"
	"chat-app-be/pkg/events"
	pktNats "chat-app-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController controller.IAuthController
	UserController controller.IUserController
	ChatController controller.IChatController

	// Realtime
	SocketHandler *handler.SocketHandler
	WebSocketHub  *websocket.Hub
	Gateway       *realtime.Gateway

	// Background Services (started by Start)
	ConsumerService service.IConsumerService
	ReceiptService  *service.ReceiptService

	MetricsRegistry *prometheus.Registry
	Logger          logger.ILogger

	natsSub *pktNats.Subscriber
	natsPub *pktNats.Publisher
	pubSub  *gochannel.GoChannel
	rdb     *redis.Client
}

// NewContainer wires every component. ctx bounds the lifetime of live socket connections.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	tokens := token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	jwtMiddleware := serverutils.NewJwtMiddleware(tokens)

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)
	otpThrottle := memory.NewOtpThrottle(cfg.Auth.OTPResendCooldown)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	publisherService := service.NewPublisherService(service.EventsTopic, pubSub)

	// 3. Infrastructure, both optional
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		var err error
		natsPub, err = pktNats.NewPublisher(ctx, cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to NATS Publisher, events stay in-process", map[string]interface{}{"error": err})
			natsPub = nil
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to NATS Subscriber", map[string]interface{}{"error": err})
			natsSub = nil
		}
	}

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to Redis, running single instance", map[string]interface{}{"error": err})
			_ = rdb.Close()
			rdb = nil
		}
	}

	// 4. Realtime core
	wsLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)
	wsHub := websocket.NewHub(rdb, wsLogger)
	realtimeStore := service.NewRealtimeStore(uowFactory)

	gateway := realtime.NewGateway(realtime.Config{
		Transport: wsHub,
		Validator: tokens,
		Messages:  realtimeStore,
		Presence:  realtimeStore,
		Events:    publisherService,
		Relay:     wsHub,
		Metrics:   metrics,
		Logger:    wsLogger,
		MatchWait: cfg.App.MatchWait,
	})
	wsHub.SetResolver(gateway.Registry().Lookup)

	// 5. Services
	receiptService := service.NewReceiptService(gateway, wsLogger)

	var forwarder service.EventForwarder
	if natsPub != nil {
		forwarder = natsPub
	}
	consumerService := service.NewConsumerService(
		pubSub,
		service.EventsTopic,
		forwarder,
		map[string]pktNats.EventHandler{
			events.TypeMessageStatusChanged: receiptService.Handle,
		},
		sysLogger,
	)

	authService := service.NewAuthService(uowFactory, emailService, tokens, otpThrottle, sysLogger, service.AuthOptions{
		OTPTTL:       cfg.Auth.OTPTTL,
		DebugEchoOTP: cfg.Auth.OTPDebugResponse && !cfg.IsProduction(),
	})
	userService := service.NewUserService(uowFactory, sysLogger)
	chatService := service.NewChatService(uowFactory, gateway, publisherService, sysLogger)

	return &Container{
		AuthController: controller.NewAuthController(authService, jwtMiddleware),
		UserController: controller.NewUserController(userService, jwtMiddleware),
		ChatController: controller.NewChatController(chatService, jwtMiddleware),

		SocketHandler: handler.NewSocketHandler(ctx, wsHub, gateway, wsLogger),
		WebSocketHub:  wsHub,
		Gateway:       gateway,

		ConsumerService: consumerService,
		ReceiptService:  receiptService,

		MetricsRegistry: registry,
		Logger:          sysLogger,

		natsSub: natsSub,
		natsPub: natsPub,
		pubSub:  pubSub,
		rdb:     rdb,
	}
}

// Start launches the background workers.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}

	if c.natsSub != nil {
		if err := c.ReceiptService.Start(ctx, c.natsSub); err != nil {
			c.Logger.Error("Bootstrap", "Failed to start receipt worker", map[string]interface{}{"error": err})
		}
	}
	return nil
}

func (c *Container) Close() {
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if err := c.pubSub.Close(); err != nil {
		c.Logger.Warn("Bootstrap", "Failed to close event bus", map[string]interface{}{"error": err})
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
}
