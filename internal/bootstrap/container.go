package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-counselor-be/internal/config"
	"ai-counselor-be/internal/controller"
	"ai-counselor-be/internal/handler"
	"ai-counselor-be/internal/pkg/logger"
	"ai-counselor-be/internal/pkg/mailer"
	"ai-counselor-be/internal/repository/memory"
	"ai-counselor-be/internal/repository/unitofwork"
	"ai-counselor-be/internal/service"
	"ai-counselor-be/internal/websocket"
	"ai-counselor-be/pkg/counsel/alert"
	"ai-counselor-be/pkg/counsel/analysis"
	"ai-counselor-be/pkg/counsel/pipeline"
	"ai-counselor-be/pkg/counsel/response"
	"ai-counselor-be/pkg/counsel/risk"
	"ai-counselor-be/pkg/llm/factory"
	"ai-counselor-be/pkg/lock"

	pktNats "ai-counselor-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const memoryCacheTTL = 10 * time.Minute

type Container struct {
	// Controllers
	SessionController  controller.ISessionController
	WellnessController controller.IWellnessController

	// Background Services (Exposed for main.go to run)
	ConsumerService    service.IConsumerService
	SafetyAlertService *service.SafetyAlertService
	Orchestrator       *pipeline.Orchestrator

	// WebSockets
	RealtimeHandler *handler.RealtimeHandler
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	memoryCache := memory.NewMemoryCache(memoryCacheTTL)

	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		c.closers = append(c.closers, natsSub.Close)
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

	var locker lock.Locker
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Session locks stay in-process", err)
		_ = rdb.Close()
		rdb = nil
		locker = lock.NewLocalLocker()
	} else {
		locker = lock.NewRedisLocker(rdb)
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/realtime.log")
	wsHub := websocket.NewHub(rdb, wsLogger)

	// 4. AI components
	llmProvider, err := factory.NewLLMProvider(context.Background(), cfg.Ai)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	analyzer := analysis.NewLLMAnalyzer(llmProvider, cfg.Ai.AnalysisModel)
	generator := response.NewLLMGenerator(llmProvider)
	monitor := risk.NewMonitor(cfg.Pipeline.EscalationThreshold)

	// 5. Safety alert channels
	notifiers := []alert.Notifier{alert.NewLogNotifier(sysLogger)}
	if natsPub != nil {
		notifiers = append(notifiers, alert.NewNatsNotifier(natsPub))
	}
	if cfg.SMTP.OnCallEmail != "" {
		emailService := mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
		)
		notifiers = append(notifiers, alert.NewMailNotifier(emailService, cfg.SMTP.OnCallEmail))
	}

	// 6. Pipeline
	publisherService := service.NewPublisherService(cfg.Pipeline.SubmitTopic, pubSub)
	orchestrator := pipeline.NewOrchestrator(pipeline.ConfigFrom(cfg.Pipeline), pipeline.Deps{
		UowFactory: uowFactory,
		Analyzer:   analyzer,
		Generator:  generator,
		Monitor:    monitor,
		Notifier:   alert.NewMultiNotifier(notifiers...),
		Locker:     locker,
		Dispatcher: service.NewSubmitDispatcher(publisherService),
		Observer:   wsHub,
		Cache:      memoryCache,
		Logger:     sysLogger,
	})

	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Pipeline.SubmitTopic, orchestrator)
	if natsSub != nil {
		c.SafetyAlertService = service.NewSafetyAlertService(natsSub, sysLogger)
	}
	c.Orchestrator = orchestrator

	// 7. Services & Controllers
	sessionService := service.NewSessionService(uowFactory, orchestrator, memoryCache, cfg.Pipeline.WaitTimeout, sysLogger)
	wellnessService := service.NewWellnessService(uowFactory)

	c.SessionController = controller.NewSessionController(sessionService)
	c.WellnessController = controller.NewWellnessController(wellnessService)
	c.RealtimeHandler = handler.NewRealtimeHandler(wsHub, cfg.App.JWTSecret, wsLogger)
	c.WebSocketHub = wsHub

	return c
}

// Close releases broker and cache connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
