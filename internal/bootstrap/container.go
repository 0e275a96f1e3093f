package bootstrap

import (
	"context"
	"log"

	"ai-mindmap-be/internal/config"
	"ai-mindmap-be/internal/controller"
	"ai-mindmap-be/internal/handler"
	"ai-mindmap-be/internal/pkg/logger"
	"ai-mindmap-be/internal/repository/implementation"
	"ai-mindmap-be/internal/repository/unitofwork"
	"ai-mindmap-be/internal/service"
	"ai-mindmap-be/internal/websocket"
	"ai-mindmap-be/pkg/connector"
	"ai-mindmap-be/pkg/embedding"
	"ai-mindmap-be/pkg/scheduler"
	"ai-mindmap-be/pkg/secrets"

	pktNats "ai-mindmap-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	IngestionController   controller.IIngestionController
	MindMapController     controller.IMindMapController
	ProviderKeyController controller.IProviderKeyController

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	// Background workers, started by Start.
	queue         *scheduler.QueueScheduler
	notifications *service.NotificationService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Task queue (in-process watermill channel)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)
	queue := scheduler.NewQueueScheduler(pubSub, "ingestion.tasks")

	// 3. Embedding provider
	var embeddingProvider embedding.Provider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
		log.Printf("[INFO] Using embedding provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	case "gemini":
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using embedding provider: GEMINI")
	default:
		log.Printf("[INFO] No embedding provider configured, chunks are stored without vectors")
	}

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS publisher: %v", err)
		natsPub = nil
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS subscriber: %v", err)
		natsSub = nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// Typed-nil guard: only hand the publisher to services when it
	// actually connected.
	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}

	// 5. Secrets (per-user LLM keys, encrypted at rest)
	keyStore := implementation.NewProviderKeyStore(implementation.NewProviderKeyRepository(db))
	secretsService, err := secrets.NewService(keyStore, cfg.App.SecretsMasterKey)
	if err != nil {
		log.Printf("[WARN] Secrets service disabled: %v", err)
		secretsService = nil
	}

	// 6. Services
	connectors := connector.NewRegistry(connector.Config{
		SerperKey: cfg.Search.SerperKey,
		TavilyKey: cfg.Search.TavilyKey,
		BraveKey:  cfg.Search.BraveKey,
	})

	ingestionService := service.NewIngestionService(
		uowFactory,
		connectors,
		queue,
		embeddingProvider,
		eventPublisher,
		rdb,
		sysLogger,
	)
	queue.Bind(func(ctx context.Context, task scheduler.Task) error {
		jobId, err := uuid.Parse(task.ID)
		if err != nil {
			return err
		}
		return ingestionService.Process(ctx, jobId)
	})

	mindmapService := service.NewMindMapService(
		uowFactory,
		ingestionService,
		secretsService,
		eventPublisher,
		cfg.Keys,
		cfg.Stream,
		sysLogger,
	)

	notifService := service.NewNotificationService(natsSub, wsHub, wsLogger)
	notifHandler := handler.NewNotificationHandler(wsHub, wsLogger)

	return &Container{
		IngestionController:   controller.NewIngestionController(ingestionService),
		MindMapController:     controller.NewMindMapController(mindmapService, sysLogger),
		ProviderKeyController: controller.NewProviderKeyController(secretsService),

		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,

		queue:         queue,
		notifications: notifService,
	}
}

// Start launches the background workers: the ingestion task queue and
// the event-to-websocket bridge.
func (c *Container) Start(ctx context.Context) {
	if err := c.queue.Start(ctx); err != nil {
		log.Printf("[WARN] Failed to start ingestion queue: %v", err)
	}
	c.notifications.Start()
}
