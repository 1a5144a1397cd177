package bootstrap

import (
	"context"
	"log"

	"leadqualify-be/internal/config"
	"leadqualify-be/internal/controller"
	"leadqualify-be/internal/handler"
	"leadqualify-be/internal/pkg/logger"
	"leadqualify-be/internal/pkg/mailer"
	"leadqualify-be/internal/repository/memory"
	"leadqualify-be/internal/repository/unitofwork"
	"leadqualify-be/internal/service"
	"leadqualify-be/internal/websocket"
	"leadqualify-be/pkg/conversation"
	"leadqualify-be/pkg/embedding"
	"leadqualify-be/pkg/enrich/diagnostic"
	"leadqualify-be/pkg/enrich/normalize"
	"leadqualify-be/pkg/enrich/tagging"
	"leadqualify-be/pkg/llm/factory"
	"leadqualify-be/pkg/retry"

	pktNats "leadqualify-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ConversationController controller.IConversationController
	EnrichmentController   controller.IEnrichmentController

	// Background Services (Exposed for main.go to run)
	ConsumerService  service.IConsumerService
	PublisherService service.IPublisherService

	// WebSockets & Alerts
	AlertHandler *handler.AlertHandler
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
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
	wsHub := websocket.NewHub(rdb, sysLogger)
	go wsHub.Run()

	// 3. AI Providers
	embeddingProvider := embedding.NewOllamaProvider(
		cfg.Ai.EmbeddingBaseURL,
		cfg.Ai.EmbeddingModel,
	)
	log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)

	llmProvider, err := factory.NewProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.LLMBaseURL,
		cfg.Ai.LLMAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Enrichment Pipeline Components
	classifier := tagging.NewClassifier(llmProvider, retry.Default(), sysLogger)
	normalizer := normalize.NewNormalizer(llmProvider, sysLogger)
	retriever := service.NewContentRetriever(uowFactory, embeddingProvider)
	generator := diagnostic.NewGenerator(llmProvider, retriever, sysLogger)

	summaryCache := memory.NewSummaryCache()

	// 5. Services
	publisherService := service.NewPublisherService(cfg.Topics.PageCrawled, pubSub)

	enrichmentService := service.NewEnrichmentService(
		uowFactory,
		llmProvider,
		embeddingProvider,
		classifier,
		normalizer,
		summaryCache,
		sysLogger,
	)
	diagnosticService := service.NewDiagnosticService(
		uowFactory,
		generator,
		summaryCache,
		sysLogger,
	)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Topics.PageCrawled,
		enrichmentService,
		diagnosticService,
	)

	conversationService := service.NewConversationService(
		uowFactory,
		conversation.NewMachine(),
		summaryCache,
		natsPub,
		wsHub,
		emailService,
		cfg.App.SalesTeamEmail,
		sysLogger,
	)

	alertHandler := handler.NewAlertHandler(wsHub, sysLogger)

	return &Container{
		ConversationController: controller.NewConversationController(conversationService),
		EnrichmentController: controller.NewEnrichmentController(
			enrichmentService,
			diagnosticService,
			publisherService,
		),

		ConsumerService:  consumerService,
		PublisherService: publisherService,

		AlertHandler: alertHandler,
		WebSocketHub: wsHub,
	}
}
