package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"petalpaint/internal/config"
	"petalpaint/internal/database"
	"petalpaint/internal/handlers"
	"petalpaint/internal/logger"
	"petalpaint/internal/middleware"
	"petalpaint/internal/notify"
	"petalpaint/internal/repositories"
	"petalpaint/internal/services"
	"petalpaint/pkg/rabbitmq"
	"petalpaint/pkg/stripepay"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookLedgerTTL = 72 * time.Hour

// App is the assembled storefront API.
type App struct {
	Fiber *fiber.App
	Hub   *notify.Hub

	db    *gorm.DB
	redis *redis.Client
	mq    *rabbitmq.Client
	log   *zap.Logger
}

// Option overrides a collaborator, mostly for tests.
type Option func(*options)

type options struct {
	processor services.PaymentProcessor
}

// WithPaymentProcessor replaces the Stripe client.
func WithPaymentProcessor(p services.PaymentProcessor) Option {
	return func(o *options) { o.processor = p }
}

// New connects every backing service and registers all routes.
func New(cfg config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db)
		return nil, err
	}

	a := &App{db: db, log: log}

	// --- Repositories ---
	productRepo := repositories.NewGORMProductRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	ledger := a.eventLedger(cfg)

	// --- Notifications ---
	a.Hub = notify.NewHub(log)
	publisher := a.orderPublisher(cfg)

	processor := o.processor
	if processor == nil {
		if cfg.StripeSecretKey == "" {
			log.Warn("STRIPE_SECRET_KEY is not set, checkout will fail")
		}
		processor = stripepay.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	}

	// --- Services ---
	productService := services.NewProductService(productRepo)
	cartService := services.NewCartService(cartRepo, productRepo, log)
	paymentService := services.NewPaymentService(cartRepo, orderRepo, productRepo, ledger, processor, publisher, cfg.Currency, log)
	orderService := services.NewOrderService(orderRepo, productRepo, publisher, log)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL, log)

	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		if err := authService.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to seed admin user: %w", err)
		}
	}

	// --- Fiber ---
	a.Fiber = fiber.New(fiber.Config{
		AppName:      "petalpaint",
		ErrorHandler: errorHandler(log),
	})
	a.Fiber.Use(recover.New())
	a.Fiber.Use(cors.New())
	a.Fiber.Use(logger.RequestLogger(log))

	api := a.Fiber.Group("/api")
	api.Get("/health", a.health)

	authRequired := middleware.AuthRequired(authService, log)
	adminOnly := middleware.AdminOnly()
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)

	handlers.NewAuthHandler(authService, log).RegisterRoutes(api, authRequired, limiter.Handler())
	handlers.NewProductHandler(productService, log).RegisterRoutes(api, authRequired, adminOnly)
	handlers.NewCartHandler(cartService, log).RegisterRoutes(api, authRequired)
	handlers.NewPaymentHandler(paymentService, log).RegisterRoutes(api, authRequired)
	handlers.NewOrderHandler(orderService, log).RegisterRoutes(api, authRequired, adminOnly)
	handlers.NewNotificationHandler(a.Hub, log).RegisterRoutes(api, authRequired)

	return a, nil
}

func (a *App) eventLedger(cfg config.Config) repositories.EventLedger {
	if cfg.RedisURL == "" {
		return repositories.NewMemoryEventLedger(webhookLedgerTTL)
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		a.log.Warn("Invalid REDIS_URL, keeping webhook ledger in memory", zap.Error(err))
		return repositories.NewMemoryEventLedger(webhookLedgerTTL)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		a.log.Warn("Redis unreachable, keeping webhook ledger in memory", zap.Error(err))
		client.Close()
		return repositories.NewMemoryEventLedger(webhookLedgerTTL)
	}

	a.redis = client
	a.log.Info("Webhook ledger stored in Redis")
	return repositories.NewRedisEventLedger(client, webhookLedgerTTL)
}

func (a *App) orderPublisher(cfg config.Config) services.EventPublisher {
	if cfg.RabbitMQURL == "" {
		return a.Hub
	}
	mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange}, a.log)
	if err != nil {
		a.log.Warn("RabbitMQ unavailable, delivering order events locally", zap.Error(err))
		return a.Hub
	}
	if err := mq.Consume(a.Hub.HandleDelivery); err != nil {
		a.log.Warn("RabbitMQ consumer failed, delivering order events locally", zap.Error(err))
		mq.Close()
		return a.Hub
	}
	a.mq = mq
	return notify.NewBrokerPublisher(mq)
}

func (a *App) health(c *fiber.Ctx) error {
	status := fiber.Map{
		"success":  true,
		"status":   "healthy",
		"time":     time.Now().Format(time.RFC3339),
		"database": "connected",
		"broker":   a.mq != nil,
		"redis":    a.redis != nil,
	}
	if sqlDB, err := a.db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	return c.JSON(status)
}

// Close releases every backing connection.
func (a *App) Close() error {
	var errs []error
	if a.mq != nil {
		errs = append(errs, a.mq.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, database.Close(a.db))
	}
	return errors.Join(errs...)
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("Unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"message": message,
		})
	}
}
