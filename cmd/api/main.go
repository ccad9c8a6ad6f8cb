package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/detomata-com/kamclient/internal/config"
	"github.com/detomata-com/kamclient/internal/db"
	"github.com/detomata-com/kamclient/internal/events"
	apphttp "github.com/detomata-com/kamclient/internal/http"
	"github.com/detomata-com/kamclient/internal/http/handlers"
	"github.com/detomata-com/kamclient/internal/repositories"
	"github.com/detomata-com/kamclient/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	accountRepo := repositories.NewAccountRepo(pool)
	tokenRepo := repositories.NewTokenRepo(pool)
	purchaseRepo := repositories.NewPurchaseRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	mailer := services.NewMailClient(cfg.ResendAPIKey, cfg.EmailFrom, log)
	authService := services.NewAuthService(accountRepo, tokenRepo, mailer, cfg, log)
	deviceService := services.NewDeviceService(accountRepo, tokenRepo, mailer, publisher, cfg, log)
	pairingService := services.NewPairingService(accountRepo, tokenRepo, publisher, cfg, log)
	purchaseService := services.NewPurchaseService(accountRepo, purchaseRepo, publisher, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, log)
	deviceHandler := handlers.NewDeviceHandler(deviceService, log)
	pairingHandler := handlers.NewPairingHandler(pairingService, log)
	purchaseHandler := handlers.NewPurchaseHandler(purchaseService, log)
	accountHandler := handlers.NewAccountHandler(purchaseService, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, deviceHandler, pairingHandler, purchaseHandler, accountHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
