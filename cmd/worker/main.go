package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/detomata-com/kamclient/internal/config"
	"github.com/detomata-com/kamclient/internal/db"
	"github.com/detomata-com/kamclient/internal/repositories"
	"go.uber.org/zap"
)

// The token sweep is advisory only. Every read path classifies expiry from
// expires_at on its own, so a slow or dead worker never makes an expired
// token usable. The sweep just keeps the table from growing without bound.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	tokenRepo := repositories.NewTokenRepo(pool)

	log.Info("worker started", zap.Duration("sweep_interval", cfg.TokenSweepInterval))

	sweepTicker := time.NewTicker(cfg.TokenSweepInterval)
	defer sweepTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			runTokenSweep(ctx, tokenRepo, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func runTokenSweep(ctx context.Context, tokenRepo *repositories.TokenRepo, log *zap.Logger) {
	removed, err := tokenRepo.DeleteExpired(ctx)
	if err != nil {
		log.Error("token sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		log.Info("expired tokens swept", zap.Int64("removed", removed))
	}
}
