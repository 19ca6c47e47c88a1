package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/app"
	"github.com/rivoaiteam/rivo-partners/internal/common/logger"
	"github.com/rivoaiteam/rivo-partners/internal/config"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
	"github.com/rivoaiteam/rivo-partners/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "rivo-partners")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	if a.DB != nil {
		applied, err := repository.Migrate(ctx, a.DB, log)
		if err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
		if applied > 0 {
			log.Info("Database migrated", zap.Int("applied", applied))
		}
	}
	if created, err := a.ConfigStore.Seed(ctx); err != nil {
		log.Warn("Config seed failed", zap.Error(err))
	} else if len(created) > 0 {
		log.Info("Config seeded", zap.Strings("keys", created))
	}

	srv := service.NewServer(cfg.HTTP, a.Router(), log)
	if err := srv.Run(ctx); err != nil {
		log.Error("HTTP server stopped", zap.Error(err))
		return
	}
	log.Info("Shutdown complete")
}
