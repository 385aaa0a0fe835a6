package main

import (
	"context"
	"log"
	"time"

	"anoa.com/blooddonation/internal/bootstrap"
	"anoa.com/blooddonation/internal/config"
	"anoa.com/blooddonation/internal/server"
	"anoa.com/blooddonation/pkg/database"
	"anoa.com/blooddonation/pkg/logger"
	"anoa.com/blooddonation/pkg/response"
	"anoa.com/blooddonation/pkg/validator"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat, "blooddonation")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck
	response.SetLogger(zlog)

	if err := validator.RegisterCustomValidations(); err != nil {
		zlog.Fatal("failed to register validations", zap.Error(err))
	}

	db, err := database.Connect(cfg.Database.DSN(), cfg.IsDevelopment())
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := bootstrap.Migrate(db); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}

	if cfg.IsDevelopment() && cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := bootstrap.SeedAdminUser(db, cfg.AdminEmail, cfg.AdminPassword, zlog); err != nil {
			zlog.Fatal("failed to seed admin user", zap.Error(err))
		}
	}

	redisClient := connectRedis(cfg.RedisURL, zlog)

	srv, err := server.NewServer(cfg, db, redisClient, zlog)
	if err != nil {
		zlog.Fatal("failed to build server", zap.Error(err))
	}

	if err := srv.Run(":" + cfg.Port); err != nil {
		zlog.Fatal("server exited with error", zap.Error(err))
	}
}

// connectRedis returns nil when REDIS_URL is unset or unreachable; the
// server then runs without throttling and live notifications.
func connectRedis(url string, zlog *zap.Logger) *redis.Client {
	if url == "" {
		zlog.Warn("REDIS_URL not set, running without redis")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		zlog.Fatal("invalid REDIS_URL", zap.Error(err))
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zlog.Warn("redis unreachable, running without redis", zap.Error(err))
		_ = client.Close()
		return nil
	}

	zlog.Info("connected to redis")
	return client
}
