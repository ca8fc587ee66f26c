package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/ward-bed-registry/internal/config"
	"github.com/iliyamo/ward-bed-registry/internal/database"
	"github.com/iliyamo/ward-bed-registry/internal/handler"
	"github.com/iliyamo/ward-bed-registry/internal/middleware"
	"github.com/iliyamo/ward-bed-registry/internal/queue"
	"github.com/iliyamo/ward-bed-registry/internal/repository"
	"github.com/iliyamo/ward-bed-registry/internal/router"
	"github.com/iliyamo/ward-bed-registry/internal/service"
)

func main() {
	config.LoadEnvFile()
	cfg := config.Load()

	logger, err := config.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("database migration failed", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient(logger)
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	h := handler.NewStoreHandler(
		repository.NewBedRepo(db),
		repository.NewWardRepo(db),
		service.NewPublisher(cfg.AMQPURL, logger),
		middleware.NewCacheInvalidator(cacheCfg, rdb),
		logger,
	)

	if cfg.EventsConsumer {
		go func() {
			if err := queue.StartBedEventConsumer(ctx, cfg.AMQPURL, cfg.EventLogDir, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("bed event consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	router.RegisterRoutes(e)
	router.RegisterStore(e, h, cfg.JWTSecret,
		middleware.NewRedisCache(cacheCfg, rdb),
		middleware.NewTokenBucket(rlCfg, rdb, logger.Named("ratelimit")),
	)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("bed store listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	h.Close()
}
