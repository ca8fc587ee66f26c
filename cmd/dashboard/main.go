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

	"github.com/iliyamo/ward-bed-registry/internal/client"
	"github.com/iliyamo/ward-bed-registry/internal/config"
	"github.com/iliyamo/ward-bed-registry/internal/handler"
	"github.com/iliyamo/ward-bed-registry/internal/metrics"
	"github.com/iliyamo/ward-bed-registry/internal/model"
	"github.com/iliyamo/ward-bed-registry/internal/optimistic"
	"github.com/iliyamo/ward-bed-registry/internal/plan"
	"github.com/iliyamo/ward-bed-registry/internal/registry"
	"github.com/iliyamo/ward-bed-registry/internal/router"
	"github.com/iliyamo/ward-bed-registry/internal/session"
	"github.com/iliyamo/ward-bed-registry/internal/wardview"
)

func main() {
	config.LoadEnvFile()
	cfg := config.LoadDashboard()

	logger, err := config.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	store := client.NewStoreClient(cfg.BedStoreURL, cfg.RequestTimeout, logger.Named("bedstore"), m)
	forecast := client.NewForecastClient(cfg.ForecastURL, cfg.RequestTimeout, cfg.ForecastRetries, logger.Named("forecast"), m)

	reg := registry.New(store, logger.Named("registry"))
	ctl := optimistic.NewController(store, reg.Get, func(ctx context.Context, sess session.Session, bed model.Bed) {
		if err := reg.Refresh(ctx, sess); err != nil {
			reg.Apply(bed)
		}
	}, logger.Named("optimistic"), m)
	reg.OnRefresh(ctl.Reconcile)
	plans := plan.NewCache(forecast, cfg.PlanMaxAge, logger.Named("plan"), m)
	board := wardview.NewBoard(reg, store, plans, logger.Named("wardview"), m)
	defer board.Close()

	h := handler.NewDashboardHandler(reg, ctl, board, plans, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	router.RegisterRoutes(e)
	router.RegisterDashboard(e, h, cfg.JWTSecret, m)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("dashboard listening", zap.String("addr", addr), zap.String("bed_store", cfg.BedStoreURL), zap.String("forecast", cfg.ForecastURL))
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
}
