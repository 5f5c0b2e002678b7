package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"predmarket/internal/config"
	cronrunner "predmarket/internal/cron"
	"predmarket/internal/db"
	"predmarket/internal/events"
	"predmarket/internal/handler"
	"predmarket/internal/logger"
	gormrepository "predmarket/internal/repository/gorm"
	"predmarket/internal/seed"
	"predmarket/internal/service"

	_ "predmarket/docs"
)

func main() {
	cfgPath := os.Getenv("PM_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PM_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	hub := events.NewHub(cfg.Events.SubscriberBuffer, logger)

	ledger := &service.Ledger{
		Repo:           store,
		Logger:         logger,
		Events:         hub,
		InitialBalance: mustDecimal(cfg.Ledger.InitialBalance, "1000.000000"),
		FaucetAmount:   mustDecimal(cfg.Ledger.FaucetAmount, "1000.000000"),
	}
	markets := &service.MarketService{Repo: store, Ledger: ledger, Logger: logger, Events: hub}
	settlement := &service.SettlementService{Repo: store, Ledger: ledger, Logger: logger, Events: hub}
	sweeper := &service.Sweeper{
		Repo:       store,
		Settlement: settlement,
		Logger:     logger,
		BatchSize:  cfg.Sweep.BatchSize,
	}
	trading := &service.TradingService{Repo: store, Ledger: ledger, Logger: logger, Events: hub}

	if cfg.Seed.Enabled {
		if err := seed.Run(context.Background(), store, markets, logger); err != nil {
			logger.Warn("seeding failed", zap.Error(err))
		}
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(handler.CORSMiddleware())
	engine.Use(handler.RequestLogMiddleware(logger))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	marketHandler := &handler.MarketHandler{Markets: markets, Settlement: settlement}
	marketHandler.Register(engine)
	positionHandler := &handler.PositionHandler{Markets: markets}
	positionHandler.Register(engine)
	walletHandler := &handler.WalletHandler{Ledger: ledger}
	walletHandler.Register(engine)
	if cfg.Trading.Enabled {
		tradeHandler := &handler.TradeHandler{Trading: trading}
		tradeHandler.Register(engine)
	}
	eventsHandler := &handler.EventsHandler{Hub: hub, Logger: logger, Heartbeat: cfg.Events.Heartbeat}
	eventsHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Sweep.Enabled {
		_, err = cronRunner.Add(cfg.Sweep.Schedule, func(ctx context.Context) {
			if err := sweeper.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("market sweep failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("cron add sweep failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}

func mustDecimal(raw, fallback string) decimal.Decimal {
	if v, err := decimal.NewFromString(strings.TrimSpace(raw)); err == nil {
		return v
	}
	return decimal.RequireFromString(fallback)
}
