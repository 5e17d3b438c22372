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

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"launchpad/internal/auth"
	executorclient "launchpad/internal/client/executor"
	"launchpad/internal/config"
	cronrunner "launchpad/internal/cron"
	"launchpad/internal/db"
	"launchpad/internal/handler"
	"launchpad/internal/intent"
	"launchpad/internal/logger"
	gormrepository "launchpad/internal/repository/gorm"
	"launchpad/internal/service"

	_ "launchpad/docs"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfgPath := os.Getenv("LP_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("LP_ENV_ONLY"); envOnlyRaw != "" {
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
	domain := intent.Domain{
		ChainID:           cfg.Intent.ChainID,
		VerifyingContract: common.HexToAddress(cfg.Intent.VerifyingContract),
	}

	executorHTTP := &http.Client{Timeout: cfg.Executor.Timeout}
	executor := executorclient.NewClient(executorHTTP, cfg.Executor.BaseURL)

	launchSvc := &service.LaunchService{Repo: store, Logger: logger}
	intakeSvc := &service.BidIntakeService{Repo: store, Domain: domain, Logger: logger}
	clearingSvc := &service.ClearingService{Repo: store, Logger: logger, Config: cfg.Clearing}
	tracker := &service.SettlementTracker{
		Repo:     store,
		Executor: executor,
		Logger:   logger,
		Config:   cfg.Settlement,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(auth.RequireBearerMiddleware())
	engine.Use(auth.WriteAuditMiddleware(logger))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	handler.RegisterDocs(engine)

	launchHandler := &handler.LaunchHandler{Repo: store, Launches: launchSvc, Clearing: clearingSvc}
	launchHandler.Register(engine)
	bidHandler := &handler.BidHandler{Repo: store, Intake: intakeSvc}
	bidHandler.Register(engine)
	intentHandler := &handler.IntentHandler{Repo: store, Intake: intakeSvc}
	intentHandler.Register(engine)
	settlementHandler := &handler.SettlementHandler{Repo: store}
	settlementHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add(cfg.Cron.ClearingSweep, func(ctx context.Context) {
			if err := clearingSvc.ClearDueLaunches(ctx); err != nil {
				logger.Warn("clearing sweep failed", zap.Error(err))
			}
		}); err != nil {
			logger.Warn("cron register clearing sweep failed", zap.Error(err))
		}
		if _, err := cronRunner.Add(cfg.Cron.ExpirySweep, func(ctx context.Context) {
			if n, err := store.ExpireDueFusionBids(ctx, time.Now().UTC()); err != nil {
				logger.Warn("expiry sweep failed", zap.Error(err))
			} else if n > 0 {
				logger.Info("expiry sweep", zap.Int64("expired", n))
			}
		}); err != nil {
			logger.Warn("cron register expiry sweep failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	if cfg.Settlement.Enabled {
		go func() {
			if err := tracker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("settlement tracker stopped", zap.Error(err))
			}
		}()

		if strings.TrimSpace(cfg.Executor.StreamURL) != "" {
			stream := executorclient.NewFillStream(executorclient.FillStreamOptions{
				URL:    cfg.Executor.StreamURL,
				Logger: logger,
				OrderIDProvider: func(ctx context.Context) ([]string, error) {
					return store.ListOpenExecutorOrderIDs(ctx, cfg.Settlement.BatchSize)
				},
			})
			go func() {
				err := stream.Run(ctx, func(ev executorclient.FillEvent) {
					tracker.OnFillEvent(ctx, ev)
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("executor fill stream stopped", zap.Error(err))
				}
			}()
		}
	}

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
