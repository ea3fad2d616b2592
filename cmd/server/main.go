package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/squad-optimizer/internal/api"
	"github.com/stitts-dev/squad-optimizer/internal/api/handlers"
	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
	"github.com/stitts-dev/squad-optimizer/internal/pool"
	"github.com/stitts-dev/squad-optimizer/internal/repository"
	"github.com/stitts-dev/squad-optimizer/internal/websocket"
	"github.com/stitts-dev/squad-optimizer/pkg/cache"
	"github.com/stitts-dev/squad-optimizer/pkg/config"
	"github.com/stitts-dev/squad-optimizer/pkg/database"
	"github.com/stitts-dev/squad-optimizer/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	structuredLogger := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log := logger.WithService(config.ServiceName)
	log.WithFields(logrus.Fields{
		"version":     "1.0.0",
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("Starting squad optimizer")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Redis holds the pool cache and last squads; the solver runs without it
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	opt.DB = cfg.RedisDB
	redisClient := redis.NewClient(opt)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
	}
	defer redisClient.Close()

	cacheService := cache.NewSquadCacheService(redisClient, structuredLogger)

	// Candidate source: a YAML file when configured, the database table otherwise
	var (
		source    repository.CandidateSource
		dbChecker handlers.DatabaseChecker
	)
	if cfg.PoolFile != "" {
		source = repository.NewFileSource(cfg.PoolFile)
	} else {
		db, err := database.NewOptimizerConnection(cfg.DatabaseURL, cfg.IsDevelopment())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		repo := repository.NewCandidateRepository(db.DB, cfg.PoolTable, structuredLogger)
		if cfg.IsDevelopment() {
			if err := repo.AutoMigrate(); err != nil {
				log.Fatalf("Failed to migrate candidate table: %v", err)
			}
		}
		source = repo
		dbChecker = db
	}

	candidates := pool.NewProvider(source, cacheService, pool.Config{
		CacheTTL:         cfg.PoolCacheTTL,
		RefreshSchedule:  cfg.PoolRefreshSchedule,
		BreakerThreshold: cfg.CircuitBreakerThreshold,
		LoadTimeout:      cfg.ExternalAPITimeout,
	}, structuredLogger)
	if err := candidates.Start(); err != nil {
		log.Fatalf("Failed to schedule pool refresh: %v", err)
	}
	defer candidates.Stop()

	warmCtx, cancelWarm := context.WithTimeout(ctx, cfg.ExternalAPITimeout)
	if err := candidates.Refresh(warmCtx); err != nil {
		log.WithError(err).Warn("Initial pool load failed, will retry on demand")
	}
	cancelWarm()

	engine, err := optimizer.NewEngine(optimizer.EngineConfig{
		MaxConcurrentSolves: cfg.MaxConcurrentSolves,
		SolveTimeout:        cfg.SolveTimeout(),
		NodeLimit:           cfg.SolverNodeLimit,
	}, structuredLogger)
	if err != nil {
		log.Fatalf("Failed to create optimization engine: %v", err)
	}

	wsHub := websocket.NewHub(structuredLogger)
	go wsHub.Run(ctx)

	optimizationHandler := handlers.NewOptimizationHandler(
		engine,
		candidates,
		cacheService,
		wsHub,
		cfg,
		structuredLogger,
	)
	healthHandler := handlers.NewHealthHandler(
		dbChecker,
		redisClient,
		engine,
		candidates,
		cacheService,
		wsHub,
		structuredLogger,
	)

	router := api.SetupRouter(optimizationHandler, healthHandler, wsHub.HandleWebSocket, cfg.CorsOrigins)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Squad optimizer started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down squad optimizer...")
	wsHub.BroadcastToAll(gin.H{"type": "shutdown", "message": "Server is shutting down"})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	stop()

	log.Info("Squad optimizer exited")
}
