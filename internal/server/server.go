package server

import (
	config "mlbattle/configs"
	"mlbattle/internal/dbs"
	"mlbattle/internal/events"
	"mlbattle/internal/handlers"
	"mlbattle/internal/leaderboard"
	"mlbattle/internal/lifecycle"
	"mlbattle/internal/logger"
	"mlbattle/internal/middlewares"
	"mlbattle/internal/repositories"
	"mlbattle/internal/scoring"
	"mlbattle/internal/services"
	"mlbattle/internal/store"
	"mlbattle/internal/workerpool"

	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	eventStream = "scoring_events"
	eventGroup  = "persisters"
)

func StartGinServer() {
	logger.InitLogger()
	defer logger.SyncLogger()

	cfg := config.LoadConfig()

	db, err := dbs.Init(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := dbs.InitRedis(ctx, cfg.RedisAddr); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer dbs.CloseRedis()

	subsRepo := repositories.NewSubmissionRepository(db)
	userRepo := repositories.NewUserRepository(db)
	cache := services.NewLeaderboardCache(dbs.RedisClient)
	tokenService := services.NewTokenService(cfg.JWTSecret)

	calculator := scoring.NewCalculator(scoring.DefaultConfig())
	submissionStore := store.NewSubmissionStore(calculator)
	aggregator := leaderboard.NewAggregator(submissionStore)
	hub := events.NewHub()

	window := time.Duration(cfg.ProblemWindowHours) * time.Hour
	publisher := workerpool.NewStreamPublisher(dbs.RedisClient, eventStream)
	manager := lifecycle.NewManager(submissionStore, aggregator, hub, publisher).
		WithSubmissionLimit(cfg.MaxSubmissionsPerUser).
		WithAutoRotate(window)

	rehydrate(ctx, subsRepo, submissionStore, manager)
	if _, ok := manager.Current(); !ok {
		manager.Rotate(window)
	}

	pool := workerpool.NewPersistWorkerPool(cfg.NumberOfWorkers, dbs.RedisClient, eventStream, eventGroup, subsRepo)
	if err := pool.Start(ctx); err != nil {
		logger.Log.Error("Failed starting worker pool")
		log.Fatalf("failed to start worker pool: %v", err)
	}
	defer pool.Stop()

	manager.StartPoller(time.Duration(cfg.PollIntervalSeconds) * time.Second)
	defer manager.Stop()

	router := gin.New()
	router.Use(middlewares.ErrorHandlerMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	auth := middlewares.AuthMiddleware(tokenService)
	optionalAuth := middlewares.OptionalAuthMiddleware(tokenService)

	authHandler := handlers.NewAuthHandler(userRepo, tokenService)
	authHandler.RegisterRoutes(router)

	problemHandler := handlers.NewProblemHandler(manager)
	problemHandler.RegisterRoutes(router)

	submissionHandler := handlers.NewSubmissionHandler(manager, submissionStore)
	submissionHandler.RegisterRoutes(router, auth)

	leaderboardHandler := handlers.NewLeaderboardHandler(manager, aggregator, submissionStore, cache, cfg.LeaderboardLimit)
	leaderboardHandler.WatchInvalidations(hub)
	leaderboardHandler.RegisterRoutes(router, optionalAuth)

	port := ":" + cfg.ServerPort
	log.Printf("Starting server on port %s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// rehydrate reloads problems and submissions from MySQL so a restart does not
// lose the in-memory state. Failures are logged and skipped: the server can
// start cold.
func rehydrate(ctx context.Context, repo repositories.SubmissionRepository,
	s *store.SubmissionStore, manager *lifecycle.Manager) {
	problems, err := repo.ListProblems(ctx)
	if err != nil {
		logger.Log.Warn("Failed to restore problems", zap.Error(err))
	} else if len(problems) > 0 {
		manager.Restore(problems)
	}

	subs, err := repo.ListSubmissions(ctx)
	if err != nil {
		logger.Log.Warn("Failed to restore submissions", zap.Error(err))
		return
	}

	if loaded := s.Load(subs); loaded > 0 {
		logger.Log.Info("Submissions restored", zap.Int("count", loaded))
	}
}
