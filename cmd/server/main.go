package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Latte72R/typing-backend/internal/api"
	"github.com/Latte72R/typing-backend/internal/app/realtime"
	"github.com/Latte72R/typing-backend/internal/app/service"
	"github.com/Latte72R/typing-backend/internal/app/worker"
	"github.com/Latte72R/typing-backend/internal/common/logging"
	"github.com/Latte72R/typing-backend/internal/common/security"
	"github.com/Latte72R/typing-backend/internal/domain/repository"
	"github.com/Latte72R/typing-backend/internal/platform/config"
	"github.com/Latte72R/typing-backend/internal/platform/database"
	"github.com/Latte72R/typing-backend/internal/platform/queue"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	logger, err := logging.New(os.Getenv("APP_ENV"))
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// 1. Configuration
	config.Load(logger)
	logger.Info("configuration loaded")

	// 2. JWT
	security.InitJWT()

	// 3. Database
	database.Connect(logger)
	defer database.Close(logger)

	// 4. Redis
	queue.ConnectRedis(logger)
	defer queue.CloseRedis(logger)

	// 5. Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	refreshRepo := repository.NewPgRefreshTokenRepository(database.DB)
	contestRepo := repository.NewPgContestRepository(database.DB)
	promptRepo := repository.NewPgPromptRepository(database.DB)
	entryRepo := repository.NewPgEntryRepository(database.DB)
	sessionRepo := repository.NewPgSessionRepository(database.DB)
	reviewJobRepo := repository.NewPgReviewJobRepository(database.DB)

	// 6. Realtime leaderboard fan-out
	publisher := realtime.NewRedisPublisher(queue.RDB)
	hub := realtime.NewHub(queue.RDB, logger)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)
	go hub.Subscribe(hubCtx)

	// 7. Services
	authService := service.NewAuthService(userRepo, refreshRepo)
	contestService := service.NewContestService(contestRepo)
	promptService := service.NewPromptService(promptRepo, database.DB)
	typingStore := service.NewTypingStore(
		database.DB,
		contestRepo,
		promptRepo,
		entryRepo,
		sessionRepo,
		reviewJobRepo,
		publisher,
		queue.RDB,
		logger,
	)

	// 8. Anti-cheat review worker
	reviewWorker := worker.NewReviewWorker(queue.RDB, reviewJobRepo, sessionRepo, logger)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go reviewWorker.Start(workerCtx)
	logger.Info("review worker started")

	// 9. HTTP router and server
	router := api.NewRouter(authService, contestService, promptService, typingStore, hub, logger)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	metricsServer := &http.Server{
		Addr:    ":" + config.AppConfig.MetricsPort,
		Handler: promhttp.Handler(),
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("api server starting", zap.String("port", config.AppConfig.APIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server failed", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("metrics server starting", zap.String("port", config.AppConfig.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shutting down")

	hubCancel()
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", zap.Error(err))
	}

	logger.Info("server and workers stopped gracefully")
}
