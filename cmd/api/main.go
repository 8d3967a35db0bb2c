package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/edulite/backend/internal/api"
	"github.com/edulite/backend/internal/auth"
	"github.com/edulite/backend/internal/config"
	"github.com/edulite/backend/internal/domain"
	"github.com/edulite/backend/internal/fcm"
	"github.com/edulite/backend/internal/repository"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting EduLite social API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to database")

	repo := repository.NewPostgresRepository(db)
	if cfg.Database.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Info("Database schema applied")
	}

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret)

	// Push is optional; without credentials notifications are stored and sent live only
	var push domain.PushSender
	fcmClient, err := fcm.NewClient(ctx, logger, cfg.Firebase.CredentialsFile)
	if err != nil {
		logger.Warn("Failed to initialize Firebase client - push notifications will be disabled", zap.Error(err))
	} else {
		push = fcmClient
		logger.Info("Firebase client initialized")
	}

	wsManager := api.NewWebSocketManager(logger)
	go wsManager.Run(ctx)

	// Services
	graph := domain.NewRelationshipGraph(repo)
	notificationService := domain.NewNotificationService(repo, push, wsManager, logger)
	friendRequestService := domain.NewFriendRequestService(repo, repo, graph, notificationService, logger)
	visibility := domain.NewVisibilityResolver(graph, repo)
	chatService := domain.NewChatService(repo, repo, domain.NewAccessControlGuard(), wsManager, notificationService, logger).
		WithPageSizes(cfg.Chat.DefaultPageSize, cfg.Chat.MaxPageSize)

	router := api.NewRouter(api.Handlers{
		Health:        api.NewHealthHandler(repo, logger),
		FriendRequest: api.NewFriendRequestHandler(friendRequestService, repo, logger),
		Profile:       api.NewProfileHandler(visibility, repo, logger),
		Chat:          api.NewChatHandler(chatService, wsManager, logger),
		Notification:  api.NewNotificationHandler(notificationService, logger),
	}, jwtManager, cfg.Server.AllowedOrigins, logger)

	repository.StartNotificationCleanup(ctx, repo, cfg.Notification.CleanupInterval, cfg.Notification.Retention, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	notificationService.Wait()

	logger.Info("Server stopped")
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.Log.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}

func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
