package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"flatmate/internal/adapter/api"
	"flatmate/internal/adapter/api/handler"
	apimiddleware "flatmate/internal/adapter/api/middleware"
	"flatmate/internal/adapter/api/router"
	"flatmate/internal/adapter/repository"
	"flatmate/internal/adapter/repository/memory"
	"flatmate/internal/adapter/repository/mongodb"
	domainrepo "flatmate/internal/domain/repository"
	"flatmate/internal/domain/service"
	"flatmate/internal/infrastructure/cache"
	"flatmate/internal/infrastructure/events"
	"flatmate/internal/infrastructure/firebase"
	"flatmate/internal/infrastructure/jwtauth"
	"flatmate/internal/infrastructure/metrics"
	"flatmate/internal/infrastructure/ratelimit"
	"flatmate/internal/infrastructure/websocket"
	"flatmate/internal/usecase"
	"flatmate/pkg/config"
	"flatmate/pkg/logger"
)

type repositories struct {
	users     domainrepo.UserRepository
	listings  domainrepo.ListingRepository
	interests domainrepo.InterestRepository
	messages  domainrepo.MessageRepository
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var firebaseApp *fbapp.App
	var firebaseOpt option.ClientOption
	if cfg.StoreDriver == "firestore" || cfg.AuthProvider == "firebase" {
		firebaseOpt = firebaseCredentials(cfg)
		firebaseApp, err = fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, firebaseOpt)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase: %v", err)
		}
	}

	repos := openRepositories(ctx, cfg, firebaseOpt)
	defer repos.close()

	var verifier service.IdentityVerifier
	switch cfg.AuthProvider {
	case "firebase":
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase Auth: %v", err)
		}
		verifier = firebase.NewFirebaseAuthClient(authClient)
	case "jwt":
		verifier = jwtauth.NewVerifier(cfg.JWTSecret)
	default:
		logger.Fatal("Unknown AUTH_PROVIDER %q", cfg.AuthProvider)
	}

	directory := cache.NewUserDirectory(repos.users, nil, cfg.UserCacheTTL, logger.L())
	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("Redis unavailable at %s, user names are not cached: %v", cfg.RedisAddr, err)
		} else {
			defer redisClient.Close()
			directory = cache.NewUserDirectory(repos.users, redisClient, cfg.UserCacheTTL, logger.L())
		}
	}

	var publisher service.EventPublisher = service.NopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATSURL, logger.L())
		if err != nil {
			logger.Warn("NATS unavailable, events are not published: %v", err)
		} else {
			defer natsPublisher.Close()
			publisher = natsPublisher
		}
	}

	metricsManager := metrics.NewMetricsManager("flatmate")
	limiter := ratelimit.NewRateLimiter()
	limiter.StartCleanupRoutine(ctx.Done())

	interestUseCase := usecase.NewInterestUseCase(repos.interests, repos.listings, repos.users, publisher)
	matchUseCase := usecase.NewMatchUseCase(repos.listings, repos.interests, repos.users, publisher)
	conversationUseCase := usecase.NewConversationUseCase(repos.messages, repos.interests, directory, publisher, cfg.HistoryLimit)

	wsManager := websocket.NewManager(conversationUseCase, websocket.Options{
		OperationTimeout: cfg.WSOperationTimeout,
		SendBuffer:       cfg.WSSendBuffer,
		Limiter:          limiter,
		Metrics:          metricsManager,
	})
	wsManager.Start(ctx)

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)
	handlers := handler.Setup(interestUseCase, matchUseCase, conversationUseCase, wsManager, authMiddleware, cfg.CORSOrigins)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(metricsManager.Middleware())

	e.Validator = api.NewValidator()

	router.Setup(e, handlers, authMiddleware, limiter, metricsManager.Handler())

	go func() {
		logger.Info("Starting server on port %s (store=%s, auth=%s)", cfg.ServerPort, cfg.StoreDriver, cfg.AuthProvider)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
}

func firebaseCredentials(cfg *config.Config) option.ClientOption {
	if cfg.FirebaseServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))
	}
	logger.Info("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
	return option.WithCredentialsFile(cfg.FirebaseServiceAccountPath)
}

func openRepositories(ctx context.Context, cfg *config.Config, firebaseOpt option.ClientOption) *repositories {
	switch cfg.StoreDriver {
	case "firestore":
		client, err := firestore.NewClient(ctx, cfg.FirebaseProject, firebaseOpt)
		if err != nil {
			logger.Fatal("Failed to create Firestore client: %v", err)
		}
		return &repositories{
			users:     repository.NewFirestoreUserRepository(client),
			listings:  repository.NewFirestoreListingRepository(client),
			interests: repository.NewFirestoreInterestRepository(client),
			messages:  repository.NewFirestoreMessageRepository(client),
			close:     func() { client.Close() },
		}

	case "mongo":
		client, err := mongodb.NewConnection(ctx, cfg.MongoURI, cfg.MongoConnectTimeout)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB: %v", err)
		}
		db := client.Database(cfg.MongoDatabase)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			logger.Fatal("Failed to create MongoDB indexes: %v", err)
		}
		return &repositories{
			users:     mongodb.NewUserRepository(db),
			listings:  mongodb.NewListingRepository(db),
			interests: mongodb.NewInterestRepository(db),
			messages:  mongodb.NewMessageRepository(db),
			close: func() {
				disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				client.Disconnect(disconnectCtx)
			},
		}

	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		return &repositories{
			users:     memory.NewUserRepository(),
			listings:  memory.NewListingRepository(),
			interests: memory.NewInterestRepository(),
			messages:  memory.NewMessageRepository(),
			close:     func() {},
		}
	}

	logger.Fatal("Unknown STORE_DRIVER %q", cfg.StoreDriver)
	return nil
}
