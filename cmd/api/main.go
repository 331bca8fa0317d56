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
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"chatsync/internal/adapter/api"
	"chatsync/internal/adapter/api/handler"
	apimiddleware "chatsync/internal/adapter/api/middleware"
	"chatsync/internal/adapter/api/router"
	"chatsync/internal/adapter/repository"
	"chatsync/internal/infrastructure/firebase"
	"chatsync/internal/infrastructure/ratelimit"
	"chatsync/internal/infrastructure/websocket"
	"chatsync/internal/usecase"
	"chatsync/pkg/config"
	"chatsync/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := repository.OpenBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open %s backend: %v", cfg.StoreBackend, err)
	}
	defer backend.Close()

	var verifier usecase.TokenVerifier
	if backend.Firebase != nil {
		verifier = firebase.NewFirebaseAuthClient(backend.Firebase.Auth)
	}
	devTokens := cfg.IsDevelopment() && cfg.StoreBackend == config.BackendMemory
	if devTokens {
		logger.Warn("Accepting %s<uid> tokens", firebase.DevTokenPrefix)
		verifier = firebase.NewDevTokenVerifier(verifier)
	}
	if verifier == nil {
		logger.Fatal("No token verifier available: the memory backend only runs in development")
	}

	userUseCase := usecase.NewUserUseCase(backend.Users)
	authUseCase := usecase.NewAuthUseCase(verifier, userUseCase)
	messageStore := usecase.NewMessageStore(backend.Messages, backend.Chats)
	messageStream := usecase.NewMessageStream(backend.Messages, cfg.SideEffectTimeout)
	threadAggregator := usecase.NewThreadAggregator(backend.Messages, backend.Chats)

	wsManager := websocket.NewManager(func(userID string, online bool) {
		presenceCtx, cancel := context.WithTimeout(context.Background(), cfg.SideEffectTimeout)
		defer cancel()
		// Failures are logged by the use case.
		_ = userUseCase.SetPresence(presenceCtx, userID, online)
	})
	wsManager.Start(ctx)

	rateLimiter := ratelimit.NewRateLimiter(cfg.SendRateLimit)
	rateLimiter.StartCleanupRoutine(ctx)

	handler.Setup(handler.Dependencies{
		UserUseCase:      userUseCase,
		AuthUseCase:      authUseCase,
		MessageStore:     messageStore,
		MessageStream:    messageStream,
		ThreadAggregator: threadAggregator,
		RateLimiter:      rateLimiter,
		WSManager:        wsManager,
		Backend:          cfg.StoreBackend,
		DevTokens:        devTokens,
	})

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	router.Setup(e, apimiddleware.NewAuthMiddleware(authUseCase), apimiddleware.NewRateLimitMiddleware(rateLimiter))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server on port %s (%s backend)...", cfg.ServerPort, cfg.StoreBackend)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return err
		}

		// Hijacked WebSocket connections outlive e.Shutdown; stop their bumps
		// before draining the ones in flight.
		messageStream.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
