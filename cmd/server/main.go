package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-chat/auth"
	"social-chat/errors"
	grpcserver "social-chat/infrastructure/grpc/server"
	httpserver "social-chat/infrastructure/http/server"
	"social-chat/internal"
	"social-chat/moderation"
	"social-chat/repositories"
	"social-chat/runtime"
	"social-chat/runtime/workers"
	"social-chat/services"
	"social-chat/storage"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Every defer runs before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	tokens, err := auth.NewTokenManager(config.JwtSecret, config.AuthTokenDuration)
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx := context.Background()

	// 2. Storage (BadgerDB and media directory)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blobs, err := storage.NewDiskBlobStore(config.MediaDir, config.MediaBaseURL, config.MaxUploadBytes, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("media store opening failed: %w", err)
	}

	userRepository := repositories.NewUserRepository(db)
	conversationRepository := repositories.NewConversationRepository(db, logger, userRepository)
	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)

	// 3. Supervision & realtime pipeline
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	registry := runtime.NewRegistry()
	orchestrator := runtime.NewOrchestrator(logger, sup, registry, config.BufferSize, config.SinkTimeout)

	filter, err := orchestrator.PrepareModeration(moderation.Censored, moderation.CensoredDir, charReplacement)
	if err != nil {
		return exitRuntime, fmt.Errorf("moderation setup failed: %w", err)
	}

	health := grpcserver.NewHealthServer(logger)
	orchestrator.Add(workers.NewStorageProbe(logger, grpcserver.ChatServiceName, storageProbe(db), health, config.HealthInterval))
	orchestrator.Add(workers.NewCapacityMonitor(logger, config.MetricInterval, config.LowCapacityThreshold, orchestrator.EventsGauge()))

	if logger.Enabled(ctx, slog.LevelDebug) {
		address := fmt.Sprintf("localhost:%d", config.DebugPort)
		logger.Info("Debug Badger inspector available", "url", "http://"+address+"/inspect")
		debug := internal.StartDebugServer(logger, db, address, "/inspect", func() map[string]any {
			return map[string]any{"Connections": registry.ConnectionCount(), "Time": time.Now().Format(time.RFC822)}
		})
		defer func() { _ = debug.Close() }()
	}

	// 4. Services & transport
	chatService := services.NewChatService(logger, conversationRepository, messageRepository, userRepository,
		orchestrator.Publisher(), orchestrator.Registry(), blobs, filter, config.MaxContentLength)
	authService := services.NewAuthService(logger, userRepository, tokens, blobs, messageRepository)
	handler := httpserver.NewHandler(logger, chatService, authService, tokens, blobs, httpserver.Config{
		IdentityTimeout:      config.IdentityTimeout,
		MaxUploadBytes:       config.MaxUploadBytes,
		ConnectionBufferSize: config.ConnectionBufferSize,
	})
	api := httpserver.NewServer(logger, config.HTTPAddress(), handler.Router())

	httpListener, err := net.Listen("tcp", config.HTTPAddress())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.HTTPAddress(), err)
	}
	grpcListener, err := net.Listen("tcp", config.GrpcAddress())
	if err != nil {
		_ = httpListener.Close()
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.GrpcAddress(), err)
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 3)
	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()
	go func() {
		if err := api.Serve(httpListener); err != nil {
			errChan <- err
		}
	}()
	go func() {
		if err := health.Serve(grpcListener); err != nil {
			errChan <- err
		}
	}()

	// 6. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 7. Graceful shutdown: stop taking requests, then drain the realtime pipeline
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	health.Stop()
	orchestrator.Stop()
	select {
	case <-orchestratorDone:
	case <-shutdownCtx.Done():
		logger.Warn("Workers did not stop in time")
	}
	logger.Info("Program stopped cleanly")

	return code, runErr
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}

// storageProbe reports whether badger still serves reads.
func storageProbe(db *badger.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if db.IsClosed() {
			return badger.ErrDBClosed
		}
		return db.View(func(txn *badger.Txn) error {
			_, err := txn.Get([]byte("health"))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		})
	}
}
