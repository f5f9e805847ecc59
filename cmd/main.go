package main

import (
	"chat-hub/auth"
	"chat-hub/infrastructure/websocket"
	"chat-hub/moderation"
	"chat-hub/observability"
	"chat-hub/repositories"
	"chat-hub/runtime"
	"chat-hub/runtime/workers"
	"chat-hub/services"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"unicode/utf8"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components and keeps the deferred cleanups reachable before exit.
func run() error {
	// 1. Configuration & Logger
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf(".env loading failed: %w", err)
	}
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if config.LimitMessages != nil && *config.LimitMessages <= 0 {
		return fmt.Errorf("config error: LIMIT_MESSAGES must be positive, got %d", *config.LimitMessages)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	identities := repositories.NewIdentityRepository(db)
	tokens := repositories.NewTokenRepository(db)
	sessions := repositories.NewSessionRepository(db, log)
	conversations := repositories.NewConversationRepository(db, log, config.LimitMessages)

	moderator, err := loadModerator(log, config)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}

	// 3. Services
	metrics := observability.NewMetrics()
	registry := runtime.NewRegistry()
	signer := auth.NewSigner(config.JWTSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(log, signer, tokens, auth.NewTokenLookup(log, signer, tokens, identities))
	presence := services.NewPresenceService(log, sessions, registry)
	broadcaster := services.NewBroadcaster(log, sessions, registry, metrics, config.DeliveryTimeout)
	chat := services.NewChatService(log, identities, sessions, conversations, broadcaster, moderator, config.MaxContentLength)

	handler := websocket.NewHandler(log, chat, authService, presence, metrics, websocket.Options{
		AuthTimeout:    config.AuthTimeout,
		WriteTimeout:   config.WriteTimeout,
		PongTimeout:    config.PongTimeout,
		PingInterval:   config.PingInterval,
		BufferSize:     config.ConnectionBufferSize,
		MaxMessageSize: config.MaxMessageSize,
	})
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised workers, Run blocks until the context is done
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewHTTPServerWorker(log, address, websocket.NewRouter(handler, metrics)).WithDrain(handler.Wait),
		workers.NewGroupStatsWorker(log, registry, metrics.GroupsActive, config.MetricInterval),
	)
	log.Info("Starting chat server", "address", address)
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}

// loadModerator returns nil when no dictionary directory is configured.
func loadModerator(log *slog.Logger, config Config) (*moderation.Moderator, error) {
	if config.CensoredWordsPath == "" {
		log.Info("Moderation disabled")
		return nil, nil
	}
	dir := filepath.Clean(config.CensoredWordsPath)
	dictionary, err := moderation.NewLoader(os.DirFS(dir)).LoadAll(".")
	if err != nil {
		return nil, err
	}
	log.Info(fmt.Sprintf("%d censored files loaded %v", len(dictionary.Languages), dictionary.Languages))
	log.Info(fmt.Sprintf("%d unique censored words loaded", len(dictionary.Words)))

	replacement, _ := utf8.DecodeRuneInString(config.CharacterReplacement)
	if replacement == utf8.RuneError {
		replacement = '*'
	}
	return moderation.NewDictionaryModerator(dictionary, replacement, log)
}
