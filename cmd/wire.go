package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/weedrice/whiteboard-cli/internal/adapters/gateway"
	tomlrepo "github.com/weedrice/whiteboard-cli/internal/adapters/repo/toml"
	"github.com/weedrice/whiteboard-cli/internal/adapters/stream"
	"github.com/weedrice/whiteboard-cli/internal/adapters/term"
	filestore "github.com/weedrice/whiteboard-cli/internal/adapters/tokens/file"
	"github.com/weedrice/whiteboard-cli/internal/application"
	"github.com/weedrice/whiteboard-cli/internal/domain"
	"github.com/weedrice/whiteboard-cli/internal/ports"
)

const (
	apiBaseURLKey     = "api.base_url"
	apiTimeoutKey     = "api.timeout"
	reconnectDelayKey = "stream.reconnect_delay"
	pollIntervalKey   = "notifications.poll_interval"
)

type app struct {
	log    zerolog.Logger
	nav    *term.Navigator
	toast  *term.Toaster
	gw     *gateway.Client
	auth   *application.AuthService
	feed   *application.FeedService
	boards *application.BoardService

	pollInterval time.Duration
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg := viper.New()
	cfg.SetConfigName("config")
	cfg.SetConfigType("toml")
	cfg.AddConfigPath(filepath.Join(homeDir, ".whiteboard"))
	cfg.SetDefault(apiBaseURLKey, "http://localhost:8080/api/v1")
	cfg.SetDefault(apiTimeoutKey, "10s")
	cfg.SetDefault(reconnectDelayKey, "5s")
	cfg.SetDefault(pollIntervalKey, "60s")

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	baseURL := envOrDefault("WB_API_URL", cfg.GetString(apiBaseURLKey))

	logger := newLogger()
	nav := term.NewNavigator(os.Stderr, logger)
	toast := term.NewToaster(os.Stderr, logger)
	tokens := filestore.NewStore(filepath.Join(homeDir, ".whiteboard", "secrets"))

	sessions, err := tomlrepo.NewSessionRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire session repository: %w", err)
	}

	session, err := seedSession(tokens, sessions)
	if err != nil {
		return nil, err
	}

	gw, err := gateway.NewClient(gateway.Config{
		BaseURL:   baseURL,
		Timeout:   cfg.GetDuration(apiTimeoutKey),
		Tokens:    tokens,
		Navigator: nav,
		Toaster:   toast,
		Logger:    logger,
	}, session)
	if err != nil {
		return nil, fmt.Errorf("wire gateway: %w", err)
	}

	auth := application.NewAuthService(gw, tokens, sessions, ports.SystemClock{}, logger)
	feed := application.NewFeedService(gw, logger)

	streamClient, err := stream.NewClient(stream.Config{
		BaseURL:        baseURL,
		Tokens:         tokens,
		Logger:         logger,
		ReconnectDelay: cfg.GetDuration(reconnectDelayKey),
		Handler:        feed.HandleEvent,
	})
	if err != nil {
		return nil, fmt.Errorf("wire notification stream: %w", err)
	}
	feed.AttachStream(streamClient)

	return &app{
		log:          logger,
		nav:          nav,
		toast:        toast,
		gw:           gw,
		auth:         auth,
		feed:         feed,
		boards:       application.NewBoardService(gw),
		pollInterval: cfg.GetDuration(pollIntervalKey),
	}, nil
}

// seedSession restores the in-memory session from durable storage so a new
// process continues the previous login.
func seedSession(tokens ports.TokenStore, sessions ports.SessionRepository) (*gateway.Session, error) {
	ctx := context.Background()

	accessToken, err := tokens.Get(ctx, ports.AccessTokenKey)
	if err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		return nil, fmt.Errorf("load access token: %w", err)
	}
	refreshToken, err := tokens.Get(ctx, ports.RefreshTokenKey)
	if err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}

	session := gateway.NewSession(accessToken, refreshToken)

	snapshot, err := sessions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session snapshot: %w", err)
	}
	if snapshot.User != nil {
		session.SetUser(snapshot.User)
	}

	return session, nil
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if os.Getenv("WB_DEBUG") != "" {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
