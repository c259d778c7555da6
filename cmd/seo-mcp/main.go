package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ezbizservices/seo-mcp/internal/ai"
	"github.com/ezbizservices/seo-mcp/internal/config"
	"github.com/ezbizservices/seo-mcp/internal/scrape"
	"github.com/ezbizservices/seo-mcp/keystore"
	"github.com/ezbizservices/seo-mcp/server"
	"github.com/ezbizservices/seo-mcp/server/auth"
	"github.com/ezbizservices/seo-mcp/server/oauth"
	"github.com/ezbizservices/seo-mcp/tools"
)

type options struct {
	Stdio   bool   `long:"stdio" description:"serve one anonymous session over stdin/stdout"`
	Addr    string `long:"addr" description:"listen address, overrides PORT"`
	EnvFile string `long:"env" description:"env file to load" default:".env"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	if err := godotenv.Load(opts.EnvFile); err != nil {
		slog.Debug("no env file loaded", "file", opts.EnvFile, "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)
	if cfg.Server.TokenGenerated {
		logger.Warn("TOKEN_SECRET not set, issued bearer tokens will not survive restarts")
	}

	store, closeStore, err := newKeystore(cfg.Keystore)
	if err != nil {
		logger.Error("failed to initialize keystore", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	gate := auth.NewGate(store,
		auth.WithTokenSecret(cfg.Server.TokenSecret),
		auth.WithLogger(logger),
	)

	registry, err := tools.Default(newToolDeps(ctx, cfg, logger))
	if err != nil {
		logger.Error("failed to build tool registry", "error", err)
		os.Exit(1)
	}

	bridge := oauth.New(oauth.Config{
		Issuer:      cfg.Server.PublicURL,
		ServerName:  cfg.Server.ServerName,
		TokenSecret: cfg.Server.TokenSecret,
		Logger:      logger,
	}, gate)

	srv, err := server.New(
		server.WithGate(gate),
		server.WithKeystore(store),
		server.WithTools(registry),
		server.WithBridge(bridge),
		server.WithLogger(logger),
		server.WithPublicURL(cfg.Server.PublicURL),
		server.WithAdminSecret(cfg.Server.AdminSecret),
		server.WithPagesDir(cfg.Server.PagesDir),
	)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	if opts.Stdio {
		if err := srv.Stdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("stdio session failed", "error", err)
			os.Exit(1)
		}
		return
	}

	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	startServer(ctx, addr, srv, logger)
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
}

func newKeystore(cfg config.KeystoreConfig) (keystore.Store, func(), error) {
	switch cfg.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store, err := keystore.NewStore(keystore.StoreTypeRedis,
			keystore.WithRedisClient(client),
			keystore.WithKeyPrefix(cfg.KeyPrefix),
		)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		store, err := keystore.NewStore(keystore.StoreTypeMemory)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
}

func newToolDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger) *tools.Deps {
	deps := &tools.Deps{
		Search:  scrape.NewSearcher(nil),
		Fetch:   scrape.NewFetcher(nil),
		Analyze: ai.Fallback{},
		Logger:  logger,
	}
	if cfg.AI.Enabled() {
		analyzer, err := ai.New(ctx, ai.Config{
			BaseURL: cfg.AI.BaseURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
		})
		if err != nil {
			logger.Warn("AI analyzer unavailable, using fallback", "error", err)
		} else {
			deps.Analyze = analyzer
			logger.Info("AI analyzer initialized", "model", cfg.AI.Model)
		}
	} else {
		logger.Warn("ARK credentials not configured, tool reports degrade to raw data")
	}
	return deps
}

func startServer(ctx context.Context, addr string, srv *server.Server, logger *slog.Logger) {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("listening", "addr", addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		_ = httpServer.Shutdown(shutdownCtx)
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
