package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/drawguess/internal/api"
	"github.com/mcoot/drawguess/internal/factory"
	redisstorage "github.com/mcoot/drawguess/internal/storage/redis"
)

// ServeOptions holds the settings of the serve command
type ServeOptions struct {
	Addr        string
	StorageType string
	RedisURL    string
	SQLitePath  string
	WordsFile   string
	PublicURL   string
	LogLevel    string
	Strict      bool
}

func defaultServeOptions() ServeOptions {
	return ServeOptions{
		Addr:        getEnvOrDefault("DRAWGUESS_ADDR", ":8080"),
		StorageType: getEnvOrDefault("STORAGE_TYPE", factory.StorageTypeMemory),
		RedisURL:    os.Getenv("REDIS_URL"),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "data/drawguess.db"),
		WordsFile:   os.Getenv("WORDS_FILE"),
		PublicURL:   getEnvOrDefault("DRAWGUESS_PUBLIC_URL", "http://localhost:8080"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		Strict:      getEnvBool("DRAWGUESS_STRICT"),
	}
}

func newServeCmd() *cobra.Command {
	opts := defaultServeOptions()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runServer(ctx, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Addr, "addr", opts.Addr, "Listen address (env: DRAWGUESS_ADDR)")
	flags.StringVar(&opts.StorageType, "storage", opts.StorageType, "Storage backend: memory, redis, sqlite (env: STORAGE_TYPE)")
	flags.StringVar(&opts.RedisURL, "redis-url", opts.RedisURL, "Redis URL (env: REDIS_URL)")
	flags.StringVar(&opts.SQLitePath, "sqlite-path", opts.SQLitePath, "SQLite database file (env: SQLITE_PATH)")
	flags.StringVar(&opts.WordsFile, "words", opts.WordsFile, "Word list file, one word per line (env: WORDS_FILE)")
	flags.StringVar(&opts.PublicURL, "public-url", opts.PublicURL, "Base URL used in room invites (env: DRAWGUESS_PUBLIC_URL)")
	flags.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	flags.BoolVar(&opts.Strict, "strict", opts.Strict, "Panic on invalid state transitions (env: DRAWGUESS_STRICT)")

	return cmd
}

// FactoryConfig converts the options into an application factory config
func (o ServeOptions) FactoryConfig(logger *slog.Logger) (factory.Config, error) {
	cfg := factory.Config{
		StorageType: o.StorageType,
		SQLitePath:  o.SQLitePath,
		WordsFile:   o.WordsFile,
		Strict:      o.Strict,
		Logger:      logger,
	}

	// Configure Redis if storage type is redis
	if o.StorageType == factory.StorageTypeRedis {
		if o.RedisURL == "" {
			return cfg, fmt.Errorf("REDIS_URL required when storage is redis")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = o.RedisURL
		cfg.RedisConfig = &redisCfg
	}
	return cfg, nil
}

// ServerConfig converts the listen address into an API server config
func (o ServeOptions) ServerConfig() (api.ServerConfig, error) {
	serverCfg := api.DefaultServerConfig()
	host, portStr, err := net.SplitHostPort(o.Addr)
	if err != nil {
		return serverCfg, fmt.Errorf("invalid listen address %q: %w", o.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return serverCfg, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	serverCfg.Host = host
	serverCfg.Port = port
	return serverCfg, nil
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func runServer(ctx context.Context, opts ServeOptions) error {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(opts.LogLevel),
	}))
	slog.SetDefault(logger)

	factoryCfg, err := opts.FactoryConfig(logger)
	if err != nil {
		return err
	}
	serverCfg, err := opts.ServerConfig()
	if err != nil {
		return err
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			logger.Error("shutdown incomplete", slog.String("error", err.Error()))
		}
	}()

	// Pick up rooms left by a previous process
	if _, err := app.Hydrate(ctx); err != nil {
		logger.Warn("could not restore rooms", slog.String("error", err.Error()))
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:    logger,
		Engine:    app.Engine,
		Gateway:   app.Gateway,
		PublicURL: opts.PublicURL,
	})
	server := api.NewServer(router, serverCfg, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", opts.StorageType),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}
