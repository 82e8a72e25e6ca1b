package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/drawguess/internal/dependencies/clock"
	"github.com/mcoot/drawguess/internal/dependencies/random"
	"github.com/mcoot/drawguess/internal/gateway"
	"github.com/mcoot/drawguess/internal/services/game"
	"github.com/mcoot/drawguess/internal/services/room"
	"github.com/mcoot/drawguess/internal/services/session"
	"github.com/mcoot/drawguess/internal/services/timer"
	"github.com/mcoot/drawguess/internal/services/words"
	"github.com/mcoot/drawguess/internal/storage"
	"github.com/mcoot/drawguess/internal/storage/memory"
	redisstorage "github.com/mcoot/drawguess/internal/storage/redis"
	"github.com/mcoot/drawguess/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQLite = "sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Store  storage.Store
	Writer *storage.AsyncWriter

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Words    *words.Service
	Registry *room.Registry
	Timers   *timer.Scheduler
	Machine  *game.Machine
	Engine   *session.Engine
	Hubs     *gateway.HubManager
	Gateway  *gateway.Gateway

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// WordsFile replaces the built-in word list (optional)
	WordsFile string
	// Strict makes invalid state transitions panic instead of failing the action
	Strict bool
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file (required if StorageType is "sqlite")
	SQLitePath string
	// WriterBuffer bounds the number of pending persistence writes (optional)
	WriterBuffer int
	// Gateway holds websocket settings; the zero value means gateway.DefaultConfig()
	Gateway *gateway.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	wordService := words.New(rnd)
	if cfg.WordsFile != "" {
		if err := wordService.LoadFromFile(cfg.WordsFile); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("load words: %w", err)
		}
	}

	gatewayCfg := gateway.DefaultConfig()
	if cfg.Gateway != nil {
		gatewayCfg = *cfg.Gateway
	}

	return newWithDependencies(store, clk, rnd, wordService, cfg.Strict, cfg.WriterBuffer, gatewayCfg, logger), nil
}

func openStore(cfg Config) (storage.Store, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypeSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		return sqlite.New(cfg.SQLitePath)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'sqlite'")
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Store,
	clk clock.Clock,
	rnd random.Random,
	wordService *words.Service,
	strict bool,
	writerBuffer int,
	gatewayCfg gateway.Config,
	logger *slog.Logger,
) *App {
	writer := storage.NewAsyncWriter(store, writerBuffer, logger)
	registry := room.NewRegistry(writer, rnd, logger)
	timers := timer.New(clk, writer, logger)
	machine := game.NewMachine(wordService, clk, rnd, logger, strict)
	hubs := gateway.NewHubManager(logger)
	engine := session.New(registry, machine, timers, hubs, logger)

	return &App{
		Store:    store,
		Writer:   writer,
		Clock:    clk,
		Random:   rnd,
		Words:    wordService,
		Registry: registry,
		Timers:   timers,
		Machine:  machine,
		Engine:   engine,
		Hubs:     hubs,
		Gateway:  gateway.New(engine, hubs, rnd, gatewayCfg, logger),
		logger:   logger,
	}
}

// Hydrate restores rooms persisted by a previous process
func (a *App) Hydrate(ctx context.Context) (int, error) {
	return a.Engine.Hydrate(ctx, a.Store)
}

// Close stops the engine, drops live connections and flushes pending writes before closing the store.
// Rooms stay persisted so the next process can hydrate them.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Engine.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("engine shutdown: %w", err))
	}
	a.Gateway.Close()
	a.Hubs.Close()
	if err := a.Writer.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush writes: %w", err))
	}
	a.Writer.Close()
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
