package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/frame-dx-server/internal/api"
	"github.com/frame-dx-server/internal/cache"
	"github.com/frame-dx-server/internal/config"
	"github.com/frame-dx-server/internal/database"
	"github.com/frame-dx-server/internal/domain"
	"github.com/frame-dx-server/internal/feedback"
	"github.com/frame-dx-server/internal/health"
	"github.com/frame-dx-server/internal/kb"
	"github.com/frame-dx-server/internal/logging"
	"github.com/frame-dx-server/internal/repository"
	"github.com/frame-dx-server/internal/service"
)

func main() {
	// A .env file is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}

	// Load configuration
	configManager, err := config.NewManager(os.Getenv("FRAMEDX_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)

	// Handle shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configManager, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func run(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	cfg := configManager.GetConfig()

	// Frame store
	loader := kb.FileLoader(cfg.Frames.File)
	initial, err := loader(ctx)
	if err != nil {
		return fmt.Errorf("failed to load frames: %w", err)
	}
	frames := kb.NewHolder(initial, loader, logger)
	logger.WithFields(logrus.Fields{
		"source":         frameSource(cfg.Frames.File),
		"frames":         initial.Len(),
		"frames_version": initial.Version(),
	}).Info("Frame store loaded")

	checker := health.NewChecker(cfg.Server.HealthCheckTimeout, logger, health.Frames(frames))

	// Result cache
	resultCache, redisCache := buildCache(ctx, cfg.Cache, logger)
	if redisCache != nil {
		defer func() {
			if err := redisCache.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close Redis cache")
			}
		}()
		checker.Register(health.Redis(redisCache))
	}

	// Diagnosis history
	var history domain.HistoryRepository
	if cfg.Database.Enabled {
		db, err := openDatabase(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		history = repository.NewHistoryRepository(db.Pool, logger)
		checker.Register(health.Database(db))
	}

	// Feedback store
	feedbackStore, err := openFeedbackStore(configManager)
	if err != nil {
		return err
	}
	if feedbackStore != nil {
		defer feedbackStore.Close()
		checker.Register(health.Feedback(feedbackStore))
	}

	engine := service.NewRankingEngine(frames, cfg.Engine, logger)
	diagnosis := service.NewDiagnosisService(logger, engine, resultCache, history)

	server := api.NewServer(configManager, api.Dependencies{
		Frames:    frames,
		Diagnosis: diagnosis,
		Feedback:  feedbackStore,
		Health:    checker,
		Logger:    logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		reloadOnHangup(gctx, frames, logger)
		return nil
	})
	return g.Wait()
}

func frameSource(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}

// buildCache stacks the in-memory tier in front of Redis. The Redis tier is
// returned separately so the caller can close and health check it; it is nil
// when unconfigured or unreachable at startup.
func buildCache(ctx context.Context, cfg domain.CacheConfig, logger *logrus.Logger) (cache.Cache, *cache.RedisCache) {
	if !cfg.Enabled {
		return cache.Noop{}, nil
	}

	memory := cache.NewMemoryCache(cfg.MaxItems, cfg.DefaultTTL)
	if cfg.RedisURL == "" {
		return memory, nil
	}

	redisCache, err := cache.NewRedisCache(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("Redis cache unavailable, using memory cache only")
		return memory, nil
	}
	return cache.NewTiered(memory, redisCache), redisCache
}

func openDatabase(ctx context.Context, cfg domain.DatabaseConfig, logger *logrus.Logger) (*database.DB, error) {
	dbCfg := database.ConfigFromDomain(cfg)

	if cfg.AutoMigrate {
		runner, err := database.NewMigrationRunner(dbCfg.URL(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create migration runner: %w", err)
		}
		err = runner.Up(ctx)
		if closeErr := runner.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close migration runner")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	db, err := database.NewConnection(ctx, dbCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// openFeedbackStore returns a nil interface when feedback is disabled.
func openFeedbackStore(configManager *config.Manager) (feedback.Store, error) {
	cfg := configManager.GetConfig().Feedback
	switch cfg.Backend {
	case "sqlite":
		store, err := feedback.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open feedback store: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := feedback.NewPostgresStoreFromURL(configManager.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to open feedback store: %w", err)
		}
		return store, nil
	default:
		return nil, nil
	}
}

// reloadOnHangup rebuilds the frame store each time the process receives
// SIGHUP. A failed reload keeps the current snapshot.
func reloadOnHangup(ctx context.Context, frames *kb.Holder, logger *logrus.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			logger.Info("SIGHUP received, reloading frame store")
			if _, err := frames.Reload(ctx); err != nil {
				logger.WithError(err).Error("Frame store reload failed")
			}
		}
	}
}
