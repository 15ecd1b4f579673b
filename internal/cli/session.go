package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sandeepkv93/taskboard/internal/config"
	"github.com/sandeepkv93/taskboard/internal/controller"
	"github.com/sandeepkv93/taskboard/internal/logging"
	"github.com/sandeepkv93/taskboard/internal/metrics"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/storage"
	"github.com/sandeepkv93/taskboard/internal/store"
)

// session is everything one invocation needs: the loaded config, the opened
// store and the controller in front of it.
type session struct {
	cfg        config.Config
	logger     *slog.Logger
	location   *time.Location
	clock      scheduler.Clock
	repo       *storage.TaskRepository
	store      *store.Store
	controller *controller.Controller
	registry   *prometheus.Registry
	metrics    *metrics.Collector
}

func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{File: flags.configFile, EnvFile: flags.envFile})
	if err != nil {
		return config.Config{}, err
	}
	if flags.ephemeral {
		cfg.Storage.Backend = storage.BackendMemory
	}
	if flags.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// openSession loads the configuration and opens storage. Log output goes to
// logOut; the interactive board passes a file instead of the terminal.
func openSession(ctx context.Context, flags *globalFlags, logOut io.Writer) (*session, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	return openSessionWith(ctx, cfg, logging.New(logOut, cfg.Log.Level, cfg.Log.Format))
}

func openSessionWith(ctx context.Context, cfg config.Config, logger *slog.Logger) (*session, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	opts := cfg.StorageOptions()
	kv, err := storage.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", opts.Backend, err)
	}
	repo, err := storage.NewTaskRepository(kv, cfg.Storage.Key)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	clock := scheduler.InLocation(scheduler.SystemClock{}, loc)

	s, err := store.Open(ctx, repo,
		store.WithClock(clock),
		store.WithLogger(logger),
		store.WithObserver(collector),
	)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	logger.Debug("storage opened", "backend", opts.Backend, "path", opts.Path, "key", repo.Key())

	return &session{
		cfg:        cfg,
		logger:     logger,
		location:   loc,
		clock:      clock,
		repo:       repo,
		store:      s,
		controller: controller.New(s, clock, logger),
		registry:   registry,
		metrics:    collector,
	}, nil
}

func (s *session) Close(ctx context.Context) error {
	err := s.store.Close(ctx)
	if errors.Is(err, store.ErrClosed) {
		err = nil
	}
	return errors.Join(err, s.repo.Close())
}
