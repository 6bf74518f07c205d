// The radar executable runs the film-market signal pipeline: scheduler,
// worker pool and the operational HTTP server in one process.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kinoradar/signal-pipeline/internal/adapter"
	"github.com/kinoradar/signal-pipeline/internal/aggregator"
	"github.com/kinoradar/signal-pipeline/internal/api"
	"github.com/kinoradar/signal-pipeline/internal/classifier"
	"github.com/kinoradar/signal-pipeline/internal/clock/system"
	"github.com/kinoradar/signal-pipeline/internal/collector"
	"github.com/kinoradar/signal-pipeline/internal/config"
	"github.com/kinoradar/signal-pipeline/internal/logging"
	"github.com/kinoradar/signal-pipeline/internal/metrics"
	memoryq "github.com/kinoradar/signal-pipeline/internal/queue/memory"
	pubsubq "github.com/kinoradar/signal-pipeline/internal/queue/pubsub"
	redisq "github.com/kinoradar/signal-pipeline/internal/queue/redis"
	"github.com/kinoradar/signal-pipeline/internal/radar"
	"github.com/kinoradar/signal-pipeline/internal/scheduler"
	"github.com/kinoradar/signal-pipeline/internal/seed"
	memstore "github.com/kinoradar/signal-pipeline/internal/store/memory"
	pgstore "github.com/kinoradar/signal-pipeline/internal/store/postgres"
	"github.com/kinoradar/signal-pipeline/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "radar",
		Short: "Film-market signal pipeline",
		Long: `radar collects market signals for tracked film releases from news
sites, rating platforms, schedules and channels, classifies them with an
external model and keeps per-movie metrics up to date.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfgFile)
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (env vars with RADAR_ prefix override)")
	return cmd
}

type stores struct {
	sources      radar.SourceStore
	signals      radar.SignalStore
	movies       radar.MovieStore
	distributors radar.DistributorStore
}

func run(parent context.Context, cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStores, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	queue, closeQueue, err := buildQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQueue()

	if cfg.Seed.Enabled {
		seeder := seed.New(st.sources, st.movies, st.distributors, logger)
		if err := seeder.Apply(ctx); err != nil {
			return fmt.Errorf("apply seed catalog: %w", err)
		}
	}

	clk := system.New()
	registry := adapter.NewRegistry(adapter.Config{
		UserAgent: cfg.Collector.UserAgent,
		Timeout:   cfg.FetchTimeout(),
		MaxItems:  cfg.Collector.MaxItems,
	}, clk, logger)
	coll := collector.New(
		st.sources, st.signals, st.movies, registry, clk,
		cfg.Collector.Concurrency, logger,
	)

	var client radar.Classifier
	if cfg.Classifier.APIKey != "" {
		client = classifier.NewGemini(classifier.GeminiConfig{
			APIKey:   cfg.Classifier.APIKey,
			Model:    cfg.Classifier.Model,
			Endpoint: cfg.Classifier.Endpoint,
			Timeout:  time.Duration(cfg.Classifier.TimeoutSeconds) * time.Second,
		})
	} else {
		logger.Warn("classifier api key is not set; classification jobs are no-ops")
	}
	pipe := classifier.NewPipeline(st.signals, client, cfg.Classifier.Concurrency, logger)
	agg := aggregator.New(st.movies, logger)

	pool := worker.New(queue, coll, pipe, agg, worker.Config{
		MaxJobs:          cfg.Worker.MaxJobs,
		JobTimeout:       cfg.JobTimeout(),
		DefaultBatchSize: cfg.Classifier.BatchSize,
	}, logger)

	sched := scheduler.New(queue, clk, logger)
	if err := sched.RegisterDefaults(cfg.Classifier.BatchSize); err != nil {
		return fmt.Errorf("register schedules: %w", err)
	}

	apiCfg := api.Config{}
	if cfg.Auth.Enabled {
		apiCfg.APIKey = cfg.Auth.APIKey
	}
	srv := api.NewServer(queue, clk, apiCfg, logger)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pool.Run(ctx)
	}()

	sched.Start()
	logger.Info("pipeline started",
		zap.Int("port", cfg.Server.Port),
		zap.Int("max_jobs", cfg.Worker.MaxJobs),
		zap.String("db_driver", cfg.DB.Driver),
		zap.String("queue_driver", cfg.Queue.Driver),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		stop()
		logger.Error("http server failed", zap.Error(err))
	}

	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	wg.Wait()
	logger.Info("pipeline stopped")
	return nil
}

func buildStores(ctx context.Context, cfg config.Config) (stores, func(), error) {
	switch cfg.DB.Driver {
	case "postgres":
		pool, err := pgstore.NewPool(ctx, pgstore.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return stores{}, nil, err
		}
		if err := pgstore.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return stores{}, nil, err
		}
		return stores{
			sources:      pgstore.NewSourceStore(pool),
			signals:      pgstore.NewSignalStore(pool),
			movies:       pgstore.NewMovieStore(pool),
			distributors: pgstore.NewDistributorStore(pool),
		}, pool.Close, nil
	case "memory":
		signals := memstore.NewSignalStore()
		return stores{
			sources:      memstore.NewSourceStore(),
			signals:      signals,
			movies:       memstore.NewMovieStore(signals),
			distributors: memstore.NewDistributorStore(),
		}, func() {}, nil
	default:
		return stores{}, nil, fmt.Errorf("unknown db.driver %q", cfg.DB.Driver)
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (radar.Queue, func(), error) {
	switch cfg.Queue.Driver {
	case "memory":
		q := memoryq.NewQueue(cfg.Queue.Depth)
		return q, q.Close, nil
	case "redis":
		q, err := redisq.NewQueue(ctx, redisq.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init redis queue: %w", err)
		}
		return q, func() { _ = q.Close() }, nil
	case "pubsub":
		q, err := pubsubq.NewQueue(ctx, pubsubq.Config{
			ProjectID:    cfg.PubSub.ProjectID,
			TopicName:    cfg.PubSub.TopicName,
			Subscription: cfg.PubSub.Subscription,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init pubsub queue: %w", err)
		}
		return q, func() { _ = q.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue.driver %q", cfg.Queue.Driver)
	}
}
