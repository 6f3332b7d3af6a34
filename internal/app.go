package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/config"
	"github.com/0xRichardL/narrative-pipeline/internal/kafka"
	"github.com/0xRichardL/narrative-pipeline/internal/news"
	"github.com/0xRichardL/narrative-pipeline/internal/rest"
	"github.com/0xRichardL/narrative-pipeline/internal/sentiment"
	"github.com/0xRichardL/narrative-pipeline/internal/services"
	"github.com/0xRichardL/narrative-pipeline/internal/storage"
	"github.com/0xRichardL/narrative-pipeline/internal/store"
	"github.com/0xRichardL/narrative-pipeline/internal/twelvedata"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// App centralizes dependency wiring for the pipeline.
type App struct {
	cfg    config.Config
	logger *log.Logger

	redis     *redis.Client
	db        *storage.SQLStore
	publisher *kafka.EventPublisher

	queue    *store.IngestionQueue
	settings *store.MockSettingsStore
	tickers  *news.TickerSearch

	Seeder    *services.SeederService
	Worker    *services.WorkerService
	Sync      *services.MarketSyncService
	Status    *services.MarketStatusService
	scheduler *services.Scheduler

	httpServer *http.Server
}

// NewRedisClient builds the client shared by the queue and the flag store.
func NewRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// NewApp builds an App with all required dependencies. The database must be
// reachable; Redis, Kafka and the remote providers are contacted lazily.
func NewApp(ctx context.Context, cfg config.Config, logger *log.Logger) (*App, error) {
	db, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, db: db}
	a.redis = NewRedisClient(cfg)
	a.queue = store.NewIngestionQueue(a.redis, cfg.QueueKey, cfg.ProcessingKey)
	a.settings = store.NewMockSettingsStore(a.redis, cfg.MockSettingsKey)

	var publisher services.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		a.publisher = kafka.NewEventPublisher(cfg)
		publisher = a.publisher
	} else {
		logger.Printf("KAFKA_BROKERS not set, pipeline events are not published")
	}

	var model sentiment.Scorer
	if cfg.GeminiAPIKey != "" {
		gemini, err := sentiment.NewGeminiScorer(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			a.cleanup()
			return nil, err
		}
		model = gemini
	} else {
		logger.Printf("GEMINI_API_KEY not set, only mocked scoring will succeed")
	}
	gate := sentiment.NewGate(a.settings, model, sentiment.NewMockScorer())

	yahoo := news.NewYahooClient(cfg.YahooSearchURL, cfg.YahooRSSURL, cfg.NewsCount, logger)
	a.tickers = news.NewTickerSearch(yahoo)
	quotes := twelvedata.NewClient(cfg.TwelveDataBaseURL, cfg.TwelveDataAPIKey, cfg.TwelveDataMinInterval, logger)

	a.Seeder = services.NewSeederService(db, a.queue, logger)
	a.Worker = services.NewWorkerService(a.queue, yahoo, gate, db, publisher, cfg.WorkerTimeBudget, logger)
	a.Sync = services.NewMarketSyncService(quotes, db, cfg.Universe, cfg.QuoteBatchSize, publisher, logger)
	a.Status = services.NewMarketStatusService(db, cfg.StaleAfter, logger)
	a.scheduler = services.NewScheduler(logger, services.PipelineJobs(a.Seeder, a.Worker, a.Sync,
		cfg.SeedInterval, cfg.WorkInterval, cfg.SyncInterval)...)

	return a, nil
}

// Migrate applies the SQL schema.
func (a *App) Migrate(ctx context.Context) error {
	return a.db.Migrate(ctx)
}

// Run serves HTTP, and the scheduler when enabled, until ctx cancellation or
// a fatal error.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.SchedulerEnabled {
		g.Go(func() error {
			if err := a.scheduler.Start(gctx); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return a.runHTTPServer(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (a *App) runHTTPServer(ctx context.Context) error {
	r, srv := rest.NewServer(a.cfg, map[string]rest.Pinger{
		"redis":    redisPinger{a.redis},
		"database": a.db,
	})
	a.httpServer = srv
	rest.Mount(r, a.cfg.CronSecret,
		rest.NewCronController(a.Seeder, a.Worker, a.Sync, a.logger),
		rest.NewAdminController(a.settings, a.queue, a.db),
		rest.NewMarketController(a.Status, a.db, a.tickers),
	)
	if a.cfg.CronSecret == "" {
		a.logger.Printf("CRON_SECRET not set, cron and admin endpoints reject every request")
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Printf("HTTP server started at: %s", srv.Addr)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	// App context shutdown:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		err := <-serverErr
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	// HTTP server error:
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Close releases every client the App owns.
func (a *App) Close() {
	a.cleanup()
}

func (a *App) cleanup() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Printf("error closing Kafka publisher: %v", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Printf("error closing Redis client: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Printf("error closing database: %v", err)
		}
	}
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
