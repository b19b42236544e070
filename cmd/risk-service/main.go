// cmd/risk-service/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"heart-risk-workers/internal/common/aws"
	"heart-risk-workers/internal/common/camunda"
	"heart-risk-workers/internal/common/config"
	"heart-risk-workers/internal/common/database"
	"heart-risk-workers/internal/common/logger"
	"heart-risk-workers/internal/common/observability"
	"heart-risk-workers/internal/predictor"
	"heart-risk-workers/internal/server"

	nrr "heart-risk-workers/internal/workers/risk/notify-risk-result"
	phr "heart-risk-workers/internal/workers/risk/predict-heart-risk"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

type pingCloser interface {
	Ping(ctx context.Context) error
	Close() error
}

// pingOrClose pings c and closes it when the ping fails so a retry does not
// leave the previous pool open.
func pingOrClose(ctx context.Context, c pingCloser) error {
	if err := c.Ping(ctx); err != nil {
		if closeErr := c.Close(); closeErr != nil {
			return fmt.Errorf("%w (close: %v)", err, closeErr)
		}
		return err
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting risk service...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()
	if err := obs.EnableTracing(cfg.Tracing); err != nil {
		zapLog.Fatal("tracing setup failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Model artifacts: any failure aborts startup ---
	pred, err := predictor.Init(cfg.Model, log, predictor.WithObservability(obs))
	if err != nil {
		zapLog.Fatal("model initialization failed", zap.Error(err))
	}

	readyChecks := map[string]server.ReadyCheck{}
	pipelineOpts := predictor.PipelineOptions{
		Predictor:          pred,
		RequirePersistence: cfg.Model.RequirePersistence,
		Logger:             log,
	}
	var predictions server.PredictionLookup

	// --- PostgreSQL ---
	if cfg.Database.Postgres.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pingOrClose(ctx, pg)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Database.Postgres.Migrate {
			version, err := database.Migrate(pg.DB, cfg.Database.Postgres.Database)
			if err != nil {
				zapLog.Fatal("postgres migration failed", zap.Error(err))
			}
			zapLog.Info("PostgreSQL schema migrated", zap.Uint("version", version))
		}

		repo := database.NewPredictionRepository(pg.DB)
		pipelineOpts.Store = repo
		predictions = repo
		readyChecks["postgres"] = pg.Ready
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Redis ---
	if cfg.Database.Redis.Enabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return pingOrClose(ctx, rdb)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()

		pipelineOpts.Cache = database.NewResultCache(rdb.Client, time.Duration(cfg.Database.Redis.CacheTTL)*time.Second)
		readyChecks["redis"] = rdb.Ping
		zapLog.Info("Redis connected successfully")
	}

	// --- Elasticsearch ---
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return pingOrClose(ctx, esClient)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}

		defer esClient.Close()

		pipelineOpts.Indexer = esClient
		readyChecks["elasticsearch"] = esClient.Ping
		zapLog.Info("Elasticsearch connected successfully")
	}

	pipeline := predictor.NewPipeline(pipelineOpts)

	// --- Zeebe workers ---
	var zeebe *camunda.Client
	var jobWorkers []worker.JobWorker
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.Connect(ctx, camunda.ConfigFromApp(cfg.Camunda), log)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		readyChecks["zeebe"] = zeebe.HealthCheck

		predictHandler, err := phr.NewHandler(phr.HandlerOptions{
			Config:        phr.LoadConfig(cfg),
			Pipeline:      pipeline,
			Observability: obs,
			Logger:        log,
		})
		if err != nil {
			zapLog.Fatal("failed to create predict-heart-risk handler", zap.Error(err))
		}
		if w := camunda.StartWorker(zeebe.GetClient(), phr.TaskType, config.GetWorkerConfig(cfg, phr.TaskType), predictHandler, log); w != nil {
			jobWorkers = append(jobWorkers, w)
		}

		if config.IsWorkerEnabled(cfg, nrr.TaskType) {
			notifyHandler, err := newNotifyHandler(ctx, cfg, log)
			if err != nil {
				zapLog.Fatal("failed to create notify-risk-result handler", zap.Error(err))
			}
			if w := camunda.StartWorker(zeebe.GetClient(), nrr.TaskType, config.GetWorkerConfig(cfg, nrr.TaskType), notifyHandler, log); w != nil {
				jobWorkers = append(jobWorkers, w)
			}
		}
		zapLog.Info("Workers registered", zap.Int("count", len(jobWorkers)))
	}

	// --- HTTP API, health & metrics ---
	api := server.New(server.Options{
		Pipeline:    pipeline,
		Predictions: predictions,
		ReadyChecks: readyChecks,
		Logger:      log,
	})
	httpServer := server.NewHTTPServer(cfg.Server.Addr(), api.Handler(),
		config.GetDuration(cfg.Server.ReadTimeout), config.GetDuration(cfg.Server.WriteTimeout))

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range jobWorkers {
		w.Close()
		w.AwaitClose()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Risk service stopped gracefully")
}

func newNotifyHandler(ctx context.Context, cfg *config.Config, log logger.Logger) (*nrr.Handler, error) {
	opts := nrr.HandlerOptions{Config: nrr.LoadConfig(cfg), Logger: log}
	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
		opts.Email = sesClient
	}
	if cfg.Notifications.SMS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		opts.SMS = snsClient
	}
	return nrr.NewHandler(opts)
}
