// Package app wires the process: storage, caches, collaborators, the mapper
// set, the change-feed relay and the operations server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"tranquility/internal/changefeed"
	"tranquility/internal/geolocation"
	"tranquility/internal/mapper"
	"tranquility/internal/platform/config"
	"tranquility/internal/platform/database"
	"tranquility/internal/platform/httpserver"
	"tranquility/internal/platform/metrics"
	redisclient "tranquility/internal/platform/redis"
	"tranquility/internal/refdata"
	"tranquility/internal/storage"
	"tranquility/pkg/platform/circuit"
	"tranquility/pkg/platform/tx"
)

// App owns every long-lived dependency of the server.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	DB       *sql.DB
	Store    *storage.Store
	Tx       *tx.Manager
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Redis    *redisclient.Client
	RefData  *refdata.Service
	Outbox   *changefeed.Outbox
	Mappers  *mapper.Set

	producer *changefeed.KafkaProducer
}

// New connects to every configured backend. Redis, geocoding and Kafka are
// optional; the database is not.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	db, applied, err := database.OpenAndMigrate(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if len(applied) > 0 {
		logger.InfoContext(ctx, "migrations applied", "files", applied)
	}
	a.Store = storage.New(db)
	a.Tx = tx.NewManager(db, tx.WithTimeout(cfg.Database.TxTimeout), tx.WithRollbackHook(a.Metrics.IncrementRollbacks))

	refOpts := []refdata.Option{refdata.WithLogger(logger), refdata.WithMetrics(a.Metrics)}
	if a.Redis, err = redisclient.New(ctx, cfg.Redis); err != nil {
		a.Close()
		return nil, err
	}
	if a.Redis != nil {
		refOpts = append(refOpts, refdata.WithCache(refdata.NewRedisCache(a.Redis.Client), cfg.Redis.RefDataTTL))
	}
	a.RefData = refdata.New(a.Store, refOpts...)

	a.Outbox = changefeed.NewOutbox(a.Store, cfg.Kafka.Topic)
	a.Mappers = mapper.NewSet(mapper.Deps{
		Exec:     a.Store,
		Tx:       a.Tx,
		Geocoder: newGeocoder(cfg.Geolocation, logger, a.Metrics),
		RefData:  a.RefData,
	}, []mapper.Option{
		mapper.WithLogger(logger),
		mapper.WithMetrics(a.Metrics),
		mapper.WithChangeRecorder(a.Outbox),
		mapper.WithActorCheck(cfg.Audit.VerifyActor),
	})

	if len(cfg.Kafka.Brokers) > 0 {
		if a.producer, err = changefeed.NewKafkaProducer(cfg.Kafka.Brokers); err != nil {
			a.Close()
			return nil, err
		}
		if err := a.producer.EnsureTopic(ctx, cfg.Kafka.Topic, 3, 1); err != nil {
			logger.WarnContext(ctx, "could not ensure change feed topic", "topic", cfg.Kafka.Topic, "error", err)
		}
	}
	return a, nil
}

func newGeocoder(cfg config.GeolocationConfig, logger *slog.Logger, m *metrics.Metrics) geolocation.Geocoder {
	if cfg.APIKey == "" {
		return geolocation.Disabled{}
	}
	return geolocation.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout,
		geolocation.WithLogger(logger),
		geolocation.WithMetrics(m),
		geolocation.WithBreaker(circuit.New("geolocation",
			circuit.WithFailureThreshold(cfg.FailureThreshold),
			circuit.WithSuccessThreshold(cfg.SuccessThreshold))),
	)
}

func (a *App) checks() map[string]httpserver.Check {
	checks := map[string]httpserver.Check{"database": a.DB.PingContext}
	if a.Redis != nil {
		checks["redis"] = a.Redis.Health
	}
	if a.producer != nil {
		checks["kafka"] = a.producer.Ping
	}
	return checks
}

// Run serves the operations endpoints and relays the change feed until ctx
// is cancelled, then shuts the server down.
func (a *App) Run(ctx context.Context) error {
	srv := httpserver.New(a.Config.Server.Addr, httpserver.NewOpsRouter(a.Logger, a.Registry, a.checks()))
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "ops server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if a.producer != nil {
		relay := changefeed.NewRelay(a.Outbox, a.producer,
			changefeed.WithInterval(a.Config.Kafka.PollInterval),
			changefeed.WithBatchSize(a.Config.Kafka.BatchSize),
			changefeed.WithLogger(a.Logger),
			changefeed.WithMetrics(a.Metrics),
		)
		g.Go(func() error {
			if err := relay.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		a.Logger.InfoContext(ctx, "no kafka brokers configured, change feed relay disabled")
	}
	return g.Wait()
}

// Close releases every backend connection.
func (a *App) Close() {
	if a.producer != nil {
		a.producer.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
