// Package app wires the service together: storage, event bus, dispatch
// manager, movement pool, MQTT ingestion, metrics sinks and the HTTP API.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dserban/dern/api"
	"github.com/dserban/dern/config"
	"github.com/dserban/dern/core/dispatch"
	"github.com/dserban/dern/core/ingest"
	coremetrics "github.com/dserban/dern/core/metrics"
	"github.com/dserban/dern/core/movement"
	"github.com/dserban/dern/infra/logger"
	"github.com/dserban/dern/infra/metrics"
	"github.com/dserban/dern/infra/mqtt"
	"github.com/dserban/dern/infra/storage"
	"github.com/dserban/dern/internal/eventbus"
)

// Service owns every long-lived component of the backend.
type Service struct {
	cfg      *config.Config
	Manager  *dispatch.Manager
	Pool     *movement.Pool
	bus      *eventbus.Bus
	consumer *mqtt.Consumer
	sink     coremetrics.Sink
	router   http.Handler
	log      logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	cfg.Logging.Apply()
	logg := logger.New("service")
	bus := eventbus.New()

	incidents := storage.NewMemoryIncidentStore()
	units := storage.NewMemoryUnitStore()
	closures := storage.NewMemoryClosureStore()

	pool := movement.NewPool(cfg.Movement, units, bus, logger.New("movement"))
	mgr, err := dispatch.NewManager(cfg.Dispatch, incidents, units, closures,
		dispatch.NearestSelector{}, pool, bus, logger.New("dispatch"))
	if err != nil {
		return nil, fmt.Errorf("dispatch manager: %w", err)
	}
	pool.SetResolver(mgr)

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sink := metrics.NewInfluxSinkWithFallback(cfg.Metrics.InfluxURL,
			cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
		sinks = append(sinks, sink)
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	svc := &Service{
		cfg:     cfg,
		Manager: mgr,
		Pool:    pool,
		bus:     bus,
		sink:    sink,
		log:     logg,
	}
	svc.router = api.NewRouter(api.Deps{
		Manager:   mgr,
		Incidents: incidents,
		Units:     units,
		Closures:  closures,
		Bus:       bus,
		Log:       logger.New("api"),
	})

	if cfg.MQTT.Enabled {
		consumer, err := mqtt.NewConsumer(cfg.MQTT, incidents, ingest.NewEnricher(), bus, logger.New("mqtt"))
		if err != nil {
			return nil, fmt.Errorf("mqtt consumer: %w", err)
		}
		svc.consumer = consumer
	}
	return svc, nil
}

// Run starts the HTTP listeners and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: ":" + s.cfg.HTTP.Port, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("HTTP API listening on :%s", s.cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases every resource held by the service.
func (s *Service) Close() error {
	if s.consumer != nil {
		s.consumer.Close()
	}
	s.Pool.Shutdown()
	s.bus.Close()
	return nil
}
