package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dserban/dern/core/events"
	coremetrics "github.com/dserban/dern/core/metrics"
	"github.com/dserban/dern/core/model"
	"github.com/dserban/dern/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards every
// state-change event to the sink. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.Sink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				now := time.Now()
				switch ev.Kind {
				case events.KindIncident:
					if inc, ok := ev.Payload.(model.Incident); ok {
						_ = sink.RecordIncident(coremetrics.IncidentEvent{Incident: inc, Time: now})
					}
				case events.KindUnit:
					if u, ok := ev.Payload.(model.Unit); ok {
						_ = sink.RecordUnit(coremetrics.UnitEvent{Unit: u, Time: now})
					}
				case events.KindClosure:
					if c, ok := ev.Payload.(model.Closure); ok {
						_ = sink.RecordClosure(coremetrics.ClosureEvent{Closure: c, Time: now})
					}
				}
			}
		}
	}()
}

// StartPromServer serves the Prometheus scrape endpoint until ctx is done.
func StartPromServer(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
