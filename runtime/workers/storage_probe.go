package workers

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthReporter is satisfied by the grpc health server.
type HealthReporter interface {
	SetServingStatus(service string, servingStatus grpc_health_v1.HealthCheckResponse_ServingStatus)
}

// StorageProbe periodically checks the store and publishes the result as the serving
// status of the chat service.
type StorageProbe struct {
	log      *slog.Logger
	service  string
	probe    func(ctx context.Context) error
	reporter HealthReporter
	interval time.Duration
	healthy  *bool
}

func NewStorageProbe(log *slog.Logger, service string, probe func(ctx context.Context) error,
	reporter HealthReporter, interval time.Duration) *StorageProbe {
	return &StorageProbe{log: log, service: service, probe: probe, reporter: reporter, interval: interval}
}

func (w *StorageProbe) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.check(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping storage probe")
			return nil
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *StorageProbe) check(ctx context.Context) {
	err := w.probe(ctx)
	healthy := err == nil
	if w.healthy != nil && *w.healthy == healthy {
		return
	}
	w.healthy = &healthy

	if healthy {
		w.log.Info("Storage is reachable", "service", w.service)
		w.reporter.SetServingStatus(w.service, grpc_health_v1.HealthCheckResponse_SERVING)
		return
	}
	w.log.Error("Storage probe failed", "service", w.service, "error", err)
	w.reporter.SetServingStatus(w.service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}
