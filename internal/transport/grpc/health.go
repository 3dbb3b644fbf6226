package grpc_server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "coursemarket.v1.Purchase"

// Check is a named dependency probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthChecker keeps the gRPC health status in line with its dependency probes.
type HealthChecker struct {
	srv      *health.Server
	checks   []Check
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func NewHealthChecker(logger *slog.Logger, interval time.Duration, checks ...Check) *HealthChecker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	srv := health.NewServer()
	srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthChecker{
		srv:      srv,
		checks:   checks,
		interval: interval,
		timeout:  3 * time.Second,
		logger:   logger.With("op", "HealthChecker"),
	}
}

func (h *HealthChecker) Server() healthpb.HealthServer {
	return h.srv
}

// Run probes immediately and then every interval until ctx is done.
func (h *HealthChecker) Run(ctx context.Context) {
	h.Probe(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}

// Probe runs every check once and updates the serving status.
func (h *HealthChecker) Probe(ctx context.Context) bool {
	healthy := true
	for _, c := range h.checks {
		pctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := c.Ping(pctx)
		cancel()
		if err != nil {
			healthy = false
			h.logger.Warn("dependency unhealthy", "dependency", c.Name, "err", err)
		}
	}

	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.srv.SetServingStatus(ServiceName, status)
	h.srv.SetServingStatus("", status)
	return healthy
}
