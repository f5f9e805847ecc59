package workers

import (
	"chat-hub/contract"
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GroupStatsWorker periodically samples how many session groups have a live connection.
type GroupStatsWorker struct {
	log            *slog.Logger
	registry       contract.IRegistry
	gauge          prometheus.Gauge
	metricInterval time.Duration
}

func NewGroupStatsWorker(log *slog.Logger, registry contract.IRegistry,
	gauge prometheus.Gauge, metricInterval time.Duration) *GroupStatsWorker {
	return &GroupStatsWorker{
		log:            log,
		registry:       registry,
		gauge:          gauge,
		metricInterval: metricInterval,
	}
}

func (w GroupStatsWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping group statistics")
			return nil
		case <-ticker.C:
			groups := w.registry.Groups()
			w.gauge.Set(float64(groups))
			w.log.Debug("Group statistics", "groups", groups)
		}
	}
}
