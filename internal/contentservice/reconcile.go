package contentservice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showcase_reconcile_runs_total",
		Help: "Number of orphaned attachment sweeps.",
	})

	reconcileRemovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showcase_reconcile_removed_total",
		Help: "Orphaned attachment files removed, by resource.",
	}, []string{"resource"})

	reconcileErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showcase_reconcile_errors_total",
		Help: "Failed orphaned attachment sweeps, by resource.",
	}, []string{"resource"})

	reconcileDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "showcase_reconcile_duration_seconds",
		Help:    "Duration of an orphaned attachment sweep across all resources.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})
)

// Reconciler periodically removes attachment files no row references.
type Reconciler struct {
	services []*EntityService
	interval time.Duration
	grace    time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	inProgress bool
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewReconciler(services []*EntityService, interval, grace time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		services: services,
		interval: interval,
		grace:    grace,
		logger:   logger.With(slog.String("component", "reconcile")),
	}
}

// Start runs a sweep every interval until ctx is cancelled or Stop is called.
func (rc *Reconciler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	rc.cancel = cancel
	rc.done = make(chan struct{})

	go rc.run(ctx)

	rc.logger.Info("reconciliation started", slog.Duration("interval", rc.interval), slog.Duration("grace", rc.grace))
}

// Stop cancels the loop and waits for a running sweep to finish.
func (rc *Reconciler) Stop() {
	if rc.cancel == nil {
		return
	}
	rc.cancel()
	<-rc.done
	rc.logger.Info("reconciliation stopped")
}

func (rc *Reconciler) run(ctx context.Context) {
	defer close(rc.done)

	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rc.RunOnce(ctx)
		}
	}
}

// RunOnce sweeps every resource once. It returns false without doing anything if a sweep is already running.
func (rc *Reconciler) RunOnce(ctx context.Context) (removed int, ran bool) {
	rc.mu.Lock()
	if rc.inProgress {
		rc.mu.Unlock()
		return 0, false
	}
	rc.inProgress = true
	rc.mu.Unlock()

	defer func() {
		rc.mu.Lock()
		rc.inProgress = false
		rc.mu.Unlock()
	}()

	start := time.Now()
	reconcileRunsTotal.Inc()

	for _, s := range rc.services {
		n, err := s.Reconcile(ctx, rc.grace)
		removed += n
		reconcileRemovedTotal.WithLabelValues(s.r.Name).Add(float64(n))
		if err != nil {
			reconcileErrorsTotal.WithLabelValues(s.r.Name).Inc()
			rc.logger.Error("reconciliation failed", slog.String("resource", s.r.Name), slog.String("error", err.Error()))
		}
	}

	reconcileDurationSeconds.Observe(time.Since(start).Seconds())

	if removed > 0 {
		rc.logger.Info("reconciliation finished", slog.Int("removed", removed), slog.Duration("took", time.Since(start)))
	}

	return removed, true
}
