package scheduler

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MrSnakeDoc/streammarks/internal/domain"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
)

// Recounter rebuilds the bookmark counter from the stored bookmarks
type Recounter interface {
	Recount(ctx context.Context) (domain.RecountResult, error)
}

// CountReconciler periodically recounts bookmarks so the counter heals
// from writes made outside the service
type CountReconciler struct {
	recounter Recounter
	logger    logger.Logger
	clock     clockwork.Clock
	interval  time.Duration
	stopCh    chan struct{}
	done      chan struct{}
}

// NewCountReconciler creates a reconciler. A nil clock means the real clock.
func NewCountReconciler(
	recounter Recounter,
	log logger.Logger,
	clock clockwork.Clock,
	interval time.Duration,
) *CountReconciler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CountReconciler{
		recounter: recounter,
		logger:    log,
		clock:     clock,
		interval:  interval,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start begins periodic reconciliation. The first run happens after one interval.
func (cr *CountReconciler) Start(ctx context.Context) error {
	ticker := cr.clock.NewTicker(cr.interval)
	go func() {
		defer close(cr.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				cr.Reconcile(ctx)
			case <-cr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reconciler and waits for a running recount to finish
func (cr *CountReconciler) Stop() {
	close(cr.stopCh)
	<-cr.done
}

// Reconcile runs one recount. Failures are logged, the next tick tries again.
func (cr *CountReconciler) Reconcile(ctx context.Context) {
	res, err := cr.recounter.Recount(ctx)
	if err != nil {
		cr.logger.Error("bookmark count reconciliation failed",
			logger.Error(err))
		return
	}

	if res.OldCount != nil && *res.OldCount != res.NewCount {
		cr.logger.Warn("bookmark counter drifted, corrected",
			logger.Uint64("old_count", *res.OldCount),
			logger.Uint64("new_count", res.NewCount))
		return
	}
	cr.logger.Debug("bookmark counter consistent",
		logger.Uint64("count", res.NewCount),
		logger.String("time_taken", res.TimeTaken))
}
