package scripts

import (
	"context"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"

	"github.com/chebykinn/browser-code/internal/vfs"
)

// SafetyNet periodically re-runs Reconcile on a cron schedule, as a
// backstop against a storage-change notification getting dropped (the
// primary reconcile trigger is the store watcher cmd/serve.go wires to
// Reconcile).
type SafetyNet struct {
	reconciler *Reconciler
	expr       string
	activeFn   func() vfs.ActivePage
}

// NewSafetyNet builds a cron-scheduled reconcile loop. expr is a
// standard 5-field cron expression (e.g. "*/5 * * * *"); activeFn
// returns the currently loaded page at the moment each tick fires.
func NewSafetyNet(reconciler *Reconciler, expr string, activeFn func() vfs.ActivePage) *SafetyNet {
	return &SafetyNet{reconciler: reconciler, expr: expr, activeFn: activeFn}
}

// Run blocks, ticking once a minute and firing Reconcile whenever expr
// is due, until ctx is cancelled.
func (s *SafetyNet) Run(ctx context.Context) {
	gron := gronx.New()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due, err := gron.IsDue(s.expr)
			if err != nil {
				slog.Warn("scripts.safetynet.bad_expr", "expr", s.expr, "error", err)
				continue
			}
			if !due {
				continue
			}
			if err := s.reconciler.Reconcile(ctx, s.activeFn()); err != nil {
				slog.Warn("scripts.safetynet.reconcile_failed", "error", err)
			}
		}
	}
}
