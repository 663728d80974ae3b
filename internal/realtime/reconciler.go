package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roudra323/TeamFlow/internal/metrics"
)

const DefaultReconcileInterval = 5 * time.Minute

// Reconciler evicts presence entries whose connection the transport no
// longer knows. It does not broadcast and does not touch room membership:
// dead connections are already gone from the transport's rooms.
type Reconciler struct {
	registry *Registry
	liveness Liveness
	interval time.Duration
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

func NewReconciler(registry *Registry, liveness Liveness, interval time.Duration, log zerolog.Logger, m *metrics.Metrics) *Reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &Reconciler{registry: registry, liveness: liveness, interval: interval, log: log, metrics: m}
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one reconciliation pass and returns the number of entries
// removed.
func (r *Reconciler) Sweep(ctx context.Context) int {
	removed := 0
	for _, snap := range r.registry.Entries() {
		if ctx.Err() != nil {
			break
		}
		alive, err := r.alive(snap.Conn)
		if err != nil {
			r.metrics.ReconcileError()
			r.log.Warn().Err(err).Str("conn", string(snap.Conn)).Msg("liveness check failed")
			continue
		}
		if alive {
			continue
		}
		if r.registry.RemoveIf(snap.Conn, snap.Entry) {
			removed++
			r.log.Info().
				Str("conn", string(snap.Conn)).
				Int64("workspace_id", snap.Entry.WorkspaceID).
				Int64("user_id", snap.Entry.UserID).
				Msg("evicted stale presence")
		}
	}
	r.metrics.Evicted(removed)
	r.metrics.SetPresenceEntries(r.registry.Len())
	return removed
}

// alive turns a panicking check into an error so one entry cannot end the
// sweep.
func (r *Reconciler) alive(conn ConnID) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("liveness check panicked: %v", p)
		}
	}()
	return r.liveness.Alive(conn)
}
