// Package scheduler promotes due scheduled broadcasts and fans them out.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/observability"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/push"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

// Config holds sweeper configuration.
type Config struct {
	Interval time.Duration // sweep cadence (default 15s)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Interval: 15 * time.Second}
}

// Result summarizes one sweep.
type Result struct {
	Promoted int
	Errors   []error
}

// Sweeper periodically promotes broadcasts whose scheduled time has
// arrived. Promotion is a compare-and-set on sent_at, so concurrent
// sweepers and manual send-now calls cannot double-fire a broadcast.
type Sweeper struct {
	store  *store.Store
	fanout *push.Fanout
	config Config

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a new Sweeper. fanout may be nil, in which case promoted
// broadcasts are marked sent without delivery.
func New(s *store.Store, fanout *push.Fanout, config Config) *Sweeper {
	if config.Interval == 0 {
		config.Interval = DefaultConfig().Interval
	}
	return &Sweeper{store: s, fanout: fanout, config: config, now: time.Now}
}

// Run starts the sweep loop. It blocks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	slog.Info("sweeper started", "interval", s.config.Interval)
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep. A failure on one broadcast never
// blocks the rest of the batch.
func (s *Sweeper) RunOnce(ctx context.Context) Result {
	var res Result

	ctx, span := observability.StartSpan(ctx, "sweep")
	defer span.End()

	now := s.now().UTC()
	due, err := s.store.DueBroadcasts(now)
	if err != nil {
		slog.Error("list due broadcasts", "error", err)
		res.Errors = append(res.Errors, err)
		return res
	}

	for _, b := range due {
		sent, promoted, err := s.store.MarkSent(b.ID, now)
		if err != nil {
			slog.Error("promote broadcast", "broadcast_id", b.ID, "error", err)
			res.Errors = append(res.Errors, fmt.Errorf("promote broadcast %s: %w", b.ID, err))
			continue
		}
		if !promoted {
			// Someone else won the race; they own delivery.
			continue
		}
		res.Promoted++

		if s.fanout == nil {
			continue
		}
		if _, err := s.fanout.Deliver(ctx, sent); err != nil {
			slog.Error("deliver broadcast", "broadcast_id", b.ID, "error", err)
			res.Errors = append(res.Errors, err)
		}
	}

	span.SetAttributes(
		attribute.Int("sweep.promoted", res.Promoted),
		attribute.Int("sweep.errors", len(res.Errors)),
	)
	if res.Promoted > 0 {
		slog.Info("sweep promoted broadcasts", "promoted", res.Promoted, "errors", len(res.Errors))
	}
	return res
}
