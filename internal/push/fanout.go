package push

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

const (
	// batchSize is the gateway's maximum messages per request.
	batchSize = 100

	// batchDelay spaces consecutive requests to stay under the
	// gateway's rate limit.
	batchDelay = 200 * time.Millisecond
)

// Result summarizes one delivery run. Sent+Failed equals the number of
// registered recipients at resolution time.
type Result struct {
	Sent   int
	Failed int
	Errors []error
}

// Fanout resolves a broadcast's audience and pushes it out in batches.
// Delivery failures are collected, never fatal; registrations the
// gateway reports as dead are removed so they stop consuming batches.
type Fanout struct {
	store     *store.Store
	transport Transport
	logger    *slog.Logger

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration)
}

func NewFanout(st *store.Store, transport Transport, logger *slog.Logger) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{store: st, transport: transport, logger: logger, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Deliver pushes one broadcast to every current member with a push
// registration. It returns an error only when the audience cannot be
// resolved; per-message failures land in the Result.
func (f *Fanout) Deliver(ctx context.Context, b *store.Broadcast) (Result, error) {
	var res Result

	regs, err := f.store.TripRegistrations(b.TripID)
	if err != nil {
		return res, fmt.Errorf("resolve recipients for broadcast %s: %w", b.ID, err)
	}
	if len(regs) == 0 {
		f.logger.Info("broadcast has no registered recipients", "broadcast_id", b.ID, "trip_id", b.TripID)
		return res, nil
	}

	msgs := make([]Message, len(regs))
	for i, reg := range regs {
		msgs[i] = Message{
			To:       reg.Token,
			Title:    b.Title,
			Body:     b.Body,
			Sound:    "default",
			Priority: "high",
			Data: map[string]any{
				"type":     "broadcast",
				"id":       b.ID,
				"tripId":   b.TripID,
				"deepLink": fmt.Sprintf("trip/%s/broadcasts/%s", b.TripID, b.ID),
			},
		}
	}

	for start := 0; start < len(msgs); start += batchSize {
		if start > 0 {
			f.sleep(ctx, batchDelay)
		}
		end := min(start+batchSize, len(msgs))
		f.deliverBatch(ctx, regs[start:end], msgs[start:end], &res)
	}

	f.logger.Info("broadcast delivered",
		"broadcast_id", b.ID, "trip_id", b.TripID,
		"sent", res.Sent, "failed", res.Failed)
	return res, nil
}

func (f *Fanout) deliverBatch(ctx context.Context, regs []store.PushRegistration, msgs []Message, res *Result) {
	receipts, err := f.transport.Send(ctx, msgs)
	if err != nil {
		res.Failed += len(msgs)
		res.Errors = append(res.Errors, err)
		f.logger.Error("push batch failed", "size", len(msgs), "error", err)
		return
	}

	for i, rc := range receipts {
		if rc.Status == receiptOK {
			res.Sent++
			continue
		}
		res.Failed++
		res.Errors = append(res.Errors, fmt.Errorf("push to %s: %s (%s)", regs[i].UserID, rc.Message, rc.Details.Error))
		if rc.Dead() {
			if err := f.store.DeleteRegistration(regs[i].UserID); err != nil {
				f.logger.Error("prune dead registration", "user_id", regs[i].UserID, "error", err)
			} else {
				f.logger.Info("pruned dead registration", "user_id", regs[i].UserID)
			}
		}
	}
}
