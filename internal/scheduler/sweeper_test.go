package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/feed"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/push"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

// countingTransport acknowledges every message and counts deliveries.
type countingTransport struct {
	mu    sync.Mutex
	sends int
}

func (c *countingTransport) Send(ctx context.Context, msgs []push.Message) ([]push.Receipt, error) {
	c.mu.Lock()
	c.sends += len(msgs)
	c.mu.Unlock()
	receipts := make([]push.Receipt, len(msgs))
	for i := range receipts {
		receipts[i].Status = "ok"
	}
	return receipts, nil
}

func (c *countingTransport) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sends
}

func testSetup(t *testing.T) (*store.Store, *Sweeper, *countingTransport) {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s := store.NewStore(db, feed.NewHub())
	t.Cleanup(func() { _ = s.Close() })

	transport := &countingTransport{}
	fanout := push.NewFanout(s, transport, slog.Default())
	sweeper := New(s, fanout, DefaultConfig())
	return s, sweeper, transport
}

func seedTrip(t *testing.T, s *store.Store) *store.Trip {
	t.Helper()
	trip, err := s.CreateTrip("Umrah Group March")
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	if err := s.AddMember(trip.ID, "viewer-1", store.RoleMember); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if _, err := s.UpsertRegistration("viewer-1", trip.ID, "ExponentPushToken[aaa]"); err != nil {
		t.Fatalf("UpsertRegistration: %v", err)
	}
	return trip
}

func scheduleBroadcast(t *testing.T, s *store.Store, tripID string, at time.Time) *store.Broadcast {
	t.Helper()
	b, err := s.CreateBroadcast(store.BroadcastInput{
		TripID:       tripID,
		Title:        "Departure reminder",
		Body:         "Buses leave in one hour.",
		ScheduledFor: &at,
		CreatedBy:    "admin-1",
	})
	if err != nil {
		t.Fatalf("CreateBroadcast: %v", err)
	}
	return b
}

func TestSweepPromotesDueBroadcast(t *testing.T) {
	s, sweeper, transport := testSetup(t)
	trip := seedTrip(t, s)

	base := time.Now().UTC()
	b := scheduleBroadcast(t, s, trip.ID, base.Add(time.Hour))

	// Before the scheduled time: nothing to do.
	sweeper.now = func() time.Time { return base }
	res := sweeper.RunOnce(context.Background())
	if res.Promoted != 0 {
		t.Fatalf("early sweep promoted %d, want 0", res.Promoted)
	}
	if transport.total() != 0 {
		t.Fatalf("early sweep delivered %d messages, want 0", transport.total())
	}

	// After the scheduled time: promoted and delivered exactly once.
	sweeper.now = func() time.Time { return base.Add(time.Hour + time.Second) }
	res = sweeper.RunOnce(context.Background())
	if res.Promoted != 1 {
		t.Fatalf("due sweep promoted %d, want 1", res.Promoted)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("sweep errors: %v", res.Errors)
	}
	if transport.total() != 1 {
		t.Fatalf("delivered %d messages, want 1", transport.total())
	}

	sent, err := s.GetBroadcast(b.ID)
	if err != nil {
		t.Fatalf("GetBroadcast: %v", err)
	}
	if sent.SentAt == nil {
		t.Fatal("broadcast not marked sent")
	}

	// A repeat sweep must not fire the broadcast again.
	res = sweeper.RunOnce(context.Background())
	if res.Promoted != 0 {
		t.Fatalf("repeat sweep promoted %d, want 0", res.Promoted)
	}
	if transport.total() != 1 {
		t.Fatalf("repeat sweep delivered more messages: %d", transport.total())
	}
}

func TestSweepSkipsLostPromotionRace(t *testing.T) {
	s, sweeper, transport := testSetup(t)
	trip := seedTrip(t, s)

	base := time.Now().UTC()
	b := scheduleBroadcast(t, s, trip.ID, base.Add(-time.Minute))

	// Someone promotes between the due listing and our sweep.
	if _, _, err := s.MarkSent(b.ID, base); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}

	sweeper.now = func() time.Time { return base }
	res := sweeper.RunOnce(context.Background())
	if res.Promoted != 0 {
		t.Fatalf("sweep promoted %d, want 0 after lost race", res.Promoted)
	}
	if transport.total() != 0 {
		t.Fatalf("sweep delivered %d messages after lost race, want 0", transport.total())
	}
}

func TestSweepContinuesPastPerItemFailures(t *testing.T) {
	s, sweeper, _ := testSetup(t)
	trip := seedTrip(t, s)

	base := time.Now().UTC()
	scheduleBroadcast(t, s, trip.ID, base.Add(-2*time.Minute))
	scheduleBroadcast(t, s, trip.ID, base.Add(-time.Minute))

	// A transport that always fails: delivery errors are recorded but
	// every due broadcast is still promoted.
	failing := &failingTransport{}
	sweeper.fanout = push.NewFanout(s, failing, slog.Default())
	sweeper.now = func() time.Time { return base }

	res := sweeper.RunOnce(context.Background())
	if res.Promoted != 2 {
		t.Fatalf("promoted %d, want 2", res.Promoted)
	}
}

type failingTransport struct{}

func (failingTransport) Send(ctx context.Context, msgs []push.Message) ([]push.Receipt, error) {
	receipts := make([]push.Receipt, len(msgs))
	for i := range receipts {
		receipts[i].Status = "error"
		receipts[i].Message = "gateway unavailable"
	}
	return receipts, nil
}
