package push

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/feed"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

// scriptedTransport returns a scripted receipt per token, defaulting to ok.
type scriptedTransport struct {
	receipts map[string]Receipt
	batches  [][]Message
}

func (s *scriptedTransport) Send(ctx context.Context, msgs []Message) ([]Receipt, error) {
	s.batches = append(s.batches, msgs)
	out := make([]Receipt, len(msgs))
	for i, m := range msgs {
		if r, ok := s.receipts[m.To]; ok {
			out[i] = r
		} else {
			out[i].Status = receiptOK
		}
	}
	return out, nil
}

func testFanout(t *testing.T, transport Transport) (*store.Store, *Fanout) {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s := store.NewStore(db, feed.NewHub())
	t.Cleanup(func() { _ = s.Close() })

	f := NewFanout(s, transport, slog.Default())
	f.sleep = func(ctx context.Context, d time.Duration) {}
	return s, f
}

func seedAudience(t *testing.T, s *store.Store, n int) *store.Broadcast {
	t.Helper()
	trip, err := s.CreateTrip("Umrah Group March")
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	for i := 0; i < n; i++ {
		userID := fmt.Sprintf("user-%d", i)
		if err := s.AddMember(trip.ID, userID, store.RoleMember); err != nil {
			t.Fatalf("AddMember: %v", err)
		}
		if _, err := s.UpsertRegistration(userID, trip.ID, fmt.Sprintf("ExponentPushToken[%d]", i)); err != nil {
			t.Fatalf("UpsertRegistration: %v", err)
		}
	}
	b, err := s.CreateBroadcast(store.BroadcastInput{
		TripID:    trip.ID,
		Title:     "Departure reminder",
		Body:      "Buses leave in one hour.",
		CreatedBy: "admin-1",
	})
	if err != nil {
		t.Fatalf("CreateBroadcast: %v", err)
	}
	return b
}

func TestDeliverCountsEveryRecipient(t *testing.T) {
	transport := &scriptedTransport{receipts: map[string]Receipt{
		"ExponentPushToken[1]": {Status: "error", Message: "rate limited"},
	}}
	s, f := testFanout(t, transport)
	b := seedAudience(t, s, 3)

	res, err := f.Deliver(context.Background(), b)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if res.Sent != 2 || res.Failed != 1 {
		t.Errorf("sent=%d failed=%d, want 2/1", res.Sent, res.Failed)
	}
	if res.Sent+res.Failed != 3 {
		t.Errorf("sent+failed = %d, want recipient count 3", res.Sent+res.Failed)
	}
	if len(res.Errors) != 1 {
		t.Errorf("len(errors) = %d, want 1", len(res.Errors))
	}
}

func TestDeliverBatchesAtGatewayLimit(t *testing.T) {
	transport := &scriptedTransport{}
	s, f := testFanout(t, transport)
	b := seedAudience(t, s, 130)

	res, err := f.Deliver(context.Background(), b)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if res.Sent != 130 {
		t.Errorf("sent = %d, want 130", res.Sent)
	}
	if len(transport.batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(transport.batches))
	}
	if len(transport.batches[0]) != batchSize || len(transport.batches[1]) != 30 {
		t.Errorf("batch sizes = %d/%d, want %d/30",
			len(transport.batches[0]), len(transport.batches[1]), batchSize)
	}
}

func TestDeliverPrunesDeadRegistrations(t *testing.T) {
	dead := Receipt{Status: "error", Message: "not registered"}
	dead.Details.Error = errDeviceNotRegistered
	transport := &scriptedTransport{receipts: map[string]Receipt{
		"ExponentPushToken[0]": dead,
	}}
	s, f := testFanout(t, transport)
	b := seedAudience(t, s, 2)

	res, err := f.Deliver(context.Background(), b)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("failed = %d, want 1", res.Failed)
	}
	if _, err := s.GetRegistration("user-0"); !store.IsNotFound(err) {
		t.Errorf("dead registration still present, err = %v", err)
	}
	if _, err := s.GetRegistration("user-1"); err != nil {
		t.Errorf("healthy registration removed: %v", err)
	}

	// The next delivery no longer includes the pruned token.
	transport.batches = nil
	if _, err := f.Deliver(context.Background(), b); err != nil {
		t.Fatalf("second Deliver: %v", err)
	}
	if len(transport.batches) != 1 || len(transport.batches[0]) != 1 {
		t.Fatalf("second delivery batches = %+v, want one single-message batch", transport.batches)
	}
}

func TestDeliverNoRecipients(t *testing.T) {
	transport := &scriptedTransport{}
	s, f := testFanout(t, transport)
	b := seedAudience(t, s, 0)

	res, err := f.Deliver(context.Background(), b)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if res.Sent != 0 || res.Failed != 0 || len(transport.batches) != 0 {
		t.Errorf("result = %+v, batches = %d, want nothing sent", res, len(transport.batches))
	}
}

func TestDeliverTransportFailureCountsWholeBatch(t *testing.T) {
	s, f := testFanout(t, errTransport{})
	b := seedAudience(t, s, 3)

	res, err := f.Deliver(context.Background(), b)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if res.Failed != 3 || res.Sent != 0 {
		t.Errorf("sent=%d failed=%d, want 0/3", res.Sent, res.Failed)
	}
	if len(res.Errors) != 1 {
		t.Errorf("len(errors) = %d, want 1", len(res.Errors))
	}
}

type errTransport struct{}

func (errTransport) Send(ctx context.Context, msgs []Message) ([]Receipt, error) {
	return nil, fmt.Errorf("connection refused")
}
