package store_test

import (
	"testing"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/feed"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

// testStore creates a Store over a fresh SQLite database.
func testStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s := store.NewStore(db, feed.NewHub())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// testTrip creates a trip with one admin and one plain member.
func testTrip(t *testing.T, s *store.Store) *store.Trip {
	t.Helper()
	trip, err := s.CreateTrip("Umrah Group March")
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	if err := s.AddMember(trip.ID, "admin-1", store.RoleAdmin); err != nil {
		t.Fatalf("AddMember admin: %v", err)
	}
	if err := s.AddMember(trip.ID, "viewer-1", store.RoleMember); err != nil {
		t.Fatalf("AddMember viewer: %v", err)
	}
	return trip
}

func TestCreateTrip(t *testing.T) {
	s := testStore(t)

	trip := testTrip(t, s)
	if trip.ID == "" {
		t.Fatal("CreateTrip returned empty id")
	}

	got, err := s.GetTrip(trip.ID)
	if err != nil {
		t.Fatalf("GetTrip: %v", err)
	}
	if got.Name != "Umrah Group March" {
		t.Errorf("trip name = %q, want %q", got.Name, "Umrah Group March")
	}
}

func TestGetTripNotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetTrip("trip_missing")
	if !store.IsNotFound(err) {
		t.Fatalf("GetTrip error = %v, want not-found", err)
	}
}

func TestMemberRole(t *testing.T) {
	s := testStore(t)
	trip := testTrip(t, s)

	role, err := s.MemberRole(trip.ID, "admin-1")
	if err != nil {
		t.Fatalf("MemberRole: %v", err)
	}
	if role != store.RoleAdmin {
		t.Errorf("admin role = %q, want %q", role, store.RoleAdmin)
	}

	role, err = s.MemberRole(trip.ID, "stranger")
	if err != nil {
		t.Fatalf("MemberRole stranger: %v", err)
	}
	if role != "" {
		t.Errorf("stranger role = %q, want empty", role)
	}
}

func TestAddMemberUpgradesRole(t *testing.T) {
	s := testStore(t)
	trip := testTrip(t, s)

	if err := s.AddMember(trip.ID, "viewer-1", store.RoleAdmin); err != nil {
		t.Fatalf("AddMember upgrade: %v", err)
	}
	role, err := s.MemberRole(trip.ID, "viewer-1")
	if err != nil {
		t.Fatalf("MemberRole: %v", err)
	}
	if role != store.RoleAdmin {
		t.Errorf("role after upgrade = %q, want %q", role, store.RoleAdmin)
	}
}

func TestRemoveMember(t *testing.T) {
	s := testStore(t)
	trip := testTrip(t, s)

	if err := s.RemoveMember(trip.ID, "viewer-1"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	role, err := s.MemberRole(trip.ID, "viewer-1")
	if err != nil {
		t.Fatalf("MemberRole: %v", err)
	}
	if role != "" {
		t.Errorf("role after removal = %q, want empty", role)
	}
}
