package cache_test

import (
	"bytes"
	"testing"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/cache"
)

func testCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetSetRemove(t *testing.T) {
	c := testCache(t)

	if _, ok, err := c.Get([]byte("missing")); err != nil || ok {
		t.Fatalf("Get missing = (ok=%v, err=%v), want absent", ok, err)
	}

	if err := c.Set([]byte("k"), []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := c.Get([]byte("k"))
	if err != nil || !ok || !bytes.Equal(v, []byte("v1")) {
		t.Fatalf("Get = (%q, %v, %v), want v1", v, ok, err)
	}

	if err := c.Set([]byte("k"), []byte("v2")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, _, _ = c.Get([]byte("k"))
	if !bytes.Equal(v, []byte("v2")) {
		t.Errorf("Get after overwrite = %q, want v2", v)
	}

	if err := c.Remove([]byte("k")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := c.Get([]byte("k")); ok {
		t.Error("key still present after Remove")
	}
	if err := c.Remove([]byte("k")); err != nil {
		t.Errorf("Remove absent key: %v", err)
	}
}

func TestLastTrip(t *testing.T) {
	c := testCache(t)

	got, err := c.LastTrip("user-1")
	if err != nil || got != "" {
		t.Fatalf("LastTrip unknown = (%q, %v), want empty", got, err)
	}

	if err := c.SetLastTrip("user-1", "trip_a"); err != nil {
		t.Fatalf("SetLastTrip: %v", err)
	}
	if err := c.SetLastTrip("user-2", "trip_b"); err != nil {
		t.Fatalf("SetLastTrip: %v", err)
	}

	got, err = c.LastTrip("user-1")
	if err != nil || got != "trip_a" {
		t.Errorf("LastTrip(user-1) = (%q, %v), want trip_a", got, err)
	}
	got, _ = c.LastTrip("user-2")
	if got != "trip_b" {
		t.Errorf("LastTrip(user-2) = %q, want trip_b", got)
	}
}

func TestAdminFlag(t *testing.T) {
	c := testCache(t)

	if _, known, err := c.AdminFlag("trip_a", "user-1"); err != nil || known {
		t.Fatalf("AdminFlag before set = (known=%v, err=%v), want unknown", known, err)
	}

	if err := c.SetAdminFlag("trip_a", "user-1", true); err != nil {
		t.Fatalf("SetAdminFlag: %v", err)
	}
	isAdmin, known, err := c.AdminFlag("trip_a", "user-1")
	if err != nil || !known || !isAdmin {
		t.Errorf("AdminFlag = (%v, %v, %v), want (true, true, nil)", isAdmin, known, err)
	}

	// Flags are scoped per trip and per user.
	if _, known, _ := c.AdminFlag("trip_b", "user-1"); known {
		t.Error("flag leaked across trips")
	}
	if _, known, _ := c.AdminFlag("trip_a", "user-2"); known {
		t.Error("flag leaked across users")
	}

	if err := c.SetAdminFlag("trip_a", "user-1", false); err != nil {
		t.Fatalf("SetAdminFlag: %v", err)
	}
	isAdmin, known, _ = c.AdminFlag("trip_a", "user-1")
	if !known || isAdmin {
		t.Errorf("AdminFlag after demotion = (%v, %v), want (false, true)", isAdmin, known)
	}
}
