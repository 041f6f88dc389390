package store

import (
	"database/sql"
	"time"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/feed"
)

// Store is the authoritative data access layer for trips, schedules,
// broadcasts and push registrations. All mutations go through the single
// write connection; committed writes are published to the change feed.
type Store struct {
	db  *DB
	hub *feed.Hub
}

// NewStore creates a Store over db. hub may be nil when no live
// subscribers exist (one-shot CLI commands).
func NewStore(db *DB, hub *feed.Hub) *Store {
	return &Store{db: db, hub: hub}
}

// Feed returns the change-feed hub, or nil if none was attached.
func (s *Store) Feed() *feed.Hub {
	return s.hub
}

// ReadDB returns the read connection for ad-hoc queries.
func (s *Store) ReadDB() *sql.DB {
	return s.db.Read
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) publish(ev feed.Event) {
	if s.hub != nil {
		s.hub.Publish(ev)
	}
}

// Time columns are stored as UTC strings in a fixed-width nanosecond
// layout so that string comparison in SQL matches chronological order.
// RFC3339Nano would trim trailing zeros and break that property.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullableTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseNullableTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func setNullableString(dst **string, ns sql.NullString) {
	if ns.Valid {
		v := ns.String
		*dst = &v
	}
}
