package store

import (
	"time"
)

// Trip member roles
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Broadcast statuses (derived, never stored)
const (
	StatusScheduled = "scheduled"
	StatusSent      = "sent"
)

// Trip is the scoping unit owning a schedule and its broadcasts.
type Trip struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Member is a user's membership in a trip.
type Member struct {
	TripID   string    `json:"trip_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// ScheduleItem is one dated/timed entry in a trip's itinerary.
// SortOrder only matters when Day and Start are both absent.
type ScheduleItem struct {
	ID          string     `json:"id"`
	TripID      string     `json:"trip_id"`
	Day         *string    `json:"day,omitempty"` // "2006-01-02"
	Start       *time.Time `json:"start_time,omitempty"`
	End         *time.Time `json:"end_time,omitempty"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	SortOrder   int        `json:"sort_order"`
	UpdatedAt   time.Time  `json:"updated_at"`
	// Version is the wire form of UpdatedAt. Clients echo it back on
	// updates; UpdatedAt's own JSON encoding trims sub-second zeros and
	// cannot be used to reconstruct the token.
	Version string `json:"version"`
}

// RecordID implements collection.Record.
func (s ScheduleItem) RecordID() string { return s.ID }

// RecordVersion implements collection.Record. The update timestamp is the
// record's version for conflict detection.
func (s ScheduleItem) RecordVersion() string { return FormatVersion(s.UpdatedAt) }

// Less orders items day ascending (nulls last), then start time ascending
// (nulls last), then sort order, then id for a total order.
func (s ScheduleItem) Less(other ScheduleItem) bool {
	if c := compareNullableString(s.Day, other.Day); c != 0 {
		return c < 0
	}
	if c := compareNullableTime(s.Start, other.Start); c != 0 {
		return c < 0
	}
	if s.SortOrder != other.SortOrder {
		return s.SortOrder < other.SortOrder
	}
	return s.ID < other.ID
}

// ContentEquals reports whether two items carry identical content, used to
// detect no-op change-feed deliveries.
func (s ScheduleItem) ContentEquals(other ScheduleItem) bool {
	return s.ID == other.ID &&
		s.TripID == other.TripID &&
		equalNullableString(s.Day, other.Day) &&
		equalNullableTime(s.Start, other.Start) &&
		equalNullableTime(s.End, other.End) &&
		s.Title == other.Title &&
		equalNullableString(s.Description, other.Description) &&
		equalNullableString(s.Location, other.Location) &&
		s.SortOrder == other.SortOrder &&
		s.UpdatedAt.Equal(other.UpdatedAt)
}

// Broadcast is an admin-authored message, optionally scheduled, delivered once.
// Once SentAt is set the record rejects all edits; only deletion remains.
type Broadcast struct {
	ID           string     `json:"id"`
	TripID       string     `json:"trip_id"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	Link         *string    `json:"link,omitempty"`
	HighPriority bool       `json:"high_priority"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	// Version mirrors ScheduleItem.Version.
	Version string `json:"version"`
}

// RecordID implements collection.Record.
func (b Broadcast) RecordID() string { return b.ID }

// RecordVersion implements collection.Record.
func (b Broadcast) RecordVersion() string { return FormatVersion(b.UpdatedAt) }

// Status derives the broadcast state. Absence of scheduling means the
// broadcast was delivered immediately, so the default is "sent".
func (b Broadcast) Status() string {
	return b.StatusAt(time.Now())
}

// StatusAt is Status evaluated against an explicit clock.
func (b Broadcast) StatusAt(now time.Time) string {
	if b.SentAt != nil {
		return StatusSent
	}
	if b.ScheduledFor != nil && b.ScheduledFor.After(now) {
		return StatusScheduled
	}
	return StatusSent
}

// Less orders broadcasts newest first, then id.
func (b Broadcast) Less(other Broadcast) bool {
	if !b.CreatedAt.Equal(other.CreatedAt) {
		return b.CreatedAt.After(other.CreatedAt)
	}
	return b.ID < other.ID
}

// ContentEquals reports whether two broadcasts carry identical content.
func (b Broadcast) ContentEquals(other Broadcast) bool {
	return b.ID == other.ID &&
		b.TripID == other.TripID &&
		b.Title == other.Title &&
		b.Body == other.Body &&
		equalNullableString(b.Link, other.Link) &&
		b.HighPriority == other.HighPriority &&
		equalNullableTime(b.ScheduledFor, other.ScheduledFor) &&
		equalNullableTime(b.SentAt, other.SentAt) &&
		b.CreatedBy == other.CreatedBy &&
		b.CreatedAt.Equal(other.CreatedAt) &&
		b.UpdatedAt.Equal(other.UpdatedAt)
}

// PushRegistration holds the single push token registered for a user.
// Re-registration overwrites the token; there is no history.
type PushRegistration struct {
	UserID    string    `json:"user_id"`
	TripID    string    `json:"trip_id"`
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActivityEvent is one entry in the derived activity feed. It is computed
// on demand from the timestamped records, never persisted.
type ActivityEvent struct {
	Type      string    `json:"type"` // "schedule_item", "broadcast", "registration"
	ID        string    `json:"id"`
	TripID    string    `json:"trip_id"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

// FormatVersion renders an update timestamp as the wire version string.
// It matches the stored updated_at representation exactly, so a version
// echoed back by a client compares byte-for-byte in SQL.
func FormatVersion(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func compareNullableString(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1 // nulls last
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func compareNullableTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1 // nulls last
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	}
	return 0
}

func equalNullableString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalNullableTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
