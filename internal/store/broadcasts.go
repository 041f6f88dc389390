package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/feed"
)

// BroadcastInput contains all parameters for creating a broadcast.
// A nil ScheduledFor means immediate delivery: the caller promotes the
// record right after creation.
type BroadcastInput struct {
	TripID       string     `json:"trip_id"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	Link         *string    `json:"link,omitempty"`
	HighPriority bool       `json:"high_priority"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	CreatedBy    string     `json:"created_by"`
}

// BroadcastPatch is a partial update. Nil pointers leave a field
// unchanged; ClearScheduledFor unschedules the broadcast.
type BroadcastPatch struct {
	Title             *string    `json:"title,omitempty"`
	Body              *string    `json:"body,omitempty"`
	Link              *string    `json:"link,omitempty"`
	HighPriority      *bool      `json:"high_priority,omitempty"`
	ScheduledFor      *time.Time `json:"scheduled_for,omitempty"`
	ClearScheduledFor bool       `json:"clear_scheduled_for,omitempty"`
}

// Apply folds the patch into b, validating as it goes. Shared between the
// store and the client-side mutation pipeline.
func (patch BroadcastPatch) Apply(b *Broadcast) error {
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return invalidField("broadcast", "title", "is required")
		}
		b.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Body != nil {
		if strings.TrimSpace(*patch.Body) == "" {
			return invalidField("broadcast", "body", "is required")
		}
		b.Body = *patch.Body
	}
	if patch.Link != nil {
		if *patch.Link == "" {
			b.Link = nil
		} else {
			b.Link = patch.Link
		}
	}
	if patch.HighPriority != nil {
		b.HighPriority = *patch.HighPriority
	}
	if patch.ClearScheduledFor {
		b.ScheduledFor = nil
	} else if patch.ScheduledFor != nil {
		b.ScheduledFor = patch.ScheduledFor
	}
	return nil
}

func validateBroadcastInput(in BroadcastInput) error {
	var items []ValidationItem
	if strings.TrimSpace(in.Title) == "" {
		items = append(items, ValidationItem{Path: "title", Message: "is required"})
	}
	if strings.TrimSpace(in.Body) == "" {
		items = append(items, ValidationItem{Path: "body", Message: "is required"})
	}
	if strings.TrimSpace(in.TripID) == "" {
		items = append(items, ValidationItem{Path: "trip_id", Message: "is required"})
	}
	if strings.TrimSpace(in.CreatedBy) == "" {
		items = append(items, ValidationItem{Path: "created_by", Message: "is required"})
	}
	if len(items) > 0 {
		return &ValidationError{Entity: "broadcast", Items: items}
	}
	return nil
}

// CreateBroadcast validates and inserts a new broadcast, then publishes
// an Inserted event. SentAt starts null; promotion happens separately.
func (s *Store) CreateBroadcast(in BroadcastInput) (*Broadcast, error) {
	if err := validateBroadcastInput(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b := &Broadcast{
		ID:           NewBroadcastID(),
		TripID:       in.TripID,
		Title:        strings.TrimSpace(in.Title),
		Body:         in.Body,
		Link:         in.Link,
		HighPriority: in.HighPriority,
		ScheduledFor: in.ScheduledFor,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	b.Version = b.RecordVersion()

	_, err := s.db.Write.Exec(`
		INSERT INTO broadcasts (id, trip_id, title, body, link, high_priority,
			scheduled_for, sent_at, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?)
	`, b.ID, b.TripID, b.Title, b.Body, b.Link, boolToInt(b.HighPriority),
		formatNullableTime(b.ScheduledFor), b.CreatedBy,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert broadcast: %w", err)
	}

	s.publish(feed.Event{Type: feed.Inserted, Entity: feed.EntityBroadcast,
		TripID: b.TripID, ID: b.ID, Record: *b})
	return b, nil
}

const selectBroadcast = `
	SELECT id, trip_id, title, body, link, high_priority,
		scheduled_for, sent_at, created_by, created_at, updated_at
	FROM broadcasts`

func scanBroadcast(row rowScanner, id string) (*Broadcast, error) {
	var b Broadcast
	var link, scheduledFor, sentAt sql.NullString
	var highPriority int
	var createdAt, updatedAt string
	err := row.Scan(&b.ID, &b.TripID, &b.Title, &b.Body, &link, &highPriority,
		&scheduledFor, &sentAt, &b.CreatedBy, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("broadcast %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan broadcast: %w", err)
	}
	setNullableString(&b.Link, link)
	b.HighPriority = highPriority != 0
	b.ScheduledFor = parseNullableTime(scheduledFor)
	b.SentAt = parseNullableTime(sentAt)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	b.Version = b.RecordVersion()
	return &b, nil
}

// GetBroadcast returns one broadcast by id.
func (s *Store) GetBroadcast(id string) (*Broadcast, error) {
	return scanBroadcast(s.db.Read.QueryRow(selectBroadcast+" WHERE id = ?", id), id)
}

// ListBroadcasts returns a trip's broadcasts newest first.
func (s *Store) ListBroadcasts(tripID string) ([]Broadcast, error) {
	rows, err := s.db.Read.Query(selectBroadcast+`
		WHERE trip_id = ? ORDER BY created_at DESC, id
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list broadcasts: %w", err)
	}
	defer rows.Close()

	out := []Broadcast{}
	for rows.Next() {
		b, err := scanBroadcast(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// UpdateBroadcast applies patch if the stored version still matches
// expectedVersion. A sent broadcast is immutable and rejects every edit.
func (s *Store) UpdateBroadcast(id string, patch BroadcastPatch, expectedVersion string) (*Broadcast, error) {
	var updated *Broadcast
	err := s.executeTx(func(tx *sql.Tx) error {
		b, err := scanBroadcast(tx.QueryRow(selectBroadcast+" WHERE id = ?", id), id)
		if err != nil {
			return err
		}
		if b.SentAt != nil {
			return fmt.Errorf("broadcast %q: %w", id, ErrBroadcastSent)
		}
		if b.RecordVersion() != expectedVersion {
			return &ConflictError{Entity: "broadcast", ID: id, Current: *b}
		}

		if err := patch.Apply(b); err != nil {
			return err
		}
		b.UpdatedAt = time.Now().UTC()
		b.Version = b.RecordVersion()

		// The sent_at IS NULL guard re-checks immutability at write time.
		res, err := tx.Exec(`
			UPDATE broadcasts
			SET title = ?, body = ?, link = ?, high_priority = ?,
				scheduled_for = ?, updated_at = ?
			WHERE id = ? AND updated_at = ? AND sent_at IS NULL
		`, b.Title, b.Body, b.Link, boolToInt(b.HighPriority),
			formatNullableTime(b.ScheduledFor), formatTime(b.UpdatedAt),
			id, expectedVersion)
		if err != nil {
			return fmt.Errorf("update broadcast: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			current, err := scanBroadcast(tx.QueryRow(selectBroadcast+" WHERE id = ?", id), id)
			if err != nil {
				return err
			}
			if current.SentAt != nil {
				return fmt.Errorf("broadcast %q: %w", id, ErrBroadcastSent)
			}
			return &ConflictError{Entity: "broadcast", ID: id, Current: *current}
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(feed.Event{Type: feed.Updated, Entity: feed.EntityBroadcast,
		TripID: updated.TripID, ID: updated.ID, Record: *updated})
	return updated, nil
}

// DeleteBroadcast removes a broadcast. Sent broadcasts stay deletable.
func (s *Store) DeleteBroadcast(id string) error {
	var tripID string
	err := s.db.Read.QueryRow(
		"SELECT trip_id FROM broadcasts WHERE id = ?", id,
	).Scan(&tripID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("broadcast %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete broadcast: %w", err)
	}

	res, err := s.db.Write.Exec("DELETE FROM broadcasts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete broadcast: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("broadcast %q: %w", id, ErrNotFound)
	}

	s.publish(feed.Event{Type: feed.Deleted, Entity: feed.EntityBroadcast,
		TripID: tripID, ID: id})
	return nil
}

// MarkSent promotes a broadcast with a conditional write: the update only
// succeeds while sent_at is still null, so concurrent promoters cannot
// double-send. It returns the promoted record, or promoted=false when
// another writer won the race.
func (s *Store) MarkSent(id string, now time.Time) (*Broadcast, bool, error) {
	res, err := s.db.Write.Exec(`
		UPDATE broadcasts SET sent_at = ?, updated_at = ?
		WHERE id = ? AND sent_at IS NULL
	`, formatTime(now), formatTime(now), id)
	if err != nil {
		return nil, false, fmt.Errorf("mark broadcast sent: %w", err)
	}
	n, _ := res.RowsAffected()
	b, getErr := s.GetBroadcast(id)
	if getErr != nil {
		return nil, false, getErr
	}
	if n == 0 {
		return b, false, nil
	}

	s.publish(feed.Event{Type: feed.Updated, Entity: feed.EntityBroadcast,
		TripID: b.TripID, ID: b.ID, Record: *b})
	return b, true, nil
}

// DueBroadcasts returns all unsent broadcasts whose scheduled time has
// passed, oldest first.
func (s *Store) DueBroadcasts(now time.Time) ([]Broadcast, error) {
	rows, err := s.db.Read.Query(selectBroadcast+`
		WHERE sent_at IS NULL AND scheduled_for IS NOT NULL AND scheduled_for <= ?
		ORDER BY scheduled_for, id
	`, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("due broadcasts: %w", err)
	}
	defer rows.Close()

	out := []Broadcast{}
	for rows.Next() {
		b, err := scanBroadcast(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
