package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/feed"
)

const dayLayout = "2006-01-02"

// ScheduleItemInput contains all parameters for creating a schedule item.
type ScheduleItemInput struct {
	TripID      string     `json:"trip_id"`
	Title       string     `json:"title"`
	Day         *string    `json:"day,omitempty"`
	Start       *time.Time `json:"start_time,omitempty"`
	End         *time.Time `json:"end_time,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	SortOrder   int        `json:"sort_order"`
}

// ScheduleItemPatch is a partial update. Nil pointers leave a field
// unchanged; pointing at an empty string clears a nullable text field;
// ClearStart/ClearEnd clear the timestamps.
type ScheduleItemPatch struct {
	Title       *string    `json:"title,omitempty"`
	Day         *string    `json:"day,omitempty"`
	Start       *time.Time `json:"start_time,omitempty"`
	End         *time.Time `json:"end_time,omitempty"`
	ClearStart  bool       `json:"clear_start,omitempty"`
	ClearEnd    bool       `json:"clear_end,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	SortOrder   *int       `json:"sort_order,omitempty"`
}

// IDOrder pairs a schedule item id with its new sort order.
type IDOrder struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sort_order"`
}

// PatchWithID carries one entry of a batch update together with the
// version the caller believes is current.
type PatchWithID struct {
	ID              string            `json:"id"`
	ExpectedVersion string            `json:"expected_version"`
	Patch           ScheduleItemPatch `json:"patch"`
}

func validateScheduleInput(in ScheduleItemInput) error {
	var items []ValidationItem
	if strings.TrimSpace(in.Title) == "" {
		items = append(items, ValidationItem{Path: "title", Message: "is required"})
	}
	if strings.TrimSpace(in.TripID) == "" {
		items = append(items, ValidationItem{Path: "trip_id", Message: "is required"})
	}
	if in.Day != nil {
		if _, err := time.Parse(dayLayout, *in.Day); err != nil {
			items = append(items, ValidationItem{Path: "day", Message: "must be YYYY-MM-DD"})
		}
	}
	if in.Start != nil && in.End != nil && in.End.Before(*in.Start) {
		items = append(items, ValidationItem{Path: "end_time", Message: "must not precede start_time"})
	}
	if len(items) > 0 {
		return &ValidationError{Entity: "schedule_item", Items: items}
	}
	return nil
}

// CreateScheduleItem validates and inserts a new schedule item, then
// publishes an Inserted event.
func (s *Store) CreateScheduleItem(in ScheduleItemInput) (*ScheduleItem, error) {
	if err := validateScheduleInput(in); err != nil {
		return nil, err
	}

	item := &ScheduleItem{
		ID:          NewItemID(),
		TripID:      in.TripID,
		Day:         in.Day,
		Start:       in.Start,
		End:         in.End,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Location:    in.Location,
		SortOrder:   in.SortOrder,
		UpdatedAt:   time.Now().UTC(),
	}
	item.Version = item.RecordVersion()

	_, err := s.db.Write.Exec(`
		INSERT INTO schedule_items (id, trip_id, day, start_time, end_time,
			title, description, location, sort_order, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.TripID, item.Day,
		formatNullableTime(item.Start), formatNullableTime(item.End),
		item.Title, item.Description, item.Location,
		item.SortOrder, formatTime(item.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert schedule item: %w", err)
	}

	s.publish(feed.Event{Type: feed.Inserted, Entity: feed.EntityScheduleItem,
		TripID: item.TripID, ID: item.ID, Record: *item})
	return item, nil
}

// GetScheduleItem returns one schedule item by id.
func (s *Store) GetScheduleItem(id string) (*ScheduleItem, error) {
	return scanScheduleItem(s.db.Read.QueryRow(
		selectScheduleItem+" WHERE id = ?", id), id)
}

const selectScheduleItem = `
	SELECT id, trip_id, day, start_time, end_time,
		title, description, location, sort_order, updated_at
	FROM schedule_items`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduleItem(row rowScanner, id string) (*ScheduleItem, error) {
	var item ScheduleItem
	var day, start, end, description, location sql.NullString
	var updatedAt string
	err := row.Scan(&item.ID, &item.TripID, &day, &start, &end,
		&item.Title, &description, &location, &item.SortOrder, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("schedule item %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan schedule item: %w", err)
	}
	setNullableString(&item.Day, day)
	item.Start = parseNullableTime(start)
	item.End = parseNullableTime(end)
	setNullableString(&item.Description, description)
	setNullableString(&item.Location, location)
	item.UpdatedAt = parseTime(updatedAt)
	item.Version = item.RecordVersion()
	return &item, nil
}

// ListScheduleItems returns a trip's schedule in display order:
// day ascending nulls last, start time ascending nulls last, sort order, id.
func (s *Store) ListScheduleItems(tripID string) ([]ScheduleItem, error) {
	rows, err := s.db.Read.Query(selectScheduleItem+`
		WHERE trip_id = ?
		ORDER BY day IS NULL, day, start_time IS NULL, start_time, sort_order, id
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list schedule items: %w", err)
	}
	defer rows.Close()

	items := []ScheduleItem{}
	for rows.Next() {
		item, err := scanScheduleItem(rows, "")
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Apply folds the patch into item, validating as it goes. Both the store
// and the client-side mutation pipeline use it, so optimistic local state
// and the authoritative record evolve the same way.
func (patch ScheduleItemPatch) Apply(item *ScheduleItem) error {
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return invalidField("schedule_item", "title", "is required")
		}
		item.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Day != nil {
		if *patch.Day == "" {
			item.Day = nil
		} else {
			if _, err := time.Parse(dayLayout, *patch.Day); err != nil {
				return invalidField("schedule_item", "day", "must be YYYY-MM-DD")
			}
			item.Day = patch.Day
		}
	}
	if patch.ClearStart {
		item.Start = nil
	} else if patch.Start != nil {
		item.Start = patch.Start
	}
	if patch.ClearEnd {
		item.End = nil
	} else if patch.End != nil {
		item.End = patch.End
	}
	if patch.Description != nil {
		if *patch.Description == "" {
			item.Description = nil
		} else {
			item.Description = patch.Description
		}
	}
	if patch.Location != nil {
		if *patch.Location == "" {
			item.Location = nil
		} else {
			item.Location = patch.Location
		}
	}
	if patch.SortOrder != nil {
		item.SortOrder = *patch.SortOrder
	}
	if item.Start != nil && item.End != nil && item.End.Before(*item.Start) {
		return invalidField("schedule_item", "end_time", "must not precede start_time")
	}
	return nil
}

// UpdateScheduleItem applies patch if the stored version still matches
// expectedVersion. A stale version yields a ConflictError carrying the
// current authoritative record.
func (s *Store) UpdateScheduleItem(id string, patch ScheduleItemPatch, expectedVersion string) (*ScheduleItem, error) {
	var updated *ScheduleItem
	err := s.executeTx(func(tx *sql.Tx) error {
		item, err := scanScheduleItem(tx.QueryRow(selectScheduleItem+" WHERE id = ?", id), id)
		if err != nil {
			return err
		}
		if item.RecordVersion() != expectedVersion {
			return &ConflictError{Entity: "schedule_item", ID: id, Current: *item}
		}
		if err := patch.Apply(item); err != nil {
			return err
		}
		item.UpdatedAt = time.Now().UTC()
		item.Version = item.RecordVersion()

		// The WHERE clause re-checks the version at write time.
		res, err := tx.Exec(`
			UPDATE schedule_items
			SET day = ?, start_time = ?, end_time = ?, title = ?,
				description = ?, location = ?, sort_order = ?, updated_at = ?
			WHERE id = ? AND updated_at = ?
		`, item.Day, formatNullableTime(item.Start), formatNullableTime(item.End),
			item.Title, item.Description, item.Location, item.SortOrder,
			formatTime(item.UpdatedAt), id, expectedVersion)
		if err != nil {
			return fmt.Errorf("update schedule item: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			current, err := scanScheduleItem(tx.QueryRow(selectScheduleItem+" WHERE id = ?", id), id)
			if err != nil {
				return err
			}
			return &ConflictError{Entity: "schedule_item", ID: id, Current: *current}
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(feed.Event{Type: feed.Updated, Entity: feed.EntityScheduleItem,
		TripID: updated.TripID, ID: updated.ID, Record: *updated})
	return updated, nil
}

// DeleteScheduleItem removes a schedule item and publishes a Deleted event.
func (s *Store) DeleteScheduleItem(id string) error {
	var tripID string
	err := s.db.Read.QueryRow(
		"SELECT trip_id FROM schedule_items WHERE id = ?", id,
	).Scan(&tripID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("schedule item %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete schedule item: %w", err)
	}

	res, err := s.db.Write.Exec("DELETE FROM schedule_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete schedule item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("schedule item %q: %w", id, ErrNotFound)
	}

	s.publish(feed.Event{Type: feed.Deleted, Entity: feed.EntityScheduleItem,
		TripID: tripID, ID: id})
	return nil
}

// ReorderScheduleItems updates sort orders for a trip in one transaction:
// either every position updates or none does. Items not belonging to the
// trip are rejected.
func (s *Store) ReorderScheduleItems(tripID string, pairs []IDOrder) ([]ScheduleItem, error) {
	if len(pairs) == 0 {
		return s.ListScheduleItems(tripID)
	}

	now := time.Now().UTC()
	err := s.executeTx(func(tx *sql.Tx) error {
		for _, p := range pairs {
			res, err := tx.Exec(`
				UPDATE schedule_items SET sort_order = ?, updated_at = ?
				WHERE id = ? AND trip_id = ?
			`, p.SortOrder, formatTime(now), p.ID, tripID)
			if err != nil {
				return fmt.Errorf("reorder schedule item %s: %w", p.ID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("schedule item %q: %w", p.ID, ErrNotFound)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	items, err := s.ListScheduleItems(tripID)
	if err != nil {
		return nil, err
	}
	reordered := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		reordered[p.ID] = true
	}
	for _, item := range items {
		if reordered[item.ID] {
			s.publish(feed.Event{Type: feed.Updated, Entity: feed.EntityScheduleItem,
				TripID: tripID, ID: item.ID, Record: item})
		}
	}
	return items, nil
}

// BatchUpdateScheduleItems applies several version-checked patches in one
// transaction. Any conflict or missing record rolls back the whole batch.
func (s *Store) BatchUpdateScheduleItems(patches []PatchWithID) ([]ScheduleItem, error) {
	updated := make([]*ScheduleItem, 0, len(patches))
	err := s.executeTx(func(tx *sql.Tx) error {
		for _, p := range patches {
			item, err := scanScheduleItem(tx.QueryRow(selectScheduleItem+" WHERE id = ?", p.ID), p.ID)
			if err != nil {
				return err
			}
			if item.RecordVersion() != p.ExpectedVersion {
				return &ConflictError{Entity: "schedule_item", ID: p.ID, Current: *item}
			}
			if err := p.Patch.Apply(item); err != nil {
				return err
			}
			item.UpdatedAt = time.Now().UTC()
			item.Version = item.RecordVersion()
			res, err := tx.Exec(`
				UPDATE schedule_items
				SET day = ?, start_time = ?, end_time = ?, title = ?,
					description = ?, location = ?, sort_order = ?, updated_at = ?
				WHERE id = ? AND updated_at = ?
			`, item.Day, formatNullableTime(item.Start), formatNullableTime(item.End),
				item.Title, item.Description, item.Location, item.SortOrder,
				formatTime(item.UpdatedAt), p.ID, p.ExpectedVersion)
			if err != nil {
				return fmt.Errorf("batch update schedule item %s: %w", p.ID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return &ConflictError{Entity: "schedule_item", ID: p.ID, Current: *item}
			}
			updated = append(updated, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]ScheduleItem, 0, len(updated))
	for _, item := range updated {
		out = append(out, *item)
		s.publish(feed.Event{Type: feed.Updated, Entity: feed.EntityScheduleItem,
			TripID: item.TripID, ID: item.ID, Record: *item})
	}
	return out, nil
}

// executeTx runs fn inside a transaction on the write connection.
func (s *Store) executeTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Write.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
