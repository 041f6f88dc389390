package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// CreateTrip inserts a new trip and returns it.
func (s *Store) CreateTrip(name string) (*Trip, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidField("trip", "name", "is required")
	}
	t := &Trip{ID: NewTripID(), Name: name, CreatedAt: time.Now().UTC()}
	_, err := s.db.Write.Exec(
		"INSERT INTO trips (id, name, created_at) VALUES (?, ?, ?)",
		t.ID, t.Name, formatTime(t.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert trip: %w", err)
	}
	return t, nil
}

// GetTrip returns a trip by id.
func (s *Store) GetTrip(id string) (*Trip, error) {
	var t Trip
	var createdAt string
	err := s.db.Read.QueryRow(
		"SELECT id, name, created_at FROM trips WHERE id = ?", id,
	).Scan(&t.ID, &t.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trip %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get trip: %w", err)
	}
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

// DeleteTrip removes a trip. Schedule items and broadcasts cascade.
func (s *Store) DeleteTrip(id string) error {
	res, err := s.db.Write.Exec("DELETE FROM trips WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trip %q: %w", id, ErrNotFound)
	}
	return nil
}

// AddMember adds or updates a trip membership.
func (s *Store) AddMember(tripID, userID, role string) error {
	if role != RoleAdmin && role != RoleMember {
		return invalidField("member", "role", "must be admin or member")
	}
	_, err := s.db.Write.Exec(`
		INSERT INTO trip_members (trip_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (trip_id, user_id) DO UPDATE SET role = excluded.role
	`, tripID, userID, role, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership. Removing an absent member is a no-op.
func (s *Store) RemoveMember(tripID, userID string) error {
	_, err := s.db.Write.Exec(
		"DELETE FROM trip_members WHERE trip_id = ? AND user_id = ?", tripID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// MemberRole returns the role of userID in tripID, or "" when the user is
// not a member.
func (s *Store) MemberRole(tripID, userID string) (string, error) {
	var role string
	err := s.db.Read.QueryRow(
		"SELECT role FROM trip_members WHERE trip_id = ? AND user_id = ?",
		tripID, userID,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("member role: %w", err)
	}
	return role, nil
}

// ListMembers returns all memberships of a trip.
func (s *Store) ListMembers(tripID string) ([]Member, error) {
	rows, err := s.db.Read.Query(
		"SELECT trip_id, user_id, role, joined_at FROM trip_members WHERE trip_id = ? ORDER BY joined_at",
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		var joinedAt string
		if err := rows.Scan(&m.TripID, &m.UserID, &m.Role, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.JoinedAt = parseTime(joinedAt)
		members = append(members, m)
	}
	return members, rows.Err()
}
