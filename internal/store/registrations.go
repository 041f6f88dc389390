package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// UpsertRegistration records a user's push token, overwriting any
// previous registration for that user.
func (s *Store) UpsertRegistration(userID, tripID, token string) (*PushRegistration, error) {
	var items []ValidationItem
	if strings.TrimSpace(userID) == "" {
		items = append(items, ValidationItem{Path: "user_id", Message: "is required"})
	}
	if strings.TrimSpace(token) == "" {
		items = append(items, ValidationItem{Path: "token", Message: "is required"})
	}
	if len(items) > 0 {
		return nil, &ValidationError{Entity: "push_registration", Items: items}
	}

	reg := &PushRegistration{
		UserID:    userID,
		TripID:    tripID,
		Token:     token,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.Write.Exec(`
		INSERT INTO push_registrations (user_id, trip_id, token, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			trip_id = excluded.trip_id,
			token = excluded.token,
			updated_at = excluded.updated_at
	`, reg.UserID, reg.TripID, reg.Token, formatTime(reg.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("upsert registration: %w", err)
	}
	return reg, nil
}

// GetRegistration returns a user's registration.
func (s *Store) GetRegistration(userID string) (*PushRegistration, error) {
	var reg PushRegistration
	var updatedAt string
	err := s.db.Read.QueryRow(`
		SELECT user_id, trip_id, token, updated_at
		FROM push_registrations WHERE user_id = ?
	`, userID).Scan(&reg.UserID, &reg.TripID, &reg.Token, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("registration for %q: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	reg.UpdatedAt = parseTime(updatedAt)
	return &reg, nil
}

// DeleteRegistration removes a user's registration. Used both when a user
// opts out and when delivery proves the token dead. Deleting an absent
// registration is a no-op.
func (s *Store) DeleteRegistration(userID string) error {
	_, err := s.db.Write.Exec(
		"DELETE FROM push_registrations WHERE user_id = ?", userID,
	)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	return nil
}

// TripRegistrations returns the registrations of every member of a trip.
// The join keeps only tokens belonging to current members, so departed
// users stop receiving broadcasts immediately.
func (s *Store) TripRegistrations(tripID string) ([]PushRegistration, error) {
	rows, err := s.db.Read.Query(`
		SELECT r.user_id, r.trip_id, r.token, r.updated_at
		FROM push_registrations r
		JOIN trip_members m ON m.user_id = r.user_id AND m.trip_id = ?
		ORDER BY r.user_id
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("trip registrations: %w", err)
	}
	defer rows.Close()

	regs := []PushRegistration{}
	for rows.Next() {
		var reg PushRegistration
		var updatedAt string
		if err := rows.Scan(&reg.UserID, &reg.TripID, &reg.Token, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		reg.UpdatedAt = parseTime(updatedAt)
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}
