package store

import (
	"fmt"
	"sort"
)

// ActivityFeed merges a trip's schedule items, broadcasts and push
// registrations into one feed ordered by timestamp descending, capped to
// limit entries. The feed is computed on demand and never stored.
func (s *Store) ActivityFeed(tripID string, limit int) ([]ActivityEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	items, err := s.ListScheduleItems(tripID)
	if err != nil {
		return nil, fmt.Errorf("activity feed: %w", err)
	}
	broadcasts, err := s.ListBroadcasts(tripID)
	if err != nil {
		return nil, fmt.Errorf("activity feed: %w", err)
	}
	regs, err := s.TripRegistrations(tripID)
	if err != nil {
		return nil, fmt.Errorf("activity feed: %w", err)
	}

	events := make([]ActivityEvent, 0, len(items)+len(broadcasts)+len(regs))
	for _, item := range items {
		events = append(events, ActivityEvent{
			Type: "schedule_item", ID: item.ID, TripID: item.TripID,
			Title: item.Title, Timestamp: item.UpdatedAt,
		})
	}
	for _, b := range broadcasts {
		events = append(events, ActivityEvent{
			Type: "broadcast", ID: b.ID, TripID: b.TripID,
			Title: b.Title, Timestamp: b.CreatedAt,
		})
	}
	for _, reg := range regs {
		events = append(events, ActivityEvent{
			Type: "registration", ID: reg.UserID, TripID: reg.TripID,
			Title: "push registration", Timestamp: reg.UpdatedAt,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}
