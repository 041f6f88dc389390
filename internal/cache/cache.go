// Package cache is a small persisted key-value store used to remember
// client-side state across restarts: the last-selected trip and the
// last-known admin flag per trip. Values here are provisional hints, never
// authority; callers reconcile them with fresh checks.
package cache

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes. Each prefix ends with '|' as a separator.
const (
	prefixLastTrip  = "lt|" // lt|{user_id}
	prefixAdminFlag = "af|" // af|{trip_id}\x00{user_id}
)

const sep = '\x00'

// Cache wraps a Badger database.
type Cache struct {
	db *badger.DB
}

// Open creates or opens the cache at dir.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the value for key, or ok=false when absent.
func (c *Cache) Get(key []byte) ([]byte, bool, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return value, true, nil
}

// Set stores value under key.
func (c *Cache) Set(key, value []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is a no-op.
func (c *Cache) Remove(key []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("cache remove: %w", err)
	}
	return nil
}

func lastTripKey(userID string) []byte {
	return append([]byte(prefixLastTrip), userID...)
}

func adminFlagKey(tripID, userID string) []byte {
	k := append([]byte(prefixAdminFlag), tripID...)
	k = append(k, sep)
	return append(k, userID...)
}

// LastTrip returns the last trip userID had selected, or "" when unknown.
func (c *Cache) LastTrip(userID string) (string, error) {
	v, ok, err := c.Get(lastTripKey(userID))
	if err != nil || !ok {
		return "", err
	}
	return string(v), nil
}

// SetLastTrip remembers the trip userID last selected.
func (c *Cache) SetLastTrip(userID, tripID string) error {
	return c.Set(lastTripKey(userID), []byte(tripID))
}

// AdminFlag returns the last-known admin flag for userID in tripID.
// known=false means no value was ever cached.
func (c *Cache) AdminFlag(tripID, userID string) (isAdmin, known bool, err error) {
	v, ok, err := c.Get(adminFlagKey(tripID, userID))
	if err != nil || !ok {
		return false, false, err
	}
	return len(v) == 1 && v[0] == 1, true, nil
}

// SetAdminFlag caches the admin flag for userID in tripID.
func (c *Cache) SetAdminFlag(tripID, userID string, isAdmin bool) error {
	v := []byte{0}
	if isAdmin {
		v[0] = 1
	}
	return c.Set(adminFlagKey(tripID, userID), v)
}
