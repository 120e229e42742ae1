// Package persistence is the concrete adapter behind spec.md's abstract
// get_string/get_bool/set_string/set_bool key-value interface: an embedded,
// mmap-backed tidwall/buntdb database holding the two persistence keys this
// daemon owns ("dltConfig" and "dltOutputEnabled").
package persistence

import (
	"errors"
	"fmt"

	"github.com/tidwall/buntdb"
)

// Store wraps a buntdb.DB so the rest of the repository only ever sees the
// narrow get/set contract spec.md names, never buntdb's own API.
type Store struct {
	db *buntdb.DB
}

// Open opens (creating if necessary) the buntdb file at path. Pass ":memory:"
// for an ephemeral, disk-free store, which is what tests and the demo
// command use.
func Open(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// GetString returns the string stored at key, and false if no value is set.
func (s *Store) GetString(key string) (string, bool) {
	var val string
	var found bool
	_ = s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return nil
			}
			return err
		}
		val, found = v, true
		return nil
	})
	return val, found
}

// SetString persists value at key.
func (s *Store) SetString(key, value string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, value, nil)
		return err
	})
}

// GetBool returns the boolean stored at key, and false (as its second
// result) if no value is set. Any stored value other than "true" is read
// as false with found=true, matching the fail-soft posture spec.md §7
// takes for any non-fatal error class.
func (s *Store) GetBool(key string) (bool, bool) {
	raw, found := s.GetString(key)
	if !found {
		return false, false
	}
	return raw == "true", true
}

// SetBool persists value at key as the literal string "true" or "false".
func (s *Store) SetBool(key string, value bool) error {
	if value {
		return s.SetString(key, "true")
	}
	return s.SetString(key, "false")
}

// Delete removes key, if present.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key)
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		return err
	})
}
