// Package prefs persists small user preferences, such as the last city the
// user picked, across sessions.
package prefs

import (
	"context"
	"errors"
	"fmt"
)

// LastCityKey is the key under which the most recently selected city is kept.
const LastCityKey = "cityName"

var (
	// ErrNotFound is returned when no value is stored under a key.
	ErrNotFound = errors.New("preference not found")
)

// Store is a string key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Supported drivers for Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Open returns the store selected by driver. path is ignored for memory.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, "":
		s, err := NewSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite preferences %s: %w", path, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown preference store driver %q", driver)
	}
}
