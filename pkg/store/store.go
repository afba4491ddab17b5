// Package store persists named gobeat programs.
//
// Programs are stored as source text; callers parse them on load. Every
// change to a program's source is kept as a numbered version.
package store

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidName is returned for empty or whitespace-only program names.
var ErrInvalidName = errors.New("store: invalid program name")

// Entry is a stored program.
type Entry struct {
	Name    string
	Source  string
	Version int
	Updated time.Time
}

// Version is one historical source of a program.
type Version struct {
	Version int
	Source  string
	Updated time.Time
}

// Store is the interface for program persistence.
type Store interface {
	// Get retrieves a program by name. Returns nil if not found.
	Get(name string) (*Entry, error)
	// Put stores a program by name, overwriting if it exists. Storing the
	// current source again is a no-op.
	Put(name, source string) error
	// Delete removes a program and its history.
	Delete(name string) error
	// List returns the latest entry of every program, sorted by name.
	List() ([]Entry, error)
	// History returns up to limit versions of a program, newest first.
	// A limit of 0 or less returns every version. Returns nil if not found.
	History(name string, limit int) ([]Version, error)
	// Close releases resources.
	Close() error
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	return nil
}
