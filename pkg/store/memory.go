package store

import (
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory store for tests and sessions without a database.
type Memory struct {
	mu       sync.RWMutex
	programs map[string][]Version // oldest first
	now      func() time.Time
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		programs: make(map[string][]Version),
		now:      time.Now,
	}
}

// Get retrieves a program by name.
func (m *Memory) Get(name string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions, ok := m.programs[name]
	if !ok {
		return nil, nil
	}
	e := latest(name, versions)
	return &e, nil
}

// Put stores a program by name.
func (m *Memory) Put(name, source string) error {
	if err := checkName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	versions := m.programs[name]
	if n := len(versions); n > 0 && versions[n-1].Source == source {
		return nil
	}
	m.programs[name] = append(versions, Version{
		Version: len(versions) + 1,
		Source:  source,
		Updated: m.now(),
	})
	return nil
}

// Delete removes a program by name.
func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.programs, name)
	return nil
}

// List returns every program sorted by name.
func (m *Memory) List() ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]Entry, 0, len(m.programs))
	for name, versions := range m.programs {
		entries = append(entries, latest(name, versions))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// History returns the versions of a program, newest first.
func (m *Memory) History(name string, limit int) ([]Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions, ok := m.programs[name]
	if !ok {
		return nil, nil
	}
	n := len(versions)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Version, n)
	for i := range out {
		out[i] = versions[len(versions)-1-i]
	}
	return out, nil
}

// Close is a no-op for memory store.
func (m *Memory) Close() error {
	return nil
}

func latest(name string, versions []Version) Entry {
	v := versions[len(versions)-1]
	return Entry{
		Name:    name,
		Source:  v.Source,
		Version: v.Version,
		Updated: v.Updated,
	}
}
