// Package settings persists small application-private key-value settings,
// grouped by namespace.
package settings

import (
	"errors"
	"sync"
)

// Namespace and key used for the saved printer.
const (
	PrinterNamespace  = "PrinterSettings"
	PrinterAddressKey = "printer_address"
)

var ErrEmptyKey = errors.New("settings key must not be empty")

// Store reads and writes string values.
type Store interface {
	// String returns the value for key and whether it was present.
	String(key string) (string, bool, error)
	// SetString overwrites the value for key.
	SetString(key, value string) error
}

// MemoryStore is a Store that only lives as long as the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) String(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) SetString(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
)
