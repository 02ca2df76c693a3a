// internal/storage/memory.go
// Package storage persists the small amount of client state that must survive
// a restart: the user and admin tokens and the offline saved-items list.
// It provides an in-memory backend and a BadgerDB backend.
package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/goccy/go-json"
)

// Stable key names of the persisted state. They match the names the web
// client used in local storage so an exported state can be imported as is.
const (
	KeyUserToken  = "photoApp_token"      // Bearer token of the client account
	KeyAdminToken = "admin_token"         // Bearer token of the admin panel
	KeySavedItems = "photoApp_savedItems" // JSON array of saved content ids (offline fallback)
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("not found")

// Store interface defines the local state operations.
// This interface is implemented by both in-memory and BadgerDB backends.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error) // ErrNotFound when unset
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error // Deleting an unset key is not an error
	Close() error
}

// memory implements the Store interface using a map.
// It's intended for development and testing purposes.
type memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory creates a new in-memory store.
func NewMemory() Store {
	return &memory{values: make(map[string][]byte)}
}

func (m *memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *memory) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.values[key] = v
	return nil
}

func (m *memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

func (m *memory) Close() error { return nil }

// GetString reads key as a string. A missing key yields "" and no error.
func GetString(ctx context.Context, s Store, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// PutString writes value under key, deleting the key when value is empty.
func PutString(ctx context.Context, s Store, key, value string) error {
	if value == "" {
		return s.Delete(ctx, key)
	}
	return s.Put(ctx, key, []byte(value))
}

// GetIDs reads a JSON array of ids. A missing key yields nil and no error.
func GetIDs(ctx context.Context, s Store, key string) ([]string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(v, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// PutIDs writes ids as a JSON array under key.
func PutIDs(ctx context.Context, s Store, key string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return s.Put(ctx, key, b)
}
