package mdc

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"

	constant "github.com/godofwharf/hystrix-function-wrapper/hystrix/constants"
)

// ErrReservedKey is returned when application code writes a key owned by the
// command wrapper, such as constant.MDCTraceID.
var ErrReservedKey = errors.New("mdc: reserved key")

type storeContextKey struct{}

// Map is an immutable snapshot of a logging context. A nil Map means
// "no logging context was set".
type Map map[string]string

// Get returns the value of key in the snapshot.
func (m Map) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Keys returns the snapshot keys in lexical order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Store is a logging-context store safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Snapshot returns a copy of the current entries, or nil when the store is empty.
func (s *Store) Snapshot() Map {
	if s == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.values) == 0 {
		return nil
	}

	return maps.Clone(s.values)
}

// SetContextMap replaces every entry of the store with the snapshot.
// A nil snapshot leaves the store empty.
func (s *Store) SetContextMap(m Map) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = make(map[string]string, len(m))
	maps.Copy(s.values, m)
}

// Put sets key to value.
func (s *Store) Put(key, value string) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.values == nil {
		s.values = make(map[string]string)
	}

	s.values[key] = value
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]

	return v, ok
}

// Remove deletes key. Removing a missing key is a no-op.
func (s *Store) Remove(key string) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
}

// Clear drops every entry.
func (s *Store) Clear() {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.values)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.values)
}

// WithStore returns a context carrying store as its logging context.
func WithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeContextKey{}, store)
}

// FromContext returns the store attached to ctx, or nil.
func FromContext(ctx context.Context) *Store {
	if ctx == nil {
		return nil
	}

	store, _ := ctx.Value(storeContextKey{}).(*Store)

	return store
}

// Ensure returns ctx and its store, attaching a fresh store when ctx has none.
func Ensure(ctx context.Context) (context.Context, *Store) {
	if store := FromContext(ctx); store != nil {
		return ctx, store
	}

	store := NewStore()

	return WithStore(ctx, store), store
}

// Capture snapshots the logging context of ctx. It returns nil when ctx has no
// store or the store is empty.
func Capture(ctx context.Context) Map {
	return FromContext(ctx).Snapshot()
}

// Put sets key on the store of ctx. It is a no-op when ctx has no store.
// Reserved keys are refused with ErrReservedKey.
func Put(ctx context.Context, key, value string) error {
	if constant.IsReservedMDCKey(key) {
		return fmt.Errorf("%w: %s", ErrReservedKey, key)
	}

	FromContext(ctx).Put(key, value)

	return nil
}

// Remove deletes key from the store of ctx. Reserved keys are refused with
// ErrReservedKey.
func Remove(ctx context.Context, key string) error {
	if constant.IsReservedMDCKey(key) {
		return fmt.Errorf("%w: %s", ErrReservedKey, key)
	}

	FromContext(ctx).Remove(key)

	return nil
}
