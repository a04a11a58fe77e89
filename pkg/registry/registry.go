package registry

import (
	"errors"
	"sync"
)

// ErrNotFound is returned for ids the registry does not hold
var ErrNotFound = errors.New("item not found")

// Registry is an in memory structure to hold a map of objects keyed by
// an increasing id. ptyctl uses registries to hold the live terminal sessions
type Registry[T any] struct {
	data     map[int]T
	latestID int

	mu sync.RWMutex
}

// NewRegistry creates a new registry
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		data:     make(map[int]T),
		latestID: 0,
	}
}

// Add adds an items to the registry in a thread safe way and returns its id
func (r *Registry[T]) Add(t T) int {
	return r.AddFunc(func(int) T { return t })
}

// AddFunc builds the item from its new id under the registry lock, so the
// item is never visible without its id
func (r *Registry[T]) AddFunc(build func(id int) T) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.latestID++
	r.data[r.latestID] = build(r.latestID)
	return r.latestID
}

// GetAll returns a snapshot of the registry contents
func (r *Registry[T]) GetAll() map[int]T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make(map[int]T, len(r.data))
	for id, val := range r.data {
		res[id] = val
	}
	return res
}

// GetByID returns an item give its registry ID
func (r *Registry[T]) GetByID(id int) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if val, ok := r.data[id]; ok {
		return val, nil
	}
	var zero T
	return zero, ErrNotFound
}

// Delete removes an item from registry
func (r *Registry[T]) Delete(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// Len returns the number of items
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.data)
}
