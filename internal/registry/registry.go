// Package registry maps client identities to update callbacks without
// keeping the clients alive.
//
// # Design
//
// Keys are [weak.Pointer] values, which compare equal when made from the same
// pointer even after the object is reclaimed. Each entry owns a
// [runtime.AddCleanup] registration that purges it once the client is
// collected; until the cleanup runs, Each skips entries whose weak pointer
// already reports nil.
//
// # What this package must NOT do
//
//   - Hold a strong reference to a client key anywhere, including closures.
//   - Invoke values while holding the registry lock.
package registry

import (
	"runtime"
	"sort"
	"sync"
	"weak"
)

// Registry holds one value per live client key.
type Registry[V any] struct {
	mu      sync.Mutex
	seq     uint64
	entries map[any]*entry[V]
	onPurge func()
}

type entry[V any] struct {
	seq     uint64
	value   V
	live    func() bool
	cleanup runtime.Cleanup
}

// New returns an empty registry. onPurge, if set, runs after an entry is
// dropped because its client was collected.
func New[V any](onPurge func()) *Registry[V] {
	return &Registry[V]{
		entries: make(map[any]*entry[V]),
		onPurge: onPurge,
	}
}

// Register inserts or replaces the value for client and reports whether an
// existing entry was replaced. client must be non-nil and point to a
// non-zero-sized value.
func Register[T, V any](r *Registry[V], client *T, value V) bool {
	key := weak.Make(client)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	seq := r.seq
	e := &entry[V]{
		seq:   seq,
		value: value,
		live:  func() bool { return key.Value() != nil },
	}
	e.cleanup = runtime.AddCleanup(client, func(k weak.Pointer[T]) {
		r.purge(k, seq)
	}, key)

	old, replaced := r.entries[key]
	if replaced {
		old.cleanup.Stop()
	}
	r.entries[key] = e
	return replaced
}

// Unregister removes the entry for client. It reports false when there was
// nothing to remove.
func Unregister[T, V any](r *Registry[V], client *T) bool {
	key := weak.Make(client)

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return false
	}
	e.cleanup.Stop()
	delete(r.entries, key)
	return true
}

// Contains reports whether client has an entry.
func Contains[T, V any](r *Registry[V], client *T) bool {
	key := weak.Make(client)

	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[key]
	return ok
}

// Each calls fn for every entry whose client is still reachable, iterating a
// snapshot taken at call time so fn may register or unregister freely. It
// returns how many values were delivered and how many were skipped because
// their client was gone.
func (r *Registry[V]) Each(fn func(V)) (delivered, skipped int) {
	for _, e := range r.snapshot() {
		if !e.live() {
			skipped++
			continue
		}
		fn(e.value)
		delivered++
	}
	return delivered, skipped
}

// Len counts entries whose client is still reachable.
func (r *Registry[V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if e.live() {
			n++
		}
	}
	return n
}

// Purge drops entries whose client is gone and returns how many were dropped.
func (r *Registry[V]) Purge() int {
	r.mu.Lock()
	n := 0
	for k, e := range r.entries {
		if e.live() {
			continue
		}
		e.cleanup.Stop()
		delete(r.entries, k)
		n++
	}
	r.mu.Unlock()

	for i := 0; i < n; i++ {
		r.notifyPurge()
	}
	return n
}

// Clear drops every entry and returns how many there were.
func (r *Registry[V]) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	for k, e := range r.entries {
		e.cleanup.Stop()
		delete(r.entries, k)
	}
	return n
}

func (r *Registry[V]) snapshot() []*entry[V] {
	r.mu.Lock()
	out := make([]*entry[V], 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// purge runs on the runtime's cleanup goroutine.
func (r *Registry[V]) purge(key any, seq uint64) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok || e.seq != seq {
		r.mu.Unlock()
		return
	}
	delete(r.entries, key)
	r.mu.Unlock()

	r.notifyPurge()
}

func (r *Registry[V]) notifyPurge() {
	if r.onPurge != nil {
		r.onPurge()
	}
}
