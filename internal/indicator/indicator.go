// Package indicator caches the exchange state a strategy reads: ticker, order book and
// open orders. Each record keeps its last good value, when it was fetched, and every
// failed fetch since the store was created.
package indicator

import (
	"slices"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// ErrorEntry is one failed refresh.
type ErrorEntry struct {
	Time time.Time
	Err  error
}

// Snapshot is a read-only copy of an indicator record.
type Snapshot[T any] struct {
	// Updated is the time of the last successful refresh
	Updated optional.Option[time.Time]
	// Data is the value of the last successful refresh
	Data optional.Option[T]
	// Errors lists every failed refresh in the order they happened
	Errors []ErrorEntry
}

// Derived is a value computed on read from a parent record. It carries the parent's
// freshness and error history.
type Derived struct {
	Value   optional.Option[decimal.Decimal]
	Updated optional.Option[time.Time]
	Errors  []ErrorEntry
}

// record holds one indicator. Data and updated only change on success; errors only grow.
type record[T any] struct {
	mu      sync.RWMutex
	updated optional.Option[time.Time]
	data    optional.Option[T]
	errors  []ErrorEntry
	clone   func(T) T
}

func newRecord[T any](clone func(T) T) *record[T] {
	return &record[T]{
		mu:      sync.RWMutex{},
		updated: optional.None[time.Time](),
		data:    optional.None[T](),
		errors:  nil,
		clone:   clone,
	}
}

func (r *record[T]) succeed(now time.Time, value T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.updated = optional.Some(now)
	r.data = optional.Some(value)
}

func (r *record[T]) fail(now time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, ErrorEntry{Time: now, Err: err})
}

func (r *record[T]) snapshot() Snapshot[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := r.data
	if r.clone != nil && data.IsSome() {
		data = optional.Some(r.clone(data.Unwrap()))
	}

	return Snapshot[T]{
		Updated: r.updated,
		Data:    data,
		Errors:  slices.Clone(r.errors),
	}
}

func (r *record[T]) errorLog() []ErrorEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.errors)
}
