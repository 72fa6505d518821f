// Package gate bounds concurrency against upstream model APIs.
//
// Embedding and completion calls share one gate so that a burst of document
// processing cannot starve interactive question answering of API slots.
package gate

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is a counting semaphore shared by all upstream API callers.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int64
	inFlight atomic.Int64
}

// New creates a gate admitting at most capacity concurrent holders.
func New(capacity int64) (*Gate, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("gate capacity must be positive, got %d", capacity)
	}
	return &Gate{
		sem:      semaphore.NewWeighted(capacity),
		capacity: capacity,
	}, nil
}

// Acquire blocks until a slot is free or ctx is done.
//
// Every successful Acquire must be paired with exactly one Release.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquiring gate slot: %w", err)
	}
	g.inFlight.Add(1)
	return nil
}

// TryAcquire takes a slot without blocking, reporting whether it succeeded.
func (g *Gate) TryAcquire() bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.inFlight.Add(1)
	return true
}

// Release frees a slot taken by Acquire or TryAcquire.
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// Do runs fn while holding a slot.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn()
}

// Capacity returns the configured slot count.
func (g *Gate) Capacity() int64 {
	return g.capacity
}

// InFlight returns the number of currently held slots.
func (g *Gate) InFlight() int64 {
	return g.inFlight.Load()
}
