package lock

import (
	"context"
	"sync"
)

// KeyedMutex serializes work per departure id inside one process.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[int64]*entry)}
}

// Lock blocks until the departure is free or ctx is done. The returned func
// releases the lock and must be called exactly once.
func (k *KeyedMutex) Lock(ctx context.Context, departureID int64) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[departureID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.locks[departureID] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return func() { k.release(departureID, e) }, nil
	case <-ctx.Done():
		k.drop(departureID, e)
		return nil, ctx.Err()
	}
}

func (k *KeyedMutex) release(departureID int64, e *entry) {
	<-e.ch
	k.drop(departureID, e)
}

func (k *KeyedMutex) drop(departureID int64, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, departureID)
	}
}
