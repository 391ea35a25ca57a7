package game

import (
	"context"
	"sync"
)

// Locker gives exclusive sections per game. Different games must never wait
// on each other.
type Locker interface {
	// Lock blocks until the game is ours or ctx is done. The returned func
	// releases it.
	Lock(ctx context.Context, gameID string) (func(), error)
}

// KeyedMutex is an in-process Locker.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: map[string]*keyedEntry{}}
}

func (k *KeyedMutex) Lock(ctx context.Context, gameID string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[gameID]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[gameID] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(gameID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(gameID, e)
		})
	}, nil
}

func (k *KeyedMutex) release(gameID string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, gameID)
	}
}

// held is how many games have someone holding or waiting. For tests.
func (k *KeyedMutex) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
