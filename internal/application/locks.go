package application

import (
	"sync"

	"github.com/bnema/lfg-coordinator/internal/domain"
)

// keyedMutex serializes work per session id. Entries are reference counted so
// the map only holds ids that are locked or waited on.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[domain.SessionID]*refMutex
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[domain.SessionID]*refMutex{}}
}

// Lock blocks until id is free and returns the matching unlock function.
func (k *keyedMutex) Lock(id domain.SessionID) func() {
	k.mu.Lock()
	entry, ok := k.locks[id]
	if !ok {
		entry = &refMutex{}
		k.locks[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
