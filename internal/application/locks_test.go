package application

import (
	"sync"
	"testing"

	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	t.Parallel()

	locks := newKeyedMutex()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("1234")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, locks.size())
}

func TestKeyedMutexDistinctKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	locks := newKeyedMutex()
	unlockFirst := locks.Lock("1111")
	unlockSecond := locks.Lock("2222")
	assert.Equal(t, 2, locks.size())

	unlockSecond()
	unlockFirst()
	assert.Zero(t, locks.size())
}

func (k *keyedMutex) refs(id domain.SessionID) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	if entry, ok := k.locks[id]; ok {
		return entry.refs
	}
	return 0
}
