package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyMutex_SerializesSameKey(t *testing.T) {
	km := newKeyMutex()

	const workers = 8
	const iterations = 50

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				unlock := km.Lock("INS-A|City Hospital")
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*iterations, counter)
}

func TestKeyMutex_IndependentKeysDoNotBlock(t *testing.T) {
	km := newKeyMutex()

	unlockA := km.Lock("INS-A|City Hospital")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("INS-B|City Hospital")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on an independent key blocked")
	}
}

func TestKeyMutex_ReleasesEntries(t *testing.T) {
	km := newKeyMutex()

	unlock := km.Lock("INS-A|City Hospital")
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	require.Empty(t, km.locks)
}
