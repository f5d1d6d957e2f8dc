package engine

import "sync"

// keyMutex provides mutual exclusion per string key. Runs for the same
// insurer/provider pair must never interleave; without this, two jobs
// triggered by two claims for the same pair would each re-scan the backlog
// and commit overlapping day-batches.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*lockEntry)}
}

// Lock acquires the mutex for key and returns its release function.
// Entries are reference counted so the map does not grow without bound.
func (k *keyMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
