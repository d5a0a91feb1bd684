package bidding

import (
	"sync"

	"github.com/google/uuid"
)

// KeyedMutex hands out one exclusive lock per auction. The bid
// submission read-compute-write sequence and the closer's per-auction
// section both take it, so a bid and a close sweep racing on the same
// auction serialize while unrelated auctions proceed in parallel.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty lock table
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the exclusive lock for the given auction and returns the
// matching unlock. Entries are reference counted so the table does not
// grow with every auction ever touched.
func (k *KeyedMutex) Lock(id uuid.UUID) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[id]
	if !ok {
		e = &lockEntry{}
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
