package bidding

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	id := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock(id)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := NewKeyedMutex()
	a, b := uuid.New(), uuid.New()

	unlockA := km.Lock(a)
	defer unlockA()

	// Holding a must not block b.
	done := make(chan struct{})
	go func() {
		unlockB := km.Lock(b)
		unlockB()
		close(done)
	}()
	<-done
}

func TestKeyedMutex_EntriesAreReclaimed(t *testing.T) {
	km := NewKeyedMutex()

	for i := 0; i < 50; i++ {
		unlock := km.Lock(uuid.New())
		unlock()
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks, "released entries must not accumulate")
}
