package keymutex

import (
	"sync"
	"testing"
)

func TestSameKeySerializes(t *testing.T) {
	var m Mutex

	const goroutines = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("client-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != goroutines {
		t.Errorf("counter = %d, want %d", counter, goroutines)
	}
}

func TestDifferentKeysDoNotBlockEachOther(t *testing.T) {
	var m Mutex

	unlockA := m.Lock("client-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := m.Lock("client-b")
		unlockB()
		close(done)
	}()

	<-done
}

func TestEntriesDroppedAfterRelease(t *testing.T) {
	var m Mutex

	unlock := m.Lock("client-1")
	unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.locks) != 0 {
		t.Errorf("lock map has %d entries after release, want 0", len(m.locks))
	}
}
