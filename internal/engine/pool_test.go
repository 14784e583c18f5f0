package engine

import (
	"errors"
	"sync"
	"testing"

	"github.com/divitsinghall/Vortex/internal/model"
)

func TestPoolAcquireUpToCapacity(t *testing.T) {
	p := NewWorkerPool(3)

	var slots []*Slot
	for i := 0; i < 3; i++ {
		s, err := p.TryAcquire()
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		slots = append(slots, s)
	}

	if p.InUse() != 3 {
		t.Errorf("InUse = %d, want 3", p.InUse())
	}

	if _, err := p.TryAcquire(); !errors.Is(err, model.NewError(model.KindCapacityExceeded, "")) {
		t.Fatalf("acquire beyond capacity = %v, want capacity exceeded", err)
	}

	slots[0].Release()
	if _, err := p.TryAcquire(); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestPoolReleaseIsIdempotent(t *testing.T) {
	p := NewWorkerPool(2)

	s, err := p.TryAcquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	s.Release()
	s.Release()
	s.Release()

	if p.InUse() != 0 {
		t.Errorf("InUse = %d after repeated release, want 0", p.InUse())
	}

	// The counter must not have gone negative: capacity is still 2.
	a, _ := p.TryAcquire()
	b, _ := p.TryAcquire()
	if a == nil || b == nil {
		t.Fatal("pool lost capacity after double release")
	}
	if _, err := p.TryAcquire(); err == nil {
		t.Error("pool gained capacity after double release")
	}
}

func TestPoolConcurrentAcquire(t *testing.T) {
	const capacity = 10
	const callers = 25

	p := NewWorkerPool(capacity)

	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0
	rejected := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.TryAcquire(); err != nil {
				mu.Lock()
				rejected++
				mu.Unlock()
				return
			}
			mu.Lock()
			acquired++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if acquired != capacity {
		t.Errorf("acquired = %d, want %d", acquired, capacity)
	}
	if rejected != callers-capacity {
		t.Errorf("rejected = %d, want %d", rejected, callers-capacity)
	}
}

func TestPoolClampsNonPositiveCapacity(t *testing.T) {
	p := NewWorkerPool(0)
	if p.Capacity() != 1 {
		t.Errorf("Capacity = %d, want 1", p.Capacity())
	}
}
