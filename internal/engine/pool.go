package engine

import (
	"sync"

	"github.com/divitsinghall/Vortex/internal/model"
)

// WorkerPool is a counting admission gate bounding concurrent executions.
// It is a bulkhead, not a queue: when every slot is taken, TryAcquire
// fails immediately instead of blocking.
type WorkerPool struct {
	slots    chan struct{}
	capacity int
}

// Slot is one acquired unit of pool capacity. Release is idempotent:
// releasing twice is a programming error but cannot corrupt the counter.
type Slot struct {
	pool *WorkerPool
	once sync.Once
}

// NewWorkerPool creates a pool with the given capacity. Non-positive
// capacities fall back to 1 so the pool can always admit something.
func NewWorkerPool(capacity int) *WorkerPool {
	if capacity <= 0 {
		capacity = 1
	}
	return &WorkerPool{
		slots:    make(chan struct{}, capacity),
		capacity: capacity,
	}
}

// TryAcquire claims a slot without blocking. When the pool is saturated it
// returns a CapacityExceeded error and the caller must not queue.
func (p *WorkerPool) TryAcquire() (*Slot, error) {
	select {
	case p.slots <- struct{}{}:
		return &Slot{pool: p}, nil
	default:
		return nil, model.NewError(model.KindCapacityExceeded, "worker pool is full")
	}
}

// Release returns the slot to the pool. Safe to call more than once.
func (s *Slot) Release() {
	s.once.Do(func() {
		<-s.pool.slots
	})
}

// InUse returns the number of currently held slots.
func (p *WorkerPool) InUse() int {
	return len(p.slots)
}

// Capacity returns the pool's fixed size.
func (p *WorkerPool) Capacity() int {
	return p.capacity
}
