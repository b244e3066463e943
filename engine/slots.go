package engine

import "sync"

// SlotPool hands out integer display slots in [0, capacity) to
// concurrent transfers. Acquire always returns the smallest free slot;
// when every slot is held it blocks until one is released. Acquire and
// Release are called from multiple workers, so both run under one lock.
type SlotPool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	held     []bool
}

// NewSlotPool creates a pool of the given capacity.
func NewSlotPool(capacity int) *SlotPool {
	p := &SlotPool{
		capacity: capacity,
		held:     make([]bool, capacity),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Capacity returns the slot count.
func (p *SlotPool) Capacity() int {
	return p.capacity
}

// Acquire returns the smallest slot not currently held, marking it
// held. Blocks while all slots are taken.
func (p *SlotPool) Acquire() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		for slot, taken := range p.held {
			if !taken {
				p.held[slot] = true
				return slot
			}
		}
		p.cond.Wait()
	}
}

// Release frees the slot and wakes one waiter.
func (p *SlotPool) Release(slot int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if slot < 0 || slot >= p.capacity {
		return
	}
	p.held[slot] = false
	p.cond.Signal()
}
