package replica

import "sync"

// Clock is the replica's Lamport clock. Every local mutation ticks it;
// every remote op witnessed advances it past the op's timestamp, so
// later local writes order after everything this replica has seen.
type Clock struct {
	mu      sync.Mutex
	counter uint64
}

// Tick increments the clock and returns the new value.
func (c *Clock) Tick() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counter++
	return c.counter
}

// Witness updates the clock based on a received timestamp.
func (c *Clock) Witness(timestamp uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if timestamp > c.counter {
		c.counter = timestamp
	}
}
