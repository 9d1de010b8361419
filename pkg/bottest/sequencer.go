package bottest

import "sync"

// Identifier bases of a fresh Sequencer.
const (
	UserIDBase     int64 = 100000
	MessageIDBase  int64 = 1
	CallbackIDBase int64 = 1
	UpdateIDBase   int64 = 1
)

// Counter is a monotonic identifier source with an explicit reset.
type Counter struct {
	mu   sync.Mutex
	base int64
	next int64
}

// NewCounter creates a counter whose first value is base.
func NewCounter(base int64) *Counter {
	return &Counter{base: base, next: base}
}

// Next returns the current value and advances the counter by one.
func (c *Counter) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	value := c.next
	c.next++

	return value
}

// Peek returns the value Next would return without consuming it.
func (c *Counter) Peek() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.next
}

// Base returns the first value of the counter.
func (c *Counter) Base() int64 {
	return c.base
}

// Reset restores the counter to its base.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next = c.base
}

// Sequencer holds the independent identifier counters of one session.
type Sequencer struct {
	Users     *Counter
	Messages  *Counter
	Callbacks *Counter
	Updates   *Counter
}

// NewSequencer creates a sequencer with every counter at its base.
func NewSequencer() *Sequencer {
	return &Sequencer{
		Users:     NewCounter(UserIDBase),
		Messages:  NewCounter(MessageIDBase),
		Callbacks: NewCounter(CallbackIDBase),
		Updates:   NewCounter(UpdateIDBase),
	}
}

// Reset restores all four counters to their bases.
func (s *Sequencer) Reset() {
	s.Users.Reset()
	s.Messages.Reset()
	s.Callbacks.Reset()
	s.Updates.Reset()
}
