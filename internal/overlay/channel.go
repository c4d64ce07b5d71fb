// Package overlay carries the "currently highlighted region" between the
// results list and the preview renderer without either holding the other.
package overlay

import (
	"sync"

	"github.com/jask/scandraw/internal/feature"
)

// Listener receives the held region at the time it is invoked. A nil region
// means nothing is highlighted.
type Listener func(region *feature.Region)

type subscription struct {
	id uint64
	fn Listener
}

// Channel is a single-slot broadcast: it keeps only the latest region and
// notifies subscribers synchronously on every publish.
type Channel struct {
	mu      sync.Mutex
	current *feature.Region
	subs    []subscription
	nextID  uint64
}

func New() *Channel {
	return &Channel{}
}

// Publish replaces the held region and notifies every current subscriber in
// registration order before returning.
func (c *Channel) Publish(region *feature.Region) {
	var held *feature.Region
	if region != nil {
		r := *region
		held = &r
	}

	c.mu.Lock()
	c.current = held
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		if !c.subscribed(s.id) {
			continue
		}
		s.fn(c.Current())
	}
}

// Clear is Publish(nil).
func (c *Channel) Clear() { c.Publish(nil) }

// Current returns a copy of the held region, or nil.
func (c *Channel) Current() *feature.Region {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	r := *c.current
	return &r
}

// Subscribe registers fn for future publishes. It does not replay the held
// value; use Current for that. The returned func is idempotent and must be
// called when the consumer goes away.
func (c *Channel) Subscribe(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.remove(id) })
	}
}

// Subscribers reports how many listeners are registered.
func (c *Channel) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Channel) subscribed(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subs {
		if s.id == id {
			return true
		}
	}
	return false
}

func (c *Channel) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subs {
		if s.id == id {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return
		}
	}
}
