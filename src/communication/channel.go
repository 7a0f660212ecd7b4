// Package communication implements LatestValueChannel, a single-slot
// broadcast primitive: each subscriber only ever observes the newest value,
// never a backlog. It is the fan-out mechanism between UpstreamSubscriber
// pulses, the FleetManager's per-user fronter channel, and BridgeStream.
package communication

import (
	"context"
	"sync"
	"time"

	"sp2any/src/clock"
)

// Policy selects when Send actually publishes to subscribers.
type Policy int

const (
	// AlwaysImmediate publishes every call.
	AlwaysImmediate Policy = iota
	// OnlyOnChange publishes iff the value differs from the last published
	// value; a nil/never-published last value always publishes.
	OnlyOnChange
	// RateLimitedMostRecent coalesces bursts of sends into a single delayed
	// publish of whichever value is pending when the delay elapses.
	RateLimitedMostRecent
)

// Equal compares two values of T for the OnlyOnChange policy.
type Equal[T any] func(a, b T) bool

// Config configures a LatestValueChannel's send policy.
type Config[T any] struct {
	Policy Policy

	// Equal is required for OnlyOnChange.
	Equal Equal[T]

	// WaitIncrement, WaitMax and DurationToCountOver configure
	// RateLimitedMostRecent: wait = min(WaitMax, WaitIncrement *
	// recentCount^2), where recentCount is the number of sends within the
	// trailing DurationToCountOver window.
	WaitIncrement       time.Duration
	WaitMax             time.Duration
	DurationToCountOver time.Duration
}

// LatestValueChannel is a single-slot broadcast channel with many
// independent subscribers. Readers that fall behind never block the sender
// and never observe intermediate values.
type LatestValueChannel[T any] struct {
	cfg Config[T]

	mu        sync.Mutex
	subs      map[int]chan T
	nextID    int
	closed    bool

	lastValue *T // OnlyOnChange bookkeeping

	pending   *T // RateLimitedMostRecent bookkeeping
	scheduled bool
	recent    []time.Time

	latestMu sync.Mutex
	latest   *T
}

// New constructs a LatestValueChannel using the given send policy.
func New[T any](cfg Config[T]) *LatestValueChannel[T] {
	return &LatestValueChannel[T]{
		cfg:  cfg,
		subs: make(map[int]chan T),
	}
}

// Receiver is a single subscriber's view of a LatestValueChannel.
type Receiver[T any] struct {
	parent *LatestValueChannel[T]
	id     int
	ch     chan T
}

// Subscribe registers a new receiver. The returned receiver must be closed
// with Unsubscribe when no longer needed.
func (c *LatestValueChannel[T]) Subscribe() *Receiver[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	ch := make(chan T, 1)
	if c.closed {
		close(ch)
	} else {
		c.subs[id] = ch
	}
	return &Receiver[T]{parent: c, id: id, ch: ch}
}

// Unsubscribe removes the receiver from the broadcast set.
func (r *Receiver[T]) Unsubscribe() {
	p := r.parent
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.subs[r.id]; ok {
		delete(p.subs, r.id)
	}
}

// Recv blocks until the next published value, the most recent unread value
// if one is already queued, or ctx cancellation / channel close. ok is false
// on close or cancellation.
func (r *Receiver[T]) Recv(ctx context.Context) (T, bool) {
	select {
	case v, ok := <-r.ch:
		return v, ok
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// Send publishes (or schedules the publication of) v according to the
// channel's policy. It returns the number of receivers notified at publish
// time for AlwaysImmediate/OnlyOnChange, or nil when the send was skipped
// (OnlyOnChange, value unchanged) or deferred (RateLimitedMostRecent).
func (c *LatestValueChannel[T]) Send(v T) *int {
	switch c.cfg.Policy {
	case OnlyOnChange:
		c.mu.Lock()
		skip := c.lastValue != nil && c.cfg.Equal(*c.lastValue, v)
		if !skip {
			vv := v
			c.lastValue = &vv
		}
		c.mu.Unlock()
		if skip {
			return nil
		}
		n := c.publish(v)
		return &n
	case RateLimitedMostRecent:
		c.scheduleRateLimited(v)
		return nil
	default: // AlwaysImmediate
		n := c.publish(v)
		return &n
	}
}

func (c *LatestValueChannel[T]) publish(v T) int {
	c.latestMu.Lock()
	vv := v
	c.latest = &vv
	c.latestMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ch := range c.subs {
		select {
		case ch <- v:
		default:
			// Slot occupied by an unread value: drop it, then replace.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
		n++
	}
	return n
}

func (c *LatestValueChannel[T]) scheduleRateLimited(v T) {
	c.mu.Lock()
	now := clock.Now()
	cutoff := now.Add(-c.cfg.DurationToCountOver)
	kept := c.recent[:0]
	for _, t := range c.recent {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	c.recent = append(kept, now)
	count := len(c.recent)

	wait := c.cfg.WaitIncrement * time.Duration(count*count)
	if wait > c.cfg.WaitMax {
		wait = c.cfg.WaitMax
	}

	vv := v
	c.pending = &vv
	alreadyScheduled := c.scheduled
	c.scheduled = true
	c.mu.Unlock()

	if alreadyScheduled {
		return
	}

	go func() {
		<-clock.After(wait)
		c.mu.Lock()
		pending := c.pending
		c.pending = nil
		c.scheduled = false
		c.mu.Unlock()
		if pending != nil {
			c.publish(*pending)
		}
	}()
}

// Latest returns the most recently published value without consuming it
// from any receiver's queue, and whether a value has ever been published.
// Used by FleetManager.FronterChannelGetMostRecentValue and the public
// fronting page.
func (c *LatestValueChannel[T]) Latest() (T, bool) {
	c.latestMu.Lock()
	defer c.latestMu.Unlock()
	if c.latest == nil {
		var zero T
		return zero, false
	}
	return *c.latest, true
}

// Close terminates the channel: every receiver observes its channel close
// (after draining any value still queued), and subsequent Subscribe calls
// receive an already-closed channel.
func (c *LatestValueChannel[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}
