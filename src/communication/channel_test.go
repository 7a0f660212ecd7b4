package communication

import (
	"context"
	"testing"
	"time"

	"sp2any/src/clock"
)

func TestAlwaysImmediateDeliversLatestOnly(t *testing.T) {
	ch := New[int](Config[int]{Policy: AlwaysImmediate})
	r := ch.Subscribe()

	ch.Send(1)
	ch.Send(2)
	ch.Send(3)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, ok := r.Recv(ctx)
	if !ok {
		t.Fatalf("expected a value, got closed")
	}
	if v != 3 {
		t.Fatalf("expected latest value 3, got %d", v)
	}
}

func TestOnlyOnChangeSkipsDuplicate(t *testing.T) {
	ch := New[int](Config[int]{
		Policy: OnlyOnChange,
		Equal:  func(a, b int) bool { return a == b },
	})

	if n := ch.Send(5); n == nil || *n != 0 {
		t.Fatalf("first send should publish with 0 receivers, got %v", n)
	}
	if n := ch.Send(5); n != nil {
		t.Fatalf("duplicate send should be skipped, got %v", n)
	}
	if n := ch.Send(6); n == nil {
		t.Fatalf("changed value should publish")
	}
}

func TestRateLimitedCoalescesBursts(t *testing.T) {
	fc := &fakeClock{}
	clock.Reset()
	clock.SetForTest(fc)
	defer clock.Reset()

	ch := New[int](Config[int]{
		Policy:              RateLimitedMostRecent,
		WaitIncrement:       time.Second,
		WaitMax:             10 * time.Second,
		DurationToCountOver: time.Minute,
	})
	r := ch.Subscribe()

	ch.Send(1)
	ch.Send(2)
	ch.Send(3)

	fc.fire()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, ok := r.Recv(ctx)
	if !ok || v != 3 {
		t.Fatalf("expected coalesced latest value 3, got %d ok=%v", v, ok)
	}
}

func TestLatestSurvivesWithoutSubscriber(t *testing.T) {
	ch := New[int](Config[int]{Policy: AlwaysImmediate})
	if _, ok := ch.Latest(); ok {
		t.Fatalf("expected no latest value before any send")
	}
	ch.Send(42)
	v, ok := ch.Latest()
	if !ok || v != 42 {
		t.Fatalf("expected latest 42, got %d ok=%v", v, ok)
	}
}

func TestCloseClosesReceivers(t *testing.T) {
	ch := New[int](Config[int]{Policy: AlwaysImmediate})
	r := ch.Subscribe()
	ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, ok := r.Recv(ctx)
	if ok {
		t.Fatalf("expected closed receiver")
	}
}

// fakeClock lets the rate-limited test fire the scheduled flush
// deterministically instead of sleeping in real time.
type fakeClock struct {
	ch chan time.Time
}

func (f *fakeClock) Now() time.Time { return time.Time{} }

func (f *fakeClock) After(d time.Duration) <-chan time.Time {
	f.ch = make(chan time.Time, 1)
	return f.ch
}

func (f *fakeClock) fire() {
	for f.ch == nil {
		time.Sleep(time.Millisecond)
	}
	f.ch <- time.Time{}
	time.Sleep(50 * time.Millisecond)
}
