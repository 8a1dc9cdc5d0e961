package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced Clock for tests.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	timers  []*fakeTimer
}

// NewFake creates a Fake clock positioned at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the current fake time.
func (fake *Fake) Now() time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.now
}

// NewTicker creates a ticker that fires as the clock is advanced.
func (fake *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	ticker := &fakeTicker{
		period: d,
		next:   fake.now.Add(d),
		ch:     make(chan time.Time, 1),
	}
	fake.tickers = append(fake.tickers, ticker)
	return ticker
}

// AfterFunc schedules f to run once the clock has advanced by d.
func (fake *Fake) AfterFunc(d time.Duration, f func()) Timer {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	timer := &fakeTimer{when: fake.now.Add(d), fn: f}
	fake.timers = append(fake.timers, timer)
	return timer
}

// Advance moves the clock forward, firing due tickers and timers.
// Like time.Ticker, a ticker that is not drained keeps only one pending tick.
// Timer callbacks run synchronously before Advance returns.
func (fake *Fake) Advance(d time.Duration) {
	fake.mu.Lock()
	fake.now = fake.now.Add(d)
	now := fake.now

	for _, ticker := range fake.tickers {
		ticker.fire(now)
	}

	var due []func()
	pending := fake.timers[:0]
	for _, timer := range fake.timers {
		if timer.expire(now) {
			due = append(due, timer.fn)
			continue
		}
		if !timer.isStopped() {
			pending = append(pending, timer)
		}
	}
	fake.timers = pending
	fake.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

// Tickers reports how many tickers are still running.
func (fake *Fake) Tickers() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	count := 0
	for _, ticker := range fake.tickers {
		if !ticker.isStopped() {
			count++
		}
	}
	return count
}

type fakeTicker struct {
	mu      sync.Mutex
	period  time.Duration
	next    time.Time
	ch      chan time.Time
	stopped bool
}

func (ticker *fakeTicker) C() <-chan time.Time {
	return ticker.ch
}

func (ticker *fakeTicker) Stop() {
	ticker.mu.Lock()
	ticker.stopped = true
	ticker.mu.Unlock()
}

func (ticker *fakeTicker) isStopped() bool {
	ticker.mu.Lock()
	defer ticker.mu.Unlock()
	return ticker.stopped
}

func (ticker *fakeTicker) fire(now time.Time) {
	ticker.mu.Lock()
	defer ticker.mu.Unlock()
	if ticker.stopped {
		return
	}
	for !ticker.next.After(now) {
		select {
		case ticker.ch <- ticker.next:
		default:
		}
		ticker.next = ticker.next.Add(ticker.period)
	}
}

type fakeTimer struct {
	mu      sync.Mutex
	when    time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (timer *fakeTimer) Stop() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if timer.stopped || timer.fired {
		return false
	}
	timer.stopped = true
	return true
}

func (timer *fakeTimer) isStopped() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.stopped
}

func (timer *fakeTimer) expire(now time.Time) bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if timer.stopped || timer.fired || timer.when.After(now) {
		return false
	}
	timer.fired = true
	return true
}
