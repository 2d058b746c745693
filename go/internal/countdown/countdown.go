// Package countdown implements the round clock: a one-second ticker that counts
// a remaining-seconds value down to zero and reports each tick and the expiry
// to a single observer.
package countdown

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrInvalidMax is returned when a non-positive maximum is requested.
var ErrInvalidMax = errors.New("countdown max must be positive")

// Observer receives countdown notifications. Both methods are invoked while the
// countdown lock is held: implementations must not call back into the Countdown.
type Observer interface {
	OnTick(remaining int)
	OnExpiry()
}

// Clock is the subset of clockwork.Clock the countdown needs.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	NewTicker(d time.Duration) clockwork.Ticker
}

type nopObserver struct{}

func (nopObserver) OnTick(int) {}
func (nopObserver) OnExpiry()  {}

// Countdown is safe for concurrent use. Every method and the tick callback run
// under one lock.
type Countdown struct {
	clock    Clock
	observer Observer

	mu        sync.Mutex
	remaining int
	max       int
	running   bool
	ticker    clockwork.Ticker
	done      chan struct{}
}

// New creates a stopped countdown with remaining = max. It panics if
// maxSeconds is not positive.
func New(clock Clock, maxSeconds int, observer Observer) *Countdown {
	if maxSeconds <= 0 {
		panic(ErrInvalidMax)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Countdown{
		clock:     clock,
		observer:  observer,
		remaining: maxSeconds,
		max:       maxSeconds,
	}
}

// Start resets remaining to max and arms the one-second ticker. It is a no-op
// while the countdown is already running.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}

	c.remaining = c.max
	c.running = true
	c.ticker = c.clock.NewTicker(time.Second)
	c.done = make(chan struct{})

	go c.run(c.ticker, c.done)
}

// Stop disarms the ticker. It never notifies and is safe to call at any time.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Reset sets remaining back to max and notifies a tick with that value. The
// running state is left alone.
func (c *Countdown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remaining = c.max
	c.observer.OnTick(c.remaining)
}

// SetMax stops the countdown, then sets max and remaining to seconds.
// Callers that want the clock to keep running must call Start again.
func (c *Countdown) SetMax(seconds int) error {
	if seconds <= 0 {
		return ErrInvalidMax
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.max = seconds
	c.remaining = seconds
	return nil
}

// Remaining returns the seconds left in the current run.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Max returns the configured run length in seconds.
func (c *Countdown) Max() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.max
}

// Running reports whether the ticker is armed.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Countdown) run(ticker clockwork.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticker.Chan():
			if !c.tick(done) {
				return
			}
		}
	}
}

// tick reports false once the run that owns done is over.
func (c *Countdown) tick(done chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A tick that raced with Stop, or with Stop followed by Start, belongs to
	// a run that no longer exists.
	if !c.running || c.done != done {
		return false
	}

	c.remaining--
	c.observer.OnTick(c.remaining)

	if c.remaining <= 0 {
		// running must already read false when the observer sees the expiry.
		c.stopLocked()
		c.observer.OnExpiry()
		return false
	}
	return true
}

func (c *Countdown) stopLocked() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.running = false
}
