package otp

import (
	"sync"
	"time"
)

// DefaultCooldown is the wait between two resend requests.
const DefaultCooldown = 60 * time.Second

// Cooldown is a countdown in whole seconds. Remaining is derived from the
// clock, not from counted ticks, so a late tick never stretches the wait.
// The one-second ticker only drives the tick handler and is torn down when
// the countdown reaches zero or Stop is called.
type Cooldown struct {
	mu       sync.Mutex
	clock    Clock
	period   time.Duration
	deadline time.Time
	stop     chan struct{}
	onTick   func(remaining int)
}

// CooldownOption configures a Cooldown.
type CooldownOption func(*Cooldown)

// WithClock replaces the real clock.
func WithClock(c Clock) CooldownOption {
	return func(cd *Cooldown) {
		if c != nil {
			cd.clock = c
		}
	}
}

// WithTickHandler registers fn to be called on every tick with the remaining
// seconds. The last call carries 0.
func WithTickHandler(fn func(remaining int)) CooldownOption {
	return func(cd *Cooldown) {
		cd.onTick = fn
	}
}

// NewCooldown returns an inactive countdown. A non-positive period falls back
// to DefaultCooldown.
func NewCooldown(period time.Duration, opts ...CooldownOption) *Cooldown {
	if period <= 0 {
		period = DefaultCooldown
	}
	cd := &Cooldown{clock: RealClock{}, period: period}
	for _, opt := range opts {
		opt(cd)
	}
	return cd
}

// Period is the full countdown length.
func (c *Cooldown) Period() time.Duration {
	return c.period
}

// Start (re)starts the countdown from the full period.
func (c *Cooldown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.deadline = c.clock.Now().Add(c.period)

	stop := make(chan struct{})
	c.stop = stop
	go c.run(c.clock.NewTicker(time.Second), stop)
}

// Stop cancels the countdown; Remaining becomes 0.
func (c *Cooldown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.deadline = time.Time{}
}

// Remaining returns whole seconds left, rounded up.
func (c *Cooldown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

// Active reports whether the countdown is still running.
func (c *Cooldown) Active() bool {
	return c.Remaining() > 0
}

func (c *Cooldown) remainingLocked() int {
	if c.deadline.IsZero() {
		return 0
	}
	left := c.deadline.Sub(c.clock.Now())
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

func (c *Cooldown) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Cooldown) run(ticker Ticker, stop chan struct{}) {
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			c.mu.Lock()
			if c.stop != stop {
				c.mu.Unlock()
				return
			}
			remaining := c.remainingLocked()
			if remaining == 0 {
				c.stop = nil
				c.deadline = time.Time{}
			}
			onTick := c.onTick
			c.mu.Unlock()

			if onTick != nil {
				onTick(remaining)
			}
			if remaining == 0 {
				return
			}
		}
	}
}
