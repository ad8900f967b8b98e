package nav

import (
	"sync"
	"time"
)

// DefaultTimeLimit is the quiz time budget when none is configured.
const DefaultTimeLimit = 90 * time.Minute

// Countdown is a one-second-resolution timer over a fixed budget. It fires
// onExpire exactly once when the budget reaches zero and never goes negative.
// It is a local display of elapsed budget only; whether the backend accepts
// a late submission is the backend's call.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	expired   bool
	onTick    func(remaining int)
	onExpire  func()

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewCountdown builds a countdown over the budget, truncated to whole
// seconds. Either callback may be nil.
func NewCountdown(budget time.Duration, onTick func(remaining int), onExpire func()) *Countdown {
	remaining := int(budget / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return &Countdown{
		remaining: remaining,
		onTick:    onTick,
		onExpire:  onExpire,
		stopCh:    make(chan struct{}),
	}
}

// Start decrements once per second until expiry or Stop.
func (c *Countdown) Start() {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !c.Tick() {
					return
				}
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Tick advances the countdown by one second and reports whether it is still
// running. Exposed so tests can drive time deterministically.
func (c *Countdown) Tick() bool {
	c.mu.Lock()
	if c.expired || c.remaining <= 0 {
		c.mu.Unlock()
		return false
	}
	c.remaining--
	remaining := c.remaining
	expiredNow := remaining == 0
	if expiredNow {
		c.expired = true
	}
	onTick := c.onTick
	onExpire := c.onExpire
	c.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if expiredNow {
		c.Stop()
		if onExpire != nil {
			onExpire()
		}
		return false
	}
	return true
}

// Remaining returns the seconds left; never negative.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Expired reports whether the budget ran out.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// Stop halts the countdown. Safe to call more than once.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
