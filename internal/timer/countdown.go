package timer

import (
	"sync"
	"time"
)

// Countdown is a tick-based countdown: one decrement per tick. It is a pure
// tick source; on reaching zero it emits a single finish callback and stops.
// What that callback means (focus finished, break finished) is decided by
// the caller feeding events to the lifecycle controller.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	tick      time.Duration
	stop      chan struct{}
	running   bool
	onFinish  func()
}

// New creates a countdown of the given number of seconds
func New(seconds int, onFinish func()) *Countdown {
	return &Countdown{
		remaining: seconds,
		tick:      time.Second,
		onFinish:  onFinish,
	}
}

// SetTick overrides the tick duration
func (c *Countdown) SetTick(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = d
}

// Remaining returns the seconds left
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Running reports whether the countdown is active
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start begins ticking. Starting an already running or finished countdown
// is a no-op.
func (c *Countdown) Start() {
	c.mu.Lock()
	if c.running || c.remaining <= 0 {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stop = make(chan struct{})
	stop := c.stop
	tick := c.tick
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				c.remaining--
				done := c.remaining <= 0
				if done {
					c.running = false
				}
				onFinish := c.onFinish
				c.mu.Unlock()
				if done {
					if onFinish != nil {
						onFinish()
					}
					return
				}
			case <-stop:
				return
			}
		}
	}()
}

// Stop pauses the countdown without emitting the finish callback
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stop)
}
