package services

import (
	"fmt"
	"sync"
	"time"
)

// WarningThreshold is the remaining time below which the countdown is shown as urgent.
const WarningThreshold = 5 * time.Minute

type CountdownState string

const (
	CountdownIdle    CountdownState = "idle"
	CountdownRunning CountdownState = "running"
	CountdownExpired CountdownState = "expired"
	CountdownStopped CountdownState = "stopped"
)

// Ticker is the part of time.Ticker the countdown needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.ticker.C }
func (t timeTicker) Stop()               { t.ticker.Stop() }

// NewTimeTicker is the TickerFactory backed by the wall clock.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{ticker: time.NewTicker(d)}
}

// Countdown counts a test duration down one second per tick and fires its
// expiry callback exactly once. All methods except the ticker goroutine
// started by Start must run on the owning session's event loop.
type Countdown struct {
	state     CountdownState
	remaining int
	onTick    func(remaining int)
	onExpire  func()
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewCountdown builds an idle countdown. A nil or non-positive duration
// leaves it unconfigured and Start becomes a no-op.
func NewCountdown(durationMinutes *int, onTick func(remaining int), onExpire func()) *Countdown {
	c := &Countdown{
		state:    CountdownIdle,
		onTick:   onTick,
		onExpire: onExpire,
		stop:     make(chan struct{}),
	}
	if durationMinutes != nil && *durationMinutes > 0 {
		c.remaining = *durationMinutes * 60
	}
	return c
}

// Start begins ticking. Each tick is handed to post, which must run it on
// the event loop; the ticker goroutine ends when post refuses a tick.
func (c *Countdown) Start(post func(func()) bool, newTicker TickerFactory) bool {
	if c.state != CountdownIdle || c.remaining <= 0 {
		return false
	}
	if newTicker == nil {
		newTicker = NewTimeTicker
	}

	c.state = CountdownRunning
	ticker := newTicker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C():
				if !post(c.Tick) {
					return
				}
			}
		}
	}()
	return true
}

// Tick advances the countdown by one second.
func (c *Countdown) Tick() {
	if c.state != CountdownRunning {
		return
	}

	c.remaining--
	if c.remaining > 0 {
		if c.onTick != nil {
			c.onTick(c.remaining)
		}
		return
	}

	c.remaining = 0
	c.state = CountdownExpired
	c.halt()
	if c.onTick != nil {
		c.onTick(0)
	}
	if c.onExpire != nil {
		c.onExpire()
	}
}

// Stop cancels a running countdown without firing expiry.
func (c *Countdown) Stop() {
	if c.state == CountdownRunning {
		c.state = CountdownStopped
	}
	c.halt()
}

func (c *Countdown) halt() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Countdown) State() CountdownState {
	return c.state
}

// Configured reports whether the test has a time limit at all.
func (c *Countdown) Configured() bool {
	return c.remaining > 0 || c.state != CountdownIdle
}

func (c *Countdown) Remaining() int {
	return c.remaining
}

// FormatRemaining renders seconds as "1h 05m 09s" from an hour up and "4:07" below.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
