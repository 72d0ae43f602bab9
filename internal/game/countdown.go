package game

import (
	"fmt"
	"time"
)

// Countdown tracks the deduction-phase round timer.
// It does not own game state; the caller polls Expired and reacts.
type Countdown struct {
	Duration  time.Duration
	StartedAt time.Time
}

// Start begins the countdown at now
func (c *Countdown) Start(now time.Time, minutes int) {
	if minutes <= 0 {
		minutes = DefaultRoundMinutes
	}
	c.Duration = time.Duration(minutes) * time.Minute
	c.StartedAt = now
}

// Stop clears the countdown
func (c *Countdown) Stop() {
	*c = Countdown{}
}

// Running reports whether Start has been called since the last Stop
func (c Countdown) Running() bool {
	return !c.StartedAt.IsZero()
}

// Remaining returns the time left, never negative
func (c Countdown) Remaining(now time.Time) time.Duration {
	if !c.Running() {
		return 0
	}
	left := c.StartedAt.Add(c.Duration).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether a running countdown has reached zero
func (c Countdown) Expired(now time.Time) bool {
	return c.Running() && c.Remaining(now) == 0
}

// FormatRemaining renders the time left as m:ss
func FormatRemaining(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
