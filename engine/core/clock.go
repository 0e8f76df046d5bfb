package core

import "github.com/loov/hrtime"

// Clock measures wall time in seconds from the moment it was started.
type Clock struct {
	startTime float64
	elapsed   float64
}

func NewClock() *Clock {
	return &Clock{}
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.startTime != 0 {
		c.elapsed = now() - c.startTime
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = now()
	c.elapsed = 0
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = 0
}

func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

func (c *Clock) IsRunning() bool {
	return c.startTime != 0
}

// hrtime starts counting at process start, shift by one nanosecond so a
// running clock never reports a zero start time.
func now() float64 {
	return (hrtime.Now() + 1).Seconds()
}

// AbsoluteTime returns the high resolution time in seconds.
func AbsoluteTime() float64 {
	return now()
}
