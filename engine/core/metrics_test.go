package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsAverageAndFPS(t *testing.T) {
	m := NewMetrics()

	// 60 frames of 20ms: the average settles after the first window and
	// the one second window rolls over on frame 51.
	for i := 0; i < 60; i++ {
		m.Update(0.020)
	}
	assert.InDelta(t, 20.0, m.FrameTime(), 1e-9)
	assert.Equal(t, float64(51), m.FPS)

	// A full window of 10ms replaces the average rather than adding to it.
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.010)
	}
	fps, avg := m.Frame()
	assert.InDelta(t, 10.0, avg, 1e-9)
	assert.Greater(t, fps, float64(0))
}

func TestClock(t *testing.T) {
	c := NewClock()
	c.Update()
	assert.Zero(t, c.Elapsed(), "not started")
	assert.False(t, c.IsRunning())

	c.Start()
	assert.True(t, c.IsRunning())
	c.Update()
	first := c.Elapsed()
	assert.GreaterOrEqual(t, first, float64(0))

	c.Update()
	assert.GreaterOrEqual(t, c.Elapsed(), first)

	c.Stop()
	stopped := c.Elapsed()
	c.Update()
	assert.Equal(t, stopped, c.Elapsed())
}
