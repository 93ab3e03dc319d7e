package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualAfter(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	fired := 0
	m.After(500*time.Millisecond, func() { fired++ })

	m.Advance(499 * time.Millisecond)
	assert.Zero(t, fired)

	m.Advance(time.Millisecond)
	assert.Equal(t, 1, fired)

	m.Advance(time.Hour)
	assert.Equal(t, 1, fired, "one-shot must not fire twice")
	assert.Zero(t, m.Pending())
}

func TestManualEvery(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var ticks []time.Time
	task := m.Every(time.Second, func() { ticks = append(ticks, m.Now()) })

	m.Advance(3500 * time.Millisecond)
	require.Len(t, ticks, 3)
	assert.Equal(t, time.Unix(3, 0), ticks[2])

	task.Stop()
	task.Stop()
	m.Advance(10 * time.Second)
	assert.Len(t, ticks, 3)
	assert.Equal(t, time.Unix(13, 500_000_000), m.Now())
}

func TestManualStopFromCallback(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	count := 0
	var task Task
	task = m.Every(time.Second, func() {
		count++
		if count == 2 {
			task.Stop()
		}
	})

	m.Advance(time.Minute)
	assert.Equal(t, 2, count)
}

func TestManualOrdersByDueTime(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var order []string
	m.After(2*time.Second, func() { order = append(order, "late") })
	m.After(time.Second, func() { order = append(order, "early") })
	m.After(time.Second, func() { order = append(order, "early-second") })

	m.Advance(5 * time.Second)
	assert.Equal(t, []string{"early", "early-second", "late"}, order)
}

func TestClockEveryStops(t *testing.T) {
	c := NewClock()
	var n atomic.Int32
	task := c.Every(time.Millisecond, func() { n.Add(1) })

	require.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
	task.Stop()
	task.Stop()

	settled := n.Load()
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, n.Load(), settled+1)
}

func TestClockAfter(t *testing.T) {
	c := NewClock()
	done := make(chan struct{})
	c.After(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("After callback never ran")
	}

	stopped := c.After(time.Hour, func() { t.Error("stopped task fired") })
	stopped.Stop()
	stopped.Stop()
}
