package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsAtEpoch(t *testing.T) {
	clock := NewManualClock()
	assert.Equal(t, Epoch, clock.Now())
}

func TestManualClock_NowDoesNotAdvance(t *testing.T) {
	clock := NewManualClock()

	first := clock.Now()
	second := clock.Now()
	assert.Equal(t, first, second, "reading the clock never moves it")
}

func TestManualClock_Advance(t *testing.T) {
	clock := NewManualClock()

	got := clock.Advance(time.Second)
	assert.Equal(t, Epoch.Add(time.Second), got)
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())

	clock.Advance(50 * time.Millisecond)
	assert.Equal(t, Epoch.Add(1050*time.Millisecond), clock.Now())
}

func TestManualClock_Reset(t *testing.T) {
	clock := NewManualClock()
	clock.Advance(time.Hour)

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestManualClock_At(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := NewManualClockAt(start)
	assert.Equal(t, start, clock.Now())
}

func TestManualClock_ThreadSafe(t *testing.T) {
	clock := NewManualClock()
	const goroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Millisecond)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(time.Duration(goroutines)*time.Millisecond), clock.Now())
}

func TestManualClock_Deterministic(t *testing.T) {
	// Two clocks stepped identically read identically.
	a := NewManualClock()
	b := NewManualClock()

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Advance(time.Second), b.Advance(time.Second))
	}
}
