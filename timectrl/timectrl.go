// Package timectrl drives simulated time for transit streams.
package timectrl

import (
	"context"
	"sync"
	"time"
)

// Clock gives read access to the simulated time.
type Clock interface {
	Now() time.Time
}

// TimeController advances simulated time by Step every Tick of wall-clock
// time and notifies registered listeners after each advance.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	// Tick is the wall-clock interval between advances.
	Tick time.Duration
	// Step is the simulated time added per tick; zero means Tick.
	Step time.Duration

	currentTime time.Time

	listeners []func(time.Time)
}

// NewTimeController constructs a controller.
func NewTimeController(start time.Time, tick, step time.Duration) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Step:        step,
		currentTime: start,
	}
}

// Now returns the current simulated time.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime moves the simulated clock without notifying listeners.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

func (tc *TimeController) step() time.Duration {
	if tc.Step > 0 {
		return tc.Step
	}
	return tc.Tick
}

// Start runs the controller in a separate goroutine until span of simulated
// time has passed or ctx is done. A negative Step runs time backwards; span
// is measured in absolute simulated time. A zero span runs until ctx is done. The
// returned channel is closed when the controller stops.
func (tc *TimeController) Start(ctx context.Context, span time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		tc.mu.Lock()
		simTime := tc.StartTime
		tc.currentTime = simTime
		tc.mu.Unlock()

		step := tc.step()
		stride := step
		if stride < 0 {
			stride = -stride
		}
		elapsed := time.Duration(0)

		ticker := time.NewTicker(tc.Tick)
		defer ticker.Stop()

		for {
			if span > 0 && elapsed >= span {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			simTime = simTime.Add(step)
			elapsed += stride

			tc.mu.Lock()
			tc.currentTime = simTime
			listeners := append([]func(time.Time){}, tc.listeners...)
			tc.mu.Unlock()

			for _, fn := range listeners {
				fn(simTime)
			}
		}
	}()
	return done
}
