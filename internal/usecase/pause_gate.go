package usecase

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultPausePollInterval is how often a paused loop re-checks the gate.
const DefaultPausePollInterval = time.Second

// PauseGate is a cooperative gate the search loop passes between terms.
type PauseGate struct {
	paused   atomic.Bool
	interval time.Duration
}

func NewPauseGate(interval time.Duration) *PauseGate {
	if interval <= 0 {
		interval = DefaultPausePollInterval
	}
	return &PauseGate{interval: interval}
}

func (g *PauseGate) Pause()       { g.paused.Store(true) }
func (g *PauseGate) Resume()      { g.paused.Store(false) }
func (g *PauseGate) Paused() bool { return g.paused.Load() }

// Wait blocks while the gate is paused, polling at the gate's interval.
// It returns ctx.Err() if ctx ends first.
func (g *PauseGate) Wait(ctx context.Context) error {
	if !g.Paused() {
		return nil
	}
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !g.Paused() {
				return nil
			}
		}
	}
}
