package usecase

import (
	"context"
	"sync"
)

// CaptchaSignal is the hand-off between the search loop, which waits on a
// raised challenge, and an external resolver.
//
// Each challenge episode gets its own channel, captured by waiters under the
// lock and closed exactly once by Resolve. A resolve that races with a waiter
// that has not yet started waiting is therefore never lost, and a later
// Raise starts a fresh episode instead of reusing stale state.
type CaptchaSignal struct {
	mu      sync.Mutex
	pending bool
	solved  chan struct{}
}

func NewCaptchaSignal() *CaptchaSignal {
	return &CaptchaSignal{}
}

// Raise marks a challenge as pending. Raising an already pending challenge
// joins the current episode.
func (s *CaptchaSignal) Raise() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return
	}
	s.pending = true
	s.solved = make(chan struct{})
}

// Resolve clears a pending challenge and wakes its waiters. It reports
// whether there was anything to resolve.
func (s *CaptchaSignal) Resolve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending {
		return false
	}
	s.pending = false
	close(s.solved)
	return true
}

func (s *CaptchaSignal) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Wait blocks until the current episode is resolved or ctx ends. There is no
// timeout of its own. It returns immediately when nothing is pending.
func (s *CaptchaSignal) Wait(ctx context.Context) error {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return nil
	}
	solved := s.solved
	s.mu.Unlock()

	select {
	case <-solved:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
