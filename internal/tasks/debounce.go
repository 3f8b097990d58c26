package tasks

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultScrollThreshold = 500
	DefaultScrollDebounce  = 200 * time.Millisecond
)

// ScrollPosition is a scroll report from the shell, in rows or pixels.
type ScrollPosition struct {
	Top          int // offset of the viewport from the top of the content
	Height       int // total content height
	ClientHeight int // viewport height
}

// DistanceFromBottom is how far the viewport's lower edge is from the end of the content.
func (s ScrollPosition) DistanceFromBottom() int {
	return s.Height - s.Top - s.ClientHeight
}

// ScrollTrigger turns scroll reports into [Pager.LoadMore] calls.
//
// Each report replaces the pending one and restarts the debounce timer, so a burst collapses into one evaluation of
// the latest position.
type ScrollTrigger struct {
	pager     *Pager
	threshold int
	delay     time.Duration

	mu     sync.Mutex
	latest ScrollPosition
	timer  *time.Timer
	seq    uint64
}

// NewScrollTrigger creates a trigger for pager. Non-positive values fall back to the defaults.
func NewScrollTrigger(pager *Pager, threshold int, delay time.Duration) *ScrollTrigger {
	if threshold <= 0 {
		threshold = DefaultScrollThreshold
	}
	if delay <= 0 {
		delay = DefaultScrollDebounce
	}
	return &ScrollTrigger{pager: pager, threshold: threshold, delay: delay}
}

// Threshold returns the distance from the bottom under which a load is triggered.
func (s *ScrollTrigger) Threshold() int { return s.threshold }

// Report records a scroll position. Reports while a page is loading or after exhaustion are ignored.
func (s *ScrollTrigger) Report(ctx context.Context, pos ScrollPosition) {
	if c := s.pager.Cursor(); c.IsLoading || !c.HasMore {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = pos
	s.seq++
	seq := s.seq
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.fire(ctx, seq) })
}

// Stop cancels a pending evaluation.
func (s *ScrollTrigger) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *ScrollTrigger) fire(ctx context.Context, seq uint64) {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	pos := s.latest
	s.timer = nil
	s.mu.Unlock()

	if ctx.Err() != nil || pos.DistanceFromBottom() >= s.threshold {
		return
	}
	if c := s.pager.Cursor(); c.HasMore && !c.IsLoading {
		s.pager.LoadMore(ctx, c.NextOffset)
	}
}
