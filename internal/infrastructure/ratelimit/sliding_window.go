package ratelimit

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dupelens/backend/internal/domain"
)

// Default budget for the catalog source, kept below its published limit.
const (
	DefaultPermits = 30
	DefaultWindow  = 1000 * time.Millisecond
)

// window is the permit history of one channel. slot is a one-token
// semaphore so waiting for the channel can be abandoned on cancellation.
type window struct {
	slot   chan struct{}
	issued []time.Time
}

// SlidingWindow allows at most permits calls per trailing window, tracked
// independently for every channel key.
type SlidingWindow struct {
	permits int
	window  time.Duration
	now     func() time.Time
	debug   bool

	mu       sync.Mutex
	channels map[string]*window
}

// NewSlidingWindow creates a limiter. Non-positive arguments fall back to
// the defaults.
func NewSlidingWindow(permits int, w time.Duration) *SlidingWindow {
	if permits <= 0 {
		permits = DefaultPermits
	}
	if w <= 0 {
		w = DefaultWindow
	}
	return &SlidingWindow{
		permits:  permits,
		window:   w,
		now:      time.Now,
		channels: make(map[string]*window),
	}
}

// SetDebug enables or disables wait logging
func (l *SlidingWindow) SetDebug(debug bool) {
	l.debug = debug
}

// channel returns the state for key, creating it on first use.
func (l *SlidingWindow) channel(key string) *window {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.channels[key]
	if !ok {
		w = &window{
			slot:   make(chan struct{}, 1),
			issued: make([]time.Time, 0, l.permits),
		}
		l.channels[key] = w
	}
	return w
}

// Acquire blocks until one more call on key fits in the window, then records
// it. Callers on the same key are served one at a time; different keys never
// wait on each other.
func (l *SlidingWindow) Acquire(ctx context.Context, key string) error {
	w := l.channel(key)

	select {
	case w.slot <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for %q limiter: %w", domain.ErrCancelled, key, ctx.Err())
	}
	defer func() { <-w.slot }()

	for {
		now := l.now()
		w.prune(now.Add(-l.window))

		if len(w.issued) < l.permits {
			w.issued = append(w.issued, now)
			return nil
		}

		wait := w.issued[0].Add(l.window).Sub(now)
		if l.debug {
			log.Printf("[LIMIT] channel %q full (%d/%d), waiting %s", key, len(w.issued), l.permits, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: waiting for %q limiter: %w", domain.ErrCancelled, key, ctx.Err())
		}
	}
}

// prune drops timestamps at or before cutoff. issued is kept in ascending order.
func (w *window) prune(cutoff time.Time) {
	i := 0
	for i < len(w.issued) && !w.issued[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.issued = append(w.issued[:0], w.issued[i:]...)
	}
}

// InFlight reports how many permits are currently counted for key
// (for debugging/monitoring).
func (l *SlidingWindow) InFlight(key string) int {
	w := l.channel(key)
	w.slot <- struct{}{}
	defer func() { <-w.slot }()

	w.prune(l.now().Add(-l.window))
	return len(w.issued)
}
