package idle

import (
	"sync"
	"time"

	"chat-widget/internal/clock"
)

// DefaultWindow is how long the user may stay inactive before a nudge.
const DefaultWindow = 20 * time.Second

// State is the transient idle bookkeeping for one session.
type State struct {
	LastActivity time.Time
	WarningSent  bool
}

// Timer is a re-armable one-shot. Every Touch clears the warning flag and
// restarts the window; if the window elapses untouched, onIdle runs once.
type Timer struct {
	clock  clock.Clock
	window time.Duration
	onIdle func()

	mu      sync.Mutex
	state   State
	pending clock.Timer
	gen     uint64
	stopped bool
}

// NewTimer returns an unarmed Timer. A non-positive window disables it.
func NewTimer(c clock.Clock, window time.Duration, onIdle func()) *Timer {
	if c == nil {
		c = clock.Real()
	}
	return &Timer{clock: c, window: window, onIdle: onIdle}
}

// Touch records activity and re-arms the timer.
func (t *Timer) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.state.LastActivity = t.clock.Now()
	t.state.WarningSent = false
	t.armLocked()
}

// Stop cancels the pending window. Touch has no effect afterwards.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

// Snapshot returns a copy of the idle state.
func (t *Timer) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Timer) armLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	if t.window <= 0 || t.onIdle == nil {
		return
	}
	t.gen++
	gen := t.gen
	t.pending = t.clock.AfterFunc(t.window, func() { t.fire(gen) })
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	// a Touch that raced the callback owns the newer generation
	if t.stopped || gen != t.gen || t.state.WarningSent {
		t.mu.Unlock()
		return
	}
	t.state.WarningSent = true
	t.pending = nil
	cb := t.onIdle
	t.mu.Unlock()

	cb()
}
