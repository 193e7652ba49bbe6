// Package countdown provides a pausable, single-fire countdown timer.
//
// A Timer counts whole seconds down to zero. Every effective tick removes one
// second; the expiry callback runs exactly once, on the tick that moves the
// remaining time from 1 to 0. Ticks come either from the Timer's own
// scheduler (Start) or from the caller (Tick), which is how tests simulate
// elapsed time.
package countdown

import (
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is the wall-clock length of one countdown second.
const DefaultInterval = time.Second

// Option configures a Timer.
type Option func(*Timer)

// WithInterval overrides the scheduler interval. Tests use it to run the real
// scheduler quickly, or to park it with a very long interval.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithTickObserver registers fn to run after every effective tick with the new
// remaining value. fn runs outside the timer lock.
func WithTickObserver(fn func(secondsLeft int)) Option {
	return func(t *Timer) {
		t.onTick = fn
	}
}

// Timer is a countdown over whole seconds. The zero value is not usable; call New.
type Timer struct {
	mu       sync.Mutex
	total    int
	left     int
	paused   bool
	fired    bool
	stopped  bool
	running  bool
	gen      uint64
	halt     chan struct{}
	interval time.Duration
	onExpire func()
	onTick   func(int)
}

// New creates a stopped-scheduler timer holding seconds. Call Start to begin
// wall-clock ticking.
func New(seconds int, onExpire func(), opts ...Option) *Timer {
	if seconds < 0 {
		seconds = 0
	}
	t := &Timer{
		total:    seconds,
		left:     seconds,
		interval: DefaultInterval,
		onExpire: onExpire,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start launches the periodic scheduler. Calling Start again replaces the
// previous scheduler rather than adding a second one.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.running = true
	t.scheduleLocked()
}

// Tick advances the countdown by one second. It is a no-op while paused, at
// zero, or after Stop.
func (t *Timer) Tick() {
	t.tick(0)
}

// Pause halts ticking and keeps the remaining time.
func (t *Timer) Pause() {
	t.SetPaused(true)
}

// Resume restarts ticking after a Pause.
func (t *Timer) Resume() {
	t.SetPaused(false)
}

// SetPaused drives the timer from an external paused flag. Unpausing a timer
// whose time already ran out fires the callback at once if it has not fired.
func (t *Timer) SetPaused(paused bool) {
	t.mu.Lock()
	if t.stopped || t.paused == paused {
		t.mu.Unlock()
		return
	}
	t.paused = paused
	if paused {
		t.cancelLocked()
		t.mu.Unlock()
		return
	}

	expire := t.left == 0 && t.total > 0 && !t.fired
	if expire {
		t.fired = true
	} else {
		t.scheduleLocked()
	}
	t.mu.Unlock()

	if expire && t.onExpire != nil {
		t.onExpire()
	}
}

// Reset loads a new duration: remaining time and the fired-once guard both
// start over, and a running scheduler is restarted.
func (t *Timer) Reset(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.total = seconds
	t.left = seconds
	t.fired = false
	t.scheduleLocked()
}

// SetDuration resets the timer only when seconds differs from the current
// total. It reports whether a reset happened.
func (t *Timer) SetDuration(seconds int) bool {
	t.mu.Lock()
	same := t.total == seconds
	t.mu.Unlock()
	if same {
		return false
	}
	t.Reset(seconds)
	return true
}

// Stop tears the timer down. No tick or callback happens afterwards.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.running = false
	t.cancelLocked()
}

// SecondsLeft returns the remaining whole seconds.
func (t *Timer) SecondsLeft() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.left
}

// Total returns the configured duration in seconds.
func (t *Timer) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Paused reports whether the timer is paused.
func (t *Timer) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Expired reports whether the expiry callback has fired.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Formatted returns the remaining time as MM:SS.
func (t *Timer) Formatted() string {
	return Format(t.SecondsLeft())
}

// Format renders seconds as zero-padded MM:SS. Minutes are not capped, so 100
// minutes renders as "100:00".
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// tick applies one second. gen identifies the scheduler that produced the
// tick; 0 means a manual Tick. It reports whether the scheduler should keep going.
func (t *Timer) tick(gen uint64) bool {
	t.mu.Lock()
	if gen != 0 && gen != t.gen {
		t.mu.Unlock()
		return false
	}
	if t.stopped || t.paused || t.left <= 0 {
		t.mu.Unlock()
		return false
	}

	t.left--
	left := t.left
	expire := left == 0 && !t.fired
	if expire {
		t.fired = true
	}
	if left == 0 {
		t.cancelLocked()
	}
	onTick, onExpire := t.onTick, t.onExpire
	t.mu.Unlock()

	if onTick != nil {
		onTick(left)
	}
	if expire && onExpire != nil {
		onExpire()
	}
	return left > 0
}

// scheduleLocked cancels any scheduler and starts a fresh one when the timer
// should be ticking. Callers hold t.mu.
func (t *Timer) scheduleLocked() {
	t.cancelLocked()
	if !t.running || t.paused || t.stopped || t.left <= 0 {
		return
	}
	t.gen++
	halt := make(chan struct{})
	t.halt = halt
	go t.loop(t.gen, halt)
}

func (t *Timer) cancelLocked() {
	if t.halt != nil {
		close(t.halt)
		t.halt = nil
	}
}

func (t *Timer) loop(gen uint64, halt <-chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-halt:
			return
		case <-ticker.C:
			if !t.tick(gen) {
				return
			}
		}
	}
}
