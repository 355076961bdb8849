// Package gametimer implements the session countdown clock. The timer
// publishes elapsed and remaining time on four sibling topics every tick and
// fires a callback when the configured duration runs out.
package gametimer

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// Publisher is the slice of the broker client the timer needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// State is the lifecycle state of the timer.
type State int

const (
	StateStopped State = iota
	StateStarted
	StatePaused
)

var stateNames = [...]string{"STOPPED", "STARTED", "PAUSED"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Timer counts game time upward against a configured duration. While STARTED
// it publishes, once per tick interval:
//
//	<base>_in_sec            elapsed seconds as a decimal string
//	<base>_remain_in_sec     remaining seconds as a decimal string
//	<base>_formatted         elapsed time as HH:MM:SS
//	<base>_remain_formatted  remaining time as HH:MM:SS
//
// PAUSED keeps the tick goroutine alive but freezes the clock, so a resumed
// game continues where it left off.
type Timer struct {
	bus      Publisher
	base     string
	interval time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	state       State
	durationSec int
	elapsedSec  int
	onExpired   func()
	stop        chan struct{}
	done        chan struct{}
}

// New creates a stopped timer publishing on the given base topic. interval is
// the tick period, normally one second.
func New(bus Publisher, baseTopic string, interval time.Duration) *Timer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Timer{
		bus:      bus,
		base:     baseTopic,
		interval: interval,
		logger:   slog.Default().With("component", "gametimer"),
	}
}

// SetDuration configures the game duration. It only takes effect on the next
// Start from STOPPED.
func (t *Timer) SetDuration(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.durationSec = int(d / time.Second)
}

// RegisterOnExpired installs the callback fired once when the clock reaches
// the configured duration. The callback runs outside the timer's lock.
func (t *Timer) RegisterOnExpired(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExpired = fn
}

// State returns the current lifecycle state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Elapsed returns the elapsed game time.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(t.elapsedSec) * time.Second
}

// Remaining returns the game time left on the clock.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(t.durationSec-t.elapsedSec) * time.Second
}

// Start begins counting from zero, or resumes a PAUSED clock without
// resetting it. Starting an already STARTED timer is a no-op.
func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateStarted:
		return nil
	case StatePaused:
		t.state = StateStarted
		t.logger.Info("Game timer resumed", "elapsed_sec", t.elapsedSec)
		return nil
	}

	if t.durationSec <= 0 {
		return fmt.Errorf("game timer: no duration configured")
	}

	t.elapsedSec = 0
	t.state = StateStarted
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(t.stop, t.done)
	t.logger.Info("Game timer started", "duration_sec", t.durationSec)
	return nil
}

// Pause freezes a STARTED clock. Pausing in any other state is a no-op.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateStarted {
		return
	}
	t.state = StatePaused
	t.logger.Info("Game timer paused", "elapsed_sec", t.elapsedSec)
}

// Stop halts the clock, resets the counter and terminates the tick
// goroutine. The timer can be restarted afterwards.
func (t *Timer) Stop() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	stopped := t.state != StateStopped
	t.state = StateStopped
	t.elapsedSec = 0
	t.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if stopped {
		t.logger.Info("Game timer stopped")
	}
}

func (t *Timer) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if t.tick() {
				return
			}
		}
	}
}

// tick advances the clock by one second and reports whether the duration
// expired. The expiry callback is invoked with the lock released so it may
// call back into the timer.
func (t *Timer) tick() bool {
	t.mu.Lock()
	if t.state != StateStarted {
		t.mu.Unlock()
		return false
	}

	t.elapsedSec++
	t.publishLocked()

	expired := t.elapsedSec >= t.durationSec
	var cb func()
	if expired {
		t.state = StateStopped
		t.stop = nil
		t.done = nil
		cb = t.onExpired
		t.logger.Info("Game time expired", "elapsed_sec", t.elapsedSec)
	}
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
	return expired
}

func (t *Timer) publishLocked() {
	remain := t.durationSec - t.elapsedSec
	t.publish(t.base+"_in_sec", strconv.Itoa(t.elapsedSec))
	t.publish(t.base+"_remain_in_sec", strconv.Itoa(remain))
	t.publish(t.base+"_formatted", formatHMS(t.elapsedSec))
	t.publish(t.base+"_remain_formatted", formatHMS(remain))
}

func (t *Timer) publish(topic, payload string) {
	if err := t.bus.Publish(topic, 0, false, []byte(payload)); err != nil {
		t.logger.Error("Publish game time failed", "topic", topic, "error", err)
	}
}

func formatHMS(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec%3600/60, sec%60)
}
