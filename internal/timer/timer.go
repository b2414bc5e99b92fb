// Package timer implements the exam countdown.
//
// The engine is a small state machine:
//
//	Idle → Running → {Paused ⇄ Running} → Expired | Stopped
//
// Reaching zero fires the expiry callback exactly once. Ticks delivered in
// any state other than Running are ignored.
package timer

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State enumerates the countdown states.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateExpired State = "expired"
	StateStopped State = "stopped"
)

// ErrAlreadyStarted is returned by Start on an engine that left Idle.
var ErrAlreadyStarted = errors.New("timer already started")

// Engine is a one-second countdown. It is safe for concurrent use.
type Engine struct {
	mu        sync.Mutex
	state     State
	remaining int
	onExpire  func()
	done      chan struct{}
}

// New creates an idle engine. onExpire may be nil.
func New(onExpire func()) *Engine {
	return &Engine{
		state:    StateIdle,
		onExpire: onExpire,
		done:     make(chan struct{}),
	}
}

// Start moves Idle → Running with the given number of seconds.
func (e *Engine) Start(seconds int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return ErrAlreadyStarted
	}
	if seconds < 0 {
		seconds = 0
	}
	e.remaining = seconds
	e.state = StateRunning
	return nil
}

// Tick advances the countdown by one second. It returns true when this tick
// expired the timer; the expiry callback runs after the lock is released.
func (e *Engine) Tick() bool {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return false
	}
	if e.remaining > 0 {
		e.remaining--
	}
	expired := e.remaining == 0
	if expired {
		e.finish(StateExpired)
	}
	cb := e.onExpire
	e.mu.Unlock()

	if expired && cb != nil {
		cb()
	}
	return expired
}

// Pause freezes the countdown. Returns false when not running.
func (e *Engine) Pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning {
		return false
	}
	e.state = StatePaused
	return true
}

// Resume continues a paused countdown. Returns false when not paused.
func (e *Engine) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePaused {
		return false
	}
	e.state = StateRunning
	return true
}

// Stop halts the countdown immediately. Later ticks are no-ops.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateExpired || e.state == StateStopped {
		return
	}
	e.finish(StateStopped)
}

// Remaining returns the remaining whole seconds.
func (e *Engine) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Done is closed once the engine reaches Expired or Stopped.
func (e *Engine) Done() <-chan struct{} { return e.done }

// finish must be called with mu held.
func (e *Engine) finish(s State) {
	e.state = s
	close(e.done)
}

// Run delivers one Tick per value received on ticks until ctx is cancelled
// or the engine reaches a terminal state.
func (e *Engine) Run(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case <-ticks:
			e.Tick()
		}
	}
}
