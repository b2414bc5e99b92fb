package timer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickCountsDown(t *testing.T) {
	e := New(nil)
	if err := e.Start(3); err != nil {
		t.Fatalf("Start: %v", err)
	}

	prev := e.Remaining()
	for i := 0; i < 2; i++ {
		e.Tick()
		if got := e.Remaining(); got != prev-1 {
			t.Fatalf("tick %d: remaining = %d, want %d", i, got, prev-1)
		}
		prev = e.Remaining()
	}
	if e.State() != StateRunning {
		t.Errorf("state = %q, want running", e.State())
	}
}

func TestStartTwice(t *testing.T) {
	e := New(nil)
	_ = e.Start(10)
	if err := e.Start(10); err != ErrAlreadyStarted {
		t.Errorf("second Start() = %v, want ErrAlreadyStarted", err)
	}
}

func TestExpiryFiresOnce(t *testing.T) {
	var fired int32
	e := New(func() { atomic.AddInt32(&fired, 1) })
	_ = e.Start(1)

	if !e.Tick() {
		t.Fatal("expected the tick to expire the timer")
	}
	if e.Remaining() != 0 {
		t.Errorf("remaining = %d, want 0", e.Remaining())
	}
	for i := 0; i < 5; i++ {
		if e.Tick() {
			t.Fatal("tick after expiry reported expiry")
		}
	}
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("expiry fired %d times, want 1", got)
	}
	if e.State() != StateExpired {
		t.Errorf("state = %q, want expired", e.State())
	}
	select {
	case <-e.Done():
	default:
		t.Error("Done() not closed after expiry")
	}
}

func TestConcurrentTicksExpireOnce(t *testing.T) {
	var fired int32
	e := New(func() { atomic.AddInt32(&fired, 1) })
	_ = e.Start(5)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Tick()
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("expiry fired %d times, want 1", got)
	}
	if e.Remaining() != 0 {
		t.Errorf("remaining = %d, want 0", e.Remaining())
	}
}

func TestPauseFreezes(t *testing.T) {
	e := New(nil)
	_ = e.Start(10)
	e.Tick()

	if !e.Pause() {
		t.Fatal("Pause() = false on running timer")
	}
	frozen := e.Remaining()
	for i := 0; i < 5; i++ {
		e.Tick()
	}
	if e.Remaining() != frozen {
		t.Errorf("remaining changed while paused: %d -> %d", frozen, e.Remaining())
	}
	if e.Pause() {
		t.Error("Pause() on paused timer should report false")
	}
	if !e.Resume() {
		t.Fatal("Resume() = false on paused timer")
	}
	e.Tick()
	if e.Remaining() != frozen-1 {
		t.Errorf("remaining = %d, want %d", e.Remaining(), frozen-1)
	}
}

func TestStopIgnoresLaterTicks(t *testing.T) {
	var fired int32
	e := New(func() { atomic.AddInt32(&fired, 1) })
	_ = e.Start(1)
	e.Stop()

	if e.Tick() {
		t.Error("tick after stop reported expiry")
	}
	if e.Remaining() != 1 {
		t.Errorf("remaining = %d, want 1", e.Remaining())
	}
	if atomic.LoadInt32(&fired) != 0 {
		t.Error("expiry fired after stop")
	}
	e.Stop()
	if e.State() != StateStopped {
		t.Errorf("state = %q, want stopped", e.State())
	}
}

func TestMonotonicNeverNegative(t *testing.T) {
	e := New(nil)
	_ = e.Start(4)

	prev := e.Remaining()
	for i := 0; i < 20; i++ {
		switch i % 5 {
		case 1:
			e.Pause()
		case 3:
			e.Resume()
		}
		e.Tick()
		cur := e.Remaining()
		if cur > prev {
			t.Fatalf("remaining increased: %d -> %d", prev, cur)
		}
		if cur < 0 {
			t.Fatalf("remaining negative: %d", cur)
		}
		prev = cur
	}
}

func TestZeroSecondsExpiresOnFirstTick(t *testing.T) {
	var fired int32
	e := New(func() { atomic.AddInt32(&fired, 1) })
	_ = e.Start(0)

	if !e.Tick() {
		t.Fatal("expected expiry on first tick")
	}
	if atomic.LoadInt32(&fired) != 1 {
		t.Error("expiry callback not fired")
	}
}

func TestRunDrivesTicks(t *testing.T) {
	expired := make(chan struct{})
	e := New(func() { close(expired) })
	_ = e.Start(3)

	ticks := make(chan time.Time)
	finished := make(chan struct{})
	go func() {
		e.Run(context.Background(), ticks)
		close(finished)
	}()

	for i := 0; i < 3; i++ {
		ticks <- time.Now()
	}

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("timer did not expire")
	}
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after expiry")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	e := New(nil)
	_ = e.Start(100)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		e.Run(ctx, make(chan time.Time))
		close(finished)
	}()
	cancel()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if e.State() != StateRunning {
		t.Errorf("cancel should not change state, got %q", e.State())
	}
}
