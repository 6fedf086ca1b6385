// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeNowStandsStill(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c := Fake(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now: got %v, want %v", c.Now(), start)
	}

	c.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if !c.Now().Equal(want) {
		t.Errorf("Now after Advance: got %v, want %v", c.Now(), want)
	}
}

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	t.Parallel()
	c := Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	ch := c.After(5 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	c.Advance(5 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("After did not fire after Advance past deadline")
	}
}

func TestFakeAfterNonPositiveFiresImmediately(t *testing.T) {
	t.Parallel()
	c := Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeTickerFiresPerInterval(t *testing.T) {
	t.Parallel()
	c := Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	ticker := c.NewTicker(time.Second)
	defer ticker.Stop()

	fired := 0
	for i := 0; i < 3; i++ {
		c.Advance(time.Second)
		select {
		case <-ticker.C:
			fired++
		default:
		}
	}
	if fired != 3 {
		t.Errorf("ticks received: got %d, want 3", fired)
	}
}

func TestFakeTickerStop(t *testing.T) {
	t.Parallel()
	c := Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	ticker := c.NewTicker(time.Second)
	ticker.Stop()

	c.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeSleepUnblocksOnAdvance(t *testing.T) {
	t.Parallel()
	c := Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	done := make(chan struct{})
	go func() {
		c.Sleep(2 * time.Second)
		close(done)
	}()

	// Give the goroutine a moment to register its waiter, then
	// advance past the deadline.
	for i := 0; i < 100; i++ {
		c.mu.Lock()
		registered := len(c.waiters) > 0
		c.mu.Unlock()
		if registered {
			break
		}
		time.Sleep(time.Millisecond)
	}

	c.Advance(2 * time.Second)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not unblock after Advance")
	}
}
