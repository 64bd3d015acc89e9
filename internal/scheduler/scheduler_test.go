package scheduler

import (
	"sync"
	"testing"
	"time"
)

type countingSweeper struct {
	mu      sync.Mutex
	calls   int
	maxIdle time.Duration
}

func (c *countingSweeper) Sweep(maxIdle time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.maxIdle = maxIdle
	return 1
}

func (c *countingSweeper) snapshot() (int, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls, c.maxIdle
}

func TestSchedulerSweeps(t *testing.T) {
	sw := &countingSweeper{}
	s := New(20*time.Millisecond, 5*time.Minute, sw)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		calls, maxIdle := sw.snapshot()
		if calls > 0 {
			if maxIdle != 5*time.Minute {
				t.Fatalf("expected the configured idle timeout, got %v", maxIdle)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("sweeper never ran")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSchedulerDisabled(t *testing.T) {
	sw := &countingSweeper{}
	s := New(10*time.Millisecond, 0, sw)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	if calls, _ := sw.snapshot(); calls != 0 {
		t.Fatalf("expected no sweeps with a zero idle timeout, got %d", calls)
	}
}
