package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()

	s := NewScheduler(SchedulerConfig{WorkerCount: 2, QueueSize: 8})
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
	})
	return s
}

func TestSchedulerRunsJob(t *testing.T) {
	s := newTestScheduler(t)

	ran := make(chan struct{})
	err := s.Schedule(Job{
		Name: "one-shot",
		Run: func(ctx context.Context) error {
			close(ran)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestSchedulerRejectsJobsBeforeStart(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})

	err := s.Schedule(Job{Name: "early", Run: func(ctx context.Context) error { return nil }})
	if !errors.Is(err, ErrSchedulerNotStarted) {
		t.Fatalf("expected ErrSchedulerNotStarted, got %v", err)
	}
}

func TestSchedulerRetriesFailedJob(t *testing.T) {
	s := newTestScheduler(t)

	var attempts int32
	done := make(chan struct{})
	err := s.Schedule(Job{
		Name: "flaky",
		RetryPolicy: RetryPolicy{
			MaxRetries: 3,
			Backoff:    time.Millisecond,
		},
		Run: func(ctx context.Context) error {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return errors.New("transient")
			}
			close(done)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never recovered")
	}

	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestScheduleUniqueRejectsDuplicate(t *testing.T) {
	s := newTestScheduler(t)

	release := make(chan struct{})
	err := s.ScheduleUnique(Job{
		Name: "singleton",
		Run: func(ctx context.Context) error {
			<-release
			return nil
		},
	})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	err = s.ScheduleUnique(Job{
		Name: "singleton",
		Run:  func(ctx context.Context) error { return nil },
	})
	if !errors.Is(err, ErrJobAlreadyScheduled) {
		t.Fatalf("expected ErrJobAlreadyScheduled, got %v", err)
	}

	close(release)
}

func TestRepeatingJobRunsAgain(t *testing.T) {
	s := newTestScheduler(t)

	var runs int32
	err := s.ScheduleUnique(Job{
		Name:  "periodic",
		Every: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&runs) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("job repeated %d times, expected at least 2", atomic.LoadInt32(&runs))
		}
		time.Sleep(5 * time.Millisecond)
	}
}
