package flow

import (
	"context"
	"sync"
	"testing"
	"time"
)

func waitScope(t *testing.T, s *Scope) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("scope did not drain: %v", err)
	}
}

func TestScopeDispatchRunsCallbacksInOrder(t *testing.T) {
	s := NewScope(context.Background())

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 1; i <= 3; i++ {
		i := i
		if !s.Dispatch(func() {
			mu.Lock()
			order = append(order, i)
			if len(order) == 3 {
				close(done)
			}
			mu.Unlock()
		}) {
			t.Fatalf("dispatch %d refused on a live scope", i)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callbacks did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i+1 {
			t.Fatalf("callbacks ran out of order: %v", order)
		}
	}

	s.Close()
	waitScope(t, s)
}

func TestScopeDispatchRefusedAfterClose(t *testing.T) {
	s := NewScope(context.Background())
	s.Close()

	ran := false
	if s.Dispatch(func() { ran = true }) {
		t.Fatal("dispatch must refuse after close")
	}

	waitScope(t, s)
	if ran {
		t.Fatal("callback ran on a closed scope")
	}
}

func TestScopeCloseCancelsContextAndRunsHooksOnce(t *testing.T) {
	s := NewScope(context.Background())

	hookRuns := 0
	s.OnClose(func() { hookRuns++ })

	s.Close()
	s.Close()

	select {
	case <-s.Context().Done():
	default:
		t.Fatal("scope context must cancel on close")
	}

	if hookRuns != 1 {
		t.Fatalf("expected close hook to run once, ran %d times", hookRuns)
	}
	if !s.Closed() {
		t.Fatal("scope must report closed")
	}
}

func TestScopeOnCloseAfterCloseRunsImmediately(t *testing.T) {
	s := NewScope(context.Background())
	s.Close()

	ran := false
	s.OnClose(func() { ran = true })
	if !ran {
		t.Fatal("hooks registered after close must run immediately")
	}
}

func TestScopeGoSeesCancelation(t *testing.T) {
	s := NewScope(context.Background())

	started := make(chan struct{})
	stopped := make(chan struct{})
	s.Go("watch", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(stopped)
	})

	<-started
	s.Close()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not observe cancelation")
	}

	waitScope(t, s)
}

func TestScopeGoRefusedAfterClose(t *testing.T) {
	s := NewScope(context.Background())
	s.Close()

	ran := make(chan struct{}, 1)
	s.Go("late", func(context.Context) { ran <- struct{}{} })

	waitScope(t, s)
	select {
	case <-ran:
		t.Fatal("task ran on a closed scope")
	default:
	}
}

func TestScopeRecoversCallbackPanic(t *testing.T) {
	s := NewScope(context.Background())

	done := make(chan struct{})
	if !s.Dispatch(func() { panic("boom") }) {
		t.Fatal("dispatch refused")
	}
	if !s.Dispatch(func() { close(done) }) {
		t.Fatal("dispatch refused")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher died after a panicking callback")
	}

	s.Close()
	waitScope(t, s)
}
