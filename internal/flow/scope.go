package flow

import (
	"context"
	"fmt"
	"sync"

	"payflow-backend/pkg/logger"
)

const defaultCallbackQueueSize = 64

// Scope binds a flow session to a lifecycle. It owns a context that cancels
// when the scope closes, runs background work bound to that context, and
// serializes host callbacks onto a single dispatcher goroutine so they are
// delivered one at a time, in order.
//
// Once a scope closes it never delivers another callback: queued but unrun
// callbacks are abandoned.
type Scope struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
	hooks  []func()

	callbacks    chan func()
	dispatcherWG sync.WaitGroup
	taskWG       sync.WaitGroup
}

// NewScope creates a scope parented to ctx and starts its dispatcher.
func NewScope(ctx context.Context) *Scope {
	if ctx == nil {
		ctx = context.Background()
	}

	scopeCtx, cancel := context.WithCancel(ctx)
	s := &Scope{
		ctx:       scopeCtx,
		cancel:    cancel,
		callbacks: make(chan func(), defaultCallbackQueueSize),
	}

	s.dispatcherWG.Add(1)
	go s.dispatcher()

	return s
}

// Context returns the scope's context. It is canceled when the scope closes.
func (s *Scope) Context() context.Context {
	return s.ctx
}

func (s *Scope) dispatcher() {
	defer s.dispatcherWG.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.callbacks:
			s.run(fn)
		}
	}
}

func (s *Scope) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Errorf("panic: %v", r), "Flow callback panicked", nil)
		}
	}()

	fn()
}

// Dispatch enqueues fn onto the serialized callback loop. It reports false
// when the scope has closed, in which case fn will never run.
func (s *Scope) Dispatch(fn func()) bool {
	if fn == nil {
		return false
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return false
	}

	select {
	case <-s.ctx.Done():
		return false
	case s.callbacks <- fn:
		return true
	}
}

// Go runs fn on a background goroutine bound to the scope context. Panics are
// recovered and logged so one task cannot take down the process.
func (s *Scope) Go(name string, fn func(ctx context.Context)) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.taskWG.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.taskWG.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error(fmt.Errorf("panic: %v", r), "Flow task panicked", map[string]interface{}{"task": name})
			}
		}()

		fn(s.ctx)
	}()
}

// OnClose registers a hook to run when the scope closes. Registering on an
// already-closed scope runs the hook immediately.
func (s *Scope) OnClose(hook func()) {
	if hook == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		hook()
		return
	}
	s.hooks = append(s.hooks, hook)
	s.mu.Unlock()
}

// Closed reports whether the scope has been closed.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close cancels the scope and runs the close hooks exactly once. Callbacks
// still queued on the dispatcher are dropped, never run late.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	s.cancel()

	for _, hook := range hooks {
		hook()
	}
}

// Wait blocks until the dispatcher and all background tasks have finished, or
// ctx expires.
func (s *Scope) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.dispatcherWG.Wait()
		s.taskWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
