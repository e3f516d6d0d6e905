// Package cancellation provides the per-invocation cancellation token.
package cancellation

import (
	"context"
	"sync"
	"sync/atomic"
)

// Token is flipped at most once and never reset. Blocking operations observe
// it through Done or a context derived with Context.
type Token struct {
	requested atomic.Bool
	done      chan struct{}

	mu       sync.Mutex
	handlers []func()
}

// NewToken creates a token in the not-requested state
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// IsCancellationRequested reports whether Cancel has been called
func (t *Token) IsCancellationRequested() bool {
	return t.requested.Load()
}

// Done is closed once cancellation has been requested
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// OnCancel registers fn to run when cancellation is requested. If the token
// is already cancelled fn runs immediately.
func (t *Token) OnCancel(fn func()) {
	t.mu.Lock()
	if !t.requested.Load() {
		t.handlers = append(t.handlers, fn)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	fn()
}

// Cancel requests cancellation and runs the registered handlers. It returns
// false if cancellation had already been requested, in which case nothing runs.
func (t *Token) Cancel() bool {
	t.mu.Lock()
	if !t.requested.CompareAndSwap(false, true) {
		t.mu.Unlock()
		return false
	}
	handlers := t.handlers
	t.handlers = nil
	close(t.done)
	t.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
	return true
}

// AsyncCancel requests cancellation without waiting for the handlers. The
// returned channel is closed once they have all returned.
func (t *Token) AsyncCancel() <-chan struct{} {
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		t.Cancel()
	}()
	return finished
}

// Context returns a copy of parent that is cancelled when the token is
func (t *Token) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-t.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
