package flow

import (
	"context"
	"fmt"
	"sync"
)

// Lifetime scopes asynchronous work to a mounted component. Closing it cancels
// the context handed to in-flight work.
type Lifetime struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLifetime derives a lifetime from parent.
func NewLifetime(parent context.Context) *Lifetime {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Lifetime{ctx: ctx, cancel: cancel}
}

// Context returns the lifetime context.
func (l *Lifetime) Context() context.Context {
	return l.ctx
}

// Done reports whether the lifetime has ended.
func (l *Lifetime) Done() bool {
	return l.ctx.Err() != nil
}

// Close cancels pending work. It does not wait for it.
func (l *Lifetime) Close() {
	l.cancel()
}

// Wait blocks until every goroutine started with Go has returned.
func (l *Lifetime) Wait() {
	l.wg.Wait()
}

// Go runs work on its own goroutine under the lifetime context and passes the
// settled result to deliver. deliver decides whether the result still applies.
func Go[T any](l *Lifetime, work func(ctx context.Context) (T, error), deliver func(Result[T])) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		deliver(run(l.ctx, work))
	}()
}

func run[T any](ctx context.Context, work func(ctx context.Context) (T, error)) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Reject[T](fmt.Errorf("%w: panic: %v", ErrGenerationFailed, r))
		}
	}()
	v, err := work(ctx)
	if err != nil {
		return Reject[T](err)
	}
	return Resolve(v)
}
