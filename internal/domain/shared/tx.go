package shared

import (
	"context"
	"sync"
)

// TxManager runs a unit of work atomically. Implementations store their
// transaction handle in the context passed to fn, and repositories pick it up
// from there. Calling WithinTx with a context that already carries a
// transaction joins it.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type commitHooksKey struct{}

// CommitHooks collects side effects that may only happen once the enclosing
// transaction has committed.
type CommitHooks struct {
	mu  sync.Mutex
	fns []func()
}

// WithCommitHooks attaches a fresh hook list to ctx.
func WithCommitHooks(ctx context.Context) (context.Context, *CommitHooks) {
	h := &CommitHooks{}
	return context.WithValue(ctx, commitHooksKey{}, h), h
}

// HasCommitHooks reports whether ctx belongs to an open unit of work.
func HasCommitHooks(ctx context.Context) bool {
	_, ok := ctx.Value(commitHooksKey{}).(*CommitHooks)
	return ok
}

// AfterCommit schedules fn to run after the transaction in ctx commits.
// Outside a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	h, ok := ctx.Value(commitHooksKey{}).(*CommitHooks)
	if !ok {
		fn()
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

// Run executes the queued hooks in registration order.
func (h *CommitHooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Discard drops the queued hooks after a rollback.
func (h *CommitHooks) Discard() {
	h.mu.Lock()
	h.fns = nil
	h.mu.Unlock()
}

type deferredKey struct{}

// Deferred holds work that must wait until an event cascade has settled,
// such as notifications that quote totals recomputed later in the cascade.
type Deferred struct {
	mu  sync.Mutex
	fns []func(ctx context.Context) error
}

// WithDeferred attaches a fresh deferral queue to ctx. An outer queue, if
// any, is reused so nested cascades flush once, at the outermost level.
func WithDeferred(ctx context.Context) (context.Context, *Deferred, bool) {
	if d, ok := ctx.Value(deferredKey{}).(*Deferred); ok {
		return ctx, d, false
	}
	d := &Deferred{}
	return context.WithValue(ctx, deferredKey{}, d), d, true
}

// Defer queues fn on the queue in ctx. Without a queue fn runs immediately.
func Defer(ctx context.Context, fn func(ctx context.Context) error) error {
	d, ok := ctx.Value(deferredKey{}).(*Deferred)
	if !ok {
		return fn(ctx)
	}
	d.mu.Lock()
	d.fns = append(d.fns, fn)
	d.mu.Unlock()
	return nil
}

// Flush runs the queued work in order and stops at the first error. Work
// queued while flushing runs in the same pass.
func (d *Deferred) Flush(ctx context.Context) error {
	for {
		d.mu.Lock()
		if len(d.fns) == 0 {
			d.mu.Unlock()
			return nil
		}
		fn := d.fns[0]
		d.fns = d.fns[1:]
		d.mu.Unlock()
		if err := fn(ctx); err != nil {
			return err
		}
	}
}
