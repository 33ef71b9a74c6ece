package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAfterCommit_RunsImmediatelyOutsideTx(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func() { ran = true })
	assert.True(t, ran)
}

func TestAfterCommit_QueuedUntilRun(t *testing.T) {
	ctx, hooks := WithCommitHooks(context.Background())
	assert.True(t, HasCommitHooks(ctx))

	var order []int
	AfterCommit(ctx, func() { order = append(order, 1) })
	AfterCommit(ctx, func() { order = append(order, 2) })
	assert.Empty(t, order)

	hooks.Run()
	assert.Equal(t, []int{1, 2}, order)

	hooks.Run()
	assert.Equal(t, []int{1, 2}, order)
}

func TestAfterCommit_DiscardOnRollback(t *testing.T) {
	ctx, hooks := WithCommitHooks(context.Background())
	ran := false
	AfterCommit(ctx, func() { ran = true })
	hooks.Discard()
	hooks.Run()
	assert.False(t, ran)
}

func TestDomainError_Matching(t *testing.T) {
	assert.True(t, IsNotFound(ErrCourseNotFound))
	assert.True(t, IsForbidden(ErrLevelTooLow))
	assert.True(t, IsValidation(ErrNonPositiveXP))
	assert.True(t, IsConflict(ErrMaxAttemptsReached))
	assert.False(t, IsNotFound(ErrAlreadyEnrolled))

	wrapped := WrapError("xp", "Grant", ErrNotFound, "user missing", ErrUserNotFound)
	assert.True(t, IsNotFound(wrapped))
	assert.Contains(t, wrapped.Error(), "xp.Grant: user missing")
}

func TestDefer_RunsImmediatelyWithoutQueue(t *testing.T) {
	ran := false
	err := Defer(context.Background(), func(context.Context) error { ran = true; return nil })
	assert.NoError(t, err)
	assert.True(t, ran)
}

func TestDefer_HeldUntilFlushAndNestedScopesShareQueue(t *testing.T) {
	ctx, d, owner := WithDeferred(context.Background())
	assert.True(t, owner)

	inner, same, innerOwner := WithDeferred(ctx)
	assert.False(t, innerOwner)
	assert.Same(t, d, same)

	var order []int
	assert.NoError(t, Defer(ctx, func(context.Context) error { order = append(order, 1); return nil }))
	assert.NoError(t, Defer(inner, func(ctx context.Context) error {
		order = append(order, 2)
		return Defer(ctx, func(context.Context) error { order = append(order, 3); return nil })
	}))
	assert.Empty(t, order)

	assert.NoError(t, d.Flush(ctx))
	assert.Equal(t, []int{1, 2, 3}, order)

	assert.NoError(t, d.Flush(ctx))
	assert.Equal(t, []int{1, 2, 3}, order)
}
