package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommitsAndCloses(t *testing.T) {
	rec := &recorder{}
	users := &fakeSource{name: "users", rec: rec}

	err := Run(context.Background(), func(ctx context.Context) error {
		_, err := Connection(ctx, users)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"users:acquire", "users:commit", "users:close"}, rec.list())
}

func TestRunRollsBackOnError(t *testing.T) {
	rec := &recorder{}
	users := &fakeSource{name: "users", rec: rec}
	boom := errors.New("constraint violated")

	err := Run(context.Background(), func(ctx context.Context) error {
		if _, err := Connection(ctx, users); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"users:acquire", "users:rollback", "users:close"}, rec.list())
}

func TestNestedRunJoinsOuterUnitOfWork(t *testing.T) {
	rec := &recorder{}
	users := &fakeSource{name: "users", rec: rec}
	audit := &fakeSource{name: "audit", rec: rec}

	err := Run(context.Background(), func(ctx context.Context) error {
		if _, err := Connection(ctx, users); err != nil {
			return err
		}
		if err := Run(ctx, func(ctx context.Context) error {
			_, err := Connection(ctx, audit)
			return err
		}); err != nil {
			return err
		}
		assert.Equal(t, 1, Depth(ctx))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"users:acquire", "audit:acquire",
		"users:commit", "audit:commit",
		"users:close", "audit:close",
	}, rec.list())
}

func TestNestedRunFailurePoisonsOuter(t *testing.T) {
	rec := &recorder{}
	users := &fakeSource{name: "users", rec: rec}
	boom := errors.New("veto")

	err := Run(context.Background(), func(ctx context.Context) error {
		if _, err := Connection(ctx, users); err != nil {
			return err
		}
		_ = Run(ctx, func(context.Context) error { return boom })
		return nil
	})
	assert.ErrorIs(t, err, ErrRolledBack)
	assert.Equal(t, []string{"users:acquire", "users:rollback", "users:close"}, rec.list())
}

func TestRunRollsBackOnPanic(t *testing.T) {
	rec := &recorder{}
	users := &fakeSource{name: "users", rec: rec}

	assert.PanicsWithValue(t, "boom", func() {
		_ = Run(context.Background(), func(ctx context.Context) error {
			if _, err := Connection(ctx, users); err != nil {
				return err
			}
			panic("boom")
		})
	})
	assert.Equal(t, []string{"users:acquire", "users:rollback", "users:close"}, rec.list())
}

func TestManagerEnlistsSources(t *testing.T) {
	rec := &recorder{}
	users := &fakeSource{name: "users", rec: rec}
	audit := &fakeSource{name: "audit", rec: rec}
	manager := NewManager(users, audit)

	err := manager.Do(context.Background(), func(ctx context.Context) error {
		return manager.Do(ctx, func(context.Context) error { return nil })
	})
	require.NoError(t, err)
	assert.Equal(t, 1, users.acquired)
	assert.Equal(t, 1, audit.acquired)
	assert.Equal(t, []string{
		"users:acquire", "audit:acquire",
		"users:commit", "audit:commit",
		"users:close", "audit:close",
	}, rec.list())
}
