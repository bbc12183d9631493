package uow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeSource struct {
	name      string
	rec       *recorder
	acquired  int
	commitErr error
	failOpen  error
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Acquire(context.Context) (Conn, error) {
	if s.failOpen != nil {
		return nil, s.failOpen
	}
	s.acquired++
	s.rec.add(s.name + ":acquire")
	return &fakeConn{source: s}, nil
}

type fakeConn struct {
	source *fakeSource
}

func (c *fakeConn) Commit() error {
	if c.source.commitErr != nil {
		c.source.rec.add(c.source.name + ":commit-failed")
		return c.source.commitErr
	}
	c.source.rec.add(c.source.name + ":commit")
	return nil
}

func (c *fakeConn) Rollback() error {
	c.source.rec.add(c.source.name + ":rollback")
	return nil
}

func (c *fakeConn) Close() error {
	c.source.rec.add(c.source.name + ":close")
	return nil
}

func TestBeginNestsOnSameContext(t *testing.T) {
	ctx := Begin(context.Background())
	require.True(t, IsActive(ctx))
	assert.Equal(t, 1, Depth(ctx))

	nested := Begin(ctx)
	assert.Equal(t, 2, Depth(nested))
	assert.Equal(t, 2, Depth(ctx), "nested scope shares the transaction context")
}

func TestConnectionIsReusedPerDataSource(t *testing.T) {
	rec := &recorder{}
	users := &fakeSource{name: "users", rec: rec}
	audit := &fakeSource{name: "audit", rec: rec}

	ctx := Begin(context.Background())
	first, err := Connection(ctx, users)
	require.NoError(t, err)
	second, err := Connection(Begin(ctx), users)
	require.NoError(t, err)
	_, err = Connection(ctx, audit)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, users.acquired)
	assert.Equal(t, 1, audit.acquired)
}

func TestConnectionWithoutTransaction(t *testing.T) {
	_, err := Connection(context.Background(), &fakeSource{name: "users", rec: &recorder{}})
	assert.ErrorIs(t, err, ErrNoTransaction)

	_, err = Connection(Begin(context.Background()), nil)
	assert.ErrorIs(t, err, ErrNilDataSource)
}

func TestCommitOnlyAtOutermostDepth(t *testing.T) {
	rec := &recorder{}
	users := &fakeSource{name: "users", rec: rec}
	audit := &fakeSource{name: "audit", rec: rec}

	ctx := Begin(context.Background())
	_, err := Connection(ctx, users)
	require.NoError(t, err)

	inner := Begin(ctx)
	_, err = Connection(inner, audit)
	require.NoError(t, err)
	require.NoError(t, Commit(inner))
	assert.Equal(t, []string{"users:acquire", "audit:acquire"}, rec.list())

	require.NoError(t, Commit(ctx))
	assert.Equal(t, []string{
		"users:acquire", "audit:acquire",
		"users:commit", "audit:commit",
	}, rec.list())

	require.NoError(t, Close(ctx))
	assert.False(t, IsActive(ctx))
}

func TestNestedRollbackForcesRollbackOfAll(t *testing.T) {
	rec := &recorder{}
	users := &fakeSource{name: "users", rec: rec}
	audit := &fakeSource{name: "audit", rec: rec}

	ctx := Begin(context.Background())
	_, err := Connection(ctx, users)
	require.NoError(t, err)

	inner := Begin(ctx)
	_, err = Connection(inner, audit)
	require.NoError(t, err)
	require.NoError(t, Rollback(inner))

	err = Commit(ctx)
	assert.ErrorIs(t, err, ErrRolledBack)
	assert.Equal(t, []string{
		"users:acquire", "audit:acquire",
		"users:rollback", "audit:rollback",
	}, rec.list())
}

func TestCommitFailureRollsBackRemaining(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("disk full")
	users := &fakeSource{name: "users", rec: rec, commitErr: boom}
	audit := &fakeSource{name: "audit", rec: rec}

	ctx := Begin(context.Background())
	_, err := Connection(ctx, users)
	require.NoError(t, err)
	_, err = Connection(ctx, audit)
	require.NoError(t, err)

	err = Commit(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{
		"users:acquire", "audit:acquire",
		"users:commit-failed", "audit:rollback",
	}, rec.list())
}

func TestCommitWithoutBegin(t *testing.T) {
	assert.ErrorIs(t, Commit(context.Background()), ErrNoTransaction)
	assert.ErrorIs(t, Rollback(context.Background()), ErrNoTransaction)

	ctx := Begin(context.Background())
	require.NoError(t, Commit(ctx))
	assert.ErrorIs(t, Commit(ctx), ErrNotActive)
}

func TestCloseClearsContext(t *testing.T) {
	rec := &recorder{}
	users := &fakeSource{name: "users", rec: rec}

	ctx := Begin(Begin(context.Background()))
	_, err := Connection(ctx, users)
	require.NoError(t, err)

	require.NoError(t, Close(ctx))
	require.NoError(t, Close(ctx))
	assert.Equal(t, 0, Depth(ctx))
	assert.Equal(t, []string{"users:acquire", "users:close"}, rec.list())

	_, err = Connection(ctx, users)
	assert.ErrorIs(t, err, ErrNoTransaction)

	fresh := Begin(ctx)
	assert.Equal(t, 1, Depth(fresh))
}

func TestAcquireFailureIsWrapped(t *testing.T) {
	boom := errors.New("pool exhausted")
	ctx := Begin(context.Background())
	_, err := Connection(ctx, &fakeSource{name: "users", rec: &recorder{}, failOpen: boom})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"users"`)
}

// inspectingSource reads the unit of work state from inside Acquire.
type inspectingSource struct {
	fakeSource
	sawActive bool
	sawDepth  int
	before    func(ctx context.Context)
}

func (s *inspectingSource) Acquire(ctx context.Context) (Conn, error) {
	s.sawActive = IsActive(ctx)
	s.sawDepth = Depth(ctx)
	if s.before != nil {
		s.before(ctx)
	}
	return s.fakeSource.Acquire(ctx)
}

func TestAcquireMayInspectUnitOfWork(t *testing.T) {
	source := &inspectingSource{fakeSource: fakeSource{name: "users", rec: &recorder{}}}
	ctx := Begin(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Connection(ctx, source)
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Connection blocked while the data source inspected the unit of work")
	}
	assert.True(t, source.sawActive)
	assert.Equal(t, 1, source.sawDepth)
}

func TestConcurrentFirstUseAcquiresOnce(t *testing.T) {
	release := make(chan struct{})
	source := &inspectingSource{
		fakeSource: fakeSource{name: "users", rec: &recorder{}},
		before:     func(context.Context) { <-release },
	}
	ctx := Begin(context.Background())

	conns := make(chan Conn, 2)
	for i := 0; i < 2; i++ {
		go func() {
			conn, err := Connection(ctx, source)
			assert.NoError(t, err)
			conns <- conn
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)

	first, second := <-conns, <-conns
	assert.Same(t, first, second)
	assert.Equal(t, 1, source.acquired)
}

func TestConnectionClosedWhenUnitEndsDuringAcquire(t *testing.T) {
	rec := &recorder{}
	ctx := Begin(context.Background())
	source := &inspectingSource{
		fakeSource: fakeSource{name: "users", rec: rec},
		before:     func(ctx context.Context) { require.NoError(t, Close(ctx)) },
	}

	_, err := Connection(ctx, source)
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Equal(t, []string{"users:acquire", "users:close"}, rec.list())
}
