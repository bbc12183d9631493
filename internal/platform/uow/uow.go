// Package uow coordinates one logical operation's transactional connections
// across several data sources.
//
// A transaction context travels on context.Context. Nested Begin calls on a
// context that already carries an open transaction only increase its depth;
// connections are committed or rolled back when the outermost scope ends.
// Any Rollback at any depth poisons the whole unit of work.
package uow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

var (
	ErrNoTransaction = errors.New("no active unit of work")
	ErrNotActive     = errors.New("unit of work is not active")
	ErrRolledBack    = errors.New("unit of work rolled back")
	ErrNilDataSource = errors.New("data source is nil")
)

// Conn is a transactional connection opened with autocommit disabled.
type Conn interface {
	Commit() error
	Rollback() error
	Close() error
}

// DataSource hands out transactional connections.
type DataSource interface {
	Name() string
	Acquire(ctx context.Context) (Conn, error)
}

// TransactionContext holds the connections acquired by one unit of work.
type TransactionContext struct {
	mu      sync.Mutex
	depth   int
	errored bool
	closed  bool
	conns   map[string]Conn
	order   []string

	// acquiring collapses concurrent first use of one data source.
	acquiring singleflight.Group
}

type ctxKey struct{}

func newTransactionContext() *TransactionContext {
	return &TransactionContext{conns: make(map[string]Conn)}
}

func fromContext(ctx context.Context) *TransactionContext {
	if ctx == nil {
		return nil
	}
	tc, _ := ctx.Value(ctxKey{}).(*TransactionContext)
	return tc
}

func active(ctx context.Context) *TransactionContext {
	tc := fromContext(ctx)
	if tc == nil {
		return nil
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.closed || tc.depth == 0 {
		return nil
	}
	return tc
}

// Begin opens a unit of work, or joins the one already carried by ctx.
func Begin(ctx context.Context) context.Context {
	if tc := active(ctx); tc != nil {
		tc.mu.Lock()
		tc.depth++
		tc.mu.Unlock()
		return ctx
	}
	tc := newTransactionContext()
	tc.depth = 1
	return context.WithValue(ctx, ctxKey{}, tc)
}

// IsActive reports whether ctx carries an open unit of work.
func IsActive(ctx context.Context) bool {
	return active(ctx) != nil
}

// Depth returns the nesting depth of the unit of work carried by ctx.
func Depth(ctx context.Context) int {
	tc := fromContext(ctx)
	if tc == nil {
		return 0
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.closed {
		return 0
	}
	return tc.depth
}

// Connection returns the connection bound to ds inside the current unit of
// work, acquiring it on first use. The transaction context is not locked
// while ds.Acquire runs.
func Connection(ctx context.Context, ds DataSource) (Conn, error) {
	if ds == nil {
		return nil, ErrNilDataSource
	}
	tc := active(ctx)
	if tc == nil {
		return nil, ErrNoTransaction
	}

	name := ds.Name()
	if conn, ok := tc.lookup(name); ok {
		return conn, nil
	}
	v, err, _ := tc.acquiring.Do(name, func() (any, error) {
		if conn, ok := tc.lookup(name); ok {
			return conn, nil
		}
		conn, err := ds.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire connection for %q: %w", name, err)
		}

		tc.mu.Lock()
		defer tc.mu.Unlock()
		if tc.closed || tc.depth == 0 {
			_ = conn.Close()
			return nil, ErrNotActive
		}
		tc.conns[name] = conn
		tc.order = append(tc.order, name)
		return conn, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Conn), nil
}

func (tc *TransactionContext) lookup(name string) (Conn, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	conn, ok := tc.conns[name]
	return conn, ok
}

// Commit ends one nesting level. At depth zero all connections are committed,
// unless a rollback was requested at some depth, in which case every
// connection is rolled back and ErrRolledBack is returned.
func Commit(ctx context.Context) error {
	tc := fromContext(ctx)
	if tc == nil {
		return ErrNoTransaction
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.closed || tc.depth == 0 {
		return ErrNotActive
	}
	tc.depth--
	if tc.depth > 0 {
		return nil
	}
	if tc.errored {
		if err := tc.rollbackAll(); err != nil {
			return errors.Join(ErrRolledBack, err)
		}
		return ErrRolledBack
	}
	return tc.commitAll()
}

// Rollback marks the unit of work as failed and ends one nesting level.
func Rollback(ctx context.Context) error {
	tc := fromContext(ctx)
	if tc == nil {
		return ErrNoTransaction
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.closed || tc.depth == 0 {
		return ErrNotActive
	}
	tc.errored = true
	tc.depth--
	if tc.depth > 0 {
		return nil
	}
	return tc.rollbackAll()
}

// Close releases every tracked connection and discards the transaction
// context. It is safe to call more than once.
func Close(ctx context.Context) error {
	tc := fromContext(ctx)
	if tc == nil {
		return nil
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.closed {
		return nil
	}
	var errs []error
	for _, name := range tc.order {
		if err := tc.conns[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection for %q: %w", name, err))
		}
	}
	tc.conns = make(map[string]Conn)
	tc.order = nil
	tc.depth = 0
	tc.errored = false
	tc.closed = true
	return errors.Join(errs...)
}

// commitAll commits in acquisition order. Once one commit fails, the
// remaining connections are rolled back.
func (tc *TransactionContext) commitAll() error {
	for i, name := range tc.order {
		if err := tc.conns[name].Commit(); err != nil {
			errs := []error{fmt.Errorf("commit connection for %q: %w", name, err)}
			for _, rest := range tc.order[i+1:] {
				if rbErr := tc.conns[rest].Rollback(); rbErr != nil {
					errs = append(errs, fmt.Errorf("rollback connection for %q: %w", rest, rbErr))
				}
			}
			return errors.Join(errs...)
		}
	}
	return nil
}

func (tc *TransactionContext) rollbackAll() error {
	var errs []error
	for _, name := range tc.order {
		if err := tc.conns[name].Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("rollback connection for %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
