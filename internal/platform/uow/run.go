package uow

import (
	"context"
	"errors"
)

// Run executes fn inside a unit of work. A non-nil error or a panic from fn
// rolls the unit of work back; otherwise it is committed. When Run opened the
// outermost scope it also closes the transaction context.
func Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	outermost := !IsActive(ctx)
	txCtx := Begin(ctx)

	defer func() {
		if outermost {
			if closeErr := Close(txCtx); closeErr != nil {
				err = errors.Join(err, closeErr)
			}
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			_ = Rollback(txCtx)
			panic(p)
		}
	}()

	if err = fn(txCtx); err != nil {
		if rbErr := Rollback(txCtx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return Commit(txCtx)
}

// Manager binds Run to a fixed set of data sources that are acquired eagerly
// when the outermost scope opens.
type Manager struct {
	sources []DataSource
}

func NewManager(sources ...DataSource) *Manager {
	return &Manager{sources: sources}
}

// Do runs fn in a unit of work with every managed data source enlisted.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return Run(ctx, func(ctx context.Context) error {
		for _, ds := range m.sources {
			if _, err := Connection(ctx, ds); err != nil {
				return err
			}
		}
		return fn(ctx)
	})
}
