package memory

import (
	"context"
	"sync"

	"userrealm/internal/platform/uow"
)

// DataSource returns a unit-of-work data source over the store. Transactions
// are serialized; rolling back restores the state captured at acquisition.
// Outbox rows are the exception: the relay marks them outside any unit of
// work, so rollback only drops the rows the transaction appended.
func (s *Store) DataSource(name string) uow.DataSource {
	return dataSource{name: name, store: s}
}

type dataSource struct {
	name  string
	store *Store
}

func (d dataSource) Name() string {
	return d.name
}

func (d dataSource) Acquire(ctx context.Context) (uow.Conn, error) {
	acquired := make(chan struct{})
	go func() {
		d.store.txMu.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-ctx.Done():
		go func() {
			<-acquired
			d.store.txMu.Unlock()
		}()
		return nil, ctx.Err()
	}

	d.store.mu.RLock()
	saved := d.store.state.clone()
	d.store.mu.RUnlock()
	return &snapshotConn{store: d.store, saved: saved}, nil
}

type snapshotConn struct {
	store *Store
	saved state
	once  sync.Once
}

func (c *snapshotConn) Commit() error {
	c.release()
	return nil
}

func (c *snapshotConn) Rollback() error {
	c.once.Do(func() {
		c.store.mu.Lock()
		restored := c.saved
		for id := range restored.outbox {
			if row, ok := c.store.state.outbox[id]; ok {
				restored.outbox[id] = row
			}
		}
		c.store.state = restored
		c.store.mu.Unlock()
		c.store.txMu.Unlock()
	})
	return nil
}

func (c *snapshotConn) Close() error {
	c.release()
	return nil
}

func (c *snapshotConn) release() {
	c.once.Do(func() {
		c.store.txMu.Unlock()
	})
}
