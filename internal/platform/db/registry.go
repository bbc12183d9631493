package db

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry keeps the named data sources of one process.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*Postgres
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]*Postgres)}
}

// Open connects every config and registers the result. Sources already
// opened are closed again when a later one fails.
func (r *Registry) Open(configs ...DataSourceConfig) error {
	for _, cfg := range configs {
		pg, err := Connect(cfg)
		if err != nil {
			return errors.Join(err, r.Close())
		}
		if err := r.Add(pg); err != nil {
			return errors.Join(err, pg.Close(), r.Close())
		}
	}
	return nil
}

func (r *Registry) Add(p *Postgres) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[p.Name()]; ok {
		return fmt.Errorf("data source %q already registered", p.Name())
	}
	r.sources[p.Name()] = p
	return nil
}

func (r *Registry) Get(name string) (*Postgres, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("data source %q not registered", name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, p := range r.sources {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close data source %q: %w", name, err))
		}
	}
	r.sources = make(map[string]*Postgres)
	return errors.Join(errs...)
}
