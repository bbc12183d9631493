package listeners

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
	"userrealm/contexts/identity-access/userstore-service/ports"
)

// Stage tells whether hooks run before or after the store mutation.
type Stage string

const (
	StagePre  Stage = "pre"
	StagePost Stage = "post"
)

type registered[L ports.Listener] struct {
	listener L
	seq      int
}

// Registry keeps listeners sorted by execution order. Listeners with the same
// order run in registration order.
type Registry struct {
	mu     sync.RWMutex
	seq    int
	users  []registered[ports.UserListener]
	auth   []registered[ports.AuthenticationListener]
	groups []registered[ports.GroupListener]
	errs   []registered[ports.ErrorListener]
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds l under every listener interface it implements.
func (r *Registry) Register(l ports.Listener) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	matched := false
	if v, ok := l.(ports.UserListener); ok {
		r.users = insert(r.users, registered[ports.UserListener]{listener: v, seq: r.seq})
		matched = true
	}
	if v, ok := l.(ports.AuthenticationListener); ok {
		r.auth = insert(r.auth, registered[ports.AuthenticationListener]{listener: v, seq: r.seq})
		matched = true
	}
	if v, ok := l.(ports.GroupListener); ok {
		r.groups = insert(r.groups, registered[ports.GroupListener]{listener: v, seq: r.seq})
		matched = true
	}
	if v, ok := l.(ports.ErrorListener); ok {
		r.errs = insert(r.errs, registered[ports.ErrorListener]{listener: v, seq: r.seq})
		matched = true
	}
	if !matched {
		return fmt.Errorf("%w: %T", domainerrors.ErrUnsupportedListener, l)
	}
	return nil
}

// MustRegister is Register for composition roots.
func (r *Registry) MustRegister(listeners ...ports.Listener) {
	for _, l := range listeners {
		if err := r.Register(l); err != nil {
			panic(err)
		}
	}
}

// Users runs call for every enabled user listener; the first error stops
// the chain.
func (r *Registry) Users(ctx context.Context, stage Stage, operation string, call func(ports.UserListener) error) error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	items := snapshot(r.users)
	r.mu.RUnlock()
	return r.dispatch(ctx, stage, operation, toListeners(items), func(l ports.Listener) error {
		return call(l.(ports.UserListener))
	})
}

func (r *Registry) Auth(ctx context.Context, stage Stage, call func(ports.AuthenticationListener) error) error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	items := snapshot(r.auth)
	r.mu.RUnlock()
	return r.dispatch(ctx, stage, ports.OpAuthenticate, toListeners(items), func(l ports.Listener) error {
		return call(l.(ports.AuthenticationListener))
	})
}

func (r *Registry) Groups(ctx context.Context, stage Stage, operation string, call func(ports.GroupListener) error) error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	items := snapshot(r.groups)
	r.mu.RUnlock()
	return r.dispatch(ctx, stage, operation, toListeners(items), func(l ports.Listener) error {
		return call(l.(ports.GroupListener))
	})
}

// NotifyFailure informs every error listener. Their errors are logged only.
func (r *Registry) NotifyFailure(ctx context.Context, failure ports.OperationFailure) {
	if r == nil {
		return
	}
	r.mu.RLock()
	items := snapshot(r.errs)
	r.mu.RUnlock()

	for _, l := range items {
		if !enabled(l) {
			continue
		}
		if err := l.OnOperationFailure(ctx, failure); err != nil {
			r.logger.Warn("userstore error listener failed",
				"event", "userstore_error_listener_failed",
				"module", "identity-access/userstore-service",
				"layer", "application",
				"listener", fmt.Sprintf("%T", l),
				"operation", failure.Operation,
				"error", err.Error(),
			)
		}
	}
}

func (r *Registry) dispatch(
	ctx context.Context,
	stage Stage,
	operation string,
	items []ports.Listener,
	call func(ports.Listener) error,
) error {
	for _, l := range items {
		if !enabled(l) {
			continue
		}
		if err := call(l); err != nil {
			r.logger.Info("userstore listener vetoed operation",
				"event", "userstore_listener_veto",
				"module", "identity-access/userstore-service",
				"layer", "application",
				"listener", fmt.Sprintf("%T", l),
				"stage", string(stage),
				"operation", operation,
				"error", err.Error(),
			)
			return fmt.Errorf("%w: %s %s by %T: %w", domainerrors.ErrListenerVeto, stage, operation, l, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func insert[L ports.Listener](items []registered[L], item registered[L]) []registered[L] {
	items = append(items, item)
	sort.SliceStable(items, func(i, j int) bool {
		oi, oj := items[i].listener.ExecutionOrder(), items[j].listener.ExecutionOrder()
		if oi != oj {
			return oi < oj
		}
		return items[i].seq < items[j].seq
	})
	return items
}

func snapshot[L ports.Listener](items []registered[L]) []L {
	out := make([]L, 0, len(items))
	for _, item := range items {
		out = append(out, item.listener)
	}
	return out
}

func toListeners[L ports.Listener](items []L) []ports.Listener {
	out := make([]ports.Listener, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

func enabled(l ports.Listener) bool {
	if t, ok := l.(ports.Toggle); ok {
		return t.Enabled()
	}
	return true
}
