package hashcache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/hashcache/internal/util"
)

type FacadeOptions struct {
	// Store backs the facade (required). It is scoped to the facade's
	// namespace with Within.
	Store Store
	// Location is the per-cache part of the namespace (required).
	Location string
	// BaseLocation is the namespace root. Default "general" for Namespaced,
	// "critical" for Critical.
	BaseLocation string
	// Name labels the cache in logs and hooks. Default Location.
	Name string
	// Bypass disables reads: Get and Many report every key absent. Writes
	// still go to the store. Ignored by Critical.
	Bypass bool

	Logger Logger
	Hooks  Hooks
}

// Namespaced is a named cache bound to the namespace
// "<BaseLocation>:<Location>" of a Store.
type Namespaced struct {
	store     Store
	name      string
	namespace string
	segmented bool
	enabled   bool
	flight    *singleflight.Group
	log       Logger
	hooks     Hooks
}

func NewNamespaced(opts FacadeOptions) (*Namespaced, error) {
	n, err := newNamespaced(opts, DefaultBaseLocation)
	if err != nil {
		return nil, err
	}
	n.enabled = !opts.Bypass
	return n, nil
}

func newNamespaced(opts FacadeOptions, base string) (*Namespaced, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("hashcache: store is required")
	}
	if opts.Location == "" {
		return nil, fmt.Errorf("hashcache: location is required")
	}
	ns := util.Namespace(coalesce(opts.BaseLocation, base), opts.Location)
	return &Namespaced{
		store:     opts.Store.Within(ns),
		name:      coalesce(opts.Name, opts.Location),
		namespace: ns,
		segmented: opts.Store.SupportsNamespaces(),
		flight:    new(singleflight.Group),
		log:       coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:     coalesce[Hooks](opts.Hooks, NopHooks{}),
	}, nil
}

func (n *Namespaced) Name() string      { return n.name }
func (n *Namespaced) Namespace() string { return n.namespace }
func (n *Namespaced) Enabled() bool     { return n.enabled }

// Store returns the scoped store behind the facade.
func (n *Namespaced) Store() Store { return n.store }

func (n *Namespaced) Get(ctx context.Context, key string) (any, bool, error) {
	if !n.enabled {
		n.log.Debug("cache bypassed", Fields{"cache": n.name, "key": key})
		return nil, false, nil
	}
	return n.store.Get(ctx, key)
}

// Many returns an entry for every key; nil means absent.
func (n *Namespaced) Many(ctx context.Context, keys []string) (map[string]any, error) {
	if !n.enabled {
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			out[k] = nil
		}
		return out, nil
	}
	return n.store.Many(ctx, keys)
}

// Put stores value for ttl, or forever when ttl <= 0. ErrNotStored reports
// a write the store did not apply.
func (n *Namespaced) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	var (
		ok  bool
		err error
	)
	if ttl > 0 {
		ok, err = n.store.Put(ctx, key, value, ttl)
	} else {
		ok, err = n.store.Forever(ctx, key, value)
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotStored
	}
	return nil
}

func (n *Namespaced) Delete(ctx context.Context, key string) error {
	_, err := n.store.Forget(ctx, key)
	return err
}

func (n *Namespaced) SetMultiples(ctx context.Context, values map[string]any, ttl time.Duration) error {
	ok, err := n.store.PutMany(ctx, values, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotStored
	}
	return nil
}

// Add stores value only if key is not set yet.
func (n *Namespaced) Add(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return n.store.Add(ctx, key, value, ttl)
}

// Clear flushes the whole namespace.
func (n *Namespaced) Clear(ctx context.Context) (bool, error) {
	ok, err := n.store.Flush(ctx)
	if err != nil {
		return false, err
	}
	mode := "generation"
	if n.segmented {
		mode = "delete"
	}
	n.log.Info("cache cleared", Fields{"cache": n.name, "namespace": n.namespace, "mode": mode})
	return ok, nil
}

// All returns every entry of the namespace. Stores that cannot enumerate a
// namespace return ErrUnsupported.
func (n *Namespaced) All(ctx context.Context) (map[string]any, error) {
	if !n.segmented {
		return nil, ErrUnsupported
	}
	return n.store.GetAll(ctx)
}

func (n *Namespaced) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return n.store.Increment(ctx, key, delta)
}

func (n *Namespaced) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return n.store.Decrement(ctx, key, delta)
}

// Remember returns the cached value for key, or computes it with fn and
// stores it for ttl. Concurrent misses on the same key share one fn call.
// fn errors are returned as is and nothing is stored.
func (n *Namespaced) Remember(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) (any, error)) (any, error) {
	return n.remember(ctx, key, ttl, fn, n.Get)
}

// remember reads through get so wrappers keep their miss handling.
func (n *Namespaced) remember(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) (any, error), get func(context.Context, string) (any, bool, error)) (any, error) {
	v, ok, err := get(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return v, nil
	}
	v, err, _ = n.flight.Do(key, func() (any, error) {
		built, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if err := n.Put(ctx, key, built, ttl); err != nil {
			return nil, err
		}
		return built, nil
	})
	return v, err
}

func (n *Namespaced) lockProvider() (LockProvider, error) {
	lp, ok := n.store.(LockProvider)
	if !ok {
		return nil, ErrUnsupported
	}
	return lp, nil
}

// Lock returns a lock scoped to the facade's namespace.
func (n *Namespaced) Lock(name string, ttl time.Duration, owner string) (*Lock, error) {
	lp, err := n.lockProvider()
	if err != nil {
		return nil, err
	}
	return lp.Lock(name, ttl, owner), nil
}

func (n *Namespaced) RestoreLock(name, owner string) (*Lock, error) {
	lp, err := n.lockProvider()
	if err != nil {
		return nil, err
	}
	return lp.RestoreLock(name, owner), nil
}
