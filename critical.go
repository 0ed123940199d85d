package hashcache

import (
	"context"
	"time"
)

// Critical is a Namespaced cache for data that must have been built ahead of
// time. It is never bypassed and lives under "critical" by default. A read
// that finds nothing is logged at error level.
type Critical struct {
	*Namespaced
}

func NewCritical(opts FacadeOptions) (*Critical, error) {
	n, err := newNamespaced(opts, CriticalLocation)
	if err != nil {
		return nil, err
	}
	n.enabled = true
	return &Critical{Namespaced: n}, nil
}

func (c *Critical) Get(ctx context.Context, key string) (any, bool, error) {
	v, ok, err := c.Namespaced.Get(ctx, key)
	if err == nil && !ok {
		c.missed(key)
	}
	return v, ok, err
}

// Many reports every absent key the way Get does.
func (c *Critical) Many(ctx context.Context, keys []string) (map[string]any, error) {
	out, err := c.Namespaced.Many(ctx, keys)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if out[k] == nil {
			c.missed(k)
		}
	}
	return out, nil
}

// Remember builds a missing entry after the miss has been reported.
func (c *Critical) Remember(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) (any, error)) (any, error) {
	return c.remember(ctx, key, ttl, fn, c.Get)
}

func (c *Critical) missed(key string) {
	c.log.Error("critical cache has not been built", Fields{
		"cache":     c.name,
		"key":       key,
		"namespace": c.namespace,
	})
	c.hooks.CriticalMiss(c.name, key)
}
