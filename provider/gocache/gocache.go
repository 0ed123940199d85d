// Package gocache adapts patrickmn/go-cache to provider.Provider. It is the
// "memory" driver: a process-local map with per-item expiry and a janitor.
package gocache

import (
	"context"
	"time"

	gc "github.com/patrickmn/go-cache"

	pr "github.com/unkn0wn-root/hashcache/provider"
)

type Provider struct {
	c *gc.Cache
}

var (
	_ pr.Provider = (*Provider)(nil)
	_ pr.Adder    = (*Provider)(nil)
)

type Config struct {
	// CleanupInterval is how often the janitor purges expired items.
	// 0 => 10m; negative disables the janitor.
	CleanupInterval time.Duration
}

func New(cfg Config) *Provider {
	ci := cfg.CleanupInterval
	if ci == 0 {
		ci = 10 * time.Minute
	}
	return &Provider{c: gc.New(gc.NoExpiration, ci)}
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		p.c.Delete(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set copies value so later mutation by the caller cannot leak into the cache.
func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = gc.NoExpiration
	}
	p.c.Set(key, append([]byte(nil), value...), ttl)
	return true, nil
}

// Add relies on go-cache's own Add, which fails when a live item exists.
func (p *Provider) Add(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = gc.NoExpiration
	}
	if err := p.c.Add(key, append([]byte(nil), value...), ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Delete(key)
	return nil
}

// Close drops every item. go-cache's janitor goroutine stops once the cache
// is garbage collected.
func (p *Provider) Close(_ context.Context) error {
	p.c.Flush()
	return nil
}

// Len reports the number of items, including expired ones not yet purged.
func (p *Provider) Len() int { return p.c.ItemCount() }
