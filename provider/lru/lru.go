// Package lru adapts hashicorp/golang-lru/v2 to provider.Provider for the
// "lru" driver: a fixed number of entries, least recently used evicted first.
package lru

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	pr "github.com/unkn0wn-root/hashcache/provider"
)

const defaultSize = 10_000

type entry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

type Provider struct {
	c       *lru.Cache[string, entry]
	evicted atomic.Uint64
	now     func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	// Size is the maximum number of entries. 0 => 10000.
	Size int
}

func New(cfg Config) (*Provider, error) {
	size := cfg.Size
	if size == 0 {
		size = defaultSize
	}
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("lru: %w", err)
	}
	return &Provider{c: c, now: time.Now}, nil
}

// Get treats an expired entry as a miss and removes it.
func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !p.now().Before(e.expires) {
		p.c.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = p.now().Add(ttl)
	}
	if p.c.Add(key, e) {
		p.evicted.Add(1)
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Remove(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Purge()
	return nil
}

// Evicted counts entries dropped to make room, excluding explicit deletes
// and expirations.
func (p *Provider) Evicted() uint64 { return p.evicted.Load() }
