// Package asynchook moves hook delivery off the caller's goroutine.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := hashcache.NewHashStore(hashcache.HashOptions{
//	    Connections: connection.Single(rdb),
//	    Hooks:       hooks,
//	})
//
// Events are dropped, never blocked on, when the queue is full.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/hashcache"
)

type Hooks struct {
	inner   hashcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ hashcache.Hooks = (*Hooks)(nil)

func New(inner hashcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close stops accepting events and waits for queued ones to be delivered.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.closed.Store(true)
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	if h.closed.Load() {
		h.dropped.Add(1)
		return
	}
	defer func() {
		// lost the race with Close
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) DecodeError(storageKey, field string, err error) {
	h.try(func() { h.inner.DecodeError(storageKey, field, err) })
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	h.try(func() { h.inner.SelfHeal(storageKey, reason) })
}

func (h *Hooks) PutManyPartial(namespace string, failed []string) {
	cp := append([]string(nil), failed...)
	h.try(func() { h.inner.PutManyPartial(namespace, cp) })
}

func (h *Hooks) ConnectionFailure(op string, err error) {
	h.try(func() { h.inner.ConnectionFailure(op, err) })
}

func (h *Hooks) CriticalMiss(cache, key string) {
	h.try(func() { h.inner.CriticalMiss(cache, key) })
}

func (h *Hooks) LockContended(name string) {
	h.try(func() { h.inner.LockContended(name) })
}
