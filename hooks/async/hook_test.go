package asynchook

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/hashcache"
)

type recorder struct {
	hashcache.NopHooks
	mu     sync.Mutex
	events []string
	block  chan struct{}
}

func (r *recorder) add(e string) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) SelfHeal(k, reason string)            { r.add("heal:" + k + ":" + reason) }
func (r *recorder) ConnectionFailure(op string, _ error) { r.add("conn:" + op) }
func (r *recorder) CriticalMiss(cache, key string)       { r.add("critical:" + cache + ":" + key) }
func (r *recorder) LockContended(name string)            { r.add("lock:" + name) }
func (r *recorder) PutManyPartial(ns string, f []string) { r.add("partial:" + ns + ":" + f[0]) }
func (r *recorder) DecodeError(k, field string, _ error) { r.add("decode:" + k + ":" + field) }

func TestDeliversAllEventsBeforeClose(t *testing.T) {
	rec := &recorder{}
	h := New(rec, 1, 16)

	h.SelfHeal("app:general:u:1", "flushed")
	h.ConnectionFailure("HGET", errors.New("boom"))
	h.CriticalMiss("config", "flags")
	h.LockContended("import")
	h.PutManyPartial("general:u", []string{"a"})
	h.DecodeError("app:general:u", "x", errors.New("bad"))
	h.Close()

	require.Equal(t, []string{
		"heal:app:general:u:1:flushed",
		"conn:HGET",
		"critical:config:flags",
		"lock:import",
		"partial:general:u:a",
		"decode:app:general:u:x",
	}, rec.snapshot())
	require.Zero(t, h.Dropped())
}

func TestDropsWhenQueueFull(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	h := New(rec, 1, 1)

	// one event held by the worker, one queued, the rest dropped
	for i := 0; i < 10; i++ {
		h.LockContended("l")
	}
	require.Eventually(t, func() bool { return h.Dropped() >= 8 }, time.Second, 5*time.Millisecond)

	close(rec.block)
	h.Close()
	require.Equal(t, uint64(10), uint64(len(rec.snapshot()))+h.Dropped())
}

func TestEventsAfterCloseAreDropped(t *testing.T) {
	rec := &recorder{}
	h := New(rec, 2, 4)
	h.Close()
	h.Close()

	h.LockContended("late")
	require.Empty(t, rec.snapshot())
	require.Equal(t, uint64(1), h.Dropped())
}
