package hashcache

import (
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/hashcache/connection"
)

type logEntry struct {
	level  string
	msg    string
	fields Fields
}

type recLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recLogger) add(level, msg string, f Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: f})
}

func (l *recLogger) Debug(msg string, f Fields) { l.add("debug", msg, f) }
func (l *recLogger) Info(msg string, f Fields)  { l.add("info", msg, f) }
func (l *recLogger) Warn(msg string, f Fields)  { l.add("warn", msg, f) }
func (l *recLogger) Error(msg string, f Fields) { l.add("error", msg, f) }

func (l *recLogger) at(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

type recHooks struct {
	mu        sync.Mutex
	decode    []string
	heals     []string
	partial   map[string][]string
	conn      []string
	critical  []string
	contended []string
}

func (h *recHooks) DecodeError(storageKey, field string, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.decode = append(h.decode, storageKey+"#"+field)
}

func (h *recHooks) SelfHeal(storageKey, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.heals = append(h.heals, reason+":"+storageKey)
}

func (h *recHooks) PutManyPartial(namespace string, failed []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.partial == nil {
		h.partial = make(map[string][]string)
	}
	h.partial[namespace] = append(h.partial[namespace], failed...)
}

func (h *recHooks) ConnectionFailure(op string, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conn = append(h.conn, op)
}

func (h *recHooks) CriticalMiss(cache, key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.critical = append(h.critical, cache+":"+key)
}

func (h *recHooks) LockContended(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.contended = append(h.contended, name)
}

func (h *recHooks) contendedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.contended)
}

// newRedis starts a miniredis server and a client for it.
func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newHashStore(t *testing.T, rdb redis.UniversalClient, opts HashOptions) *HashStore {
	t.Helper()
	opts.Connections = connection.Single(rdb)
	s, err := NewHashStore(opts)
	if err != nil {
		t.Fatalf("NewHashStore: %v", err)
	}
	return s
}
