package hashcache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/unkn0wn-root/hashcache/codec"
	gen "github.com/unkn0wn-root/hashcache/genstore"
	"github.com/unkn0wn-root/hashcache/internal/util"
	"github.com/unkn0wn-root/hashcache/internal/wire"
	pr "github.com/unkn0wn-root/hashcache/provider"
)

// SetCostFunc computes the cost passed to the provider for one entry.
type SetCostFunc func(key string, raw []byte) int64

type PlainOptions struct {
	// Provider is the byte store (required).
	Provider pr.Provider
	// GenStore holds namespace generations. Default: in-process, no cleanup.
	GenStore gen.GenStore
	Codec    codec.Codec[any]
	Prefix   string
	// Namespace binds the store at construction; usually set with Within.
	Namespace string
	// ComputeSetCost defaults to 1 per entry.
	ComputeSetCost SetCostFunc

	Logger Logger
	Hooks  Hooks
}

// PlainStore implements Store over a flat provider.Provider. Each entry is
// one provider key "<prefix>:<namespace>:<key>" whose value is framed with
// the namespace generation current at write time. Flush bumps that
// generation; entries carrying an older one read as misses and are deleted
// on sight.
//
// Increment, and Add on providers without provider.Adder, are serialized by
// a mutex shared by every scoped copy, so they are atomic within one process
// only.
type PlainStore struct {
	provider pr.Provider
	gens     gen.GenStore
	codec    codec.Codec[any]
	prefix   string
	ns       string
	cost     SetCostFunc
	mu       *sync.Mutex
	log      Logger
	hooks    Hooks
}

var _ Store = (*PlainStore)(nil)

func NewPlainStore(opts PlainOptions) (*PlainStore, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("hashcache: provider is required")
	}
	s := &PlainStore{
		provider: opts.Provider,
		gens:     opts.GenStore,
		codec:    coalesce[codec.Codec[any]](opts.Codec, codec.Default()),
		prefix:   opts.Prefix,
		ns:       opts.Namespace,
		cost:     opts.ComputeSetCost,
		mu:       new(sync.Mutex),
		log:      coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:    coalesce[Hooks](opts.Hooks, NopHooks{}),
	}
	if s.gens == nil {
		s.gens = gen.NewLocalGenStore(0, 0)
	}
	if s.cost == nil {
		s.cost = func(string, []byte) int64 { return 1 }
	}
	return s, nil
}

func (s *PlainStore) Within(namespace string) Store {
	c := *s
	c.ns = namespace
	return &c
}

func (s *PlainStore) Namespace() string        { return s.ns }
func (s *PlainStore) SupportsNamespaces() bool { return false }

// Close closes the generation store (best effort) and the provider.
func (s *PlainStore) Close(ctx context.Context) error {
	_ = s.gens.Close(ctx)
	return s.provider.Close(ctx)
}

func (s *PlainStore) entryKey(key string) string { return util.Join(s.prefix, s.ns, key) }

func (s *PlainStore) check() error {
	if s.ns == "" {
		return ErrNamespaceRequired
	}
	return nil
}

func (s *PlainStore) fail(op, key string, err error) error {
	s.hooks.ConnectionFailure(op, err)
	s.log.Warn("provider call failed", Fields{"op": op, "key": key, "err": err})
	return &ConnectionError{Op: op, Key: key, Err: err}
}

func (s *PlainStore) generation(ctx context.Context) (uint64, error) {
	g, err := s.gens.Snapshot(ctx, s.ns)
	if err != nil {
		s.log.Warn("gen snapshot error", Fields{"namespace": s.ns, "err": err})
		return 0, s.fail("snapshot", s.ns, err)
	}
	return g, nil
}

// heal drops an entry that must not be served any more.
func (s *PlainStore) heal(ctx context.Context, k, reason string) {
	s.hooks.SelfHeal(k, reason)
	if err := s.provider.Del(ctx, k); err != nil {
		s.log.Warn("self-heal delete failed", Fields{"key": k, "reason": reason, "err": err})
		return
	}
	s.log.Debug("self-healed entry", Fields{"key": k, "reason": reason})
}

// read returns the payload of a live entry. Stale or corrupt frames are
// deleted and reported as a miss.
func (s *PlainStore) read(ctx context.Context, key string, cur uint64) ([]byte, bool, error) {
	k := s.entryKey(key)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil {
		return nil, false, s.fail("get", k, err)
	}
	if !ok {
		return nil, false, nil
	}
	g, payload, err := wire.Decode(raw)
	if err != nil {
		s.heal(ctx, k, "corrupt")
		return nil, false, nil
	}
	if g != cur {
		s.heal(ctx, k, "flushed")
		return nil, false, nil
	}
	return payload, true, nil
}

func (s *PlainStore) decode(key string, payload []byte) (any, error) {
	v, err := s.codec.Decode(payload)
	if err != nil {
		k := s.entryKey(key)
		s.hooks.DecodeError(k, key, err)
		s.log.Error("stored value could not be decoded", Fields{"key": k, "err": err})
		return nil, &SerializationError{Key: key, Err: err}
	}
	return v, nil
}

func (s *PlainStore) get(ctx context.Context, key string, cur uint64) (any, bool, error) {
	payload, ok, err := s.read(ctx, key, cur)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := s.decode(key, payload)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *PlainStore) Get(ctx context.Context, key string) (any, bool, error) {
	if err := s.check(); err != nil {
		return nil, false, err
	}
	cur, err := s.generation(ctx)
	if err != nil {
		return nil, false, err
	}
	return s.get(ctx, key, cur)
}

func (s *PlainStore) Many(ctx context.Context, keys []string) (map[string]any, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	cur, err := s.generation(ctx)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		v, _, err := s.get(ctx, k, cur)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (s *PlainStore) encode(key string, v any) ([]byte, error) {
	if v == nil {
		return nil, &SerializationError{Key: key, Err: ErrNilValue}
	}
	b, err := s.codec.Encode(v)
	if err != nil {
		return nil, &SerializationError{Key: key, Err: err}
	}
	return b, nil
}

func (s *PlainStore) set(ctx context.Context, key string, payload []byte, cur uint64, ttl time.Duration) (bool, error) {
	k := s.entryKey(key)
	frame := wire.Encode(cur, payload)
	ok, err := s.provider.Set(ctx, k, frame, s.cost(k, frame), max(ttl, 0))
	if err != nil {
		return false, s.fail("set", k, err)
	}
	if !ok {
		s.log.Debug("set rejected by provider (pressure)", Fields{"key": k})
	}
	return ok, nil
}

func (s *PlainStore) Put(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	payload, err := s.encode(key, value)
	if err != nil {
		return false, err
	}
	cur, err := s.generation(ctx)
	if err != nil {
		return false, err
	}
	return s.set(ctx, key, payload, cur, ttl)
}

func (s *PlainStore) Forever(ctx context.Context, key string, value any) (bool, error) {
	return s.Put(ctx, key, value, 0)
}

// PutMany writes entries one by one; there is no transaction on a flat
// provider. Nothing is written when any value fails to encode.
func (s *PlainStore) PutMany(ctx context.Context, values map[string]any, ttl time.Duration) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	if len(values) == 0 {
		return true, nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payloads := make(map[string][]byte, len(values))
	for _, k := range keys {
		p, err := s.encode(k, values[k])
		if err != nil {
			return false, err
		}
		payloads[k] = p
	}
	cur, err := s.generation(ctx)
	if err != nil {
		return false, err
	}
	var failed []string
	for _, k := range keys {
		ok, err := s.set(ctx, k, payloads[k], cur, ttl)
		if err != nil {
			return false, err
		}
		if !ok {
			failed = append(failed, k)
		}
	}
	if len(failed) > 0 {
		s.hooks.PutManyPartial(s.ns, failed)
		s.log.Warn("putMany: members not stored", Fields{"namespace": s.ns, "failed": failed})
		return false, nil
	}
	return true, nil
}

// Add stores value only if no live entry exists for key. Unlike HashStore,
// the flag is the entry itself, so Get sees it and Flush clears it.
//
// Providers implementing provider.Adder make Add atomic across processes;
// otherwise it is serialized by the store mutex.
func (s *PlainStore) Add(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	payload, err := s.encode(key, value)
	if err != nil {
		return false, err
	}
	if a, ok := s.provider.(pr.Adder); ok {
		return s.addAtomic(ctx, a, key, payload, ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.generation(ctx)
	if err != nil {
		return false, err
	}
	_, exists, err := s.read(ctx, key, cur)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	return s.set(ctx, key, payload, cur, ttl)
}

// addAtomic tries the provider's create-if-absent. A refusal caused by a
// stale or corrupt frame is healed by read and retried once.
func (s *PlainStore) addAtomic(ctx context.Context, a pr.Adder, key string, payload []byte, ttl time.Duration) (bool, error) {
	cur, err := s.generation(ctx)
	if err != nil {
		return false, err
	}
	k := s.entryKey(key)
	frame := wire.Encode(cur, payload)
	for attempt := 0; ; attempt++ {
		created, err := a.Add(ctx, k, frame, s.cost(k, frame), max(ttl, 0))
		if err != nil {
			return false, s.fail("add", k, err)
		}
		if created || attempt > 0 {
			return created, nil
		}
		_, live, err := s.read(ctx, key, cur)
		if err != nil || live {
			return false, err
		}
	}
}

func (s *PlainStore) Flag(ctx context.Context, key string) (any, bool, error) {
	return s.Get(ctx, key)
}

// Increment is a read-modify-write under the store mutex. The entry is
// rewritten without expiry.
func (s *PlainStore) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.generation(ctx)
	if err != nil {
		return 0, err
	}
	v, ok, err := s.get(ctx, key, cur)
	if err != nil {
		return 0, err
	}
	var n int64
	if ok {
		i, isInt := v.(int64)
		if !isInt {
			return 0, fmt.Errorf("hashcache: increment %q: %w", key, ErrNotInteger)
		}
		n = i
	}
	n += delta
	payload, err := s.encode(key, n)
	if err != nil {
		return 0, err
	}
	stored, err := s.set(ctx, key, payload, cur, 0)
	if err != nil {
		return 0, err
	}
	if !stored {
		return 0, ErrNotStored
	}
	return n, nil
}

func (s *PlainStore) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return s.Increment(ctx, key, -delta)
}

// Forget reports true only when a live entry was removed.
func (s *PlainStore) Forget(ctx context.Context, key string) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	cur, err := s.generation(ctx)
	if err != nil {
		return false, err
	}
	_, live, err := s.read(ctx, key, cur)
	if err != nil || !live {
		return false, err
	}
	k := s.entryKey(key)
	if err := s.provider.Del(ctx, k); err != nil {
		return false, s.fail("del", k, err)
	}
	return true, nil
}

// Flush bumps the namespace generation. Old entries stay in the provider
// until read or expired.
func (s *PlainStore) Flush(ctx context.Context) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	g, err := s.gens.Bump(ctx, s.ns)
	if err != nil {
		s.log.Error("gen bump error", Fields{"namespace": s.ns, "err": err})
		return false, s.fail("bump", s.ns, err)
	}
	s.log.Debug("flushed namespace (bumped gen)", Fields{"namespace": s.ns, "gen": g})
	return true, nil
}

// GetAll needs an enumerable namespace; a flat provider has none.
func (s *PlainStore) GetAll(context.Context) (map[string]any, error) {
	return nil, ErrUnsupported
}
