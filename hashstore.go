package hashcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/hashcache/codec"
	"github.com/unkn0wn-root/hashcache/connection"
	"github.com/unkn0wn-root/hashcache/internal/util"
)

const scanCount = 100

// addScript creates KEYS[1] only if it does not exist. ARGV[2] is the
// expiry in seconds; 0 stores without expiry.
var addScript = redis.NewScript(`
if redis.call('exists', KEYS[1]) == 1 then
  return 0
end
local ttl = tonumber(ARGV[2])
if ttl > 0 then
  redis.call('set', KEYS[1], ARGV[1], 'EX', ttl)
else
  redis.call('set', KEYS[1], ARGV[1])
end
return 1
`)

type HashOptions struct {
	// Connections resolves the named Redis client (required).
	Connections connection.Provider
	// Connection is the name passed to Connections. Default "default".
	Connection string
	// Prefix is prepended to every remote key. Empty means no prefix.
	Prefix string
	// Namespace binds the store at construction. Usually left empty and
	// set through Within.
	Namespace string
	// Codec encodes values. Default codec.Default().
	Codec codec.Codec[any]
	// TTLPolicy selects per-field or per-namespace expiry. Default FieldTTL.
	TTLPolicy TTLPolicy
	// LockRetry is the sleep between attempts in Lock.Block. Default 250ms.
	LockRetry time.Duration

	Logger Logger
	Hooks  Hooks
}

// HashStore keeps every namespace in one Redis hash
// "<prefix>:<namespace>", one field per entry. Flushing a namespace is a
// single DEL and the namespace can be enumerated with HGETALL.
//
// HashStore is safe for concurrent use; Within returns a copy.
type HashStore struct {
	conns     connection.Provider
	connName  string
	prefix    string
	ns        string
	codec     codec.Codec[any]
	ttl       TTLPolicy
	lockRetry time.Duration
	fieldTTL  *capability // shared by every scoped copy
	log       Logger
	hooks     Hooks
}

var (
	_ Store        = (*HashStore)(nil)
	_ LockProvider = (*HashStore)(nil)
)

func NewHashStore(opts HashOptions) (*HashStore, error) {
	if opts.Connections == nil {
		return nil, fmt.Errorf("hashcache: connections are required")
	}
	if strings.Contains(opts.Prefix, util.SideSep) {
		return nil, ErrInvalidNamespace
	}
	return &HashStore{
		conns:     opts.Connections,
		connName:  coalesce(opts.Connection, DefaultConnection),
		prefix:    opts.Prefix,
		ns:        opts.Namespace,
		codec:     coalesce[codec.Codec[any]](opts.Codec, codec.Default()),
		ttl:       opts.TTLPolicy,
		lockRetry: coalesce(opts.LockRetry, defaultLockRetry),
		fieldTTL:  new(capability),
		log:       coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:     coalesce[Hooks](opts.Hooks, NopHooks{}),
	}, nil
}

func (s *HashStore) Within(namespace string) Store { return s.Scoped(namespace) }

// Scoped is Within with the concrete type, for callers that need Keys,
// Namespaces or locks.
func (s *HashStore) Scoped(namespace string) *HashStore {
	c := *s
	c.ns = namespace
	return &c
}

func (s *HashStore) Namespace() string        { return s.ns }
func (s *HashStore) SupportsNamespaces() bool { return true }

// HashKey is the remote key of the bound namespace.
func (s *HashStore) HashKey() string { return util.Join(s.prefix, s.ns) }

func (s *HashStore) client() (redis.UniversalClient, error) {
	rdb, err := s.conns.Connection(s.connName)
	if err != nil {
		return nil, s.fail("connection", s.connName, err)
	}
	return rdb, nil
}

// bound checks that the store is scoped to a usable namespace.
func (s *HashStore) bound() error {
	if s.ns == "" {
		return ErrNamespaceRequired
	}
	if strings.Contains(s.ns, util.SideSep) {
		return ErrInvalidNamespace
	}
	return nil
}

// target resolves the client and the namespace hash for a data operation.
func (s *HashStore) target() (redis.UniversalClient, string, error) {
	if err := s.bound(); err != nil {
		return nil, "", err
	}
	rdb, err := s.client()
	if err != nil {
		return nil, "", err
	}
	return rdb, s.HashKey(), nil
}

func (s *HashStore) fail(op, key string, err error) error {
	s.hooks.ConnectionFailure(op, err)
	s.log.Warn("redis call failed", Fields{"op": op, "key": key, "err": err})
	return &ConnectionError{Op: op, Key: key, Err: err}
}

func (s *HashStore) encode(key string, v any) ([]byte, error) {
	if v == nil {
		return nil, &SerializationError{Key: key, Err: ErrNilValue}
	}
	b, err := s.codec.Encode(v)
	if err != nil {
		return nil, &SerializationError{Key: key, Err: err}
	}
	return b, nil
}

func (s *HashStore) decode(storageKey, field string, raw []byte) (any, error) {
	v, err := s.codec.Decode(raw)
	if err != nil {
		s.hooks.DecodeError(storageKey, field, err)
		s.log.Error("stored value could not be decoded", Fields{"key": storageKey, "field": field, "err": err})
		return nil, &SerializationError{Key: field, Err: err}
	}
	return v, nil
}

func (s *HashStore) Get(ctx context.Context, key string) (any, bool, error) {
	rdb, hk, err := s.target()
	if err != nil {
		return nil, false, err
	}
	raw, err := rdb.HGet(ctx, hk, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.fail("HGET", hk, err)
	}
	v, err := s.decode(hk, key, raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *HashStore) Many(ctx context.Context, keys []string) (map[string]any, error) {
	rdb, hk, err := s.target()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := rdb.HMGet(ctx, hk, keys...).Result()
	if err != nil {
		return nil, s.fail("HMGET", hk, err)
	}
	for i, k := range keys {
		out[k] = nil
		raw, ok := vals[i].(string)
		if !ok {
			continue
		}
		v, err := s.decode(hk, k, []byte(raw))
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// queued holds the replies of one member of a write transaction.
type queued struct {
	field  string
	set    *redis.IntCmd
	expire *redis.IntSliceCmd // FieldTTL
	nsExp  *redis.BoolCmd     // NamespaceTTL, shared by all members
}

func (q queued) stored() bool {
	if q.set.Err() != nil {
		return false
	}
	switch {
	case q.expire != nil:
		res, err := q.expire.Result()
		return err == nil && len(res) == 1 && res[0] == 1
	case q.nsExp != nil:
		ok, err := q.nsExp.Result()
		return err == nil && ok
	}
	return true
}

// capability caches whether the server understands a command. Only a
// definite answer is kept; network errors are retried on the next call.
type capability struct {
	mu      sync.Mutex
	checked bool
	err     error
}

// checkFieldTTL makes sure HEXPIRE exists before it is queued in a
// transaction, where an unknown command would abort the whole write. The
// check runs HEXPIRE against a key that never holds data.
func (s *HashStore) checkFieldTTL(ctx context.Context, rdb redis.UniversalClient) error {
	c := s.fieldTTL
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.checked {
		return c.err
	}
	k := util.Side(s.prefix, "hashcache", "capabilities")
	err := rdb.HExpire(ctx, k, time.Second, "hexpire").Err()
	switch {
	case err == nil:
		c.checked = true
	case isUnknownCommand(err):
		c.checked, c.err = true, ErrFieldTTLUnsupported
		s.log.Error("per-field expiry is not supported by the server", Fields{"err": err})
	default:
		return s.fail("HEXPIRE", k, err)
	}
	return c.err
}

func isUnknownCommand(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unknown command")
}

// write runs HSET (plus expiry when ttl > 0) for every field inside one
// MULTI/EXEC and returns the per-field replies in field order.
func (s *HashStore) write(ctx context.Context, fields []string, raws map[string][]byte, ttl time.Duration) ([]queued, error) {
	rdb, hk, err := s.target()
	if err != nil {
		return nil, err
	}
	if ttl > 0 && s.ttl == FieldTTL {
		if err := s.checkFieldTTL(ctx, rdb); err != nil {
			return nil, err
		}
	}
	qs := make([]queued, 0, len(fields))
	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, f := range fields {
			q := queued{field: f, set: pipe.HSet(ctx, hk, f, raws[f])}
			if ttl > 0 && s.ttl == FieldTTL {
				q.expire = pipe.HExpire(ctx, hk, wholeSeconds(ttl), f)
			}
			qs = append(qs, q)
		}
		if ttl > 0 && s.ttl == NamespaceTTL {
			exp := pipe.Expire(ctx, hk, wholeSeconds(ttl))
			for i := range qs {
				qs[i].nsExp = exp
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("MULTI", hk, err)
	}
	return qs, nil
}

// Put writes the field and applies its expiry in one transaction. A Put over
// an existing field replaces both value and expiry.
func (s *HashStore) Put(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return s.Forever(ctx, key, value)
	}
	return s.putOne(ctx, key, value, ttl)
}

func (s *HashStore) Forever(ctx context.Context, key string, value any) (bool, error) {
	return s.putOne(ctx, key, value, 0)
}

func (s *HashStore) putOne(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	raw, err := s.encode(key, value)
	if err != nil {
		return false, err
	}
	qs, err := s.write(ctx, []string{key}, map[string][]byte{key: raw}, ttl)
	if err != nil {
		return false, err
	}
	return qs[0].stored(), nil
}

// PutMany writes all values in one MULTI/EXEC. Nothing is sent when any
// value fails to encode. The result is true only if every member was stored
// with its expiry; an empty map is trivially true.
func (s *HashStore) PutMany(ctx context.Context, values map[string]any, ttl time.Duration) (bool, error) {
	if err := s.bound(); err != nil {
		return false, err
	}
	if len(values) == 0 {
		return true, nil
	}
	fields := make([]string, 0, len(values))
	for k := range values {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	raws := make(map[string][]byte, len(values))
	for _, f := range fields {
		raw, err := s.encode(f, values[f])
		if err != nil {
			return false, err
		}
		raws[f] = raw
	}

	qs, err := s.write(ctx, fields, raws, ttl)
	if err != nil {
		return false, err
	}
	var failed []string
	for _, q := range qs {
		if !q.stored() {
			failed = append(failed, q.field)
		}
	}
	if len(failed) > 0 {
		s.hooks.PutManyPartial(s.ns, failed)
		s.log.Warn("putMany: members not stored", Fields{"namespace": s.ns, "failed": failed})
		return false, nil
	}
	return true, nil
}

// sideKey is the standalone string key used by Add, Flag and locks. It
// lives outside the namespace hash, so Flush does not remove it.
func (s *HashStore) sideKey(name string) string {
	return util.Side(s.prefix, s.ns, name)
}

// sideClient resolves the client for an operation on a standalone key.
func (s *HashStore) sideClient() (redis.UniversalClient, error) {
	if err := s.bound(); err != nil {
		return nil, err
	}
	return s.client()
}

// Add atomically creates the standalone key "<prefix>:<namespace>#<key>"
// if it does not exist. Locks share this key space.
func (s *HashStore) Add(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := s.bound(); err != nil {
		return false, err
	}
	raw, err := s.encode(key, value)
	if err != nil {
		return false, err
	}
	rdb, err := s.client()
	if err != nil {
		return false, err
	}
	var secs int64
	if ttl > 0 {
		secs = int64(wholeSeconds(ttl) / time.Second)
	}
	k := s.sideKey(key)
	n, err := addScript.Run(ctx, rdb, []string{k}, raw, secs).Int()
	if err != nil {
		return false, s.fail("EVAL", k, err)
	}
	return n == 1, nil
}

func (s *HashStore) Flag(ctx context.Context, key string) (any, bool, error) {
	rdb, err := s.sideClient()
	if err != nil {
		return nil, false, err
	}
	k := s.sideKey(key)
	raw, err := rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.fail("GET", k, err)
	}
	v, err := s.decode(k, key, raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Increment adds delta to the field with HINCRBY. An absent field counts as
// zero. The field keeps its expiry, if any.
func (s *HashStore) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	rdb, hk, err := s.target()
	if err != nil {
		return 0, err
	}
	n, err := rdb.HIncrBy(ctx, hk, key, delta).Result()
	if err != nil {
		if rerr := incrementError(err); rerr != nil {
			return 0, fmt.Errorf("hashcache: increment %q: %w", key, rerr)
		}
		return 0, s.fail("HINCRBY", hk, err)
	}
	return n, nil
}

// incrementError maps the value errors of HINCRBY to sentinels. Anything
// else is a remote failure and yields nil.
func incrementError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not an integer"):
		return ErrNotInteger
	case strings.Contains(msg, "overflow"):
		return ErrOverflow
	}
	return nil
}

// Decrement is Increment by -delta; Redis has no HDECRBY.
func (s *HashStore) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return s.Increment(ctx, key, -delta)
}

func (s *HashStore) Forget(ctx context.Context, key string) (bool, error) {
	rdb, hk, err := s.target()
	if err != nil {
		return false, err
	}
	n, err := rdb.HDel(ctx, hk, key).Result()
	if err != nil {
		return false, s.fail("HDEL", hk, err)
	}
	return n > 0, nil
}

// Flush deletes the namespace hash. Flushing an absent namespace succeeds.
func (s *HashStore) Flush(ctx context.Context) (bool, error) {
	rdb, hk, err := s.target()
	if err != nil {
		return false, err
	}
	if err := rdb.Del(ctx, hk).Err(); err != nil {
		return false, s.fail("DEL", hk, err)
	}
	return true, nil
}

func (s *HashStore) GetAll(ctx context.Context) (map[string]any, error) {
	rdb, hk, err := s.target()
	if err != nil {
		return nil, err
	}
	all, err := rdb.HGetAll(ctx, hk).Result()
	if err != nil {
		return nil, s.fail("HGETALL", hk, err)
	}
	out := make(map[string]any, len(all))
	for f, raw := range all {
		v, err := s.decode(hk, f, []byte(raw))
		if err != nil {
			return nil, err
		}
		out[f] = v
	}
	return out, nil
}

// Keys lists the fields of the namespace, sorted.
func (s *HashStore) Keys(ctx context.Context) ([]string, error) {
	rdb, hk, err := s.target()
	if err != nil {
		return nil, err
	}
	keys, err := rdb.HKeys(ctx, hk).Result()
	if err != nil {
		return nil, s.fail("HKEYS", hk, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// TTL returns the remaining expiry of the namespace hash as reported by
// Redis: -1ns when it has none, -2ns when the namespace does not exist.
func (s *HashStore) TTL(ctx context.Context) (time.Duration, error) {
	rdb, hk, err := s.target()
	if err != nil {
		return 0, err
	}
	d, err := rdb.TTL(ctx, hk).Result()
	if err != nil {
		return 0, s.fail("TTL", hk, err)
	}
	return d, nil
}

// Namespaces scans for namespace hashes under the prefix whose namespace
// matches pattern (SCAN MATCH syntax, "" for all). Needs no bound namespace.
func (s *HashStore) Namespaces(ctx context.Context, pattern string) ([]string, error) {
	rdb, err := s.client()
	if err != nil {
		return nil, err
	}
	match := util.Pattern(s.prefix, pattern)
	var (
		out    []string
		cursor uint64
	)
	for {
		keys, next, err := rdb.ScanType(ctx, cursor, match, scanCount, "hash").Result()
		if err != nil {
			return nil, s.fail("SCAN", match, err)
		}
		for _, k := range keys {
			out = append(out, util.TrimPrefix(s.prefix, k))
		}
		if cursor = next; cursor == 0 {
			break
		}
	}
	sort.Strings(out)
	return out, nil
}

// Lock returns a lock named name within the bound namespace. ttl <= 0
// creates a lock that never expires; an empty owner gets a random token.
func (s *HashStore) Lock(name string, ttl time.Duration, owner string) *Lock {
	return newLock(s, name, ttl, owner)
}

// RestoreLock rebuilds a lock handle from a known owner token, e.g. to
// release a lock acquired by another process.
func (s *HashStore) RestoreLock(name, owner string) *Lock {
	return newLock(s, name, 0, owner)
}
