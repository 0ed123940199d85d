package hashcache

import (
	"context"
	"time"
)

// Store is the cache contract shared by HashStore and PlainStore.
//
// A Store is bound to a namespace with Within, which returns a scoped view
// and leaves the receiver untouched. Values are encoded by a codec.Codec[any];
// absent entries are reported with ok=false (or a nil map value from Many),
// never with an error. Remote failures surface as *ConnectionError.
type Store interface {
	Get(ctx context.Context, key string) (v any, ok bool, err error)
	// Many returns an entry for every requested key; nil means absent.
	Many(ctx context.Context, keys []string) (map[string]any, error)

	// Put stores value for ttl; ttl <= 0 behaves like Forever.
	// ok is false when the write or its expiry was not applied.
	Put(ctx context.Context, key string, value any, ttl time.Duration) (ok bool, err error)
	// PutMany stores every value; ok is the AND of the per-key outcomes.
	PutMany(ctx context.Context, values map[string]any, ttl time.Duration) (ok bool, err error)
	Forever(ctx context.Context, key string, value any) (ok bool, err error)

	// Add creates key only if it does not exist yet, atomically.
	Add(ctx context.Context, key string, value any, ttl time.Duration) (created bool, err error)
	// Flag reads back a key written by Add.
	Flag(ctx context.Context, key string) (v any, ok bool, err error)

	Increment(ctx context.Context, key string, delta int64) (int64, error)
	Decrement(ctx context.Context, key string, delta int64) (int64, error)

	// Forget reports whether an entry was actually removed.
	Forget(ctx context.Context, key string) (bool, error)
	// Flush drops the whole namespace. Idempotent.
	Flush(ctx context.Context) (bool, error)
	GetAll(ctx context.Context) (map[string]any, error)

	Within(namespace string) Store
	// SupportsNamespaces reports whether a namespace is one remote structure:
	// Flush is a single delete and GetAll can enumerate it.
	SupportsNamespaces() bool
}

// LockProvider is implemented by stores that can hand out distributed locks.
type LockProvider interface {
	Lock(name string, ttl time.Duration, owner string) *Lock
	RestoreLock(name, owner string) *Lock
}

// TTLPolicy selects how HashStore applies an entry's expiry.
type TTLPolicy int

const (
	// FieldTTL expires the single hash field with HEXPIRE (Redis >= 7.4).
	FieldTTL TTLPolicy = iota
	// NamespaceTTL expires the whole namespace hash with EXPIRE. Every Put
	// with a TTL resets the expiry of all entries in the namespace.
	NamespaceTTL
)

func (p TTLPolicy) String() string {
	switch p {
	case FieldTTL:
		return "field"
	case NamespaceTTL:
		return "namespace"
	default:
		return "unknown"
	}
}
