// Package hashcache implements a namespaced cache on top of Redis hashes.
//
// Every logical cache lives in one namespace "<base>:<location>"; with a
// HashStore that namespace is a single Redis hash, so clearing a cache is a
// single DEL no matter how many entries it holds, and the cache can be
// enumerated with HGETALL.
//
// Components:
//   - Store: the cache contract. HashStore (Redis hashes) and PlainStore
//     (any provider.Provider, namespaces flushed by generation) implement it.
//   - codec.Codec[any]: value <-> bytes. codec.Numeric keeps numbers as
//     decimal text so counters work server-side.
//   - Namespaced / Critical: named caches bound to a namespace. Critical
//     caches are never bypassed and log an error on a miss.
//   - Lock: distributed lock with owner tokens on a plain Redis key.
//
// Keys (HashStore):
//
//	<prefix>:<base>:<location>          - namespace hash, one field per entry
//	<prefix>:<base>:<location>#<key>    - Add flags and locks
//
// "#" is reserved: prefixes and namespaces must not contain it, so a flag
// or lock can never share a key with a namespace hash.
//
// Usage:
//
//	store, _ := hashcache.NewHashStore(hashcache.HashOptions{
//	    Connections: connection.Single(rdb),
//	    Prefix:      "app",
//	})
//	users, _ := hashcache.NewNamespaced(hashcache.FacadeOptions{
//	    Store:    store,
//	    Location: "users",
//	})
//	_ = users.Put(ctx, "42", map[string]any{"name": "ada"}, time.Hour)
//	v, ok, err := users.Get(ctx, "42")
package hashcache
