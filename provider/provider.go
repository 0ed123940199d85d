// Package provider defines the byte store behind hashcache.PlainStore.
//
// A provider is a flat key space: there is no per-namespace structure to
// delete or enumerate, which is why PlainStore reports SupportsNamespaces()
// == false and flushes a namespace by bumping its generation instead.
//
// Implementations MUST be byte-for-byte transparent: Get returns exactly the
// bytes previously passed to Set. PlainStore frames every value with a magic
// header and treats anything else found under its keys as corruption.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs, safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL; ttl <= 0 means no expiry where the
	// backend supports it. May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Adder is implemented by providers that can create a key only when it is
// absent, atomically across every client of the backend. PlainStore.Add
// prefers it to its in-process mutex.
type Adder interface {
	// Add stores value only if key does not exist and reports whether it did.
	Add(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error)
}
