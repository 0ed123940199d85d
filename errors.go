package hashcache

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/hashcache/internal/util"
)

var (
	ErrNamespaceRequired   = errors.New("hashcache: namespace is required")
	ErrInvalidNamespace    = errors.New("hashcache: namespace and prefix must not contain " + util.SideSep)
	ErrNilValue            = errors.New("hashcache: nil values cannot be cached")
	ErrNotInteger          = errors.New("hashcache: value is not an integer")
	ErrOverflow            = errors.New("hashcache: increment would overflow")
	ErrNotStored           = errors.New("hashcache: value was not stored")
	ErrUnsupported         = errors.New("hashcache: operation not supported by this store")
	ErrFieldTTLUnsupported = errors.New("hashcache: server has no per-field expiry (HEXPIRE needs Redis 7.4+)")
	ErrLockNotHeld         = errors.New("hashcache: lock not held")
	ErrLockTimeout         = errors.New("hashcache: timed out waiting for lock")
)

// ConnectionError reports a remote call that could not complete: network
// failure, timeout, cancelled context or an error reply. It is never turned
// into a cache miss.
type ConnectionError struct {
	Op  string // command or step, e.g. "HGET", "MULTI", "connection"
	Key string // remote key involved, if any
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("hashcache: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("hashcache: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SerializationError reports a value that could not be encoded, or a stored
// value that could not be decoded (corruption or codec mismatch).
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("hashcache: value for %q: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
