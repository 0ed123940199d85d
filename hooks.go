package hashcache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; wrap slow sinks with
// hooks/async.
type Hooks interface {
	// A stored value could not be decoded. storageKey is the remote key,
	// field the hash field or entry key.
	DecodeError(storageKey, field string, err error)

	// PlainStore dropped an entry on read.
	// reason ∈ {"corrupt", "flushed"}
	SelfHeal(storageKey, reason string)

	// PutMany committed but some members were not stored with their expiry.
	PutManyPartial(namespace string, failed []string)

	// A call to the backing store failed. op is the command or step.
	ConnectionFailure(op string, err error)

	// A critical cache read found nothing.
	CriticalMiss(cache, key string)

	// Lock acquisition found the lock held by another owner.
	LockContended(name string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) DecodeError(string, string, error) {}
func (NopHooks) SelfHeal(string, string)           {}
func (NopHooks) PutManyPartial(string, []string)   {}
func (NopHooks) ConnectionFailure(string, error)   {}
func (NopHooks) CriticalMiss(string, string)       {}
func (NopHooks) LockContended(string)              {}
