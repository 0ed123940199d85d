package hashcache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes KEYS[1] only while it still holds the owner token.
var releaseScript = redis.NewScript(`
if redis.call('get', KEYS[1]) == ARGV[1] then
  return redis.call('del', KEYS[1])
end
return 0
`)

// Lock is a distributed mutual-exclusion lock on one Redis string key,
// "<prefix>:<namespace>#<name>". The value is the owner token, so only the
// owner can release it.
type Lock struct {
	store *HashStore
	name  string
	key   string
	ttl   time.Duration
	owner string
}

func newLock(s *HashStore, name string, ttl time.Duration, owner string) *Lock {
	if owner == "" {
		owner = uuid.NewString()
	}
	return &Lock{
		store: s,
		name:  name,
		key:   s.sideKey(name),
		ttl:   max(ttl, 0),
		owner: owner,
	}
}

func (l *Lock) Name() string  { return l.name }
func (l *Lock) Key() string   { return l.key }
func (l *Lock) Owner() string { return l.owner }

// Acquire makes one attempt to take the lock.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	rdb, err := l.store.sideClient()
	if err != nil {
		return false, err
	}
	var ttl time.Duration
	if l.ttl > 0 {
		ttl = wholeSeconds(l.ttl)
	}
	ok, err := rdb.SetNX(ctx, l.key, l.owner, ttl).Result()
	if err != nil {
		return false, l.store.fail("SETNX", l.key, err)
	}
	if !ok {
		l.store.hooks.LockContended(l.name)
		l.store.log.Debug("lock contended", Fields{"lock": l.name, "key": l.key})
	}
	return ok, nil
}

// Block retries Acquire until it succeeds, wait elapses (ErrLockTimeout) or
// ctx is done.
func (l *Lock) Block(ctx context.Context, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := l.Acquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrLockTimeout
		}
		t := time.NewTimer(min(l.store.lockRetry, remaining))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Release frees the lock if this owner still holds it.
func (l *Lock) Release(ctx context.Context) (bool, error) {
	rdb, err := l.store.sideClient()
	if err != nil {
		return false, err
	}
	n, err := releaseScript.Run(ctx, rdb, []string{l.key}, l.owner).Int()
	if err != nil {
		return false, l.store.fail("EVAL", l.key, err)
	}
	return n == 1, nil
}

// ForceRelease deletes the lock regardless of owner.
func (l *Lock) ForceRelease(ctx context.Context) error {
	rdb, err := l.store.sideClient()
	if err != nil {
		return err
	}
	if err := rdb.Del(ctx, l.key).Err(); err != nil {
		return l.store.fail("DEL", l.key, err)
	}
	return nil
}

// Held reports whether this owner currently holds the lock.
func (l *Lock) Held(ctx context.Context) (bool, error) {
	rdb, err := l.store.sideClient()
	if err != nil {
		return false, err
	}
	cur, err := rdb.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, l.store.fail("GET", l.key, err)
	}
	return cur == l.owner, nil
}

// Do runs fn while holding the lock and releases it afterwards. It returns
// ErrLockNotHeld without running fn if the lock is taken.
func (l *Lock) Do(ctx context.Context, fn func(context.Context) error) (err error) {
	ok, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockNotHeld
	}
	defer func() {
		if _, rerr := l.Release(context.WithoutCancel(ctx)); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn(ctx)
}
