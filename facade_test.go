package hashcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/hashcache/provider/gocache"
)

func newFacade(t *testing.T, opts FacadeOptions) *Namespaced {
	t.Helper()
	n, err := NewNamespaced(opts)
	require.NoError(t, err)
	return n
}

func TestNamespacedRequiresStoreAndLocation(t *testing.T) {
	_, err := NewNamespaced(FacadeOptions{Location: "users"})
	require.Error(t, err)

	_, rdb := newRedis(t)
	_, err = NewNamespaced(FacadeOptions{Store: newHashStore(t, rdb, HashOptions{})})
	require.Error(t, err)
}

func TestNamespacedComposesNamespace(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	store := newHashStore(t, rdb, HashOptions{Prefix: "app", TTLPolicy: NamespaceTTL})

	users := newFacade(t, FacadeOptions{Store: store, Location: "users"})
	require.Equal(t, "general:users", users.Namespace())
	require.Equal(t, "users", users.Name())
	require.True(t, users.Enabled())

	reports := newFacade(t, FacadeOptions{Store: store, Location: "daily", BaseLocation: "reports", Name: "daily-reports"})
	require.Equal(t, "reports:daily", reports.Namespace())
	require.Equal(t, "daily-reports", reports.Name())

	require.NoError(t, users.Put(ctx, "k", "v", 0))
	require.Equal(t, `"v"`, mr.HGet("app:general:users", "k"))
	require.Zero(t, mr.TTL("app:general:users"))

	require.NoError(t, reports.Put(ctx, "k", "v", time.Minute))
	require.Equal(t, time.Minute, mr.TTL("app:reports:daily"))
}

func TestDisabledReadBypass(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	log := &recLogger{}
	users := newFacade(t, FacadeOptions{
		Store:    newHashStore(t, rdb, HashOptions{TTLPolicy: NamespaceTTL}),
		Location: "users",
		Bypass:   true,
		Logger:   log,
	})
	require.False(t, users.Enabled())

	require.NoError(t, users.Put(ctx, "x", 1, time.Minute))
	require.True(t, mr.Exists("general:users"), "writes are not bypassed")

	_, ok, err := users.Get(ctx, "x")
	require.NoError(t, err)
	require.False(t, ok)

	many, err := users.Many(ctx, []string{"x", "y"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"x": nil, "y": nil}, many)
	require.NotEmpty(t, log.at("debug"))
}

func TestNamespacedOperations(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	log := &recLogger{}
	users := newFacade(t, FacadeOptions{
		Store:    newHashStore(t, rdb, HashOptions{Prefix: "app"}),
		Location: "users",
		Logger:   log,
	})

	require.NoError(t, users.SetMultiples(ctx, map[string]any{"a": 1, "b": "two"}, 0))
	all, err := users.All(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": int64(1), "b": "two"}, all)

	n, err := users.Increment(ctx, "a", 4)
	require.NoError(t, err)
	require.Equal(t, int64(5), n)
	n, err = users.Decrement(ctx, "a", 1)
	require.NoError(t, err)
	require.Equal(t, int64(4), n)

	require.NoError(t, users.Delete(ctx, "b"))
	_, ok, err := users.Get(ctx, "b")
	require.NoError(t, err)
	require.False(t, ok)

	created, err := users.Add(ctx, "flag", true, time.Minute)
	require.NoError(t, err)
	require.True(t, created)

	ok, err = users.Clear(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	all, err = users.All(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	infos := log.at("info")
	require.Len(t, infos, 1)
	require.Equal(t, "delete", infos[0].fields["mode"])
}

func TestRemember(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	users := newFacade(t, FacadeOptions{Store: newHashStore(t, rdb, HashOptions{TTLPolicy: NamespaceTTL}), Location: "users"})

	calls := 0
	build := func(context.Context) (any, error) {
		calls++
		return "built", nil
	}
	for i := 0; i < 3; i++ {
		v, err := users.Remember(ctx, "k", time.Minute, build)
		require.NoError(t, err)
		require.Equal(t, "built", v)
	}
	require.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err := users.Remember(ctx, "other", time.Minute, func(context.Context) (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	_, ok, err := users.Get(ctx, "other")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRememberSharesConcurrentBuilds(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	users := newFacade(t, FacadeOptions{Store: newHashStore(t, rdb, HashOptions{TTLPolicy: NamespaceTTL}), Location: "users"})

	var calls atomic.Int32
	release := make(chan struct{})
	build := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "built", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := users.Remember(ctx, "k", time.Minute, build)
			if err == nil {
				results[i] = v
			}
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		require.Equal(t, "built", v)
	}
}

func TestNamespacedLock(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	jobs := newFacade(t, FacadeOptions{Store: newHashStore(t, rdb, HashOptions{Prefix: "app"}), Location: "jobs"})

	l, err := jobs.Lock("import", time.Minute, "me")
	require.NoError(t, err)
	require.Equal(t, "app:general:jobs#import", l.Key())
	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	restored, err := jobs.RestoreLock("import", "me")
	require.NoError(t, err)
	released, err := restored.Release(ctx)
	require.NoError(t, err)
	require.True(t, released)
}

func TestNamespacedOverPlainStore(t *testing.T) {
	ctx := context.Background()
	log := &recLogger{}
	store, _ := newPlainStore(t, rejecting{Provider: gocache.New(gocache.Config{}), reject: []string{":huge"}})
	users := newFacade(t, FacadeOptions{Store: store, Location: "users", Logger: log})

	require.NoError(t, users.Put(ctx, "k", "v", time.Minute))
	v, ok, err := users.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	require.ErrorIs(t, users.Put(ctx, "huge", "v", time.Minute), ErrNotStored)
	require.ErrorIs(t, users.SetMultiples(ctx, map[string]any{"huge": 1, "ok": 2}, 0), ErrNotStored)

	_, err = users.All(ctx)
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = users.Lock("import", time.Minute, "")
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = users.Clear(ctx)
	require.NoError(t, err)
	_, ok, err = users.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "generation", log.at("info")[0].fields["mode"])
}

func TestCriticalMissIsLogged(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	log := &recLogger{}
	hooks := &recHooks{}
	settings, err := NewCritical(FacadeOptions{
		Store:    newHashStore(t, rdb, HashOptions{Prefix: "app"}),
		Location: "settings",
		Bypass:   true,
		Logger:   log,
		Hooks:    hooks,
	})
	require.NoError(t, err)
	require.Equal(t, "critical:settings", settings.Namespace())
	require.True(t, settings.Enabled(), "critical caches ignore bypass")

	_, ok, err := settings.Get(ctx, "flags")
	require.NoError(t, err)
	require.False(t, ok)

	errs := log.at("error")
	require.Len(t, errs, 1)
	require.Equal(t, "critical cache has not been built", errs[0].msg)
	require.Equal(t, Fields{"cache": "settings", "key": "flags", "namespace": "critical:settings"}, errs[0].fields)
	require.Equal(t, []string{"settings:flags"}, hooks.critical)

	require.NoError(t, settings.Put(ctx, "flags", map[string]any{"beta": true}, 0))
	v, ok, err := settings.Get(ctx, "flags")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, map[string]any{"beta": true}, v)
	require.Len(t, log.at("error"), 1)
}

func TestCriticalManyAndRememberReportMisses(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	log := &recLogger{}
	hooks := &recHooks{}
	settings, err := NewCritical(FacadeOptions{
		Store:    newHashStore(t, rdb, HashOptions{Prefix: "app"}),
		Location: "settings",
		Logger:   log,
		Hooks:    hooks,
	})
	require.NoError(t, err)
	require.NoError(t, settings.Put(ctx, "flags", "on", 0))

	got, err := settings.Many(ctx, []string{"flags", "limits", "routes"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"flags": "on", "limits": nil, "routes": nil}, got)
	require.Equal(t, []string{"settings:limits", "settings:routes"}, hooks.critical)
	require.Len(t, log.at("error"), 2)

	v, err := settings.Remember(ctx, "theme", 0, func(context.Context) (any, error) { return "dark", nil })
	require.NoError(t, err)
	require.Equal(t, "dark", v)
	require.Equal(t, []string{"settings:limits", "settings:routes", "settings:theme"}, hooks.critical)

	v, err = settings.Remember(ctx, "theme", 0, func(context.Context) (any, error) { return "light", nil })
	require.NoError(t, err)
	require.Equal(t, "dark", v)
	require.Len(t, log.at("error"), 3, "a hit is not reported")
}

func TestCriticalErrorIsNotAMiss(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	log := &recLogger{}
	settings, err := NewCritical(FacadeOptions{
		Store:    newHashStore(t, rdb, HashOptions{}),
		Location: "settings",
		Logger:   log,
	})
	require.NoError(t, err)

	mr.SetError("ERR unavailable")
	_, _, err = settings.Get(ctx, "flags")
	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	require.Empty(t, log.at("error"))
}
