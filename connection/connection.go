package connection

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Provider resolves a connection name to a client. Implementations must be
// safe for concurrent use.
type Provider interface {
	Connection(name string) (redis.UniversalClient, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(name string) (redis.UniversalClient, error)

func (f ProviderFunc) Connection(name string) (redis.UniversalClient, error) { return f(name) }

// Single resolves every name to the same client.
func Single(client redis.UniversalClient) Provider {
	return ProviderFunc(func(string) (redis.UniversalClient, error) {
		if client == nil {
			return nil, ErrUnknownConnection
		}
		return client, nil
	})
}

// Registry is a Provider over a set of named clients.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]redis.UniversalClient
}

var _ Provider = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]redis.UniversalClient)}
}

// Register binds name to client, replacing any previous binding. The
// registry takes ownership: Close closes every registered client once.
func (r *Registry) Register(name string, client redis.UniversalClient) {
	r.mu.Lock()
	r.clients[name] = client
	r.mu.Unlock()
}

func (r *Registry) Connection(name string) (redis.UniversalClient, error) {
	r.mu.RLock()
	c, ok := r.clients[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, name)
	}
	return c, nil
}

// Names returns the registered connection names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.clients))
	for n := range r.clients {
		out = append(out, n)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Close closes every distinct registered client and empties the registry.
// A client registered under several names is closed once.
func (r *Registry) Close() error {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]redis.UniversalClient)
	r.mu.Unlock()

	seen := make(map[redis.UniversalClient]struct{}, len(clients))
	var errs []error
	for _, c := range clients {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if err := c.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
