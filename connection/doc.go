// Package connection resolves named connections to the Redis server that
// backs hashcache stores and locks.
//
// Stores never hold a client directly; they ask a Provider for a connection
// by name on every operation, the same way several logical caches can share
// one pool while a "hash" connection points at a dedicated database.
//
//	rdb, err := connection.Open(ctx, "redis://127.0.0.1:6379",
//	    connection.WithDB(2),
//	    connection.WithPoolSize(20),
//	)
//	if err != nil {
//	    return err
//	}
//	reg := connection.NewRegistry()
//	reg.Register("hash", rdb)
//	defer reg.Close()
//
// Open retries the initial PING with linear backoff; Healthcheck and Shutdown
// return closures suitable for health endpoints and shutdown hooks.
package connection
