// Package redis implements store.Store against a remote Redis server.
// Workflows and steps are stored as Hashes, step order is kept in a
// per-workflow Sorted Set scored by position, and a global Sorted Set
// scored by update time serves exact time-ordered list pages.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis
