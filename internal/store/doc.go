// Package store is the Named Query Registry: SQLite-backed durable storage
// of named queries and per-execution statistics.
//
// Two tables, one per entity:
//   - NamedQuery: keyed by query_id (the canonical QueryName string form)
//   - QueryStats: keyed by stats_id, append-only
//
// # Guarantees
//
//   - Add is an upsert on query_id; a Lookup after a completed Add observes
//     the new row from any goroutine.
//   - StoreStats persists a batch in one transaction; each stat is atomic.
//   - Search results are ordered exact match first, then (domain, namespace,
//     name) in binary collation.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - A single open connection serializes all operations
package store
