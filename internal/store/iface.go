// Package store defines the abstract KV-store capability the broker's
// coordination handlers are built on: atomic hash/list/string operations,
// prefix scans, and TTLs. Implementations: redisstore (production),
// sqlitestore (durable single-box/dev), memorystore (tests, zero-config
// default).
package store

import (
	"context"
	"time"
)

// Store is the persistence interface the coordination handlers depend on.
// All methods must behave as if atomic from the caller's viewpoint; a Store
// backed by a real network service (Redis) may additionally need retrying,
// which callers get for free via WithRetry.
type Store interface {
	// Hash operations (agent registry, locks, interfaces, completion records).
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HSet(ctx context.Context, key, field, value string) error
	HDel(ctx context.Context, key, field string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HKeys(ctx context.Context, key string) ([]string, error)
	HExists(ctx context.Context, key, field string) (bool, error)

	// List operations (todos, message queues, recent-changes log).
	// RPush appends; LPush prepends (used for newest-first logs).
	RPush(ctx context.Context, key string, value string) error
	LPush(ctx context.Context, key string, value string) error
	LRange(ctx context.Context, key string, start, stop int) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int) error
	LLen(ctx context.Context, key string) (int, error)
	LSet(ctx context.Context, key string, index int, value string) error
	LRemFirst(ctx context.Context, key string, value string) (bool, error)

	// String operations with TTL (heartbeats).
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)

	// Delete removes a key outright (any type).
	Delete(ctx context.Context, key string) error

	// ScanKeys returns all keys matching a glob-style prefix pattern
	// (e.g. "project:*:heartbeat:*"), used by cleanup and the liveness monitor.
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	// CompareAndSetHashField sets field to newValue only if the field is
	// currently absent, or currently equal to expectIfPresent (when
	// expectIfPresentOK is true). Returns the value that ended up stored and
	// whether the caller's write won.
	CompareAndSetHashField(ctx context.Context, key, field, newValue string, expectIfPresent string, expectIfPresentOK bool) (won bool, current string, err error)

	// Close releases any underlying resources (connections, file handles).
	Close() error
}
