// Package redisstore is the production Store backend: a thin adapter over
// go-redis/v9. Every operation maps to a single Redis command or a small
// Lua script where atomicity across a read-then-write can't otherwise be
// guaranteed (CompareAndSetHashField).
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/splitmind/broker/internal/store"
)

// Store adapts a *redis.Client to the broker's Store interface.
type Store struct {
	rdb *redis.Client
}

// New connects to the Redis server at url (e.g. "redis://localhost:6379/0").
func New(url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	return &Store{rdb: rdb}, nil
}

var _ store.Store = (*Store)(nil)

// transientErr marks a go-redis error as worth retrying: anything other
// than redis.Nil (a legitimate "not found" that callers handle directly).
type transientErr struct{ err error }

func (t transientErr) Error() string  { return t.err.Error() }
func (t transientErr) Unwrap() error  { return t.err }
func (t transientErr) Transient() bool { return true }

func wrap(err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return nil
	}
	return transientErr{err: err}
}

func (s *Store) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.rdb.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap(err)
	}
	return v, true, nil
}

func (s *Store) HSet(ctx context.Context, key, field, value string) error {
	return wrap(s.rdb.HSet(ctx, key, field, value).Err())
}

func (s *Store) HDel(ctx context.Context, key, field string) error {
	return wrap(s.rdb.HDel(ctx, key, field).Err())
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrap(err)
	}
	return m, nil
}

func (s *Store) HKeys(ctx context.Context, key string) ([]string, error) {
	ks, err := s.rdb.HKeys(ctx, key).Result()
	if err != nil {
		return nil, wrap(err)
	}
	return ks, nil
}

func (s *Store) HExists(ctx context.Context, key, field string) (bool, error) {
	ok, err := s.rdb.HExists(ctx, key, field).Result()
	if err != nil {
		return false, wrap(err)
	}
	return ok, nil
}

func (s *Store) RPush(ctx context.Context, key, value string) error {
	return wrap(s.rdb.RPush(ctx, key, value).Err())
}

func (s *Store) LPush(ctx context.Context, key, value string) error {
	return wrap(s.rdb.LPush(ctx, key, value).Err())
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	vs, err := s.rdb.LRange(ctx, key, int64(start), int64(stop)).Result()
	if err != nil {
		return nil, wrap(err)
	}
	return vs, nil
}

func (s *Store) LTrim(ctx context.Context, key string, start, stop int) error {
	return wrap(s.rdb.LTrim(ctx, key, int64(start), int64(stop)).Err())
}

func (s *Store) LLen(ctx context.Context, key string) (int, error) {
	n, err := s.rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, wrap(err)
	}
	return int(n), nil
}

func (s *Store) LSet(ctx context.Context, key string, index int, value string) error {
	err := s.rdb.LSet(ctx, key, int64(index), value).Err()
	// Redis errors on an out-of-range index; the memorystore backend
	// silently no-ops instead, so normalize that here for parity.
	if err != nil && errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil && isIndexOutOfRange(err) {
		return nil
	}
	return wrap(err)
}

func isIndexOutOfRange(err error) bool {
	const msg = "index out of range"
	s := err.Error()
	return len(s) >= len(msg) && (s[len(s)-len(msg):] == msg)
}

// lremFirstScript removes at most the first occurrence of value, scanning
// head to tail (Redis's native LREM count=1 already does this; wrapped here
// purely so the bool-returning signature can report whether it fired).
var lremFirstScript = redis.NewScript(`
local n = redis.call("LREM", KEYS[1], 1, ARGV[1])
return n
`)

func (s *Store) LRemFirst(ctx context.Context, key, value string) (bool, error) {
	n, err := lremFirstScript.Run(ctx, s.rdb, []string{key}, value).Int()
	if err != nil {
		return false, wrap(err)
	}
	return n > 0, nil
}

func (s *Store) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	return wrap(s.rdb.Set(ctx, key, value, ttl).Err())
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap(err)
	}
	return v, true, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return wrap(s.rdb.Del(ctx, key).Err())
}

func (s *Store) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

// casScript implements CompareAndSetHashField atomically: if the field is
// absent, or present and equal to the expected value (when expectOK=1), set
// it to the new value. Returns {won, current}.
var casScript = redis.NewScript(`
local current = redis.call("HGET", KEYS[1], ARGV[1])
local expectOK = ARGV[3]
if current and expectOK == "1" and current ~= ARGV[2] then
  return {0, current}
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[4])
return {1, ARGV[4]}
`)

func (s *Store) CompareAndSetHashField(ctx context.Context, key, field, newValue, expectIfPresent string, expectIfPresentOK bool) (bool, string, error) {
	expectOK := "0"
	if expectIfPresentOK {
		expectOK = "1"
	}
	res, err := casScript.Run(ctx, s.rdb, []string{key}, field, expectIfPresent, expectOK, newValue).Slice()
	if err != nil {
		return false, "", wrap(err)
	}
	won := res[0].(int64) == 1
	current, _ := res[1].(string)
	return won, current, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
