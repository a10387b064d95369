// Package memorystore is an in-process Store implementation: a mutex-guarded
// map of hashes, lists, and TTL'd strings. It is the broker's zero-config
// default and the backend the internal/app and internal/tools/broker tests
// run against.
package memorystore

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/splitmind/broker/internal/store"
)

type stringEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Store is an in-memory Store. The zero value is not usable; use New.
type Store struct {
	mu      sync.Mutex
	hashes  map[string]map[string]string
	lists   map[string][]string
	strings map[string]stringEntry
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		hashes:  make(map[string]map[string]string),
		lists:   make(map[string][]string),
		strings: make(map[string]stringEntry),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) HGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		return "", false, nil
	}
	v, ok := h[field]
	return v, ok, nil
}

func (s *Store) HSet(_ context.Context, key, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string)
		s.hashes[key] = h
	}
	h[field] = value
	return nil
}

func (s *Store) HDel(_ context.Context, key, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.hashes[key]; ok {
		delete(h, field)
		if len(h) == 0 {
			delete(s.hashes, key)
		}
	}
	return nil
}

func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) HKeys(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.hashes[key] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) HExists(_ context.Context, key, field string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		return false, nil
	}
	_, ok = h[field]
	return ok, nil
}

func (s *Store) RPush(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], value)
	return nil
}

func (s *Store) LPush(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append([]string{value}, s.lists[key]...)
	return nil
}

// normRange converts Redis-style (possibly negative, inclusive) indices to
// Go slice bounds [lo, hi) clamped to [0, n].
func normRange(n, start, stop int) (lo, hi int) {
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return 0, 0
	}
	return start, stop + 1
}

func (s *Store) LRange(_ context.Context, key string, start, stop int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	lo, hi := normRange(len(l), start, stop)
	out := make([]string, hi-lo)
	copy(out, l[lo:hi])
	return out, nil
}

func (s *Store) LTrim(_ context.Context, key string, start, stop int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	lo, hi := normRange(len(l), start, stop)
	trimmed := make([]string, hi-lo)
	copy(trimmed, l[lo:hi])
	if len(trimmed) == 0 {
		delete(s.lists, key)
	} else {
		s.lists[key] = trimmed
	}
	return nil
}

func (s *Store) LLen(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists[key]), nil
}

func (s *Store) LSet(_ context.Context, key string, index int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	if index < 0 {
		index = len(l) + index
	}
	if index < 0 || index >= len(l) {
		return nil
	}
	l[index] = value
	return nil
}

// LRemFirst removes the first occurrence of value from the list, scanning
// head to tail. Reports whether an element was removed.
func (s *Store) LRemFirst(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	for i, v := range l {
		if v == value {
			s.lists[key] = append(l[:i], l[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SetEX(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.strings[key] = stringEntry{value: value, expiresAt: exp}
	return nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.strings[key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(s.strings, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, key)
	delete(s.lists, key)
	delete(s.strings, key)
	return nil
}

func (s *Store) ScanKeys(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	add := func(k string) {
		if ok, _ := filepath.Match(pattern, k); ok {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				out = append(out, k)
			}
		}
	}
	for k := range s.hashes {
		add(k)
	}
	for k := range s.lists {
		add(k)
	}
	for k, e := range s.strings {
		if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
			continue
		}
		add(k)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) CompareAndSetHashField(_ context.Context, key, field, newValue, expectIfPresent string, expectIfPresentOK bool) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string)
		s.hashes[key] = h
	}
	current, present := h[field]
	if present && expectIfPresentOK && current != expectIfPresent {
		return false, current, nil
	}
	h[field] = newValue
	return true, newValue, nil
}

func (s *Store) Close() error { return nil }
