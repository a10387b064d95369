package memorystore

import (
	"context"
	"testing"
	"time"
)

func TestHashRoundtrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, ok, err := s.HGet(ctx, "h", "f"); err != nil || ok {
		t.Fatalf("HGet on empty hash: ok=%v err=%v, want ok=false", ok, err)
	}
	if err := s.HSet(ctx, "h", "f", "v1"); err != nil {
		t.Fatalf("HSet: %v", err)
	}
	v, ok, err := s.HGet(ctx, "h", "f")
	if err != nil || !ok || v != "v1" {
		t.Fatalf("HGet = %q, %v, %v, want v1, true, nil", v, ok, err)
	}
	if err := s.HDel(ctx, "h", "f"); err != nil {
		t.Fatalf("HDel: %v", err)
	}
	if _, ok, _ := s.HGet(ctx, "h", "f"); ok {
		t.Fatal("HGet after HDel still present")
	}
}

func TestHGetAllAndKeys(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.HSet(ctx, "h", "a", "1")
	_ = s.HSet(ctx, "h", "b", "2")

	all, err := s.HGetAll(ctx, "h")
	if err != nil || len(all) != 2 || all["a"] != "1" || all["b"] != "2" {
		t.Fatalf("HGetAll = %v, %v", all, err)
	}
	keys, err := s.HKeys(ctx, "h")
	if err != nil || len(keys) != 2 {
		t.Fatalf("HKeys = %v, %v", keys, err)
	}
}

func TestListOrderingAndTrim(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, v := range []string{"a", "b", "c", "d"} {
		_ = s.RPush(ctx, "l", v)
	}
	vs, err := s.LRange(ctx, "l", 0, -1)
	if err != nil || len(vs) != 4 || vs[0] != "a" || vs[3] != "d" {
		t.Fatalf("LRange = %v, %v", vs, err)
	}

	_ = s.LPush(ctx, "l", "z")
	vs, _ = s.LRange(ctx, "l", 0, -1)
	if vs[0] != "z" {
		t.Fatalf("LPush did not prepend: %v", vs)
	}

	if err := s.LTrim(ctx, "l", 0, 1); err != nil {
		t.Fatalf("LTrim: %v", err)
	}
	vs, _ = s.LRange(ctx, "l", 0, -1)
	if len(vs) != 2 || vs[0] != "z" || vs[1] != "a" {
		t.Fatalf("after LTrim(0,1) = %v, want [z a]", vs)
	}
}

func TestLRemFirstRemovesOnlyOneMatch(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.RPush(ctx, "l", "x")
	_ = s.RPush(ctx, "l", "x")
	_ = s.RPush(ctx, "l", "y")

	removed, err := s.LRemFirst(ctx, "l", "x")
	if err != nil || !removed {
		t.Fatalf("LRemFirst = %v, %v, want true, nil", removed, err)
	}
	vs, _ := s.LRange(ctx, "l", 0, -1)
	if len(vs) != 2 || vs[0] != "x" || vs[1] != "y" {
		t.Fatalf("after LRemFirst = %v, want [x y]", vs)
	}
}

func TestSetEXExpiry(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.SetEX(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("SetEX: %v", err)
	}
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("Get immediately after SetEX = %q, %v, %v", v, ok, err)
	}
	time.Sleep(20 * time.Millisecond)
	_, ok, _ = s.Get(ctx, "k")
	if ok {
		t.Fatal("key still present after TTL expired")
	}
}

func TestScanKeysPrefixPattern(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.SetEX(ctx, "project:p1:heartbeat:a", "x", time.Minute)
	_ = s.SetEX(ctx, "project:p2:heartbeat:b", "x", time.Minute)
	_ = s.HSet(ctx, "project:p1:agents", "a", "{}")

	keys, err := s.ScanKeys(ctx, "project:*:heartbeat:*")
	if err != nil {
		t.Fatalf("ScanKeys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("ScanKeys matched %v, want 2 heartbeat keys", keys)
	}
}

func TestCompareAndSetHashField(t *testing.T) {
	s := New()
	ctx := context.Background()

	won, cur, err := s.CompareAndSetHashField(ctx, "locks", "f.go", "sess-a", "", false)
	if err != nil || !won || cur != "sess-a" {
		t.Fatalf("first CAS = %v, %q, %v, want true, sess-a, nil", won, cur, err)
	}

	won, cur, err = s.CompareAndSetHashField(ctx, "locks", "f.go", "sess-b", "sess-a", true)
	if err != nil || !won || cur != "sess-b" {
		t.Fatalf("re-entrant CAS = %v, %q, %v, want true, sess-b, nil", won, cur, err)
	}

	won, cur, err = s.CompareAndSetHashField(ctx, "locks", "f.go", "sess-c", "sess-a", true)
	if err != nil || won || cur != "sess-b" {
		t.Fatalf("conflicting CAS = %v, %q, %v, want false, sess-b, nil", won, cur, err)
	}
}

func TestDeleteRemovesAllTypes(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.HSet(ctx, "k", "f", "v")
	_ = s.RPush(ctx, "k", "v")
	_ = s.SetEX(ctx, "k", "v", time.Minute)

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.HGet(ctx, "k", "f"); ok {
		t.Fatal("hash survived Delete")
	}
	if n, _ := s.LLen(ctx, "k"); n != 0 {
		t.Fatal("list survived Delete")
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("string survived Delete")
	}
}
