package app

import (
	"context"
	"testing"
)

func TestAnnounceFileChangeLockingAndReentrance(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	res, err := s.AnnounceFileChange(ctx, AnnounceFileChangeParams{ProjectID: "p1", SessionName: "alice", FilePath: "a.go", ChangeType: "edit"})
	if err != nil || res.Status != "locked" {
		t.Fatalf("first announce = %+v, %v, want locked", res, err)
	}

	res, err = s.AnnounceFileChange(ctx, AnnounceFileChangeParams{ProjectID: "p1", SessionName: "alice", FilePath: "a.go", ChangeType: "edit"})
	if err != nil || res.Status != "locked" {
		t.Fatalf("re-entrant announce by same owner = %+v, %v, want locked", res, err)
	}

	res, err = s.AnnounceFileChange(ctx, AnnounceFileChangeParams{ProjectID: "p1", SessionName: "bob", FilePath: "a.go", ChangeType: "edit"})
	if err != nil {
		t.Fatalf("conflicting announce errored: %v", err)
	}
	if res.Status != "conflict" || res.LockInfo == nil || res.LockInfo.SessionName != "alice" || res.Suggestion == "" {
		t.Fatalf("conflicting announce = %+v, want conflict with lock_info held by alice and a suggestion", res)
	}
}

func TestReleaseFileLockOwnershipCheck(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.AnnounceFileChange(ctx, AnnounceFileChangeParams{ProjectID: "p1", SessionName: "alice", FilePath: "a.go"}); err != nil {
		t.Fatalf("announce: %v", err)
	}

	if _, err := s.ReleaseFileLock(ctx, ReleaseFileLockParams{ProjectID: "p1", SessionName: "bob", FilePath: "a.go"}); err == nil {
		t.Fatal("bob should not be able to release alice's lock")
	}

	status, err := s.ReleaseFileLock(ctx, ReleaseFileLockParams{ProjectID: "p1", SessionName: "alice", FilePath: "a.go"})
	if err != nil || status != "released" {
		t.Fatalf("release by owner = %q, %v, want released", status, err)
	}

	if res, err := s.AnnounceFileChange(ctx, AnnounceFileChangeParams{ProjectID: "p1", SessionName: "bob", FilePath: "a.go"}); err != nil || res.Status != "locked" {
		t.Fatalf("bob should be able to lock a.go after release: %+v, %v", res, err)
	}
}

func TestGetRecentChangesNewestFirstAndCapped(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	s.GW.RecentChangesCap = 2

	for _, f := range []string{"a.go", "b.go", "c.go"} {
		if _, err := s.AnnounceFileChange(ctx, AnnounceFileChangeParams{ProjectID: "p1", SessionName: "alice", FilePath: f}); err != nil {
			t.Fatalf("announce %s: %v", f, err)
		}
	}

	changes, err := s.GetRecentChanges(ctx, "p1", 0)
	if err != nil {
		t.Fatalf("get_recent_changes: %v", err)
	}
	if len(changes.Changes) != 2 {
		t.Fatalf("got %d changes, want capped to 2", len(changes.Changes))
	}
	if changes.Changes[0].FilePath != "c.go" {
		t.Fatalf("newest-first order wrong: %v", changes.Changes)
	}
}
