package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/splitmind/broker/internal/domain"
	"github.com/splitmind/broker/internal/gateway"
)

// lockMetaKey holds the FileLock metadata (timestamp, change type,
// description) alongside the CAS-able owner hash at LocksKey. Kept separate
// because CompareAndSetHashField compares the owner field by exact value —
// the lock's owner must be the only thing that field ever holds.
func lockMetaKey(projectID string) string {
	return gateway.LocksKey(projectID) + ":meta"
}

// AnnounceFileChangeParams is the announce_file_change tool's input.
type AnnounceFileChangeParams struct {
	ProjectID   string
	SessionName string
	FilePath    string
	ChangeType  string
	Description string
}

// AnnounceFileChangeResult is announce_file_change's output. On a conflict,
// LockInfo and Suggestion are populated instead; Status discriminates.
type AnnounceFileChangeResult struct {
	Status     string           `json:"status"`
	LockInfo   *domain.FileLock `json:"lock_info,omitempty"`
	Suggestion string           `json:"suggestion,omitempty"`
}

// AnnounceFileChange acquires an advisory lock on FilePath via
// CompareAndSetHashField: the owner field only ever holds the current
// owner's session name, so passing expectIfPresent=SessionName wins when
// the file is unlocked, wins again for the same owner re-announcing
// (re-entrant), and loses when a different session holds it. A conflict
// never touches the recent-changes log or lock metadata — the call leaves
// state exactly as it found it.
func (s *Service) AnnounceFileChange(ctx context.Context, p AnnounceFileChangeParams) (*AnnounceFileChangeResult, error) {
	ownersKey := gateway.LocksKey(p.ProjectID)
	won, current, err := s.GW.Store.CompareAndSetHashField(ctx, ownersKey, p.FilePath, p.SessionName, p.SessionName, true)
	if err != nil {
		return nil, NewError(StatusStoreUnavailable, "announce_file_change: %v", err)
	}

	if !won {
		holder := domain.FileLock{SessionName: current}
		if raw, ok, err := s.GW.Store.HGet(ctx, lockMetaKey(p.ProjectID), p.FilePath); err == nil && ok {
			_ = json.Unmarshal([]byte(raw), &holder)
			holder.SessionName = current
		}
		return &AnnounceFileChangeResult{
			Status:     "conflict",
			LockInfo:   &holder,
			Suggestion: fmt.Sprintf("ask %s to release_file_lock on %q, or coordinate via query_agent", current, p.FilePath),
		}, nil
	}

	s.logChange(ctx, p.ProjectID, domain.ChangeEntry{
		SessionName: p.SessionName,
		FilePath:    p.FilePath,
		ChangeType:  p.ChangeType,
		Description: p.Description,
		Timestamp:   time.Now(),
	})

	lock := domain.FileLock{
		SessionName: p.SessionName,
		LockedAt:    time.Now(),
		ChangeType:  p.ChangeType,
		Description: p.Description,
	}
	raw, err := json.Marshal(lock)
	if err == nil {
		_ = s.GW.Store.HSet(ctx, lockMetaKey(p.ProjectID), p.FilePath, string(raw))
	}

	return &AnnounceFileChangeResult{Status: "locked"}, nil
}

// ReleaseFileLockParams is the release_file_lock tool's input.
type ReleaseFileLockParams struct {
	ProjectID   string
	SessionName string
	FilePath    string
}

// ReleaseFileLock releases the lock on FilePath if held by SessionName.
func (s *Service) ReleaseFileLock(ctx context.Context, p ReleaseFileLockParams) (string, error) {
	ownersKey := gateway.LocksKey(p.ProjectID)
	owner, present, err := s.GW.Store.HGet(ctx, ownersKey, p.FilePath)
	if err != nil {
		return "", NewError(StatusStoreUnavailable, "release_file_lock: %v", err)
	}
	if !present {
		return "not_locked", nil
	}
	if owner != p.SessionName {
		return "", NewError(StatusConflict, "file %q is locked by %q, not %q", p.FilePath, owner, p.SessionName)
	}
	if err := s.GW.Store.HDel(ctx, ownersKey, p.FilePath); err != nil {
		return "", NewError(StatusStoreUnavailable, "release_file_lock: %v", err)
	}
	_ = s.GW.Store.HDel(ctx, lockMetaKey(p.ProjectID), p.FilePath)
	return "released", nil
}

// GetRecentChangesResult is get_recent_changes' output.
type GetRecentChangesResult struct {
	Status  string               `json:"status"`
	Changes []domain.ChangeEntry `json:"changes"`
}

// GetRecentChanges returns the project's change log, newest first.
func (s *Service) GetRecentChanges(ctx context.Context, projectID string, limit int) (*GetRecentChangesResult, error) {
	if limit <= 0 {
		limit = s.GW.RecentChangesCap
	}
	raws, err := s.GW.Store.LRange(ctx, gateway.RecentChangesKey(projectID), 0, limit-1)
	if err != nil {
		return nil, NewError(StatusStoreUnavailable, "get_recent_changes: %v", err)
	}
	out := make([]domain.ChangeEntry, 0, len(raws))
	for _, raw := range raws {
		var c domain.ChangeEntry
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return &GetRecentChangesResult{Status: "ok", Changes: out}, nil
}

// logChange prepends entry to the project's capped recent-changes log
// (newest-first, per the original implementation's lpush+ltrim pattern).
func (s *Service) logChange(ctx context.Context, projectID string, entry domain.ChangeEntry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_ = s.GW.PushCapped(ctx, gateway.RecentChangesKey(projectID), string(raw))
}

// releaseLocksHeldBy releases every lock owned by sessionName, used by the
// reap path when an agent dies or unregisters.
func (s *Service) releaseLocksHeldBy(ctx context.Context, projectID, sessionName string) {
	ownersKey := gateway.LocksKey(projectID)
	fields, err := s.GW.Store.HKeys(ctx, ownersKey)
	if err != nil {
		return
	}
	for _, f := range fields {
		owner, present, err := s.GW.Store.HGet(ctx, ownersKey, f)
		if err != nil || !present || owner != sessionName {
			continue
		}
		_ = s.GW.Store.HDel(ctx, ownersKey, f)
		_ = s.GW.Store.HDel(ctx, lockMetaKey(projectID), f)
	}
}
