package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/splitmind/broker/internal/gateway"
	"github.com/splitmind/broker/internal/policy"
	"github.com/splitmind/broker/internal/store/memorystore"
)

func TestMarkTaskCompletedFlipsStatusAndWritesStatusFile(t *testing.T) {
	statusDir := t.TempDir()
	cfg := policy.DefaultConfig()
	cfg.HeartbeatTimeoutSeconds = 90
	cfg.StatusDir = statusDir
	gw := gateway.New(memorystore.New(), 50, 100)
	s := NewService(gw, policy.New(cfg), nil)

	ctx := context.Background()
	if _, err := s.RegisterAgent(ctx, RegisterAgentParams{ProjectID: "p1", SessionName: "alice", TaskID: "T1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	status, err := s.MarkTaskCompleted(ctx, MarkTaskCompletedParams{ProjectID: "p1", SessionName: "alice", TaskID: "T1"})
	if err != nil || status != "completed" {
		t.Fatalf("mark_task_completed = %q, %v, want completed", status, err)
	}

	agentRaw, ok, err := gw.Store.HGet(ctx, gateway.AgentsKey("p1"), "alice")
	if err != nil || !ok {
		t.Fatalf("agent lookup: %v, %v", ok, err)
	}
	if want := `"status":"completed"`; !contains(agentRaw, want) {
		t.Fatalf("agent record = %s, want it to contain %s", agentRaw, want)
	}

	path := filepath.Join(statusDir, "alice.status")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read status file: %v", err)
	}
	if !contains(string(data), "task_id=T1") {
		t.Fatalf("status file = %s, want it to contain task_id=T1", data)
	}
}

func TestMarkTaskCompletedUnknownAgentStillRecordsCompletion(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	status, err := s.MarkTaskCompleted(ctx, MarkTaskCompletedParams{ProjectID: "p1", SessionName: "nobody", TaskID: "T9"})
	if err != nil || status != "completed" {
		t.Fatalf("mark_task_completed for unregistered session = %q, %v, want completed, nil", status, err)
	}

	raw, ok, err := s.GW.Store.HGet(ctx, gateway.CompletionsKey("p1"), "nobody")
	if err != nil || !ok {
		t.Fatalf("completion record not stored: %v, %v", ok, err)
	}
	if !contains(raw, "T9") {
		t.Fatalf("completion record = %s, want it to contain T9", raw)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
