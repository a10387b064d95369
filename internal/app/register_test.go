package app

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/splitmind/broker/internal/gateway"
	"github.com/splitmind/broker/internal/policy"
	"github.com/splitmind/broker/internal/store/memorystore"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := policy.DefaultConfig()
	cfg.HeartbeatTimeoutSeconds = 90
	gw := gateway.New(memorystore.New(), 50, 100)
	logger := log.New(os.Stderr, "[broker-test] ", 0)
	return NewService(gw, policy.New(cfg), logger)
}

func TestRegisterAgentReturnsOtherActiveAgents(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.RegisterAgent(ctx, RegisterAgentParams{ProjectID: "p1", SessionName: "alice"}); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	res, err := s.RegisterAgent(ctx, RegisterAgentParams{ProjectID: "p1", SessionName: "bob"})
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}
	if len(res.OtherActiveAgents) != 1 || res.OtherActiveAgents[0] != "alice" {
		t.Fatalf("bob's other_active_agents = %v, want [alice]", res.OtherActiveAgents)
	}

	msgs, err := s.CheckMessages(ctx, "p1", "alice")
	if err != nil {
		t.Fatalf("check_messages: %v", err)
	}
	if len(msgs.Messages) != 1 || msgs.Messages[0].MessageType != "agent_joined" {
		t.Fatalf("alice should see bob's agent_joined broadcast, got %v", msgs.Messages)
	}
}

func TestRegisterAgentRejectsDifferentTaskIDRefreshesSame(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.RegisterAgent(ctx, RegisterAgentParams{ProjectID: "p1", SessionName: "alice", TaskID: "T1"}); err != nil {
		t.Fatalf("register alice/T1: %v", err)
	}

	if _, err := s.RegisterAgent(ctx, RegisterAgentParams{ProjectID: "p1", SessionName: "alice", TaskID: "T2"}); err == nil {
		t.Fatal("re-registering alice under a different task_id should fail")
	}

	res, err := s.RegisterAgent(ctx, RegisterAgentParams{ProjectID: "p1", SessionName: "alice", TaskID: "T1", Description: "resumed"})
	if err != nil {
		t.Fatalf("re-registering alice under the same task_id should refresh, got: %v", err)
	}
	if res.Status != "registered" {
		t.Fatalf("status = %q, want registered", res.Status)
	}
}

func TestHeartbeatRequiresRegistration(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.Heartbeat(ctx, HeartbeatParams{ProjectID: "p1", SessionName: "ghost"}); err == nil {
		t.Fatal("heartbeat for unregistered agent should fail")
	}

	if _, err := s.RegisterAgent(ctx, RegisterAgentParams{ProjectID: "p1", SessionName: "alice"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	out, err := s.Heartbeat(ctx, HeartbeatParams{ProjectID: "p1", SessionName: "alice"})
	if err != nil || out != "OK" {
		t.Fatalf("heartbeat = %q, %v, want OK, nil", out, err)
	}
}

func TestUnregisterAgentReleasesLocksAndReportsTodos(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.RegisterAgent(ctx, RegisterAgentParams{ProjectID: "p1", SessionName: "alice"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.AnnounceFileChange(ctx, AnnounceFileChangeParams{ProjectID: "p1", SessionName: "alice", FilePath: "a.go"}); err != nil {
		t.Fatalf("announce: %v", err)
	}
	if _, err := s.AddTodo(ctx, AddTodoParams{ProjectID: "p1", SessionName: "alice", Text: "write tests"}); err != nil {
		t.Fatalf("add_todo: %v", err)
	}

	res, err := s.UnregisterAgent(ctx, "p1", "alice")
	if err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if res.TodoSummary.Total != 1 || res.TodoSummary.Pending != 1 {
		t.Fatalf("todo summary = %+v, want total=1 pending=1", res.TodoSummary)
	}

	if res, err := s.AnnounceFileChange(ctx, AnnounceFileChangeParams{ProjectID: "p1", SessionName: "bob", FilePath: "a.go"}); err != nil || res.Status != "locked" {
		t.Fatalf("bob should be able to lock a.go after alice unregistered: %+v, %v", res, err)
	}
}

func TestListActiveAgentsExcludesReaped(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.RegisterAgent(ctx, RegisterAgentParams{ProjectID: "p1", SessionName: "alice"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.RegisterAgent(ctx, RegisterAgentParams{ProjectID: "p1", SessionName: "bob"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.UnregisterAgent(ctx, "p1", "bob"); err != nil {
		t.Fatalf("unregister: %v", err)
	}

	list, err := s.ListActiveAgents(ctx, "p1")
	if err != nil {
		t.Fatalf("list_active_agents: %v", err)
	}
	if len(list) != 1 || list[0].SessionName != "alice" {
		t.Fatalf("list_active_agents = %v, want only alice", list)
	}
}
