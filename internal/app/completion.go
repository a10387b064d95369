package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/splitmind/broker/internal/domain"
	"github.com/splitmind/broker/internal/gateway"
)

// MarkTaskCompletedParams is the mark_task_completed tool's input.
type MarkTaskCompletedParams struct {
	ProjectID   string
	SessionName string
	TaskID      string
}

// MarkTaskCompleted records a completion, flips the agent's status, and
// best-effort writes a status file under Policy.StatusDir() (mirrors the
// original implementation's /tmp/splitmind-status/{session}.status, now
// under a configurable directory).
func (s *Service) MarkTaskCompleted(ctx context.Context, p MarkTaskCompletedParams) (string, error) {
	record := domain.CompletionRecord{
		TaskID:      p.TaskID,
		SessionName: p.SessionName,
		CompletedAt: time.Now(),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return "", NewError(StatusError, "encode completion: %v", err)
	}
	if err := s.GW.Store.HSet(ctx, gateway.CompletionsKey(p.ProjectID), p.SessionName, string(raw)); err != nil {
		return "", NewError(StatusStoreUnavailable, "mark_task_completed: %v", err)
	}

	agentRaw, ok, err := s.GW.Store.HGet(ctx, gateway.AgentsKey(p.ProjectID), p.SessionName)
	if err == nil && ok {
		var agent domain.Agent
		if json.Unmarshal([]byte(agentRaw), &agent) == nil {
			agent.Status = domain.AgentCompleted
			if updated, err := json.Marshal(agent); err == nil {
				_ = s.GW.Store.HSet(ctx, gateway.AgentsKey(p.ProjectID), p.SessionName, string(updated))
			}
		}
	}

	s.writeStatusFile(p.SessionName, record)
	return "completed", nil
}

func (s *Service) writeStatusFile(sessionName string, record domain.CompletionRecord) {
	dir := s.Policy.StatusDir()
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return
	}
	path := filepath.Join(dir, sessionName+".status")
	content := fmt.Sprintf("task_id=%s\ncompleted_at=%s\n", record.TaskID, record.CompletedAt.Format(time.RFC3339))
	_ = os.WriteFile(path, []byte(content), 0644)
}
