package app

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/splitmind/broker/internal/domain"
	"github.com/splitmind/broker/internal/gateway"
)

// RegisterAgentParams is the register_agent tool's input.
type RegisterAgentParams struct {
	ProjectID   string
	SessionName string
	TaskID      string
	Branch      string
	Description string
}

// RegisterAgentResult is register_agent's output.
type RegisterAgentResult struct {
	Status            string   `json:"status"`
	OtherActiveAgents []string `json:"other_active_agents"`
}

// RegisterAgent records or refreshes an agent's registration, sets its
// heartbeat, and broadcasts "agent_joined" to every other active agent
// (mirrors the original implementation's register_agent semantics). A
// session_name already active under a different task_id is rejected rather
// than silently reassigned; re-registering with the same task_id is treated
// as a reconnect (spec §9 open question, pinned).
func (s *Service) RegisterAgent(ctx context.Context, p RegisterAgentParams) (*RegisterAgentResult, error) {
	if p.SessionName == "" {
		return nil, NewError(StatusError, "session_name is required")
	}

	startedAt := time.Now()
	if existingRaw, ok, err := s.GW.Store.HGet(ctx, gateway.AgentsKey(p.ProjectID), p.SessionName); err != nil {
		return nil, NewError(StatusStoreUnavailable, "register_agent: %v", err)
	} else if ok {
		var existing domain.Agent
		if json.Unmarshal([]byte(existingRaw), &existing) == nil {
			if existing.TaskID != p.TaskID {
				return nil, NewError(StatusError, "session %q is already registered with task_id %q", p.SessionName, existing.TaskID)
			}
			startedAt = existing.StartedAt
		}
	}

	others, err := s.activeSessionNames(ctx, p.ProjectID, p.SessionName)
	if err != nil {
		return nil, err
	}

	agent := domain.Agent{
		SessionName: p.SessionName,
		TaskID:      p.TaskID,
		Branch:      p.Branch,
		Description: p.Description,
		Status:      domain.AgentActive,
		StartedAt:   startedAt,
	}
	if err := s.putAgent(ctx, p.ProjectID, agent); err != nil {
		return nil, err
	}
	if err := s.touchHeartbeat(ctx, p.ProjectID, p.SessionName); err != nil {
		return nil, err
	}

	s.broadcastSystem(ctx, p.ProjectID, p.SessionName, "agent_joined", p.SessionName+" joined the project")

	return &RegisterAgentResult{Status: "registered", OtherActiveAgents: others}, nil
}

// HeartbeatParams is the heartbeat tool's input.
type HeartbeatParams struct {
	ProjectID   string
	SessionName string
}

// Heartbeat refreshes the session's liveness TTL. Returns ErrNotRegistered
// if the session was never registered (spec: heartbeat never resurrects an
// unregistered agent).
func (s *Service) Heartbeat(ctx context.Context, p HeartbeatParams) (string, error) {
	if _, ok, err := s.GW.Store.HGet(ctx, gateway.AgentsKey(p.ProjectID), p.SessionName); err != nil {
		return "", NewError(StatusStoreUnavailable, "heartbeat: %v", err)
	} else if !ok {
		return "", ErrNotRegistered(p.SessionName)
	}
	if err := s.touchHeartbeat(ctx, p.ProjectID, p.SessionName); err != nil {
		return "", err
	}
	return "OK", nil
}

// UnregisterAgentResult is unregister_agent's output.
type UnregisterAgentResult struct {
	Status      string             `json:"status"`
	TodoSummary domain.TodoSummary `json:"todo_summary"`
}

// UnregisterAgent removes an agent's registration and releases its held
// resources via the shared reap path, then broadcasts its departure.
func (s *Service) UnregisterAgent(ctx context.Context, projectID, sessionName string) (*UnregisterAgentResult, error) {
	summary, err := s.todoSummary(ctx, projectID, sessionName)
	if err != nil {
		return nil, err
	}
	if err := s.reapAgent(ctx, projectID, sessionName); err != nil {
		return nil, err
	}
	s.broadcastSystem(ctx, projectID, sessionName, "agent_left", sessionName+" left the project")
	return &UnregisterAgentResult{Status: "unregistered", TodoSummary: summary}, nil
}

// ActiveAgentView is one row of list_active_agents' output.
type ActiveAgentView struct {
	domain.Agent
	SessionName string `json:"session_name"`
}

// ListActiveAgents returns every agent with a live heartbeat, newest-registered first is not
// guaranteed; order is by session name for determinism.
func (s *Service) ListActiveAgents(ctx context.Context, projectID string) ([]ActiveAgentView, error) {
	names, err := s.activeSessionNames(ctx, projectID, "")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := make([]ActiveAgentView, 0, len(names))
	for _, name := range names {
		raw, ok, err := s.GW.Store.HGet(ctx, gateway.AgentsKey(projectID), name)
		if err != nil {
			return nil, NewError(StatusStoreUnavailable, "list_active_agents: %v", err)
		}
		if !ok {
			continue
		}
		var a domain.Agent
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			continue
		}
		out = append(out, ActiveAgentView{Agent: a, SessionName: name})
	}
	return out, nil
}

// --- internal helpers shared across handler files ---

func (s *Service) putAgent(ctx context.Context, projectID string, a domain.Agent) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return NewError(StatusError, "encode agent: %v", err)
	}
	if err := s.GW.Store.HSet(ctx, gateway.AgentsKey(projectID), a.SessionName, string(raw)); err != nil {
		return NewError(StatusStoreUnavailable, "register_agent: %v", err)
	}
	return nil
}

// RefreshHeartbeat refreshes sessionName's heartbeat TTL if it is currently
// registered; it is a silent no-op for an unknown session (used by the
// tool-dispatch layer to refresh liveness on any mutating call that names a
// session_name, per spec §4.1, without resurrecting a session that was
// never registered).
func (s *Service) RefreshHeartbeat(ctx context.Context, projectID, sessionName string) error {
	if sessionName == "" {
		return nil
	}
	_, ok, err := s.GW.Store.HGet(ctx, gateway.AgentsKey(projectID), sessionName)
	if err != nil {
		return NewError(StatusStoreUnavailable, "refresh heartbeat: %v", err)
	}
	if !ok {
		return nil
	}
	return s.touchHeartbeat(ctx, projectID, sessionName)
}

func (s *Service) touchHeartbeat(ctx context.Context, projectID, sessionName string) error {
	timeout := s.Policy.HeartbeatTimeout()
	if err := s.GW.Store.SetEX(ctx, gateway.HeartbeatKey(projectID, sessionName), "1", timeout); err != nil {
		return NewError(StatusStoreUnavailable, "heartbeat: %v", err)
	}
	return nil
}

// activeSessionNames returns every session with a live heartbeat key for
// projectID, excluding exclude (pass "" to exclude nothing).
func (s *Service) activeSessionNames(ctx context.Context, projectID, exclude string) ([]string, error) {
	keys, err := s.GW.Store.ScanKeys(ctx, gateway.HeartbeatKey(projectID, "*"))
	if err != nil {
		return nil, NewError(StatusStoreUnavailable, "scan heartbeats: %v", err)
	}
	prefix := gateway.HeartbeatKey(projectID, "")
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		name := k[len(prefix):]
		if name == exclude {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}
