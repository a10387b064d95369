package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/splitmind/broker/internal/domain"
	"github.com/splitmind/broker/internal/gateway"
)

// AddTodoParams is the add_todo tool's input.
type AddTodoParams struct {
	ProjectID   string
	SessionName string
	Text        string
	Priority    int
}

// AddTodoResult is add_todo's output.
type AddTodoResult struct {
	Status string      `json:"status"`
	Todo   domain.Todo `json:"todo"`
}

// AddTodo appends a new pending todo to the session's list. IDs increment
// per-session starting at 1.
func (s *Service) AddTodo(ctx context.Context, p AddTodoParams) (*AddTodoResult, error) {
	key := gateway.TodosKey(p.ProjectID, p.SessionName)
	n, err := s.GW.Store.LLen(ctx, key)
	if err != nil {
		return nil, NewError(StatusStoreUnavailable, "add_todo: %v", err)
	}
	todo := domain.Todo{
		ID:        n + 1,
		Text:      p.Text,
		Status:    domain.TodoPending,
		Priority:  p.Priority,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(todo)
	if err != nil {
		return nil, NewError(StatusError, "encode todo: %v", err)
	}
	if err := s.GW.Store.RPush(ctx, key, string(raw)); err != nil {
		return nil, NewError(StatusStoreUnavailable, "add_todo: %v", err)
	}
	return &AddTodoResult{Status: "added", Todo: todo}, nil
}

// UpdateTodoParams is the update_todo tool's input.
type UpdateTodoParams struct {
	ProjectID   string
	SessionName string
	TodoID      int
	Status      domain.TodoStatus
}

// UpdateTodo sets the status of one of the session's todos by ID, stamping
// CompletedAt when transitioning to completed.
func (s *Service) UpdateTodo(ctx context.Context, p UpdateTodoParams) (string, error) {
	key := gateway.TodosKey(p.ProjectID, p.SessionName)
	todos, err := s.loadTodos(ctx, key)
	if err != nil {
		return "", err
	}
	idx := -1
	for i, t := range todos {
		if t.ID == p.TodoID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return "", NewError(StatusNotFound, "no todo with id %d", p.TodoID)
	}
	todos[idx].Status = p.Status
	if p.Status == domain.TodoCompleted {
		now := time.Now()
		todos[idx].CompletedAt = &now
	}
	raw, err := json.Marshal(todos[idx])
	if err != nil {
		return "", NewError(StatusError, "encode todo: %v", err)
	}
	if err := s.GW.Store.LSet(ctx, key, idx, string(raw)); err != nil {
		return "", NewError(StatusStoreUnavailable, "update_todo: %v", err)
	}
	return "updated", nil
}

// GetMyTodosResult is get_my_todos' output.
type GetMyTodosResult struct {
	SessionName string        `json:"session_name"`
	Total       int           `json:"total"`
	Todos       []domain.Todo `json:"todos"`
}

// GetMyTodos returns the session's todos in creation order.
func (s *Service) GetMyTodos(ctx context.Context, projectID, sessionName string) (*GetMyTodosResult, error) {
	todos, err := s.loadTodos(ctx, gateway.TodosKey(projectID, sessionName))
	if err != nil {
		return nil, err
	}
	return &GetMyTodosResult{SessionName: sessionName, Total: len(todos), Todos: todos}, nil
}

// AgentTodos is one session's todo list and counters, keyed by session_name
// in GetAllTodosResult.
type AgentTodos struct {
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Todos     []domain.Todo `json:"todos"`
}

// GetAllTodosResult is get_all_todos' output: every active agent's todo
// list and counters, keyed by session_name.
type GetAllTodosResult map[string]AgentTodos

// GetAllTodos returns every active agent's todo list, keyed by session_name.
func (s *Service) GetAllTodos(ctx context.Context, projectID string) (GetAllTodosResult, error) {
	names, err := s.activeSessionNames(ctx, projectID, "")
	if err != nil {
		return nil, err
	}
	out := make(GetAllTodosResult, len(names))
	for _, name := range names {
		todos, err := s.loadTodos(ctx, gateway.TodosKey(projectID, name))
		if err != nil {
			return nil, err
		}
		completed := 0
		for _, t := range todos {
			if t.Status == domain.TodoCompleted {
				completed++
			}
		}
		out[name] = AgentTodos{Total: len(todos), Completed: completed, Todos: todos}
	}
	return out, nil
}

func (s *Service) loadTodos(ctx context.Context, key string) ([]domain.Todo, error) {
	raws, err := s.GW.Store.LRange(ctx, key, 0, -1)
	if err != nil {
		return nil, NewError(StatusStoreUnavailable, "load todos: %v", err)
	}
	out := make([]domain.Todo, 0, len(raws))
	for _, raw := range raws {
		var t domain.Todo
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Service) todoSummary(ctx context.Context, projectID, sessionName string) (domain.TodoSummary, error) {
	todos, err := s.loadTodos(ctx, gateway.TodosKey(projectID, sessionName))
	if err != nil {
		return domain.TodoSummary{}, err
	}
	var sum domain.TodoSummary
	sum.Total = len(todos)
	for _, t := range todos {
		switch t.Status {
		case domain.TodoCompleted:
			sum.Completed++
		case domain.TodoInProgress:
			sum.InProgress++
		default:
			sum.Pending++
		}
	}
	return sum, nil
}
