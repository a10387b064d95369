// Package domain holds the coordination broker's entities. It has no
// dependencies on other packages in this module.
package domain

import "time"

// AgentStatus is the lifecycle status of a registered agent.
type AgentStatus string

const (
	AgentActive    AgentStatus = "active"
	AgentCompleted AgentStatus = "completed"
)

// Agent is a registered participant in a project.
type Agent struct {
	SessionName string      `json:"session_name"`
	TaskID      string      `json:"task_id"`
	Branch      string      `json:"branch"`
	Description string      `json:"description"`
	Status      AgentStatus `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
}

// TodoStatus is the status of a single todo item.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
	TodoBlocked    TodoStatus = "blocked"
)

// Todo is one item in an agent's ordered todo list.
type Todo struct {
	ID          int        `json:"id"`
	Text        string     `json:"text"`
	Status      TodoStatus `json:"status"`
	Priority    int        `json:"priority"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TodoSummary counts an agent's todos by status.
type TodoSummary struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
}

// FileLock is an advisory lock on a file path, held by one session.
type FileLock struct {
	SessionName string    `json:"session_name"`
	LockedAt    time.Time `json:"locked_at"`
	ChangeType  string    `json:"change_type"`
	Description string    `json:"description"`
}

// Interface is a shared type/contract definition discoverable across agents.
type Interface struct {
	Definition   string    `json:"definition"`
	RegisteredBy string    `json:"registered_by"`
	FilePath     string    `json:"file_path,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// MessageType discriminates the envelope variants.
type MessageType string

const (
	MsgQuery     MessageType = "query"
	MsgResponse  MessageType = "response"
	MsgBroadcast MessageType = "broadcast"
	MsgSystem    MessageType = "system"
)

// Envelope is the structured wrapper around every inter-agent message.
type Envelope struct {
	ID               string      `json:"id"`
	From             string      `json:"from"`
	Type             MessageType `json:"type"`
	QueryType        string      `json:"query_type,omitempty"`
	MessageType      string      `json:"message_type,omitempty"` // for broadcast: caller-supplied category
	Content          string      `json:"content"`
	Timestamp        time.Time   `json:"timestamp"`
	RequiresResponse bool        `json:"requires_response,omitempty"`
	InReplyTo        string      `json:"in_reply_to,omitempty"`
}

// PendingQuery tracks an outstanding synchronous query_agent call so that
// respond_to_query can correlate a response back to the blocked caller.
type PendingQuery struct {
	MessageID   string    `json:"message_id"`
	FromSession string    `json:"from_session"`
	ToSession   string    `json:"to_session"`
	CreatedAt   time.Time `json:"created_at"`
	TimeoutAt   time.Time `json:"timeout_at"`
}

// ChangeEntry is one record in the project's recent-change log.
type ChangeEntry struct {
	SessionName string    `json:"session_name"`
	FilePath    string    `json:"file_path"`
	ChangeType  string    `json:"change_type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	System      bool      `json:"system,omitempty"` // true for liveness-monitor-authored entries
}

// CompletionRecord is the durable signal written by mark_task_completed.
type CompletionRecord struct {
	TaskID      string    `json:"task_id"`
	SessionName string    `json:"session_name"`
	CompletedAt time.Time `json:"completed_at"`
}
