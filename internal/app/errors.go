package app

import "fmt"

// Status is the machine-readable error tag surfaced in every tool result's
// "status" field (spec §7). Handlers never let a raw Go error cross the
// mcp-go tool boundary; they convert to a BrokerError first.
type Status string

const (
	StatusOK             Status = "ok"
	StatusError          Status = "error"
	StatusNotRegistered  Status = "not_registered"
	StatusAgentNotFound  Status = "agent_not_found"
	StatusConflict       Status = "conflict"
	StatusNotFound       Status = "not_found"
	StatusTimeout        Status = "timeout"
	StatusStoreUnavailable Status = "store_unavailable"
)

// BrokerError is a typed error carrying the Status tag a tool handler
// reports back to the caller.
type BrokerError struct {
	Status  Status
	Message string
}

func (e *BrokerError) Error() string {
	return e.Message
}

// NewError builds a BrokerError with a formatted message.
func NewError(status Status, format string, args ...any) *BrokerError {
	return &BrokerError{Status: status, Message: fmt.Sprintf(format, args...)}
}

func ErrNotRegistered(sessionName string) *BrokerError {
	return NewError(StatusNotRegistered, "agent %q is not registered; call register_agent first", sessionName)
}

func ErrAgentNotFound(sessionName string) *BrokerError {
	return NewError(StatusAgentNotFound, "no active agent named %q", sessionName)
}
