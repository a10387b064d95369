package app

import (
	"context"

	"github.com/splitmind/broker/internal/gateway"
)

// reapAgent removes every trace of sessionName from projectID: its file
// locks, registration, todo list, and message queue. Idempotent: safe to
// call twice for the same agent (e.g. a concurrent unregister_agent and
// watchdog sweep both targeting the same dead session), since every step is
// itself a no-op on an already-missing key.
func (s *Service) reapAgent(ctx context.Context, projectID, sessionName string) error {
	s.releaseLocksHeldBy(ctx, projectID, sessionName)

	if err := s.GW.Store.HDel(ctx, gateway.AgentsKey(projectID), sessionName); err != nil {
		return NewError(StatusStoreUnavailable, "reap: %v", err)
	}
	if err := s.GW.Store.Delete(ctx, gateway.HeartbeatKey(projectID, sessionName)); err != nil {
		return NewError(StatusStoreUnavailable, "reap: %v", err)
	}
	if err := s.GW.Store.Delete(ctx, gateway.TodosKey(projectID, sessionName)); err != nil {
		return NewError(StatusStoreUnavailable, "reap: %v", err)
	}
	if err := s.GW.Store.Delete(ctx, gateway.QueueKey(projectID, sessionName)); err != nil {
		return NewError(StatusStoreUnavailable, "reap: %v", err)
	}
	return nil
}
