package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/splitmind/broker/internal/domain"
	"github.com/splitmind/broker/internal/gateway"
)

const overflowSentinel = `{"type":"system","content":"queue_overflow: older messages were dropped"}`

// enqueue pushes env onto to's bounded message queue.
func (s *Service) enqueue(ctx context.Context, projectID, to string, env domain.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return NewError(StatusError, "encode message: %v", err)
	}
	if err := s.GW.PushBoundedQueue(ctx, projectID, to, overflowSentinel, string(raw)); err != nil {
		return NewError(StatusStoreUnavailable, "enqueue: %v", err)
	}
	return nil
}

// broadcastSystem fans a system-authored envelope out to every currently
// active agent except the author.
func (s *Service) broadcastSystem(ctx context.Context, projectID, from, category, content string) {
	others, err := s.activeSessionNames(ctx, projectID, from)
	if err != nil {
		return
	}
	env := domain.Envelope{
		From:        from,
		Type:        domain.MsgSystem,
		MessageType: category,
		Content:     content,
		Timestamp:   time.Now(),
	}
	for _, to := range others {
		_ = s.enqueue(ctx, projectID, to, env)
	}
}

// BroadcastMessageParams is the broadcast_message tool's input.
type BroadcastMessageParams struct {
	ProjectID   string
	From        string
	MessageType string
	Content     string
}

// BroadcastMessageResult is broadcast_message's output.
type BroadcastMessageResult struct {
	Status      string `json:"status"`
	DeliveredTo int    `json:"delivered_to"`
}

// BroadcastMessage fans content out to every other active agent.
func (s *Service) BroadcastMessage(ctx context.Context, p BroadcastMessageParams) (*BroadcastMessageResult, error) {
	others, err := s.activeSessionNames(ctx, p.ProjectID, p.From)
	if err != nil {
		return nil, err
	}
	env := domain.Envelope{
		From:        p.From,
		Type:        domain.MsgBroadcast,
		MessageType: p.MessageType,
		Content:     p.Content,
		Timestamp:   time.Now(),
	}
	for _, to := range others {
		if err := s.enqueue(ctx, p.ProjectID, to, env); err != nil {
			return nil, err
		}
	}
	return &BroadcastMessageResult{Status: "broadcast", DeliveredTo: len(others)}, nil
}

// CheckMessagesResult is check_messages' output.
type CheckMessagesResult struct {
	Status   string            `json:"status"`
	Messages []domain.Envelope `json:"messages"`
}

// CheckMessages drains (pops) the session's entire queue. Messages are
// consumed on read, matching the original implementation's queue semantics.
func (s *Service) CheckMessages(ctx context.Context, projectID, sessionName string) (*CheckMessagesResult, error) {
	key := gateway.QueueKey(projectID, sessionName)
	raws, err := s.GW.Store.LRange(ctx, key, 0, -1)
	if err != nil {
		return nil, NewError(StatusStoreUnavailable, "check_messages: %v", err)
	}
	if err := s.GW.Store.Delete(ctx, key); err != nil {
		return nil, NewError(StatusStoreUnavailable, "check_messages: %v", err)
	}
	out := make([]domain.Envelope, 0, len(raws))
	for _, raw := range raws {
		var env domain.Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			continue
		}
		out = append(out, env)
	}
	return &CheckMessagesResult{Status: "ok", Messages: out}, nil
}
