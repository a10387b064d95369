package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/splitmind/broker/internal/domain"
)

// maxQueryTimeout is the hard ceiling on a caller-supplied timeout, regardless
// of the configured default.
const maxQueryTimeout = 300 * time.Second

// QueryAgentParams is the query_agent tool's input.
type QueryAgentParams struct {
	ProjectID   string
	From        string
	To          string
	QueryType   string
	Content     string
	TimeoutSecs int
}

// QueryAgentResult is query_agent's output: either a response was received,
// or the call timed out waiting for one.
type QueryAgentResult struct {
	Status   string `json:"status"`
	Response string `json:"response,omitempty"`
}

// QueryAgent enqueues a query for p.To and blocks until respond_to_query
// delivers a matching reply or the timeout elapses. The pending slot is
// registered before the query becomes visible to the target, so a very fast
// responder can never race ahead of the parker (spec §5).
func (s *Service) QueryAgent(ctx context.Context, p QueryAgentParams) (*QueryAgentResult, error) {
	messageID := fmt.Sprintf("%s-%d", p.From, time.Now().UnixNano())

	s.Queries.Register(messageID)

	env := domain.Envelope{
		ID:               messageID,
		From:             p.From,
		Type:             domain.MsgQuery,
		QueryType:        p.QueryType,
		Content:          p.Content,
		Timestamp:        time.Now(),
		RequiresResponse: true,
	}
	if err := s.enqueue(ctx, p.ProjectID, p.To, env); err != nil {
		s.Queries.Cancel(messageID)
		return nil, err
	}

	timeout := s.Policy.QueryTimeout()
	if p.TimeoutSecs > 0 {
		timeout = time.Duration(p.TimeoutSecs) * time.Second
	}
	if timeout > maxQueryTimeout {
		timeout = maxQueryTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	done := make(chan struct{})
	go func() {
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		close(done)
	}()

	content, ok := s.Queries.Wait(messageID, done)
	if !ok {
		return &QueryAgentResult{Status: "timeout"}, nil
	}
	return &QueryAgentResult{Status: "received", Response: content}, nil
}

// QueryAgentAsyncResult is query_agent's output when wait_for_response=false:
// the query is enqueued and the caller is handed the message_id to correlate
// a later check_messages/respond_to_query round-trip itself.
type QueryAgentAsyncResult struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
}

// QueryAgentAsync enqueues a query for p.To without blocking for a reply.
// No pending slot is registered, so a respond_to_query against this
// message_id routes the reply to p.From's queue, exactly as a late reply to
// a timed-out QueryAgent is routed.
func (s *Service) QueryAgentAsync(ctx context.Context, p QueryAgentParams) (*QueryAgentAsyncResult, error) {
	messageID := fmt.Sprintf("%s-%d", p.From, time.Now().UnixNano())

	env := domain.Envelope{
		ID:               messageID,
		From:             p.From,
		Type:             domain.MsgQuery,
		QueryType:        p.QueryType,
		Content:          p.Content,
		Timestamp:        time.Now(),
		RequiresResponse: true,
	}
	if err := s.enqueue(ctx, p.ProjectID, p.To, env); err != nil {
		return nil, err
	}
	return &QueryAgentAsyncResult{Status: "sent", MessageID: messageID}, nil
}

// RespondToQueryParams is the respond_to_query tool's input.
type RespondToQueryParams struct {
	ProjectID string
	From      string
	MessageID string
	Content   string
}

// RespondToQuery delivers content to the caller blocked on MessageID. If no
// caller is still waiting (already timed out, or MessageID never existed),
// the response is enqueued to the original requester's queue instead so it
// isn't silently lost (mirrors check_messages as the fallback delivery path).
func (s *Service) RespondToQuery(ctx context.Context, p RespondToQueryParams) (string, error) {
	if s.Queries.Deliver(p.MessageID, p.Content) {
		return "delivered", nil
	}

	fromSession := requesterFromMessageID(p.MessageID)
	if fromSession == "" {
		return "", NewError(StatusNotFound, "no pending query %q", p.MessageID)
	}
	env := domain.Envelope{
		ID:        p.MessageID,
		From:      p.From,
		Type:      domain.MsgResponse,
		Content:   p.Content,
		Timestamp: time.Now(),
		InReplyTo: p.MessageID,
	}
	if err := s.enqueue(ctx, p.ProjectID, fromSession, env); err != nil {
		return "", err
	}
	return "queued", nil
}

// requesterFromMessageID recovers the "{from_session}-{unix_nano}" prefix a
// message_id was minted with, so a late response can still be routed.
func requesterFromMessageID(messageID string) string {
	for i := len(messageID) - 1; i >= 0; i-- {
		if messageID[i] == '-' {
			if _, err := strconv.ParseInt(messageID[i+1:], 10, 64); err == nil {
				return messageID[:i]
			}
		}
	}
	return ""
}
