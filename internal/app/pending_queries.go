package app

import "sync"

// pendingSlot is the rendezvous point for one outstanding query_agent call:
// respond_to_query delivers the reply content by sending on ch exactly once.
type pendingSlot struct {
	ch chan string
}

// PendingQueryTable parks query_agent callers on a per-message_id channel
// until a matching respond_to_query arrives, or the caller's timeout fires.
// The slot is pre-registered before the query is enqueued for the target so
// a fast responder can never race ahead of the parker (spec §5).
type PendingQueryTable struct {
	mu      sync.Mutex
	pending map[string]*pendingSlot
}

// NewPendingQueryTable returns an empty table.
func NewPendingQueryTable() *PendingQueryTable {
	return &PendingQueryTable{pending: make(map[string]*pendingSlot)}
}

// Register pre-allocates a slot for messageID. Call this before the query is
// visible to the target agent (i.e. before it lands in the target's queue).
func (t *PendingQueryTable) Register(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[messageID] = &pendingSlot{ch: make(chan string, 1)}
}

// Wait blocks on done until the slot for messageID is filled or done fires,
// then removes the slot. Returns the response content and whether one
// arrived before done.
func (t *PendingQueryTable) Wait(messageID string, done <-chan struct{}) (string, bool) {
	t.mu.Lock()
	slot, ok := t.pending[messageID]
	t.mu.Unlock()
	if !ok {
		return "", false
	}
	defer t.Cancel(messageID)

	select {
	case content := <-slot.ch:
		return content, true
	case <-done:
		return "", false
	}
}

// Deliver sends content to the parked caller for messageID, if any is still
// waiting. Returns false if no slot exists (already delivered, cancelled,
// or the message_id was never a query in the first place).
func (t *PendingQueryTable) Deliver(messageID, content string) bool {
	t.mu.Lock()
	slot, ok := t.pending[messageID]
	t.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case slot.ch <- content:
		return true
	default:
		return false
	}
}

// Cancel removes the slot for messageID without delivering anything.
func (t *PendingQueryTable) Cancel(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, messageID)
}
