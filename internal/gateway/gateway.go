// Package gateway is the state gateway: it owns every key name the broker
// writes to the store and a handful of composite operations (bounded queue
// push, capped ring-buffer push) that read-modify-write more than a single
// store primitive. Coordination handlers in internal/app talk to the store
// exclusively through a Gateway; nothing else in this module builds a key
// string directly.
package gateway

import (
	"context"
	"fmt"

	"github.com/splitmind/broker/internal/store"
)

// Gateway namespaces every key under its project and exposes the store's
// atomic primitives plus a few bounded-collection helpers.
type Gateway struct {
	Store store.Store

	// MaxQueueLen bounds check_messages/query_agent queues (spec §3: bounded
	// message queues, oldest-dropped + single sentinel on overflow).
	MaxQueueLen int
	// RecentChangesCap bounds the recent-changes ring buffer (spec default: 100).
	RecentChangesCap int
}

// New returns a Gateway over s with the given bounds. A non-positive bound
// falls back to the spec's default.
func New(s store.Store, maxQueueLen, recentChangesCap int) *Gateway {
	if maxQueueLen <= 0 {
		maxQueueLen = 1000
	}
	if recentChangesCap <= 0 {
		recentChangesCap = 100
	}
	return &Gateway{Store: s, MaxQueueLen: maxQueueLen, RecentChangesCap: recentChangesCap}
}

// Key namespaces every resource as project:{project_id}:{resource}[:{id}].

func AgentsKey(projectID string) string {
	return fmt.Sprintf("project:%s:agents", projectID)
}

func HeartbeatKey(projectID, sessionName string) string {
	return fmt.Sprintf("project:%s:heartbeat:%s", projectID, sessionName)
}

func TodosKey(projectID, sessionName string) string {
	return fmt.Sprintf("project:%s:todos:%s", projectID, sessionName)
}

func QueueKey(projectID, sessionName string) string {
	return fmt.Sprintf("project:%s:queue:%s", projectID, sessionName)
}

func LocksKey(projectID string) string {
	return fmt.Sprintf("project:%s:locks", projectID)
}

func InterfacesKey(projectID string) string {
	return fmt.Sprintf("project:%s:interfaces", projectID)
}

func RecentChangesKey(projectID string) string {
	return fmt.Sprintf("project:%s:changes", projectID)
}

func CompletionsKey(projectID string) string {
	return fmt.Sprintf("project:%s:completions", projectID)
}

// heartbeatGlob matches every heartbeat key across all projects. The
// liveness monitor does not use it: it walks each project's agents hash and
// checks that agent's heartbeat key.
const heartbeatGlob = "project:*:heartbeat:*"

func HeartbeatGlob() string { return heartbeatGlob }

// PushBoundedQueue appends value to the session's message queue, dropping
// the oldest entry and writing a single "queue_overflow" sentinel in its
// place the first time the bound is exceeded (spec §3 / §5: bounded queues
// must not grow unboundedly nor silently drop messages without a trace).
func (g *Gateway) PushBoundedQueue(ctx context.Context, projectID, sessionName, sentinel, value string) error {
	key := QueueKey(projectID, sessionName)
	if err := g.Store.RPush(ctx, key, value); err != nil {
		return err
	}
	n, err := g.Store.LLen(ctx, key)
	if err != nil {
		return err
	}
	if n <= g.MaxQueueLen {
		return nil
	}
	overflow := n - g.MaxQueueLen
	for i := 0; i < overflow; i++ {
		if err := g.Store.LTrim(ctx, key, 1, -1); err != nil {
			return err
		}
	}
	head, err := g.Store.LRange(ctx, key, 0, 0)
	if err != nil {
		return err
	}
	if len(head) == 0 || head[0] != sentinel {
		return g.Store.LSet(ctx, key, 0, sentinel)
	}
	return nil
}

// PushCapped prepends value to key and trims it to the most recent
// RecentChangesCap entries, newest-first (spec's recent-changes log:
// LPush + LTrim 0 cap-1).
func (g *Gateway) PushCapped(ctx context.Context, key, value string) error {
	if err := g.Store.LPush(ctx, key, value); err != nil {
		return err
	}
	return g.Store.LTrim(ctx, key, 0, g.RecentChangesCap-1)
}
