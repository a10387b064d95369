package app

import (
	"context"
	"log"
	"time"

	"github.com/splitmind/broker/internal/domain"
	"github.com/splitmind/broker/internal/gateway"
)

// LivenessMonitor periodically scans every project's heartbeat keys for
// agents whose TTL has lapsed and reaps them: released locks, a broadcast
// departure, and a cleared registration/queue/todo trail. Reaping is
// idempotent against a concurrent unregister_agent racing the same session.
type LivenessMonitor struct {
	svc      *Service
	logger   *log.Logger
	interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// LivenessOption configures a LivenessMonitor.
type LivenessOption func(*LivenessMonitor)

// WithInterval overrides the scan interval (default: Policy.MonitorInterval()).
func WithInterval(d time.Duration) LivenessOption {
	return func(m *LivenessMonitor) { m.interval = d }
}

// NewLivenessMonitor builds a monitor over svc. svc.Policy.MonitorInterval()
// is the default scan period.
func NewLivenessMonitor(svc *Service, logger *log.Logger, opts ...LivenessOption) *LivenessMonitor {
	m := &LivenessMonitor{
		svc:      svc,
		logger:   logger,
		interval: svc.Policy.MonitorInterval(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Start runs the scan loop until Stop is called or ctx is cancelled.
func (m *LivenessMonitor) Start(ctx context.Context) {
	defer close(m.doneCh)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.CheckOnce(ctx)
		}
	}
}

// Stop signals the loop to exit and waits for it to finish.
func (m *LivenessMonitor) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

// CheckOnce scans every project's heartbeat keys once, reaping any session
// whose heartbeat key has already expired (the store's own TTL is the source
// of truth; this pass cleans up the agent/todo/queue trail that TTL expiry
// alone doesn't remove).
func (m *LivenessMonitor) CheckOnce(ctx context.Context) {
	projects, err := m.liveProjects(ctx)
	if err != nil {
		m.logger.Printf("liveness: scan projects: %v", err)
		return
	}
	for _, projectID := range projects {
		m.reapDeadInProject(ctx, projectID)
	}
}

// liveProjects returns the distinct project IDs with at least one
// registered agent, derived from the agents-hash key namespace.
func (m *LivenessMonitor) liveProjects(ctx context.Context) ([]string, error) {
	keys, err := m.svc.GW.Store.ScanKeys(ctx, "project:*:agents")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	const prefix = "project:"
	const suffix = ":agents"
	for _, k := range keys {
		if len(k) <= len(prefix)+len(suffix) {
			continue
		}
		id := k[len(prefix) : len(k)-len(suffix)]
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}

// reapDeadInProject removes every registered agent in projectID whose
// heartbeat key is no longer present.
func (m *LivenessMonitor) reapDeadInProject(ctx context.Context, projectID string) {
	names, err := m.svc.GW.Store.HKeys(ctx, gateway.AgentsKey(projectID))
	if err != nil {
		m.logger.Printf("liveness: list agents for %s: %v", projectID, err)
		return
	}
	for _, name := range names {
		_, hasHeartbeat, err := m.svc.GW.Store.Get(ctx, gateway.HeartbeatKey(projectID, name))
		if err != nil {
			m.logger.Printf("liveness: heartbeat check %s/%s: %v", projectID, name, err)
			continue
		}
		if hasHeartbeat {
			continue
		}
		if err := m.svc.reapAgent(ctx, projectID, name); err != nil {
			m.logger.Printf("liveness: reap %s/%s: %v", projectID, name, err)
			continue
		}
		m.svc.broadcastSystem(ctx, projectID, name, "agent_died", name+" stopped sending heartbeats")
		m.svc.logChange(ctx, projectID, domain.ChangeEntry{
			SessionName: name,
			ChangeType:  "agent_reaped",
			Description: name + " was reaped by the liveness monitor",
			Timestamp:   time.Now(),
			System:      true,
		})
	}
}
