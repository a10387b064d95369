// Package app implements the coordination broker's use cases: one method
// per MCP tool, each translating tool arguments into gateway/store calls and
// returning a JSON-able result or a *BrokerError.
package app

import (
	"log"

	"github.com/splitmind/broker/internal/gateway"
	"github.com/splitmind/broker/internal/policy"
)

// Service bundles everything a coordination handler needs: the namespaced
// state gateway, the synchronous-query rendezvous table, configuration, and
// a logger. One Service instance is shared by every tool handler and by the
// liveness monitor.
type Service struct {
	GW      *gateway.Gateway
	Queries *PendingQueryTable
	Policy  *policy.Policy
	Logger  *log.Logger
}

// NewService wires a Service from its dependencies.
func NewService(gw *gateway.Gateway, pol *policy.Policy, logger *log.Logger) *Service {
	return &Service{
		GW:      gw,
		Queries: NewPendingQueryTable(),
		Policy:  pol,
		Logger:  logger,
	}
}
