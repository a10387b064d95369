package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/splitmind/broker/internal/domain"
	"github.com/splitmind/broker/internal/gateway"
)

// RegisterInterfaceParams is the register_interface tool's input.
type RegisterInterfaceParams struct {
	ProjectID    string
	Name         string
	Definition   string
	RegisteredBy string
	FilePath     string
}

// RegisterInterface stores (or overwrites) a named interface definition.
func (s *Service) RegisterInterface(ctx context.Context, p RegisterInterfaceParams) (string, error) {
	iface := domain.Interface{
		Definition:   p.Definition,
		RegisteredBy: p.RegisteredBy,
		FilePath:     p.FilePath,
		Timestamp:    time.Now(),
	}
	raw, err := json.Marshal(iface)
	if err != nil {
		return "", NewError(StatusError, "encode interface: %v", err)
	}
	if err := s.GW.Store.HSet(ctx, gateway.InterfacesKey(p.ProjectID), p.Name, string(raw)); err != nil {
		return "", NewError(StatusStoreUnavailable, "register_interface: %v", err)
	}
	return "registered", nil
}

// QueryInterfaceResult is query_interface's output. An exact hit sets
// Interface and leaves Similar empty; a miss returns fuzzy candidates under
// Similar instead (supersedes the original's plain substring-match lookup
// with a Levenshtein-or-trigram fuzzy one).
type QueryInterfaceResult struct {
	Status    string              `json:"status"`
	Name      string              `json:"name,omitempty"`
	Interface *domain.Interface   `json:"interface,omitempty"`
	Similar   []InterfaceSuggestion `json:"similar,omitempty"`
}

// InterfaceSuggestion is one fuzzy-match candidate returned when a queried
// interface name has no exact registration.
type InterfaceSuggestion struct {
	Name     string `json:"name"`
	Distance int    `json:"distance"`
}

// QueryInterface looks up Name exactly; on a miss, returns the names within
// Levenshtein distance 3 or sharing a 3-gram, closest first.
func (s *Service) QueryInterface(ctx context.Context, projectID, name string) (*QueryInterfaceResult, error) {
	key := gateway.InterfacesKey(projectID)
	raw, ok, err := s.GW.Store.HGet(ctx, key, name)
	if err != nil {
		return nil, NewError(StatusStoreUnavailable, "query_interface: %v", err)
	}
	if ok {
		var iface domain.Interface
		if err := json.Unmarshal([]byte(raw), &iface); err != nil {
			return nil, NewError(StatusError, "decode interface: %v", err)
		}
		return &QueryInterfaceResult{Status: "found", Name: name, Interface: &iface}, nil
	}

	names, err := s.GW.Store.HKeys(ctx, key)
	if err != nil {
		return nil, NewError(StatusStoreUnavailable, "query_interface: %v", err)
	}
	matches := FindSimilar(name, names)
	similar := make([]InterfaceSuggestion, 0, len(matches))
	for _, m := range matches {
		similar = append(similar, InterfaceSuggestion{Name: m.Name, Distance: m.Distance})
	}
	return &QueryInterfaceResult{Status: "not_found", Similar: similar}, nil
}

// ListInterfacesResult is list_interfaces' output: every registered
// interface, keyed by name.
type ListInterfacesResult map[string]domain.Interface

// ListInterfaces returns every registered interface in the project, keyed
// by name.
func (s *Service) ListInterfaces(ctx context.Context, projectID string) (ListInterfacesResult, error) {
	key := gateway.InterfacesKey(projectID)
	all, err := s.GW.Store.HGetAll(ctx, key)
	if err != nil {
		return nil, NewError(StatusStoreUnavailable, "list_interfaces: %v", err)
	}
	out := make(ListInterfacesResult, len(all))
	for name, raw := range all {
		var iface domain.Interface
		if err := json.Unmarshal([]byte(raw), &iface); err != nil {
			continue
		}
		out[name] = iface
	}
	return out, nil
}
