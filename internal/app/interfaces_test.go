package app

import (
	"context"
	"testing"
)

func TestRegisterAndQueryInterfaceExactHit(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.RegisterInterface(ctx, RegisterInterfaceParams{
		ProjectID: "p1", Name: "UserService", Definition: "type UserService interface { Get(id string) (*User, error) }",
		RegisteredBy: "alice", FilePath: "user.go",
	}); err != nil {
		t.Fatalf("register_interface: %v", err)
	}

	res, err := s.QueryInterface(ctx, "p1", "UserService")
	if err != nil {
		t.Fatalf("query_interface: %v", err)
	}
	if res.Status != "found" || res.Interface == nil || res.Interface.RegisteredBy != "alice" {
		t.Fatalf("query_interface = %+v, want found/alice", res)
	}
}

func TestQueryInterfaceMissReturnsFuzzySuggestions(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.RegisterInterface(ctx, RegisterInterfaceParams{ProjectID: "p1", Name: "UserService", Definition: "x"}); err != nil {
		t.Fatalf("register_interface: %v", err)
	}

	res, err := s.QueryInterface(ctx, "p1", "UserServise")
	if err != nil {
		t.Fatalf("query_interface: %v", err)
	}
	if res.Status != "not_found" {
		t.Fatalf("status = %q, want not_found", res.Status)
	}
	if len(res.Similar) != 1 || res.Similar[0].Name != "UserService" {
		t.Fatalf("similar = %+v, want [UserService]", res.Similar)
	}
}

func TestListInterfacesReturnsAllRegistered(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.RegisterInterface(ctx, RegisterInterfaceParams{ProjectID: "p1", Name: "A", Definition: "x"}); err != nil {
		t.Fatalf("register_interface: %v", err)
	}
	if _, err := s.RegisterInterface(ctx, RegisterInterfaceParams{ProjectID: "p1", Name: "B", Definition: "y"}); err != nil {
		t.Fatalf("register_interface: %v", err)
	}

	res, err := s.ListInterfaces(ctx, "p1")
	if err != nil {
		t.Fatalf("list_interfaces: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("got %d interfaces, want 2", len(res))
	}
	if _, ok := res["A"]; !ok {
		t.Fatalf("list_interfaces missing A: %+v", res)
	}
}
