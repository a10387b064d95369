package broker

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/splitmind/broker/internal/app"
	"github.com/splitmind/broker/internal/gateway"
	"github.com/splitmind/broker/internal/policy"
	"github.com/splitmind/broker/internal/store/memorystore"
)

func newTestBrokerService(t *testing.T) *app.Service {
	t.Helper()
	gw := gateway.New(memorystore.New(), 50, 100)
	logger := log.New(os.Stderr, "[broker-test] ", 0)
	return app.NewService(gw, policy.New(policy.DefaultConfig()), logger)
}

func callToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func okResult() *mcp.CallToolResult {
	return mcp.NewToolResultText("{}")
}

func TestHeartbeatRefreshMiddlewareRefreshesKnownSession(t *testing.T) {
	svc := newTestBrokerService(t)
	ctx := context.Background()

	if _, err := svc.RegisterAgent(ctx, app.RegisterAgentParams{ProjectID: "p1", SessionName: "alice"}); err != nil {
		t.Fatalf("register alice: %v", err)
	}

	called := false
	next := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return okResult(), nil
	}
	mw := HeartbeatRefreshMiddleware(svc)(next)

	req := callToolRequest("add_todo", map[string]any{"project_id": "p1", "session_name": "alice", "todo_item": "x"})
	if _, err := mw(ctx, req); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if !called {
		t.Fatal("middleware did not call next")
	}

	// alice is still registered, so a plain Heartbeat call (which itself
	// requires prior registration) should keep succeeding.
	if _, err := svc.Heartbeat(ctx, app.HeartbeatParams{ProjectID: "p1", SessionName: "alice"}); err != nil {
		t.Fatalf("alice should still be registered after middleware refresh: %v", err)
	}
}

func TestHeartbeatRefreshMiddlewareSkipsUnknownSession(t *testing.T) {
	svc := newTestBrokerService(t)
	ctx := context.Background()

	next := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return okResult(), nil
	}
	mw := HeartbeatRefreshMiddleware(svc)(next)

	req := callToolRequest("add_todo", map[string]any{"project_id": "p1", "session_name": "ghost", "todo_item": "x"})
	if _, err := mw(ctx, req); err != nil {
		t.Fatalf("middleware: %v", err)
	}

	if _, err := svc.Heartbeat(ctx, app.HeartbeatParams{ProjectID: "p1", SessionName: "ghost"}); err == nil {
		t.Fatal("ghost should still be unregistered: middleware must not resurrect an unknown session")
	}
}

func TestHeartbeatRefreshMiddlewareIgnoresNonMutatingTool(t *testing.T) {
	svc := newTestBrokerService(t)
	ctx := context.Background()

	next := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return okResult(), nil
	}
	mw := HeartbeatRefreshMiddleware(svc)(next)

	// list_active_agents isn't in heartbeatRefreshTools; the middleware
	// should pass it straight through without touching any session.
	req := callToolRequest("list_active_agents", map[string]any{"project_id": "p1"})
	if _, err := mw(ctx, req); err != nil {
		t.Fatalf("middleware: %v", err)
	}
}
