package broker

import (
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/splitmind/broker/internal/app"
)

func TestResultFromErrorPreservesBrokerStatus(t *testing.T) {
	res, err := resultFromError(app.ErrNotRegistered("alice"))
	if err != nil {
		t.Fatalf("resultFromError returned an error: %v", err)
	}
	text := res.Content[0].(mcp.TextContent)
	var payload errorPayload
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Status != "not_registered" {
		t.Fatalf("status = %q, want not_registered", payload.Status)
	}
}

func TestResultFromErrorGenericFallback(t *testing.T) {
	res, err := resultFromError(errPlain("boom"))
	if err != nil {
		t.Fatalf("resultFromError returned an error: %v", err)
	}
	text := res.Content[0].(mcp.TextContent)
	var payload errorPayload
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Status != "error" || payload.Error != "boom" {
		t.Fatalf("payload = %+v, want status=error error=boom", payload)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

func TestArgHelpers(t *testing.T) {
	args := map[string]any{"name": "alice", "count": float64(3), "flag": true}
	if got := stringArg(args, "name"); got != "alice" {
		t.Errorf("stringArg = %q, want alice", got)
	}
	if got := stringArg(args, "missing"); got != "" {
		t.Errorf("stringArg missing = %q, want empty", got)
	}
	if got := intArg(args, "count", -1); got != 3 {
		t.Errorf("intArg = %d, want 3", got)
	}
	if got := intArg(args, "missing", 7); got != 7 {
		t.Errorf("intArg fallback = %d, want 7", got)
	}
	if got := boolArg(args, "flag", false); !got {
		t.Errorf("boolArg = %v, want true", got)
	}
	if got := boolArg(args, "missing", true); !got {
		t.Errorf("boolArg fallback = %v, want true", got)
	}
}
