// Package broker wires the coordination broker's use cases in internal/app
// to mcp-go tool definitions: one registerXxx function per tool, grouped the
// way the original tool package grouped them by concern.
package broker

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/splitmind/broker/internal/app"
)

// resultJSON marshals v as the tool's text result. Handlers never return a Go
// error for a domain failure — that would surface as a transport-level RPC
// error instead of the structured {status,...} shape the contract promises —
// so every registerXxx wrapper always returns (result, nil) for a reached
// handler. A JSON-marshal failure, which indicates a bug, is also returned
// as a generic {status:"error"} result rather than as a Go error.
func resultJSON(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultText(`{"status":"error","error":"encode result failed"}`), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// errorPayload is the {status,error} shape every failed tool call returns.
type errorPayload struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// resultFromError converts err into the structured failure shape. A
// *app.BrokerError carries its own status tag; anything else (a programming
// bug, an unexpected panic recovery) is reported as a generic "error".
func resultFromError(err error) (*mcp.CallToolResult, error) {
	if be, ok := err.(*app.BrokerError); ok {
		return resultJSON(errorPayload{Status: string(be.Status), Error: be.Message})
	}
	return resultJSON(errorPayload{Status: string(app.StatusError), Error: err.Error()})
}

func stringArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return v
}

func intArg(args map[string]any, name string, fallback int) int {
	if v, ok := args[name].(float64); ok {
		return int(v)
	}
	return fallback
}

func boolArg(args map[string]any, name string, fallback bool) bool {
	if v, ok := args[name].(bool); ok {
		return v
	}
	return fallback
}
