package broker

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/splitmind/broker/internal/app"
	"github.com/splitmind/broker/internal/gateway"
)

// suppressBannerTools lists tools that never get the piggyback banner:
// check_messages already returns the queue itself, and list_active_agents
// and get_all_todos take no calling session to look a queue up for.
var suppressBannerTools = map[string]struct{}{
	"check_messages":     {},
	"list_active_agents": {},
	"get_all_todos":      {},
}

// heartbeatRefreshTools maps every state-mutating tool that names a
// session_name (spec §4.1) to the argument key that session_name is passed
// under. register_agent and heartbeat set the heartbeat themselves;
// unregister_agent deletes it as part of reaping, so both are left out.
var heartbeatRefreshTools = map[string]string{
	"add_todo":             "session_name",
	"update_todo":          "session_name",
	"mark_task_completed":  "session_name",
	"announce_file_change": "session_name",
	"release_file_lock":    "session_name",
	"register_interface":   "session_name",
	"broadcast_message":    "session_name",
	"query_agent":          "from_session",
	"respond_to_query":     "from_session",
}

// HeartbeatRefreshMiddleware keeps a busy agent's liveness TTL alive even
// when it skips explicit heartbeat calls: any state-mutating tool whose
// arguments name a session_name refreshes that session's heartbeat before
// the handler runs. A session that isn't registered is left alone rather
// than resurrected.
func HeartbeatRefreshMiddleware(svc *app.Service) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if argKey, ok := heartbeatRefreshTools[req.Params.Name]; ok {
				args := req.GetArguments()
				projectID := stringArg(args, "project_id")
				sessionName := stringArg(args, argKey)
				if projectID != "" && sessionName != "" {
					_ = svc.RefreshHeartbeat(ctx, projectID, sessionName)
				}
			}
			return next(ctx, req)
		}
	}
}

// PiggybackMiddleware appends a short unread-queue notice to a tool result
// when the calling session has messages waiting, so an agent that forgets to
// poll check_messages still notices. It never mutates state (a plain LLen,
// not a drain) and never turns a successful call into a failed one.
func PiggybackMiddleware(svc *app.Service) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result, err := next(ctx, req)
			if err != nil || result == nil || result.IsError {
				return result, err
			}

			if _, suppress := suppressBannerTools[req.Params.Name]; suppress {
				return result, nil
			}

			args := req.GetArguments()
			projectID := stringArg(args, "project_id")
			sessionName := stringArg(args, "session_name")
			if sessionName == "" {
				sessionName = stringArg(args, "from_session")
			}
			if projectID == "" || sessionName == "" {
				return result, nil
			}

			n, err := svc.GW.Store.LLen(ctx, gateway.QueueKey(projectID, sessionName))
			if err != nil || n == 0 {
				return result, nil
			}

			banner := fmt.Sprintf("\n\n[%d message(s) waiting — call check_messages]", n)
			appendBannerToResult(result, banner)
			return result, nil
		}
	}
}

func appendBannerToResult(result *mcp.CallToolResult, banner string) {
	for i := len(result.Content) - 1; i >= 0; i-- {
		if tc, ok := result.Content[i].(mcp.TextContent); ok {
			result.Content[i] = mcp.TextContent{
				Annotated: tc.Annotated,
				Type:      "text",
				Text:      tc.Text + banner,
			}
			return
		}
	}
	result.Content = append(result.Content, mcp.TextContent{Type: "text", Text: banner})
}
