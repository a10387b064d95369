package broker

import (
	"context"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/splitmind/broker/internal/app"
)

func registerQueryAgent(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("query_agent",
			mcp.WithDescription("Ask another agent a question and, by default, block until it responds or the timeout elapses."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithString("from_session", mcp.Required(), mcp.Description("Your session identifier")),
			mcp.WithString("to_session", mcp.Required(), mcp.Description("The session to query")),
			mcp.WithString("query_type", mcp.Description("Caller-defined category for the query")),
			mcp.WithString("query", mcp.Required(), mcp.Description("The question content")),
			mcp.WithBoolean("wait_for_response", mcp.Description("Block for a reply (default true)")),
			mcp.WithNumber("timeout", mcp.Description("Seconds to wait for a response (default 30, max 300)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			if !boolArg(args, "wait_for_response", true) {
				res, err := svc.QueryAgentAsync(ctx, app.QueryAgentParams{
					ProjectID: stringArg(args, "project_id"),
					From:      stringArg(args, "from_session"),
					To:        stringArg(args, "to_session"),
					QueryType: stringArg(args, "query_type"),
					Content:   stringArg(args, "query"),
				})
				if err != nil {
					return resultFromError(err)
				}
				return resultJSON(res)
			}
			res, err := svc.QueryAgent(ctx, app.QueryAgentParams{
				ProjectID:   stringArg(args, "project_id"),
				From:        stringArg(args, "from_session"),
				To:          stringArg(args, "to_session"),
				QueryType:   stringArg(args, "query_type"),
				Content:     stringArg(args, "query"),
				TimeoutSecs: intArg(args, "timeout", 0),
			})
			if err != nil {
				return resultFromError(err)
			}
			return resultJSON(res)
		},
	)
}

func registerRespondToQuery(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("respond_to_query",
			mcp.WithDescription("Reply to a query_agent call. Delivers directly to a still-waiting caller, or queues the reply for later if the caller already timed out."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithString("from_session", mcp.Required(), mcp.Description("Your session identifier")),
			mcp.WithString("to_session", mcp.Description("The original requester (informational; routing uses message_id)")),
			mcp.WithString("message_id", mcp.Required(), mcp.Description("The message_id from the query you're answering")),
			mcp.WithString("response", mcp.Required(), mcp.Description("Your answer")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			status, err := svc.RespondToQuery(ctx, app.RespondToQueryParams{
				ProjectID: stringArg(args, "project_id"),
				From:      stringArg(args, "from_session"),
				MessageID: stringArg(args, "message_id"),
				Content:   stringArg(args, "response"),
			})
			if err != nil {
				return resultFromError(err)
			}
			return resultJSON(struct {
				Status string `json:"status"`
			}{Status: status})
		},
	)
}

func registerBroadcastMessage(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("broadcast_message",
			mcp.WithDescription("Send content to every other active agent in the project."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithString("session_name", mcp.Required(), mcp.Description("Your session identifier")),
			mcp.WithString("message_type", mcp.Description("Caller-defined category for the message")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Message content")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			res, err := svc.BroadcastMessage(ctx, app.BroadcastMessageParams{
				ProjectID:   stringArg(args, "project_id"),
				From:        stringArg(args, "session_name"),
				MessageType: stringArg(args, "message_type"),
				Content:     stringArg(args, "content"),
			})
			if err != nil {
				return resultFromError(err)
			}
			return resultJSON(res)
		},
	)
}

func registerCheckMessages(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("check_messages",
			mcp.WithDescription("Drain your pending message queue: queries, responses, broadcasts, and system notices addressed to you."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithString("session_name", mcp.Required(), mcp.Description("Your session identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			res, err := svc.CheckMessages(ctx, stringArg(args, "project_id"), stringArg(args, "session_name"))
			if err != nil {
				return resultFromError(err)
			}
			return resultJSON(res)
		},
	)
}
