package broker

import (
	"context"
	"log"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/splitmind/broker/internal/app"
)

func registerRegisterAgent(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("register_agent",
			mcp.WithDescription("Register as a participant in a project. Call this once before using any other coordination tool. Returns the other agents currently active in the project."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace shared by every coordinating agent")),
			mcp.WithString("session_name", mcp.Required(), mcp.Description("Your unique session identifier within the project")),
			mcp.WithString("task_id", mcp.Description("The task you are working on, if known")),
			mcp.WithString("branch", mcp.Description("Git branch you are working from")),
			mcp.WithString("description", mcp.Description("Short human-readable summary of what you're doing")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			res, err := svc.RegisterAgent(ctx, app.RegisterAgentParams{
				ProjectID:   stringArg(args, "project_id"),
				SessionName: stringArg(args, "session_name"),
				TaskID:      stringArg(args, "task_id"),
				Branch:      stringArg(args, "branch"),
				Description: stringArg(args, "description"),
			})
			if err != nil {
				return resultFromError(err)
			}
			logger.Printf("register_agent: %s joined %s", stringArg(args, "session_name"), stringArg(args, "project_id"))
			return resultJSON(res)
		},
	)
}

func registerHeartbeat(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("heartbeat",
			mcp.WithDescription("Signal liveness. Call this every 30-60 seconds while active; agents that stop heartbeating are reaped by the liveness monitor."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithString("session_name", mcp.Required(), mcp.Description("Your session identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			status, err := svc.Heartbeat(ctx, app.HeartbeatParams{
				ProjectID:   stringArg(args, "project_id"),
				SessionName: stringArg(args, "session_name"),
			})
			if err != nil {
				return resultFromError(err)
			}
			return resultJSON(struct {
				Status    string    `json:"status"`
				Timestamp time.Time `json:"timestamp"`
			}{Status: status, Timestamp: time.Now()})
		},
	)
}

func registerUnregisterAgent(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("unregister_agent",
			mcp.WithDescription("Leave the project: releases your file locks, clears your queue and todos, and broadcasts your departure to the others."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithString("session_name", mcp.Required(), mcp.Description("Your session identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			res, err := svc.UnregisterAgent(ctx, stringArg(args, "project_id"), stringArg(args, "session_name"))
			if err != nil {
				return resultFromError(err)
			}
			logger.Printf("unregister_agent: %s left %s", stringArg(args, "session_name"), stringArg(args, "project_id"))
			return resultJSON(res)
		},
	)
}

func registerListActiveAgents(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("list_active_agents",
			mcp.WithDescription("List every agent with a live heartbeat in the project."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			list, err := svc.ListActiveAgents(ctx, stringArg(args, "project_id"))
			if err != nil {
				return resultFromError(err)
			}
			return resultJSON(struct {
				Status string                `json:"status"`
				Agents []app.ActiveAgentView `json:"agents"`
			}{Status: "ok", Agents: list})
		},
	)
}
