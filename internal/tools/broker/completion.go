package broker

import (
	"context"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/splitmind/broker/internal/app"
)

func registerMarkTaskCompleted(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("mark_task_completed",
			mcp.WithDescription("Record that your task is done: flips your agent status to completed and writes a best-effort status-file marker for filesystem-polling orchestrators."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithString("session_name", mcp.Required(), mcp.Description("Your session identifier")),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("The task being marked complete")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			status, err := svc.MarkTaskCompleted(ctx, app.MarkTaskCompletedParams{
				ProjectID:   stringArg(args, "project_id"),
				SessionName: stringArg(args, "session_name"),
				TaskID:      stringArg(args, "task_id"),
			})
			if err != nil {
				return resultFromError(err)
			}
			return resultJSON(struct {
				Status  string `json:"status"`
				Message string `json:"message"`
			}{Status: status, Message: "task " + stringArg(args, "task_id") + " marked completed"})
		},
	)
}
