package broker

import (
	"context"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/splitmind/broker/internal/app"
)

func registerAnnounceFileChange(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("announce_file_change",
			mcp.WithDescription("Acquire (or renew) an advisory lock on a file path and log the change. Returns status=conflict with lock_info and a suggestion if another session already holds the file."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithString("session_name", mcp.Required(), mcp.Description("Your session identifier")),
			mcp.WithString("file_path", mcp.Required(), mcp.Description("Path of the file being changed")),
			mcp.WithString("change_type", mcp.Description("e.g. edit, create, delete")),
			mcp.WithString("description", mcp.Description("Short human-readable summary of the change")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			res, err := svc.AnnounceFileChange(ctx, app.AnnounceFileChangeParams{
				ProjectID:   stringArg(args, "project_id"),
				SessionName: stringArg(args, "session_name"),
				FilePath:    stringArg(args, "file_path"),
				ChangeType:  stringArg(args, "change_type"),
				Description: stringArg(args, "description"),
			})
			if err != nil {
				return resultFromError(err)
			}
			return resultJSON(res)
		},
	)
}

func registerReleaseFileLock(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("release_file_lock",
			mcp.WithDescription("Release your lock on a file path. A non-owner's release attempt fails without mutating state."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithString("session_name", mcp.Required(), mcp.Description("Your session identifier")),
			mcp.WithString("file_path", mcp.Required(), mcp.Description("Path of the file to unlock")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			status, err := svc.ReleaseFileLock(ctx, app.ReleaseFileLockParams{
				ProjectID:   stringArg(args, "project_id"),
				SessionName: stringArg(args, "session_name"),
				FilePath:    stringArg(args, "file_path"),
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

func registerGetRecentChanges(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("get_recent_changes",
			mcp.WithDescription("List the project's most recent file changes, newest first."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithNumber("limit", mcp.Description("Max entries to return (default 20)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			res, err := svc.GetRecentChanges(ctx, stringArg(args, "project_id"), intArg(args, "limit", 20))
			if err != nil {
				return resultFromError(err)
			}
			return resultJSON(res)
		},
	)
}
