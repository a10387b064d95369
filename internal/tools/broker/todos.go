package broker

import (
	"context"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/splitmind/broker/internal/app"
	"github.com/splitmind/broker/internal/domain"
)

func registerAddTodo(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("add_todo",
			mcp.WithDescription("Append an item to your own todo list."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithString("session_name", mcp.Required(), mcp.Description("Your session identifier")),
			mcp.WithString("todo_item", mcp.Required(), mcp.Description("Text describing the work item")),
			mcp.WithNumber("priority", mcp.Description("Relative priority, stored with the item; lists keep insertion order (default 0)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			res, err := svc.AddTodo(ctx, app.AddTodoParams{
				ProjectID:   stringArg(args, "project_id"),
				SessionName: stringArg(args, "session_name"),
				Text:        stringArg(args, "todo_item"),
				Priority:    intArg(args, "priority", 0),
			})
			if err != nil {
				return resultFromError(err)
			}
			return resultJSON(res)
		},
	)
}

func registerUpdateTodo(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("update_todo",
			mcp.WithDescription("Update the status of one of your todo items."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithString("session_name", mcp.Required(), mcp.Description("Your session identifier")),
			mcp.WithNumber("todo_id", mcp.Required(), mcp.Description("The todo's numeric id, as returned by add_todo/get_my_todos")),
			mcp.WithString("status", mcp.Required(), mcp.Description("One of pending, in_progress, completed, blocked")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			status, err := svc.UpdateTodo(ctx, app.UpdateTodoParams{
				ProjectID:   stringArg(args, "project_id"),
				SessionName: stringArg(args, "session_name"),
				TodoID:      intArg(args, "todo_id", 0),
				Status:      domain.TodoStatus(stringArg(args, "status")),
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

func registerGetMyTodos(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("get_my_todos",
			mcp.WithDescription("Return your own todo list."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithString("session_name", mcp.Required(), mcp.Description("Your session identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			res, err := svc.GetMyTodos(ctx, stringArg(args, "project_id"), stringArg(args, "session_name"))
			if err != nil {
				return resultFromError(err)
			}
			return resultJSON(res)
		},
	)
}

func registerGetAllTodos(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("get_all_todos",
			mcp.WithDescription("Return every active agent's todo list with summary counts, keyed by session_name."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			res, err := svc.GetAllTodos(ctx, stringArg(args, "project_id"))
			if err != nil {
				return resultFromError(err)
			}
			return resultJSON(res)
		},
	)
}
