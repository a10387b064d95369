package broker

import (
	"context"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/splitmind/broker/internal/app"
)

func registerRegisterInterface(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("register_interface",
			mcp.WithDescription("Publish a shared type/contract definition so other agents can look it up by name."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithString("session_name", mcp.Required(), mcp.Description("Your session identifier")),
			mcp.WithString("interface_name", mcp.Required(), mcp.Description("The name other agents will query by")),
			mcp.WithString("definition", mcp.Required(), mcp.Description("The interface/type definition text")),
			mcp.WithString("file_path", mcp.Description("Where the definition lives, if applicable")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			status, err := svc.RegisterInterface(ctx, app.RegisterInterfaceParams{
				ProjectID:    stringArg(args, "project_id"),
				Name:         stringArg(args, "interface_name"),
				Definition:   stringArg(args, "definition"),
				RegisteredBy: stringArg(args, "session_name"),
				FilePath:     stringArg(args, "file_path"),
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

func registerQueryInterface(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("query_interface",
			mcp.WithDescription("Look up a registered interface by name. On a miss, returns fuzzy suggestions (Levenshtein distance <=3 or a shared 3-gram)."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
			mcp.WithString("interface_name", mcp.Required(), mcp.Description("The name to look up")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			res, err := svc.QueryInterface(ctx, stringArg(args, "project_id"), stringArg(args, "interface_name"))
			if err != nil {
				return resultFromError(err)
			}
			return resultJSON(res)
		},
	)
}

func registerListInterfaces(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("list_interfaces",
			mcp.WithDescription("List every interface registered in the project."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project namespace")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			res, err := svc.ListInterfaces(ctx, stringArg(args, "project_id"))
			if err != nil {
				return resultFromError(err)
			}
			return resultJSON(res)
		},
	)
}
