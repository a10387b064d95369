package broker

import (
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/splitmind/broker/internal/app"
)

// Register wires all 19 coordination tools onto s.
func Register(s *server.MCPServer, svc *app.Service, logger *log.Logger) {
	// Registration and presence (4)
	registerRegisterAgent(s, svc, logger)
	registerHeartbeat(s, svc, logger)
	registerUnregisterAgent(s, svc, logger)
	registerListActiveAgents(s, svc, logger)

	// Completion (1)
	registerMarkTaskCompleted(s, svc, logger)

	// Todos (4)
	registerAddTodo(s, svc, logger)
	registerUpdateTodo(s, svc, logger)
	registerGetMyTodos(s, svc, logger)
	registerGetAllTodos(s, svc, logger)

	// Messaging (4)
	registerQueryAgent(s, svc, logger)
	registerCheckMessages(s, svc, logger)
	registerRespondToQuery(s, svc, logger)
	registerBroadcastMessage(s, svc, logger)

	// File locks and change log (3)
	registerAnnounceFileChange(s, svc, logger)
	registerReleaseFileLock(s, svc, logger)
	registerGetRecentChanges(s, svc, logger)

	// Interface registry (3)
	registerRegisterInterface(s, svc, logger)
	registerQueryInterface(s, svc, logger)
	registerListInterfaces(s, svc, logger)
}
