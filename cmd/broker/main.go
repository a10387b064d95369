// Coordination broker MCP server. Stdio transport only: each agent session
// speaks MCP over its own stdin/stdout, so the broker does not multiplex
// multiple clients behind one process the way a driver+worker HTTP server
// would.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/splitmind/broker/internal/app"
	"github.com/splitmind/broker/internal/gateway"
	"github.com/splitmind/broker/internal/policy"
	"github.com/splitmind/broker/internal/store"
	"github.com/splitmind/broker/internal/store/memorystore"
	"github.com/splitmind/broker/internal/store/redisstore"
	"github.com/splitmind/broker/internal/store/sqlitestore"
	"github.com/splitmind/broker/internal/tools/broker"
)

// Version is set by -ldflags at build time.
var Version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "status":
			runStatusCommand()
			return
		case "--version", "-v", "version":
			fmt.Println("splitmind-broker " + Version)
			return
		}
	}

	logger := log.New(os.Stderr, "[broker] ", log.LstdFlags)

	cfg := loadConfig(logger)
	pol := policy.New(cfg)

	st, err := openStore(pol.StoreURL())
	if err != nil {
		logger.Fatalf("open store %s: %v", pol.StoreURL(), err)
	}
	st = store.WithRetry(st)

	gw := gateway.New(st, pol.MaxQueueLen(), pol.RecentChangesCap())
	svc := app.NewService(gw, pol, logger)

	mcpServer := server.NewMCPServer(
		"splitmind-broker",
		Version,
		server.WithInstructions("Coordination broker for a fleet of AI coding agents sharing one project: presence, todos, synchronous queries, file locks and an interface registry."),
		server.WithToolHandlerMiddleware(broker.HeartbeatRefreshMiddleware(svc)),
		server.WithToolHandlerMiddleware(broker.PiggybackMiddleware(svc)),
	)
	broker.Register(mcpServer, svc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signal.Ignore(syscall.SIGHUP)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	monitor := app.NewLivenessMonitor(svc, logger)
	go monitor.Start(ctx)

	watcher := app.NewConfigWatcher(os.Getenv("BROKER_CONFIG"), pol, logger)
	go watcher.Start(ctx)

	logger.Printf("stdio ready (store=%s, heartbeat_timeout=%s)", pol.StoreURL(), pol.HeartbeatTimeout())
	stdioSrv := server.NewStdioServer(mcpServer)
	err = stdioSrv.Listen(ctx, os.Stdin, os.Stdout)

	cancel()
	monitor.Stop()
	watcher.Stop()
	if closeErr := st.Close(); closeErr != nil {
		logger.Printf("warning: close store: %v", closeErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("stdio server stopped: %v", err)
		os.Exit(1)
	}
	logger.Println("server stopped")
}

// openStore dispatches on the URL scheme: redis:// for a shared Redis
// deployment, sqlite:// (or a bare filesystem path) for a durable single-box
// store, memory:// (or empty) for the zero-config in-process default used in
// tests and single-session setups.
func openStore(storeURL string) (store.Store, error) {
	switch {
	case strings.HasPrefix(storeURL, "redis://"), strings.HasPrefix(storeURL, "rediss://"):
		return redisstore.New(storeURL)
	case strings.HasPrefix(storeURL, "sqlite://"):
		return sqlitestore.New(strings.TrimPrefix(storeURL, "sqlite://"))
	case storeURL == "", storeURL == "memory://":
		return memorystore.New(), nil
	default:
		return sqlitestore.New(storeURL)
	}
}

func loadConfig(logger *log.Logger) *policy.Config {
	configPath := os.Getenv("BROKER_CONFIG")
	cfg, err := policy.LoadConfig(configPath)
	if err != nil {
		logger.Printf("warning: failed to load config %s: %v, using defaults", configPath, err)
		cfg, _ = policy.LoadConfig("")
	}
	return cfg
}

// runStatusCommand prints a one-line summary for `broker status <project_id>
// <session_name>`, read directly off the store without starting the MCP
// server: how many messages are waiting and how many todos are still open.
func runStatusCommand() {
	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "usage: broker status <project_id> <session_name>")
		os.Exit(1)
	}
	projectID := os.Args[2]
	sessionName := os.Args[3]

	logger := log.New(os.Stderr, "", 0)
	cfg := loadConfig(logger)
	pol := policy.New(cfg)

	st, err := openStore(pol.StoreURL())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()

	unread, err := st.LLen(ctx, gateway.QueueKey(projectID, sessionName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	todos, err := st.LRange(ctx, gateway.TodosKey(projectID, sessionName), 0, -1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	pending := 0
	for _, raw := range todos {
		if strings.Contains(raw, `"status":"pending"`) || strings.Contains(raw, `"status":"in_progress"`) {
			pending++
		}
	}

	fmt.Printf("unread=%d pending=%d\n", unread, pending)
}
