package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mycare-ai/intake/internal/api"
	"github.com/mycare-ai/intake/internal/config"
	"github.com/mycare-ai/intake/internal/conversation"
	"github.com/mycare-ai/intake/internal/gateway"
	"github.com/mycare-ai/intake/internal/record"
	"github.com/mycare-ai/intake/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"start"},
	Short:   "Start the intake server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running intake server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show intake system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP over stdio")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "intake.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func setupLogging(cfg config.LogConfig, w io.Writer) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

func openStorage(cfg config.StorageConfig) (*storage.Store, error) {
	if cfg.DSN != "" {
		return storage.Open(cfg.DSN)
	}
	return storage.Open(cfg.DataDir)
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "intake version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log, os.Stderr)

	// Refuse to start twice on the same port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(serverURL(cfg) + "/health"); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("intake is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("intake is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printStep("Opening storage")
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()
	slog.Info("storage ready", "dialect", store.Dialect())

	agent, err := gateway.New(cfg.Agent)
	if err != nil {
		return fmt.Errorf("configuring agent: %w", err)
	}
	printStep("Using %s agent backend", cfg.Agent.Backend)

	manager := conversation.NewManager(conversation.NewStore(), agent, record.NewRecorder(store))

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewHandler(api.Deps{
			Manager:        manager,
			Tools:          store,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	worker := record.NewWorker(store, 500*time.Millisecond)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Manager: manager, Tools: store})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "intake listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// Restore default signal handling so a second Ctrl-C exits at once.
	stop()
	drainAgentCalls(manager, 5*time.Second)
	return err
}

// drainAgentCalls waits up to timeout for outstanding agent calls so their
// answers still get recorded, then gives up on the rest.
func drainAgentCalls(manager *conversation.Manager, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := manager.WaitContext(ctx); err != nil {
		slog.Warn("abandoning in-flight agent calls", "count", manager.InFlight(), "error", err)
	}
}

func stopServer() error {
	cfg, err := config.LoadUnchecked()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("intake is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop intake (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to intake (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.LoadUnchecked()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := newClient(serverURL(cfg), &http.Client{Timeout: 2 * time.Second})

	running := false
	var health map[string]string
	if err := client.get(ctx, "/health", &health); err != nil {
		printStatus("Server", "stopped")
	} else {
		running = true
		printStatus("Server", "running on %s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	printStatus("Agent", "%s", cfg.Agent.Backend)
	switch cfg.Agent.Backend {
	case config.BackendWebhook:
		printStatus("Webhook", "%s", orUnset(cfg.Agent.WebhookURL))
	case config.BackendLLM:
		printStatus("Model", "%s", cfg.Agent.Model)
	}
	if err := cfg.Validate(); err != nil {
		printWarning("%v", err)
	}

	if running {
		var recs []map[string]any
		if err := client.get(ctx, "/api/tools", &recs); err == nil {
			printStatus("Tool records", "%d", len(recs))
		}
		var chats api.ChatList
		if err := client.get(ctx, "/api/chats", &chats); err == nil {
			printStatus("Chats", "%d", len(chats.Chats))
		}
	}

	if cfg.Storage.DSN != "" {
		printStatus("Database", "postgres")
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
