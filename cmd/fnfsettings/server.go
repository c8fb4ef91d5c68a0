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
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/fnfsettings/internal/api"
	"github.com/kalambet/fnfsettings/internal/config"
	"github.com/kalambet/fnfsettings/internal/settings"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the settings HTTP API and MCP tools (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and store status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", true, "serve MCP tools over stdin/stdout")
}

// stdio is the transport for the MCP server.
type stdio struct {
	in  io.Reader
	out io.Writer
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "fnfsettings version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Ensure API token exists in platform secret store.
	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := openService(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing settings store: %v\n", err)
		}
	}()

	// A failed open is retried on the next request.
	if err := svc.EnsureReady(ctx); err != nil {
		slog.Warn("settings store not ready, serving defaults until it opens", "error", err)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	ln, err := listen(addr, cfg.Server.MaxConns)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "fnfsettings listening on %s\n", addr)

	var mcpIO *stdio
	if withMCP {
		mcpIO = &stdio{in: os.Stdin, out: os.Stdout}
	}
	err = serve(ctx, ln, svc, apiToken, mcpIO)
	fmt.Fprintln(os.Stderr, "shut down")
	return err
}

// listen opens addr, capping concurrent connections at maxConns when it is
// positive.
func listen(addr string, maxConns int) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	return ln, nil
}

// serve runs the HTTP API on ln, and the MCP server on mcpIO when it is not
// nil, until ctx is cancelled or the HTTP server fails.
func serve(ctx context.Context, ln net.Listener, svc *settings.Service, token string, mcpIO *stdio) error {
	srv := &http.Server{
		Handler:           api.NewHandler(api.Deps{Settings: svc, Token: token}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if mcpIO != nil {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Settings: svc, Version: version})
		g.Go(func() error {
			// The MCP client closing stdin does not stop the HTTP API.
			if err := server.NewStdioServer(mcpSrv).Listen(gctx, mcpIO.in, mcpIO.out); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	g.Go(func() error {
		<-gctx.Done()
		// Graceful shutdown with timeout.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Backend", "%s", cfg.Store.Backend)
	path := cfg.SettingsPath()
	if info, err := os.Stat(path); err == nil {
		printStatus("Settings", "%s (%d bytes)", path, info.Size())
	} else {
		printStatus("Settings", "%s (not created yet)", path)
	}

	if running {
		c, err := newAPIClient(cfg)
		if err == nil {
			if s, err := (&remoteBackend{client: c}).All(context.Background()); err == nil {
				printStatus("Theme", "%s", s.Theme)
			} else {
				printStatus("API", "%v", err)
			}
		}
	}
	return nil
}
