package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
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

	"github.com/verasca/lociq/internal/answer"
	"github.com/verasca/lociq/internal/archive"
	"github.com/verasca/lociq/internal/cloud"
	"github.com/verasca/lociq/internal/config"
	"github.com/verasca/lociq/internal/conversation"
	"github.com/verasca/lociq/internal/generator"
	"github.com/verasca/lociq/internal/httpapi"
	"github.com/verasca/lociq/internal/ollama"
	"github.com/verasca/lociq/internal/webui"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the lociq server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running lociq server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show lociq system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "lociq.pid")
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

// buildGenerator selects the answer backend from config. Either backend
// verifies it is reachable first; ollama additionally pulls a missing model.
func buildGenerator(ctx context.Context, cfg config.Config) (generator.Generator, error) {
	switch cfg.Generator.Backend {
	case config.BackendOllama:
		client := ollama.New(cfg.Ollama.BaseURL)
		if err := ollama.EnsureReady(ctx, client, cfg.Ollama.Model, os.Stderr); err != nil {
			return nil, err
		}
		return generator.NewOllamaBackend(client, cfg.Ollama.Model), nil
	case config.BackendCloud:
		client := cloud.NewClient(cfg.Cloud.APIKey)
		if err := cloud.EnsureReady(ctx, client, cfg.Cloud.Model, os.Stderr); err != nil {
			return nil, err
		}
		return generator.NewCloudBackend(client, cfg.Cloud.Model), nil
	default:
		return nil, fmt.Errorf("unknown generator backend %q", cfg.Generator.Backend)
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "lociq version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	apiToken, err := config.GetAPIToken(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("lociq is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("lociq is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := buildGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	slog.Info("generator ready", "backend", cfg.Generator.Backend)

	arch, err := archive.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer func() {
		if err := arch.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing archive: %v\n", err)
		}
	}()

	// The conversation always starts from the seed turn; the archive only
	// records history for the management surfaces.
	store := conversation.NewStore(conversation.DefaultSeed())
	pipe := answer.NewPipeline(gen, store, arch, cfg.GeneratorTimeout())
	nav := webui.NewNavigator(store)

	handler := httpapi.NewHandler(httpapi.Deps{
		Store:     store,
		Pipeline:  pipe,
		Navigator: nav,
		Archive:   arch,
		Token:     apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := httpapi.NewMCPServer(httpapi.MCPDeps{
		Store:    store,
		Pipeline: pipe,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "lociq listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("lociq is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop lociq (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to lociq (PID %d)", pid)
	return nil
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

	var serverUp, ollamaUp bool

	// Probe the server and the local engine in parallel.
	var g errgroup.Group
	g.Go(func() error {
		resp, err := client.Get(serverURL + "/health")
		if err == nil {
			resp.Body.Close()
			serverUp = resp.StatusCode == 200
		}
		return nil
	})
	g.Go(func() error {
		resp, err := client.Get(cfg.Ollama.BaseURL + "/api/version")
		if err == nil {
			resp.Body.Close()
			ollamaUp = true
		}
		return nil
	})
	g.Wait()

	if serverUp {
		printStatus("Server", "running on port %d", cfg.Server.Port)
	} else {
		printStatus("Server", "stopped")
	}

	printStatus("Backend", "%s", cfg.Generator.Backend)
	switch cfg.Generator.Backend {
	case config.BackendOllama:
		if ollamaUp {
			printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
		} else {
			printStatus("Ollama", "not running")
		}
		printStatus("Model", "%s", cfg.Ollama.Model)
	case config.BackendCloud:
		printStatus("Model", "%s", cfg.Cloud.Model)
	}

	// Show conversation and history counts if server is running.
	if serverUp {
		apiToken, tokenErr := config.GetAPIToken(cfg.Storage.DataDir)

		var turns, history []json.RawMessage
		archivedTotal := -1
		var sg errgroup.Group
		sg.Go(func() error {
			resp, err := client.Get(serverURL + "/v1/turns")
			if err != nil {
				return nil
			}
			defer resp.Body.Close()
			json.NewDecoder(resp.Body).Decode(&turns)
			return nil
		})
		if tokenErr == nil {
			sg.Go(func() error {
				resp, err := apiGet(client, serverURL+"/v1/history?limit=100", apiToken)
				if err != nil {
					return nil
				}
				defer resp.Body.Close()
				if total, err := strconv.Atoi(resp.Header.Get("X-Total-Count")); err == nil {
					archivedTotal = total
				}
				json.NewDecoder(resp.Body).Decode(&history)
				return nil
			})
		}
		sg.Wait()

		if turns != nil {
			printStatus("Turns", "%d", len(turns))
		}
		if archivedTotal >= 0 {
			printStatus("Archived", "%d", archivedTotal)
		} else if history != nil {
			// Older servers do not send the count header.
			printStatus("Archived", "%s", countLabel(len(history), 100))
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
