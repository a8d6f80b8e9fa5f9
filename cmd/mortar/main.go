// Command mortar is the operations binary for the mortar workflow
// engine. Applications embed the engine as a library; mortar gives
// operators a read-only window into what those applications recorded:
// an HTTP API, a live TUI and a pass history dump.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/mortar/internal/api"
	"github.com/mattjoyce/mortar/internal/config"
	"github.com/mattjoyce/mortar/internal/events"
	"github.com/mattjoyce/mortar/internal/lock"
	"github.com/mattjoyce/mortar/internal/log"
	"github.com/mattjoyce/mortar/internal/storage"
	"github.com/mattjoyce/mortar/internal/tui/watch"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "serve":
		return runServe(args)
	case "watch":
		return runWatch(args)
	case "history":
		return runHistory(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Println("Usage: mortar <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve      Serve the read-only observability API over a state database")
	fmt.Println("  watch      Live TUI showing passes, step logs and events")
	fmt.Println("  history    Print recent passes and their execution logs")
	fmt.Println("  version    Print version information")
	fmt.Println()
	fmt.Println("Run 'mortar <command> --help' for command flags.")
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if *jsonOut {
		info := versionInfo{Version: version, Commit: gitCommit, BuildTime: buildDate}
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal version info: %v\n", err)
			return 1
		}
		fmt.Println(string(out))
		return 0
	}

	fmt.Printf("mortar %s (commit %s, built %s)\n", version, gitCommit, buildDate)
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "mortar.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("mortar starting", "version", version, "config", *configPath, "config_hash", cfg.Fingerprint)

	stateLock, err := lock.Acquire(cfg.State.Path)
	if err != nil {
		logger.Error("failed to acquire state lock", "error", err)
		return 1
	}
	defer stateLock.Release()
	logger.Info("acquired state lock", "path", stateLock.Path())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.State.Path, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.State.Path)

	store := storage.New(db)
	hub := events.NewHub(256)

	if !cfg.API.Enabled {
		logger.Error("api.enabled is false; nothing to serve")
		return 1
	}

	apiServer := api.New(api.Config{
		Listen: cfg.API.Listen,
		APIKey: cfg.API.APIKey,
	}, store, hub, log.WithComponent("api"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
			errCh <- err
		}
	}()

	logger.Info("mortar running (press Ctrl+C to stop)", "listen", cfg.API.Listen)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("api server failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("mortar stopped")
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8080", "Observability API URL")
	apiKey := fs.String("api-key", os.Getenv("MORTAR_API_KEY"), "API bearer token")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	m := watch.New(*apiURL, *apiKey)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

func runHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "mortar.yaml", "Path to configuration file")
	limit := fs.Int("limit", 0, "Maximum passes to print (0 uses the configured default)")
	jsonOut := fs.Bool("json", false, "Output history as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *limit <= 0 {
		*limit = cfg.History.Limit
	}

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	store := storage.New(db)
	passes, err := store.ListPasses(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list passes: %v\n", err)
		return 1
	}

	if *jsonOut {
		return printHistoryJSON(ctx, store, passes)
	}
	return printHistoryText(ctx, store, passes)
}

func printHistoryText(ctx context.Context, store *storage.Store, passes []storage.Pass) int {
	if len(passes) == 0 {
		fmt.Println("No passes recorded.")
		return 0
	}

	for _, p := range passes {
		schedule := ""
		if p.Schedule != "" {
			schedule = fmt.Sprintf(" schedule=%s", p.Schedule)
		}
		fmt.Printf("%s  %s  %s%s  (%s)\n",
			p.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			p.Construct, p.Kind, schedule, p.ID)

		logs, err := store.ListExecutionLogs(ctx, p.ID, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list logs for pass %s: %v\n", p.ID, err)
			return 1
		}
		for _, l := range logs {
			line := fmt.Sprintf("    [%s] %s", l.Status, l.Pebble)
			if l.Error != "" {
				line += " error=" + l.Error
			}
			fmt.Println(line)
		}
	}
	return 0
}

func printHistoryJSON(ctx context.Context, store *storage.Store, passes []storage.Pass) int {
	type passWithLogs struct {
		Pass storage.Pass           `json:"pass"`
		Logs []storage.ExecutionLog `json:"logs"`
	}

	out := make([]passWithLogs, 0, len(passes))
	for _, p := range passes {
		logs, err := store.ListExecutionLogs(ctx, p.ID, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list logs for pass %s: %v\n", p.ID, err)
			return 1
		}
		out = append(out, passWithLogs{Pass: p, Logs: logs})
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal history: %v\n", err)
		return 1
	}
	fmt.Println(string(b))
	return 0
}
