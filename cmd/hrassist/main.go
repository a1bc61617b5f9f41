// Hrassist is the agentic assistant service behind the Deriv HR
// administration dashboard.
//
// It exposes a small HTTP API the dashboard frontend talks to, plus a
// CLI for one-shot questions and policy document ingestion.
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	hrassist serve              Start the API server
//	hrassist ask <question>     Ask a single question (for testing)
//	hrassist ingest <dir>       Import markdown policy documents
//	hrassist version            Print version and build information
//	hrassist -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/agent"
	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/api"
	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/backend"
	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/buildinfo"
	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/config"
	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/ingest"
	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/llm"
	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/prompts"
	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/tools"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the hrassist command. All OS-level
// dependencies are injected as parameters: ctx controls process
// lifetime (cancelling it triggers graceful shutdown), stdout and
// stderr receive program output, and args is os.Args[1:].
//
// Arguments are parsed by hand. The flag package relies on
// package-level globals (flag.CommandLine), which makes it impossible
// to call run() concurrently from tests, and the argument surface here
// is small enough that manual parsing is clearer than a CLI framework.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: hrassist ask <question>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "ingest":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: hrassist ingest <dir>")
		}
		return runIngest(ctx, stdout, configPath, cmdArgs[0])
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Hrassist - HR Dashboard Assistant Service")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: hrassist [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  ingest       Import markdown policy documents")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/hrassist/config.yaml, /etc/hrassist/config.yaml")
	return nil
}

// runAsk handles "hrassist ask <question>". It boots the full tool
// chain against the configured database and processes a single
// question, printing the reply and any emitted intents to stdout.
// Useful for smoke tests and debugging without starting the server.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(stdout, logLevel(cfg))
	logger.Info("config loaded", "path", cfgPath)

	question := strings.Join(args, " ")

	store, err := backend.NewStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("open backend database %s: %w", cfg.Database, err)
	}
	defer store.Close()

	if n, err := store.SeedIfEmpty(ctx); err != nil {
		return fmt.Errorf("seed backend: %w", err)
	} else if n > 0 {
		logger.Info("backend seeded", "records", n)
	}

	loop, _, err := buildLoop(cfg, store, logger)
	if err != nil {
		return err
	}

	result, err := loop.Run(ctx, nil, question, "/")
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, result.Reply)
	for _, intent := range result.Intents {
		b, _ := json.Marshal(intent)
		fmt.Fprintf(stdout, "intent: %s\n", b)
	}
	return nil
}

// runIngest handles "hrassist ingest <dir>". It parses the markdown
// policy documents in dir into titled sections and replaces the policy
// subtree of the backend store with them.
func runIngest(ctx context.Context, stdout io.Writer, configPath string, dir string) error {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(stdout, logLevel(cfg))
	logger.Info("config loaded", "path", cfgPath)

	store, err := backend.NewStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("open backend database %s: %w", cfg.Database, err)
	}
	defer store.Close()

	ingester := ingest.NewMarkdownIngester(store)
	count, err := ingester.IngestDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	logger.Info("ingestion complete", "sections", count, "dir", dir)
	fmt.Fprintf(stdout, "Ingested %d policy sections from %s\n", count, dir)
	return nil
}

// runServe handles "hrassist serve". It is the primary operating mode:
// loads config, opens the backend database (seeding it on first run),
// ingests policy documents if configured, wires the model gateway and
// tool registry into the orchestration loop, starts the API server,
// and blocks until a shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(stdout, logLevel(cfg))
	logger.Info("starting hrassist",
		"version", buildinfo.Version,
		"commit", buildinfo.GitCommit,
		"built", buildinfo.BuildTime,
	)
	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.Gemini.Model,
		"database", cfg.Database,
	)

	store, err := backend.NewStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("open backend database %s: %w", cfg.Database, err)
	}
	defer store.Close()

	if n, err := store.SeedIfEmpty(ctx); err != nil {
		return fmt.Errorf("seed backend: %w", err)
	} else if n > 0 {
		logger.Info("backend seeded", "records", n)
	}

	// Optional: refresh the policy knowledge base from markdown files
	// on every startup so edits to the documents take effect.
	if cfg.PoliciesDir != "" {
		ingester := ingest.NewMarkdownIngester(store)
		count, err := ingester.IngestDir(ctx, cfg.PoliciesDir)
		if err != nil {
			return fmt.Errorf("ingest policies from %s: %w", cfg.PoliciesDir, err)
		}
		logger.Info("policy documents ingested", "sections", count, "dir", cfg.PoliciesDir)
	}

	loop, registry, err := buildLoop(cfg, store, logger)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, loop, registry, logger)

	// NotifyContext wraps the parent context so that SIGINT/SIGTERM
	// cancellation flows through the same ctx used by all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.Start(); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("hrassist stopped")
	return nil
}

// buildLoop wires the model gateway and tool registry into an
// orchestration loop. The registry is validated here so that a
// malformed tool definition fails the process at startup rather than
// surfacing as a broken conversation later.
func buildLoop(cfg *config.Config, store *backend.Store, logger *slog.Logger) (*agent.Loop, *tools.Registry, error) {
	registry := tools.NewRegistry(store)
	if err := registry.Validate(); err != nil {
		return nil, nil, fmt.Errorf("tool registry: %w", err)
	}

	client := llm.NewClient(llm.Config{
		APIKey:          cfg.Gemini.APIKey,
		BaseURL:         cfg.Gemini.BaseURL,
		Model:           cfg.Gemini.Model,
		Temperature:     cfg.Gemini.Temperature,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		Timeout:         time.Duration(cfg.Gemini.TimeoutSec) * time.Second,
	}, logger)

	if cfg.Gemini.APIKey == "" {
		logger.Warn("no Gemini API key configured, chat requests will fail until GEMINI_API_KEY is set")
	}

	facts := prompts.Facts{
		Company:  cfg.Company.Name,
		Operator: cfg.Company.Operator,
	}
	return agent.NewLoop(logger, client, registry, facts), registry, nil
}

// newLogger creates a structured text logger writing to w at the given
// level. All log output goes through slog; this helper standardizes the
// handler configuration across subcommands.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// logLevel resolves the configured log level, defaulting to info when
// unset or unparseable.
func logLevel(cfg *config.Config) slog.Level {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// loadConfig locates and parses the YAML configuration file. An
// explicit path must exist; otherwise [config.FindConfig] searches the
// default locations, and built-in defaults apply when nothing is found
// (the API key still comes from GEMINI_API_KEY).
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, "", err
		}
		cfg := config.Default()
		if cfg.Gemini.APIKey == "" {
			cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
		}
		return cfg, "(defaults)", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
