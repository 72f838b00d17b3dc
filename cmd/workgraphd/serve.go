package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/workgraph/core/internal/config"
	"github.com/workgraph/core/internal/noteschema"
	"github.com/workgraph/core/internal/observability"
	"github.com/workgraph/core/internal/rpc"
	"github.com/workgraph/core/internal/storage/sqlite"
	"github.com/workgraph/core/internal/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestration core, dispatching newline-delimited tool requests on stdin",
	Long: `Wires storage, the note-schema source, the workflow engine, and the
tool handlers together, then reads one JSON {"tool":...,"args":{...}} request
per line from stdin and writes one response envelope per line to stdout.
The actual MCP framing is an external transport's concern; this
is the local harness for exercising the same dispatch seam.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	shutdown, err := observability.Setup(os.Stderr)
	if err != nil {
		return fmt.Errorf("starting observability: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	store, err := sqlite.Open(rootCtx, cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	schemas, err := noteschema.Load(cfg.NoteSchema.Path, log)
	if err != nil {
		return fmt.Errorf("loading note schema: %w", err)
	}

	engine := workflow.NewEngine(store, schemas)
	engine.MaxCascadeDepth = cfg.Engine.MaxCascadeDepth

	handlers := rpc.NewHandlers(store, engine, schemas, log)
	handlers.MaxChainDepth = cfg.Engine.MaxChainDepth

	log.Info("workgraphd serving", "db", cfg.Database.Path, "noteSchema", cfg.NoteSchema.Path)
	return serveLoop(rootCtx, handlers, os.Stdin, os.Stdout, log)
}

// toolRequest is one line of the stdin protocol.
type toolRequest struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

func serveLoop(ctx context.Context, handlers *rpc.Handlers, in *os.File, out *os.File, log *slog.Logger) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req toolRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Warn("malformed request line", "error", err)
			continue
		}

		env := handlers.Dispatch(ctx, req.Tool, req.Args)
		if err := encoder.Encode(env); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
	return scanner.Err()
}
