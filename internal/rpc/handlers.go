package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/workgraph/core/internal/noteschema"
	"github.com/workgraph/core/internal/observability"
	"github.com/workgraph/core/internal/storage"
	"github.com/workgraph/core/internal/workflow"
)

// Handlers is the tool-handler façade: every operation is
// parameter-validated and returns a uniform Envelope. It holds no
// connection state of its own — storage.Storage and noteschema.Source carry
// whatever pooling or caching they need.
type Handlers struct {
	Store         storage.Storage
	Engine        *workflow.Engine
	Schemas       noteschema.Source
	Log           *slog.Logger
	MaxChainDepth int
}

// NewHandlers wires a Handlers from its collaborators, defaulting
// MaxChainDepth to a conservative bound on dependency-chain walks.
func NewHandlers(store storage.Storage, engine *workflow.Engine, schemas noteschema.Source, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{Store: store, Engine: engine, Schemas: schemas, Log: log, MaxChainDepth: 25}
}

// Dispatch routes one tool invocation by name, the in-process seam an
// external MCP transport layer calls into. Every call is traced and
// counted.
func (h *Handlers) Dispatch(ctx context.Context, tool string, args json.RawMessage) Envelope {
	ctx, span := observability.Tracer.Start(ctx, "rpc.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("workgraph.tool", tool)),
	)
	start := time.Now()
	observability.Metrics.Calls.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))

	env := h.dispatch(ctx, tool, args)

	observability.Metrics.CallDurationMs.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("tool", tool)))

	var dispatchErr error
	if !env.Success {
		code := ""
		if env.Error != nil {
			code = string(env.Error.Code)
			dispatchErr = errors.New(env.Error.Message)
		}
		observability.Metrics.Failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("code", code),
		))
		span.SetAttributes(attribute.String("workgraph.error_code", code))
	}
	observability.EndSpan(span, dispatchErr)
	return env
}

func (h *Handlers) dispatch(ctx context.Context, tool string, args json.RawMessage) Envelope {
	switch tool {
	case "manage_items":
		return h.ManageItems(ctx, args)
	case "query_items":
		return h.QueryItems(ctx, args)
	case "manage_dependencies":
		return h.ManageDependencies(ctx, args)
	case "query_dependencies":
		return h.QueryDependencies(ctx, args)
	case "manage_notes":
		return h.ManageNotes(ctx, args)
	case "advance_item":
		return h.AdvanceItem(ctx, args)
	case "complete_tree":
		return h.CompleteTree(ctx, args)
	case "get_next_item":
		return h.GetNextItem(ctx, args)
	case "get_blocked_items":
		return h.GetBlockedItems(ctx, args)
	default:
		return fail(CodeValidation, "unknown tool: "+tool, nil)
	}
}
