package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/agentrt/pkg/hooks"
	"github.com/kadirpekel/agentrt/pkg/logger"
)

var tracer = otel.Tracer("github.com/kadirpekel/agentrt/pkg/tool")

// Dispatcher resolves tool names to descriptors, validates input,
// drives the hooks pipeline around invocation, and produces a typed
// result.
type Dispatcher struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
	hooksMgr    *hooks.Manager
	log         *slog.Logger
}

// NewDispatcher builds a Dispatcher backed by the given hooks manager
// (never nil in practice; pass hooks.NewManager(0, nil, nil) for a
// no-op pipeline).
func NewDispatcher(hooksMgr *hooks.Manager, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		descriptors: make(map[string]*Descriptor),
		hooksMgr:    hooksMgr,
		log:         logger.OrDefault(log),
	}
}

// Register adds or replaces a tool descriptor.
func (d *Dispatcher) Register(desc *Descriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.descriptors[desc.Name] = desc
}

// Descriptors lists the currently registered tool descriptors.
func (d *Dispatcher) Descriptors() []*Descriptor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Descriptor, 0, len(d.descriptors))
	for _, desc := range d.descriptors {
		out = append(out, desc)
	}
	return out
}

// Dispatch runs the full contract: lookup, schema validation,
// pre-tool-use, invocation, post-tool-use, and error classification.
func (d *Dispatcher) Dispatch(ctx context.Context, toolName string, input map[string]any) (Result, error) {
	d.mu.RLock()
	desc, ok := d.descriptors[toolName]
	d.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, toolName)
	}

	spanCtx, span := tracer.Start(ctx, "tool.dispatch",
		trace.WithAttributes(attribute.String("tool.name", toolName)))
	defer span.End()

	if desc.Schema != nil {
		if err := desc.Schema.Validate(input); err != nil {
			span.RecordError(err)
			return Result{}, fmt.Errorf("%w: %s: %v", ErrToolInvalidInput, toolName, err)
		}
	}

	runsPhase := func(phase hooks.Phase) bool {
		if desc.Phases == nil {
			return true
		}
		for _, p := range desc.Phases {
			if p == phase {
				return true
			}
		}
		return false
	}

	effectiveInput := input
	if d.hooksMgr != nil && runsPhase(hooks.PhasePreToolUse) {
		pre := d.hooksMgr.Trigger(&hooks.Context{
			Phase:     hooks.PhasePreToolUse,
			ToolName:  toolName,
			ToolInput: effectiveInput,
		})
		if pre.Blocked {
			return Result{Success: false, Reason: pre.Reason}, fmt.Errorf("%w: %s", ErrHookBlocked, pre.Reason)
		}
		if pre.ModifiedInput != nil {
			effectiveInput = pre.ModifiedInput
		}
	}

	start := time.Now()
	result, handlerErr := desc.Handler(spanCtx, effectiveInput)
	duration := time.Since(start)

	if d.hooksMgr != nil {
		postCtx := &hooks.Context{
			Phase:     hooks.PhasePostToolUse,
			ToolName:  toolName,
			ToolInput: effectiveInput,
			Duration:  duration,
		}
		if handlerErr != nil {
			postCtx.Err = handlerErr
		} else {
			postCtx.ToolResult = result.Output
		}
		if runsPhase(hooks.PhasePostToolUse) {
			d.hooksMgr.Trigger(postCtx)
		}
		d.hooksMgr.Metrics().Record(toolName, duration, handlerErr != nil)
	}

	if handlerErr != nil {
		span.RecordError(handlerErr)
		classified := d.classify(toolName, handlerErr)
		if d.hooksMgr != nil {
			d.hooksMgr.Trigger(&hooks.Context{
				Phase:     hooks.PhaseError,
				ToolName:  toolName,
				ToolInput: effectiveInput,
				Err:       classified,
				Duration:  duration,
			})
		}
		return Result{Success: false, Reason: handlerErr.Error()}, classified
	}

	return result, nil
}

func (d *Dispatcher) classify(toolName string, err error) error {
	var transient *TransientError
	if errors.As(err, &transient) {
		return fmt.Errorf("%w: %s: %v", ErrToolTransient, toolName, transient.Unwrap())
	}
	return fmt.Errorf("%w: %s: %v", ErrToolExecutionError, toolName, err)
}
