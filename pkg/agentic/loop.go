package agentic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kadirpekel/agentrt/pkg/budget"
	"github.com/kadirpekel/agentrt/pkg/contextstore"
	"github.com/kadirpekel/agentrt/pkg/llmprovider"
	"github.com/kadirpekel/agentrt/pkg/logger"
	"github.com/kadirpekel/agentrt/pkg/tool"
)

// clarifyTool is the special tool name that transitions the loop
// directly to Terminated with a clarification_needed event.
const clarifyTool = "clarify"

// State is one state of the agentic loop's FSM.
type State string

const (
	StateIdle                State = "Idle"
	StateAwaitingLLM          State = "AwaitingLLM"
	StateProcessingResponse   State = "ProcessingResponse"
	StateAwaitingToolResults  State = "AwaitingToolResults"
	StateTerminated           State = "Terminated"
)

// Config bounds one loop's behavior.
type Config struct {
	MaxIterations      int // >= 1, default 10
	PerTurnTimeout     time.Duration
	RetriesPerToolCall int // >= 0, default 3
	Model              string
	MaxResponseTokens  int
	Temperature        float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{MaxIterations: 10, RetriesPerToolCall: 3, MaxResponseTokens: 1024}
}

// Loop drives one session's think-act-observe cycle. A Loop is not
// safe for concurrent RunTurn calls: it is single-owner, one turn at a
// time (sub-agent delegation builds a fresh Loop per inner turn
// instead of sharing one).
type Loop struct {
	store      *contextstore.Context
	planner    *budget.Planner
	dispatcher *tool.Dispatcher
	provider   llmprovider.Provider
	cfg        Config
	log        *slog.Logger
	state      State
}

// New builds a Loop over the given session components.
func New(store *contextstore.Context, planner *budget.Planner, dispatcher *tool.Dispatcher, provider llmprovider.Provider, cfg Config, log *slog.Logger) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 10
	}
	return &Loop{
		store:      store,
		planner:    planner,
		dispatcher: dispatcher,
		provider:   provider,
		cfg:        cfg,
		log:        logger.OrDefault(log),
		state:      StateIdle,
	}
}

// State returns the loop's current FSM state.
func (l *Loop) State() State { return l.state }

// RunTurn runs one user turn to completion, returning a bounded,
// lazily-drained event channel. The caller must drain it to completion
// or cancel ctx; the loop never buffers unboundedly and blocks on
// emission until the consumer reads.
func (l *Loop) RunTurn(ctx context.Context, userMessage string) <-chan Event {
	events := make(chan Event, 8)

	go func() {
		defer close(events)
		l.runTurn(ctx, userMessage, events)
	}()

	return events
}

func (l *Loop) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case events <- ev:
		return true
	default:
	}
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (l *Loop) runTurn(ctx context.Context, userMessage string, events chan<- Event) {
	if l.cfg.PerTurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.PerTurnTimeout)
		defer cancel()
	}

	l.state = StateAwaitingLLM
	if _, err := l.store.Append(contextstore.RoleUser, userMessage, "", ""); err != nil {
		l.emit(ctx, events, Event{Kind: EventFailed, Cause: err})
		l.state = StateTerminated
		return
	}
	l.emit(ctx, events, Event{Kind: EventThinking})

	metrics := Metrics{}
	retryCounts := make(map[string]int)

	for iteration := 0; iteration < l.cfg.MaxIterations; iteration++ {
		if cancelled, cause := checkCancel(ctx); cancelled {
			l.emit(ctx, events, Event{Kind: EventFailed, Cause: cause})
			l.state = StateTerminated
			return
		}

		prepared, err := l.planner.Plan(ctx, l.store)
		if err != nil {
			l.emit(ctx, events, Event{Kind: EventFailed, Cause: err})
			l.state = StateTerminated
			return
		}

		if cancelled, cause := checkCancel(ctx); cancelled {
			l.emit(ctx, events, Event{Kind: EventFailed, Cause: cause})
			l.state = StateTerminated
			return
		}

		l.state = StateAwaitingLLM
		text, toolCalls, usage, err := l.invokeProvider(ctx, prepared, events)
		if err != nil {
			l.emit(ctx, events, Event{Kind: EventFailed, Cause: fmt.Errorf("%w: %v", ErrLLMProvider, err)})
			l.state = StateTerminated
			return
		}
		metrics.PromptTokens += usage.PromptTokens
		metrics.CompletionTokens += usage.CompletionTokens

		l.state = StateProcessingResponse
		tags, visible := parseResponse(text)
		for _, tag := range []ReasoningTag{TagAnalyze, TagPlan, TagObserve, TagDecide, TagSummarize} {
			if body, ok := tags[tag]; ok && body != "" {
				l.emit(ctx, events, Event{Kind: EventReasoning, Tag: tag, Text: body})
			}
		}

		if visible != "" {
			if _, err := l.store.Append(contextstore.RoleAssistant, visible, "", ""); err != nil {
				l.emit(ctx, events, Event{Kind: EventFailed, Cause: err})
				l.state = StateTerminated
				return
			}
		}

		if len(toolCalls) == 0 && visible != "" {
			l.emit(ctx, events, Event{Kind: EventComplete, Summary: visible, Metrics: metrics})
			l.state = StateTerminated
			return
		}

		if clarify, ok := findClarify(toolCalls); ok {
			l.emit(ctx, events, Event{Kind: EventClarificationNeeded, Questions: extractQuestions(clarify)})
			l.state = StateTerminated
			return
		}

		l.state = StateAwaitingToolResults
		metrics.ToolCalls += len(toolCalls)
		for _, call := range toolCalls {
			if cancelled, cause := checkCancel(ctx); cancelled {
				l.emit(ctx, events, Event{Kind: EventFailed, Cause: cause})
				l.state = StateTerminated
				return
			}
			l.runToolCall(ctx, call, retryCounts, events)
		}

		if cancelled, cause := checkCancel(ctx); cancelled {
			l.emit(ctx, events, Event{Kind: EventFailed, Cause: cause})
			l.state = StateTerminated
			return
		}
	}

	l.emit(ctx, events, Event{Kind: EventFailed, Cause: ErrMaxIterationsExceeded})
	l.state = StateTerminated
}

func checkCancel(ctx context.Context) (bool, error) {
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return true, ErrTimeout
		}
		return true, ErrCancelled
	default:
		return false, nil
	}
}

func (l *Loop) invokeProvider(ctx context.Context, prepared budget.Prepared, events chan<- Event) (text string, toolCalls []llmprovider.ToolCallRequest, usage llmprovider.Usage, err error) {
	messages := make([]llmprovider.Message, 0, len(prepared.Messages))
	for _, m := range prepared.Messages {
		messages = append(messages, llmprovider.Message{Role: string(m.Role), Content: m.Content})
	}

	toolSpecs := make([]llmprovider.ToolSpec, 0, len(l.dispatcher.Descriptors()))
	for _, d := range l.dispatcher.Descriptors() {
		toolSpecs = append(toolSpecs, llmprovider.ToolSpec{Name: d.Name, Description: d.Description, SchemaJSON: d.SchemaJSON})
	}

	opts := llmprovider.Options{Model: l.cfg.Model, MaxTokens: l.cfg.MaxResponseTokens, Temperature: l.cfg.Temperature}

	stream, err := l.provider.Generate(ctx, messages, toolSpecs, opts)
	if err != nil {
		return "", nil, llmprovider.Usage{}, err
	}

	callsByID := make(map[string]*llmprovider.ToolCallRequest)
	var order []string

	for {
		chunk, ok := stream.Next()
		if !ok {
			break
		}
		switch chunk.Kind {
		case llmprovider.ChunkText:
			if chunk.TextDelta != "" {
				text += chunk.TextDelta
				l.emit(ctx, events, Event{Kind: EventThinking, Text: chunk.TextDelta})
			}
		case llmprovider.ChunkToolCall:
			if chunk.ToolCall != nil {
				if _, seen := callsByID[chunk.ToolCall.ID]; !seen {
					order = append(order, chunk.ToolCall.ID)
				}
				callsByID[chunk.ToolCall.ID] = chunk.ToolCall
			}
		case llmprovider.ChunkUsage:
			if chunk.Usage != nil {
				usage = *chunk.Usage
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", nil, usage, err
	}

	for _, id := range order {
		toolCalls = append(toolCalls, *callsByID[id])
	}
	return text, toolCalls, usage, nil
}

func findClarify(calls []llmprovider.ToolCallRequest) (llmprovider.ToolCallRequest, bool) {
	for _, c := range calls {
		if c.Name == clarifyTool {
			return c, true
		}
	}
	return llmprovider.ToolCallRequest{}, false
}

func extractQuestions(call llmprovider.ToolCallRequest) []string {
	var payload struct {
		Questions []string `json:"questions"`
	}
	_ = json.Unmarshal([]byte(call.ArgumentsJSON), &payload)
	return payload.Questions
}

// runToolCall dispatches one tool call, applying the per-turn transient
// retry cap silently before surfacing a single acting/observing event
// pair, and appends the tool-result message to the context store.
func (l *Loop) runToolCall(ctx context.Context, call llmprovider.ToolCallRequest, retryCounts map[string]int, events chan<- Event) {
	var input map[string]any
	_ = json.Unmarshal([]byte(call.ArgumentsJSON), &input)

	l.store.RegisterToolCall(call.ID)
	l.emit(ctx, events, Event{Kind: EventActing, ToolName: call.Name, ToolInput: input, ToolCallID: call.ID})

	signature := call.Name + "|" + call.ArgumentsJSON

	result, err := l.dispatcher.Dispatch(ctx, call.Name, input)
	for err != nil && errors.Is(err, tool.ErrToolTransient) && retryCounts[signature] < l.cfg.RetriesPerToolCall {
		retryCounts[signature]++
		result, err = l.dispatcher.Dispatch(ctx, call.Name, input)
	}
	if err != nil && errors.Is(err, tool.ErrToolTransient) {
		err = fmt.Errorf("%w (retries exhausted): %v", tool.ErrToolExecutionError, err)
	}

	obsEvent := Event{Kind: EventObserving, ToolName: call.Name, ToolCallID: call.ID}
	var resultContent string
	if err != nil {
		obsEvent.ObservingError = err
		resultContent = err.Error()
	} else {
		obsEvent.ObservingResult = result.Output
		resultJSON, marshalErr := json.Marshal(result.Output)
		if marshalErr == nil {
			resultContent = string(resultJSON)
		}
	}
	l.emit(ctx, events, obsEvent)

	if _, appendErr := l.store.AppendToolResult(call.ID, call.Name, resultContent); appendErr != nil {
		l.log.Warn("agentic: failed to append tool result", "tool", call.Name, "error", appendErr)
	}
}
