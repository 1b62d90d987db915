package agentic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agentrt/pkg/budget"
	"github.com/kadirpekel/agentrt/pkg/contextstore"
	"github.com/kadirpekel/agentrt/pkg/hooks"
	"github.com/kadirpekel/agentrt/pkg/llmprovider"
	"github.com/kadirpekel/agentrt/pkg/tool"
	"github.com/kadirpekel/agentrt/pkg/tokenest"
)

// scriptedStream replays a fixed list of chunks, ignoring context.
type scriptedStream struct {
	chunks []llmprovider.Chunk
	idx    int
}

func (s *scriptedStream) Next() (llmprovider.Chunk, bool) {
	if s.idx >= len(s.chunks) {
		return llmprovider.Chunk{}, false
	}
	c := s.chunks[s.idx]
	s.idx++
	return c, true
}
func (s *scriptedStream) Err() error { return nil }
func (s *scriptedStream) Abort()     {}

// scriptedProvider returns one scripted stream per call, in order.
type scriptedProvider struct {
	turns []*scriptedStream
	idx   int
}

func (p *scriptedProvider) Generate(ctx context.Context, messages []llmprovider.Message, tools []llmprovider.ToolSpec, opts llmprovider.Options) (llmprovider.Stream, error) {
	s := p.turns[p.idx]
	p.idx++
	return s, nil
}

func testBudget() contextstore.BudgetDescriptor {
	return contextstore.BudgetDescriptor{
		Ceiling:              50000,
		ResponseReserve:      500,
		ToolReserve:          200,
		RecentTurnsCount:     5,
		CompressionThreshold: 0.8,
		EvictionThreshold:    0.95,
	}
}

func newTestLoop(t *testing.T, provider llmprovider.Provider) (*Loop, *tool.Dispatcher) {
	t.Helper()
	store, err := contextstore.NewContext("you are a helpful agent", testBudget(), tokenest.NewCharHeuristic())
	require.NoError(t, err)

	planner := budget.NewPlanner(nil, nil)
	dispatcher := tool.NewDispatcher(hooks.NewManager(10, nil, nil), nil)

	loop := New(store, planner, dispatcher, provider, Config{MaxIterations: 5, RetriesPerToolCall: 3}, nil)
	return loop, dispatcher
}

func drain(events <-chan Event) []Event {
	var out []Event
	for e := range events {
		out = append(out, e)
	}
	return out
}

func TestRunTurnChatNoTools(t *testing.T) {
	provider := &scriptedProvider{turns: []*scriptedStream{
		{chunks: []llmprovider.Chunk{
			{Kind: llmprovider.ChunkText, TextDelta: "hello there"},
			{Kind: llmprovider.ChunkUsage, Usage: &llmprovider.Usage{PromptTokens: 10, CompletionTokens: 5}},
		}},
	}}
	loop, _ := newTestLoop(t, provider)

	events := drain(loop.RunTurn(context.Background(), "hello"))

	require.NotEmpty(t, events)
	assert.Equal(t, EventThinking, events[0].Kind)
	last := events[len(events)-1]
	assert.Equal(t, EventComplete, last.Kind)
	assert.Equal(t, "hello there", last.Summary)
	assert.Equal(t, StateTerminated, loop.State())
}

func TestRunTurnSingleToolCall(t *testing.T) {
	provider := &scriptedProvider{turns: []*scriptedStream{
		{chunks: []llmprovider.Chunk{
			{Kind: llmprovider.ChunkToolCall, ToolCall: &llmprovider.ToolCallRequest{ID: "call-1", Name: "echo", ArgumentsJSON: `{"x":"y"}`}},
		}},
		{chunks: []llmprovider.Chunk{
			{Kind: llmprovider.ChunkText, TextDelta: "done"},
		}},
	}}
	loop, dispatcher := newTestLoop(t, provider)
	dispatcher.Register(&tool.Descriptor{Name: "echo", Handler: func(ctx context.Context, input map[string]any) (tool.Result, error) {
		return tool.Result{Success: true, Output: input}, nil
	}})

	events := drain(loop.RunTurn(context.Background(), "add blue box"))

	var kinds []EventKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, EventActing)
	assert.Contains(t, kinds, EventObserving)
	assert.Equal(t, EventComplete, events[len(events)-1].Kind)
}

func TestRunTurnMaxIterationsOne(t *testing.T) {
	provider := &scriptedProvider{turns: []*scriptedStream{
		{chunks: []llmprovider.Chunk{
			{Kind: llmprovider.ChunkToolCall, ToolCall: &llmprovider.ToolCallRequest{ID: "call-1", Name: "echo", ArgumentsJSON: `{}`}},
		}},
	}}
	store, err := contextstore.NewContext("system", testBudget(), tokenest.NewCharHeuristic())
	require.NoError(t, err)
	planner := budget.NewPlanner(nil, nil)
	dispatcher := tool.NewDispatcher(hooks.NewManager(10, nil, nil), nil)
	dispatcher.Register(&tool.Descriptor{Name: "echo", Handler: func(ctx context.Context, input map[string]any) (tool.Result, error) {
		return tool.Result{Success: true}, nil
	}})
	loop := New(store, planner, dispatcher, provider, Config{MaxIterations: 1}, nil)

	events := drain(loop.RunTurn(context.Background(), "hi"))
	last := events[len(events)-1]
	assert.Equal(t, EventFailed, last.Kind)
	assert.ErrorIs(t, last.Cause, ErrMaxIterationsExceeded)
}

func TestRunTurnCancellation(t *testing.T) {
	provider := &scriptedProvider{turns: []*scriptedStream{{}}}
	loop, _ := newTestLoop(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := drain(loop.RunTurn(ctx, "hi"))
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventFailed, last.Kind)
	assert.ErrorIs(t, last.Cause, ErrCancelled)
}

func TestRunTurnTimeout(t *testing.T) {
	provider := &scriptedProvider{turns: []*scriptedStream{{}}}
	loop, _ := newTestLoop(t, provider)
	loop.cfg.PerTurnTimeout = time.Nanosecond

	time.Sleep(time.Millisecond)
	events := drain(loop.RunTurn(context.Background(), "hi"))
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventFailed, last.Kind)
	assert.ErrorIs(t, last.Cause, ErrTimeout)
}

func TestReasoningTagsEmitAsEvents(t *testing.T) {
	provider := &scriptedProvider{turns: []*scriptedStream{
		{chunks: []llmprovider.Chunk{
			{Kind: llmprovider.ChunkText, TextDelta: "<analyze>looking at the request</analyze>final answer"},
		}},
	}}
	loop, _ := newTestLoop(t, provider)

	events := drain(loop.RunTurn(context.Background(), "hi"))

	var sawReasoning bool
	for _, e := range events {
		if e.Kind == EventReasoning && e.Tag == TagAnalyze {
			sawReasoning = true
			assert.Equal(t, "looking at the request", e.Text)
		}
	}
	assert.True(t, sawReasoning)

	last := events[len(events)-1]
	assert.Equal(t, EventComplete, last.Kind)
	assert.Equal(t, "final answer", last.Summary)
}
