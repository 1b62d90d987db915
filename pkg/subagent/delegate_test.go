package subagent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agentrt/pkg/hooks"
	"github.com/kadirpekel/agentrt/pkg/llmprovider"
	"github.com/kadirpekel/agentrt/pkg/tool"
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

// scriptedProvider returns one scripted stream per Generate call, in
// order: the first call is the reasoning phase, subsequent calls drive
// the execution-phase inner loop.
type scriptedProvider struct {
	turns []*scriptedStream
	idx   int
}

func (p *scriptedProvider) Generate(ctx context.Context, messages []llmprovider.Message, tools []llmprovider.ToolSpec, opts llmprovider.Options) (llmprovider.Stream, error) {
	s := p.turns[p.idx]
	p.idx++
	return s, nil
}

func noopDispatcherFor(Contract) *tool.Dispatcher {
	return tool.NewDispatcher(hooks.NewManager(10, nil, nil), nil)
}

func TestRunProceedsThroughExecutionPhase(t *testing.T) {
	provider := &scriptedProvider{turns: []*scriptedStream{
		{chunks: []llmprovider.Chunk{
			{Kind: llmprovider.ChunkText, TextDelta: "<analysis>ok</analysis><decision>PROCEED</decision>"},
		}},
		{chunks: []llmprovider.Chunk{
			{Kind: llmprovider.ChunkText, TextDelta: "done delegating"},
		}},
	}}

	d := NewDelegate(provider, noopDispatcherFor, nil, nil, nil)
	envelope := d.Run(context.Background(), Contract{
		ContractID: "c1",
		AgentType:  "researcher",
		Task:       "summarize the region",
	})

	require.NoError(t, envelope.Err)
	assert.True(t, envelope.Success)
	assert.Equal(t, "done delegating", envelope.Summary)
	assert.Equal(t, "c1", envelope.ContractID)
}

func TestRunBlockedInReasoningPhaseShortCircuits(t *testing.T) {
	provider := &scriptedProvider{turns: []*scriptedStream{
		{chunks: []llmprovider.Chunk{
			{Kind: llmprovider.ChunkText, TextDelta: "<decision>BLOCK: missing required input</decision>"},
		}},
	}}

	d := NewDelegate(provider, noopDispatcherFor, nil, nil, nil)
	envelope := d.Run(context.Background(), Contract{ContractID: "c2", Task: "do something underspecified"})

	assert.False(t, envelope.Success)
	assert.Equal(t, "missing required input", envelope.Summary)
	require.Error(t, envelope.Err)
	assert.Equal(t, 1, provider.idx, "execution phase must not run after a block")
}

func TestRunToolCallDuringExecutionPhaseProducesEntityID(t *testing.T) {
	provider := &scriptedProvider{turns: []*scriptedStream{
		{chunks: []llmprovider.Chunk{
			{Kind: llmprovider.ChunkText, TextDelta: "<decision>PROCEED</decision>"},
		}},
		{chunks: []llmprovider.Chunk{
			{Kind: llmprovider.ChunkToolCall, ToolCall: &llmprovider.ToolCallRequest{ID: "call-1", Name: "create_widget", ArgumentsJSON: `{}`}},
		}},
		{chunks: []llmprovider.Chunk{
			{Kind: llmprovider.ChunkText, TextDelta: "created it"},
		}},
	}}

	dispatcherFor := func(Contract) *tool.Dispatcher {
		disp := tool.NewDispatcher(hooks.NewManager(10, nil, nil), nil)
		disp.Register(&tool.Descriptor{Name: "create_widget", Handler: func(ctx context.Context, input map[string]any) (tool.Result, error) {
			return tool.Result{Success: true, Output: map[string]any{"id": "widget-42"}}, nil
		}})
		return disp
	}

	d := NewDelegate(provider, dispatcherFor, nil, nil, nil)
	envelope := d.Run(context.Background(), Contract{ContractID: "c3", Task: "create a widget"})

	assert.True(t, envelope.Success)
	assert.Contains(t, envelope.EntityIDs, "widget-42")
}

// stagelessProvider is safe for concurrent Generate calls: it tells the
// reasoning phase from the execution phase by inspecting the prompt
// text rather than tracking call order in shared mutable state.
type stagelessProvider struct{}

func (stagelessProvider) Generate(ctx context.Context, messages []llmprovider.Message, tools []llmprovider.ToolSpec, opts llmprovider.Options) (llmprovider.Stream, error) {
	if len(messages) > 0 && strings.Contains(messages[0].Content, "Produce <analysis>") {
		return &scriptedStream{chunks: []llmprovider.Chunk{
			{Kind: llmprovider.ChunkText, TextDelta: "<decision>PROCEED</decision>"},
		}}, nil
	}
	return &scriptedStream{chunks: []llmprovider.Chunk{
		{Kind: llmprovider.ChunkText, TextDelta: "ok"},
	}}, nil
}

func TestRunParallelRunsAllContractsIndependently(t *testing.T) {
	d := NewDelegate(stagelessProvider{}, noopDispatcherFor, nil, nil, nil)
	contracts := []Contract{
		{ContractID: "a", Task: "task a"},
		{ContractID: "b", Task: "task b"},
		{ContractID: "c", Task: "task c"},
	}

	envelopes := RunParallel(context.Background(), d, contracts, 2)

	require.Len(t, envelopes, 3)
	for i, c := range contracts {
		assert.Equal(t, c.ContractID, envelopes[i].ContractID)
		assert.True(t, envelopes[i].Success)
	}
}
