package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agentrt/pkg/hooks"
)

func echoHandler(_ context.Context, input map[string]any) (Result, error) {
	return Result{Success: true, Output: input}, nil
}

func TestDispatchUnknownTool(t *testing.T) {
	d := NewDispatcher(hooks.NewManager(10, nil, nil), nil)
	_, err := d.Dispatch(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestDispatchInvalidInput(t *testing.T) {
	schema, err := CompileSchema("search.json", `{
		"type": "object",
		"properties": {"query": {"type": "string"}},
		"required": ["query"]
	}`)
	require.NoError(t, err)

	d := NewDispatcher(hooks.NewManager(10, nil, nil), nil)
	d.Register(&Descriptor{Name: "search", Schema: schema, Handler: echoHandler})

	_, err = d.Dispatch(context.Background(), "search", map[string]any{})
	assert.ErrorIs(t, err, ErrToolInvalidInput)
}

func TestDispatchSuccess(t *testing.T) {
	d := NewDispatcher(hooks.NewManager(10, nil, nil), nil)
	d.Register(&Descriptor{Name: "echo", Handler: echoHandler})

	res, err := d.Dispatch(context.Background(), "echo", map[string]any{"x": "y"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, map[string]any{"x": "y"}, res.Output)
}

func TestDispatchHookBlocks(t *testing.T) {
	mgr := hooks.NewManager(10, nil, nil)
	mgr.Register(hooks.PhasePreToolUse, func(hc *hooks.Context) (hooks.Outcome, error) {
		if hc.ToolName == "dangerous" {
			return hooks.Block("policy"), nil
		}
		return hooks.Pass(), nil
	})

	d := NewDispatcher(mgr, nil)
	called := false
	d.Register(&Descriptor{Name: "dangerous", Handler: func(ctx context.Context, input map[string]any) (Result, error) {
		called = true
		return Result{Success: true}, nil
	}})

	_, err := d.Dispatch(context.Background(), "dangerous", map[string]any{})
	assert.ErrorIs(t, err, ErrHookBlocked)
	assert.False(t, called, "blocked dispatch must not invoke the handler")
}

func TestDispatchRewritesInputBeforeHandler(t *testing.T) {
	mgr := hooks.NewManager(10, nil, nil)
	mgr.Register(hooks.PhasePreToolUse, func(hc *hooks.Context) (hooks.Outcome, error) {
		return hooks.Rewrite(map[string]any{"query": "rewritten"}), nil
	})

	d := NewDispatcher(mgr, nil)
	d.Register(&Descriptor{Name: "search", Handler: echoHandler})

	res, err := d.Dispatch(context.Background(), "search", map[string]any{"query": "original"})
	require.NoError(t, err)
	assert.Equal(t, "rewritten", res.Output.(map[string]any)["query"])
}

func TestDispatchClassifiesTransientError(t *testing.T) {
	d := NewDispatcher(hooks.NewManager(10, nil, nil), nil)
	d.Register(&Descriptor{Name: "flaky", Handler: func(ctx context.Context, input map[string]any) (Result, error) {
		return Result{}, Transient(errors.New("timeout"))
	}})

	_, err := d.Dispatch(context.Background(), "flaky", map[string]any{})
	assert.ErrorIs(t, err, ErrToolTransient)
}

func TestDispatchClassifiesExecutionError(t *testing.T) {
	d := NewDispatcher(hooks.NewManager(10, nil, nil), nil)
	d.Register(&Descriptor{Name: "broken", Handler: func(ctx context.Context, input map[string]any) (Result, error) {
		return Result{}, errors.New("boom")
	}})

	_, err := d.Dispatch(context.Background(), "broken", map[string]any{})
	assert.ErrorIs(t, err, ErrToolExecutionError)
}

func TestDispatchRecordsMetrics(t *testing.T) {
	mgr := hooks.NewManager(10, nil, nil)
	d := NewDispatcher(mgr, nil)
	d.Register(&Descriptor{Name: "echo", Handler: echoHandler})

	_, err := d.Dispatch(context.Background(), "echo", map[string]any{})
	require.NoError(t, err)

	agg := mgr.Metrics().Snapshot("echo")
	assert.Equal(t, 1, agg.CallCount)
	assert.Equal(t, 0, agg.ErrorCount)
}
