// Package openai adapts github.com/sashabaranov/go-openai to the
// llmprovider.Provider boundary.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	openaisdk "github.com/sashabaranov/go-openai"

	"github.com/kadirpekel/agentrt/pkg/llmprovider"
)

// Provider streams chat completions through the OpenAI API.
type Provider struct {
	client *openaisdk.Client
}

// New builds a Provider from an API key. For custom base URLs (Azure,
// local gateways) build the openaisdk.Client yourself and use NewWithClient.
func New(apiKey string) *Provider {
	return &Provider{client: openaisdk.NewClient(apiKey)}
}

// NewWithClient wraps an already-configured go-openai client.
func NewWithClient(client *openaisdk.Client) *Provider {
	return &Provider{client: client}
}

func toChatMessages(messages []llmprovider.Message) []openaisdk.ChatCompletionMessage {
	out := make([]openaisdk.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openaisdk.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func toTools(tools []llmprovider.ToolSpec) []openaisdk.Tool {
	out := make([]openaisdk.Tool, len(tools))
	for i, t := range tools {
		var params map[string]any
		_ = json.Unmarshal([]byte(t.SchemaJSON), &params)
		out[i] = openaisdk.Tool{
			Type: openaisdk.ToolTypeFunction,
			Function: &openaisdk.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		}
	}
	return out
}

// Generate streams a chat completion, translating SSE deltas into the
// provider-agnostic Chunk sequence.
func (p *Provider) Generate(ctx context.Context, messages []llmprovider.Message, tools []llmprovider.ToolSpec, opts llmprovider.Options) (llmprovider.Stream, error) {
	req := openaisdk.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    toChatMessages(messages),
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
		Stream:      true,
	}
	if len(tools) > 0 {
		req.Tools = toTools(tools)
	}
	if len(opts.StopConditions) > 0 {
		req.Stop = opts.StopConditions
	}

	sdkStream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return &stream{sdkStream: sdkStream, calls: make(map[int]*llmprovider.ToolCallRequest)}, nil
}

type stream struct {
	sdkStream *openaisdk.ChatCompletionStream
	calls     map[int]*llmprovider.ToolCallRequest
	err       error
	aborted   bool
}

func (s *stream) Next() (llmprovider.Chunk, bool) {
	if s.aborted {
		return llmprovider.Chunk{}, false
	}

	resp, err := s.sdkStream.Recv()
	if errors.Is(err, io.EOF) {
		return llmprovider.Chunk{}, false
	}
	if err != nil {
		s.err = err
		return llmprovider.Chunk{}, false
	}
	if len(resp.Choices) == 0 {
		return llmprovider.Chunk{Kind: llmprovider.ChunkText}, true
	}

	choice := resp.Choices[0]

	for _, tc := range choice.Delta.ToolCalls {
		idx := 0
		if tc.Index != nil {
			idx = *tc.Index
		}
		call, ok := s.calls[idx]
		if !ok {
			call = &llmprovider.ToolCallRequest{ID: tc.ID, Name: tc.Function.Name}
			s.calls[idx] = call
		}
		call.ArgumentsJSON += tc.Function.Arguments
	}

	if resp.Usage != nil {
		return llmprovider.Chunk{
			Kind: llmprovider.ChunkUsage,
			Usage: &llmprovider.Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				FinishReason:     string(choice.FinishReason),
			},
		}, true
	}

	if choice.Delta.Content != "" {
		return llmprovider.Chunk{Kind: llmprovider.ChunkText, TextDelta: choice.Delta.Content}, true
	}

	if choice.FinishReason == openaisdk.FinishReasonToolCalls {
		for _, call := range s.calls {
			return llmprovider.Chunk{Kind: llmprovider.ChunkToolCall, ToolCall: call}, true
		}
	}

	return llmprovider.Chunk{Kind: llmprovider.ChunkText}, true
}

func (s *stream) Err() error { return s.err }

func (s *stream) Abort() {
	s.aborted = true
	s.sdkStream.Close()
}
