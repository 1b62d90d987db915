// Package anthropic adapts github.com/anthropics/anthropic-sdk-go to the
// llmprovider.Provider boundary.
package anthropic

import (
	"context"
	"encoding/json"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kadirpekel/agentrt/pkg/llmprovider"
)

// Provider streams messages through the Anthropic API.
type Provider struct {
	client anthropicsdk.Client
}

// New builds a Provider from an API key.
func New(apiKey string) *Provider {
	return &Provider{client: anthropicsdk.NewClient(option.WithAPIKey(apiKey))}
}

func splitSystem(messages []llmprovider.Message) (system string, rest []llmprovider.Message) {
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

func toMessageParams(messages []llmprovider.Message) []anthropicsdk.MessageParam {
	out := make([]anthropicsdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropicsdk.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			out = append(out, anthropicsdk.NewAssistantMessage(block))
		} else {
			out = append(out, anthropicsdk.NewUserMessage(block))
		}
	}
	return out
}

func toToolParams(tools []llmprovider.ToolSpec) []anthropicsdk.ToolUnionParam {
	out := make([]anthropicsdk.ToolUnionParam, len(tools))
	for i, t := range tools {
		var schema map[string]any
		_ = json.Unmarshal([]byte(t.SchemaJSON), &schema)
		out[i] = anthropicsdk.ToolUnionParam{
			OfTool: &anthropicsdk.ToolParam{
				Name:        t.Name,
				Description: anthropicsdk.String(t.Description),
				InputSchema: anthropicsdk.ToolInputSchemaParam{Properties: schema},
			},
		}
	}
	return out
}

// Generate streams a message, translating SSE events into the
// provider-agnostic Chunk sequence.
func (p *Provider) Generate(ctx context.Context, messages []llmprovider.Message, tools []llmprovider.ToolSpec, opts llmprovider.Options) (llmprovider.Stream, error) {
	system, rest := splitSystem(messages)

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(opts.Model),
		MaxTokens: int64(opts.MaxTokens),
		Messages:  toMessageParams(rest),
	}
	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = toToolParams(tools)
	}

	sdkStream := p.client.Messages.NewStreaming(ctx, params)
	return &stream{sdkStream: sdkStream, message: &anthropicsdk.Message{}}, nil
}

type stream struct {
	sdkStream *anthropicsdk.MessageStream
	message   *anthropicsdk.Message
	err       error
	aborted   bool
	cancel    context.CancelFunc
}

func (s *stream) Next() (llmprovider.Chunk, bool) {
	if s.aborted {
		return llmprovider.Chunk{}, false
	}
	if !s.sdkStream.Next() {
		s.err = s.sdkStream.Err()
		return llmprovider.Chunk{}, false
	}

	event := s.sdkStream.Current()
	if err := s.message.Accumulate(event); err != nil {
		s.err = err
		return llmprovider.Chunk{}, false
	}

	switch variant := event.AsAny().(type) {
	case anthropicsdk.ContentBlockDeltaEvent:
		if delta, ok := variant.Delta.AsAny().(anthropicsdk.TextDelta); ok {
			return llmprovider.Chunk{Kind: llmprovider.ChunkText, TextDelta: delta.Text}, true
		}
	case anthropicsdk.ContentBlockStopEvent:
		block := s.message.Content[variant.Index]
		if toolUse, ok := block.AsAny().(anthropicsdk.ToolUseBlock); ok {
			argsJSON, _ := json.Marshal(toolUse.Input)
			return llmprovider.Chunk{
				Kind: llmprovider.ChunkToolCall,
				ToolCall: &llmprovider.ToolCallRequest{
					ID:            toolUse.ID,
					Name:          toolUse.Name,
					ArgumentsJSON: string(argsJSON),
				},
			}, true
		}
	case anthropicsdk.MessageDeltaEvent:
		return llmprovider.Chunk{
			Kind: llmprovider.ChunkUsage,
			Usage: &llmprovider.Usage{
				CompletionTokens: int(variant.Usage.OutputTokens),
				FinishReason:     string(variant.Delta.StopReason),
			},
		}, true
	}

	return llmprovider.Chunk{Kind: llmprovider.ChunkText}, true
}

func (s *stream) Err() error { return s.err }

func (s *stream) Abort() {
	s.aborted = true
	if s.cancel != nil {
		s.cancel()
	}
}
