package subagent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/kadirpekel/agentrt/pkg/agentic"
	"github.com/kadirpekel/agentrt/pkg/budget"
	"github.com/kadirpekel/agentrt/pkg/contextstore"
	"github.com/kadirpekel/agentrt/pkg/llmprovider"
	"github.com/kadirpekel/agentrt/pkg/logger"
	"github.com/kadirpekel/agentrt/pkg/tokenest"
	"github.com/kadirpekel/agentrt/pkg/tool"
)

var reasoningTagPattern = regexp.MustCompile(`(?s)<(analysis|plan|estimates|risks|decision)>(.*?)</(?:analysis|plan|estimates|risks|decision)>`)

func parseReasoningPhase(text string) map[string]string {
	out := make(map[string]string)
	for _, m := range reasoningTagPattern.FindAllStringSubmatch(text, -1) {
		out[m[1]] = strings.TrimSpace(m[2])
	}
	return out
}

// DispatcherFactory narrows a Dispatcher to the tools permitted for one
// agent type.
type DispatcherFactory func(contract Contract) *tool.Dispatcher

// Delegate runs the two-phase delegation procedure: a tool-free
// reasoning call, then (if not blocked) an isolated execution-phase
// inner loop.
type Delegate struct {
	provider      llmprovider.Provider
	dispatcherFor DispatcherFactory
	systemPrompt  func(contract Contract) string
	estimator     tokenest.Estimator
	log           *slog.Logger
}

// NewDelegate builds a Delegate. systemPrompt renders the contract into
// the execution phase's seed system message; dispatcherFor narrows the
// tool catalog per agent type.
func NewDelegate(provider llmprovider.Provider, dispatcherFor DispatcherFactory, systemPrompt func(Contract) string, estimator tokenest.Estimator, log *slog.Logger) *Delegate {
	if estimator == nil {
		estimator = tokenest.NewCharHeuristic()
	}
	return &Delegate{
		provider:      provider,
		dispatcherFor: dispatcherFor,
		systemPrompt:  systemPrompt,
		estimator:     estimator,
		log:           logger.OrDefault(log),
	}
}

// Run executes one delegation contract to completion and returns its
// envelope. The contract is passed by value; the inner loop never
// receives a pointer to any parent context store.
func (d *Delegate) Run(ctx context.Context, contract Contract) Envelope {
	start := time.Now()
	if contract.Limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, contract.Limits.Timeout)
		defer cancel()
	}

	reasoningText, reasoningTokens, err := d.reasoningPhase(ctx, contract)
	if err != nil {
		return Envelope{ContractID: contract.ContractID, Success: false, Err: err, Duration: time.Since(start)}
	}

	tags := parseReasoningPhase(reasoningText)
	decision := tags["decision"]
	if strings.HasPrefix(strings.ToUpper(decision), "BLOCK") {
		reason := decision
		if idx := strings.Index(decision, ":"); idx >= 0 {
			reason = strings.TrimSpace(decision[idx+1:])
		}
		return Envelope{
			ContractID: contract.ContractID,
			Success:    false,
			Summary:    reason,
			TokensUsed: reasoningTokens,
			Duration:   time.Since(start),
			Err:        fmt.Errorf("subagent: blocked in reasoning phase: %s", reason),
		}
	}

	envelope, execTokens, entityIDs := d.executionPhase(ctx, contract)
	envelope.ContractID = contract.ContractID
	envelope.TokensUsed = reasoningTokens + execTokens
	envelope.Duration = time.Since(start)
	envelope.EntityIDs = entityIDs
	return envelope
}

func (d *Delegate) reasoningPhase(ctx context.Context, contract Contract) (string, int, error) {
	prompt := fmt.Sprintf(
		"Task: %s\nWork region: %s\nProduce <analysis>, <plan>, <estimates>, <risks>, then <decision>PROCEED</decision> or <decision>BLOCK: reason</decision>.",
		contract.Task, contract.WorkRegion,
	)
	messages := []llmprovider.Message{{Role: "user", Content: prompt}}

	stream, err := d.provider.Generate(ctx, messages, nil, llmprovider.Options{})
	if err != nil {
		return "", 0, err
	}

	var text string
	var tokens int
	for {
		chunk, ok := stream.Next()
		if !ok {
			break
		}
		if chunk.Kind == llmprovider.ChunkText {
			text += chunk.TextDelta
		}
		if chunk.Kind == llmprovider.ChunkUsage && chunk.Usage != nil {
			tokens = chunk.Usage.PromptTokens + chunk.Usage.CompletionTokens
		}
	}
	return text, tokens, stream.Err()
}

func (d *Delegate) executionPhase(ctx context.Context, contract Contract) (Envelope, int, []string) {
	seed := contract.Task
	if d.systemPrompt != nil {
		seed = d.systemPrompt(contract)
	}

	budgetDesc := contextstore.BudgetDescriptor{
		Ceiling:              tokensOrDefault(contract.Limits.MaxTokens),
		ResponseReserve:      512,
		ToolReserve:          256,
		RecentTurnsCount:     3,
		CompressionThreshold: 0.8,
		EvictionThreshold:    0.95,
	}

	store, err := contextstore.NewContext(seed, budgetDesc, d.estimator)
	if err != nil {
		return Envelope{Success: false, Err: err}, 0, nil
	}

	dispatcher := d.dispatcherFor(contract)
	planner := budget.NewPlanner(nil, d.log)

	cfg := agentic.DefaultConfig()
	if contract.Limits.MaxIterations > 0 {
		cfg.MaxIterations = contract.Limits.MaxIterations
	}

	loop := agentic.New(store, planner, dispatcher, d.provider, cfg, d.log)

	var entityIDs []string
	var final agentic.Event
	for ev := range loop.RunTurn(ctx, contract.Task) {
		if ev.Kind == agentic.EventObserving {
			if id, ok := extractEntityID(ev.ObservingResult); ok {
				entityIDs = append(entityIDs, id)
			}
		}
		final = ev
	}

	switch final.Kind {
	case agentic.EventComplete:
		return Envelope{Success: true, Summary: final.Summary}, final.Metrics.PromptTokens + final.Metrics.CompletionTokens, entityIDs
	case agentic.EventClarificationNeeded:
		return Envelope{Success: false, Summary: strings.Join(final.Questions, "; "), Err: fmt.Errorf("subagent: clarification needed")}, 0, entityIDs
	default:
		return Envelope{Success: false, Err: final.Cause}, 0, entityIDs
	}
}

func tokensOrDefault(maxTokens int) int {
	if maxTokens > 0 {
		return maxTokens
	}
	return 8192
}

func extractEntityID(result any) (string, bool) {
	m, ok := result.(map[string]any)
	if !ok {
		return "", false
	}
	id, ok := m["id"].(string)
	return id, ok
}
