package tokenest

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// encodingCache avoids re-initializing the same model's encoding tables
// across many Tiktoken instances; encodings are cached by model name.
var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.RWMutex
)

// Tiktoken is a model-aware Estimator backed by tiktoken-go. It falls back
// to the cl100k_base encoding when the model is unrecognized.
type Tiktoken struct {
	encoding *tiktoken.Tiktoken
	model    string
}

// NewTiktoken builds a Tiktoken estimator for the given model name.
func NewTiktoken(model string) (*Tiktoken, error) {
	cacheMu.RLock()
	cached, ok := encodingCache[model]
	cacheMu.RUnlock()
	if ok {
		return &Tiktoken{encoding: cached, model: model}, nil
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("tokenest: resolve encoding for %q: %w", model, err)
		}
	}

	cacheMu.Lock()
	encodingCache[model] = encoding
	cacheMu.Unlock()

	return &Tiktoken{encoding: encoding, model: model}, nil
}

// Estimate implements Estimator.
func (t *Tiktoken) Estimate(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

// EstimateMessage implements Estimator.
func (t *Tiktoken) EstimateMessage(msg Message) int {
	// 3 tokens of framing per message plus the encoded role and content,
	// the standard OpenAI chat-format counting convention.
	return 3 + len(t.encoding.Encode(msg.Role, nil, nil)) + len(t.encoding.Encode(msg.Content, nil, nil))
}

// Model returns the model name this estimator was built for.
func (t *Tiktoken) Model() string {
	return t.model
}
