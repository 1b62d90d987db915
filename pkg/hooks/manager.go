package hooks

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/agentrt/pkg/logger"
)

type registration struct {
	id      string
	handler Handler
}

// Manager is the session-owned hooks pipeline: a registry of phase
// handlers plus the metrics those handlers' dispatch durations feed.
// A Manager must not be shared across sessions.
type Manager struct {
	mu        sync.Mutex
	phaseLock map[Phase]*sync.Mutex
	handlers  map[Phase][]registration
	metrics   *MetricsRegistry
	log       *slog.Logger
	destroyed bool
}

// NewManager builds an empty Manager. metricsBufferSize configures the
// per-tool ring buffer capacity (default 1000 when <= 0).
func NewManager(metricsBufferSize int, metrics *MetricsRegistry, log *slog.Logger) *Manager {
	if metrics == nil {
		metrics = NewMetricsRegistry(metricsBufferSize, nil)
	}
	return &Manager{
		phaseLock: make(map[Phase]*sync.Mutex),
		handlers:  make(map[Phase][]registration),
		metrics:   metrics,
		log:       logger.OrDefault(log),
	}
}

// Metrics exposes the metrics registry, for telemetry exporters.
func (m *Manager) Metrics() *MetricsRegistry {
	return m.metrics
}

// Register adds a handler for a phase, returning an unregister callback.
// Registration order determines dispatch order within that phase.
func (m *Manager) Register(phase Phase, handler Handler) (unregister func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.handlers[phase] = append(m.handlers[phase], registration{id: id, handler: handler})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		regs := m.handlers[phase]
		for i, r := range regs {
			if r.id == id {
				m.handlers[phase] = append(regs[:i], regs[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) lockFor(phase Phase) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.phaseLock[phase]
	if !ok {
		l = &sync.Mutex{}
		m.phaseLock[phase] = l
	}
	return l
}

// Trigger dispatches hc.Phase's handlers in registration order. Handlers
// for the same phase on the same Manager never interleave across
// concurrent Trigger calls.
func (m *Manager) Trigger(hc *Context) TriggerResult {
	phaseLock := m.lockFor(hc.Phase)
	phaseLock.Lock()
	defer phaseLock.Unlock()

	m.mu.Lock()
	regs := make([]registration, len(m.handlers[hc.Phase]))
	copy(regs, m.handlers[hc.Phase])
	m.mu.Unlock()

	if hc.Timestamp.IsZero() {
		hc.Timestamp = time.Now()
	}
	if hc.Metadata == nil {
		hc.Metadata = make(map[string]any)
	}

	var modifiedInput map[string]any

	for _, r := range regs {
		outcome, err := r.handler(hc)
		if err != nil {
			m.forwardError(hc, err)
			continue
		}
		if !outcome.Proceed {
			return TriggerResult{Blocked: true, Reason: outcome.Reason, ModifiedInput: modifiedInput}
		}
		if outcome.ModifiedInput != nil {
			modifiedInput = outcome.ModifiedInput
			hc.ToolInput = outcome.ModifiedInput
		}
	}

	return TriggerResult{Blocked: false, ModifiedInput: modifiedInput}
}

// forwardError routes a handler panic-equivalent (a returned error) to
// the error phase, without ever recursing: error-phase handlers that
// themselves error are logged, not re-forwarded.
func (m *Manager) forwardError(hc *Context, handlerErr error) {
	if hc.Phase == PhaseError {
		m.log.Warn("hooks: error handler itself errored", "error", handlerErr)
		return
	}

	errCtx := &Context{
		Phase:     PhaseError,
		ToolName:  hc.ToolName,
		ToolInput: hc.ToolInput,
		Err:       fmt.Errorf("hook handler error in phase %s: %w", hc.Phase, handlerErr),
		Timestamp: time.Now(),
		Metadata:  map[string]any{"source_phase": hc.Phase},
	}
	m.Trigger(errCtx)
}

// Destroy clears all registered handlers and releases the metrics ring
// buffers. A destroyed Manager may still be triggered (phases simply run
// with no handlers), matching a session tearing down mid-flight.
func (m *Manager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = make(map[Phase][]registration)
	m.destroyed = true
	if m.metrics != nil {
		m.metrics.Reset()
	}
}

// Destroyed reports whether Destroy has been called.
func (m *Manager) Destroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}
