package plan

import (
	"fmt"
	"sync"
)

// sessionEntry bundles one session's plan with the mutex serializing
// concurrent access to it, and the execution tracker reconciling
// declared scope against what actually happened.
type sessionEntry struct {
	mu      sync.Mutex
	plan    Plan
	tracker *ExecutionTracker
}

// Store is the session-keyed plan store: one plan per session,
// re-creating replaces. Concurrent access to the same session's plan is
// serialized.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewStore builds an empty plan store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*sessionEntry)}
}

// CreateOrReplace validates p against inv, and on success stores it as
// the session's plan, replacing any prior plan and resetting its
// execution tracker.
func (s *Store) CreateOrReplace(p Plan, inv EntityInventory) (ValidationResult, error) {
	result, err := Validate(p, inv)
	if err != nil {
		return ValidationResult{}, err
	}

	entry := &sessionEntry{plan: p, tracker: NewExecutionTracker(p)}

	s.mu.Lock()
	s.sessions[p.SessionID] = entry
	s.mu.Unlock()

	return result, nil
}

func (s *Store) entry(sessionID string) (*sessionEntry, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchSession, sessionID)
	}
	return entry, nil
}

// Get returns a copy of the session's current plan.
func (s *Store) Get(sessionID string) (Plan, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return Plan{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.plan, nil
}

// Tracker returns the session's execution tracker, for the host
// executing plan tasks.
func (s *Store) Tracker(sessionID string) (*ExecutionTracker, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	return entry.tracker, nil
}

// Update applies a batch of task updates atomically: if any sub-update
// fails validation, none is applied.
func (s *Store) Update(sessionID string, updates []TaskUpdate) error {
	entry, err := s.entry(sessionID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	tasks := entry.plan.Tasks

	for _, u := range updates {
		if u.TaskIndex < 0 || u.TaskIndex >= len(tasks) {
			return fmt.Errorf("%w: %d", ErrTaskIndexOutOfRange, u.TaskIndex)
		}
	}

	inProgressCount := 0
	next := make([]Task, len(tasks))
	copy(next, tasks)
	for _, u := range updates {
		if u.Status != nil {
			next[u.TaskIndex].Status = *u.Status
		}
	}
	for _, t := range next {
		if t.Status == TaskInProgress {
			inProgressCount++
		}
	}
	if inProgressCount > 1 {
		return ErrMultipleInProgress
	}

	for _, u := range updates {
		if u.DelegationOutcome != nil {
			next[u.TaskIndex].DelegationOutcome = u.DelegationOutcome
		}
	}

	entry.plan.Tasks = next
	return nil
}
