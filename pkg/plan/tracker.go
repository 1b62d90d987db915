package plan

import "sync"

// ExecutionTracker reconciles a plan's declared change scope against
// what the host actually did while executing it. It is not itself a
// tool; it is driven by the host executing plan tasks.
type ExecutionTracker struct {
	mu sync.Mutex

	plan Plan

	created map[string]string // tempID -> actualID
	updated map[string]bool   // targetID
	deleted map[string]bool   // targetID

	failedCreates map[string]bool // tempID recorded as failed
	failedUpdates map[string]bool
	failedDeletes map[string]bool

	unexpectedCreates map[string]string
	unexpectedUpdates map[string]bool
	unexpectedDeletes map[string]bool
}

// NewExecutionTracker builds a tracker bound to one plan's declared
// scope.
func NewExecutionTracker(p Plan) *ExecutionTracker {
	return &ExecutionTracker{
		plan:              p,
		created:           make(map[string]string),
		updated:           make(map[string]bool),
		deleted:           make(map[string]bool),
		failedCreates:     make(map[string]bool),
		failedUpdates:     make(map[string]bool),
		failedDeletes:     make(map[string]bool),
		unexpectedCreates: make(map[string]string),
		unexpectedUpdates: make(map[string]bool),
		unexpectedDeletes: make(map[string]bool),
	}
}

func (t *ExecutionTracker) declaredTempIDs() map[string]bool {
	out := make(map[string]bool)
	for _, c := range t.plan.Changes {
		if c.Kind == ChangeCreate {
			out[c.TempID] = true
		}
	}
	return out
}

func (t *ExecutionTracker) declaredTargets(kind ChangeKind) map[string]bool {
	out := make(map[string]bool)
	for _, c := range t.plan.Changes {
		if c.Kind == kind {
			out[c.TargetID] = true
		}
	}
	return out
}

// RecordCreate registers that tempID was realized as actualID. If
// tempID was not declared in the plan's creates, it is also recorded as
// unexpected.
func (t *ExecutionTracker) RecordCreate(tempID, actualID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.created[tempID] = actualID
	if !t.declaredTempIDs()[tempID] {
		t.unexpectedCreates[tempID] = actualID
	}
}

// RecordCreateFailure marks a declared create as having failed.
func (t *ExecutionTracker) RecordCreateFailure(tempID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failedCreates[tempID] = true
}

// RecordUpdate registers that targetID was updated.
func (t *ExecutionTracker) RecordUpdate(targetID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updated[targetID] = true
	if !t.declaredTargets(ChangeUpdate)[targetID] {
		t.unexpectedUpdates[targetID] = true
	}
}

// RecordUpdateFailure marks a declared update as having failed.
func (t *ExecutionTracker) RecordUpdateFailure(targetID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failedUpdates[targetID] = true
}

// RecordDelete registers that targetID was deleted.
func (t *ExecutionTracker) RecordDelete(targetID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleted[targetID] = true
	if !t.declaredTargets(ChangeDelete)[targetID] {
		t.unexpectedDeletes[targetID] = true
	}
}

// RecordDeleteFailure marks a declared delete as having failed.
func (t *ExecutionTracker) RecordDeleteFailure(targetID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failedDeletes[targetID] = true
}

// Resolve returns the actual ID tempID was realized as, or tempID
// unchanged if it was never recorded (letting the LLM reference
// temp-IDs outside the plan's declared creates).
func (t *ExecutionTracker) Resolve(tempID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if actual, ok := t.created[tempID]; ok {
		return actual
	}
	return tempID
}

func (t *ExecutionTracker) updateRowStatus(targetID string) RowStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.updated[targetID] {
		return RowVerified
	}
	if t.failedUpdates[targetID] {
		return RowError
	}
	return RowNotFound
}

func (t *ExecutionTracker) deleteRowStatus(targetID string) RowStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deleted[targetID] {
		return RowVerified
	}
	if t.failedDeletes[targetID] {
		return RowError
	}
	return RowNotFound
}

// ScopeReport is the three-unexpected/three-missing accounting produced
// by ValidateScope.
type ScopeReport struct {
	UnexpectedCreates map[string]string
	UnexpectedUpdates []string
	UnexpectedDeletes []string

	MissingCreates []string
	MissingUpdates []string
	MissingDeletes []string
}

// IsClean reports whether the tracker recorded no unexpected or missing
// changes.
func (r ScopeReport) IsClean() bool {
	return len(r.UnexpectedCreates) == 0 && len(r.UnexpectedUpdates) == 0 && len(r.UnexpectedDeletes) == 0 &&
		len(r.MissingCreates) == 0 && len(r.MissingUpdates) == 0 && len(r.MissingDeletes) == 0
}

// ValidateScope returns the scope-validation record: the unexpected
// sets recorded live, and the missing sets computed against the plan's
// declared scope.
func (t *ExecutionTracker) ValidateScope() ScopeReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	report := ScopeReport{
		UnexpectedCreates: copyStringMap(t.unexpectedCreates),
		UnexpectedUpdates: keysOf(t.unexpectedUpdates),
		UnexpectedDeletes: keysOf(t.unexpectedDeletes),
	}

	for tempID := range t.declaredTempIDs() {
		if _, ok := t.created[tempID]; !ok {
			report.MissingCreates = append(report.MissingCreates, tempID)
		}
	}
	for targetID := range t.declaredTargets(ChangeUpdate) {
		if !t.updated[targetID] {
			report.MissingUpdates = append(report.MissingUpdates, targetID)
		}
	}
	for targetID := range t.declaredTargets(ChangeDelete) {
		if !t.deleted[targetID] {
			report.MissingDeletes = append(report.MissingDeletes, targetID)
		}
	}

	return report
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func keysOf(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
