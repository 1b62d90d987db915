// Package plan implements the structured-plan engine: a schema, a
// pre-execution validator against an external entity inventory, and an
// execution tracker that reconciles what the plan declared against what
// actually happened.
package plan

// TaskStatus is the lifecycle state of one planned task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskSkipped    TaskStatus = "skipped"
	TaskDelegated  TaskStatus = "delegated"
)

// ChangeKind is the kind of entity change a plan declares. The change
// scope is exactly three disjoint collections: creates, updates, and
// deletes. Delegation is tracked per-task (Task.DelegateTarget and
// Task.DelegationOutcome), not as a change-scope entry.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Change is one declared scope entry. Exactly the fields relevant to its
// Kind are populated:
//   - create: TempID, EntityType
//   - update / delete: TargetID
type Change struct {
	Kind       ChangeKind
	TempID     string
	TargetID   string
	EntityType string // type hint, checked as a warning against the inventory
}

// Reference is a pointer from a task to an entity, either an existing
// one (ID) or one this plan will create (TempID).
type Reference struct {
	EntityID   string
	TempID     string
	EntityType string
}

// Task is one step of the plan.
type Task struct {
	ID          string
	Description string
	Status      TaskStatus
	DependsOn   []string // task IDs this task depends on
	References  []Reference

	// DelegateTarget names the sub-agent this task delegates to, if
	// any. A non-empty value marks this a delegation task, whose
	// walkthrough row is driven by DelegationOutcome rather than the
	// change-scope tracker.
	DelegateTarget    string
	DelegationOutcome *DelegationOutcome
}

// DelegationOutcome records the result of a delegated sub-agent call
// tied to a task.
type DelegationOutcome struct {
	Success bool
	Reason  string
}

// Plan is the full structured plan the LLM declares via the
// create/replace tool.
type Plan struct {
	SessionID string
	Tasks     []Task
	Changes   []Change
}

// TaskUpdate is one entry of an update-plan batch.
type TaskUpdate struct {
	TaskIndex         int
	Status            *TaskStatus
	DelegationOutcome *DelegationOutcome
}
