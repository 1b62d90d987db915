package plan

import "fmt"

// ValidationWarning is a non-fatal finding surfaced alongside a
// successful validation.
type ValidationWarning struct {
	Code    string
	Message string
}

// ValidationResult is the outcome of validating a plan before it is
// stored.
type ValidationResult struct {
	Warnings []ValidationWarning
}

// Validate runs schema validation (structural shape, assumed already
// enforced by the caller's decoding of the LLM's tool-call arguments
// through the generated JSON Schema) followed by pre-execution
// validation against the external entity inventory.
func Validate(p Plan, inv EntityInventory) (ValidationResult, error) {
	if err := validateStructure(p); err != nil {
		return ValidationResult{}, fmt.Errorf("%w: %v", ErrPlanSchemaInvalid, err)
	}

	if err := checkDuplicateTempIDs(p); err != nil {
		return ValidationResult{}, err
	}
	if err := checkDependencyCycles(p); err != nil {
		return ValidationResult{}, err
	}

	result := ValidationResult{}
	tempIDs := collectTempIDs(p)

	for _, change := range p.Changes {
		switch change.Kind {
		case ChangeUpdate:
			if !inv.Exists(change.TargetID) {
				return ValidationResult{}, fmt.Errorf("%w: %s", ErrUpdateTargetNotFound, change.TargetID)
			}
		case ChangeDelete:
			if !inv.Exists(change.TargetID) {
				return ValidationResult{}, fmt.Errorf("%w: %s", ErrDeleteTargetNotFound, change.TargetID)
			}
		}
	}

	for _, task := range p.Tasks {
		for _, ref := range task.References {
			if ref.TempID != "" {
				if !tempIDs[ref.TempID] {
					return ValidationResult{}, fmt.Errorf("%w: temp-id %s", ErrReferenceNotFound, ref.TempID)
				}
				continue
			}
			if ref.EntityID == "" {
				continue
			}
			if !inv.Exists(ref.EntityID) {
				return ValidationResult{}, fmt.Errorf("%w: %s", ErrReferenceNotFound, ref.EntityID)
			}
			if ref.EntityType != "" {
				if actual, ok := inv.TypeOf(ref.EntityID); ok && actual != ref.EntityType {
					result.Warnings = append(result.Warnings, ValidationWarning{
						Code:    "TYPE_MISMATCH",
						Message: fmt.Sprintf("entity %s: expected type %s, got %s", ref.EntityID, ref.EntityType, actual),
					})
				}
			}
		}
	}

	return result, nil
}

func validateStructure(p Plan) error {
	for i, task := range p.Tasks {
		if task.ID == "" {
			return fmt.Errorf("task[%d]: missing id", i)
		}
		switch task.Status {
		case TaskPending, TaskInProgress, TaskCompleted, TaskFailed, TaskSkipped, TaskDelegated:
		default:
			return fmt.Errorf("task[%d]: invalid status %q", i, task.Status)
		}
	}
	for i, change := range p.Changes {
		switch change.Kind {
		case ChangeCreate:
			if change.TempID == "" {
				return fmt.Errorf("change[%d]: create missing temp id", i)
			}
		case ChangeUpdate, ChangeDelete:
			if change.TargetID == "" {
				return fmt.Errorf("change[%d]: %s missing target id", i, change.Kind)
			}
		default:
			return fmt.Errorf("change[%d]: unknown kind %q", i, change.Kind)
		}
	}
	return nil
}

func collectTempIDs(p Plan) map[string]bool {
	out := make(map[string]bool)
	for _, c := range p.Changes {
		if c.Kind == ChangeCreate {
			out[c.TempID] = true
		}
	}
	return out
}

func checkDuplicateTempIDs(p Plan) error {
	seen := make(map[string]bool)
	for _, c := range p.Changes {
		if c.Kind != ChangeCreate {
			continue
		}
		if seen[c.TempID] {
			return fmt.Errorf("%w: %s", ErrDuplicateTempID, c.TempID)
		}
		seen[c.TempID] = true
	}
	return nil
}

// checkDependencyCycles runs a DFS-based cycle check over the task
// dependency graph (Task.DependsOn references other Task.ID values).
func checkDependencyCycles(p Plan) error {
	byID := make(map[string]Task, len(p.Tasks))
	for _, t := range p.Tasks {
		byID[t.ID] = t
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(p.Tasks))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: task %s", ErrCircularDependency, id)
		}
		state[id] = visiting
		for _, dep := range byID[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for _, t := range p.Tasks {
		if err := visit(t.ID); err != nil {
			return err
		}
	}
	return nil
}
