package plan

import "errors"

// Validation error kinds, returned wrapped with additional context via
// fmt.Errorf("%w: ...", ErrX).
var (
	ErrPlanSchemaInvalid     = errors.New("plan: schema invalid")
	ErrReferenceNotFound     = errors.New("plan: REFERENCE_NOT_FOUND")
	ErrUpdateTargetNotFound  = errors.New("plan: UPDATE_TARGET_NOT_FOUND")
	ErrDeleteTargetNotFound  = errors.New("plan: DELETE_TARGET_NOT_FOUND")
	ErrDuplicateTempID       = errors.New("plan: DUPLICATE_TEMP_ID")
	ErrCircularDependency    = errors.New("plan: CIRCULAR_DEPENDENCY")
	ErrTaskIndexOutOfRange   = errors.New("plan: TaskIndexOutOfRange")
	ErrMultipleInProgress    = errors.New("plan: MultipleInProgress")
	ErrNoSuchSession         = errors.New("plan: no plan for session")
)

// TypeMismatchWarning is a non-fatal finding: a reference's type hint
// does not match the inventory's recorded type for that entity.
type TypeMismatchWarning struct {
	EntityID     string
	ExpectedType string
	ActualType   string
}
