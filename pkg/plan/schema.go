package plan

import (
	"github.com/invopop/jsonschema"
)

// PlanInput is the JSON shape the create/replace-plan tool accepts from
// the LLM; it is decoded then translated into a Plan.
type PlanInput struct {
	Tasks   []TaskInput   `json:"tasks" jsonschema:"required"`
	Changes []ChangeInput `json:"changes" jsonschema:"required"`
}

// TaskInput is the wire shape of one task before it is attached to a
// session identifier.
type TaskInput struct {
	ID             string           `json:"id" jsonschema:"required"`
	Description    string           `json:"description" jsonschema:"required"`
	Status         string           `json:"status" jsonschema:"enum=pending,enum=in_progress,enum=completed,enum=failed,enum=skipped,enum=delegated"`
	DependsOn      []string         `json:"dependsOn,omitempty"`
	References     []ReferenceInput `json:"references,omitempty"`
	DelegateTarget string           `json:"delegateTarget,omitempty"`
}

// ReferenceInput is the wire shape of a task's reference to an entity.
type ReferenceInput struct {
	EntityID   string `json:"entityId,omitempty"`
	TempID     string `json:"tempId,omitempty"`
	EntityType string `json:"entityType,omitempty"`
}

// ChangeInput is the wire shape of one declared change.
type ChangeInput struct {
	Kind       string `json:"kind" jsonschema:"required,enum=create,enum=update,enum=delete"`
	TempID     string `json:"tempId,omitempty"`
	TargetID   string `json:"targetId,omitempty"`
	EntityType string `json:"entityType,omitempty"`
}

// UpdateInput is the wire shape of the update-plan tool's input.
type UpdateInput struct {
	Updates []TaskUpdateInput `json:"updates" jsonschema:"required"`
}

// TaskUpdateInput is one entry of an update-plan batch, as received
// from the LLM.
type TaskUpdateInput struct {
	TaskIndex         int                `json:"taskIndex" jsonschema:"required"`
	Status            *string            `json:"status,omitempty"`
	DelegationOutcome *DelegationOutcome `json:"delegationOutcome,omitempty"`
}

// WalkthroughInput is the (empty, or filtered) input to the walkthrough
// tool.
type WalkthroughInput struct {
	Filter string `json:"filter,omitempty"`
}

// GenerateSchema produces the JSON Schema document for one of the three
// plan tool inputs, for exposure to the host's tool catalog.
func GenerateSchema(v any) *jsonschema.Schema {
	reflector := &jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(v)
}
