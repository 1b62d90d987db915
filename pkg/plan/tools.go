package plan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kadirpekel/agentrt/pkg/tool"
)

// decodeInto round-trips a dispatcher-validated map[string]any into a
// typed wire struct. The shape was already checked against the
// generated schema by the dispatcher; this just gives Go types to work
// with.
func decodeInto(input map[string]any, dst any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func toPlan(sessionID string, in PlanInput) Plan {
	tasks := make([]Task, len(in.Tasks))
	for i, t := range in.Tasks {
		refs := make([]Reference, len(t.References))
		for j, r := range t.References {
			refs[j] = Reference{EntityID: r.EntityID, TempID: r.TempID, EntityType: r.EntityType}
		}
		status := TaskStatus(t.Status)
		if status == "" {
			status = TaskPending
		}
		tasks[i] = Task{
			ID:             t.ID,
			Description:    t.Description,
			Status:         status,
			DependsOn:      t.DependsOn,
			References:     refs,
			DelegateTarget: t.DelegateTarget,
		}
	}

	changes := make([]Change, len(in.Changes))
	for i, c := range in.Changes {
		changes[i] = Change{
			Kind:       ChangeKind(c.Kind),
			TempID:     c.TempID,
			TargetID:   c.TargetID,
			EntityType: c.EntityType,
		}
	}

	return Plan{SessionID: sessionID, Tasks: tasks, Changes: changes}
}

// NewCreateOrReplaceDescriptor builds the create/replace-plan tool.
// sessionID is resolved by the host per call (e.g. from the loop's
// session context); inv is the entity inventory snapshot taken for this
// validation.
func NewCreateOrReplaceDescriptor(store *Store, sessionIDOf func(ctx context.Context) string, invOf func(ctx context.Context) EntityInventory) *tool.Descriptor {
	schema := GenerateSchema(PlanInput{})
	schemaJSON, _ := json.Marshal(schema)
	compiled, _ := tool.CompileSchema("plan.create.json", string(schemaJSON))

	return &tool.Descriptor{
		Name:        "plan_create_or_replace",
		Description: "Create or replace the structured plan for this session.",
		Schema:      compiled,
		SchemaJSON:  string(schemaJSON),
		Handler: func(ctx context.Context, input map[string]any) (tool.Result, error) {
			var in PlanInput
			if err := decodeInto(input, &in); err != nil {
				return tool.Result{}, fmt.Errorf("%w: %v", ErrPlanSchemaInvalid, err)
			}
			p := toPlan(sessionIDOf(ctx), in)
			result, err := store.CreateOrReplace(p, invOf(ctx))
			if err != nil {
				return tool.Result{Success: false, Reason: err.Error()}, err
			}
			return tool.Result{Success: true, Output: result}, nil
		},
	}
}

// NewUpdateDescriptor builds the update-plan tool.
func NewUpdateDescriptor(store *Store, sessionIDOf func(ctx context.Context) string) *tool.Descriptor {
	schema := GenerateSchema(UpdateInput{})
	schemaJSON, _ := json.Marshal(schema)
	compiled, _ := tool.CompileSchema("plan.update.json", string(schemaJSON))

	return &tool.Descriptor{
		Name:        "plan_update",
		Description: "Apply a batch of task status updates to the current plan.",
		Schema:      compiled,
		SchemaJSON:  string(schemaJSON),
		Handler: func(ctx context.Context, input map[string]any) (tool.Result, error) {
			var in UpdateInput
			if err := decodeInto(input, &in); err != nil {
				return tool.Result{}, fmt.Errorf("%w: %v", ErrPlanSchemaInvalid, err)
			}

			updates := make([]TaskUpdate, len(in.Updates))
			for i, u := range in.Updates {
				tu := TaskUpdate{TaskIndex: u.TaskIndex, DelegationOutcome: u.DelegationOutcome}
				if u.Status != nil {
					s := TaskStatus(*u.Status)
					tu.Status = &s
				}
				updates[i] = tu
			}

			if err := store.Update(sessionIDOf(ctx), updates); err != nil {
				return tool.Result{Success: false, Reason: err.Error()}, err
			}
			return tool.Result{Success: true}, nil
		},
	}
}

// NewWalkthroughDescriptor builds the walkthrough tool.
func NewWalkthroughDescriptor(store *Store, sessionIDOf func(ctx context.Context) string) *tool.Descriptor {
	schema := GenerateSchema(WalkthroughInput{})
	schemaJSON, _ := json.Marshal(schema)
	compiled, _ := tool.CompileSchema("plan.walkthrough.json", string(schemaJSON))

	return &tool.Descriptor{
		Name:        "plan_walkthrough",
		Description: "Produce a verification report for the current plan's declared changes.",
		Schema:      compiled,
		SchemaJSON:  string(schemaJSON),
		Handler: func(ctx context.Context, input map[string]any) (tool.Result, error) {
			sessionID := sessionIDOf(ctx)
			p, err := store.Get(sessionID)
			if err != nil {
				return tool.Result{Success: false, Reason: err.Error()}, err
			}
			tracker, err := store.Tracker(sessionID)
			if err != nil {
				return tool.Result{Success: false, Reason: err.Error()}, err
			}
			report := Walkthrough(p, tracker)
			return tool.Result{Success: report.Success, Output: report}, nil
		},
	}
}
