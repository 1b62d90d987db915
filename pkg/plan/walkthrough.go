package plan

// RowStatus is the verification state of one walkthrough row.
type RowStatus string

const (
	RowVerified RowStatus = "verified"
	RowNotFound RowStatus = "not_found"
	RowError    RowStatus = "error"
)

// RowKind is the kind of thing a walkthrough row verifies: one of the
// three change kinds, or a task delegation.
type RowKind string

const (
	RowCreate     RowKind = RowKind(ChangeCreate)
	RowUpdate     RowKind = RowKind(ChangeUpdate)
	RowDelete     RowKind = RowKind(ChangeDelete)
	RowDelegation RowKind = "delegation"
)

// Row is one verification entry in a walkthrough report, covering a
// single declared change or a task delegation.
type Row struct {
	Kind     RowKind
	TempID   string
	TargetID string
	Status   RowStatus
}

// Report is the walkthrough's verification output for the current plan.
type Report struct {
	Rows               []Row
	UnexpectedCreates  []string
	UnexpectedUpdates  []string
	UnexpectedDeletes  []string
	Success            bool
}

// Walkthrough produces a verification report covering every entry in
// the plan's declared Changes, plus every task's delegation outcome,
// reconciled against the execution tracker.
func Walkthrough(p Plan, tracker *ExecutionTracker) Report {
	scope := tracker.ValidateScope()
	report := Report{}

	for _, change := range p.Changes {
		row := Row{Kind: RowKind(change.Kind), TempID: change.TempID, TargetID: change.TargetID}
		switch change.Kind {
		case ChangeCreate:
			row.Status = createRowStatus(tracker, change.TempID)
		case ChangeUpdate:
			row.Status = tracker.updateRowStatus(change.TargetID)
		case ChangeDelete:
			row.Status = tracker.deleteRowStatus(change.TargetID)
		}
		report.Rows = append(report.Rows, row)
	}

	for _, task := range p.Tasks {
		if task.DelegateTarget == "" {
			continue
		}
		status := RowNotFound
		if task.DelegationOutcome != nil {
			status = RowVerified
			if !task.DelegationOutcome.Success {
				status = RowError
			}
		}
		report.Rows = append(report.Rows, Row{Kind: RowDelegation, TargetID: task.ID, Status: status})
	}

	for tempID := range scope.UnexpectedCreates {
		report.UnexpectedCreates = append(report.UnexpectedCreates, tempID)
	}
	report.UnexpectedUpdates = scope.UnexpectedUpdates
	report.UnexpectedDeletes = scope.UnexpectedDeletes

	report.Success = scope.IsClean()
	for _, row := range report.Rows {
		if row.Status != RowVerified {
			report.Success = false
			break
		}
	}

	return report
}

func createRowStatus(tracker *ExecutionTracker, tempID string) RowStatus {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if _, ok := tracker.created[tempID]; ok {
		return RowVerified
	}
	if tracker.failedCreates[tempID] {
		return RowError
	}
	return RowNotFound
}

