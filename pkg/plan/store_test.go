package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreUpdateAtMostOneInProgress(t *testing.T) {
	s := NewStore()
	p := samplePlan()
	_, err := s.CreateOrReplace(p, NewStaticInventory(map[string]string{"gadget-1": "gadget"}))
	require.NoError(t, err)

	err = s.Update("s1", []TaskUpdate{
		{TaskIndex: 0, Status: statusPtrTyped(TaskInProgress)},
		{TaskIndex: 1, Status: statusPtrTyped(TaskInProgress)},
	})
	assert.ErrorIs(t, err, ErrMultipleInProgress)

	got, err := s.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, TaskPending, got.Tasks[0].Status, "batch must be all-or-nothing")
	assert.Equal(t, TaskPending, got.Tasks[1].Status)
}

func statusPtrTyped(s TaskStatus) *TaskStatus {
	return &s
}

func TestStoreUpdateOutOfRange(t *testing.T) {
	s := NewStore()
	_, err := s.CreateOrReplace(samplePlan(), NewStaticInventory(map[string]string{"gadget-1": "gadget"}))
	require.NoError(t, err)

	err = s.Update("s1", []TaskUpdate{{TaskIndex: 99}})
	assert.ErrorIs(t, err, ErrTaskIndexOutOfRange)
}

func TestStoreUpdateAppliesSuccessfully(t *testing.T) {
	s := NewStore()
	_, err := s.CreateOrReplace(samplePlan(), NewStaticInventory(map[string]string{"gadget-1": "gadget"}))
	require.NoError(t, err)

	err = s.Update("s1", []TaskUpdate{{TaskIndex: 0, Status: statusPtrTyped(TaskInProgress)}})
	require.NoError(t, err)

	got, err := s.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, TaskInProgress, got.Tasks[0].Status)
}

func TestWalkthroughReconcilesTracker(t *testing.T) {
	s := NewStore()
	_, err := s.CreateOrReplace(samplePlan(), NewStaticInventory(map[string]string{"gadget-1": "gadget"}))
	require.NoError(t, err)

	tracker, err := s.Tracker("s1")
	require.NoError(t, err)
	tracker.RecordCreate("tmp-1", "widget-42")
	tracker.RecordUpdate("gadget-1")

	p, err := s.Get("s1")
	require.NoError(t, err)
	report := Walkthrough(p, tracker)
	assert.True(t, report.Success)
	for _, row := range report.Rows {
		assert.Equal(t, RowVerified, row.Status)
	}
}

func TestWalkthroughFlagsUnexpectedChanges(t *testing.T) {
	s := NewStore()
	_, err := s.CreateOrReplace(samplePlan(), NewStaticInventory(map[string]string{"gadget-1": "gadget"}))
	require.NoError(t, err)

	tracker, err := s.Tracker("s1")
	require.NoError(t, err)
	tracker.RecordCreate("tmp-1", "widget-42")
	tracker.RecordUpdate("gadget-1")
	tracker.RecordDelete("unplanned-entity")

	p, err := s.Get("s1")
	require.NoError(t, err)
	report := Walkthrough(p, tracker)
	assert.False(t, report.Success)
	assert.Contains(t, report.UnexpectedDeletes, "unplanned-entity")
}

func TestWalkthroughMissingCreateIsNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.CreateOrReplace(samplePlan(), NewStaticInventory(map[string]string{"gadget-1": "gadget"}))
	require.NoError(t, err)

	tracker, err := s.Tracker("s1")
	require.NoError(t, err)
	// nothing recorded at all

	p, err := s.Get("s1")
	require.NoError(t, err)
	report := Walkthrough(p, tracker)
	assert.False(t, report.Success)
	found := false
	for _, row := range report.Rows {
		if row.Kind == RowCreate && row.Status == RowNotFound {
			found = true
		}
	}
	assert.True(t, found)
}

func TestWalkthroughUnexecutedDelegationIsNotFound(t *testing.T) {
	p := samplePlan()
	p.Tasks = append(p.Tasks, Task{ID: "t3", Description: "delegate review", Status: TaskPending, DelegateTarget: "reviewer"})

	s := NewStore()
	_, err := s.CreateOrReplace(p, NewStaticInventory(map[string]string{"gadget-1": "gadget"}))
	require.NoError(t, err)

	tracker, err := s.Tracker("s1")
	require.NoError(t, err)
	tracker.RecordCreate("tmp-1", "widget-42")
	tracker.RecordUpdate("gadget-1")

	got, err := s.Get("s1")
	require.NoError(t, err)
	report := Walkthrough(got, tracker)
	assert.False(t, report.Success)

	found := false
	for _, row := range report.Rows {
		if row.Kind == RowDelegation && row.TargetID == "t3" {
			found = true
			assert.Equal(t, RowNotFound, row.Status)
		}
	}
	assert.True(t, found, "un-executed delegation task must produce a not_found row")
}

func TestWalkthroughExecutedDelegationIsVerified(t *testing.T) {
	p := samplePlan()
	p.Tasks = append(p.Tasks, Task{
		ID: "t3", Description: "delegate review", Status: TaskDelegated, DelegateTarget: "reviewer",
		DelegationOutcome: &DelegationOutcome{Success: true},
	})

	s := NewStore()
	_, err := s.CreateOrReplace(p, NewStaticInventory(map[string]string{"gadget-1": "gadget"}))
	require.NoError(t, err)

	tracker, err := s.Tracker("s1")
	require.NoError(t, err)
	tracker.RecordCreate("tmp-1", "widget-42")
	tracker.RecordUpdate("gadget-1")

	got, err := s.Get("s1")
	require.NoError(t, err)
	report := Walkthrough(got, tracker)
	assert.True(t, report.Success)
}
