package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/jobmgr/pkg/errs"
	"github.com/cuemby/jobmgr/pkg/eventlog"
	"github.com/cuemby/jobmgr/pkg/job"
)

func entry(name eventlog.Name, ctx map[string]any) eventlog.Entry {
	return eventlog.Entry{Timestamp: 1, Name: name, Context: ctx}
}

// TestS1HappyPath walks scenario S1: submit -> depend (auto) -> priority
// -> alloc -> finish(0) -> free -> clean, ending INACTIVE with end_event
// "finish".
func TestS1HappyPath(t *testing.T) {
	j := job.NewJob(1)

	changed, err := Apply(j, entry(eventlog.Submit, map[string]any{"urgency": 16}))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, job.Depend, j.State)

	changed, err = Apply(j, entry(eventlog.Depend, nil))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, job.Priority, j.State)

	changed, err = Apply(j, entry(eventlog.Priority, map[string]any{"priority": int64(100)}))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, job.Sched, j.State)
	assert.Equal(t, int64(100), j.Priority)

	changed, err = Apply(j, entry(eventlog.Alloc, nil))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, job.Run, j.State)
	assert.True(t, j.HasResources)

	finish := entry(eventlog.Finish, map[string]any{"severity": 0})
	changed, err = Apply(j, finish)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, job.Cleanup, j.State)
	require.NotNil(t, j.EndEvent)
	assert.Equal(t, eventlog.Finish, j.EndEvent.Name)

	changed, err = Apply(j, entry(eventlog.Free, nil))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, j.HasResources)

	changed, err = Apply(j, entry(eventlog.Clean, nil))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, job.Inactive, j.State)
}

// TestExceptionDuringSchedForcesCleanupAndLatchesEndEvent covers S3: a
// severity-0 exception in SCHED forces CLEANUP, and a later finish does
// not overwrite end_event.
func TestExceptionDuringSchedForcesCleanupAndLatchesEndEvent(t *testing.T) {
	j := job.NewJob(2)
	j.State = job.Sched

	changed, err := Apply(j, entry(eventlog.Exception, map[string]any{"severity": 0}))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, job.Cleanup, j.State)
	require.NotNil(t, j.EndEvent)
	assert.Equal(t, eventlog.Exception, j.EndEvent.Name)

	_, err = Apply(j, entry(eventlog.Finish, map[string]any{"severity": 0}))
	require.NoError(t, err)
	assert.Equal(t, eventlog.Exception, j.EndEvent.Name, "exception must win over a later finish")
}

func TestNonFatalExceptionDoesNotChangeState(t *testing.T) {
	j := job.NewJob(3)
	j.State = job.Run

	changed, err := Apply(j, entry(eventlog.Exception, map[string]any{"severity": 1}))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, job.Run, j.State)
	assert.Nil(t, j.EndEvent)
}

func TestExceptionRejectedInNewAndInactive(t *testing.T) {
	j := job.NewJob(4)
	_, err := Apply(j, entry(eventlog.Exception, map[string]any{"severity": 0}))
	require.Error(t, err)
	assert.Equal(t, errs.InvalidTransition, errs.KindOf(err))

	j.State = job.Inactive
	_, err = Apply(j, entry(eventlog.Exception, map[string]any{"severity": 0}))
	require.Error(t, err)
}

func TestSubmitRequiresNew(t *testing.T) {
	j := job.NewJob(5)
	j.State = job.Depend
	_, err := Apply(j, entry(eventlog.Submit, nil))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidTransition))
}

func TestFluxRestartOnlyFromSched(t *testing.T) {
	j := job.NewJob(6)
	j.State = job.Sched
	changed, err := Apply(j, entry(eventlog.FluxRestart, nil))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, job.Priority, j.State)

	j.State = job.Run
	_, err = Apply(j, entry(eventlog.FluxRestart, nil))
	require.Error(t, err)
}

func TestFreeRequiresHasResources(t *testing.T) {
	j := job.NewJob(7)
	j.State = job.Cleanup
	_, err := Apply(j, entry(eventlog.Free, nil))
	require.Error(t, err)
	assert.Equal(t, errs.InvalidTransition, errs.KindOf(err))
}

func TestFinalReleaseRejectedInRun(t *testing.T) {
	j := job.NewJob(8)
	j.State = job.Run
	_, err := Apply(j, entry(eventlog.Release, map[string]any{"final": true}))
	require.Error(t, err)

	j.State = job.Cleanup
	changed, err := Apply(j, entry(eventlog.Release, map[string]any{"final": true}))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestPrologGuardedByStartPending(t *testing.T) {
	j := job.NewJob(9)
	j.Outstanding = j.Outstanding.With(job.StartPending, true)
	_, err := Apply(j, entry(eventlog.PrologStart, nil))
	require.Error(t, err)

	j.Outstanding = j.Outstanding.With(job.StartPending, false)
	changed, err := Apply(j, entry(eventlog.PrologStart, nil))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.EqualValues(t, 1, j.PerilogActive)

	_, err = Apply(j, entry(eventlog.PrologFinish, nil))
	require.NoError(t, err)
	assert.EqualValues(t, 0, j.PerilogActive)
}

func TestEpilogOnlyInCleanup(t *testing.T) {
	j := job.NewJob(10)
	j.State = job.Run
	_, err := Apply(j, entry(eventlog.EpilogStart, nil))
	require.Error(t, err)

	j.State = job.Cleanup
	_, err = Apply(j, entry(eventlog.EpilogStart, nil))
	require.NoError(t, err)
	assert.EqualValues(t, 1, j.PerilogActive)
}

func TestUnknownEventNameNeverChangesState(t *testing.T) {
	j := job.NewJob(11)
	j.State = job.Run
	changed, err := Apply(j, entry(eventlog.Name("custom-thing"), map[string]any{"x": 1}))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, job.Run, j.State)
}

func TestMemoNeverChangesState(t *testing.T) {
	j := job.NewJob(20)
	j.State = job.Run
	changed, err := Apply(j, entry(eventlog.Memo, map[string]any{"note": "hello"}))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, job.Run, j.State)
}

func TestSetFlagsAppliesFromAnyState(t *testing.T) {
	j := job.NewJob(12)
	j.State = job.Run
	changed, err := Apply(j, entry(eventlog.SetFlags, map[string]any{"flags": []any{"waitable", "debug"}}))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, j.Flags.Has(job.Waitable))
	assert.True(t, j.Flags.Has(job.Debug))
}

func TestDependencyCountKeyedByDescription(t *testing.T) {
	j := job.NewJob(13)
	j.State = job.Depend

	_, err := Apply(j, entry(eventlog.DependencyAdd, map[string]any{"description": "a"}))
	require.NoError(t, err)
	_, err = Apply(j, entry(eventlog.DependencyAdd, map[string]any{"description": "b"}))
	require.NoError(t, err)
	assert.EqualValues(t, 2, j.DependencyCount)

	_, err = Apply(j, entry(eventlog.DependencyRemove, map[string]any{"description": "a"}))
	require.NoError(t, err)
	_, err = Apply(j, entry(eventlog.DependencyRemove, map[string]any{"description": "b"}))
	require.NoError(t, err)
	assert.EqualValues(t, 0, j.DependencyCount)
}

func TestUrgencyRejectedWhenTerminal(t *testing.T) {
	j := job.NewJob(14)
	j.State = job.Inactive
	_, err := Apply(j, entry(eventlog.Urgency, map[string]any{"urgency": 5}))
	require.Error(t, err)
}
