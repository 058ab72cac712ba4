package job

import (
	"testing"

	"github.com/cuemby/jobmgr/pkg/eventlog"
	"github.com/stretchr/testify/assert"
)

func TestNewJobDefaults(t *testing.T) {
	j := NewJob(42)
	assert.Equal(t, uint64(42), j.ID)
	assert.Equal(t, New, j.State)
	assert.Equal(t, UnsetPriority, j.Priority)
	assert.Zero(t, j.DependencyCount)
}

func TestDependencyAddRemoveKeyedByDescription(t *testing.T) {
	j := NewJob(1)
	j.AddDependency("a")
	j.AddDependency("b")
	assert.Equal(t, uint32(2), j.DependencyCount)

	// Adding the same description twice does not double count.
	j.AddDependency("a")
	assert.Equal(t, uint32(2), j.DependencyCount)

	j.RemoveDependency("a")
	assert.Equal(t, uint32(1), j.DependencyCount)

	// Removing an unknown description is a no-op.
	j.RemoveDependency("unknown")
	assert.Equal(t, uint32(1), j.DependencyCount)

	j.RemoveDependency("b")
	assert.Equal(t, uint32(0), j.DependencyCount)
}

func TestEndEventLatchesFirstOnly(t *testing.T) {
	j := NewJob(1)
	j.SetEndEvent(eventlog.Entry{Timestamp: 1, Name: eventlog.Exception})
	j.SetEndEvent(eventlog.Entry{Timestamp: 2, Name: eventlog.Finish})

	assert.Equal(t, eventlog.Exception, j.EndEvent.Name)
}

func TestRefcountZeroAfterBalancedIncDec(t *testing.T) {
	j := NewJob(1)
	j.Incref()
	j.Incref()
	assert.False(t, j.Decref())
	assert.True(t, j.Decref())
	assert.Equal(t, uint32(0), j.Refcount())
}

func TestDecrefNeverGoesNegative(t *testing.T) {
	j := NewJob(1)
	assert.True(t, j.Decref())
	assert.Equal(t, uint32(0), j.Refcount())
}

func TestRecordAndLookupLastEvent(t *testing.T) {
	j := NewJob(1)
	_, ok := j.LastEvent(7)
	assert.False(t, ok)

	j.RecordLastEvent(7, 3)
	seq, ok := j.LastEvent(7)
	assert.True(t, ok)
	assert.Equal(t, int64(3), seq)
}
