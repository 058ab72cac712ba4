package evx

import (
	"testing"

	"github.com/cuemby/jobmgr/pkg/eventlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexOfAllocatesOncePerName(t *testing.T) {
	idx := New()

	id1, err := idx.IndexOf(eventlog.Submit)
	require.NoError(t, err)
	assert.Equal(t, int32(1), id1)

	id2, err := idx.IndexOf(eventlog.Depend)
	require.NoError(t, err)
	assert.Equal(t, int32(2), id2)

	// Repeat lookup returns the same id, not a fresh allocation.
	again, err := idx.IndexOf(eventlog.Submit)
	require.NoError(t, err)
	assert.Equal(t, id1, again)

	assert.Equal(t, 2, idx.Len())
}

func TestNewPreregistersKnownNames(t *testing.T) {
	idx := New(eventlog.KnownNames()...)
	assert.Equal(t, len(eventlog.KnownNames()), idx.Len())

	id, err := idx.IndexOf(eventlog.Submit)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, id, int32(1))
}

func TestIndexOfConcurrentSameName(t *testing.T) {
	idx := New()
	const n = 50
	ids := make(chan int32, n)
	for i := 0; i < n; i++ {
		go func() {
			id, err := idx.IndexOf(eventlog.Finish)
			require.NoError(t, err)
			ids <- id
		}()
	}
	first := <-ids
	for i := 1; i < n; i++ {
		assert.Equal(t, first, <-ids)
	}
}
