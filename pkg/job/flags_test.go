package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagByName(t *testing.T) {
	f, ok := FlagByName("waitable")
	assert.True(t, ok)
	assert.Equal(t, Waitable, f)

	_, ok = FlagByName("not-a-flag")
	assert.False(t, ok)
}

func TestFlagsUnionAndHas(t *testing.T) {
	var f Flags
	f = f.Union(Waitable)
	assert.True(t, f.Has(Waitable))
	assert.False(t, f.Has(Debug))

	f = f.Union(Debug)
	assert.True(t, f.Has(Waitable | Debug))
}

func TestOutstandingWith(t *testing.T) {
	var o Outstanding
	assert.True(t, o.None())

	o = o.With(AllocPending, true)
	assert.True(t, o.Has(AllocPending))
	assert.False(t, o.None())

	o = o.With(AllocPending, false)
	assert.True(t, o.None())
}
