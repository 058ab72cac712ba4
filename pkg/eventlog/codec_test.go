package eventlog

import (
	"testing"

	"github.com/cuemby/jobmgr/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	entry := Entry{
		Timestamp: 1700000000.5,
		Name:      Submit,
		Context:   map[string]any{"userid": float64(1000)},
	}

	encoded, err := Encode(entry)
	require.NoError(t, err)
	assert.True(t, len(encoded) > 0)
	assert.Equal(t, byte('\n'), encoded[len(encoded)-1])

	decoded, err := Parse(encoded)
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)
}

func TestEncodeRejectsNegativeTimestamp(t *testing.T) {
	_, err := Encode(Entry{Timestamp: -1, Name: Submit})
	require.Error(t, err)
	assert.Equal(t, errs.Malformed, errs.KindOf(err))
}

func TestEncodeRejectsEmptyName(t *testing.T) {
	_, err := Encode(Entry{Timestamp: 1, Name: ""})
	require.Error(t, err)
	assert.Equal(t, errs.Malformed, errs.KindOf(err))
}

func TestParseLogMultipleEntries(t *testing.T) {
	var blob []byte
	names := []Name{Submit, Depend, Priority}
	for i, n := range names {
		line, err := Encode(Entry{Timestamp: float64(i), Name: n})
		require.NoError(t, err)
		blob = append(blob, line...)
	}

	entries, err := ParseLog(blob)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, n := range names {
		assert.Equal(t, n, entries[i].Name)
	}
}

func TestParseLogEmpty(t *testing.T) {
	entries, err := ParseLog(nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
