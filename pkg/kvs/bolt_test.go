package kvs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltKVSAppendBatchAndRead(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	key := JobKey(1)

	err = store.AppendBatch(ctx, []Append{
		{Key: key, Line: []byte("a\n")},
		{Key: key, Line: []byte("b\n")},
	})
	require.NoError(t, err)

	data, err := store.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))
}

func TestBoltKVSAppendBatchAcrossJobsOrdered(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	err = store.AppendBatch(ctx, []Append{
		{Key: JobKey(1), Line: []byte("j1-a\n")},
		{Key: JobKey(2), Line: []byte("j2-a\n")},
		{Key: JobKey(1), Line: []byte("j1-b\n")},
	})
	require.NoError(t, err)

	d1, _ := store.Read(ctx, JobKey(1))
	assert.Equal(t, "j1-a\nj1-b\n", string(d1))

	d2, _ := store.Read(ctx, JobKey(2))
	assert.Equal(t, "j2-a\n", string(d2))
}

func TestBoltKVSReadMissingKey(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	data, err := store.Read(context.Background(), JobKey(999))
	require.NoError(t, err)
	assert.Nil(t, data)
}
