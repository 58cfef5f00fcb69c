package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func batchOf(vals ...float32) FeatureBatch {
	return FeatureBatch{vals}
}

func TestWriterRotatesAtThreshold(t *testing.T) {

	dir := t.TempDir()
	w, err := NewWriter(dir, 2)
	require.NoError(t, err)

	w.Record("seq_1", batchOf(1))
	require.NoError(t, w.MaybeRotate())

	// below threshold, nothing on disk yet
	_, err = os.Stat(filepath.Join(dir, "ap_vec_0.apv"))
	require.True(t, os.IsNotExist(err))
	require.Equal(t, "ap_vec_0.apv", w.ShardName())

	w.Record("seq_2", batchOf(2))
	require.NoError(t, w.MaybeRotate())

	// threshold reached, first shard flushed and a new one begun
	require.Equal(t, "ap_vec_1.apv", w.ShardName())

	shard := make(map[string]FeatureBatch)
	require.NoError(t, readGob(filepath.Join(dir, "ap_vec_0.apv"), &shard))
	require.Len(t, shard, 2)
	require.Equal(t, batchOf(1), shard["seq_1"])
	require.Equal(t, batchOf(2), shard["seq_2"])
}

func TestWriterFinalize(t *testing.T) {

	dir := t.TempDir()
	w, err := NewWriter(dir, 2)
	require.NoError(t, err)

	keys := []string{"seq_1", "seq_2", "seq_3"}

	for i, k := range keys {
		w.Record(k, batchOf(float32(i)))
		require.NoError(t, w.MaybeRotate())
	}

	require.NoError(t, w.Finalize())

	// keys that filled the first shard map to it, the remainder to the
	// partial second shard
	vocab := make(map[string]string)
	require.NoError(t, readGob(filepath.Join(dir, "ap_vectors.voc"), &vocab))
	require.Equal(t, map[string]string{
		"seq_1": "ap_vec_0.apv",
		"seq_2": "ap_vec_0.apv",
		"seq_3": "ap_vec_1.apv",
	}, vocab)

	shard := make(map[string]FeatureBatch)
	require.NoError(t, readGob(filepath.Join(dir, "ap_vec_1.apv"), &shard))
	require.Len(t, shard, 1)
}

func TestWriterFinalizeEmpty(t *testing.T) {

	dir := t.TempDir()
	w, err := NewWriter(dir, 4)
	require.NoError(t, err)

	// a run that never recorded anything still writes an empty shard and
	// an empty vocabulary
	require.NoError(t, w.Finalize())

	shard := make(map[string]FeatureBatch)
	require.NoError(t, readGob(filepath.Join(dir, "ap_vec_0.apv"), &shard))
	require.Empty(t, shard)

	vocab := make(map[string]string)
	require.NoError(t, readGob(filepath.Join(dir, "ap_vectors.voc"), &vocab))
	require.Empty(t, vocab)
}

func TestWriterRejectsBadThreshold(t *testing.T) {

	_, err := NewWriter(t.TempDir(), 0)
	require.Error(t, err)
}

func TestWriterOverwriteSameKey(t *testing.T) {

	dir := t.TempDir()
	w, err := NewWriter(dir, 8)
	require.NoError(t, err)

	w.Record("seq_1", batchOf(1))
	w.Record("seq_1", batchOf(2))
	require.NoError(t, w.Finalize())

	shard := make(map[string]FeatureBatch)
	require.NoError(t, readGob(filepath.Join(dir, "ap_vec_0.apv"), &shard))
	require.Len(t, shard, 1)
	require.Equal(t, batchOf(2), shard["seq_1"])
}
