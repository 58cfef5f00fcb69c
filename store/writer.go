// Package store persists appearance feature vectors as numbered shard
// files plus a run-wide vocabulary index mapping every frame key to the
// shard that holds it.
package store

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// FeatureBatch holds one appearance vector per detection of a single frame,
// index-aligned with the frame's detection list
type FeatureBatch [][]float32

const (
	// shard files are numbered sequentially from zero
	shardPattern = "ap_vec_%d.apv"
	// vocabularyFile is the fixed name of the key to shard index
	vocabularyFile = "ap_vectors.voc"
)

// Writer accumulates key to feature batch entries and flushes them to a new
// numbered shard file every samplesPerFile entries.  It owns the shard
// index and buffer state explicitly, there is no package level state.
type Writer struct {
	dir            string
	samplesPerFile int
	// shardIdx numbers the shard currently being filled
	shardIdx int
	// buf is the current shard's pending entries
	buf map[string]FeatureBatch
	// vocab maps every recorded key to the basename of its shard
	vocab map[string]string
}

// NewWriter creates a shard writer that stores its files in dir, creating
// the directory if needed
func NewWriter(dir string, samplesPerFile int) (*Writer, error) {

	if samplesPerFile <= 0 {
		return nil, fmt.Errorf("samplesPerFile must be positive, got %d",
			samplesPerFile)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}

	return &Writer{
		dir:            dir,
		samplesPerFile: samplesPerFile,
		buf:            make(map[string]FeatureBatch),
		vocab:          make(map[string]string),
	}, nil
}

// ShardName returns the basename of the shard currently being filled
func (w *Writer) ShardName() string {
	return fmt.Sprintf(shardPattern, w.shardIdx)
}

// Record inserts or overwrites the entry for key in the current buffer and
// indexes the key against the current shard.  Keys are unique per frame so
// overwrites only happen if a frame recurs, in which case the last write
// wins.
func (w *Writer) Record(key string, batch FeatureBatch) {
	w.buf[key] = batch
	w.vocab[key] = w.ShardName()
}

// MaybeRotate flushes the buffer to the current shard file and starts a new
// shard once the buffer has reached samplesPerFile entries
func (w *Writer) MaybeRotate() error {

	if len(w.buf) < w.samplesPerFile {
		return nil
	}

	if err := w.flush(); err != nil {
		return err
	}

	w.shardIdx++
	w.buf = make(map[string]FeatureBatch)

	return nil
}

// Finalize writes whatever remains in the buffer to the current shard file,
// even if empty, and then persists the vocabulary index.  The vocabulary is
// only ever written here, shards on disk are unreadable by key if the
// process dies before Finalize runs.
func (w *Writer) Finalize() error {

	if err := w.flush(); err != nil {
		return err
	}

	return writeGob(filepath.Join(w.dir, vocabularyFile), w.vocab)
}

// flush persists the buffer to the current shard file
func (w *Writer) flush() error {
	return writeGob(filepath.Join(w.dir, w.ShardName()), w.buf)
}

// writeGob serializes v to path, open-write-close per flush
func writeGob(path string, v any) error {

	f, err := os.Create(path)

	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}

	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("error encoding %s: %w", path, err)
	}

	return f.Close()
}
