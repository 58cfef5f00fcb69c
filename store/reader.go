package store

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Reader looks feature batches up by frame key from a finished output
// directory.  The vocabulary index is loaded once, shard files are loaded
// lazily and one at a time since trackers consume keys in frame order and
// neighbouring frames live in the same shard.
type Reader struct {
	dir   string
	vocab map[string]string
	// shardName is the basename of the currently cached shard
	shardName string
	shard     map[string]FeatureBatch
}

// NewReader opens the vocabulary index in dir
func NewReader(dir string) (*Reader, error) {

	vocab := make(map[string]string)

	if err := readGob(filepath.Join(dir, vocabularyFile), &vocab); err != nil {
		return nil, fmt.Errorf("error reading vocabulary: %w", err)
	}

	return &Reader{
		dir:   dir,
		vocab: vocab,
	}, nil
}

// Keys returns every indexed frame key in sorted order
func (r *Reader) Keys() []string {

	keys := make([]string, 0, len(r.vocab))

	for k := range r.vocab {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}

// ShardFor returns the shard basename a key is indexed against
func (r *Reader) ShardFor(key string) (string, bool) {
	name, ok := r.vocab[key]
	return name, ok
}

// Shards returns the indexed keys grouped by shard basename
func (r *Reader) Shards() map[string][]string {

	shards := make(map[string][]string)

	for k, name := range r.vocab {
		shards[name] = append(shards[name], k)
	}

	for _, keys := range shards {
		sort.Strings(keys)
	}

	return shards
}

// Lookup returns the feature batch recorded for key, loading the holding
// shard if it is not the cached one
func (r *Reader) Lookup(key string) (FeatureBatch, error) {

	name, ok := r.vocab[key]

	if !ok {
		return nil, fmt.Errorf("key %q is not in the vocabulary", key)
	}

	if name != r.shardName {

		shard := make(map[string]FeatureBatch)

		if err := readGob(filepath.Join(r.dir, name), &shard); err != nil {
			return nil, fmt.Errorf("error reading shard %s: %w", name, err)
		}

		r.shardName = name
		r.shard = shard
	}

	batch, ok := r.shard[key]

	if !ok {
		return nil, fmt.Errorf("key %q indexed against %s but missing from it",
			key, name)
	}

	return batch, nil
}

// readGob deserializes the gob file at path into v
func readGob(path string, v any) error {

	f, err := os.Open(path)

	if err != nil {
		return err
	}

	defer f.Close()

	return gob.NewDecoder(f).Decode(v)
}
