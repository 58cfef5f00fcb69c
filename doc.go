/*
go-apvec precomputes per-detection appearance feature vectors (CNN
embeddings) for multi-object-tracking datasets.  It crops a patch for every
detection of every frame, runs the patches through a pretrained backbone in
a single batch per frame, and persists the resulting vectors as numbered
shard files together with a run-wide key to shard index, for later lookup
by a tracker.

See the apvec command in cmd/apvec for the extraction CLI and cmd/apvdump
for inspecting a finished output directory.
*/
package apvec
