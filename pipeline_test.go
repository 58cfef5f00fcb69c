package apvec

import (
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/tracklab/go-apvec/dataset"
	"github.com/tracklab/go-apvec/store"
)

// sliceDataset yields a fixed list of samples
type sliceDataset struct {
	samples []*dataset.Sample
	i       int
}

func (s *sliceDataset) Next() (*dataset.Sample, error) {

	if s.i >= len(s.samples) {
		return nil, io.EOF
	}

	sample := s.samples[s.i]
	s.i++
	return sample, nil
}

func (s *sliceDataset) Close() error {
	return nil
}

// stubExtractor returns a fixed-dimension vector per patch and can be set
// to fail on its nth call
type stubExtractor struct {
	dim    int
	calls  int
	failOn int
}

func (e *stubExtractor) Extract(patches []gocv.Mat) ([][]float32, error) {

	e.calls++

	if e.failOn > 0 && e.calls == e.failOn {
		return nil, fmt.Errorf("model failure")
	}

	out := make([][]float32, len(patches))

	for i := range out {
		v := make([]float32, e.dim)

		for j := range v {
			v[j] = float32(e.calls)
		}

		out[i] = v
	}

	return out, nil
}

func testSamples(t *testing.T, n int) []*dataset.Sample {
	t.Helper()

	samples := make([]*dataset.Sample, n)

	for i := range samples {
		samples[i] = &dataset.Sample{
			Seq:     "SEQ",
			FrameID: i + 1,
			Detections: []dataset.Detection{
				{X: 0, Y: 0, W: 3, H: 3},
				{X: 1, Y: 1, W: 2, H: 2},
			},
			Frame: gocv.Zeros(4, 4, gocv.MatTypeCV32FC3),
		}
	}

	return samples
}

func TestRunEndToEnd(t *testing.T) {

	dir := filepath.Join(t.TempDir(), "out")
	w, err := store.NewWriter(dir, 2)
	require.NoError(t, err)

	logger, err := logs.NewLog()
	require.NoError(t, err)

	ds := &sliceDataset{samples: testSamples(t, 3)}
	ex := &stubExtractor{dim: 4}

	require.NoError(t, Run(ds, ex, w, logger))
	require.Equal(t, 3, ex.calls)

	r, err := store.NewReader(dir)
	require.NoError(t, err)

	require.Equal(t, []string{"SEQ_1", "SEQ_2", "SEQ_3"}, r.Keys())

	// 3 frames with samples_per_file=2 split into a full and a partial shard
	shards := r.Shards()
	require.Len(t, shards, 2)
	require.Equal(t, []string{"SEQ_1", "SEQ_2"}, shards["ap_vec_0.apv"])
	require.Equal(t, []string{"SEQ_3"}, shards["ap_vec_1.apv"])

	for _, k := range r.Keys() {
		batch, err := r.Lookup(k)
		require.NoError(t, err, k)
		require.Len(t, batch, 2, k)
		require.Len(t, batch[0], 4, k)
	}
}

func TestRunFailureMidRun(t *testing.T) {

	dir := filepath.Join(t.TempDir(), "out")
	w, err := store.NewWriter(dir, 2)
	require.NoError(t, err)

	logger, err := logs.NewLog()
	require.NoError(t, err)

	ds := &sliceDataset{samples: testSamples(t, 3)}
	ex := &stubExtractor{dim: 4, failOn: 2}

	// the failure aborts the run but partial output is still finalized
	require.Error(t, Run(ds, ex, w, logger))

	r, err := store.NewReader(dir)
	require.NoError(t, err)

	// only the frame before the failure was recorded, the failing frame's
	// key is absent
	require.Equal(t, []string{"SEQ_1"}, r.Keys())

	batch, err := r.Lookup("SEQ_1")
	require.NoError(t, err)
	require.Len(t, batch, 2)

	_, err = r.Lookup("SEQ_2")
	require.Error(t, err)
}

func TestRunEmptyDataset(t *testing.T) {

	dir := filepath.Join(t.TempDir(), "out")
	w, err := store.NewWriter(dir, 2)
	require.NoError(t, err)

	logger, err := logs.NewLog()
	require.NoError(t, err)

	ds := &sliceDataset{}
	ex := &stubExtractor{dim: 4}

	require.NoError(t, Run(ds, ex, w, logger))
	require.Equal(t, 0, ex.calls)

	r, err := store.NewReader(dir)
	require.NoError(t, err)
	require.Empty(t, r.Keys())
}

func TestKey(t *testing.T) {

	if got := Key("MOT17-04-FRCNN", 37); got != "MOT17-04-FRCNN_37" {
		t.Errorf("Key = %q; want MOT17-04-FRCNN_37", got)
	}
}
