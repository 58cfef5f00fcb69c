package apvec

import (
	"fmt"
	"io"

	"github.com/cyclopcam/logs"
	"gocv.io/x/gocv"

	"github.com/tracklab/go-apvec/dataset"
	"github.com/tracklab/go-apvec/feature"
	"github.com/tracklab/go-apvec/store"
)

// progressEvery is the frame interval between progress log lines
const progressEvery = 500

// Key builds the storage key for one frame of one sequence
func Key(seq string, frameID int) string {
	return fmt.Sprintf("%s_%d", seq, frameID)
}

// Run drives the extraction pipeline over every dataset sample in order:
// crop a patch per detection, run one batched inference per frame, record
// the vectors and rotate the shard when full.
//
// The first failure stops the loop, the current key is logged and the run
// proceeds straight to Finalize so every fully processed frame before the
// failure is preserved on disk.  Finalize runs unconditionally.
func Run(ds dataset.Dataset, ex feature.Extractor, w *store.Writer, logger logs.Log) error {

	var runErr error
	key := ""
	frames := 0

	for {
		sample, err := ds.Next()

		if err == io.EOF {
			break
		}

		if err != nil {
			runErr = err
			break
		}

		key = Key(sample.Seq, sample.FrameID)
		err = processSample(sample, key, ex, w)
		sample.Close()

		if err != nil {
			runErr = err
			break
		}

		frames++

		if frames%progressEvery == 0 {
			logger.Infof("Processed %d frames, last key %s", frames, key)
		}
	}

	if runErr != nil {
		logger.Errorf("Processing interrupted: %v", runErr)
		logger.Errorf("Current key: %s", key)
	}

	if err := w.Finalize(); err != nil {
		logger.Errorf("Error finalizing output: %v", err)

		if runErr == nil {
			runErr = err
		}
	}

	logger.Infof("Wrote %d frames", frames)
	return runErr
}

// processSample crops, extracts and records one sample.  This is the single
// caught-error boundary of the run, panics from the image or inference
// layers surface as errors here and abort the remaining dataset.
func processSample(sample *dataset.Sample, key string, ex feature.Extractor, w *store.Writer) (err error) {

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing sample: %v", r)
		}
	}()

	patches := make([]gocv.Mat, 0, len(sample.Detections))

	defer func() {
		for _, p := range patches {
			p.Close()
		}
	}()

	for _, d := range sample.Detections {
		patches = append(patches, ExtractPatch(sample.Frame, d))
	}

	feats, err := ex.Extract(patches)

	if err != nil {
		return fmt.Errorf("feature extraction failed: %w", err)
	}

	w.Record(key, feats)
	return w.MaybeRotate()
}
