package apvec

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/tracklab/go-apvec/dataset"
)

// Placeholder patch dimensions used for degenerate boxes, matching the ReID
// input aspect
const (
	zeroPatchRows = 256
	zeroPatchCols = 128
)

// ExtractPatch crops the patch for one detection from a frame.  The frame is
// a 3 channel float32 RGB Mat with values in [0,1] as yielded by the dataset
// readers.
//
// A box with a negative top-left coordinate has the negative offset consumed
// into its extent, the origin is then clamped to zero and the far edge to
// the frame bounds.  Boxes that end up with a height or width of one pixel
// or less are replaced by an all-zero 256x128 placeholder patch rather than
// reported as errors, keys stay index-aligned with their detections this
// way.
//
// Crops are views into the frame, the returned Mat must be closed by the
// caller before the frame is.
func ExtractPatch(frame gocv.Mat, d dataset.Detection) gocv.Mat {

	w := int(d.W)

	if d.X <= 0 {
		w = int(d.X + d.W)
	}

	h := int(d.H)

	if d.Y <= 0 {
		h = int(d.Y + d.H)
	}

	x := int(d.X)

	if x < 0 {
		x = 0
	}

	y := int(d.Y)

	if y < 0 {
		y = 0
	}

	if h <= 1 || w <= 1 {
		return zeroPatch()
	}

	// truncate at the frame edges like an array slice would
	x2 := x + w

	if x2 > frame.Cols() {
		x2 = frame.Cols()
	}

	y2 := y + h

	if y2 > frame.Rows() {
		y2 = frame.Rows()
	}

	if x2-x <= 1 || y2-y <= 1 {
		return zeroPatch()
	}

	return frame.Region(image.Rect(x, y, x2, y2))
}

// zeroPatch returns the placeholder patch used for degenerate boxes
func zeroPatch() gocv.Mat {
	return gocv.Zeros(zeroPatchRows, zeroPatchCols, gocv.MatTypeCV32FC3)
}
