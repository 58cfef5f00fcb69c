// Package dataset provides ordered sample iteration over multi-object
// tracking datasets.  Readers for the MOTChallenge and UA-DETRAC directory
// layouts are included.
package dataset

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Detection holds one bounding box in top-left x, y, width, height form as
// provided by the dataset's public detections.
type Detection struct {
	X, Y, W, H float32
	// Score is the detector confidence, kept for downstream consumers
	Score float32
}

// Sample is one frame of one sequence together with its public detections.
// The Frame Mat is a 3 channel RGB float32 image with values in [0,1].
// Samples are immutable once yielded, the caller owns the Frame and must
// Close it when done.
type Sample struct {
	Seq        string
	FrameID    int
	Detections []Detection
	Frame      gocv.Mat
}

// Close frees the frame pixel data
func (s *Sample) Close() error {
	return s.Frame.Close()
}

// Dataset yields samples ordered by sequence then frame id.  Next returns
// io.EOF once the dataset is exhausted.
type Dataset interface {
	Next() (*Sample, error)
	Close() error
}

// loadFrame reads an image file and converts it to the RGB float32 [0,1]
// form all samples carry
func loadFrame(path string) (gocv.Mat, error) {

	img := gocv.IMRead(path, gocv.IMReadColor)

	if img.Empty() {
		return gocv.NewMat(), fmt.Errorf("error reading image %s", path)
	}

	defer img.Close()

	rgb := gocv.NewMat()
	gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)
	defer rgb.Close()

	frame := gocv.NewMat()
	rgb.ConvertToWithParams(&frame, gocv.MatTypeCV32FC3, 1.0/255.0, 0)

	return frame, nil
}
