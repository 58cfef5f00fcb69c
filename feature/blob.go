package feature

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Blob concatenates a batch of 3 channel float32 image Mats into a single
// NCHW float32 Mat for use as DNN input, applying per-channel mean/std
// normalization while packing
type Blob struct {
	mat gocv.Mat
	// size of the batch
	size int
	// width is the network input width
	width int
	// height is the network input height
	height int
	// matCnt is a counter for how many Mats have been added with Add()
	matCnt int
	// planeSize is the element count of one channel plane
	planeSize int
	mean      [3]float32
	std       [3]float32
}

// NewBlob creates an NCHW blob for the given batch size and network input
// dimensions
func NewBlob(batchSize, height, width int, mean, std [3]float32) *Blob {

	shape := []int{batchSize, 3, height, width}

	return &Blob{
		mat:       gocv.NewMatWithSizes(shape, gocv.MatTypeCV32F),
		size:      batchSize,
		width:     width,
		height:    height,
		planeSize: height * width,
		mean:      mean,
		std:       std,
	}
}

// Add packs the next image into the blob.  The image must be a CV32FC3 Mat
// of the blob's height and width, its interleaved HWC layout is transposed
// to planar CHW and each channel normalized to (v-mean)/std.
func (b *Blob) Add(img gocv.Mat) error {

	// check if blob is full
	if b.matCnt >= b.size {
		return fmt.Errorf("blob full")
	}

	// validate mat dimensions
	if img.Rows() != b.height || img.Cols() != b.width || img.Channels() != 3 {
		return fmt.Errorf("image does not match blob shape")
	}

	src := img

	if !src.IsContinuous() {
		src = img.Clone()
		defer src.Close()
	}

	srcData, err := src.DataPtrFloat32()

	if err != nil {
		return fmt.Errorf("error getting float32 data from image: %w", err)
	}

	dstAll, err := b.mat.DataPtrFloat32()

	if err != nil {
		return fmt.Errorf("error accessing float32 blob memory: %w", err)
	}

	base := b.matCnt * 3 * b.planeSize

	for c := 0; c < 3; c++ {
		plane := dstAll[base+c*b.planeSize : base+(c+1)*b.planeSize]

		for i := 0; i < b.planeSize; i++ {
			plane[i] = (srcData[i*3+c] - b.mean[c]) / b.std[c]
		}
	}

	b.matCnt++
	return nil
}

// Mat returns the concatenated NCHW mat
func (b *Blob) Mat() gocv.Mat {
	return b.mat
}

// Clear the blob so it can be reused again
func (b *Blob) Clear() {
	// just reset the counter, the underlying mat is overwritten by the
	// next Add()
	b.matCnt = 0
}

// Close the blob and free allocated memory
func (b *Blob) Close() error {
	return b.mat.Close()
}
