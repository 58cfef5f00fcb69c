// Package feature computes fixed-length appearance embeddings for batches
// of image patches using pretrained backbones run through the OpenCV DNN
// module.
package feature

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ImageNet channel statistics applied to every patch before inference
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Extractor computes one feature vector per input patch.  The result is
// ordered and index-aligned with the input, an empty input yields an empty
// result without touching the model.  Patches are 3 channel float32 RGB
// Mats with values in [0,1] and may be of differing sizes.
type Extractor interface {
	Extract(patches []gocv.Mat) ([][]float32, error)
}

// runForward resizes the patches to the network input size, packs them into
// one normalized NCHW blob and runs a single forward pass, returning one
// vector per patch
func runForward(net *gocv.Net, patches []gocv.Mat, height, width int) ([][]float32, error) {

	blob := NewBlob(len(patches), height, width, imagenetMean, imagenetStd)
	defer blob.Close()

	resized := gocv.NewMat()
	defer resized.Close()

	for i, p := range patches {
		gocv.Resize(p, &resized, image.Pt(width, height), 0, 0,
			gocv.InterpolationArea)

		if err := blob.Add(resized); err != nil {
			return nil, fmt.Errorf("error adding patch %d to blob: %w", i, err)
		}
	}

	net.SetInput(blob.Mat(), "")

	out := net.Forward("")
	defer out.Close()

	return splitOutput(out, len(patches))
}

// splitOutput copies the forward pass result into one vector per batched
// image.  The vector length comes from the output tensor, 512 for the
// reference backbones.
func splitOutput(out gocv.Mat, n int) ([][]float32, error) {

	data, err := out.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error accessing output tensor: %w", err)
	}

	if n <= 0 || len(data)%n != 0 {
		return nil, fmt.Errorf("output of %d values does not split into %d vectors",
			len(data), n)
	}

	dim := len(data) / n
	vecs := make([][]float32, n)

	for i := range vecs {
		v := make([]float32, dim)
		copy(v, data[i*dim:(i+1)*dim])
		vecs[i] = v
	}

	return vecs, nil
}
