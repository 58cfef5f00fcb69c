package feature

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Network input size for the ResNet-18 backbone
const (
	ResnetInputHeight = 128
	ResnetInputWidth  = 128
)

// Resnet18 computes appearance embeddings with a general purpose ResNet-18
// classifier backbone whose classification head has been removed, so the
// network outputs the pooled 512-d feature directly.  The model is loaded
// from an ONNX export of the pretrained weights.
type Resnet18 struct {
	net gocv.Net
}

// NewResnet18 loads the backbone from the given ONNX model file
func NewResnet18(modelFile string) (*Resnet18, error) {

	net := gocv.ReadNetFromONNX(modelFile)

	if net.Empty() {
		return nil, fmt.Errorf("error loading ONNX model %s", modelFile)
	}

	return &Resnet18{net: net}, nil
}

// Extract returns one embedding per patch, resized to 128x128 and channel
// normalized before a single batched forward pass
func (r *Resnet18) Extract(patches []gocv.Mat) ([][]float32, error) {

	if len(patches) == 0 {
		return [][]float32{}, nil
	}

	return runForward(&r.net, patches, ResnetInputHeight, ResnetInputWidth)
}

// Close releases the loaded network
func (r *Resnet18) Close() error {
	return r.net.Close()
}
