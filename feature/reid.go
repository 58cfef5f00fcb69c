package feature

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Network input size for the person ReID backbone
const (
	ReidInputHeight = 256
	ReidInputWidth  = 128
)

// Reid computes appearance embeddings with a pretrained person
// re-identification backbone (512-d output) loaded from a caller supplied
// ONNX checkpoint.  Inference runs on the CUDA backend when a device is
// present, otherwise on the CPU.
type Reid struct {
	net gocv.Net
	// onCuda records which backend was selected at load time
	onCuda bool
}

// NewReid loads the ReID backbone from the given ONNX checkpoint file
func NewReid(ckptFile string) (*Reid, error) {

	net := gocv.ReadNetFromONNX(ckptFile)

	if net.Empty() {
		return nil, fmt.Errorf("error loading ReID checkpoint %s", ckptFile)
	}

	r := &Reid{net: net}

	if cudaAvailable() {
		if err := net.SetPreferableBackend(gocv.NetBackendCUDA); err != nil {
			net.Close()
			return nil, fmt.Errorf("error selecting CUDA backend: %w", err)
		}

		if err := net.SetPreferableTarget(gocv.NetTargetCUDA); err != nil {
			net.Close()
			return nil, fmt.Errorf("error selecting CUDA target: %w", err)
		}

		r.onCuda = true
	}

	return r, nil
}

// Extract returns one embedding per patch, resized to 256x128 and channel
// normalized before a single batched forward pass
func (r *Reid) Extract(patches []gocv.Mat) ([][]float32, error) {

	if len(patches) == 0 {
		return [][]float32{}, nil
	}

	return runForward(&r.net, patches, ReidInputHeight, ReidInputWidth)
}

// OnCuda reports whether the CUDA backend was selected
func (r *Reid) OnCuda() bool {
	return r.onCuda
}

// Close releases the loaded network
func (r *Reid) Close() error {
	return r.net.Close()
}
