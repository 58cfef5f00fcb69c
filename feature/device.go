package feature

import (
	"gocv.io/x/gocv/cuda"
)

// cudaAvailable reports whether a CUDA capable device is present for DNN
// inference
func cudaAvailable() bool {
	return cuda.GetCudaEnabledDeviceCount() > 0
}
