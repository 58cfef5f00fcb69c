// Package render builds visual QA output from image patches.
package render

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// Montage composites the patches into a tiled contact sheet, cols tiles
// wide, each patch scaled into a tileW x tileH cell in input order.
// Patches are 3 channel float32 RGB Mats with values in [0,1] as produced
// by the patch extractor.
func Montage(patches []gocv.Mat, cols, tileW, tileH int) (image.Image, error) {

	if len(patches) == 0 {
		return nil, fmt.Errorf("no patches to render")
	}

	if cols <= 0 || tileW <= 0 || tileH <= 0 {
		return nil, fmt.Errorf("invalid montage geometry %dx(%dx%d)",
			cols, tileW, tileH)
	}

	rows := (len(patches) + cols - 1) / cols
	sheet := image.NewRGBA(image.Rect(0, 0, cols*tileW, rows*tileH))

	for i, p := range patches {

		img, err := patchToImage(p)

		if err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}

		cell := image.Rect(
			(i%cols)*tileW,
			(i/cols)*tileH,
			(i%cols+1)*tileW,
			(i/cols+1)*tileH,
		)

		draw.ApproxBiLinear.Scale(sheet, cell, img, img.Bounds(), draw.Src, nil)
	}

	return sheet, nil
}

// patchToImage converts a CV32FC3 RGB [0,1] Mat to an image.RGBA
func patchToImage(m gocv.Mat) (*image.RGBA, error) {

	if m.Channels() != 3 || m.Type() != gocv.MatTypeCV32FC3 {
		return nil, fmt.Errorf("patch is not CV32FC3")
	}

	src := m

	if !src.IsContinuous() {
		src = m.Clone()
		defer src.Close()
	}

	data, err := src.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error accessing patch data: %w", err)
	}

	rows := m.Rows()
	cols := m.Cols()
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			i := (y*cols + x) * 3
			o := img.PixOffset(x, y)

			img.Pix[o] = clampByte(data[i])
			img.Pix[o+1] = clampByte(data[i+1])
			img.Pix[o+2] = clampByte(data[i+2])
			img.Pix[o+3] = 0xff
		}
	}

	return img, nil
}

// clampByte maps a [0,1] float to a byte, clamping out of range values
func clampByte(v float32) uint8 {

	v *= 255

	if v < 0 {
		return 0
	}

	if v > 255 {
		return 255
	}

	return uint8(v)
}
