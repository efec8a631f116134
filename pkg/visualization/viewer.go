// Package visualization extracts 2D slice images from a volume and
// writes them, or GPU readbacks, to disk as JPEG files.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"voxrender/pkg/volume"
)

// Viewer extracts grayscale slice images from a volume. Values are
// mapped to the 16-bit range using the volume's data range.
type Viewer struct {
	vol *volume.Volume

	// volumeIndex selects which 4D volume slices are taken from
	volumeIndex int
}

// NewViewer creates a viewer for the given volume.
func NewViewer(vol *volume.Volume, volumeIndex int) *Viewer {
	return &Viewer{vol: vol, volumeIndex: volumeIndex}
}

// grayValue maps a voxel value to 16-bit gray using the volume range.
func (v *Viewer) grayValue(val float64) uint16 {
	lo, hi := v.vol.Min(), v.vol.Max()
	if hi <= lo {
		return 0
	}
	f := (val - lo) / (hi - lo)
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return uint16(f * 65535)
}

// ExtractSlice extracts a 2D slice image perpendicular to the given
// spatial axis (0, 1 or 2) at the given voxel position.
func (v *Viewer) ExtractSlice(axis, position int) (image.Image, error) {
	shape := v.vol.SpatialShape()

	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("invalid axis: %d (must be 0, 1 or 2)", axis)
	}
	if position < 0 || position >= shape[axis] {
		return nil, fmt.Errorf("position %d exceeds axis %d extent %d",
			position, axis, shape[axis])
	}

	var img *image.Gray16

	switch axis {
	case 0:
		// Slice along the YZ plane
		img = image.NewGray16(image.Rect(0, 0, shape[2], shape[1]))
		for y := 0; y < shape[1]; y++ {
			for z := 0; z < shape[2]; z++ {
				val := v.vol.At(position, y, z, v.volumeIndex)
				img.SetGray16(z, y, color.Gray16{Y: v.grayValue(val)})
			}
		}

	case 1:
		// Slice along the XZ plane
		img = image.NewGray16(image.Rect(0, 0, shape[0], shape[2]))
		for z := 0; z < shape[2]; z++ {
			for x := 0; x < shape[0]; x++ {
				val := v.vol.At(x, position, z, v.volumeIndex)
				img.SetGray16(x, z, color.Gray16{Y: v.grayValue(val)})
			}
		}

	case 2:
		// Slice along the XY plane
		img = image.NewGray16(image.Rect(0, 0, shape[0], shape[1]))
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[0]; x++ {
				val := v.vol.At(x, y, position, v.volumeIndex)
				img.SetGray16(x, y, color.Gray16{Y: v.grayValue(val)})
			}
		}
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every slice along the given axis
func (v *Viewer) SaveSliceSequence(axis int, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	shape := v.vol.SpatialShape()
	if axis < 0 || axis > 2 {
		return fmt.Errorf("invalid axis: %d (must be 0, 1 or 2)", axis)
	}
	axisNames := [3]string{"x", "y", "z"}

	for pos := 0; pos < shape[axis]; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir,
			fmt.Sprintf("slice_%s_%03d.jpg", axisNames[axis], pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// ReadbackImage converts a tightly packed RGBA8 pixel readback, as
// returned by a render backend, to an image. GL readbacks have row 0
// at the bottom, so rows are flipped.
func ReadbackImage(pix []uint8, width, height int) (image.Image, error) {
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("readback of %d bytes does not match %dx%d RGBA",
			len(pix), width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		src := pix[(height-1-y)*width*4 : (height-y)*width*4]
		dst := img.Pix[y*img.Stride : y*img.Stride+width*4]
		copy(dst, src)
	}
	return img, nil
}

// SaveReadback writes an RGBA8 pixel readback as a JPEG image.
func SaveReadback(pix []uint8, width, height int, filename string) error {
	img, err := ReadbackImage(pix, width, height)
	if err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}
