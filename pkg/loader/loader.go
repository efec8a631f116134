// Package loader builds volumes from directories of 2D slice images.
package loader

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"voxrender/pkg/volume"
)

// LoadSliceDirectory loads every JPEG file in dir as one axial slice
// and stacks them into a 3D volume. Files are ordered by the numeric
// part of their filenames, which preserves the spatial ordering of
// sequentially numbered slice exports. sliceGap is the physical
// distance between consecutive slices, stored as the z pixdim.
func LoadSliceDirectory(dir string, sliceGap float64) (*volume.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var imageFiles []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".jpg" || ext == ".jpeg" {
			imageFiles = append(imageFiles, entry.Name())
		}
	}

	if len(imageFiles) == 0 {
		return nil, fmt.Errorf("no JPG images found in %s", dir)
	}

	// Sort by the number embedded in each filename so the stacking
	// order matches the acquisition order.
	sort.Slice(imageFiles, func(i, j int) bool {
		return extractNumber(imageFiles[i]) < extractNumber(imageFiles[j])
	})

	var (
		width, height int
		data          []float64
	)

	for i, filename := range imageFiles {
		img, err := loadImage(filepath.Join(dir, filename))
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", filename, err)
		}

		bounds := img.Bounds()
		if i == 0 {
			width = bounds.Dx()
			height = bounds.Dy()
			data = make([]float64, width*height*len(imageFiles))
		} else if bounds.Dx() != width || bounds.Dy() != height {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d",
				filename, bounds.Dx(), bounds.Dy(), width, height)
		}

		base := i * width * height
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				gray := float64(r+g+b) / 3.0 / 257.0
				data[base+y*width+x] = float64(uint8(gray + 0.5))
			}
		}
	}

	return volume.New(data,
		[]int{width, height, len(imageFiles)},
		[]float64{1, 1, sliceGap},
		volume.Uint8)
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := jpeg.Decode(file)
	if err != nil {
		return nil, err
	}

	return img, nil
}
