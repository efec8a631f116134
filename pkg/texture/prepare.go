package texture

import (
	"fmt"
	"math"

	"voxrender/pkg/volume"
)

// Layout identifies the memory ordering of an upload buffer.
type Layout int

const (
	// ColumnMajor orders samples with the first spatial axis fastest
	// (and, for multi-channel data, the channel index faster still).
	// This is the layout the 3D upload path requires, matching how
	// the GPU addresses the first texture dimension.
	ColumnMajor Layout = iota

	// RowMajor orders samples with the last axis fastest.
	RowMajor
)

// String returns the conventional name of the layout.
func (l Layout) String() string {
	if l == RowMajor {
		return "row-major"
	}
	return "column-major"
}

// PixelData is a GPU-upload-ready buffer. Exactly one of U8 or U16 is
// set, matching the Spec's element type. Layout is declared explicitly
// so the upload path can validate it rather than assuming a numeric
// library's default ordering.
type PixelData struct {
	U8     []uint8
	U16    []uint16
	Layout Layout
}

// Len returns the number of stored elements.
func (p PixelData) Len() int {
	if p.U16 != nil {
		return len(p.U16)
	}
	return len(p.U8)
}

// Prepared is the output of PrepareData: the upload buffer plus the
// (possibly resampled) spatial shape it represents.
type Prepared struct {
	Pix      PixelData
	Shape    [3]int
	Channels int
}

// PrefilterFunc is an optional caller-supplied transform applied to
// the slab values before normalisation, e.g. masking or windowing. It
// must return a buffer of the same length (or an empty buffer, which
// aborts the refresh).
type PrefilterFunc func([]float64) []float64

// PrepareOptions controls data preparation.
type PrepareOptions struct {
	// Resolution is the requested physical resolution. Zero (or any
	// value at or below the native spacing) keeps the native shape.
	Resolution float64

	// VolumeIndex selects the 3D slab of a 4D single-channel volume.
	VolumeIndex int

	// Prefilter, if non-nil, is applied before normalisation so that
	// the normalisation range reflects the filtered data.
	Prefilter PrefilterFunc
}

// strides returns the per-axis decimation stride for the requested
// resolution: round(resolution / pixdim), clamped to a minimum of 1.
func strides(resolution float64, pixdim []float64) [3]int {
	var st [3]int
	for i := 0; i < 3; i++ {
		st[i] = 1
		if resolution > 0 && pixdim[i] > 0 {
			s := int(math.Round(resolution / pixdim[i]))
			if s > 1 {
				st[i] = s
			}
		}
	}
	return st
}

// PrepareData produces a GPU-upload-ready buffer from a volume
// snapshot, in order: slab selection, stride decimation, prefilter,
// normalisation/cast per the given Spec.
//
// Decimation takes every stride-th voxel starting at index zero along
// each axis, so it is deterministic and allocates only the resampled
// shape. When the spec normalises, the rescale uses the prepared
// slab's own min/max, not the whole-volume range; a 4D volume-index
// selection therefore gets its own contrast range.
func PrepareData(vol *volume.Volume, spec Spec, opts PrepareOptions) (Prepared, error) {
	shape := vol.Shape()
	spatial := vol.SpatialShape()
	channels := spec.Channels

	if channels > 1 {
		if len(shape) != 4 || shape[3] != channels {
			return Prepared{}, fmt.Errorf("%w: %d channels requested for shape %v",
				ErrChannelShapeMismatch, channels, shape)
		}
	}

	volIdx := 0
	if channels == 1 && vol.Is4D() {
		volIdx = opts.VolumeIndex
		if volIdx < 0 || volIdx >= vol.NumVolumes() {
			return Prepared{}, fmt.Errorf("volume index %d out of range [0, %d)",
				volIdx, vol.NumVolumes())
		}
	}

	st := strides(opts.Resolution, vol.Pixdim())
	var outShape [3]int
	for i := 0; i < 3; i++ {
		outShape[i] = (spatial[i] + st[i] - 1) / st[i]
	}
	if outShape[0] < 1 || outShape[1] < 1 || outShape[2] < 1 {
		return Prepared{}, fmt.Errorf("%w: resampled shape %v", ErrEmptyTextureData, outShape)
	}

	// Gather the slab with channels fastest, first spatial axis next.
	n := outShape[0] * outShape[1] * outShape[2] * channels
	slab := make([]float64, n)
	i := 0
	for z := 0; z < outShape[2]; z++ {
		for y := 0; y < outShape[1]; y++ {
			for x := 0; x < outShape[0]; x++ {
				for c := 0; c < channels; c++ {
					t := volIdx
					if channels > 1 {
						t = c
					}
					slab[i] = vol.At(x*st[0], y*st[1], z*st[2], t)
					i++
				}
			}
		}
	}

	if opts.Prefilter != nil {
		slab = opts.Prefilter(slab)
		if len(slab) == 0 {
			return Prepared{}, fmt.Errorf("%w: prefilter returned no data", ErrEmptyTextureData)
		}
		if len(slab) != n {
			return Prepared{}, fmt.Errorf("prefilter changed data length from %d to %d", n, len(slab))
		}
	}

	pix, err := castSlab(slab, spec, vol.DType())
	if err != nil {
		return Prepared{}, err
	}
	return Prepared{Pix: pix, Shape: outShape, Channels: channels}, nil
}

// castSlab normalises or offset-casts the slab into the spec's storage
// type. The buffer keeps its column-major ordering.
func castSlab(slab []float64, spec Spec, dtype volume.DType) (PixelData, error) {
	pix := PixelData{Layout: ColumnMajor}

	if spec.Normalise {
		lo, hi := slab[0], slab[0]
		for _, v := range slab {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		out := make([]uint8, len(slab))
		if hi > lo {
			scale := 255 / (hi - lo)
			for i, v := range slab {
				out[i] = uint8(math.Round((v - lo) * scale))
			}
		}
		pix.U8 = out
		return pix, nil
	}

	switch dtype {
	case volume.Uint8:
		out := make([]uint8, len(slab))
		for i, v := range slab {
			out[i] = uint8(v)
		}
		pix.U8 = out
	case volume.Int8:
		out := make([]uint8, len(slab))
		for i, v := range slab {
			out[i] = uint8(v + 128)
		}
		pix.U8 = out
	case volume.Uint16:
		out := make([]uint16, len(slab))
		for i, v := range slab {
			out[i] = uint16(v)
		}
		pix.U16 = out
	case volume.Int16:
		out := make([]uint16, len(slab))
		for i, v := range slab {
			out[i] = uint16(v + 32768)
		}
		pix.U16 = out
	default:
		return PixelData{}, fmt.Errorf("cannot store %v without normalisation", dtype)
	}
	return pix, nil
}
