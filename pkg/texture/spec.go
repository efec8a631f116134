// Package texture manages GPU-resident textures for volumetric image
// data: 3D image textures bound to a mutable volume, single-channel
// selection-mask textures with partial update support, and 2D
// offscreen render targets. Actual GPU calls go through the Backend
// interface, for which an OpenGL and an in-memory implementation are
// provided.
//
// All operations assume a single rendering thread with a current GPU
// context; only the Cache is safe for concurrent use.
package texture

import (
	"fmt"

	"voxrender/pkg/volume"
)

// ElemType is the per-channel storage width of a texture.
type ElemType int

const (
	// U8 stores each channel as an unsigned 8-bit integer.
	U8 ElemType = iota

	// U16 stores each channel as an unsigned 16-bit integer.
	U16
)

// String returns the conventional name of the element type.
func (e ElemType) String() string {
	if e == U16 {
		return "uint16"
	}
	return "uint8"
}

// Spec describes how voxel data is stored in a GPU texture, and the
// affine transform between the normalised texel values sampled by the
// GPU (in [0, 1]) and the original voxel values.
//
// The invariant is: texel*Scale + Offset == voxel value, within the
// quantisation error of the storage width.
type Spec struct {
	// Channels is the number of values stored per texel (1 to 4).
	Channels int

	// ElemType is the per-channel storage width.
	ElemType ElemType

	// Normalise indicates that voxel values are rescaled into the
	// storage range using the prepared slab's own value range, rather
	// than stored (offset) natively.
	Normalise bool

	// Scale and Offset recover original voxel values from normalised
	// texels: voxel = texel*Scale + Offset.
	Scale  float64
	Offset float64
}

// Apply transforms a normalised texel value in [0, 1] back to the
// original voxel value range.
func (s Spec) Apply(texel float64) float64 {
	return texel*s.Scale + s.Offset
}

// Invert transforms a voxel value to the corresponding normalised
// texel value. This is the algebraic inverse of Apply, used to map a
// display threshold into texture space.
func (s Spec) Invert(value float64) float64 {
	if s.Scale == 0 {
		return 0
	}
	return (value - s.Offset) / s.Scale
}

// DecideSpec implements the texture type policy: it maps a volume's
// declared element type, channel count and value range to a GPU
// storage format and value transform.
//
// Data that is not one of the four natively storable integer types, or
// for which normalisation was explicitly requested, is stored as
// unsigned 8-bit with a range-derived transform. Native types keep
// their width and use a fixed per-type transform, because the GPU
// normalises unsigned integer texels from [0, MAX] to [0, 1].
func DecideSpec(dtype volume.DType, channels int, normalise bool, dataMin, dataMax float64) (Spec, error) {
	if channels < 1 || channels > 4 {
		return Spec{}, fmt.Errorf("%w: %d (must be 1-4)", ErrUnsupportedChannelCount, channels)
	}

	normalise = normalise || !dtype.IsNative()

	spec := Spec{
		Channels:  channels,
		Normalise: normalise,
	}

	if normalise {
		spec.ElemType = U8
		spec.Offset = dataMin
		spec.Scale = dataMax - dataMin
		return spec, nil
	}

	switch dtype {
	case volume.Uint8:
		spec.ElemType = U8
		spec.Offset = 0
		spec.Scale = 255
	case volume.Int8:
		spec.ElemType = U8
		spec.Offset = -128
		spec.Scale = 255
	case volume.Uint16:
		spec.ElemType = U16
		spec.Offset = 0
		spec.Scale = 65535
	case volume.Int16:
		spec.ElemType = U16
		spec.Offset = -32768
		spec.Scale = 65535
	}
	return spec, nil
}
