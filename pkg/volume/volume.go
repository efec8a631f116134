// Package volume provides the in-memory representation of 3D/4D
// volumetric image data consumed by the texture pipeline.
//
// A Volume holds its samples as a flat []float64 with the first axis
// the fastest changing (column-major with respect to the X,Y,Z[,T]
// shape). This matches the layout expected by the GPU upload path, so
// a prepared slab can be copied out without reordering.
package volume

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"voxrender/internal/signal"
)

// DType identifies the declared element type of a volume. The texture
// type policy uses it to choose a GPU storage format; samples are held
// as float64 in memory regardless.
type DType int

const (
	Uint8 DType = iota
	Int8
	Uint16
	Int16
	Float32
	Float64
)

// String returns the conventional name of the data type.
func (d DType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Int8:
		return "int8"
	case Uint16:
		return "uint16"
	case Int16:
		return "int16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("DType(%d)", int(d))
}

// IsNative reports whether the type can be stored in a GPU texture
// without normalisation (the four 8/16-bit integer types).
func (d DType) IsNative() bool {
	switch d {
	case Uint8, Int8, Uint16, Int16:
		return true
	}
	return false
}

// Change describes one mutation of a volume's data. For a region edit,
// Old and New hold the overwritten and the new sub-block (column-major,
// shape BlockShape) and Offset is the block origin. For a bulk replace
// (SetData, Fill) Old and New are nil and Offset is the zero origin.
type Change struct {
	Old        []float64
	New        []float64
	BlockShape [3]int
	Offset     [3]int
}

// Volume is a 3D or 4D array of numeric samples with physical voxel
// spacing and a voxel-to-world affine transform.
//
// Volume is mutable: SetRegion overwrites a sub-block and notifies
// subscribers synchronously before returning. All access is expected
// to happen on a single (rendering) thread.
type Volume struct {
	data   []float64
	shape  []int
	pixdim []float64
	dtype  DType

	voxToWorld *mat.Dense
	worldToVox *mat.Dense

	// cached value range, recomputed after edits
	rangeValid bool
	dataMin    float64
	dataMax    float64

	changed    signal.Signal[Change]
	lastChange Change
}

// New creates a volume with the given shape (3 or 4 dimensions),
// per-axis physical spacing and declared element type. The data slice
// must have length equal to the product of the shape, ordered with the
// first axis fastest. The voxel-to-world transform defaults to pixdim
// scaling; use SetVoxToWorld to install an arbitrary affine.
func New(data []float64, shape []int, pixdim []float64, dtype DType) (*Volume, error) {
	if len(shape) != 3 && len(shape) != 4 {
		return nil, fmt.Errorf("volume shape must have 3 or 4 dimensions, got %d", len(shape))
	}
	if len(pixdim) < 3 {
		return nil, fmt.Errorf("volume pixdim must have at least 3 entries, got %d", len(pixdim))
	}
	n := 1
	for _, s := range shape {
		if s <= 0 {
			return nil, fmt.Errorf("volume shape must be positive, got %v", shape)
		}
		n *= s
	}
	if len(data) != n {
		return nil, fmt.Errorf("volume data length %d does not match shape %v", len(data), shape)
	}

	v := &Volume{
		data:   data,
		shape:  append([]int(nil), shape...),
		pixdim: append([]float64(nil), pixdim...),
		dtype:  dtype,
	}
	v.setDefaultAffine()
	return v, nil
}

// setDefaultAffine installs a pixdim-scaling voxel-to-world transform.
func (v *Volume) setDefaultAffine() {
	xform := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		xform.Set(i, i, v.pixdim[i])
	}
	xform.Set(3, 3, 1)
	// Scaling matrices are always invertible for positive pixdims.
	v.voxToWorld = xform
	inv := mat.NewDense(4, 4, nil)
	if err := inv.Inverse(xform); err != nil {
		panic(fmt.Sprintf("volume: default affine not invertible: %v", err))
	}
	v.worldToVox = inv
}

// SetVoxToWorld installs the given 4x4 voxel-to-world affine transform.
// The matrix must be invertible.
func (v *Volume) SetVoxToWorld(xform *mat.Dense) error {
	r, c := xform.Dims()
	if r != 4 || c != 4 {
		return fmt.Errorf("voxel-to-world transform must be 4x4, got %dx%d", r, c)
	}
	inv := mat.NewDense(4, 4, nil)
	if err := inv.Inverse(xform); err != nil {
		return fmt.Errorf("voxel-to-world transform is not invertible: %w", err)
	}
	v.voxToWorld = mat.DenseCopyOf(xform)
	v.worldToVox = inv
	return nil
}

// Shape returns the volume dimensions (3 or 4 entries).
func (v *Volume) Shape() []int { return append([]int(nil), v.shape...) }

// SpatialShape returns the first three dimensions.
func (v *Volume) SpatialShape() [3]int {
	return [3]int{v.shape[0], v.shape[1], v.shape[2]}
}

// Is4D reports whether the volume has a fourth dimension.
func (v *Volume) Is4D() bool { return len(v.shape) == 4 }

// NumVolumes returns the length of the fourth dimension, or 1 for a
// 3D volume.
func (v *Volume) NumVolumes() int {
	if v.Is4D() {
		return v.shape[3]
	}
	return 1
}

// Pixdim returns the per-axis physical voxel spacing.
func (v *Volume) Pixdim() []float64 { return append([]float64(nil), v.pixdim...) }

// DType returns the declared element type.
func (v *Volume) DType() DType { return v.dtype }

// Data returns the underlying sample buffer. The buffer is shared, not
// copied; callers must not mutate it directly (use SetRegion or
// SetData so that change notifications fire).
func (v *Volume) Data() []float64 { return v.data }

// Index returns the flat index of spatial voxel (x, y, z) within
// 4D volume t (pass 0 for 3D volumes). The first axis is fastest.
func (v *Volume) Index(x, y, z, t int) int {
	return ((t*v.shape[2]+z)*v.shape[1]+y)*v.shape[0] + x
}

// At returns the sample at spatial voxel (x, y, z) of volume t.
func (v *Volume) At(x, y, z, t int) float64 {
	return v.data[v.Index(x, y, z, t)]
}

// Min returns the minimum sample value, computing and caching the
// range on first use.
func (v *Volume) Min() float64 {
	v.ensureRange()
	return v.dataMin
}

// Max returns the maximum sample value.
func (v *Volume) Max() float64 {
	v.ensureRange()
	return v.dataMax
}

func (v *Volume) ensureRange() {
	if v.rangeValid {
		return
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range v.data {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	v.dataMin, v.dataMax = lo, hi
	v.rangeValid = true
}

// Subscribe registers fn to be called synchronously whenever the
// volume data changes. Listeners fire in subscription order.
func (v *Volume) Subscribe(fn func(Change)) signal.Handle {
	return v.changed.Subscribe(fn)
}

// Unsubscribe removes a data-change subscription.
func (v *Volume) Unsubscribe(h signal.Handle) {
	v.changed.Unsubscribe(h)
}

// LastChange returns the most recent change notification.
func (v *Volume) LastChange() Change { return v.lastChange }

// SetRegion overwrites the sub-block of the given shape at the given
// offset (within spatial volume t) with block, which must be
// column-major with length equal to the product of blockShape. The
// overwritten values are captured and subscribers are notified before
// SetRegion returns.
func (v *Volume) SetRegion(block []float64, blockShape, offset [3]int, t int) error {
	n := blockShape[0] * blockShape[1] * blockShape[2]
	if len(block) != n {
		return fmt.Errorf("block length %d does not match shape %v", len(block), blockShape)
	}
	for i := 0; i < 3; i++ {
		if offset[i] < 0 || offset[i]+blockShape[i] > v.shape[i] {
			return fmt.Errorf("block %v at offset %v exceeds volume shape %v",
				blockShape, offset, v.shape[:3])
		}
	}
	if t < 0 || t >= v.NumVolumes() {
		return fmt.Errorf("volume index %d out of range [0, %d)", t, v.NumVolumes())
	}

	old := make([]float64, n)
	i := 0
	for z := 0; z < blockShape[2]; z++ {
		for y := 0; y < blockShape[1]; y++ {
			for x := 0; x < blockShape[0]; x++ {
				idx := v.Index(offset[0]+x, offset[1]+y, offset[2]+z, t)
				old[i] = v.data[idx]
				v.data[idx] = block[i]
				i++
			}
		}
	}

	v.rangeValid = false
	v.lastChange = Change{Old: old, New: block, BlockShape: blockShape, Offset: offset}
	v.changed.Emit(v.lastChange)
	return nil
}

// SetData replaces the entire sample buffer. The new data must have
// the same length as the current shape. Subscribers receive a
// full-replace notification (nil old/new blocks).
func (v *Volume) SetData(data []float64) error {
	if len(data) != len(v.data) {
		return fmt.Errorf("data length %d does not match shape %v", len(data), v.shape)
	}
	v.data = data
	v.rangeValid = false
	v.lastChange = Change{}
	v.changed.Emit(v.lastChange)
	return nil
}

// VoxelToWorld transforms a voxel coordinate to world space using the
// volume's affine.
func (v *Volume) VoxelToWorld(vox [3]float64) [3]float64 {
	return applyAffine(v.voxToWorld, vox)
}

// WorldToVoxel transforms a world coordinate back to voxel space.
func (v *Volume) WorldToVoxel(world [3]float64) [3]float64 {
	return applyAffine(v.worldToVox, world)
}

func applyAffine(m *mat.Dense, p [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = m.At(i, 0)*p[0] + m.At(i, 1)*p[1] + m.At(i, 2)*p[2] + m.At(i, 3)
	}
	return out
}
