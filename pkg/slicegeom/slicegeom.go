// Package slicegeom generates the geometry needed to rasterize 2D
// slices of a 3D volume: per-voxel index triples, world-space quad
// positions and the shared unit voxel quad, plus the grid layout used
// to arrange a range of slices as a montage.
package slicegeom

import (
	"fmt"
	"math"

	"voxrender/pkg/volume"
)

// Builder produces slice geometry for one volume and one choice of
// display axes. The xax and yax axes span the slice plane, zax is the
// depth axis; all three must be a permutation of 0, 1, 2.
type Builder struct {
	vol *volume.Volume
	xax int
	yax int
	zax int
}

// Slice is the geometry of one 2D slice: the voxel index triples that
// fall inside the volume, and for each of them the world-space centre
// of its screen quad. The two lists are index-aligned.
type Slice struct {
	Depth  int
	Voxels [][3]int
	World  [][3]float64
}

// NewBuilder returns a Builder for the given display axes.
func NewBuilder(vol *volume.Volume, xax, yax, zax int) (*Builder, error) {
	if xax < 0 || xax > 2 || yax < 0 || yax > 2 || zax < 0 || zax > 2 ||
		xax == yax || xax == zax || yax == zax {
		return nil, fmt.Errorf("display axes (%d, %d, %d) are not a permutation of 0, 1, 2",
			xax, yax, zax)
	}
	return &Builder{vol: vol, xax: xax, yax: yax, zax: zax}, nil
}

// DepthIndex maps a world-space position on the depth axis to the
// nearest voxel slice index. The returned index may fall outside the
// volume; BuildSlice treats that as an empty slice.
func (b *Builder) DepthIndex(worldZ float64) int {
	var world [3]float64
	world[b.zax] = worldZ
	vox := b.vol.WorldToVoxel(world)
	return int(math.Round(vox[b.zax]))
}

// BuildSlice computes the geometry of the slice at the given world
// depth. Voxels whose index falls outside the volume on any axis are
// excluded, so a depth outside the volume yields an empty slice.
// World positions come from the volume's voxel-to-world transform.
func (b *Builder) BuildSlice(worldZ float64) *Slice {
	shape := b.vol.SpatialShape()
	depth := b.DepthIndex(worldZ)

	s := &Slice{Depth: depth}
	if depth < 0 || depth >= shape[b.zax] {
		return s
	}

	nx := shape[b.xax]
	ny := shape[b.yax]
	s.Voxels = make([][3]int, 0, nx*ny)
	s.World = make([][3]float64, 0, nx*ny)

	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			var vox [3]int
			vox[b.xax] = x
			vox[b.yax] = y
			vox[b.zax] = depth

			world := b.vol.VoxelToWorld([3]float64{
				float64(vox[0]), float64(vox[1]), float64(vox[2]),
			})
			world[b.zax] = worldZ

			s.Voxels = append(s.Voxels, vox)
			s.World = append(s.World, world)
		}
	}
	return s
}

// VoxelQuad returns the four corner offsets of a unit voxel quad in
// the slice plane, sized by the voxel physical dimensions and centred
// on the voxel's world position. Corners are in triangle-strip order.
func (b *Builder) VoxelQuad() [4][2]float64 {
	pixdim := b.vol.Pixdim()
	halfx := pixdim[b.xax] / 2
	halfy := pixdim[b.yax] / 2
	return [4][2]float64{
		{-halfx, -halfy},
		{halfx, -halfy},
		{-halfx, halfy},
		{halfx, halfy},
	}
}

// LightboxLayout arranges a range of depth slices as a row/column
// montage. Slices fill rows left to right, starting from the top row.
type LightboxLayout struct {
	// SliceStart and SliceEnd bound the world-space depth range.
	SliceStart float64
	SliceEnd   float64

	// SliceSpacing is the world-space distance between slices.
	SliceSpacing float64

	// Cols is the number of montage columns.
	Cols int
}

// SlicePlacement is one montage cell: the world depth of the slice and
// the world-space offset at which to draw it.
type SlicePlacement struct {
	WorldZ  float64
	XOffset float64
	YOffset float64
}

// NumSlices returns how many slice positions the depth range covers.
func (l *LightboxLayout) NumSlices() int {
	if l.SliceSpacing <= 0 || l.SliceEnd < l.SliceStart {
		return 0
	}
	return int((l.SliceEnd-l.SliceStart)/l.SliceSpacing) + 1
}

// Rows returns the number of montage rows needed.
func (l *LightboxLayout) Rows() int {
	n := l.NumSlices()
	if n == 0 || l.Cols < 1 {
		return 0
	}
	return (n + l.Cols - 1) / l.Cols
}

// Placements computes the montage cell for every slice in the range.
// xlen and ylen are the world-space extents of one slice on the
// horizontal and vertical display axes. Row 0 of the grid is at the
// top, so earlier slices get larger vertical offsets.
func (l *LightboxLayout) Placements(xlen, ylen float64) []SlicePlacement {
	n := l.NumSlices()
	if n == 0 || l.Cols < 1 {
		return nil
	}
	rows := l.Rows()

	out := make([]SlicePlacement, n)
	for i := 0; i < n; i++ {
		row := rows - i/l.Cols - 1
		col := i % l.Cols
		out[i] = SlicePlacement{
			WorldZ:  l.SliceStart + float64(i)*l.SliceSpacing,
			XOffset: xlen * float64(col),
			YOffset: ylen * float64(row),
		}
	}
	return out
}
