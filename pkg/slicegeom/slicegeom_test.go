package slicegeom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"voxrender/pkg/volume"
)

func newGeomVolume(t *testing.T, shape [3]int, pixdim [3]float64) *volume.Volume {
	t.Helper()

	data := make([]float64, shape[0]*shape[1]*shape[2])
	v, err := volume.New(data, shape[:], pixdim[:], volume.Uint8)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	return v
}

// TestNewBuilderValidation verifies the display axes must form a
// permutation.
func TestNewBuilderValidation(t *testing.T) {
	v := newGeomVolume(t, [3]int{2, 2, 2}, [3]float64{1, 1, 1})

	if _, err := NewBuilder(v, 0, 0, 2); err == nil {
		t.Error("Expected an error for duplicate axes")
	}
	if _, err := NewBuilder(v, 0, 1, 3); err == nil {
		t.Error("Expected an error for an out-of-range axis")
	}
	if _, err := NewBuilder(v, 2, 0, 1); err != nil {
		t.Errorf("Expected a valid permutation to be accepted, got %v", err)
	}
}

// TestDepthIndex verifies the world depth maps to the nearest voxel
// slice under the volume's transform.
func TestDepthIndex(t *testing.T) {
	v := newGeomVolume(t, [3]int{4, 4, 4}, [3]float64{1, 1, 2})

	b, err := NewBuilder(v, 0, 1, 2)
	if err != nil {
		t.Fatalf("Failed to create builder: %v", err)
	}

	// z pixdim is 2: world depth 5 is voxel 2.5, rounding to 2 (or 3;
	// banker-free rounding gives 3 for exactly .5, so probe around it).
	if got := b.DepthIndex(4.0); got != 2 {
		t.Errorf("Expected depth index 2 for world 4.0, got %d", got)
	}
	if got := b.DepthIndex(6.2); got != 3 {
		t.Errorf("Expected depth index 3 for world 6.2, got %d", got)
	}
	if got := b.DepthIndex(-3.0); got != -2 {
		t.Errorf("Expected out-of-volume index -2, got %d", got)
	}
}

// TestBuildSlice verifies in-bounds voxel enumeration and world quad
// positions.
func TestBuildSlice(t *testing.T) {
	v := newGeomVolume(t, [3]int{3, 2, 4}, [3]float64{1, 1, 1})

	b, err := NewBuilder(v, 0, 1, 2)
	if err != nil {
		t.Fatalf("Failed to create builder: %v", err)
	}

	s := b.BuildSlice(2.0)
	if s.Depth != 2 {
		t.Errorf("Expected depth 2, got %d", s.Depth)
	}
	if len(s.Voxels) != 6 || len(s.World) != 6 {
		t.Fatalf("Expected 6 voxels, got %d", len(s.Voxels))
	}

	// First voxel is (0,0,depth), last is (2,1,depth).
	if s.Voxels[0] != [3]int{0, 0, 2} {
		t.Errorf("Unexpected first voxel %v", s.Voxels[0])
	}
	if s.Voxels[5] != [3]int{2, 1, 2} {
		t.Errorf("Unexpected last voxel %v", s.Voxels[5])
	}

	// Unit pixdim: world positions equal the voxel indices, with the
	// depth axis pinned at the requested world position.
	if s.World[5] != [3]float64{2, 1, 2} {
		t.Errorf("Unexpected world position %v", s.World[5])
	}
}

// TestBuildSliceOutOfBounds verifies depths outside the volume yield
// an empty slice.
func TestBuildSliceOutOfBounds(t *testing.T) {
	v := newGeomVolume(t, [3]int{3, 3, 3}, [3]float64{1, 1, 1})
	b, _ := NewBuilder(v, 0, 1, 2)

	for _, z := range []float64{-1.0, 3.0, 100.0} {
		s := b.BuildSlice(z)
		if len(s.Voxels) != 0 {
			t.Errorf("Expected empty slice at world depth %v, got %d voxels", z, len(s.Voxels))
		}
	}
}

// TestBuildSliceWithAffine verifies world positions follow an
// installed transform with translation.
func TestBuildSliceWithAffine(t *testing.T) {
	v := newGeomVolume(t, [3]int{2, 2, 2}, [3]float64{1, 1, 1})
	xform := mat.NewDense(4, 4, []float64{
		2, 0, 0, 10,
		0, 2, 0, 20,
		0, 0, 2, 30,
		0, 0, 0, 1,
	})
	if err := v.SetVoxToWorld(xform); err != nil {
		t.Fatalf("SetVoxToWorld failed: %v", err)
	}

	b, _ := NewBuilder(v, 0, 1, 2)

	// World depth 32 is voxel z=1.
	s := b.BuildSlice(32)
	if s.Depth != 1 {
		t.Fatalf("Expected depth 1, got %d", s.Depth)
	}
	// Voxel (1,1,1) maps to world (12, 22, 32).
	last := s.World[len(s.World)-1]
	if math.Abs(last[0]-12) > 1e-12 || math.Abs(last[1]-22) > 1e-12 || last[2] != 32 {
		t.Errorf("Unexpected world position %v", last)
	}
}

// TestVoxelQuad verifies the corner offsets are half the physical
// voxel size on the display axes.
func TestVoxelQuad(t *testing.T) {
	v := newGeomVolume(t, [3]int{2, 2, 2}, [3]float64{2, 4, 6})

	b, _ := NewBuilder(v, 1, 2, 0)
	quad := b.VoxelQuad()

	want := [4][2]float64{{-2, -3}, {2, -3}, {-2, 3}, {2, 3}}
	if quad != want {
		t.Errorf("Expected quad %v, got %v", want, quad)
	}
}

// TestLightboxLayout verifies slice counting and grid placement.
func TestLightboxLayout(t *testing.T) {
	l := &LightboxLayout{SliceStart: 0, SliceEnd: 10, SliceSpacing: 2, Cols: 3}

	if n := l.NumSlices(); n != 6 {
		t.Errorf("Expected 6 slices, got %d", n)
	}
	if r := l.Rows(); r != 2 {
		t.Errorf("Expected 2 rows, got %d", r)
	}

	p := l.Placements(10, 20)
	if len(p) != 6 {
		t.Fatalf("Expected 6 placements, got %d", len(p))
	}

	// First slice sits in the top row (largest y offset), first column.
	if p[0].WorldZ != 0 || p[0].XOffset != 0 || p[0].YOffset != 20 {
		t.Errorf("Unexpected first placement %+v", p[0])
	}
	// Fourth slice starts the second (bottom) row.
	if p[3].WorldZ != 6 || p[3].XOffset != 0 || p[3].YOffset != 0 {
		t.Errorf("Unexpected fourth placement %+v", p[3])
	}
	// Third slice is in the last column of the top row.
	if p[2].XOffset != 20 || p[2].YOffset != 20 {
		t.Errorf("Unexpected third placement %+v", p[2])
	}
}

// TestLightboxLayoutDegenerate verifies empty and invalid ranges.
func TestLightboxLayoutDegenerate(t *testing.T) {
	l := &LightboxLayout{SliceStart: 5, SliceEnd: 1, SliceSpacing: 2, Cols: 3}
	if l.NumSlices() != 0 || l.Placements(1, 1) != nil {
		t.Error("Expected an inverted range to produce no slices")
	}

	l = &LightboxLayout{SliceStart: 0, SliceEnd: 10, SliceSpacing: 0, Cols: 3}
	if l.NumSlices() != 0 {
		t.Error("Expected zero spacing to produce no slices")
	}
}
