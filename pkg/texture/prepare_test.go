package texture

import (
	"errors"
	"testing"

	"voxrender/pkg/volume"
)

// newPrepareVolume creates a 4x4x4 volume whose samples equal their
// flat index.
func newPrepareVolume(t *testing.T, dtype volume.DType) *volume.Volume {
	t.Helper()

	data := make([]float64, 64)
	for i := range data {
		data[i] = float64(i)
	}
	v, err := volume.New(data, []int{4, 4, 4}, []float64{1, 1, 1}, dtype)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	return v
}

// TestPrepareNativeShape verifies that native-resolution preparation
// keeps the volume shape and casts values directly.
func TestPrepareNativeShape(t *testing.T) {
	v := newPrepareVolume(t, volume.Uint8)
	spec, err := DecideSpec(v.DType(), 1, false, v.Min(), v.Max())
	if err != nil {
		t.Fatalf("DecideSpec failed: %v", err)
	}

	prep, err := PrepareData(v, spec, PrepareOptions{})
	if err != nil {
		t.Fatalf("PrepareData failed: %v", err)
	}

	if prep.Shape != [3]int{4, 4, 4} {
		t.Errorf("Expected shape unchanged, got %v", prep.Shape)
	}
	if prep.Pix.Layout != ColumnMajor {
		t.Errorf("Expected column-major layout, got %v", prep.Pix.Layout)
	}
	if len(prep.Pix.U8) != 64 {
		t.Fatalf("Expected 64 bytes, got %d", len(prep.Pix.U8))
	}
	for i, b := range prep.Pix.U8 {
		if int(b) != i {
			t.Fatalf("Expected byte %d at index %d, got %d", i, i, b)
		}
	}
}

// TestPrepareResolutionMonotonic verifies that coarser resolutions
// never increase any texture dimension.
func TestPrepareResolutionMonotonic(t *testing.T) {
	v := newPrepareVolume(t, volume.Uint8)
	spec, _ := DecideSpec(v.DType(), 1, false, v.Min(), v.Max())

	prev := [3]int{4, 4, 4}
	for _, res := range []float64{1, 1.5, 2, 3, 4, 8} {
		prep, err := PrepareData(v, spec, PrepareOptions{Resolution: res})
		if err != nil {
			t.Fatalf("PrepareData at resolution %v failed: %v", res, err)
		}
		for i := 0; i < 3; i++ {
			if prep.Shape[i] > prev[i] {
				t.Errorf("Resolution %v grew axis %d from %d to %d",
					res, i, prev[i], prep.Shape[i])
			}
		}
		prev = prep.Shape
	}

	prep, _ := PrepareData(v, spec, PrepareOptions{Resolution: 2})
	if prep.Shape != [3]int{2, 2, 2} {
		t.Errorf("Expected shape 2x2x2 at resolution 2, got %v", prep.Shape)
	}
	// Decimation keeps every second voxel starting at zero.
	if prep.Pix.U8[0] != 0 || prep.Pix.U8[1] != 2 {
		t.Errorf("Expected decimated values 0 and 2, got %d and %d",
			prep.Pix.U8[0], prep.Pix.U8[1])
	}
}

// TestPrepareSlabNormalisation verifies that normalisation uses the
// prepared slab's own value range, not the whole-volume range.
func TestPrepareSlabNormalisation(t *testing.T) {
	// Two 2x2x2 volumes in a 4D image with disjoint value ranges.
	data := make([]float64, 16)
	for i := 0; i < 8; i++ {
		data[i] = float64(i)        // volume 0: 0..7
		data[8+i] = float64(i) * 10 // volume 1: 0..70
	}
	v, err := volume.New(data, []int{2, 2, 2, 2}, []float64{1, 1, 1}, volume.Float32)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}

	spec, _ := DecideSpec(v.DType(), 1, false, v.Min(), v.Max())

	for idx := 0; idx < 2; idx++ {
		prep, err := PrepareData(v, spec, PrepareOptions{VolumeIndex: idx})
		if err != nil {
			t.Fatalf("PrepareData for volume %d failed: %v", idx, err)
		}
		// Each slab fills the full 8-bit range regardless of the
		// whole-image range.
		if prep.Pix.U8[0] != 0 {
			t.Errorf("Volume %d: expected first texel 0, got %d", idx, prep.Pix.U8[0])
		}
		if prep.Pix.U8[7] != 255 {
			t.Errorf("Volume %d: expected last texel 255, got %d", idx, prep.Pix.U8[7])
		}
	}
}

// TestPrepareVolumeIndexRange verifies 4D index validation.
func TestPrepareVolumeIndexRange(t *testing.T) {
	data := make([]float64, 16)
	v, _ := volume.New(data, []int{2, 2, 2, 2}, []float64{1, 1, 1}, volume.Uint8)
	spec, _ := DecideSpec(v.DType(), 1, false, 0, 1)

	if _, err := PrepareData(v, spec, PrepareOptions{VolumeIndex: 2}); err == nil {
		t.Error("Expected an error for an out-of-range volume index")
	}
	if _, err := PrepareData(v, spec, PrepareOptions{VolumeIndex: -1}); err == nil {
		t.Error("Expected an error for a negative volume index")
	}
}

// TestPrepareMultiChannel verifies the channels-fastest interleave and
// shape validation for multi-channel data.
func TestPrepareMultiChannel(t *testing.T) {
	// A 2x2x2 volume with 3 channels; channel c holds value c*100+i.
	data := make([]float64, 24)
	for c := 0; c < 3; c++ {
		for i := 0; i < 8; i++ {
			data[c*8+i] = float64(c*100 + i)
		}
	}
	v, err := volume.New(data, []int{2, 2, 2, 3}, []float64{1, 1, 1}, volume.Float32)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}

	spec, err := DecideSpec(v.DType(), 3, false, v.Min(), v.Max())
	if err != nil {
		t.Fatalf("DecideSpec failed: %v", err)
	}

	prep, err := PrepareData(v, spec, PrepareOptions{})
	if err != nil {
		t.Fatalf("PrepareData failed: %v", err)
	}
	if prep.Channels != 3 || len(prep.Pix.U8) != 24 {
		t.Fatalf("Expected 24 interleaved bytes, got %d", len(prep.Pix.U8))
	}

	// First three texels are voxel (0,0,0) of channels 0, 1, 2:
	// values 0, 100, 200 normalised over [0, 207].
	if prep.Pix.U8[0] >= prep.Pix.U8[1] || prep.Pix.U8[1] >= prep.Pix.U8[2] {
		t.Errorf("Expected channel-interleaved ascending texels, got %v", prep.Pix.U8[:3])
	}

	// Channel count not matching the trailing dimension fails.
	bad := spec
	bad.Channels = 2
	if _, err := PrepareData(v, bad, PrepareOptions{}); !errors.Is(err, ErrChannelShapeMismatch) {
		t.Errorf("Expected ErrChannelShapeMismatch, got %v", err)
	}
}

// TestPreparePrefilter verifies the prefilter runs before
// normalisation and that an empty result aborts the preparation.
func TestPreparePrefilter(t *testing.T) {
	v := newPrepareVolume(t, volume.Float64)
	spec, _ := DecideSpec(v.DType(), 1, false, v.Min(), v.Max())

	// Clamp everything above 31 down; normalisation must then use the
	// clamped range, mapping value 31 to texel 255.
	clamp := func(data []float64) []float64 {
		out := make([]float64, len(data))
		for i, val := range data {
			if val > 31 {
				val = 31
			}
			out[i] = val
		}
		return out
	}

	prep, err := PrepareData(v, spec, PrepareOptions{Prefilter: clamp})
	if err != nil {
		t.Fatalf("PrepareData failed: %v", err)
	}
	if prep.Pix.U8[31] != 255 {
		t.Errorf("Expected clamped maximum to map to 255, got %d", prep.Pix.U8[31])
	}
	if prep.Pix.U8[63] != 255 {
		t.Errorf("Expected clamped tail to map to 255, got %d", prep.Pix.U8[63])
	}

	empty := func([]float64) []float64 { return nil }
	if _, err := PrepareData(v, spec, PrepareOptions{Prefilter: empty}); !errors.Is(err, ErrEmptyTextureData) {
		t.Errorf("Expected ErrEmptyTextureData, got %v", err)
	}

	short := func(data []float64) []float64 { return data[:1] }
	if _, err := PrepareData(v, spec, PrepareOptions{Prefilter: short}); err == nil {
		t.Error("Expected an error for a length-changing prefilter")
	}
}

// TestPrepareConstantData verifies a zero-range slab normalises to all
// zeroes rather than dividing by zero.
func TestPrepareConstantData(t *testing.T) {
	data := make([]float64, 8)
	for i := range data {
		data[i] = 42
	}
	v, _ := volume.New(data, []int{2, 2, 2}, []float64{1, 1, 1}, volume.Float32)
	spec, _ := DecideSpec(v.DType(), 1, false, 42, 42)

	prep, err := PrepareData(v, spec, PrepareOptions{})
	if err != nil {
		t.Fatalf("PrepareData failed: %v", err)
	}
	for _, b := range prep.Pix.U8 {
		if b != 0 {
			t.Fatal("Expected constant data to normalise to zero texels")
		}
	}
}

// TestPrepareFloatVolume verifies the full float path: forced
// normalisation, range-derived transform and endpoint mapping.
func TestPrepareFloatVolume(t *testing.T) {
	data := []float64{-10, 0, 5, 10, 15, 20, 25, 30}
	v, _ := volume.New(data, []int{2, 2, 2}, []float64{1, 1, 1}, volume.Float32)

	spec, err := DecideSpec(v.DType(), 1, false, v.Min(), v.Max())
	if err != nil {
		t.Fatalf("DecideSpec failed: %v", err)
	}
	if spec.Offset != -10 || spec.Scale != 40 {
		t.Errorf("Expected transform (-10, 40), got (%v, %v)", spec.Offset, spec.Scale)
	}

	prep, err := PrepareData(v, spec, PrepareOptions{})
	if err != nil {
		t.Fatalf("PrepareData failed: %v", err)
	}
	if prep.Pix.U8[0] != 0 {
		t.Errorf("Expected the minimum to map to 0, got %d", prep.Pix.U8[0])
	}
	if prep.Pix.U8[7] != 255 {
		t.Errorf("Expected the maximum to map to 255, got %d", prep.Pix.U8[7])
	}
}

// TestPrepareInt16Cast verifies the offset cast into unsigned 16-bit
// storage.
func TestPrepareInt16Cast(t *testing.T) {
	data := []float64{-32768, -1, 0, 1, 32767, 100, 200, 300}
	v, _ := volume.New(data, []int{2, 2, 2}, []float64{1, 1, 1}, volume.Int16)
	spec, _ := DecideSpec(v.DType(), 1, false, v.Min(), v.Max())

	prep, err := PrepareData(v, spec, PrepareOptions{})
	if err != nil {
		t.Fatalf("PrepareData failed: %v", err)
	}
	want := []uint16{0, 32767, 32768, 32769, 65535, 32868, 32968, 33068}
	for i, w := range want {
		if prep.Pix.U16[i] != w {
			t.Errorf("Expected texel %d at index %d, got %d", w, i, prep.Pix.U16[i])
		}
	}
}
