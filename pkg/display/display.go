// Package display holds the per-image display settings that the
// texture pipeline reacts to: interpolation mode, the selected 4D
// volume index, display resolution and the coordinate transform mode.
//
// Each field is independently subscribable. Setters notify listeners
// synchronously, in subscription order, before returning.
package display

import "voxrender/internal/signal"

// Interp selects the texture sampling filter.
type Interp int

const (
	// Nearest samples the closest texel, showing voxels as flat
	// blocks.
	Nearest Interp = iota

	// Linear interpolates between neighbouring texels.
	Linear
)

// String returns the conventional name of the interpolation mode.
func (i Interp) String() string {
	if i == Linear {
		return "linear"
	}
	return "nearest"
}

// Transform identifies how voxel coordinates map to the display
// coordinate system.
type Transform int

const (
	// TransformID displays the image in raw voxel coordinates.
	TransformID Transform = iota

	// TransformPixdim scales voxel coordinates by the voxel spacing.
	// Display axes still align with voxel axes.
	TransformPixdim

	// TransformAffine applies the full voxel-to-world affine; no axis
	// correspondence between voxel and display space can be assumed.
	TransformAffine
)

// String returns the conventional name of the transform mode.
func (t Transform) String() string {
	switch t {
	case TransformPixdim:
		return "pixdim"
	case TransformAffine:
		return "affine"
	}
	return "id"
}

// AxisAligned reports whether display axes align with voxel axes.
func (t Transform) AxisAligned() bool {
	return t == TransformID || t == TransformPixdim
}

// Display holds one image's display configuration. The zero value is
// usable: nearest interpolation, volume 0, resolution 1, identity
// transform. Not safe for concurrent use.
type Display struct {
	interp      Interp
	volumeIndex int
	resolution  float64
	transform   Transform

	interpChanged    signal.Signal[Interp]
	volumeChanged    signal.Signal[int]
	resChanged       signal.Signal[float64]
	transformChanged signal.Signal[Transform]
}

// New returns a Display with the given initial settings. A
// non-positive resolution is treated as 1.
func New(interp Interp, resolution float64, transform Transform) *Display {
	if resolution <= 0 {
		resolution = 1
	}
	return &Display{
		interp:     interp,
		resolution: resolution,
		transform:  transform,
	}
}

// Interp returns the current interpolation mode.
func (d *Display) Interp() Interp { return d.interp }

// SetInterp updates the interpolation mode, notifying subscribers if
// the value changed.
func (d *Display) SetInterp(i Interp) {
	if d.interp == i {
		return
	}
	d.interp = i
	d.interpChanged.Emit(i)
}

// VolumeIndex returns the selected volume of a 4D image.
func (d *Display) VolumeIndex() int { return d.volumeIndex }

// SetVolumeIndex updates the selected 4D volume, notifying subscribers
// if the value changed.
func (d *Display) SetVolumeIndex(idx int) {
	if d.volumeIndex == idx {
		return
	}
	d.volumeIndex = idx
	d.volumeChanged.Emit(idx)
}

// Resolution returns the requested display resolution in physical
// units (e.g. millimetres per displayed sample).
func (d *Display) Resolution() float64 {
	if d.resolution <= 0 {
		return 1
	}
	return d.resolution
}

// SetResolution updates the display resolution, notifying subscribers
// if the value changed. Non-positive values are ignored.
func (d *Display) SetResolution(res float64) {
	if res <= 0 || d.resolution == res {
		return
	}
	d.resolution = res
	d.resChanged.Emit(res)
}

// Transform returns the current coordinate transform mode.
func (d *Display) Transform() Transform { return d.transform }

// SetTransform updates the transform mode, notifying subscribers if
// the value changed.
func (d *Display) SetTransform(t Transform) {
	if d.transform == t {
		return
	}
	d.transform = t
	d.transformChanged.Emit(t)
}

// OnInterp subscribes to interpolation-mode changes.
func (d *Display) OnInterp(fn func(Interp)) signal.Handle {
	return d.interpChanged.Subscribe(fn)
}

// OffInterp removes an interpolation-mode subscription.
func (d *Display) OffInterp(h signal.Handle) { d.interpChanged.Unsubscribe(h) }

// OnVolumeIndex subscribes to 4D volume index changes.
func (d *Display) OnVolumeIndex(fn func(int)) signal.Handle {
	return d.volumeChanged.Subscribe(fn)
}

// OffVolumeIndex removes a volume index subscription.
func (d *Display) OffVolumeIndex(h signal.Handle) { d.volumeChanged.Unsubscribe(h) }

// OnResolution subscribes to resolution changes.
func (d *Display) OnResolution(fn func(float64)) signal.Handle {
	return d.resChanged.Subscribe(fn)
}

// OffResolution removes a resolution subscription.
func (d *Display) OffResolution(h signal.Handle) { d.resChanged.Unsubscribe(h) }

// OnTransform subscribes to transform-mode changes.
func (d *Display) OnTransform(fn func(Transform)) signal.Handle {
	return d.transformChanged.Subscribe(fn)
}

// OffTransform removes a transform-mode subscription.
func (d *Display) OffTransform(h signal.Handle) { d.transformChanged.Unsubscribe(h) }
