package texture

import (
	"errors"
	"fmt"
	"log"
	"reflect"

	"voxrender/internal/signal"
	"voxrender/pkg/display"
	"voxrender/pkg/volume"
)

// ImageTexture owns one GPU 3D texture holding the data of one
// Volume. It keeps the texture consistent with the volume by
// re-uploading when the data, the selected 4D volume or the display
// resolution change; interpolation changes only touch sampler state.
//
// Instances are created through a Cache, which guarantees one texture
// per (volume, tag) key, and destroyed exactly once via Destroy (or
// Cache.Release). Every method assumes a current GPU context.
type ImageTexture struct {
	backend Backend
	vol     *volume.Volume
	disp    *display.Display
	tag     string

	id        TextureID
	spec      Spec
	channels  int
	prefilter PrefilterFunc
	shape     [3]int
	destroyed bool

	volHandle       signal.Handle
	interpHandle    signal.Handle
	volIndexHandle  signal.Handle
	resHandle       signal.Handle
	haveDispHandles bool
}

// ImageTextureOptions configures NewImageTexture.
type ImageTextureOptions struct {
	// Display, if non-nil, supplies interpolation, volume index and
	// resolution, and the texture subscribes to their changes.
	Display *display.Display

	// Channels is the number of values per voxel (1 to 4). For
	// multi-channel data the volume's trailing dimension must equal
	// this count. Zero means 1.
	Channels int

	// Normalise forces 8-bit normalised storage even for natively
	// storable integer types.
	Normalise bool

	// Prefilter is applied to each prepared slab before upload.
	Prefilter PrefilterFunc
}

// NewImageTexture creates a texture for vol, allocates its GPU id and
// performs the initial full upload. Construction fails with
// ErrChannelShapeMismatch or ErrUnsupportedChannelCount for invalid
// channel configuration.
func NewImageTexture(backend Backend, vol *volume.Volume, tag string, opts ImageTextureOptions) (*ImageTexture, error) {
	channels := opts.Channels
	if channels == 0 {
		channels = 1
	}
	if channels < 1 || channels > 4 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChannelCount, channels)
	}
	if channels > 1 {
		shape := vol.Shape()
		if len(shape) != 4 || shape[3] != channels {
			return nil, fmt.Errorf("%w: %d channels requested for volume shape %v",
				ErrChannelShapeMismatch, channels, shape)
		}
	}

	spec, err := DecideSpec(vol.DType(), channels, opts.Normalise, vol.Min(), vol.Max())
	if err != nil {
		return nil, err
	}

	t := &ImageTexture{
		backend:   backend,
		vol:       vol,
		disp:      opts.Display,
		tag:       tag,
		id:        backend.GenTexture(),
		spec:      spec,
		channels:  channels,
		prefilter: opts.Prefilter,
	}

	log.Printf("created image texture %d for %q", t.id, tag)

	t.addListeners()
	if err := t.Refresh(); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

func (t *ImageTexture) addListeners() {
	t.volHandle = t.vol.Subscribe(func(volume.Change) {
		// Data edits always trigger a full re-upload; there is no
		// partial-update path for image textures.
		if err := t.Refresh(); err != nil {
			log.Printf("image texture %q refresh failed: %v", t.tag, err)
		}
	})

	if t.disp == nil {
		return
	}
	t.interpHandle = t.disp.OnInterp(func(display.Interp) {
		t.applySampler()
	})
	t.volIndexHandle = t.disp.OnVolumeIndex(func(int) {
		if err := t.Refresh(); err != nil {
			log.Printf("image texture %q refresh failed: %v", t.tag, err)
		}
	})
	t.resHandle = t.disp.OnResolution(func(float64) {
		if err := t.Refresh(); err != nil {
			log.Printf("image texture %q refresh failed: %v", t.tag, err)
		}
	})
	t.haveDispHandles = true
}

func (t *ImageTexture) removeListeners() {
	t.vol.Unsubscribe(t.volHandle)
	if t.haveDispHandles {
		t.disp.OffInterp(t.interpHandle)
		t.disp.OffVolumeIndex(t.volIndexHandle)
		t.disp.OffResolution(t.resHandle)
		t.haveDispHandles = false
	}
}

// ID returns the GPU texture handle.
func (t *ImageTexture) ID() TextureID { return t.id }

// Tag returns the cache tag the texture was created under.
func (t *ImageTexture) Tag() string { return t.tag }

// Spec returns the storage format and value transform.
func (t *ImageTexture) Spec() Spec { return t.spec }

// Shape returns the current texture dimensions, which may be smaller
// than the volume when a coarser display resolution is in effect.
// Only Refresh changes this value.
func (t *ImageTexture) Shape() [3]int { return t.shape }

// prepareOptions derives preparation settings from the display
// configuration, if any.
func (t *ImageTexture) prepareOptions() PrepareOptions {
	opts := PrepareOptions{Prefilter: t.prefilter}
	if t.disp != nil {
		opts.Resolution = t.disp.Resolution()
		opts.VolumeIndex = t.disp.VolumeIndex()
	}
	return opts
}

func (t *ImageTexture) applySampler() {
	interp := display.Nearest
	if t.disp != nil {
		interp = t.disp.Interp()
	}
	t.backend.SetSampler3D(t.id, interp, ClampToEdge)
}

// Refresh re-prepares the volume data and replaces the GPU texture
// contents. An empty prepared slab is recoverable: the refresh is
// skipped, a diagnostic is logged and the previous texture contents
// stay valid. Refresh is the only operation that changes Shape.
func (t *ImageTexture) Refresh() error {
	if t.destroyed {
		return fmt.Errorf("%w: refresh of destroyed texture %q", ErrInvalidOperation, t.tag)
	}

	prep, err := PrepareData(t.vol, t.spec, t.prepareOptions())
	if err != nil {
		if errors.Is(err, ErrEmptyTextureData) {
			log.Printf("image texture %q: skipping refresh: %v", t.tag, err)
			return nil
		}
		return err
	}

	t.shape = prep.Shape
	t.applySampler()
	if err := t.backend.Upload3D(t.id, t.spec, prep.Shape, prep.Pix); err != nil {
		return fmt.Errorf("uploading image texture %q: %w", t.tag, err)
	}
	return nil
}

// SetPrefilter replaces the prefilter function. If fn is the same
// function as the current one (compared by identity), nothing happens;
// otherwise the texture is refreshed.
func (t *ImageTexture) SetPrefilter(fn PrefilterFunc) error {
	if t.destroyed {
		return fmt.Errorf("%w: prefilter change on destroyed texture %q", ErrInvalidOperation, t.tag)
	}
	if samePrefilter(t.prefilter, fn) {
		return nil
	}
	t.prefilter = fn
	return t.Refresh()
}

// Destroy detaches all change listeners and releases the GPU texture.
// Calling Destroy again is a no-op.
func (t *ImageTexture) Destroy() {
	if t.destroyed {
		return
	}
	t.removeListeners()
	log.Printf("deleting image texture %d for %q", t.id, t.tag)
	t.backend.DeleteTexture(t.id)
	t.id = 0
	t.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (t *ImageTexture) Destroyed() bool { return t.destroyed }

// samePrefilter compares two prefilter functions by identity.
func samePrefilter(a, b PrefilterFunc) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
