package texture

import (
	"fmt"
	"log"
	"math"

	"voxrender/internal/signal"
	"voxrender/pkg/display"
	"voxrender/pkg/volume"
)

// maxRenderSize is the upper bound on either dimension of an
// auto-sized offscreen render texture.
const maxRenderSize = 256

// RenderTexture is a 2D offscreen colour target: one RGBA8 texture
// attached to one framebuffer, created and released together. A scene
// rendered into it can later be composited with DrawRender.
type RenderTexture struct {
	backend       Backend
	id            TextureID
	fb            FramebufferID
	width         int
	height        int
	defaultInterp display.Interp
	destroyed     bool
}

// NewRenderTexture allocates a texture and framebuffer of the given
// size. A current GPU context is required. Returns
// ErrFramebufferIncomplete if the attachment fails its completeness
// check.
func NewRenderTexture(backend Backend, width, height int, defaultInterp display.Interp) (*RenderTexture, error) {
	rt := &RenderTexture{
		backend:       backend,
		id:            backend.GenTexture(),
		fb:            backend.GenFramebuffer(),
		width:         width,
		height:        height,
		defaultInterp: defaultInterp,
	}
	log.Printf("created render texture %d with framebuffer %d", rt.id, rt.fb)
	if err := rt.refresh(defaultInterp); err != nil {
		rt.Destroy()
		return nil, err
	}
	return rt, nil
}

// refresh reallocates the texture storage at the current size,
// applies the sampler state and re-verifies the framebuffer.
func (rt *RenderTexture) refresh(interp display.Interp) error {
	if rt.destroyed {
		return fmt.Errorf("%w: refresh of destroyed render texture", ErrInvalidOperation)
	}
	rt.backend.Alloc2D(rt.id, rt.width, rt.height)
	rt.backend.SetSampler2D(rt.id, interp)
	if err := rt.backend.AttachColor(rt.fb, rt.id); err != nil {
		return fmt.Errorf("render texture %dx%d: %w", rt.width, rt.height, err)
	}
	return nil
}

// Size returns the current width and height.
func (rt *RenderTexture) Size() (int, int) { return rt.width, rt.height }

// ID returns the colour texture handle.
func (rt *RenderTexture) ID() TextureID { return rt.id }

// SetSize reallocates the texture and framebuffer attachment at the
// new size. Existing contents are lost.
func (rt *RenderTexture) SetSize(width, height int) error {
	if rt.destroyed {
		return fmt.Errorf("%w: resize of destroyed render texture", ErrInvalidOperation)
	}
	rt.width = width
	rt.height = height
	return rt.refresh(rt.defaultInterp)
}

// Bind makes this texture the active render target.
func (rt *RenderTexture) Bind() error {
	if rt.destroyed {
		return fmt.Errorf("%w: bind of destroyed render texture", ErrInvalidOperation)
	}
	rt.backend.BindFramebuffer(rt.fb)
	return nil
}

// Unbind restores the default render target.
func (rt *RenderTexture) Unbind() {
	rt.backend.UnbindFramebuffer()
}

// DrawRender draws the rendered contents as a screen-aligned quad
// spanning [xmin, xmax] x [ymin, ymax] on spatial axes xax and yax.
func (rt *RenderTexture) DrawRender(xmin, xmax, ymin, ymax float32, xax, yax int) error {
	if rt.destroyed {
		return fmt.Errorf("%w: draw of destroyed render texture", ErrInvalidOperation)
	}
	rt.backend.DrawTexturedQuad(rt.id, xmin, xmax, ymin, ymax, xax, yax)
	return nil
}

// Destroy releases the texture and framebuffer together. Calling
// Destroy again is a no-op.
func (rt *RenderTexture) Destroy() {
	if rt.destroyed {
		return
	}
	log.Printf("deleting render texture %d and framebuffer %d", rt.id, rt.fb)
	rt.backend.DeleteTexture(rt.id)
	rt.backend.DeleteFramebuffer(rt.fb)
	rt.id = 0
	rt.fb = 0
	rt.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (rt *RenderTexture) Destroyed() bool { return rt.destroyed }

// ImageRenderTexture is a RenderTexture whose size is derived from a
// source volume's shape, the display resolution and the transform
// mode. Its size follows those settings automatically and cannot be
// set directly.
type ImageRenderTexture struct {
	rt   *RenderTexture
	vol  *volume.Volume
	disp *display.Display
	xax  int
	yax  int

	resHandle       signal.Handle
	transformHandle signal.Handle
	interpHandle    signal.Handle
}

// NewImageRenderTexture creates an auto-sized offscreen target for
// rendering slices of vol on the given display axes. The texture
// re-derives its size when the display resolution or transform mode
// change, and its sampler state when the interpolation mode changes.
func NewImageRenderTexture(backend Backend, vol *volume.Volume, disp *display.Display, xax, yax int) (*ImageRenderTexture, error) {
	irt := &ImageRenderTexture{
		vol:  vol,
		disp: disp,
		xax:  xax,
		yax:  yax,
	}

	width, height := irt.deriveSize()
	rt, err := NewRenderTexture(backend, width, height, disp.Interp())
	if err != nil {
		return nil, err
	}
	irt.rt = rt

	irt.resHandle = disp.OnResolution(func(float64) { irt.updateSize() })
	irt.transformHandle = disp.OnTransform(func(display.Transform) { irt.updateSize() })
	irt.interpHandle = disp.OnInterp(func(i display.Interp) {
		rt.backend.SetSampler2D(rt.id, i)
	})
	return irt, nil
}

// deriveSize computes the texture size from the volume shape, the
// display resolution and the transform mode.
//
// When display axes align with voxel axes, each dimension is the
// voxel count divided by the per-axis decimation; under an arbitrary
// affine no axis correspondence holds, so a fixed logical size is
// used. Either way, neither dimension may exceed maxRenderSize, and
// downscaling preserves the aspect ratio.
func (irt *ImageRenderTexture) deriveSize() (int, int) {
	shape := irt.vol.SpatialShape()
	pixdim := irt.vol.Pixdim()

	var res [3]float64
	for i := 0; i < 3; i++ {
		res[i] = 1
		if pixdim[i] > 0 {
			res[i] = math.Round(irt.disp.Resolution() / pixdim[i])
		}
		if res[i] < 1 {
			res[i] = 1
		}
	}

	var width, height float64
	if irt.disp.Transform().AxisAligned() {
		width = float64(shape[irt.xax]) / res[irt.xax]
		height = float64(shape[irt.yax]) / res[irt.yax]
	} else {
		minRes := math.Min(res[0], math.Min(res[1], res[2]))
		width = maxRenderSize / minRes
		height = maxRenderSize / minRes
	}

	if width > maxRenderSize || height > maxRenderSize {
		ratio := math.Min(width, height) / math.Max(width, height)
		if width > height {
			width = maxRenderSize
			height = width * ratio
		} else {
			height = maxRenderSize
			width = height * ratio
		}
		log.Printf("limiting render texture size to %dx%d",
			int(math.Round(width)), int(math.Round(height)))
	}

	w := int(math.Round(width))
	h := int(math.Round(height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

func (irt *ImageRenderTexture) updateSize() {
	width, height := irt.deriveSize()
	if w, h := irt.rt.Size(); w == width && h == height {
		return
	}
	if err := irt.rt.SetSize(width, height); err != nil {
		log.Printf("render texture resize to %dx%d failed: %v", width, height, err)
	}
}

// Size returns the current derived width and height.
func (irt *ImageRenderTexture) Size() (int, int) { return irt.rt.Size() }

// ID returns the colour texture handle.
func (irt *ImageRenderTexture) ID() TextureID { return irt.rt.ID() }

// SetSize always fails: the size of an ImageRenderTexture is derived
// from the volume and display settings, not settable.
func (irt *ImageRenderTexture) SetSize(width, height int) error {
	return fmt.Errorf("%w: size of an image render texture is derived, not settable",
		ErrInvalidOperation)
}

// SetAxes changes which display axes the texture renders, and
// re-derives the size.
func (irt *ImageRenderTexture) SetAxes(xax, yax int) {
	irt.xax = xax
	irt.yax = yax
	irt.updateSize()
}

// Bind makes this texture the active render target.
func (irt *ImageRenderTexture) Bind() error { return irt.rt.Bind() }

// Unbind restores the default render target.
func (irt *ImageRenderTexture) Unbind() { irt.rt.Unbind() }

// DrawRender draws the rendered contents as a screen-aligned quad.
func (irt *ImageRenderTexture) DrawRender(xmin, xmax, ymin, ymax float32, xax, yax int) error {
	return irt.rt.DrawRender(xmin, xmax, ymin, ymax, xax, yax)
}

// Destroy detaches the display listeners and releases the underlying
// texture and framebuffer. Calling Destroy again is a no-op.
func (irt *ImageRenderTexture) Destroy() {
	if irt.rt.Destroyed() {
		return
	}
	irt.disp.OffResolution(irt.resHandle)
	irt.disp.OffTransform(irt.transformHandle)
	irt.disp.OffInterp(irt.interpHandle)
	irt.rt.Destroy()
}

// Destroyed reports whether Destroy has been called.
func (irt *ImageRenderTexture) Destroyed() bool { return irt.rt.Destroyed() }
