package texture

import "voxrender/pkg/display"

// TextureID is a backend texture handle. Zero is never a valid id.
type TextureID uint32

// FramebufferID is a backend framebuffer handle. Zero is never a
// valid id.
type FramebufferID uint32

// Wrap selects how sampling outside the texture extent behaves.
type Wrap int

const (
	// ClampToEdge repeats the edge texel. Used for image textures;
	// the renderer is responsible for not drawing outside the image.
	ClampToEdge Wrap = iota

	// ClampToBorder samples a transparent border colour. Used for the
	// selection texture so the mask fades out at its boundary.
	ClampToBorder
)

// Backend abstracts the GPU calls the texture types need. A real
// OpenGL implementation (GLBackend) and an in-memory one
// (HeadlessBackend) are provided; the latter is used by tests and by
// context-free tooling.
//
// Every call assumes a current GPU context on the calling thread;
// context management itself is outside this package.
//
// Upload buffers carry an explicit Layout; implementations must reject
// buffers that are not column-major rather than silently reinterpret
// them.
type Backend interface {
	// GenTexture allocates a texture id.
	GenTexture() TextureID

	// DeleteTexture releases a texture id. Deleting an id twice is a
	// programmer error.
	DeleteTexture(id TextureID)

	// Alloc3D allocates 3D texture storage of the given shape and
	// format without uploading data.
	Alloc3D(id TextureID, spec Spec, shape [3]int) error

	// Upload3D replaces the entire 3D texture image. The buffer must
	// be column-major with tight packing (no row or slice alignment
	// padding) and length shape[0]*shape[1]*shape[2]*spec.Channels.
	Upload3D(id TextureID, spec Spec, shape [3]int, pix PixelData) error

	// UploadSub3D updates the single-channel 8-bit sub-block of the
	// given shape at the given offset, leaving all other texels
	// untouched.
	UploadSub3D(id TextureID, offset, blockShape [3]int, data []uint8, layout Layout) error

	// SetSampler3D sets the filtering and wrap mode of a 3D texture.
	SetSampler3D(id TextureID, filter display.Interp, wrap Wrap)

	// Alloc2D allocates an RGBA8 2D texture of the given size with
	// undefined contents.
	Alloc2D(id TextureID, width, height int)

	// SetSampler2D sets the filtering of a 2D texture.
	SetSampler2D(id TextureID, filter display.Interp)

	// GenFramebuffer allocates a framebuffer id.
	GenFramebuffer() FramebufferID

	// DeleteFramebuffer releases a framebuffer id.
	DeleteFramebuffer(id FramebufferID)

	// AttachColor attaches the given 2D texture as the framebuffer's
	// colour target and verifies completeness, returning
	// ErrFramebufferIncomplete on failure.
	AttachColor(fb FramebufferID, tex TextureID) error

	// BindFramebuffer makes fb the active render target.
	BindFramebuffer(fb FramebufferID)

	// UnbindFramebuffer restores the default render target.
	UnbindFramebuffer()

	// SetViewTransform sets the 4x4 transform (column-major, as GPU
	// conventions expect) applied to quad vertices by DrawTexturedQuad.
	SetViewTransform(m [16]float32)

	// DrawTexturedQuad draws the given 2D texture as a quad spanning
	// [xmin, xmax] x [ymin, ymax] on spatial axes xax and yax (the
	// remaining axis is zero), transformed by the view transform.
	DrawTexturedQuad(tex TextureID, xmin, xmax, ymin, ymax float32, xax, yax int)

	// ReadPixels reads the active render target's colour contents as
	// tightly packed RGBA8, rows bottom-to-top.
	ReadPixels(width, height int) []uint8
}
