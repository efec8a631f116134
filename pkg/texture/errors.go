package texture

import "errors"

var (
	// ErrChannelShapeMismatch is returned when a texture is created
	// with more than one element per voxel but the volume's trailing
	// dimension does not match.
	ErrChannelShapeMismatch = errors.New("texture: volume shape does not match requested channel count")

	// ErrUnsupportedChannelCount is returned for an elements-per-voxel
	// value outside 1 to 4.
	ErrUnsupportedChannelCount = errors.New("texture: unsupported channel count")

	// ErrFramebufferIncomplete is returned when a render target's
	// framebuffer fails its completeness check.
	ErrFramebufferIncomplete = errors.New("texture: framebuffer incomplete")

	// ErrEmptyTextureData is returned by the data preparer when the
	// selected slab has a zero-length dimension. The texture keeps its
	// previous contents when this occurs.
	ErrEmptyTextureData = errors.New("texture: prepared data is empty")

	// ErrInvalidOperation is returned for contract violations such as
	// operating on a destroyed texture or resizing a derived-size
	// render texture.
	ErrInvalidOperation = errors.New("texture: invalid operation")

	// ErrBadLayout is returned by a backend when uploaded data is not
	// in the declared buffer layout or has the wrong length.
	ErrBadLayout = errors.New("texture: bad upload buffer layout")
)
