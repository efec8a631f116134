package texture

import (
	"fmt"

	"voxrender/pkg/display"
)

// tex3D is the in-memory representation of a 3D texture.
type tex3D struct {
	spec   Spec
	shape  [3]int
	u8     []uint8
	u16    []uint16
	filter display.Interp
	wrap   Wrap
}

// tex2D is the in-memory representation of a 2D render target texture.
type tex2D struct {
	width  int
	height int
	pix    []uint8
	filter display.Interp
}

// HeadlessBackend is an in-memory Backend implementation. It performs
// no GPU work but stores texture contents faithfully, so tests can
// verify upload behaviour (including partial sub-block updates)
// without a GL context. It also counts operations, which tests use to
// check that, say, an interpolation change does not re-upload data.
type HeadlessBackend struct {
	nextTex TextureID
	nextFB  FramebufferID

	tex3D map[TextureID]*tex3D
	tex2D map[TextureID]*tex2D
	fbos  map[FramebufferID]TextureID

	bound FramebufferID
	view  [16]float32

	// Uploads3D counts full 3D image uploads per texture.
	Uploads3D map[TextureID]int

	// SubUploads3D counts partial 3D updates per texture.
	SubUploads3D map[TextureID]int

	// SamplerSets3D counts sampler state changes per 3D texture.
	SamplerSets3D map[TextureID]int

	// Draws counts textured-quad draw calls issued.
	Draws int
}

// NewHeadlessBackend returns an empty in-memory backend.
func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{
		tex3D:         make(map[TextureID]*tex3D),
		tex2D:         make(map[TextureID]*tex2D),
		fbos:          make(map[FramebufferID]TextureID),
		Uploads3D:     make(map[TextureID]int),
		SubUploads3D:  make(map[TextureID]int),
		SamplerSets3D: make(map[TextureID]int),
	}
}

// GenTexture allocates a texture id.
func (b *HeadlessBackend) GenTexture() TextureID {
	b.nextTex++
	return b.nextTex
}

// DeleteTexture releases a texture id.
func (b *HeadlessBackend) DeleteTexture(id TextureID) {
	delete(b.tex3D, id)
	delete(b.tex2D, id)
}

// LiveTextureCount returns the number of textures currently holding
// storage.
func (b *HeadlessBackend) LiveTextureCount() int {
	return len(b.tex3D) + len(b.tex2D)
}

func (b *HeadlessBackend) get3D(id TextureID) *tex3D {
	t := b.tex3D[id]
	if t == nil {
		t = &tex3D{}
		b.tex3D[id] = t
	}
	return t
}

// Alloc3D allocates zeroed 3D storage.
func (b *HeadlessBackend) Alloc3D(id TextureID, spec Spec, shape [3]int) error {
	n := shape[0] * shape[1] * shape[2] * spec.Channels
	t := b.get3D(id)
	t.spec = spec
	t.shape = shape
	if spec.ElemType == U16 {
		t.u16 = make([]uint16, n)
		t.u8 = nil
	} else {
		t.u8 = make([]uint8, n)
		t.u16 = nil
	}
	return nil
}

// Upload3D replaces the entire 3D texture contents.
func (b *HeadlessBackend) Upload3D(id TextureID, spec Spec, shape [3]int, pix PixelData) error {
	if pix.Layout != ColumnMajor {
		return fmt.Errorf("%w: got %v", ErrBadLayout, pix.Layout)
	}
	n := shape[0] * shape[1] * shape[2] * spec.Channels
	if pix.Len() != n {
		return fmt.Errorf("%w: %d elements for shape %v x %d channels",
			ErrBadLayout, pix.Len(), shape, spec.Channels)
	}
	t := b.get3D(id)
	t.spec = spec
	t.shape = shape
	if spec.ElemType == U16 {
		t.u16 = append([]uint16(nil), pix.U16...)
		t.u8 = nil
	} else {
		t.u8 = append([]uint8(nil), pix.U8...)
		t.u16 = nil
	}
	b.Uploads3D[id]++
	return nil
}

// UploadSub3D updates a single-channel 8-bit sub-block in place.
func (b *HeadlessBackend) UploadSub3D(id TextureID, offset, blockShape [3]int, data []uint8, layout Layout) error {
	if layout != ColumnMajor {
		return fmt.Errorf("%w: got %v", ErrBadLayout, layout)
	}
	n := blockShape[0] * blockShape[1] * blockShape[2]
	if len(data) != n {
		return fmt.Errorf("%w: %d bytes for block shape %v", ErrBadLayout, len(data), blockShape)
	}
	t := b.tex3D[id]
	if t == nil || t.u8 == nil {
		return fmt.Errorf("%w: sub-update of unallocated texture %d", ErrInvalidOperation, id)
	}
	for i := 0; i < 3; i++ {
		if offset[i] < 0 || offset[i]+blockShape[i] > t.shape[i] {
			return fmt.Errorf("sub-update block %v at %v exceeds texture shape %v",
				blockShape, offset, t.shape)
		}
	}
	i := 0
	for z := 0; z < blockShape[2]; z++ {
		for y := 0; y < blockShape[1]; y++ {
			for x := 0; x < blockShape[0]; x++ {
				idx := ((offset[2]+z)*t.shape[1]+offset[1]+y)*t.shape[0] + offset[0] + x
				t.u8[idx] = data[i]
				i++
			}
		}
	}
	b.SubUploads3D[id]++
	return nil
}

// SetSampler3D records the sampler state.
func (b *HeadlessBackend) SetSampler3D(id TextureID, filter display.Interp, wrap Wrap) {
	t := b.get3D(id)
	t.filter = filter
	t.wrap = wrap
	b.SamplerSets3D[id]++
}

// Alloc2D allocates an RGBA8 2D texture.
func (b *HeadlessBackend) Alloc2D(id TextureID, width, height int) {
	b.tex2D[id] = &tex2D{
		width:  width,
		height: height,
		pix:    make([]uint8, width*height*4),
	}
}

// SetSampler2D records the 2D sampler state.
func (b *HeadlessBackend) SetSampler2D(id TextureID, filter display.Interp) {
	t := b.tex2D[id]
	if t != nil {
		t.filter = filter
	}
}

// GenFramebuffer allocates a framebuffer id.
func (b *HeadlessBackend) GenFramebuffer() FramebufferID {
	b.nextFB++
	return b.nextFB
}

// DeleteFramebuffer releases a framebuffer id.
func (b *HeadlessBackend) DeleteFramebuffer(id FramebufferID) {
	delete(b.fbos, id)
}

// AttachColor attaches tex as fb's colour target. The attachment is
// complete if the texture has allocated 2D storage.
func (b *HeadlessBackend) AttachColor(fb FramebufferID, tex TextureID) error {
	if b.tex2D[tex] == nil {
		return fmt.Errorf("%w: texture %d has no 2D storage", ErrFramebufferIncomplete, tex)
	}
	b.fbos[fb] = tex
	return nil
}

// BindFramebuffer records the active render target.
func (b *HeadlessBackend) BindFramebuffer(fb FramebufferID) { b.bound = fb }

// UnbindFramebuffer restores the default render target.
func (b *HeadlessBackend) UnbindFramebuffer() { b.bound = 0 }

// SetViewTransform records the quad-draw view transform.
func (b *HeadlessBackend) SetViewTransform(m [16]float32) { b.view = m }

// DrawTexturedQuad counts the draw call; no rasterisation happens.
func (b *HeadlessBackend) DrawTexturedQuad(tex TextureID, xmin, xmax, ymin, ymax float32, xax, yax int) {
	b.Draws++
}

// ReadPixels returns the bound render target's contents (all zeroes,
// since nothing rasterises in this backend).
func (b *HeadlessBackend) ReadPixels(width, height int) []uint8 {
	if tex, ok := b.fbos[b.bound]; ok {
		if t := b.tex2D[tex]; t != nil && t.width == width && t.height == height {
			return append([]uint8(nil), t.pix...)
		}
	}
	return make([]uint8, width*height*4)
}

// Texture3DContents returns a copy of the stored 8-bit contents and
// shape of a 3D texture, for test verification.
func (b *HeadlessBackend) Texture3DContents(id TextureID) ([]uint8, [3]int, bool) {
	t := b.tex3D[id]
	if t == nil || t.u8 == nil {
		return nil, [3]int{}, false
	}
	return append([]uint8(nil), t.u8...), t.shape, true
}

// Texture3DContents16 returns a copy of the stored 16-bit contents and
// shape of a 3D texture, for test verification.
func (b *HeadlessBackend) Texture3DContents16(id TextureID) ([]uint16, [3]int, bool) {
	t := b.tex3D[id]
	if t == nil || t.u16 == nil {
		return nil, [3]int{}, false
	}
	return append([]uint16(nil), t.u16...), t.shape, true
}

// Sampler3D returns the recorded sampler state of a 3D texture.
func (b *HeadlessBackend) Sampler3D(id TextureID) (display.Interp, Wrap, bool) {
	t := b.tex3D[id]
	if t == nil {
		return 0, 0, false
	}
	return t.filter, t.wrap, true
}
