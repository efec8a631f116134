package texture

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"voxrender/pkg/display"
)

// GLBackend implements Backend on top of OpenGL 4.1 core. A current
// GL context is required on the calling thread for every method; the
// caller owns context creation (e.g. via a hidden glfw window).
type GLBackend struct {
	quadProgram uint32
	quadVAO     uint32
	quadVBO     uint32
	xformLoc    int32
	texLoc      int32
	view        [16]float32
}

// NewGLBackend returns a GL-backed implementation. gl.Init must have
// been called with a current context before any other method is used.
func NewGLBackend() *GLBackend {
	b := &GLBackend{}
	// Identity until the renderer installs a projection.
	b.view = [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	return b
}

// glFormats maps a Spec to the OpenGL internal format, external
// format and element type for upload.
func glFormats(spec Spec) (internal int32, external, typ uint32, err error) {
	if spec.ElemType == U16 {
		typ = gl.UNSIGNED_SHORT
		switch spec.Channels {
		case 1:
			internal, external = gl.R16, gl.RED
		case 2:
			internal, external = gl.RG16, gl.RG
		case 3:
			internal, external = gl.RGB16, gl.RGB
		case 4:
			internal, external = gl.RGBA16, gl.RGBA
		default:
			err = fmt.Errorf("%w: %d", ErrUnsupportedChannelCount, spec.Channels)
		}
		return
	}
	typ = gl.UNSIGNED_BYTE
	switch spec.Channels {
	case 1:
		internal, external = gl.R8, gl.RED
	case 2:
		internal, external = gl.RG8, gl.RG
	case 3:
		internal, external = gl.RGB8, gl.RGB
	case 4:
		internal, external = gl.RGBA8, gl.RGBA
	default:
		err = fmt.Errorf("%w: %d", ErrUnsupportedChannelCount, spec.Channels)
	}
	return
}

// GenTexture allocates a GL texture id.
func (b *GLBackend) GenTexture() TextureID {
	var id uint32
	gl.GenTextures(1, &id)
	return TextureID(id)
}

// DeleteTexture releases a GL texture id.
func (b *GLBackend) DeleteTexture(id TextureID) {
	gid := uint32(id)
	gl.DeleteTextures(1, &gid)
}

// Alloc3D allocates 3D texture storage without uploading data.
func (b *GLBackend) Alloc3D(id TextureID, spec Spec, shape [3]int) error {
	internal, external, typ, err := glFormats(spec)
	if err != nil {
		return err
	}
	gl.BindTexture(gl.TEXTURE_3D, uint32(id))
	gl.TexImage3D(gl.TEXTURE_3D, 0, internal,
		int32(shape[0]), int32(shape[1]), int32(shape[2]),
		0, external, typ, nil)
	gl.BindTexture(gl.TEXTURE_3D, 0)
	return nil
}

// Upload3D replaces the entire 3D texture image. Tight packing is
// enabled so the texture shape need not be 4-byte aligned.
func (b *GLBackend) Upload3D(id TextureID, spec Spec, shape [3]int, pix PixelData) error {
	if pix.Layout != ColumnMajor {
		return fmt.Errorf("%w: got %v", ErrBadLayout, pix.Layout)
	}
	n := shape[0] * shape[1] * shape[2] * spec.Channels
	if pix.Len() != n {
		return fmt.Errorf("%w: %d elements for shape %v x %d channels",
			ErrBadLayout, pix.Len(), shape, spec.Channels)
	}
	internal, external, typ, err := glFormats(spec)
	if err != nil {
		return err
	}

	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)

	gl.BindTexture(gl.TEXTURE_3D, uint32(id))
	var ptr interface{}
	if spec.ElemType == U16 {
		ptr = pix.U16
	} else {
		ptr = pix.U8
	}
	gl.TexImage3D(gl.TEXTURE_3D, 0, internal,
		int32(shape[0]), int32(shape[1]), int32(shape[2]),
		0, external, typ, gl.Ptr(ptr))
	gl.BindTexture(gl.TEXTURE_3D, 0)
	return nil
}

// UploadSub3D updates a single-channel 8-bit sub-block.
func (b *GLBackend) UploadSub3D(id TextureID, offset, blockShape [3]int, data []uint8, layout Layout) error {
	if layout != ColumnMajor {
		return fmt.Errorf("%w: got %v", ErrBadLayout, layout)
	}
	n := blockShape[0] * blockShape[1] * blockShape[2]
	if len(data) != n {
		return fmt.Errorf("%w: %d bytes for block shape %v", ErrBadLayout, len(data), blockShape)
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.BindTexture(gl.TEXTURE_3D, uint32(id))
	gl.TexSubImage3D(gl.TEXTURE_3D, 0,
		int32(offset[0]), int32(offset[1]), int32(offset[2]),
		int32(blockShape[0]), int32(blockShape[1]), int32(blockShape[2]),
		gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(data))
	gl.BindTexture(gl.TEXTURE_3D, 0)
	return nil
}

// SetSampler3D sets filtering and wrap mode on a 3D texture.
func (b *GLBackend) SetSampler3D(id TextureID, filter display.Interp, wrap Wrap) {
	var glFilter int32 = gl.NEAREST
	if filter == display.Linear {
		glFilter = gl.LINEAR
	}
	var glWrap int32 = gl.CLAMP_TO_EDGE
	if wrap == ClampToBorder {
		glWrap = gl.CLAMP_TO_BORDER
	}

	gl.BindTexture(gl.TEXTURE_3D, uint32(id))
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MIN_FILTER, glFilter)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MAG_FILTER, glFilter)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_S, glWrap)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_T, glWrap)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_R, glWrap)
	if wrap == ClampToBorder {
		border := [4]float32{0, 0, 0, 0}
		gl.TexParameterfv(gl.TEXTURE_3D, gl.TEXTURE_BORDER_COLOR, &border[0])
	}
	gl.BindTexture(gl.TEXTURE_3D, 0)
}

// Alloc2D allocates an RGBA8 2D texture with undefined contents.
func (b *GLBackend) Alloc2D(id TextureID, width, height int) {
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8,
		int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// SetSampler2D sets the filtering of a 2D texture.
func (b *GLBackend) SetSampler2D(id TextureID, filter display.Interp) {
	var glFilter int32 = gl.NEAREST
	if filter == display.Linear {
		glFilter = gl.LINEAR
	}
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// GenFramebuffer allocates a GL framebuffer id.
func (b *GLBackend) GenFramebuffer() FramebufferID {
	var id uint32
	gl.GenFramebuffers(1, &id)
	return FramebufferID(id)
}

// DeleteFramebuffer releases a GL framebuffer id.
func (b *GLBackend) DeleteFramebuffer(id FramebufferID) {
	gid := uint32(id)
	gl.DeleteFramebuffers(1, &gid)
}

// AttachColor attaches tex as fb's colour target and checks
// completeness.
func (b *GLBackend) AttachColor(fb FramebufferID, tex TextureID) error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, uint32(tex), 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: status 0x%X", ErrFramebufferIncomplete, status)
	}
	return nil
}

// BindFramebuffer makes fb the active render target.
func (b *GLBackend) BindFramebuffer(fb FramebufferID) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
}

// UnbindFramebuffer restores the default render target.
func (b *GLBackend) UnbindFramebuffer() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// SetViewTransform sets the transform applied to quad vertices.
func (b *GLBackend) SetViewTransform(m [16]float32) { b.view = m }

const quadVertexShader = `#version 330 core
uniform mat4 uXform;
layout(location = 0) in vec3 inPos;
layout(location = 1) in vec2 inTexCoord;
out vec2 fragTexCoord;
void main() {
	gl_Position = uXform * vec4(inPos, 1.0);
	fragTexCoord = inTexCoord;
}
`

const quadFragmentShader = `#version 330 core
uniform sampler2D uTex;
in vec2 fragTexCoord;
out vec4 outColour;
void main() {
	outColour = texture(uTex, fragTexCoord);
}
`

// DrawTexturedQuad draws tex as a screen-aligned quad spanning the
// given bounds on spatial axes xax and yax.
func (b *GLBackend) DrawTexturedQuad(tex TextureID, xmin, xmax, ymin, ymax float32, xax, yax int) {
	b.ensureQuadProgram()

	// Two triangles; the third spatial axis stays at zero.
	corners := [6][2]float32{
		{xmin, ymin}, {xmin, ymax}, {xmax, ymin},
		{xmax, ymin}, {xmin, ymax}, {xmax, ymax},
	}
	texCoords := [6][2]float32{
		{0, 0}, {0, 1}, {1, 0},
		{1, 0}, {0, 1}, {1, 1},
	}

	verts := make([]float32, 0, 6*5)
	for i := 0; i < 6; i++ {
		var pos [3]float32
		pos[xax] = corners[i][0]
		pos[yax] = corners[i][1]
		verts = append(verts, pos[0], pos[1], pos[2], texCoords[i][0], texCoords[i][1])
	}

	gl.UseProgram(b.quadProgram)
	gl.UniformMatrix4fv(b.xformLoc, 1, false, &b.view[0])
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
	gl.Uniform1i(b.texLoc, 0)

	gl.BindVertexArray(b.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(verts), gl.DYNAMIC_DRAW)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)

	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.UseProgram(0)
}

// ReadPixels reads the active render target as tightly packed RGBA8.
func (b *GLBackend) ReadPixels(width, height int) []uint8 {
	buf := make([]uint8, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(buf))
	return buf
}

func (b *GLBackend) ensureQuadProgram() {
	if b.quadProgram != 0 {
		return
	}

	vs, err := compileShader(gl.VERTEX_SHADER, quadVertexShader)
	if err != nil {
		panic(err)
	}
	fs, err := compileShader(gl.FRAGMENT_SHADER, quadFragmentShader)
	if err != nil {
		panic(err)
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(infoLog))
		panic(fmt.Errorf("texture: quad program link error: %s", infoLog))
	}
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	b.quadProgram = program
	b.xformLoc = gl.GetUniformLocation(program, gl.Str("uXform\x00"))
	b.texLoc = gl.GetUniformLocation(program, gl.Str("uTex\x00"))

	gl.GenVertexArrays(1, &b.quadVAO)
	gl.GenBuffers(1, &b.quadVBO)
	gl.BindVertexArray(b.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.quadVBO)
	stride := int32(5 * 4)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.BindVertexArray(0)
}

func compileShader(shaderType uint32, source string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(infoLog))
		return 0, fmt.Errorf("texture: shader compile error: %s", infoLog)
	}
	return shader, nil
}
