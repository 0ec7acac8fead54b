package renderer

import (
	"unsafe"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/horizon3d/internal/engine/layered"
	"github.com/Faultbox/horizon3d/internal/engine/tessellate"
)

// tile holds the buffers of one tessellated tile.
type tile struct {
	vertexVBO uint32
	normalVBO uint32
	indexEBO  uint32

	// Index counts of the triangle, line and point runs, stored back to
	// back in indexEBO.
	triangles, lines, points int32

	units []tileUnit
}

// tileUnit binds one cutout entry to its texture unit.
type tileUnit struct {
	unit     uint32
	texture  uint32
	coordVBO uint32
}

func uploadTile(res *tessellate.Result) *tile {
	t := &tile{
		vertexVBO: arrayBuffer(res.Vertices),
		normalVBO: arrayBuffer(res.Normals),
		triangles: int32(len(res.Triangles)),
		lines:     int32(len(res.Lines)),
		points:    int32(len(res.Points)),
	}

	indices := make([]uint32, 0, len(res.Triangles)+len(res.Lines)+len(res.Points))
	indices = append(indices, res.Triangles...)
	indices = append(indices, res.Lines...)
	indices = append(indices, res.Points...)
	gl.GenBuffers(1, &t.indexEBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, t.indexEBO)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)

	for k := range res.Cutout {
		tc := &res.Cutout[k]
		if k >= len(res.TexCoords) || tc.Size.X < 1 || tc.Size.Y < 1 {
			continue
		}
		u := tileUnit{
			unit:     uint32(tc.Unit),
			coordVBO: texCoordBuffer(res.TexCoords[k]),
			texture:  uploadTexture(tc.Format, tc.Size.X, tc.Size.Y, tc.PackedPixels(), tc.Filter),
		}
		gl.BindTexture(gl.TEXTURE_2D, u.texture)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrapMode(tc.WrapS))
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrapMode(tc.WrapT))
		if tc.WrapS == layered.ClampToBorder || tc.WrapT == layered.ClampToBorder {
			border := tc.BorderColor
			gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &border[0])
		}
		gl.BindTexture(gl.TEXTURE_2D, 0)
		t.units = append(t.units, u)
	}
	return t
}

func (t *tile) release() {
	gl.DeleteBuffers(1, &t.vertexVBO)
	gl.DeleteBuffers(1, &t.normalVBO)
	gl.DeleteBuffers(1, &t.indexEBO)
	for _, u := range t.units {
		gl.DeleteBuffers(1, &u.coordVBO)
		gl.DeleteTextures(1, &u.texture)
	}
}

// draw binds the tile's arrays and textures and issues its three runs.
// fixedFunction enables texturing on each unit for the composite path.
func (t *tile) draw(fixedFunction bool) {
	gl.EnableClientState(gl.VERTEX_ARRAY)
	gl.BindBuffer(gl.ARRAY_BUFFER, t.vertexVBO)
	gl.VertexPointer(3, gl.FLOAT, 0, nil)
	gl.EnableClientState(gl.NORMAL_ARRAY)
	gl.BindBuffer(gl.ARRAY_BUFFER, t.normalVBO)
	gl.NormalPointer(gl.FLOAT, 0, nil)

	for _, u := range t.units {
		gl.ClientActiveTexture(gl.TEXTURE0 + u.unit)
		gl.EnableClientState(gl.TEXTURE_COORD_ARRAY)
		gl.BindBuffer(gl.ARRAY_BUFFER, u.coordVBO)
		gl.TexCoordPointer(2, gl.FLOAT, 0, nil)

		gl.ActiveTexture(gl.TEXTURE0 + u.unit)
		gl.BindTexture(gl.TEXTURE_2D, u.texture)
		if fixedFunction {
			gl.Enable(gl.TEXTURE_2D)
			gl.TexEnvi(gl.TEXTURE_ENV, gl.TEXTURE_ENV_MODE, gl.MODULATE)
		}
	}

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, t.indexEBO)
	if t.triangles > 0 {
		gl.DrawElements(gl.TRIANGLES, t.triangles, gl.UNSIGNED_INT, nil)
	}
	if t.lines > 0 {
		gl.DrawElements(gl.LINES, t.lines, gl.UNSIGNED_INT, gl.PtrOffset(int(t.triangles)*4))
	}
	if t.points > 0 {
		gl.DrawElements(gl.POINTS, t.points, gl.UNSIGNED_INT, gl.PtrOffset(int(t.triangles+t.lines)*4))
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)

	for _, u := range t.units {
		gl.ClientActiveTexture(gl.TEXTURE0 + u.unit)
		gl.DisableClientState(gl.TEXTURE_COORD_ARRAY)
		gl.ActiveTexture(gl.TEXTURE0 + u.unit)
		if fixedFunction {
			gl.Disable(gl.TEXTURE_2D)
		}
		gl.BindTexture(gl.TEXTURE_2D, 0)
	}
	gl.ClientActiveTexture(gl.TEXTURE0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.DisableClientState(gl.NORMAL_ARRAY)
	gl.DisableClientState(gl.VERTEX_ARRAY)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func arrayBuffer(v []mgl32.Vec3) uint32 {
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	if len(v) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(v)*3*4, gl.Ptr(v), gl.STATIC_DRAW)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return vbo
}

func texCoordBuffer(v []mgl32.Vec2) uint32 {
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	if len(v) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(v)*2*4, gl.Ptr(v), gl.STATIC_DRAW)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return vbo
}

// uploadTexture creates a texture from tightly packed pixels.
func uploadTexture(f layered.Format, w, h int, pix []byte, filter layered.FilterType) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)

	glFilter := int32(gl.LINEAR)
	if filter == layered.Nearest {
		glFilter = gl.NEAREST
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	format := pixelFormat(f)
	var data unsafe.Pointer
	if len(pix) > 0 {
		data = gl.Ptr(pix)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(format), int32(w), int32(h), 0, format, gl.UNSIGNED_BYTE, data)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

func pixelFormat(f layered.Format) uint32 {
	switch f {
	case layered.Luminance:
		return gl.LUMINANCE
	case layered.Alpha:
		return gl.ALPHA
	default:
		return gl.RGBA
	}
}

func wrapMode(m layered.WrapMode) int32 {
	if m == layered.ClampToBorder {
		return gl.CLAMP_TO_BORDER
	}
	return gl.CLAMP_TO_EDGE
}
