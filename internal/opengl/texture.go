package opengl

import (
	"errors"
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"scene-viewer/scene"
)

var errNoPixels = errors.New("texture has no pixel data")

// UploadTexture copies tex to the GPU and sets its GLID. The renderer owns
// the GL object from then on and frees it in Collect or Destroy.
func (r *Renderer) UploadTexture(tex *scene.Texture) error {
	if tex == nil {
		return fmt.Errorf("upload texture: %w", scene.ErrMissingResource)
	}
	if len(tex.Pixels) == 0 || len(tex.Pixels) < tex.Width*tex.Height*4 {
		return fmt.Errorf("upload texture %q: %w", tex.Name, errNoPixels)
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8,
		int32(tex.Width), int32(tex.Height), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(tex.Pixels))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	tex.GLID = id
	r.textures[tex] = true
	r.Logger.Debug("texture uploaded", "texture", tex.Name, "width", tex.Width, "height", tex.Height)
	return nil
}

// DeleteTexture frees an uploaded texture and zeroes its GLID.
func (r *Renderer) DeleteTexture(tex *scene.Texture) {
	delete(r.textures, tex)
	if tex == nil || tex.GLID == 0 {
		return
	}
	gl.DeleteTextures(1, &tex.GLID)
	tex.GLID = 0
}
