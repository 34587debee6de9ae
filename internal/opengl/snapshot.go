package opengl

import (
	"fmt"
	"image"
	"image/png"
	"os"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

// ReadPixels copies the default framebuffer's back buffer into an image.
// GL rows run bottom-up, so they are flipped on the way out.
func (r *Renderer) ReadPixels() (*image.RGBA, error) {
	w, h := int(r.viewportW), int(r.viewportH)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("read pixels: empty viewport %dx%d", w, h)
	}
	raw := make([]byte, w*h*4)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	gl.ReadBuffer(gl.BACK)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(raw))
	if code := gl.GetError(); code != gl.NO_ERROR {
		return nil, fmt.Errorf("read pixels: gl error 0x%X", code)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stride := w * 4
	for y := 0; y < h; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+stride], raw[(h-1-y)*stride:(h-y)*stride])
	}
	// Alpha in the back buffer is whatever blending left behind.
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img, nil
}

// SaveSnapshot writes the back buffer to path as PNG.
func (r *Renderer) SaveSnapshot(path string) error {
	img, err := r.ReadPixels()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("snapshot %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("snapshot %q: %w", path, err)
	}
	r.Logger.Info("snapshot written", "path", path, "width", img.Rect.Dx(), "height", img.Rect.Dy())
	return nil
}
