package scene

import "scene-viewer/core"

// Material describes Phong surface properties for a mesh.
type Material struct {
	Name      string
	Albedo    core.Color // multiplied with AlbedoTexture if set
	Specular  core.Color
	Shininess float32
	Unlit     bool // output raw albedo, skip lighting

	// AlbedoTexture is uploaded by the backend on first use.
	AlbedoTexture *Texture
}

// DefaultMaterial returns a plain white matte material.
func DefaultMaterial() *Material {
	return NewMaterial("Default", core.ColorWhite)
}

func NewMaterial(name string, albedo core.Color) *Material {
	return &Material{
		Name:      name,
		Albedo:    albedo,
		Specular:  core.Color{R: 0.3, G: 0.3, B: 0.3, A: 1},
		Shininess: 32,
	}
}

// IsTransparent reports whether the material needs blending.
func (m *Material) IsTransparent() bool {
	return m.Albedo.A < 1
}
