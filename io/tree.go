package io

import (
	"errors"
	"fmt"
	"log/slog"

	"scene-viewer/core"
	"scene-viewer/scene"
)

// MeshLoader turns an asset path back into a node.
type MeshLoader func(path string) (*scene.Node, error)

// TextureLoader reads an override texture.
type TextureLoader func(path string) (*scene.Texture, error)

// Snapshot captures the tree and the orbit camera, if any.
func Snapshot(s *scene.Scene, cam *scene.OrbitCamera) *SceneFile {
	f := &SceneFile{
		Version: FormatVersion,
		Root:    nodeData(s.Root),
	}
	if cam != nil {
		f.Camera = &CameraData{
			Target:   Vec3ToArray(cam.Target),
			Distance: cam.Distance,
			Yaw:      cam.Yaw,
			Pitch:    cam.Pitch,
			FOV:      cam.FOV,
			Near:     cam.NearPlane,
			Far:      cam.FarPlane,
		}
	}
	return f
}

func nodeData(n *scene.Node) NodeData {
	d := NodeData{
		Kind:    n.Kind,
		Name:    n.Name,
		Source:  n.Source,
		Local:   MatrixToArray(n.LocalTransform()),
		Visible: n.Visible,
	}
	switch n.Kind {
	case scene.KindMesh:
		if _, isPrimitive := scene.ParsePrimitiveSource(n.Source); isPrimitive && n.Mesh != nil && n.Mesh.Material != nil {
			d.Material = materialData(n.Mesh.Material)
		}
	case scene.KindLight:
		if n.Light != nil {
			d.Light = &LightData{
				Type:      lightTypeName(n.Light.Type),
				Color:     ColorToArray(n.Light.Color),
				Intensity: n.Light.Intensity,
			}
		}
	case scene.KindSky:
		if n.Sky != nil {
			d.Sky = &SkyData{
				Zenith:  ColorToArray(n.Sky.Zenith),
				Horizon: ColorToArray(n.Sky.Horizon),
				Ground:  ColorToArray(n.Sky.Ground),
			}
		}
	}

	// Children of a loaded asset come back with the asset.
	if n.Source != "" {
		if _, isPrimitive := scene.ParsePrimitiveSource(n.Source); !isPrimitive {
			return d
		}
	}
	for _, c := range n.Children() {
		d.Children = append(d.Children, nodeData(c))
	}
	return d
}

func materialData(m *scene.Material) *MaterialData {
	d := &MaterialData{
		Name:      m.Name,
		Albedo:    ColorToArray(m.Albedo),
		Specular:  ColorToArray(m.Specular),
		Shininess: m.Shininess,
		Unlit:     m.Unlit,
	}
	if m.AlbedoTexture != nil {
		d.Texture = m.AlbedoTexture.Name
	}
	return d
}

func lightTypeName(t int) string {
	if t == scene.LightTypePoint {
		return "point"
	}
	return "directional"
}

// Builder rebuilds a node tree from a SceneFile.
type Builder struct {
	LoadMesh    MeshLoader
	LoadTexture TextureLoader
	Logger      *slog.Logger
}

// Build returns the rebuilt root. Assets that fail to load leave a mesh
// node without a mesh in their place, which the draw pass skips; the
// failures are returned joined as the second result.
func (b *Builder) Build(f *SceneFile) (*scene.Node, error) {
	var problems []error
	root := b.build(f.Root, &problems)
	return root, errors.Join(problems...)
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *Builder) build(d NodeData, problems *[]error) *scene.Node {
	n := b.instantiate(d, problems)
	n.Name = d.Name
	n.Source = d.Source
	n.Visible = d.Visible
	n.SetLocalTransform(ArrayToMatrix(d.Local))

	for _, cd := range d.Children {
		// A freshly built child can never be an ancestor of n.
		_ = n.AddChild(b.build(cd, problems))
	}
	return n
}

func (b *Builder) instantiate(d NodeData, problems *[]error) *scene.Node {
	if d.Source != "" {
		// Loaded assets may come back as a group of meshes.
		return b.instantiateMesh(d, problems)
	}
	switch d.Kind {
	case scene.KindLight:
		l := &scene.Light{Type: scene.LightTypeDirectional, Color: core.ColorWhite, Intensity: 1}
		if d.Light != nil {
			if d.Light.Type == "point" {
				l.Type = scene.LightTypePoint
			}
			l.Color = ArrayToColor(d.Light.Color)
			l.Intensity = d.Light.Intensity
		}
		return scene.NewLightNode(d.Name, l)

	case scene.KindSky:
		sky := scene.DefaultSky()
		if d.Sky != nil {
			sky.Zenith = ArrayToColor(d.Sky.Zenith)
			sky.Horizon = ArrayToColor(d.Sky.Horizon)
			sky.Ground = ArrayToColor(d.Sky.Ground)
		}
		return scene.NewSkyNode(d.Name, sky)

	case scene.KindGrid:
		return scene.NewGridNode(d.Name, 100, 100)

	case scene.KindMesh:
		return b.instantiateMesh(d, problems)
	}
	return scene.NewNode(d.Name)
}

func (b *Builder) instantiateMesh(d NodeData, problems *[]error) *scene.Node {
	fail := func(err error) *scene.Node {
		*problems = append(*problems, err)
		b.logger().Warn("asset unavailable, keeping placeholder", "node", d.Name, "source", d.Source, "error", err)
		return scene.NewMeshNode(d.Name, nil)
	}

	if shape, ok := scene.ParsePrimitiveSource(d.Source); ok {
		n, err := scene.NewPrimitiveNode(shape)
		if err != nil {
			return fail(err)
		}
		if d.Material != nil {
			n.Mesh.Material = b.material(d.Material, problems)
			n.Passes = scene.MeshPasses(n.Mesh)
		}
		return n
	}

	if d.Source == "" {
		return fail(fmt.Errorf("mesh node %q has no source", d.Name))
	}
	if b.LoadMesh == nil {
		return fail(fmt.Errorf("no mesh loader for %q", d.Source))
	}
	n, err := b.LoadMesh(d.Source)
	if err != nil {
		return fail(fmt.Errorf("load %q: %w", d.Source, err))
	}
	return n
}

func (b *Builder) material(d *MaterialData, problems *[]error) *scene.Material {
	m := &scene.Material{
		Name:      d.Name,
		Albedo:    ArrayToColor(d.Albedo),
		Specular:  ArrayToColor(d.Specular),
		Shininess: d.Shininess,
		Unlit:     d.Unlit,
	}
	if d.Texture != "" && b.LoadTexture != nil {
		tex, err := b.LoadTexture(d.Texture)
		if err != nil {
			*problems = append(*problems, fmt.Errorf("texture %q: %w", d.Texture, err))
		} else {
			m.AlbedoTexture = tex
		}
	}
	return m
}

// ApplyCamera restores a saved orbit camera.
func ApplyCamera(d *CameraData, cam *scene.OrbitCamera) {
	if d == nil || cam == nil {
		return
	}
	cam.Target = ArrayToVec3(d.Target)
	cam.Distance = d.Distance
	cam.Yaw = d.Yaw
	cam.Pitch = d.Pitch
	if d.FOV > 0 {
		cam.FOV = d.FOV
	}
	if d.Near > 0 && d.Far > d.Near {
		cam.SetClipPlanes(d.Near, d.Far)
	}
	cam.UpdatePosition()
}

// Save writes the scene and camera to path.
func Save(path string, s *scene.Scene, cam *scene.OrbitCamera) error {
	return WriteSceneFile(path, Snapshot(s, cam))
}

// Load reads path and rebuilds its tree. The returned error may be a
// partial-load error alongside a usable root; check root for nil.
func (b *Builder) Load(path string) (*scene.Node, *CameraData, error) {
	f, err := ReadSceneFile(path)
	if err != nil {
		return nil, nil, err
	}
	root, err := b.Build(f)
	return root, f.Camera, err
}
