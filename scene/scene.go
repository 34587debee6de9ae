package scene

import (
	"log/slog"

	"scene-viewer/core"
	"scene-viewer/math"
)

// Light types
const (
	LightTypeDirectional = iota
	LightTypePoint
)

// Light is the payload of a light node. Position and Direction are world
// space and are refreshed by the update pass.
type Light struct {
	Type      int
	Position  math.Vec3
	Direction math.Vec3
	Color     core.Color
	Intensity float32
}

// Sky is the payload of a sky node: a vertical gradient behind everything.
type Sky struct {
	Zenith  core.Color
	Horizon core.Color
	Ground  core.Color
}

func DefaultSky() *Sky {
	return &Sky{
		Zenith:  core.Color{R: 0.22, G: 0.40, B: 0.75, A: 1},
		Horizon: core.Color{R: 0.70, G: 0.80, B: 0.92, A: 1},
		Ground:  core.Color{R: 0.30, G: 0.28, B: 0.26, A: 1},
	}
}

// Scene ties the node tree to the camera and the frame passes.
type Scene struct {
	Root    *Node
	Camera  *Camera
	Ambient core.Color

	// Sun, SkyNode and GridNode are the default environment nodes, if any.
	Sun      *Node
	SkyNode  *Node
	GridNode *Node

	Dispatcher *Dispatcher
}

func NewScene() *Scene {
	return &Scene{
		Root:       NewNode("Root"),
		Ambient:    core.Color{R: 0.2, G: 0.2, B: 0.2, A: 1.0},
		Dispatcher: NewDispatcher(GateBoth, nil),
	}
}

// NewDefaultScene returns a scene holding a sky, a 100 m grid and a
// directional light at (10, 10, 10).
func NewDefaultScene() *Scene {
	s := NewScene()

	s.SkyNode = NewSkyNode("Sky", DefaultSky())
	s.GridNode = NewGridNode("Grid", 100, 100)
	s.Sun = NewLightNode("Sun", &Light{
		Type:      LightTypeDirectional,
		Color:     core.ColorWhite,
		Intensity: 1,
	})
	s.Sun.SetPosition(math.Vec3{X: 10, Y: 10, Z: 10})

	for _, n := range []*Node{s.SkyNode, s.GridNode, s.Sun} {
		// Fresh nodes under a fresh root cannot fail.
		_ = s.Root.AddChild(n)
	}
	return s
}

func (s *Scene) SetCamera(camera *Camera) {
	s.Camera = camera
}

func (s *Scene) SetLogger(logger *slog.Logger) {
	s.Dispatcher.Logger = logger
}

// AddNode attaches node under the root.
func (s *Scene) AddNode(node *Node) error {
	return s.Root.AddChild(node)
}

// RemoveNode detaches node from wherever it sits in the tree.
func (s *Scene) RemoveNode(node *Node) (*Node, error) {
	if node == nil || node.parent == nil || node.Root() != s.Root {
		return nil, structuralError("remove", s.Root, node, ErrNotFound)
	}
	return node.parent.RemoveChild(node)
}

// Contains reports whether node is part of the scene tree.
func (s *Scene) Contains(node *Node) bool {
	return node != nil && node.Root() == s.Root
}

// Lights collects the light payloads in the tree.
func (s *Scene) Lights() []*Light {
	var lights []*Light
	s.Root.Traverse(func(n *Node) {
		if n.Kind == KindLight && n.Light != nil && n.Visible {
			lights = append(lights, n.Light)
		}
	})
	return lights
}

// Update runs the update pass with the camera frustum. Without a camera no
// node is culled.
func (s *Scene) Update(deltaTime float32) UpdateStats {
	var frustum *Frustum
	if s.Camera != nil {
		f := s.Camera.Frustum()
		frustum = &f
	}
	return s.Dispatcher.Update(s.Root, math.Mat4Identity(), frustum, deltaTime)
}

// Draw runs one draw pass.
func (s *Scene) Draw(pass DrawPass, backend Backend) DrawStats {
	return s.Dispatcher.Draw(s.Root, pass, backend)
}

// PickScreen picks the nearest node under a pixel of a width x height
// viewport.
func (s *Scene) PickScreen(x, y, width, height float32) (Hit, bool) {
	if s.Camera == nil || width <= 0 || height <= 0 {
		return Hit{}, false
	}
	ray := s.Camera.ScreenRay(x, y, width, height)
	return Pick(s.Root, ray, s.Dispatcher.Rule)
}

// MeshNodes returns every mesh node, in pre-order.
func (s *Scene) MeshNodes() []*Node {
	var out []*Node
	s.Root.Traverse(func(n *Node) {
		if n.Kind == KindMesh {
			out = append(out, n)
		}
	})
	return out
}

// SetRoot replaces the whole tree and re-binds the environment nodes to the
// first sky, grid and light found in it.
func (s *Scene) SetRoot(root *Node) {
	root.Detach()
	s.Root = root
	s.Sun, s.SkyNode, s.GridNode = nil, nil, nil
	root.Traverse(func(n *Node) {
		switch {
		case n.Kind == KindSky && s.SkyNode == nil:
			s.SkyNode = n
		case n.Kind == KindGrid && s.GridNode == nil:
			s.GridNode = n
		case n.Kind == KindLight && s.Sun == nil:
			s.Sun = n
		}
	})
}
