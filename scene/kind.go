package scene

import (
	"fmt"
	"strings"

	"scene-viewer/core"
	"scene-viewer/math"
)

// Kind tags the concrete variant of a node.
type Kind int

const (
	KindGroup Kind = iota
	KindMesh
	KindLight
	KindSky
	KindGrid
)

var kindNames = map[Kind]string{
	KindGroup: "group",
	KindMesh:  "mesh",
	KindLight: "light",
	KindSky:   "sky",
	KindGrid:  "grid",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return k, nil
		}
	}
	return KindGroup, fmt.Errorf("unknown node kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// DrawPass is a bit set of the passes a node is drawn in.
type DrawPass uint8

const (
	DrawShadow DrawPass = 1 << iota
	DrawSolid
	DrawTransparency

	DrawNone DrawPass = 0
)

func (p DrawPass) String() string {
	var parts []string
	if p&DrawShadow != 0 {
		parts = append(parts, "shadow")
	}
	if p&DrawSolid != 0 {
		parts = append(parts, "solid")
	}
	if p&DrawTransparency != 0 {
		parts = append(parts, "transparency")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Backend receives draw calls from the draw pass.
type Backend interface {
	DrawMesh(mesh *Mesh, pass DrawPass, model math.Mat4) error
	DrawSky(sky *Sky, pass DrawPass) error
}

// FrameState is what a backend needs to know before the passes of a frame.
type FrameState struct {
	View       math.Mat4
	Projection math.Mat4
	CameraPos  math.Vec3
	Lights     []*Light
	Ambient    core.Color
	Clear      core.Color

	// LightViewProj maps world space into the shadow map. Only meaningful
	// when Shadows is set.
	LightViewProj math.Mat4
	Shadows       bool
}

// DrawFunc draws one node for one pass with its world matrix as the model
// matrix. Returning ErrMissingResource skips the node without failing the
// pass.
type DrawFunc func(n *Node, pass DrawPass, model math.Mat4, backend Backend) error

// UpdateFunc runs once per node during the update pass, after the world
// matrix is known.
type UpdateFunc func(n *Node, world math.Mat4, dt float32)

// Behavior is the per-kind dispatch entry.
type Behavior struct {
	Draw   DrawFunc
	Update UpdateFunc
}

// Registry maps node kinds to behaviors.
type Registry struct {
	behaviors map[Kind]Behavior
}

func NewRegistry() *Registry {
	return &Registry{behaviors: make(map[Kind]Behavior)}
}

func (r *Registry) Register(kind Kind, b Behavior) {
	r.behaviors[kind] = b
}

func (r *Registry) Lookup(kind Kind) (Behavior, bool) {
	b, ok := r.behaviors[kind]
	return b, ok
}

// DefaultRegistry holds the behaviors for the built-in kinds.
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindGroup, Behavior{})
	r.Register(KindMesh, Behavior{Draw: drawMesh})
	r.Register(KindGrid, Behavior{Draw: drawMesh})
	r.Register(KindSky, Behavior{Draw: drawSky})
	r.Register(KindLight, Behavior{Update: updateLight})
	return r
}

func drawMesh(n *Node, pass DrawPass, model math.Mat4, backend Backend) error {
	if n.Mesh == nil || len(n.Mesh.Vertices) == 0 {
		return ErrMissingResource
	}
	return backend.DrawMesh(n.Mesh, pass, model)
}

func drawSky(n *Node, pass DrawPass, _ math.Mat4, backend Backend) error {
	if n.Sky == nil {
		return ErrMissingResource
	}
	return backend.DrawSky(n.Sky, pass)
}

// updateLight keeps the light's world position and direction in step with
// the node.
func updateLight(n *Node, world math.Mat4, _ float32) {
	if n.Light == nil {
		return
	}
	n.Light.Position = world.Translation()
	if n.Light.Type == LightTypeDirectional && n.Light.Position.LengthSqr() > 0 {
		n.Light.Direction = n.Light.Position.Negate().Normalize()
	}
}
