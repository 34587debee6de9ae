package scene

import (
	"fmt"
	"strings"
)

// NewMeshNode wraps a mesh. Its local bounds come from the mesh, and it is
// drawn in the shadow pass plus the solid or transparency pass depending on
// its material.
func NewMeshNode(name string, mesh *Mesh) *Node {
	n := NewNode(name)
	n.Kind = KindMesh
	n.Mesh = mesh
	if mesh != nil {
		n.Bounds = mesh.Bounds
		n.Passes = MeshPasses(mesh)
	}
	return n
}

// MeshPasses returns the passes a mesh is drawn in by default.
func MeshPasses(mesh *Mesh) DrawPass {
	if mesh.IsTransparent() {
		return DrawTransparency
	}
	return DrawShadow | DrawSolid
}

// NewLightNode creates a light. Lights take part in no draw pass.
func NewLightNode(name string, light *Light) *Node {
	n := NewNode(name)
	n.Kind = KindLight
	n.Light = light
	n.Passes = DrawNone
	return n
}

// NewSkyNode creates the environment backdrop.
func NewSkyNode(name string, sky *Sky) *Node {
	n := NewNode(name)
	n.Kind = KindSky
	n.Sky = sky
	n.Passes = DrawSolid
	return n
}

// NewGridNode creates a ground grid. Its bounds stay invalid so it is never
// culled and never picked.
func NewGridNode(name string, size float32, divisions int) *Node {
	n := NewNode(name)
	n.Kind = KindGrid
	n.Mesh = CreateGrid(size, divisions)
	n.Passes = DrawSolid
	return n
}

// Primitives lists the names accepted by NewPrimitiveNode.
var Primitives = []string{"Cube", "Sphere", "Plane", "Cylinder", "Cone"}

// NewPrimitiveNode builds a mesh node for a named primitive shape.
func NewPrimitiveNode(shape string) (*Node, error) {
	var mesh *Mesh
	switch strings.ToLower(shape) {
	case "cube":
		mesh = CreateCube(1)
	case "sphere":
		mesh = CreateSphere(0.5, 32, 16)
	case "plane":
		mesh = CreatePlane(1, 1, 1)
	case "cylinder":
		mesh = CreateCylinder(0.5, 0.5, 1, 32)
	case "cone":
		mesh = CreateCylinder(0.5, 0, 1, 32)
		mesh.Name = "Cone"
	default:
		return nil, fmt.Errorf("unknown primitive %q", shape)
	}
	mesh.Material = DefaultMaterial()
	n := NewMeshNode(mesh.Name, mesh)
	n.Source = PrimitiveSource(mesh.Name)
	return n, nil
}

const primitivePrefix = "primitive:"

// PrimitiveSource is the Source value recorded for primitive nodes.
func PrimitiveSource(shape string) string {
	return primitivePrefix + shape
}

// ParsePrimitiveSource returns the shape named by a primitive Source value.
func ParsePrimitiveSource(source string) (string, bool) {
	return strings.CutPrefix(source, primitivePrefix)
}
