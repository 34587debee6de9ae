package scene

import (
	"scene-viewer/core"
)

// DrawMode controls the primitive type used when rendering a mesh.
type DrawMode int

const (
	DrawTriangles DrawMode = iota
	DrawLines
)

// Mesh holds CPU-side vertex and index data. GPU buffers are owned by the
// renderer backend and may be shared by several nodes.
type Mesh struct {
	Name     string
	Vertices []core.Vertex
	Indices  []uint32
	DrawMode DrawMode

	// Bounds is the local-space box of the vertex positions.
	Bounds AABB

	// Material holds surface shading properties. If nil, DefaultMaterial() is used.
	Material *Material

	// GPUData is set by the renderer backend.
	GPUData any
}

// CreateMeshFromData builds a Mesh and computes its local bounds.
func CreateMeshFromData(name string, vertices []core.Vertex, indices []uint32) *Mesh {
	m := &Mesh{
		Name:     name,
		Vertices: vertices,
		Indices:  indices,
		Bounds:   EmptyAABB(),
	}
	for _, v := range vertices {
		m.Bounds = m.Bounds.Extend(v.Position)
	}
	return m
}

// TriangleCount returns the number of triangles, or zero for line meshes.
func (m *Mesh) TriangleCount() int {
	if m.DrawMode != DrawTriangles {
		return 0
	}
	if len(m.Indices) > 0 {
		return len(m.Indices) / 3
	}
	return len(m.Vertices) / 3
}

// IsTransparent reports whether the mesh belongs in the transparency pass.
func (m *Mesh) IsTransparent() bool {
	return m.Material != nil && m.Material.IsTransparent()
}

// ComputeFlatNormals assigns each triangle's face normal to its vertices.
// Shared vertices end up with the normal of the last face that uses them.
func (m *Mesh) ComputeFlatNormals() {
	tri := func(a, b, c uint32) {
		p0 := m.Vertices[a].Position
		n := m.Vertices[b].Position.Sub(p0).Cross(m.Vertices[c].Position.Sub(p0)).Normalize()
		m.Vertices[a].Normal = n
		m.Vertices[b].Normal = n
		m.Vertices[c].Normal = n
	}
	if len(m.Indices) > 0 {
		for i := 0; i+2 < len(m.Indices); i += 3 {
			tri(m.Indices[i], m.Indices[i+1], m.Indices[i+2])
		}
		return
	}
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		tri(uint32(i), uint32(i+1), uint32(i+2))
	}
}
