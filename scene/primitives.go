package scene

import (
	"github.com/chewxy/math32"

	"scene-viewer/core"
	"scene-viewer/math"
)

var primitiveColor = core.Color{R: 0.8, G: 0.8, B: 0.8, A: 1.0}

// CreateCube builds an axis-aligned cube centred on the origin with one
// quad per face so normals stay flat.
func CreateCube(size float32) *Mesh {
	s := size / 2
	faces := []struct{ normal, u, v math.Vec3 }{
		{math.Vec3Front, math.Vec3Right, math.Vec3Up},
		{math.Vec3Back, math.Vec3Left, math.Vec3Up},
		{math.Vec3Up, math.Vec3Right, math.Vec3Back},
		{math.Vec3Down, math.Vec3Right, math.Vec3Front},
		{math.Vec3Right, math.Vec3Back, math.Vec3Up},
		{math.Vec3Left, math.Vec3Front, math.Vec3Up},
	}
	corners := [4]math.Vec2{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}}

	vertices := make([]core.Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		base := uint32(len(vertices))
		for _, c := range corners {
			p := f.normal.Add(f.u.Mul(c.X)).Add(f.v.Mul(c.Y)).Mul(s)
			vertices = append(vertices, core.Vertex{
				Position: p,
				Normal:   f.normal,
				UV:       math.Vec2{X: (c.X + 1) / 2, Y: (c.Y + 1) / 2},
				Color:    core.ColorWhite,
			})
		}
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}
	return CreateMeshFromData("Cube", vertices, indices)
}

// CreateSphere generates a UV sphere.
func CreateSphere(radius float32, segments, rings int) *Mesh {
	segments = max(segments, 3)
	rings = max(rings, 2)

	var vertices []core.Vertex
	var indices []uint32

	for ring := 0; ring <= rings; ring++ {
		sinPhi, cosPhi := math32.Sincos(float32(ring) * math32.Pi / float32(rings))
		for seg := 0; seg <= segments; seg++ {
			sinTheta, cosTheta := math32.Sincos(float32(seg) * 2 * math32.Pi / float32(segments))
			normal := math.Vec3{X: sinPhi * cosTheta, Y: cosPhi, Z: sinPhi * sinTheta}
			vertices = append(vertices, core.Vertex{
				Position: normal.Mul(radius),
				Normal:   normal,
				UV:       math.Vec2{X: float32(seg) / float32(segments), Y: float32(ring) / float32(rings)},
				Color:    primitiveColor,
			})
		}
	}

	stride := uint32(segments + 1)
	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			cur := uint32(ring)*stride + uint32(seg)
			next := cur + stride
			indices = append(indices, cur, next, cur+1, cur+1, next, next+1)
		}
	}
	return CreateMeshFromData("Sphere", vertices, indices)
}

// CreatePlane generates a flat XZ plane facing +Y split into divisions^2 quads.
func CreatePlane(width, depth float32, divisions int) *Mesh {
	divisions = max(divisions, 1)
	var vertices []core.Vertex
	var indices []uint32

	for z := 0; z <= divisions; z++ {
		for x := 0; x <= divisions; x++ {
			u := float32(x) / float32(divisions)
			v := float32(z) / float32(divisions)
			vertices = append(vertices, core.Vertex{
				Position: math.Vec3{X: (u - 0.5) * width, Y: 0, Z: (v - 0.5) * depth},
				Normal:   math.Vec3Up,
				UV:       math.Vec2{X: u, Y: v},
				Color:    primitiveColor,
			})
		}
	}
	stride := uint32(divisions + 1)
	for z := 0; z < divisions; z++ {
		for x := 0; x < divisions; x++ {
			i := uint32(z)*stride + uint32(x)
			indices = append(indices, i, i+stride, i+1, i+1, i+stride, i+stride+1)
		}
	}
	return CreateMeshFromData("Plane", vertices, indices)
}

// CreateCylinder generates a capped cylinder along Y. A zero top radius
// gives a cone.
func CreateCylinder(bottomRadius, topRadius, height float32, segments int) *Mesh {
	segments = max(segments, 3)
	half := height / 2
	var vertices []core.Vertex
	var indices []uint32

	slope := (bottomRadius - topRadius) / height
	for i := 0; i <= segments; i++ {
		sinT, cosT := math32.Sincos(float32(i) * 2 * math32.Pi / float32(segments))
		normal := math.Vec3{X: cosT, Y: slope, Z: sinT}.Normalize()
		u := float32(i) / float32(segments)
		vertices = append(vertices,
			core.Vertex{Position: math.Vec3{X: cosT * bottomRadius, Y: -half, Z: sinT * bottomRadius}, Normal: normal, UV: math.Vec2{X: u, Y: 0}, Color: primitiveColor},
			core.Vertex{Position: math.Vec3{X: cosT * topRadius, Y: half, Z: sinT * topRadius}, Normal: normal, UV: math.Vec2{X: u, Y: 1}, Color: primitiveColor},
		)
	}
	for i := 0; i < segments; i++ {
		b := uint32(i * 2)
		indices = append(indices, b, b+1, b+2, b+2, b+1, b+3)
	}

	addCap := func(y, radius float32, normal math.Vec3, flip bool) {
		if radius <= 0 {
			return
		}
		center := uint32(len(vertices))
		vertices = append(vertices, core.Vertex{Position: math.Vec3{Y: y}, Normal: normal, UV: math.Vec2{X: 0.5, Y: 0.5}, Color: primitiveColor})
		for i := 0; i <= segments; i++ {
			sinT, cosT := math32.Sincos(float32(i) * 2 * math32.Pi / float32(segments))
			vertices = append(vertices, core.Vertex{
				Position: math.Vec3{X: cosT * radius, Y: y, Z: sinT * radius},
				Normal:   normal,
				UV:       math.Vec2{X: cosT*0.5 + 0.5, Y: sinT*0.5 + 0.5},
				Color:    primitiveColor,
			})
		}
		for i := uint32(1); i <= uint32(segments); i++ {
			if flip {
				indices = append(indices, center, center+i+1, center+i)
			} else {
				indices = append(indices, center, center+i, center+i+1)
			}
		}
	}
	addCap(-half, bottomRadius, math.Vec3Down, false)
	addCap(half, topRadius, math.Vec3Up, true)

	return CreateMeshFromData("Cylinder", vertices, indices)
}

// CreateGrid builds a flat grid of lines on the XZ plane spanning size
// metres. The centre lines mark the X (red) and Z (blue) axes.
func CreateGrid(size float32, divisions int) *Mesh {
	divisions = max(divisions, 1)
	half := size / 2
	step := size / float32(divisions)

	gray := core.Color{R: 0.35, G: 0.35, B: 0.35, A: 1}
	red := core.Color{R: 0.8, G: 0.15, B: 0.15, A: 1}
	blue := core.Color{R: 0.15, G: 0.35, B: 0.9, A: 1}

	var vertices []core.Vertex
	var indices []uint32
	line := func(a, b math.Vec3, c core.Color) {
		base := uint32(len(vertices))
		vertices = append(vertices,
			core.Vertex{Position: a, Normal: math.Vec3Up, Color: c},
			core.Vertex{Position: b, Normal: math.Vec3Up, Color: c},
		)
		indices = append(indices, base, base+1)
	}

	for i := 0; i <= divisions; i++ {
		d := -half + float32(i)*step
		zc, xc := gray, gray
		if i == divisions/2 {
			zc, xc = blue, red
		}
		line(math.Vec3{X: d, Z: -half}, math.Vec3{X: d, Z: half}, zc)
		line(math.Vec3{X: -half, Z: d}, math.Vec3{X: half, Z: d}, xc)
	}

	m := CreateMeshFromData("Grid", vertices, indices)
	m.DrawMode = DrawLines
	m.Material = &Material{Name: "Grid", Albedo: core.ColorWhite, Unlit: true}
	return m
}

// CreateWireBox builds the 12 edges of box as a line mesh.
func CreateWireBox(box AABB, color core.Color) *Mesh {
	corners := box.Corners()
	edges := []uint32{
		0, 1, 1, 3, 3, 2, 2, 0,
		4, 5, 5, 7, 7, 6, 6, 4,
		0, 4, 1, 5, 2, 6, 3, 7,
	}
	vertices := make([]core.Vertex, len(corners))
	for i, c := range corners {
		vertices[i] = core.Vertex{Position: c, Normal: math.Vec3Up, Color: color}
	}
	m := CreateMeshFromData("WireBox", vertices, edges)
	m.DrawMode = DrawLines
	m.Material = &Material{Name: "WireBox", Albedo: color, Unlit: true}
	return m
}
