package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chewxy/math32"

	"scene-viewer/core"
	"scene-viewer/math"
	"scene-viewer/scene"
)

// objFace is an already-triangulated face (three vertex references).
type objFace struct {
	vIdx, vtIdx, vnIdx [3]int // 0-based position / UV / normal indices (-1 = absent)
}

type objObject struct {
	name    string
	matName string
	faces   []objFace
}

func (l *Loader) loadOBJ(path string) (*scene.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj %q: %w", path, err)
	}
	defer f.Close()

	meshes, err := l.ParseOBJ(f, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("obj %q: %w", path, err)
	}
	return wrap(baseName(path), meshes), nil
}

// ParseOBJ reads Wavefront OBJ text and returns one mesh per object or
// group. Material libraries and textures are resolved relative to dir.
func (l *Loader) ParseOBJ(r io.Reader, dir string) ([]*scene.Mesh, error) {
	var positions []math.Vec3
	var normals []math.Vec3
	var uvs []math.Vec2

	materials := map[string]*scene.Material{}

	var objects []objObject
	cur := &objObject{name: "default"}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v":
			v, err := parseVec3(fields)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			positions = append(positions, v)

		case "vn":
			v, err := parseVec3(fields)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			normals = append(normals, v)

		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: texture coordinate needs 2 components", lineNo)
			}
			u, err1 := strconv.ParseFloat(fields[1], 32)
			v, err2 := strconv.ParseFloat(fields[2], 32)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("line %d: bad texture coordinate", lineNo)
			}
			uvs = append(uvs, math.Vec2{X: float32(u), Y: float32(v)})

		case "o", "g":
			if len(cur.faces) > 0 {
				objects = append(objects, *cur)
			}
			name := "default"
			if len(fields) > 1 {
				name = fields[1]
			}
			cur = &objObject{name: name, matName: cur.matName}

		case "usemtl":
			if len(fields) > 1 {
				if len(cur.faces) > 0 && cur.matName != fields[1] {
					// A material switch mid-object starts a new mesh.
					objects = append(objects, *cur)
					cur = &objObject{name: cur.name + "_" + fields[1]}
				}
				cur.matName = fields[1]
			}

		case "mtllib":
			if len(fields) > 1 {
				mtlPath := filepath.Join(dir, fields[1])
				loaded, err := l.loadMTL(mtlPath, dir)
				if err != nil {
					l.Logger.Warn("material library unavailable", "path", mtlPath, "error", err)
					continue
				}
				for k, v := range loaded {
					materials[k] = v
				}
			}

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", lineNo)
			}
			fverts := make([]faceVertex, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				fv, err := parseFaceVertex(tok, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				fverts = append(fverts, fv)
			}
			// Fan triangulation: 0-1-2, 0-2-3, 0-3-4, ...
			for i := 1; i+1 < len(fverts); i++ {
				f0, f1, f2 := fverts[0], fverts[i], fverts[i+1]
				cur.faces = append(cur.faces, objFace{
					vIdx:  [3]int{f0.v, f1.v, f2.v},
					vtIdx: [3]int{f0.vt, f1.vt, f2.vt},
					vnIdx: [3]int{f0.vn, f1.vn, f2.vn},
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan obj: %w", err)
	}

	if len(cur.faces) > 0 {
		objects = append(objects, *cur)
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("no geometry found")
	}

	meshes := make([]*scene.Mesh, 0, len(objects))
	for _, obj := range objects {
		mesh := buildMeshFromOBJ(obj.name, obj.faces, positions, normals, uvs)
		if mat, ok := materials[obj.matName]; ok {
			mesh.Material = mat
		} else {
			mesh.Material = scene.DefaultMaterial()
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

func parseVec3(fields []string) (math.Vec3, error) {
	if len(fields) < 4 {
		return math.Vec3{}, fmt.Errorf("%s needs 3 components", fields[0])
	}
	var c [3]float32
	for i := range c {
		f, err := strconv.ParseFloat(fields[i+1], 32)
		if err != nil {
			return math.Vec3{}, fmt.Errorf("bad %s component %q", fields[0], fields[i+1])
		}
		c[i] = float32(f)
	}
	return math.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}

type faceVertex struct{ v, vt, vn int }

// parseFaceVertex parses one face vertex token: "v", "v/vt", "v//vn",
// "v/vt/vn". OBJ indices are 1-based; negative ones count back from the
// end of the pool read so far. Absent references are -1.
func parseFaceVertex(tok string, nPos, nUV, nNorm int) (faceVertex, error) {
	parseIdx := func(s string, count int) (int, error) {
		if s == "" {
			return -1, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("bad face index %q", s)
		}
		switch {
		case n > 0 && n <= count:
			return n - 1, nil
		case n < 0 && -n <= count:
			return count + n, nil
		}
		return 0, fmt.Errorf("face index %d out of range", n)
	}

	parts := strings.Split(tok, "/")
	res := faceVertex{v: -1, vt: -1, vn: -1}
	var err error
	if res.v, err = parseIdx(parts[0], nPos); err != nil {
		return res, err
	}
	if res.v < 0 {
		return res, fmt.Errorf("face vertex %q has no position", tok)
	}
	if len(parts) > 1 {
		if res.vt, err = parseIdx(parts[1], nUV); err != nil {
			return res, err
		}
	}
	if len(parts) > 2 {
		if res.vn, err = parseIdx(parts[2], nNorm); err != nil {
			return res, err
		}
	}
	return res, nil
}

// buildMeshFromOBJ converts parsed face data into a deduplicated Mesh.
func buildMeshFromOBJ(
	name string,
	faces []objFace,
	positions []math.Vec3,
	normals []math.Vec3,
	uvs []math.Vec2,
) *scene.Mesh {
	vertMap := map[faceVertex]uint32{}
	var vertices []core.Vertex
	var indices []uint32

	missingNormals := false
	for _, face := range faces {
		for c := 0; c < 3; c++ {
			k := faceVertex{face.vIdx[c], face.vtIdx[c], face.vnIdx[c]}
			if idx, ok := vertMap[k]; ok {
				indices = append(indices, idx)
				continue
			}
			v := core.Vertex{
				Position: positions[k.v],
				Normal:   math.Vec3Up,
				Color:    core.ColorWhite,
			}
			if k.vn >= 0 {
				v.Normal = normals[k.vn]
			} else {
				missingNormals = true
			}
			if k.vt >= 0 {
				v.UV = uvs[k.vt]
			}
			idx := uint32(len(vertices))
			vertices = append(vertices, v)
			vertMap[k] = idx
			indices = append(indices, idx)
		}
	}

	if missingNormals {
		generateSmoothNormals(vertices, indices)
	}
	return scene.CreateMeshFromData(name, vertices, indices)
}

// generateSmoothNormals computes area-weighted vertex normals.
func generateSmoothNormals(vertices []core.Vertex, indices []uint32) {
	accum := make([]math.Vec3, len(vertices))

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		v0 := vertices[i0].Position
		v1 := vertices[i1].Position
		v2 := vertices[i2].Position
		n := v1.Sub(v0).Cross(v2.Sub(v0))
		accum[i0] = accum[i0].Add(n)
		accum[i1] = accum[i1].Add(n)
		accum[i2] = accum[i2].Add(n)
	}
	for i := range vertices {
		if accum[i].LengthSqr() > 0 {
			vertices[i].Normal = accum[i].Normalize()
		}
	}
}

// ── MTL loader ───────────────────────────────────────────────────────────────

func (l *Loader) loadMTL(path, dir string) (map[string]*scene.Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mats := map[string]*scene.Material{}
	var cur *scene.Material

	color := func(fields []string) (core.Color, bool) {
		if len(fields) < 4 {
			return core.Color{}, false
		}
		r, _ := strconv.ParseFloat(fields[1], 32)
		g, _ := strconv.ParseFloat(fields[2], 32)
		b, _ := strconv.ParseFloat(fields[3], 32)
		return core.Color{R: float32(r), G: float32(g), B: float32(b), A: 1}, true
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		if fields[0] == "newmtl" {
			if len(fields) > 1 {
				cur = scene.DefaultMaterial()
				cur.Name = fields[1]
				mats[fields[1]] = cur
			}
			continue
		}
		if cur == nil {
			continue
		}

		switch fields[0] {
		case "Kd":
			if c, ok := color(fields); ok {
				c.A = cur.Albedo.A
				cur.Albedo = c
			}
		case "Ks":
			if c, ok := color(fields); ok {
				cur.Specular = c
			}
		case "Ns":
			if len(fields) >= 2 {
				ns, _ := strconv.ParseFloat(fields[1], 32)
				cur.Shininess = math32.Max(1, float32(ns))
			}
		case "d":
			if len(fields) >= 2 {
				d, _ := strconv.ParseFloat(fields[1], 32)
				cur.Albedo.A = math.Clamp(float32(d), 0, 1)
			}
		case "map_Kd":
			if len(fields) >= 2 {
				texPath := filepath.Join(dir, fields[len(fields)-1])
				tex, err := scene.LoadTexture(texPath)
				if err != nil {
					l.Logger.Warn("texture unavailable", "path", texPath, "error", err)
					continue
				}
				cur.AlbedoTexture = tex
			}
		}
	}

	return mats, scanner.Err()
}
