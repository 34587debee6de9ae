package loader

import (
	"fmt"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"scene-viewer/core"
	"scene-viewer/math"
	"scene-viewer/scene"
)

// loadGLTF opens a .glb or .gltf file and converts its default scene into a
// node tree. Mesh geometry, base-colour materials and textures and the node
// hierarchy are populated; metallic-roughness is approximated with the
// Blinn-Phong parameters the renderer uses.
func (l *Loader) loadGLTF(path string) (*scene.Node, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	dir := filepath.Dir(path)
	log := l.Logger.With("path", path)

	// ── 1. Textures ───────────────────────────────────────────────────────────
	texCache := make([]*scene.Texture, len(doc.Textures))
	for i, gt := range doc.Textures {
		if gt.Source == nil || !inRange(*gt.Source, len(doc.Images)) {
			continue
		}
		img := doc.Images[*gt.Source]

		var tex *scene.Texture
		switch {
		case img.BufferView != nil && !inRange(*img.BufferView, len(doc.BufferViews)):
			log.Warn("gltf image buffer view missing", "image", *gt.Source)
			continue
		case img.BufferView != nil:
			// Binary GLB: image data lives in a buffer view
			raw, err := modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
			if err != nil {
				log.Warn("gltf image buffer view unreadable", "image", *gt.Source, "error", err)
				continue
			}
			name := img.Name
			if name == "" {
				name = fmt.Sprintf("gltf_img_%d", *gt.Source)
			}
			tex, err = scene.DecodeTextureBytes(name, raw)
			if err != nil {
				log.Warn("gltf image undecodable", "image", *gt.Source, "error", err)
				continue
			}
		case img.URI != "" && !img.IsEmbeddedResource():
			tex, err = scene.LoadTexture(filepath.Join(dir, img.URI))
			if err != nil {
				log.Warn("gltf image unavailable", "image", *gt.Source, "uri", img.URI, "error", err)
				continue
			}
		}
		texCache[i] = tex
	}

	// ── 2. Materials ─────────────────────────────────────────────────────────
	matCache := make([]*scene.Material, len(doc.Materials))
	for i, gm := range doc.Materials {
		mat := scene.DefaultMaterial()
		mat.Name = gm.Name

		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			mat.Albedo = core.Color{
				R: float32(cf[0]), G: float32(cf[1]),
				B: float32(cf[2]), A: float32(cf[3]),
			}
			if pbr.BaseColorTexture != nil {
				idx := pbr.BaseColorTexture.Index
				if inRange(idx, len(texCache)) && texCache[idx] != nil {
					mat.AlbedoTexture = texCache[idx]
				}
			}
			// Smooth surfaces get a tight highlight, metals a bright one.
			roughness := float32(pbr.RoughnessFactorOrDefault())
			metallic := float32(pbr.MetallicFactorOrDefault())
			mat.Shininess = (1.0-roughness)*(1.0-roughness)*128.0 + 1.0
			s := metallic * 0.7
			mat.Specular = core.Color{R: s, G: s, B: s, A: 1}
		}
		if gm.AlphaMode == gltf.AlphaOpaque {
			mat.Albedo.A = 1
		}
		matCache[i] = mat
	}

	// ── 3. Mesh primitives ────────────────────────────────────────────────────
	meshPrims := make([][]*scene.Mesh, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			m, err := loadGLTFPrimitive(doc, gm.Name, pi, prim)
			if err != nil {
				log.Warn("gltf primitive skipped", "mesh", mi, "primitive", pi, "error", err)
				continue
			}
			if prim.Material != nil && inRange(*prim.Material, len(matCache)) {
				m.Material = matCache[*prim.Material]
			} else {
				m.Material = scene.DefaultMaterial()
			}
			meshPrims[mi] = append(meshPrims[mi], m)
		}
	}

	// ── 4. Nodes ──────────────────────────────────────────────────────────────
	nodes := make([]*scene.Node, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}

		var n *scene.Node
		var prims []*scene.Mesh
		if gn.Mesh != nil && inRange(*gn.Mesh, len(meshPrims)) {
			prims = meshPrims[*gn.Mesh]
		}
		switch len(prims) {
		case 0:
			n = scene.NewNode(name)
		case 1:
			n = scene.NewMeshNode(name, prims[0])
		default:
			// Multiple primitives → one child node per primitive
			n = scene.NewNode(name)
			for pi, p := range prims {
				_ = n.AddChild(scene.NewMeshNode(fmt.Sprintf("%s_prim%d", name, pi), p))
			}
		}

		t := gn.TranslationOrDefault()
		sc := gn.ScaleOrDefault()
		r := gn.RotationOrDefault() // [x, y, z, w]
		n.SetTransform(core.Transform{
			Position: math.Vec3{X: float32(t[0]), Y: float32(t[1]), Z: float32(t[2])},
			Rotation: math.Quaternion{X: float32(r[0]), Y: float32(r[1]), Z: float32(r[2]), W: float32(r[3])},
			Scale:    math.Vec3{X: float32(sc[0]), Y: float32(sc[1]), Z: float32(sc[2])},
		})
		nodes[i] = n
	}

	// Wire up parent-child relationships. A malformed file that loops is
	// rejected by AddChild and the offending edge dropped.
	hasParent := make([]bool, len(nodes))
	for i, gn := range doc.Nodes {
		for _, childIdx := range gn.Children {
			if !inRange(childIdx, len(nodes)) || childIdx == i || hasParent[childIdx] {
				log.Warn("gltf node edge dropped", "parent", i, "child", childIdx)
				continue
			}
			if err := nodes[i].AddChild(nodes[childIdx]); err != nil {
				log.Warn("gltf node edge dropped", "parent", i, "child", childIdx, "error", err)
				continue
			}
			hasParent[childIdx] = true
		}
	}

	// ── 5. Root nodes ─────────────────────────────────────────────────────────
	var roots []*scene.Node
	if doc.Scene != nil && inRange(*doc.Scene, len(doc.Scenes)) {
		for _, rootIdx := range doc.Scenes[*doc.Scene].Nodes {
			if inRange(rootIdx, len(nodes)) && !hasParent[rootIdx] {
				roots = append(roots, nodes[rootIdx])
			}
		}
	} else {
		for i, n := range nodes {
			if !hasParent[i] {
				roots = append(roots, n)
			}
		}
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("gltf %q: no nodes", path)
	}

	root := scene.NewNode(baseName(path))
	for _, n := range roots {
		_ = root.AddChild(n)
	}
	return root, nil
}

// loadGLTFPrimitive converts one glTF mesh primitive into a scene.Mesh.
func loadGLTFPrimitive(doc *gltf.Document, meshName string, primIdx int, prim *gltf.Primitive) (*scene.Mesh, error) {
	name := fmt.Sprintf("%s_p%d", meshName, primIdx)
	if meshName == "" {
		name = fmt.Sprintf("prim_%d", primIdx)
	}

	// Positions are required
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	posAcc, err := accessor(doc, posIdx)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	positions, err := modeler.ReadPosition(doc, posAcc, nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	var uvs [][2]float32

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if acc, err := accessor(doc, idx); err == nil {
			normals, _ = modeler.ReadNormal(doc, acc, nil)
		}
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if acc, err := accessor(doc, idx); err == nil {
			uvs, _ = modeler.ReadTextureCoord(doc, acc, nil)
		}
	}

	verts := make([]core.Vertex, len(positions))
	for i, p := range positions {
		v := core.Vertex{
			Position: math.Vec3{X: p[0], Y: p[1], Z: p[2]},
			Normal:   math.Vec3Up,
			Color:    core.ColorWhite,
		}
		if i < len(normals) {
			n := normals[i]
			v.Normal = math.Vec3{X: n[0], Y: n[1], Z: n[2]}
		}
		if i < len(uvs) {
			v.UV = math.Vec2{X: uvs[i][0], Y: uvs[i][1]}
		}
		verts[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		acc, err := accessor(doc, *prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		indices, err = modeler.ReadIndices(doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		for _, ix := range indices {
			if int(ix) >= len(verts) {
				return nil, fmt.Errorf("indices: vertex %d of %d", ix, len(verts))
			}
		}
	}

	mesh := scene.CreateMeshFromData(name, verts, indices)
	if len(normals) == 0 {
		mesh.ComputeFlatNormals()
	}
	return mesh, nil
}

func inRange(i, n int) bool { return i >= 0 && i < n }

func accessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if !inRange(idx, len(doc.Accessors)) {
		return nil, fmt.Errorf("accessor %d of %d", idx, len(doc.Accessors))
	}
	return doc.Accessors[idx], nil
}
