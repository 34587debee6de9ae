package loader

import (
	"archive/zip"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scene-viewer/math"
	"scene-viewer/scene"
)

const quadOBJ = `# unit quad
mtllib quad.mtl
o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
usemtl red
f 1/1 2/2 3/3 4/4
`

const quadMTL = `newmtl red
Kd 1 0 0
Ns 10
d 0.5
`

const triangleGLTF = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [
    {"name": "parent", "translation": [1, 0, 0], "children": [1]},
    {"name": "tri", "mesh": 0}
  ],
  "meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]}],
  "materials": [{"name": "red", "pbrMetallicRoughness": {"baseColorFactor": [1, 0, 0, 1]}}],
  "buffers": [{"byteLength": 44, "uri": "data:application/octet-stream;base64,AAAAAAAAAAAAAAAAAACAPwAAAAAAAAAAAAAAAAAAgD8AAAAAAAABAAIAAAA="}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestLoadOBJWithMaterial(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "quad.obj", quadOBJ)
	writeFile(t, dir, "quad.mtl", quadMTL)

	root, err := New(nil).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "quad", root.Name)
	assert.Equal(t, scene.KindMesh, root.Kind)
	assert.True(t, filepath.IsAbs(root.Source))
	require.NotNil(t, root.Mesh)
	assert.Len(t, root.Mesh.Vertices, 4)
	assert.Equal(t, 2, root.Mesh.TriangleCount())
	assert.Equal(t, float32(1), root.Mesh.Material.Albedo.R)
	assert.Equal(t, float32(0.5), root.Mesh.Material.Albedo.A)
	assert.Equal(t, scene.DrawTransparency, root.Passes)
	assert.True(t, root.Bounds.Max.ApproxEqual(math.Vec3{X: 1, Y: 1}, 1e-6))

	// No normals in the file: they are generated facing +Z.
	assert.True(t, root.Mesh.Vertices[0].Normal.ApproxEqual(math.Vec3{Z: 1}, 1e-5))
}

func TestParseOBJ(t *testing.T) {
	l := New(nil)

	t.Run("negative indices and groups", func(t *testing.T) {
		src := `v 0 0 0
v 1 0 0
v 0 1 0
g first
f -3 -2 -1
g second
v 0 0 1
f 1 2 -1
`
		meshes, err := l.ParseOBJ(strings.NewReader(src), "")
		require.NoError(t, err)
		require.Len(t, meshes, 2)
		assert.Equal(t, "first", meshes[0].Name)
		assert.Equal(t, "second", meshes[1].Name)
		assert.True(t, meshes[1].Vertices[2].Position.ApproxEqual(math.Vec3{Z: 1}, 1e-6))
	})

	t.Run("material switch splits the mesh", func(t *testing.T) {
		src := `v 0 0 0
v 1 0 0
v 0 1 0
usemtl a
f 1 2 3
usemtl b
f 3 2 1
`
		meshes, err := l.ParseOBJ(strings.NewReader(src), "")
		require.NoError(t, err)
		assert.Len(t, meshes, 2)
	})

	for name, src := range map[string]string{
		"empty":        "# nothing\n",
		"out of range": "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 9\n",
		"bad number":   "v 0 zero 0\n",
		"short face":   "v 0 0 0\nf 1 1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := l.ParseOBJ(strings.NewReader(src), "")
			assert.Error(t, err)
		})
	}
}

func TestLoadGLTF(t *testing.T) {
	path := writeFile(t, t.TempDir(), "model.gltf", triangleGLTF)

	root, err := New(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "model", root.Name)
	assert.Equal(t, path, root.Source)

	tri := root.Find("tri")
	require.NotNil(t, tri)
	require.NotNil(t, tri.Mesh)
	assert.Len(t, tri.Mesh.Vertices, 3)
	assert.Equal(t, []uint32{0, 1, 2}, tri.Mesh.Indices)
	assert.Equal(t, float32(1), tri.Mesh.Material.Albedo.R)
	assert.True(t, tri.Mesh.Vertices[0].Normal.ApproxEqual(math.Vec3{Z: 1}, 1e-5))

	parent := root.Find("parent")
	require.NotNil(t, parent)
	assert.Same(t, parent, tri.Parent())
	assert.True(t, tri.WorldTransform().Translation().ApproxEqual(math.Vec3{X: 1}, 1e-6))
}

func TestLoadGLTFWithBadIndices(t *testing.T) {
	bad := strings.NewReplacer(
		`"children": [1]`, `"children": [-1, 1, 9]`,
		`"POSITION": 0`, `"POSITION": 7`,
	).Replace(triangleGLTF)
	path := writeFile(t, t.TempDir(), "bad.gltf", bad)

	var root *scene.Node
	var err error
	require.NotPanics(t, func() { root, err = New(nil).Load(path) })
	if err != nil {
		return
	}
	tri := root.Find("tri")
	require.NotNil(t, tri)
	assert.Nil(t, tri.Mesh, "primitive with a missing accessor is skipped")
	assert.Same(t, root.Find("parent"), tri.Parent())
}

func TestGLTFPrimitiveRejectsOutOfRangeIndices(t *testing.T) {
	bad := strings.Replace(triangleGLTF, "AAABAAIAAAA=", "AAABAAkAAAA=", 1)
	path := writeFile(t, t.TempDir(), "bad.gltf", bad)

	var root *scene.Node
	var err error
	require.NotPanics(t, func() { root, err = New(nil).Load(path) })
	if err == nil {
		assert.Nil(t, root.Find("tri").Mesh)
	}
}

func TestLoadBundle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.zip")
	writeZip(t, path, map[string]string{
		"model/quad.obj": quadOBJ,
		"model/quad.mtl": quadMTL,
		"readme.txt":     "hello",
	})

	format, err := Detect(path)
	require.NoError(t, err)
	assert.Equal(t, FormatZip, format)

	root, err := New(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bundle", root.Name)
	require.NotNil(t, root.Mesh)
	assert.Equal(t, float32(1), root.Mesh.Material.Albedo.R)
}

func TestLoadBundleRejectsEscapingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evil.zip")
	writeZip(t, path, map[string]string{"../evil.obj": quadOBJ})

	_, err := New(nil).Load(path)
	assert.Error(t, err)
}

func TestLoadBundleWithoutMesh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.zip")
	writeZip(t, path, map[string]string{"readme.txt": "hello"})

	_, err := New(nil).Load(path)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(filepath.Join(dir, "wrongly-named.obj"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	got, err := Detect(f.Name())
	require.NoError(t, err)
	assert.Equal(t, FormatImage, got, "content wins over the extension")

	glb := writeFile(t, dir, "model.bin", "glTF\x02\x00\x00\x00")
	got, err = Detect(glb)
	require.NoError(t, err)
	assert.Equal(t, FormatGLB, got)

	obj := writeFile(t, dir, "a.obj", quadOBJ)
	got, err = Detect(obj)
	require.NoError(t, err)
	assert.Equal(t, FormatOBJ, got)

	_, err = New(nil).Load(writeFile(t, dir, "notes.txt", "hello"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLocateUsesSearchDirs(t *testing.T) {
	assets := t.TempDir()
	writeFile(t, assets, "props/quad.obj", quadOBJ)

	l := New(nil, filepath.Join(t.TempDir(), "missing"), assets)
	got, err := l.Locate("props/quad.obj")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(assets, "props", "quad.obj"), got)

	_, err = l.Locate("props/nope.obj")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestListAssets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.obj", quadOBJ)
	writeFile(t, dir, "sub/a.GLB", "glTF")
	writeFile(t, dir, "sub/c.txt", "no")
	writeFile(t, dir, "tex.png", "no")

	got, err := ListAssets([]string{dir, filepath.Join(dir, "missing"), dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "b.obj"),
		filepath.Join(dir, "sub", "a.GLB"),
	}, got)
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "quad.obj", quadOBJ)
	other := writeFile(t, dir, "other.obj", quadOBJ)

	w, err := NewWatcher(nil)
	require.NoError(t, err)
	defer w.Close()
	w.Debounce = 10 * time.Millisecond
	require.NoError(t, w.Sync([]string{path}))
	assert.Equal(t, 1, w.Watched())

	changed := make(chan string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx, func(p string) { changed <- p }) }()

	require.NoError(t, os.WriteFile(other, []byte("# ignored"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(quadOBJ+"\n"), 0o644))

	select {
	case got := <-changed:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	require.NoError(t, w.Sync(nil))
	assert.Zero(t, w.Watched())
}
