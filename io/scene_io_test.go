package io

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scene-viewer/core"
	"scene-viewer/math"
	"scene-viewer/scene"
)

func buildTestScene(t *testing.T) *scene.Scene {
	t.Helper()
	s := scene.NewDefaultScene()

	cube, err := scene.NewPrimitiveNode("Cube")
	require.NoError(t, err)
	cube.Name = "red cube"
	cube.Mesh.Material.Albedo = core.Color{R: 1, A: 1}
	cube.SetPosition(math.Vec3{X: 1, Y: 2, Z: 3})
	require.NoError(t, s.AddNode(cube))

	sphere, err := scene.NewPrimitiveNode("Sphere")
	require.NoError(t, err)
	sphere.Visible = false
	require.NoError(t, cube.AddChild(sphere))

	asset := scene.NewNode("teapot")
	asset.Kind = scene.KindMesh
	asset.Source = "/assets/teapot.obj"
	// Loaded children are not persisted.
	require.NoError(t, asset.AddChild(scene.NewMeshNode("teapot.part", scene.CreateCube(1))))
	require.NoError(t, s.AddNode(asset))
	return s
}

func fakeLoader(calls *[]string) MeshLoader {
	return func(path string) (*scene.Node, error) {
		*calls = append(*calls, path)
		n := scene.NewMeshNode("loaded", scene.CreateCube(2))
		return n, nil
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, ext := range []string{".json", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			s := buildTestScene(t)
			cam := scene.NewOrbitCamera(math.Vec3{X: 1}, 7, 1.0, 1.5)
			path := filepath.Join(t.TempDir(), "scene"+ext)

			require.NoError(t, Save(path, s, cam))

			var loads []string
			b := &Builder{LoadMesh: fakeLoader(&loads)}
			root, camData, err := b.Load(path)
			require.NoError(t, err)
			require.NotNil(t, root)

			assert.Equal(t, []string{"/assets/teapot.obj"}, loads)
			assert.Equal(t, s.Root.Count()-1, root.Count(), "asset children are reloaded, not stored")

			cube := root.Find("red cube")
			require.NotNil(t, cube)
			assert.Equal(t, scene.KindMesh, cube.Kind)
			assert.True(t, cube.LocalTransform().Translation().ApproxEqual(math.Vec3{X: 1, Y: 2, Z: 3}, 1e-6))
			require.NotNil(t, cube.Mesh)
			assert.Equal(t, float32(1), cube.Mesh.Material.Albedo.R)
			assert.Equal(t, float32(0), cube.Mesh.Material.Albedo.G)

			require.Len(t, cube.Children(), 1)
			assert.False(t, cube.Children()[0].Visible)

			teapot := root.Find("teapot")
			require.NotNil(t, teapot)
			assert.Equal(t, "/assets/teapot.obj", teapot.Source)
			assert.NotNil(t, teapot.Mesh)

			ns := scene.NewScene()
			ns.SetRoot(root)
			assert.NotNil(t, ns.Sun)
			assert.NotNil(t, ns.SkyNode)
			assert.NotNil(t, ns.GridNode)

			restored := scene.NewOrbitCamera(math.Vec3Zero, 1, 1.0, 1.5)
			ApplyCamera(camData, restored)
			assert.Equal(t, cam.Target, restored.Target)
			assert.Equal(t, cam.Distance, restored.Distance)
			assert.True(t, restored.Position.ApproxEqual(cam.Position, 1e-5))
		})
	}
}

func TestLoadMissingAssetKeepsPlaceholder(t *testing.T) {
	s := buildTestScene(t)
	path := filepath.Join(t.TempDir(), "scene.json")
	require.NoError(t, Save(path, s, nil))

	boom := errors.New("file vanished")
	b := &Builder{LoadMesh: func(string) (*scene.Node, error) { return nil, boom }}
	root, camData, err := b.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, camData)

	require.NotNil(t, root)
	teapot := root.Find("teapot")
	require.NotNil(t, teapot)
	assert.Nil(t, teapot.Mesh)
	assert.Equal(t, scene.KindMesh, teapot.Kind)
}

func TestFormatForPath(t *testing.T) {
	f, err := FormatForPath("a/b/scene.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = FormatForPath("scene.xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestUnmarshalRejectsOtherVersions(t *testing.T) {
	_, err := Unmarshal([]byte(`{"version":"99","root":{"kind":"group","name":"Root"}}`), FormatJSON)
	assert.Error(t, err)

	_, err = Unmarshal([]byte(`{"version":"1","root":{"kind":"blob","name":"Root"}}`), FormatJSON)
	assert.Error(t, err)
}

func TestYAMLIsReadable(t *testing.T) {
	s := scene.NewDefaultScene()
	data, err := Marshal(Snapshot(s, nil), FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: sky")
	assert.Contains(t, string(data), "kind: grid")

	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	f, err := ReadSceneFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Root.Children, 3)
}
