package renderer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scene-viewer/core"
	"scene-viewer/math"
	"scene-viewer/scene"
)

type drawCall struct {
	name  string
	pass  scene.DrawPass
	model math.Mat4
}

type fakeBackend struct {
	hasShadowMap bool
	frames       []scene.FrameState
	shadowPasses int
	draws        []drawCall
	skies        int
	overlays     []*scene.Mesh
	wireframe    []bool
	live         []*scene.Mesh
	failOverlay  error
}

func (f *fakeBackend) DrawMesh(mesh *scene.Mesh, pass scene.DrawPass, model math.Mat4) error {
	f.draws = append(f.draws, drawCall{name: mesh.Name, pass: pass, model: model})
	return nil
}

func (f *fakeBackend) DrawSky(*scene.Sky, scene.DrawPass) error {
	f.skies++
	return nil
}

func (f *fakeBackend) BeginFrame(fs scene.FrameState) { f.frames = append(f.frames, fs) }

func (f *fakeBackend) BeginShadowPass(math.Mat4) bool {
	if f.hasShadowMap {
		f.shadowPasses++
	}
	return f.hasShadowMap
}

func (f *fakeBackend) EndShadowPass() {}

func (f *fakeBackend) DrawOverlay(mesh *scene.Mesh, _ math.Mat4) error {
	f.overlays = append(f.overlays, mesh)
	return f.failOverlay
}

func (f *fakeBackend) SetWireframe(on bool) { f.wireframe = append(f.wireframe, on) }

func (f *fakeBackend) Collect(live []*scene.Mesh) int {
	f.live = live
	return 0
}

func (f *fakeBackend) passDraws(pass scene.DrawPass) []string {
	var names []string
	for _, d := range f.draws {
		if d.pass == pass {
			names = append(names, d.name)
		}
	}
	return names
}

type fixture struct {
	scene  *scene.Scene
	cube   *scene.Node
	glass  *scene.Node
	camera *scene.OrbitCamera
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s := scene.NewDefaultScene()

	cube := scene.NewMeshNode("cube", scene.CreateCube(1))
	require.NoError(t, s.AddNode(cube))

	glassMesh := scene.CreateSphere(0.5, 8, 8)
	glassMesh.Name = "glass"
	glassMesh.Material = scene.NewMaterial("glass", core.Color{R: 1, G: 1, B: 1, A: 0.5})
	glass := scene.NewMeshNode("glass", glassMesh)
	glass.SetPosition(math.Vec3{X: 2})
	require.NoError(t, s.AddNode(glass))

	cam := scene.NewOrbitCamera(math.Vec3Zero, 10, 1.0, 1)
	s.SetCamera(&cam.Camera)
	s.Update(0)
	return fixture{scene: s, cube: cube, glass: glass, camera: cam}
}

func TestRenderRunsPassesInOrder(t *testing.T) {
	fx := newFixture(t)
	b := &fakeBackend{hasShadowMap: true}
	re := NewRenderEngine(b, nil)
	re.Shadows = true

	st, err := re.Render(fx.scene, Highlight{})
	require.NoError(t, err)

	assert.Equal(t, 1, b.shadowPasses)
	assert.Equal(t, []string{"Cube"}, b.passDraws(scene.DrawShadow))
	assert.Equal(t, []string{"Grid", "Cube"}, b.passDraws(scene.DrawSolid))
	assert.Equal(t, []string{"glass"}, b.passDraws(scene.DrawTransparency))
	assert.Equal(t, 1, b.skies)

	assert.Equal(t, 1, st.Shadow.Drawn)
	assert.Equal(t, 3, st.Solid.Drawn)
	assert.Equal(t, 1, st.Transparency.Drawn)
	assert.Equal(t, 2, st.Objects)

	require.Len(t, b.frames, 1)
	fs := b.frames[0]
	assert.True(t, fs.Shadows)
	assert.Equal(t, fx.camera.Position, fs.CameraPos)
	assert.Equal(t, fx.scene.SkyNode.Sky.Horizon, fs.Clear)
	assert.Len(t, fs.Lights, 1)
}

func TestRenderPassesWorldMatrix(t *testing.T) {
	fx := newFixture(t)
	b := &fakeBackend{}
	re := NewRenderEngine(b, nil)

	_, err := re.Render(fx.scene, Highlight{})
	require.NoError(t, err)

	for _, d := range b.draws {
		if d.name == "glass" {
			assert.Equal(t, math.Vec3{X: 2}, d.model.Translation())
			return
		}
	}
	t.Fatal("glass was not drawn")
}

func TestRenderWithoutShadowMapOrSun(t *testing.T) {
	fx := newFixture(t)

	b := &fakeBackend{}
	re := NewRenderEngine(b, nil)
	re.Shadows = true
	_, err := re.Render(fx.scene, Highlight{})
	require.NoError(t, err)
	assert.Empty(t, b.passDraws(scene.DrawShadow))
	assert.False(t, b.frames[0].Shadows)

	fx.scene.Sun.Visible = false
	b = &fakeBackend{hasShadowMap: true}
	re = NewRenderEngine(b, nil)
	re.Shadows = true
	_, err = re.Render(fx.scene, Highlight{})
	require.NoError(t, err)
	assert.Zero(t, b.shadowPasses)
}

func TestRenderSkipsHiddenNodes(t *testing.T) {
	fx := newFixture(t)
	fx.scene.SkyNode.Visible = false
	fx.cube.Visible = false

	b := &fakeBackend{}
	st, err := NewRenderEngine(b, nil).Render(fx.scene, Highlight{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Grid"}, b.passDraws(scene.DrawSolid))
	assert.Zero(t, b.skies)
	assert.NotEqual(t, fx.scene.SkyNode.Sky.Horizon, b.frames[0].Clear)
	assert.Equal(t, 1, st.Objects)
}

func TestRenderOverlay(t *testing.T) {
	fx := newFixture(t)
	b := &fakeBackend{}
	re := NewRenderEngine(b, nil)

	_, err := re.Render(fx.scene, Highlight{Hover: fx.cube, Picked: fx.glass})
	require.NoError(t, err)
	require.Len(t, b.overlays, 2)
	assert.Equal(t, HoverColor, b.overlays[0].Material.Albedo)
	assert.Equal(t, PickedColor, b.overlays[1].Material.Albedo)

	b.overlays = nil
	_, err = re.Render(fx.scene, Highlight{Hover: fx.cube, Picked: fx.cube})
	require.NoError(t, err)
	require.Len(t, b.overlays, 1)
	assert.Equal(t, PickedColor, b.overlays[0].Material.Albedo)

	b.overlays = nil
	_, err = re.Render(fx.scene, Highlight{Hover: fx.scene.Sun})
	require.NoError(t, err)
	assert.Empty(t, b.overlays, "a light has no bounds to outline")
}

func TestRenderReportsOverlayFailure(t *testing.T) {
	fx := newFixture(t)
	boom := errors.New("boom")
	b := &fakeBackend{failOverlay: boom}

	_, err := NewRenderEngine(b, nil).Render(fx.scene, Highlight{Picked: fx.cube})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"Grid", "Cube"}, b.passDraws(scene.DrawSolid))
}

func TestRenderNeedsCamera(t *testing.T) {
	_, err := NewRenderEngine(&fakeBackend{}, nil).Render(scene.NewScene(), Highlight{})
	assert.ErrorIs(t, err, ErrNoCamera)
}

func TestWireframeOnlySentOnChange(t *testing.T) {
	fx := newFixture(t)
	b := &fakeBackend{}
	re := NewRenderEngine(b, nil)

	re.Wireframe = true
	for i := 0; i < 3; i++ {
		_, err := re.Render(fx.scene, Highlight{})
		require.NoError(t, err)
	}
	re.Wireframe = false
	_, err := re.Render(fx.scene, Highlight{})
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false}, b.wireframe)
}

func TestCollectKeepsSceneAndOverlayMeshes(t *testing.T) {
	fx := newFixture(t)
	b := &fakeBackend{}
	re := NewRenderEngine(b, nil)

	re.Collect(fx.scene)
	assert.Contains(t, b.live, fx.cube.Mesh)
	assert.Contains(t, b.live, fx.glass.Mesh)
	assert.Contains(t, b.live, fx.scene.GridNode.Mesh)
	assert.Contains(t, b.live, re.hoverBox)
	assert.Contains(t, b.live, re.pickedBox)
}

func TestFPS(t *testing.T) {
	fx := newFixture(t)
	re := NewRenderEngine(&fakeBackend{}, nil)
	clock := time.Unix(0, 0)
	re.now = func() time.Time {
		now := clock
		clock = clock.Add(100 * time.Millisecond)
		return now
	}

	var st Stats
	for i := 0; i < 6; i++ {
		var err error
		st, err = re.Render(fx.scene, Highlight{})
		require.NoError(t, err)
	}
	assert.InDelta(t, 12.0, st.FPS, 1e-9)
}

func TestBoxModel(t *testing.T) {
	box := scene.NewAABB(math.Vec3{X: 1, Y: 2, Z: 3}, math.Vec3{X: 3, Y: 6, Z: 4})
	m := BoxModel(box)

	assert.True(t, m.MulVec3(math.Vec3One).ApproxEqual(box.Max, 1e-5))
	assert.True(t, m.MulVec3(math.Vec3{X: -1, Y: -1, Z: -1}).ApproxEqual(box.Min, 1e-5))

	flat := BoxModel(scene.NewAABB(math.Vec3Zero, math.Vec3{X: 1, Z: 1}))
	assert.NotZero(t, flat[1][1])
}

func TestShadowViewProjEnclosesBounds(t *testing.T) {
	box := scene.NewAABB(math.Vec3{X: -2, Y: 0, Z: -1}, math.Vec3{X: 4, Y: 3, Z: 1})
	dir := math.Vec3{X: -1, Y: -1, Z: -1}

	vp, ok := ShadowViewProj(dir, box)
	require.True(t, ok)

	c := vp.MulVec3(box.Center())
	assert.InDelta(t, 0, c.X, 1e-4)
	assert.InDelta(t, 0, c.Y, 1e-4)

	for _, corner := range box.Corners() {
		p := vp.MulVec3(corner)
		for i := 0; i < 3; i++ {
			v := p.Component(i)
			assert.True(t, v >= -1 && v <= 1, "corner %v maps outside the light volume: %v", corner, p)
		}
	}
}

func TestShadowViewProjStraightDown(t *testing.T) {
	box := scene.NewAABB(math.Vec3{X: -1, Y: -1, Z: -1}, math.Vec3One)
	vp, ok := ShadowViewProj(math.Vec3{Y: -1}, box)
	require.True(t, ok)
	p := vp.MulVec3(math.Vec3Zero)
	assert.False(t, p.X != p.X || p.Y != p.Y || p.Z != p.Z, "NaN in light matrix")
}

func TestShadowViewProjRejectsDegenerateInput(t *testing.T) {
	box := scene.NewAABB(math.Vec3Zero, math.Vec3One)
	_, ok := ShadowViewProj(math.Vec3Zero, box)
	assert.False(t, ok)
	_, ok = ShadowViewProj(math.Vec3{Y: -1}, scene.EmptyAABB())
	assert.False(t, ok)
}

func TestTitle(t *testing.T) {
	title := Title("viewer", Stats{FPS: 59.6, Objects: 2, Vertices: 24, Triangles: 12,
		Solid: scene.DrawStats{Drawn: 3, Skipped: 1}})
	assert.True(t, strings.HasPrefix(title, "viewer | 60 fps"))
	assert.Contains(t, title, "2 objects")
	assert.Contains(t, title, "drawn 3, culled 1")
}
