package scene

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scene-viewer/math"
)

type drawCall struct {
	mesh  *Mesh
	pass  DrawPass
	model math.Mat4
}

type recordingBackend struct {
	calls []drawCall
	skies int
	fail  error
}

func (b *recordingBackend) DrawMesh(mesh *Mesh, pass DrawPass, model math.Mat4) error {
	if b.fail != nil {
		return b.fail
	}
	b.calls = append(b.calls, drawCall{mesh: mesh, pass: pass, model: model})
	return nil
}

func (b *recordingBackend) DrawSky(*Sky, DrawPass) error {
	b.skies++
	return nil
}

func (b *recordingBackend) meshNames() []string {
	var names []string
	for _, c := range b.calls {
		names = append(names, c.mesh.Name)
	}
	return names
}

func namedCube(name string) *Node {
	m := CreateCube(1)
	m.Name = name
	return NewMeshNode(name, m)
}

func TestDrawPassesWorldMatrix(t *testing.T) {
	root := NewNode("root")
	parent := translated("parent", 1, 2, 0)
	box := namedCube("box")
	box.SetPosition(math.Vec3{X: 4})
	require.NoError(t, root.AddChild(parent))
	require.NoError(t, parent.AddChild(box))

	Update(root, math.Mat4Identity(), nil, 0)

	b := &recordingBackend{}
	stats := Draw(root, DrawSolid, b, GateBoth)
	require.Len(t, b.calls, 1)
	assert.Equal(t, 1, stats.Drawn)
	assert.True(t, b.calls[0].model.Translation().ApproxEqual(math.Vec3{X: 5, Y: 2}, 1e-5))
}

func TestDrawVisitsChildrenOfEmptyParents(t *testing.T) {
	root := NewNode("root")
	group := NewNode("group")
	require.NoError(t, root.AddChild(group))
	require.NoError(t, group.AddChild(namedCube("a")))
	require.NoError(t, group.AddChild(namedCube("b")))

	Update(root, math.Mat4Identity(), nil, 0)

	b := &recordingBackend{}
	Draw(root, DrawSolid, b, GateBoth)
	assert.Equal(t, []string{"a", "b"}, b.meshNames())
}

func TestDrawFiltersByPass(t *testing.T) {
	root := NewNode("root")
	opaque := namedCube("opaque")
	glass := namedCube("glass")
	glass.Passes = DrawTransparency
	require.NoError(t, root.AddChild(opaque))
	require.NoError(t, root.AddChild(glass))
	Update(root, math.Mat4Identity(), nil, 0)

	for _, tt := range []struct {
		pass DrawPass
		want []string
	}{
		{DrawShadow, []string{"opaque"}},
		{DrawSolid, []string{"opaque"}},
		{DrawTransparency, []string{"glass"}},
	} {
		b := &recordingBackend{}
		Draw(root, tt.pass, b, GateBoth)
		assert.Equal(t, tt.want, b.meshNames(), tt.pass.String())
	}
}

func TestInvisibleSubtreeIsNeverDrawnOrPicked(t *testing.T) {
	root := NewNode("root")
	hidden := NewNode("hidden")
	hidden.Visible = false
	inner := namedCube("inner")
	deeper := namedCube("deeper")
	require.NoError(t, root.AddChild(hidden))
	require.NoError(t, hidden.AddChild(inner))
	require.NoError(t, inner.AddChild(deeper))

	Update(root, math.Mat4Identity(), nil, 0)

	for _, rule := range []VisibilityRule{GateBoth, GateExplicit} {
		b := &recordingBackend{}
		stats := Draw(root, DrawSolid, b, rule)
		assert.Empty(t, b.calls, rule.String())
		assert.Equal(t, 1, stats.Skipped)

		_, ok := Pick(root, NewRay(math.Vec3{Z: 10}, math.Vec3Back), rule)
		assert.False(t, ok, rule.String())
	}

	// The frustum-only rule ignores the explicit flag.
	b := &recordingBackend{}
	Draw(root, DrawSolid, b, GateFrustum)
	assert.Equal(t, []string{"inner", "deeper"}, b.meshNames())
}

func TestDrawSkipsMissingResources(t *testing.T) {
	root := NewNode("root")
	empty := NewMeshNode("empty", nil)
	empty.Passes = DrawSolid
	require.NoError(t, root.AddChild(empty))
	require.NoError(t, empty.AddChild(namedCube("child")))
	Update(root, math.Mat4Identity(), nil, 0)

	b := &recordingBackend{}
	stats := Draw(root, DrawSolid, b, GateBoth)
	assert.Equal(t, 1, stats.Missing)
	assert.Equal(t, 1, stats.Drawn)
	assert.Equal(t, []string{"child"}, b.meshNames())
}

func TestDrawCountsBackendFailures(t *testing.T) {
	root := namedCube("box")
	Update(root, math.Mat4Identity(), nil, 0)

	b := &recordingBackend{fail: errors.New("gpu lost")}
	stats := Draw(root, DrawSolid, b, GateBoth)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Drawn)
}

func TestUpdateCullsOutsideFrustum(t *testing.T) {
	cam := NewCamera(1.0472, 1, 0.1, 100)
	cam.SetPosition(math.Vec3{Z: 5})
	cam.LookAt(math.Vec3Zero, math.Vec3Up)
	f := cam.Frustum()

	root := NewNode("root")
	near := namedCube("near")
	far := namedCube("far")
	far.SetPosition(math.Vec3{X: 1000})
	require.NoError(t, root.AddChild(near))
	require.NoError(t, root.AddChild(far))

	stats := Update(root, math.Mat4Identity(), &f, 0.016)
	assert.Equal(t, 3, stats.Visited)
	assert.Equal(t, 1, stats.Culled)
	assert.True(t, root.InFrustum(), "invalid bounds count as inside")
	assert.True(t, near.InFrustum())
	assert.False(t, far.InFrustum())

	b := &recordingBackend{}
	Draw(root, DrawSolid, b, GateBoth)
	assert.Equal(t, []string{"near"}, b.meshNames())

	b = &recordingBackend{}
	Draw(root, DrawSolid, b, GateExplicit)
	assert.Equal(t, []string{"near", "far"}, b.meshNames())
}

func TestRegistryDispatch(t *testing.T) {
	const kindMarker Kind = 100

	reg := NewRegistry()
	var updated, drawn []string
	reg.Register(kindMarker, Behavior{
		Update: func(n *Node, _ math.Mat4, _ float32) { updated = append(updated, n.Name) },
		Draw: func(n *Node, _ DrawPass, _ math.Mat4, _ Backend) error {
			drawn = append(drawn, n.Name)
			return nil
		},
	})

	root := NewNode("root")
	m := NewNode("marker")
	m.Kind = kindMarker
	require.NoError(t, root.AddChild(m))

	d := &Dispatcher{Registry: reg, Rule: GateBoth, Logger: NewDispatcher(GateBoth, nil).Logger}
	d.Update(root, math.Mat4Identity(), nil, 0)
	stats := d.Draw(root, DrawSolid, &recordingBackend{})

	assert.Equal(t, []string{"marker"}, updated)
	assert.Equal(t, []string{"marker"}, drawn)
	assert.Equal(t, 1, stats.Drawn)
}

func TestLightFollowsNode(t *testing.T) {
	s := NewDefaultScene()
	s.Update(0)

	require.NotNil(t, s.Sun.Light)
	assert.True(t, s.Sun.Light.Position.ApproxEqual(math.Vec3{X: 10, Y: 10, Z: 10}, 1e-5))
	assert.True(t, s.Sun.Light.Direction.ApproxEqual(math.Vec3{X: -1, Y: -1, Z: -1}.Normalize(), 1e-5))
	assert.Len(t, s.Lights(), 1)
}

func TestDefaultSceneDraw(t *testing.T) {
	s := NewDefaultScene()
	s.SetCamera(NewCamera(1.0472, 1, 0.1, 100))
	s.Update(0)

	b := &recordingBackend{}
	stats := s.Draw(DrawSolid, b)
	assert.Equal(t, 1, b.skies)
	assert.Equal(t, []string{"Grid"}, b.meshNames())
	assert.Equal(t, 2, stats.Drawn)

	b = &recordingBackend{}
	s.Draw(DrawShadow, b)
	assert.Empty(t, b.calls)
}

func TestVisibilityRuleParse(t *testing.T) {
	for _, r := range []VisibilityRule{GateBoth, GateExplicit, GateFrustum} {
		got, err := ParseVisibilityRule(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	_, err := ParseVisibilityRule("sometimes")
	assert.Error(t, err)
}
