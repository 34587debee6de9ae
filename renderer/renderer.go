package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chewxy/math32"

	"scene-viewer/core"
	"scene-viewer/math"
	"scene-viewer/scene"
)

// ErrNoCamera is returned by Render for a scene without a camera.
var ErrNoCamera = errors.New("scene has no camera")

var (
	HoverColor  = core.ColorWhite
	PickedColor = core.ColorRed
)

// Backend is the GPU side of the engine. The OpenGL renderer implements it.
type Backend interface {
	scene.Backend
	BeginFrame(f scene.FrameState)
	// BeginShadowPass returns false when the backend has no shadow map.
	BeginShadowPass(lightViewProj math.Mat4) bool
	EndShadowPass()
	DrawOverlay(mesh *scene.Mesh, model math.Mat4) error
	SetWireframe(enabled bool)
	Collect(live []*scene.Mesh) int
}

// Highlight names the nodes that get a bounding-box overlay.
type Highlight struct {
	Hover  *scene.Node
	Picked *scene.Node
}

// Stats describes the most recent frame.
type Stats struct {
	Shadow       scene.DrawStats
	Solid        scene.DrawStats
	Transparency scene.DrawStats
	Objects      int
	Vertices     int
	Triangles    int
	FPS          float64
}

// RenderEngine runs the shadow, solid and transparency passes of a scene
// against a Backend and draws the selection overlay on top.
type RenderEngine struct {
	backend Backend
	Logger  *slog.Logger

	Shadows   bool
	Wireframe bool

	hoverBox  *scene.Mesh
	pickedBox *scene.Mesh

	stats      Stats
	frames     int
	fpsStart   time.Time
	wireframed bool
	now        func() time.Time
}

func NewRenderEngine(backend Backend, logger *slog.Logger) *RenderEngine {
	if logger == nil {
		logger = slog.Default()
	}
	unit := scene.NewAABB(math.Vec3{X: -1, Y: -1, Z: -1}, math.Vec3One)
	return &RenderEngine{
		backend:   backend,
		Logger:    logger,
		hoverBox:  scene.CreateWireBox(unit, HoverColor),
		pickedBox: scene.CreateWireBox(unit, PickedColor),
		now:       time.Now,
	}
}

// Render draws one frame of s. The scene's update pass must already have
// run this frame so world matrices and frustum flags are current.
func (re *RenderEngine) Render(s *scene.Scene, hl Highlight) (Stats, error) {
	if s == nil || s.Camera == nil {
		return re.stats, ErrNoCamera
	}
	if re.Wireframe != re.wireframed {
		re.backend.SetWireframe(re.Wireframe)
		re.wireframed = re.Wireframe
	}

	fps := re.stats.FPS
	re.stats = Stats{FPS: fps}
	lights := s.Lights()

	lightVP := math.Mat4Identity()
	shadows := false
	if re.Shadows {
		if sun := firstDirectional(lights); sun != nil {
			if vp, ok := ShadowViewProj(sun.Direction, sceneBounds(s)); ok && re.backend.BeginShadowPass(vp) {
				re.stats.Shadow = s.Draw(scene.DrawShadow, re.backend)
				re.backend.EndShadowPass()
				lightVP, shadows = vp, true
			}
		}
	}

	cam := s.Camera
	re.backend.BeginFrame(scene.FrameState{
		View:          cam.GetViewMatrix(),
		Projection:    cam.GetProjectionMatrix(),
		CameraPos:     cam.Position,
		Lights:        lights,
		Ambient:       s.Ambient,
		Clear:         clearColor(s),
		LightViewProj: lightVP,
		Shadows:       shadows,
	})

	re.stats.Solid = s.Draw(scene.DrawSolid, re.backend)
	re.stats.Transparency = s.Draw(scene.DrawTransparency, re.backend)

	var errs []error
	if hl.Hover != hl.Picked {
		errs = append(errs, re.drawBox(hl.Hover, re.hoverBox))
	}
	errs = append(errs, re.drawBox(hl.Picked, re.pickedBox))

	re.countGeometry(s)
	re.tick()
	return re.stats, errors.Join(errs...)
}

// Collect frees GPU data of meshes that left the scene.
func (re *RenderEngine) Collect(s *scene.Scene) {
	live := []*scene.Mesh{re.hoverBox, re.pickedBox}
	s.Root.Traverse(func(n *scene.Node) {
		if n.Mesh != nil {
			live = append(live, n.Mesh)
		}
	})
	if freed := re.backend.Collect(live); freed > 0 {
		re.Logger.Debug("released meshes", "count", freed)
	}
}

func (re *RenderEngine) Stats() Stats {
	return re.stats
}

func (re *RenderEngine) drawBox(n *scene.Node, box *scene.Mesh) error {
	if n == nil {
		return nil
	}
	bounds := n.SubtreeBounds()
	if !bounds.IsValid() {
		return nil
	}
	if err := re.backend.DrawOverlay(box, BoxModel(bounds)); err != nil {
		return fmt.Errorf("overlay %q: %w", n.Name, err)
	}
	return nil
}

func (re *RenderEngine) countGeometry(s *scene.Scene) {
	s.Root.Traverse(func(n *scene.Node) {
		if n.Kind != scene.KindMesh || n.Mesh == nil || !s.Dispatcher.Rule.Passes(n) {
			return
		}
		re.stats.Objects++
		re.stats.Vertices += len(n.Mesh.Vertices)
		re.stats.Triangles += n.Mesh.TriangleCount()
	})
}

// tick updates FPS about twice a second.
func (re *RenderEngine) tick() {
	now := re.now()
	if re.fpsStart.IsZero() {
		re.fpsStart = now
	}
	re.frames++
	if elapsed := now.Sub(re.fpsStart); elapsed >= 500*time.Millisecond {
		re.stats.FPS = float64(re.frames) / elapsed.Seconds()
		re.frames = 0
		re.fpsStart = now
	}
}

// BoxModel maps the unit cube [-1, 1]^3 onto box.
func BoxModel(box scene.AABB) math.Mat4 {
	half := box.Size().Mul(0.5)
	// A flat box would collapse the overlay to a line.
	const minHalf = 1e-3
	half = half.Max(math.Vec3{X: minHalf, Y: minHalf, Z: minHalf})
	return math.Mat4Scale(half).Mul(math.Mat4Translation(box.Center()))
}

// ShadowViewProj builds an orthographic light volume along dir that
// encloses bounds. It fails for a zero direction or an empty box.
func ShadowViewProj(dir math.Vec3, bounds scene.AABB) (math.Mat4, bool) {
	if dir.LengthSqr() < 1e-6 || !bounds.IsValid() {
		return math.Mat4Identity(), false
	}
	dir = dir.Normalize()
	center := bounds.Center()
	radius := math32.Max(bounds.Size().Length()*0.5, 1)

	up := math.Vec3Up
	if math32.Abs(dir.Dot(up)) > 0.999 {
		up = math.Vec3{Z: 1}
	}
	eye := center.Sub(dir.Mul(radius * 2))
	view := math.Mat4LookAt(eye, center, up)
	proj := math.Mat4Orthographic(-radius, radius, -radius, radius, radius*0.5, radius*3.5)
	return view.Mul(proj), true
}

// sceneBounds is the box of the visible mesh nodes. Grid nodes are not mesh
// nodes, so their 100 m extent does not stretch the shadow volume.
func sceneBounds(s *scene.Scene) scene.AABB {
	box := scene.EmptyAABB()
	for _, n := range s.MeshNodes() {
		if n.Visible && n.Mesh != nil {
			box = box.Union(n.WorldBounds())
		}
	}
	return box
}

func firstDirectional(lights []*scene.Light) *scene.Light {
	for _, l := range lights {
		if l.Type == scene.LightTypeDirectional {
			return l
		}
	}
	return nil
}

// clearColor is the sky horizon when a visible sky exists.
func clearColor(s *scene.Scene) core.Color {
	if s.SkyNode != nil && s.SkyNode.Visible && s.SkyNode.Sky != nil {
		return s.SkyNode.Sky.Horizon
	}
	return core.Color{R: 0.1, G: 0.1, B: 0.12, A: 1}
}

// Title formats the window title line for stats.
func Title(base string, st Stats) string {
	return fmt.Sprintf("%s | %.0f fps | %d objects | %d verts | %d tris | drawn %d, culled %d",
		base, st.FPS, st.Objects, st.Vertices, st.Triangles,
		st.Solid.Drawn+st.Transparency.Drawn, st.Solid.Skipped+st.Transparency.Skipped)
}
