package editor

import (
	"errors"
	"fmt"
	"log/slog"

	"scene-viewer/core"
	"scene-viewer/math"
	"scene-viewer/scene"
)

const (
	historyDepth = 100
	queueSize    = 256
	orbitSpeed   = 0.01
	flySpeed     = 5.0
)

// FrameResult reports what one frame of input did.
type FrameResult struct {
	Hover  *scene.Node
	Picked *scene.Node
	// Queued counts the mutations this frame added to the queue.
	Queued int
	Status string
	Quit   bool
	// Save and Open ask the host to write or read the scene file.
	Save bool
	Open bool
}

// Toggles are the view switches flipped from the keyboard.
type Toggles struct {
	Wireframe   bool
	Environment bool
	Grid        bool
	GUI         bool
	// FlyMode moves the camera with WASD/QE instead of leaving it parked
	// on its orbit.
	FlyMode bool
}

// Editor turns per-frame input into camera moves and queued scene
// mutations. Frame and ApplyPending must run on the frame goroutine.
type Editor struct {
	Scene     *scene.Scene
	Camera    *scene.OrbitCamera
	Selection *Selection
	History   *History
	Queue     *Queue
	Input     *InputManager
	Logger    *slog.Logger
	Toggles   Toggles

	// Status info
	StatusText string

	queued int
}

// NewEditor initializes a new editor instance
func NewEditor(s *scene.Scene, camera *scene.OrbitCamera, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	s.SetCamera(&camera.Camera)

	return &Editor{
		Scene:      s,
		Camera:     camera,
		Selection:  NewSelection(),
		History:    NewHistory(historyDepth),
		Queue:      NewQueue(queueSize),
		Input:      NewInputManager(),
		Logger:     logger,
		Toggles:    Toggles{Environment: true, Grid: true, GUI: true},
		StatusText: "Ready",
	}
}

// Frame processes one frame of input and refreshes world matrices and
// frustum flags for the resulting camera. Structural changes are queued and
// take effect at the next ApplyPending.
func (e *Editor) Frame(in FrameInput) FrameResult {
	e.queued = 0
	e.Input.Update(in)
	if in.Width > 0 && in.Height > 0 {
		e.Camera.UpdateAspectRatio(float32(in.Width), float32(in.Height))
	}

	e.handleToggles()
	e.handleShortcuts()
	e.handleCameraControls(in.DeltaTime)
	e.handleMouseSelection(in)
	e.SyncEnvironment()
	// Culling must follow the camera this frame's input moved.
	e.Scene.Update(0)

	return FrameResult{
		Hover:  e.Selection.Hover,
		Picked: e.Selection.Picked,
		Queued: e.queued,
		Status: e.StatusText,
		Quit:   e.Input.IsKeyPressed(core.KeyEscape),
		Save:   e.Input.IsShortcut(core.KeyS),
		Open:   e.Input.IsShortcut(core.KeyO),
	}
}

// SyncEnvironment shows or hides the sky and grid to match the toggles.
func (e *Editor) SyncEnvironment() {
	if e.Scene.SkyNode != nil {
		e.Scene.SkyNode.Visible = e.Toggles.Environment
	}
	if e.Scene.GridNode != nil {
		e.Scene.GridNode.Visible = e.Toggles.Grid
	}
}

func (e *Editor) handleToggles() {
	if e.Input.CtrlDown || e.Input.AltDown || e.Input.ShiftDown {
		return
	}
	t := &e.Toggles
	// W and E double as fly keys.
	if !t.FlyMode && e.Input.IsKeyPressed(core.KeyW) {
		t.Wireframe = !t.Wireframe
	}
	if !t.FlyMode && e.Input.IsKeyPressed(core.KeyE) {
		t.Environment = !t.Environment
	}
	if e.Input.IsKeyPressed(core.KeyX) {
		t.Grid = !t.Grid
	}
	if e.Input.IsKeyPressed(core.KeyG) {
		t.GUI = !t.GUI
	}
	if e.Input.IsKeyPressed(core.KeyF) {
		t.FlyMode = !t.FlyMode
		if t.FlyMode {
			e.StatusText = "Fly camera"
		} else {
			e.StatusText = "Orbit camera"
		}
	}
}

// ApplyPending applies every queued mutation in order. Failed mutations
// leave the tree unchanged, are logged and returned joined; the rest still
// apply.
func (e *Editor) ApplyPending() error {
	var errs []error
	e.Queue.Drain(func(m Mutation) {
		var err error
		if m.Record {
			err = e.History.Do(m.Command)
		} else {
			err = m.Command.Execute()
		}
		if err != nil {
			e.Logger.Warn("mutation rejected", "mutation", m.Command.Description(), "error", err)
			e.StatusText = fmt.Sprintf("%s failed", m.Command.Description())
			errs = append(errs, err)
			return
		}
		e.Logger.Debug("mutation applied", "mutation", m.Command.Description())
	})
	e.Selection.Prune(e.Scene)
	return errors.Join(errs...)
}

func (e *Editor) push(cmd Command, record bool) {
	var err error
	if record {
		err = e.Queue.Push(cmd)
	} else {
		err = e.Queue.PushTransient(cmd)
	}
	if err != nil {
		e.Logger.Warn("dropping mutation", "mutation", cmd.Description(), "error", err)
		return
	}
	e.queued++
}

func (e *Editor) handleShortcuts() {
	// Undo: Ctrl+Z
	if e.Input.IsShortcut(core.KeyZ) {
		e.push(funcCommand{desc: "Undo", fn: func() error {
			ok, err := e.History.Undo()
			if ok && err == nil {
				e.StatusText = "Undo"
			}
			return err
		}}, false)
	}

	// Redo: Ctrl+Shift+Z or Ctrl+Y
	if e.Input.IsShiftShortcut(core.KeyZ) || e.Input.IsShortcut(core.KeyY) {
		e.push(funcCommand{desc: "Redo", fn: func() error {
			ok, err := e.History.Redo()
			if ok && err == nil {
				e.StatusText = "Redo"
			}
			return err
		}}, false)
	}

	// New scene: Ctrl+N
	if e.Input.IsShortcut(core.KeyN) {
		e.push(NewReplaceRootCommand(e.Scene, scene.NewDefaultScene().Root), true)
		e.StatusText = "New scene"
	}

	// Add primitive: 1-5
	if !e.Input.CtrlDown && !e.Input.AltDown && !e.Input.ShiftDown {
		for i, shape := range scene.Primitives {
			if i < len(primitiveKeys) && e.Input.IsKeyPressed(primitiveKeys[i]) {
				e.addPrimitive(shape)
			}
		}
	}

	picked := e.Selection.Picked

	// Delete: Delete or Backspace
	if e.Input.IsKeyPressed(core.KeyDelete) || e.Input.IsKeyPressed(core.KeyBackspace) {
		if picked != nil && picked.Parent() != nil {
			e.push(NewDeleteNodeCommand(picked), true)
			e.StatusText = "Deleted " + picked.Name
		}
	}

	// Duplicate: Shift+D
	if e.Input.ShiftDown && e.Input.IsKeyPressed(core.KeyD) && picked != nil {
		if cmd, err := NewCloneNodeCommand(picked); err != nil {
			e.Logger.Warn("clone failed", "node", picked.Name, "error", err)
		} else {
			e.push(cmd, true)
			e.StatusText = "Duplicated " + picked.Name
		}
	}

	// Look at picked: Space
	if e.Input.IsKeyPressed(core.KeySpace) && picked != nil {
		e.Camera.Target = e.Selection.Center()
		e.Camera.UpdatePosition()
		e.StatusText = "Looking at " + picked.Name
	}

	// Frame picked: Shift+F
	if e.Input.ShiftDown && e.Input.IsKeyPressed(core.KeyF) && picked != nil {
		e.Camera.Focus(picked.SubtreeBounds())
	}

	// Reset transform: Alt+G
	if e.Input.AltDown && e.Input.IsKeyPressed(core.KeyG) && picked != nil {
		e.push(NewResetTransformCommand(picked), true)
	}

	// Toggle visibility: H
	if e.Input.IsKeyPressed(core.KeyH) && picked != nil {
		e.push(NewVisibilityCommand(picked, !picked.Visible), true)
	}
}

func (e *Editor) handleCameraControls(dt float32) {
	// Scroll zoom
	if e.Input.ScrollDelta != 0 {
		e.Camera.Zoom(-float32(e.Input.ScrollDelta) * 0.5)
	}

	dx := float32(e.Input.MouseDeltaX)
	dy := float32(e.Input.MouseDeltaY)
	pan := e.Input.IsDragging(core.MouseRight) ||
		(e.Input.ShiftDown && (e.Input.IsDragging(core.MouseLeft) || e.Input.IsDragging(core.MouseMiddle)))
	orbit := !pan && (e.Input.IsDragging(core.MouseLeft) || e.Input.IsDragging(core.MouseMiddle))

	switch {
	case pan:
		e.Camera.Pan(dx, dy)
	case orbit:
		e.Camera.Orbit(-dx*orbitSpeed, -dy*orbitSpeed)
	}

	if e.Toggles.FlyMode && !e.Input.CtrlDown {
		var move math.Vec3
		forward := e.Camera.GetForward()
		right := e.Camera.GetRight()
		if e.Input.IsKeyDown(core.KeyW) {
			move = move.Add(forward)
		}
		if e.Input.IsKeyDown(core.KeyS) {
			move = move.Sub(forward)
		}
		if e.Input.IsKeyDown(core.KeyD) {
			move = move.Add(right)
		}
		if e.Input.IsKeyDown(core.KeyA) {
			move = move.Sub(right)
		}
		if e.Input.IsKeyDown(core.KeyE) {
			move = move.Add(math.Vec3Up)
		}
		if e.Input.IsKeyDown(core.KeyQ) {
			move = move.Sub(math.Vec3Up)
		}
		if move.LengthSqr() > 0 {
			e.Camera.Target = e.Camera.Target.Add(move.Normalize().Mul(flySpeed * dt))
			e.Camera.UpdatePosition()
		}
	}
}

func (e *Editor) handleMouseSelection(in FrameInput) {
	dragging := e.Input.IsDragging(core.MouseLeft) ||
		e.Input.IsDragging(core.MouseMiddle) ||
		e.Input.IsDragging(core.MouseRight)
	if !dragging {
		hit, ok := e.Scene.PickScreen(
			float32(e.Input.MouseX), float32(e.Input.MouseY),
			float32(in.Width), float32(in.Height),
		)
		if ok {
			e.Selection.Hover = hit.Node
		} else {
			e.Selection.Hover = nil
		}
	}

	if e.Input.IsClicked(core.MouseLeft) {
		target := e.Selection.Hover
		e.push(funcCommand{desc: "Select", fn: func() error {
			e.Selection.Select(target)
			if target != nil {
				e.StatusText = fmt.Sprintf("Selected: %s", target.Name)
			} else {
				e.StatusText = "Selection cleared"
			}
			return nil
		}}, false)
	}
}

var primitiveKeys = []int{core.Key1, core.Key2, core.Key3, core.Key4, core.Key5}

// addPrimitive queues a new primitive placed at the orbit target.
func (e *Editor) addPrimitive(shape string) {
	node, err := scene.NewPrimitiveNode(shape)
	if err != nil {
		e.Logger.Warn("cannot create primitive", "shape", shape, "error", err)
		return
	}
	node.SetPosition(e.Camera.Target)
	e.push(NewAddToSceneCommand(e.Scene, node), true)
	e.StatusText = "Added " + shape
}

// OverrideTexture queues tex as the albedo texture of the picked subtree,
// or of every mesh node when nothing is picked. Materials are copied, and a
// mesh also used outside the target is split off so only the target changes.
func (e *Editor) OverrideTexture(tex *scene.Texture) error {
	return e.Queue.PushTransient(funcCommand{desc: "Texture " + tex.Name, fn: func() error {
		target := e.Selection.Picked
		if target == nil {
			target = e.Scene.Root
		}

		inside := make(map[*scene.Node]bool)
		target.Traverse(func(n *scene.Node) { inside[n] = true })
		sharedOutside := make(map[*scene.Mesh]bool)
		e.Scene.Root.Traverse(func(n *scene.Node) {
			if n.Mesh != nil && !inside[n] {
				sharedOutside[n.Mesh] = true
			}
		})

		retextured := make(map[*scene.Mesh]*scene.Mesh)
		count := 0
		target.Traverse(func(n *scene.Node) {
			if n.Kind != scene.KindMesh || n.Mesh == nil {
				return
			}
			mesh, ok := retextured[n.Mesh]
			if !ok {
				mesh = n.Mesh
				if sharedOutside[mesh] {
					split := *mesh
					split.GPUData = nil
					mesh = &split
				}
				mat := scene.DefaultMaterial()
				if mesh.Material != nil {
					copied := *mesh.Material
					mat = &copied
				}
				mat.AlbedoTexture = tex
				mesh.Material = mat
				retextured[n.Mesh] = mesh
			}
			n.Mesh = mesh
			n.Passes = scene.MeshPasses(mesh)
			count++
		})
		e.StatusText = fmt.Sprintf("Texture %s on %d meshes", tex.Name, count)
		return nil
	}})
}

// AddNode queues node to be added under the scene root.
func (e *Editor) AddNode(node *scene.Node) error {
	return e.Queue.Push(NewAddToSceneCommand(e.Scene, node))
}

// ReplaceRoot queues a swap of the whole tree.
func (e *Editor) ReplaceRoot(root *scene.Node) error {
	return e.Queue.Push(NewReplaceRootCommand(e.Scene, root))
}

// QueueReload asks for every node loaded from source to be replaced by
// fresh. Safe to call from a loader goroutine.
func (e *Editor) QueueReload(source string, fresh *scene.Node) error {
	return e.Queue.PushTransient(funcCommand{desc: "Reload " + source, fn: func() error {
		var targets []*scene.Node
		e.Scene.Root.Traverse(func(n *scene.Node) {
			if n.Source == source && n.Parent() != nil {
				targets = append(targets, n)
			}
		})
		var errs []error
		for i, old := range targets {
			repl := fresh
			if i > 0 {
				var err error
				if repl, err = fresh.Clone(); err != nil {
					errs = append(errs, err)
					continue
				}
			}
			if err := NewReloadCommand(old, repl).Execute(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}})
}

// AssetSources lists the distinct file sources of nodes in the scene.
func (e *Editor) AssetSources() []string {
	seen := make(map[string]bool)
	var out []string
	e.Scene.Root.Traverse(func(n *scene.Node) {
		if n.Source == "" || seen[n.Source] {
			return
		}
		if _, primitive := scene.ParsePrimitiveSource(n.Source); primitive {
			return
		}
		seen[n.Source] = true
		out = append(out, n.Source)
	})
	return out
}

// GetStats returns scene statistics for the status bar
func (e *Editor) GetStats() (objectCount, vertexCount, faceCount int) {
	e.Scene.Root.Traverse(func(n *scene.Node) {
		if n.Kind == scene.KindMesh && n.Mesh != nil {
			objectCount++
			vertexCount += len(n.Mesh.Vertices)
			faceCount += n.Mesh.TriangleCount()
		}
	})
	return
}
