package editor

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scene-viewer/core"
	"scene-viewer/math"
	"scene-viewer/scene"
)

type countingCommand struct {
	value *int
	fail  bool
}

func (c countingCommand) Execute() error {
	if c.fail {
		return errors.New("nope")
	}
	*c.value++
	return nil
}
func (c countingCommand) Undo() error         { *c.value--; return nil }
func (c countingCommand) Description() string { return "count" }

func TestHistoryUndoRedo(t *testing.T) {
	h := NewHistory(2)
	v := 0
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Do(countingCommand{value: &v}))
	}
	assert.Equal(t, 3, v)

	// Depth two: the first command fell off the stack.
	for _, want := range []int{2, 1} {
		ok, err := h.Undo()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want, v)
	}
	ok, _ := h.Undo()
	assert.False(t, ok)

	ok, err := h.Redo()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	require.NoError(t, h.Do(countingCommand{value: &v}))
	assert.False(t, h.CanRedo(), "a new action clears redo")
}

func TestHistoryDoesNotRecordFailures(t *testing.T) {
	h := NewHistory(10)
	v := 0
	assert.Error(t, h.Do(countingCommand{value: &v, fail: true}))
	assert.False(t, h.CanUndo())
}

func TestQueueFIFOAndFull(t *testing.T) {
	q := NewQueue(2)
	v := 0
	require.NoError(t, q.Push(countingCommand{value: &v}))
	require.NoError(t, q.PushTransient(funcCommand{desc: "second", fn: func() error { return nil }}))
	assert.ErrorIs(t, q.Push(countingCommand{value: &v}), ErrQueueFull)

	var got []Mutation
	n := q.Drain(func(m Mutation) { got = append(got, m) })
	assert.Equal(t, 2, n)
	require.Len(t, got, 2)
	assert.True(t, got[0].Record)
	assert.False(t, got[1].Record)
	assert.Equal(t, "second", got[1].Command.Description())
}

func TestQueueConcurrentPush(t *testing.T) {
	q := NewQueue(64)
	v := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				_ = q.Push(countingCommand{value: &v})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, q.Drain(func(m Mutation) { _ = m.Command.Execute() }))
	assert.Equal(t, 32, v)
}

func TestCloneCommand(t *testing.T) {
	root := scene.NewNode("root")
	orig := scene.NewMeshNode("box", scene.CreateCube(1))
	orig.SetPosition(math.Vec3{Y: 1})
	require.NoError(t, root.AddChild(orig))

	cmd, err := NewCloneNodeCommand(orig)
	require.NoError(t, err)
	require.NoError(t, cmd.Execute())
	require.Equal(t, 2, root.ChildCount())
	assert.Equal(t, "box.copy", cmd.Clone.Name)
	assert.Same(t, orig.Mesh, cmd.Clone.Mesh)
	assert.True(t, cmd.Clone.LocalTransform().Translation().ApproxEqual(math.Vec3{X: 0.5, Y: 1}, 1e-6))

	require.NoError(t, cmd.Undo())
	assert.Equal(t, 1, root.ChildCount())
}

func TestTransformAndVisibilityCommands(t *testing.T) {
	n := scene.NewNode("n")
	n.SetPosition(math.Vec3{X: 2})

	reset := NewResetTransformCommand(n)
	require.NoError(t, reset.Execute())
	assert.True(t, n.LocalTransform().ApproxEqual(math.Mat4Identity(), 1e-6))
	require.NoError(t, reset.Undo())
	assert.True(t, n.LocalTransform().Translation().ApproxEqual(math.Vec3{X: 2}, 1e-6))

	hide := NewVisibilityCommand(n, false)
	require.NoError(t, hide.Execute())
	assert.False(t, n.Visible)
	require.NoError(t, hide.Undo())
	assert.True(t, n.Visible)
}

func TestReloadKeepsPlacement(t *testing.T) {
	root := scene.NewNode("root")
	first := scene.NewNode("first")
	old := scene.NewMeshNode("asset", scene.CreateCube(1))
	old.Source = "a.obj"
	old.Visible = false
	old.SetPosition(math.Vec3{Z: -3})
	last := scene.NewNode("last")
	for _, n := range []*scene.Node{first, old, last} {
		require.NoError(t, root.AddChild(n))
	}

	fresh := scene.NewMeshNode("whatever", scene.CreateSphere(1, 8, 4))
	cmd := NewReloadCommand(old, fresh)
	require.NoError(t, cmd.Execute())

	assert.Equal(t, []*scene.Node{first, fresh, last}, root.Children())
	assert.Equal(t, "asset", fresh.Name)
	assert.Equal(t, "a.obj", fresh.Source)
	assert.False(t, fresh.Visible)
	assert.True(t, fresh.LocalTransform().Translation().ApproxEqual(math.Vec3{Z: -3}, 1e-6))

	require.NoError(t, cmd.Undo())
	assert.Equal(t, []*scene.Node{first, old, last}, root.Children())
}

func TestInputClickVersusDrag(t *testing.T) {
	im := NewInputManager()
	in := FrameInput{Keys: map[int]bool{}}

	in.Buttons[core.MouseLeft] = true
	im.Update(in)
	assert.True(t, im.IsMousePressed(core.MouseLeft))

	in.MouseX = 2
	im.Update(in)
	assert.False(t, im.IsDragging(core.MouseLeft), "small moves stay a click")

	in.Buttons[core.MouseLeft] = false
	im.Update(in)
	assert.True(t, im.IsClicked(core.MouseLeft))

	in.Buttons[core.MouseLeft] = true
	im.Update(in)
	in.MouseX = 40
	im.Update(in)
	assert.True(t, im.IsDragging(core.MouseLeft))
	assert.InDelta(t, 38, im.MouseDeltaX, 1e-9)
	in.Buttons[core.MouseLeft] = false
	im.Update(in)
	assert.True(t, im.IsMouseReleased(core.MouseLeft))
	assert.False(t, im.IsClicked(core.MouseLeft))
}

func TestInputShortcuts(t *testing.T) {
	im := NewInputManager()
	im.Update(FrameInput{Keys: map[int]bool{core.KeyRightControl: true, core.KeyZ: true}})
	assert.True(t, im.IsShortcut(core.KeyZ))
	assert.False(t, im.IsShiftShortcut(core.KeyZ))

	// Held keys do not fire again.
	im.Update(FrameInput{Keys: map[int]bool{core.KeyRightControl: true, core.KeyZ: true}})
	assert.False(t, im.IsShortcut(core.KeyZ))
	assert.True(t, im.IsKeyDown(core.KeyZ))
}
