package editor

import (
	"fmt"

	"scene-viewer/math"
	"scene-viewer/scene"
)

// Command represents an undoable editor action
type Command interface {
	Execute() error
	Undo() error
	Description() string
}

// History manages undo/redo stacks
type History struct {
	undoStack []Command
	redoStack []Command
	maxDepth  int
}

// NewHistory creates a new history with the given max undo depth
func NewHistory(maxDepth int) *History {
	return &History{
		undoStack: make([]Command, 0, maxDepth),
		redoStack: make([]Command, 0, maxDepth),
		maxDepth:  maxDepth,
	}
}

// Do executes a command and pushes it to the undo stack. A command that
// fails is not recorded.
func (h *History) Do(cmd Command) error {
	if err := cmd.Execute(); err != nil {
		return err
	}
	h.undoStack = append(h.undoStack, cmd)
	if len(h.undoStack) > h.maxDepth {
		h.undoStack = h.undoStack[1:]
	}
	// Clear redo stack on new action
	h.redoStack = h.redoStack[:0]
	return nil
}

// Undo reverts the last action. It reports false when there was nothing to
// undo.
func (h *History) Undo() (bool, error) {
	if len(h.undoStack) == 0 {
		return false, nil
	}
	cmd := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	if err := cmd.Undo(); err != nil {
		return true, fmt.Errorf("undo %s: %w", cmd.Description(), err)
	}
	h.redoStack = append(h.redoStack, cmd)
	return true, nil
}

// Redo reapplies the last undone action
func (h *History) Redo() (bool, error) {
	if len(h.redoStack) == 0 {
		return false, nil
	}
	cmd := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	if err := cmd.Execute(); err != nil {
		return true, fmt.Errorf("redo %s: %w", cmd.Description(), err)
	}
	h.undoStack = append(h.undoStack, cmd)
	return true, nil
}

// CanUndo returns whether there are actions to undo
func (h *History) CanUndo() bool { return len(h.undoStack) > 0 }

// CanRedo returns whether there are actions to redo
func (h *History) CanRedo() bool { return len(h.redoStack) > 0 }

// Clear wipes all undo/redo history
func (h *History) Clear() {
	h.undoStack = h.undoStack[:0]
	h.redoStack = h.redoStack[:0]
}

// --- Concrete Commands ---

// TransformCommand records a local transform change on a node
type TransformCommand struct {
	Node         *scene.Node
	OldTransform math.Mat4
	NewTransform math.Mat4
	desc         string
}

func NewTransformCommand(node *scene.Node, newTransform math.Mat4, desc string) *TransformCommand {
	return &TransformCommand{
		Node:         node,
		OldTransform: node.LocalTransform(),
		NewTransform: newTransform,
		desc:         desc,
	}
}

// NewResetTransformCommand returns the node to the identity transform.
func NewResetTransformCommand(node *scene.Node) *TransformCommand {
	return NewTransformCommand(node, math.Mat4Identity(), "Reset "+node.Name)
}

func (c *TransformCommand) Execute() error {
	c.Node.SetLocalTransform(c.NewTransform)
	return nil
}

func (c *TransformCommand) Undo() error {
	c.Node.SetLocalTransform(c.OldTransform)
	return nil
}

func (c *TransformCommand) Description() string { return c.desc }

// VisibilityCommand toggles a node's visible flag
type VisibilityCommand struct {
	Node    *scene.Node
	Old     bool
	Visible bool
}

func NewVisibilityCommand(node *scene.Node, visible bool) *VisibilityCommand {
	return &VisibilityCommand{Node: node, Old: node.Visible, Visible: visible}
}

func (c *VisibilityCommand) Execute() error { c.Node.Visible = c.Visible; return nil }
func (c *VisibilityCommand) Undo() error    { c.Node.Visible = c.Old; return nil }
func (c *VisibilityCommand) Description() string {
	if c.Visible {
		return "Show " + c.Node.Name
	}
	return "Hide " + c.Node.Name
}

// AddNodeCommand records adding a node under a parent
type AddNodeCommand struct {
	Scene  *scene.Scene
	Parent *scene.Node
	Node   *scene.Node
}

func NewAddNodeCommand(parent, node *scene.Node) *AddNodeCommand {
	return &AddNodeCommand{Parent: parent, Node: node}
}

// NewAddToSceneCommand adds node under whatever the scene root is when the
// command first runs.
func NewAddToSceneCommand(s *scene.Scene, node *scene.Node) *AddNodeCommand {
	return &AddNodeCommand{Scene: s, Node: node}
}

func (c *AddNodeCommand) Execute() error {
	if c.Parent == nil && c.Scene != nil {
		c.Parent = c.Scene.Root
	}
	if c.Parent == nil {
		return fmt.Errorf("add %s: %w", c.Node.Name, scene.ErrNilNode)
	}
	return c.Parent.AddChild(c.Node)
}
func (c *AddNodeCommand) Undo() error {
	_, err := c.Parent.RemoveChild(c.Node)
	return err
}
func (c *AddNodeCommand) Description() string { return "Add " + c.Node.Name }

// DeleteNodeCommand records deleting a node. Undo puts it back at the same
// position among its siblings.
type DeleteNodeCommand struct {
	Node   *scene.Node
	Parent *scene.Node
	index  int
}

func NewDeleteNodeCommand(node *scene.Node) *DeleteNodeCommand {
	return &DeleteNodeCommand{Node: node, Parent: node.Parent(), index: -1}
}

func (c *DeleteNodeCommand) Execute() error {
	if c.Parent == nil {
		return fmt.Errorf("delete %s: %w", c.Node.Name, scene.ErrNotFound)
	}
	c.index = c.Parent.ChildIndex(c.Node)
	_, err := c.Parent.RemoveChild(c.Node)
	return err
}

func (c *DeleteNodeCommand) Undo() error {
	return c.Parent.InsertChild(c.index, c.Node)
}

func (c *DeleteNodeCommand) Description() string { return "Delete " + c.Node.Name }

// CloneNodeCommand records duplicating a node next to the original
type CloneNodeCommand struct {
	Original *scene.Node
	Clone    *scene.Node
	parent   *scene.Node
}

// NewCloneNodeCommand deep-copies original and offsets the copy slightly so
// it does not sit exactly on top of it.
func NewCloneNodeCommand(original *scene.Node) (*CloneNodeCommand, error) {
	dup, err := original.Clone()
	if err != nil {
		return nil, err
	}
	dup.Name = original.Name + ".copy"
	dup.Translate(math.Vec3{X: 0.5})
	return &CloneNodeCommand{Original: original, Clone: dup, parent: original.Parent()}, nil
}

func (c *CloneNodeCommand) Execute() error {
	if c.parent == nil {
		return fmt.Errorf("clone %s: %w", c.Original.Name, scene.ErrNotFound)
	}
	return c.parent.AddChild(c.Clone)
}

func (c *CloneNodeCommand) Undo() error {
	_, err := c.parent.RemoveChild(c.Clone)
	return err
}

func (c *CloneNodeCommand) Description() string { return "Clone " + c.Original.Name }

// ReplaceRootCommand swaps the whole scene tree, as when a new scene is
// created or loaded.
type ReplaceRootCommand struct {
	Scene   *scene.Scene
	OldRoot *scene.Node
	NewRoot *scene.Node
}

func NewReplaceRootCommand(s *scene.Scene, root *scene.Node) *ReplaceRootCommand {
	return &ReplaceRootCommand{Scene: s, NewRoot: root}
}

func (c *ReplaceRootCommand) Execute() error {
	if c.NewRoot == nil {
		return fmt.Errorf("replace root: %w", scene.ErrNilNode)
	}
	c.OldRoot = c.Scene.Root
	c.Scene.SetRoot(c.NewRoot)
	return nil
}

func (c *ReplaceRootCommand) Undo() error {
	c.Scene.SetRoot(c.OldRoot)
	return nil
}

func (c *ReplaceRootCommand) Description() string { return "Replace scene" }

// ReloadCommand swaps a node for a freshly loaded version of the same
// asset. The replacement takes over the old node's name, transform,
// visibility and position among its siblings.
type ReloadCommand struct {
	Old    *scene.Node
	New    *scene.Node
	parent *scene.Node
	index  int
}

func NewReloadCommand(old, fresh *scene.Node) *ReloadCommand {
	fresh.Name = old.Name
	fresh.Source = old.Source
	fresh.Visible = old.Visible
	fresh.SetLocalTransform(old.LocalTransform())
	return &ReloadCommand{Old: old, New: fresh, parent: old.Parent()}
}

func (c *ReloadCommand) Execute() error { return c.swap(c.Old, c.New) }
func (c *ReloadCommand) Undo() error    { return c.swap(c.New, c.Old) }

func (c *ReloadCommand) swap(out, in *scene.Node) error {
	if c.parent == nil {
		return fmt.Errorf("reload %s: %w", c.Old.Name, scene.ErrNotFound)
	}
	c.index = c.parent.ChildIndex(out)
	if _, err := c.parent.RemoveChild(out); err != nil {
		return err
	}
	return c.parent.InsertChild(c.index, in)
}

func (c *ReloadCommand) Description() string { return "Reload " + c.Old.Name }

// funcCommand adapts a plain function into a non-undoable Command.
type funcCommand struct {
	desc string
	fn   func() error
}

func (c funcCommand) Execute() error      { return c.fn() }
func (c funcCommand) Undo() error         { return nil }
func (c funcCommand) Description() string { return c.desc }
