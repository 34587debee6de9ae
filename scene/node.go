package scene

import (
	"fmt"
	"sync/atomic"

	"github.com/jinzhu/copier"

	"scene-viewer/core"
	"scene-viewer/math"
)

// Node is an element of the scene graph. A node owns its children; the
// parent link is a plain back-reference used only to compose world
// transforms and to detach.
type Node struct {
	Name    string
	Kind    Kind
	ID      uint32 `copier:"-"`
	Visible bool

	// Passes selects the draw passes the node takes part in.
	Passes DrawPass

	// Bounds is the local-space box. Group, light and sky nodes leave it
	// invalid.
	Bounds AABB

	// Payloads. Which one is set depends on Kind.
	Mesh  *Mesh  `copier:"-"`
	Light *Light `copier:"-"`
	Sky   *Sky   `copier:"-"`

	// Source is the asset the node was loaded from, if any.
	Source string

	local    math.Mat4
	trs      core.Transform
	trsValid bool

	world     math.Mat4
	inFrustum bool

	parent   *Node
	children []*Node
}

var nodeIDCounter atomic.Uint32

func NewNode(name string) *Node {
	return &Node{
		Name:      name,
		Kind:      KindGroup,
		ID:        nodeIDCounter.Add(1),
		Visible:   true,
		Passes:    DrawSolid,
		Bounds:    EmptyAABB(),
		local:     math.Mat4Identity(),
		trs:       core.NewTransform(),
		trsValid:  true,
		world:     math.Mat4Identity(),
		inFrustum: true,
	}
}

func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the ordered child list. Callers must not modify it; use
// AddChild and RemoveChild.
func (n *Node) Children() []*Node {
	return n.children
}

func (n *Node) ChildCount() int {
	return len(n.children)
}

// IsAncestorOf reports whether n is other or lies on other's parent chain.
func (n *Node) IsAncestorOf(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Root walks up to the top of n's tree.
func (n *Node) Root() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// AddChild appends child to n's children. A child that already has a parent
// is moved. Adding nil, n itself, or an ancestor of n is rejected and the
// tree is left unchanged.
func (n *Node) AddChild(child *Node) error {
	if child == nil {
		return structuralError("add", n, nil, ErrNilNode)
	}
	if child.IsAncestorOf(n) {
		return structuralError("add", n, child, ErrCycle)
	}
	if child.parent != nil {
		child.parent.detach(child)
	}
	child.parent = n
	n.children = append(n.children, child)
	return nil
}

// InsertChild attaches child at position i among n's children, clamped to
// the valid range. It checks the same conditions as AddChild.
func (n *Node) InsertChild(i int, child *Node) error {
	if err := n.AddChild(child); err != nil {
		return err
	}
	last := len(n.children) - 1
	i = max(0, min(i, last))
	copy(n.children[i+1:], n.children[i:last])
	n.children[i] = child
	return nil
}

// ChildIndex returns the position of child among n's children, or -1.
func (n *Node) ChildIndex(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// RemoveChild detaches a direct child and returns it with its subtree intact.
func (n *Node) RemoveChild(child *Node) (*Node, error) {
	if child == nil {
		return nil, structuralError("remove", n, nil, ErrNilNode)
	}
	if child.parent != n || !n.detach(child) {
		return nil, structuralError("remove", n, child, ErrNotFound)
	}
	return child, nil
}

// Detach removes n from its parent, if any.
func (n *Node) Detach() {
	if n.parent != nil {
		n.parent.detach(n)
	}
}

func (n *Node) detach(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i:i], n.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// LocalTransform returns the canonical local matrix.
func (n *Node) LocalTransform() math.Mat4 {
	return n.local
}

// SetLocalTransform replaces the local matrix. The decomposed translation,
// rotation and scale are recomputed lazily by Transform.
func (n *Node) SetLocalTransform(m math.Mat4) {
	n.local = m
	n.trsValid = false
}

// Transform returns the local transform as translation, rotation and scale.
func (n *Node) Transform() core.Transform {
	if !n.trsValid {
		t, r, s := n.local.Decompose()
		n.trs = core.Transform{Position: t, Rotation: r, Scale: s}
		n.trsValid = true
	}
	return n.trs
}

func (n *Node) SetTransform(t core.Transform) {
	n.trs = t
	n.trsValid = true
	n.local = t.GetMatrix()
}

func (n *Node) SetPosition(pos math.Vec3) {
	t := n.Transform()
	t.Position = pos
	n.SetTransform(t)
}

func (n *Node) SetRotation(rot math.Quaternion) {
	t := n.Transform()
	t.Rotation = rot
	n.SetTransform(t)
}

func (n *Node) SetScale(scale math.Vec3) {
	t := n.Transform()
	t.Scale = scale
	n.SetTransform(t)
}

func (n *Node) Translate(delta math.Vec3) {
	t := n.Transform()
	t.Position = t.Position.Add(delta)
	n.SetTransform(t)
}

func (n *Node) Rotate(axis math.Vec3, angle float32) {
	t := n.Transform()
	t.Rotation = t.Rotation.Mul(math.QuaternionFromAxisAngle(axis, angle)).Normalize()
	n.SetTransform(t)
}

// ResetTransform sets the local transform back to identity.
func (n *Node) ResetTransform() {
	n.SetTransform(core.NewTransform())
}

// WorldTransform composes local transforms from the root down to n.
func (n *Node) WorldTransform() math.Mat4 {
	world := n.local
	for p := n.parent; p != nil; p = p.parent {
		world = world.Mul(p.local)
	}
	return world
}

// CachedWorld returns the world matrix written by the last Update pass.
func (n *Node) CachedWorld() math.Mat4 {
	return n.world
}

// InFrustum returns the frustum result of the last Update pass.
func (n *Node) InFrustum() bool {
	return n.inFrustum
}

func (n *Node) InPass(pass DrawPass) bool {
	return n.Passes&pass != 0
}

// WorldBounds returns the local box mapped to world space.
func (n *Node) WorldBounds() AABB {
	return n.Bounds.Transform(n.WorldTransform())
}

// SubtreeBounds is the union of the world bounds of n and all descendants.
func (n *Node) SubtreeBounds() AABB {
	return n.subtreeBounds(n.WorldTransform())
}

func (n *Node) subtreeBounds(world math.Mat4) AABB {
	out := n.Bounds.Transform(world)
	for _, c := range n.children {
		out = out.Union(c.subtreeBounds(c.local.Mul(world)))
	}
	return out
}

// Traverse visits n and its descendants in pre-order.
func (n *Node) Traverse(callback func(*Node)) {
	callback(n)
	for _, child := range n.children {
		child.Traverse(callback)
	}
}

// Find finds the first node in pre-order with the given name.
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, child := range n.children {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	total := 1
	for _, c := range n.children {
		total += c.Count()
	}
	return total
}

// Clone returns a detached deep copy of the subtree. Mesh, light and sky
// payloads are shared with the original.
func (n *Node) Clone() (*Node, error) {
	out := &Node{}
	if err := copier.Copy(out, n); err != nil {
		return nil, fmt.Errorf("clone %q: %w", n.Name, err)
	}
	out.ID = nodeIDCounter.Add(1)
	out.Mesh, out.Light, out.Sky = n.Mesh, n.Light, n.Sky
	out.local, out.trs, out.trsValid = n.local, n.trs, n.trsValid
	out.world, out.inFrustum = n.world, n.inFrustum
	out.parent = nil
	out.children = nil
	for _, c := range n.children {
		cc, err := c.Clone()
		if err != nil {
			return nil, err
		}
		if err := out.AddChild(cc); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s#%d)", n.Kind, n.Name, n.ID)
}
