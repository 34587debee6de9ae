package scene

import "scene-viewer/math"

// Ray is a half-line. Direction is normalized.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3
}

func NewRay(origin, direction math.Vec3) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Hit is the result of a successful pick.
type Hit struct {
	Node     *Node
	Distance float32
	Point    math.Vec3
}

// RayFromScreen unprojects a pixel position into a world-space ray. x and y
// are measured from the top-left corner of a width x height viewport. The
// ray starts on the near plane and points at the matching far-plane point.
func RayFromScreen(viewProj math.Mat4, x, y, width, height float32) Ray {
	ndcX := 2*x/width - 1
	ndcY := 1 - 2*y/height

	inv := viewProj.Inverse()
	near := math.Vec4{X: ndcX, Y: ndcY, Z: -1, W: 1}.MulMat(inv).ToVec3DivW()
	far := math.Vec4{X: ndcX, Y: ndcY, Z: 1, W: 1}.MulMat(inv).ToVec3DivW()
	return NewRay(near, far.Sub(near))
}

// Pick returns the node whose world bounds the ray enters first. Nodes
// rejected by rule are skipped with their subtrees. Invalid boxes never
// match. On equal distances the node met first in pre-order wins.
func Pick(root *Node, ray Ray, rule VisibilityRule) (Hit, bool) {
	var best Hit
	found := false
	if root == nil {
		return best, false
	}

	parentWorld := math.Mat4Identity()
	if root.parent != nil {
		parentWorld = root.parent.WorldTransform()
	}

	var visit func(n *Node, parentWorld math.Mat4)
	visit = func(n *Node, parentWorld math.Mat4) {
		if !rule.Passes(n) {
			return
		}
		world := n.local.Mul(parentWorld)
		if t, ok := n.Bounds.Transform(world).IntersectRay(ray); ok {
			if !found || t < best.Distance {
				best = Hit{Node: n, Distance: t, Point: ray.At(t)}
				found = true
			}
		}
		for _, c := range n.children {
			visit(c, world)
		}
	}
	visit(root, parentWorld)
	return best, found
}
