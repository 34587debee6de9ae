package scene

import (
	"github.com/chewxy/math32"

	"scene-viewer/math"
)

// AABB is an axis-aligned bounding box. A box with Min greater than Max on
// any axis is invalid (empty). Invalid boxes are always treated as inside
// the view frustum and never match a pick ray.
type AABB struct {
	Min, Max math.Vec3
}

// EmptyAABB returns the invalid box that Extend and Union grow from.
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: math.Vec3{X: inf, Y: inf, Z: inf},
		Max: math.Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

func NewAABB(min, max math.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

func (b AABB) IsValid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

func (b AABB) Center() math.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) Size() math.Vec3 {
	if !b.IsValid() {
		return math.Vec3Zero
	}
	return b.Max.Sub(b.Min)
}

// Extend grows the box to contain p.
func (b AABB) Extend(p math.Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both. Invalid operands are ignored.
func (b AABB) Union(other AABB) AABB {
	switch {
	case !other.IsValid():
		return b
	case !b.IsValid():
		return other
	}
	return AABB{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

func (b AABB) Contains(p math.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Corners returns the eight corners of the box.
func (b AABB) Corners() [8]math.Vec3 {
	mn, mx := b.Min, b.Max
	return [8]math.Vec3{
		{X: mn.X, Y: mn.Y, Z: mn.Z},
		{X: mx.X, Y: mn.Y, Z: mn.Z},
		{X: mn.X, Y: mx.Y, Z: mn.Z},
		{X: mx.X, Y: mx.Y, Z: mn.Z},
		{X: mn.X, Y: mn.Y, Z: mx.Z},
		{X: mx.X, Y: mn.Y, Z: mx.Z},
		{X: mn.X, Y: mx.Y, Z: mx.Z},
		{X: mx.X, Y: mx.Y, Z: mx.Z},
	}
}

// Transform maps all eight corners through m and refits an axis-aligned box
// around them. The result is conservative under rotation. An invalid box
// stays invalid.
func (b AABB) Transform(m math.Mat4) AABB {
	if !b.IsValid() {
		return b
	}
	out := EmptyAABB()
	for _, c := range b.Corners() {
		out = out.Extend(m.MulVec3(c))
	}
	return out
}

// IntersectRay runs the slab test and returns the entry distance along the
// ray. When the origin is inside the box the distance is 0.
func (b AABB) IntersectRay(r Ray) (float32, bool) {
	if !b.IsValid() {
		return 0, false
	}
	tMin := float32(0)
	tMax := math32.Inf(1)
	for axis := 0; axis < 3; axis++ {
		o := r.Origin.Component(axis)
		d := r.Direction.Component(axis)
		lo := b.Min.Component(axis)
		hi := b.Max.Component(axis)

		if math32.Abs(d) < 1e-12 {
			// Parallel to this slab: the origin must already lie inside it.
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}

		inv := 1 / d
		t1 := (lo - o) * inv
		t2 := (hi - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math32.Max(tMin, t1)
		tMax = math32.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// BoundsFromPoints fits a box around the given positions.
func BoundsFromPoints(points []math.Vec3) AABB {
	out := EmptyAABB()
	for _, p := range points {
		out = out.Extend(p)
	}
	return out
}
