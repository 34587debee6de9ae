package scene

import "scene-viewer/math"

// Plane is the half-space Normal·p + D >= 0. Normal points into the frustum.
type Plane struct {
	Normal math.Vec3
	D      float32
}

// DistanceTo returns the signed distance from a point to the plane.
// Positive means inside.
func (p Plane) DistanceTo(pt math.Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// Frustum holds the six clip planes of a view frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumFromVP extracts the six frustum planes from a view-projection matrix
// (Gribb/Hartmann). Points are row vectors, so clip = p * vp and each clip
// coordinate is the dot product of p with a column of vp.
func FrustumFromVP(vp math.Mat4) Frustum {
	c0 := vp.Column(0)
	c1 := vp.Column(1)
	c2 := vp.Column(2)
	c3 := vp.Column(3)

	var f Frustum
	f.Planes[0] = planeFrom(c3.Add(c0))
	f.Planes[1] = planeFrom(c3.Sub(c0))
	f.Planes[2] = planeFrom(c3.Add(c1))
	f.Planes[3] = planeFrom(c3.Sub(c1))
	f.Planes[4] = planeFrom(c3.Add(c2))
	f.Planes[5] = planeFrom(c3.Sub(c2))
	return f
}

// planeFrom normalizes so DistanceTo returns world units.
func planeFrom(v math.Vec4) Plane {
	n := v.ToVec3()
	l := n.Length()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: n.Div(l), D: v.W / l}
}

// IsInsideFrustum reports whether the world-space box may be visible. A box is
// outside only when it lies entirely behind one plane, which keeps the test
// conservative: boxes straddling a corner may pass. Invalid boxes, and a nil
// frustum, always count as inside.
func IsInsideFrustum(box AABB, f *Frustum) bool {
	if f == nil || !box.IsValid() {
		return true
	}
	for i := range f.Planes {
		p := f.Planes[i]
		// Positive vertex: the corner furthest along the plane normal.
		pv := box.Max
		if p.Normal.X < 0 {
			pv.X = box.Min.X
		}
		if p.Normal.Y < 0 {
			pv.Y = box.Min.Y
		}
		if p.Normal.Z < 0 {
			pv.Z = box.Min.Z
		}
		if p.DistanceTo(pv) < 0 {
			return false
		}
	}
	return true
}
