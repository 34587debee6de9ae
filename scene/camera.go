package scene

import (
	"github.com/chewxy/math32"

	reMath "scene-viewer/math"
)

// Camera is a perspective camera looking down its local -Z axis.
type Camera struct {
	Position    reMath.Vec3
	Rotation    reMath.Quaternion
	FOV         float32
	AspectRatio float32
	NearPlane   float32
	FarPlane    float32

	// Cached matrices
	viewMatrix       reMath.Mat4
	projectionMatrix reMath.Mat4
	viewProjMatrix   reMath.Mat4
	invViewProj      reMath.Mat4
	dirty            bool
}

func NewCamera(fov, aspectRatio, nearPlane, farPlane float32) *Camera {
	return &Camera{
		Position:    reMath.Vec3Zero,
		Rotation:    reMath.QuaternionIdentity(),
		FOV:         fov,
		AspectRatio: aspectRatio,
		NearPlane:   nearPlane,
		FarPlane:    farPlane,
		dirty:       true,
	}
}

func (c *Camera) UpdateAspectRatio(width, height float32) {
	if height > 0 {
		c.AspectRatio = width / height
		c.dirty = true
	}
}

func (c *Camera) SetClipPlanes(near, far float32) {
	c.NearPlane = near
	c.FarPlane = far
	c.dirty = true
}

func (c *Camera) SetPosition(pos reMath.Vec3) {
	c.Position = pos
	c.dirty = true
}

func (c *Camera) SetRotation(rot reMath.Quaternion) {
	c.Rotation = rot.Normalize()
	c.dirty = true
}

func (c *Camera) Translate(delta reMath.Vec3) {
	c.Position = c.Position.Add(delta)
	c.dirty = true
}

func (c *Camera) Rotate(axis reMath.Vec3, angle float32) {
	rotation := reMath.QuaternionFromAxisAngle(axis, angle)
	c.Rotation = rotation.Mul(c.Rotation).Normalize()
	c.dirty = true
}

// LookAt turns the camera towards target keeping up as close to vertical as
// possible.
func (c *Camera) LookAt(target, up reMath.Vec3) {
	forward := target.Sub(c.Position)
	if forward.LengthSqr() == 0 {
		return
	}
	forward = forward.Normalize()
	right := forward.Cross(up)
	if right.LengthSqr() < 1e-12 {
		// Looking straight along up: pick any perpendicular.
		right = forward.Cross(reMath.Vec3Front)
		if right.LengthSqr() < 1e-12 {
			right = forward.Cross(reMath.Vec3Right)
		}
	}
	right = right.Normalize()
	camUp := right.Cross(forward)
	c.Rotation = reMath.QuaternionFromRows(right, camUp, forward.Negate())
	c.dirty = true
}

// SetDirection points the camera along dir.
func (c *Camera) SetDirection(dir reMath.Vec3) {
	c.LookAt(c.Position.Add(dir), reMath.Vec3Up)
}

func (c *Camera) GetViewMatrix() reMath.Mat4 {
	c.updateMatrices()
	return c.viewMatrix
}

func (c *Camera) GetProjectionMatrix() reMath.Mat4 {
	c.updateMatrices()
	return c.projectionMatrix
}

// GetViewProjectionMatrix returns view * projection, applied to row vectors.
func (c *Camera) GetViewProjectionMatrix() reMath.Mat4 {
	c.updateMatrices()
	return c.viewProjMatrix
}

func (c *Camera) GetInverseViewProjection() reMath.Mat4 {
	c.updateMatrices()
	return c.invViewProj
}

func (c *Camera) Frustum() Frustum {
	return FrustumFromVP(c.GetViewProjectionMatrix())
}

// ScreenRay unprojects a pixel of a width x height viewport.
func (c *Camera) ScreenRay(x, y, width, height float32) Ray {
	return RayFromScreen(c.GetViewProjectionMatrix(), x, y, width, height)
}

func (c *Camera) GetForward() reMath.Vec3 {
	return c.Rotation.RotateVector(reMath.Vec3Back)
}

func (c *Camera) GetRight() reMath.Vec3 {
	return c.Rotation.RotateVector(reMath.Vec3Right)
}

func (c *Camera) GetUp() reMath.Vec3 {
	return c.Rotation.RotateVector(reMath.Vec3Up)
}

func (c *Camera) updateMatrices() {
	if !c.dirty {
		return
	}
	c.viewMatrix = reMath.Mat4LookAt(c.Position, c.Position.Add(c.GetForward()), c.GetUp())
	c.projectionMatrix = reMath.Mat4Perspective(c.FOV, c.AspectRatio, c.NearPlane, c.FarPlane)
	c.viewProjMatrix = c.viewMatrix.Mul(c.projectionMatrix)
	c.invViewProj = c.viewProjMatrix.Inverse()
	c.dirty = false
}

// OrbitCamera circles a target point.
type OrbitCamera struct {
	Camera
	Target   reMath.Vec3
	Distance float32
	Yaw      float32
	Pitch    float32
}

func NewOrbitCamera(target reMath.Vec3, distance, fov, aspectRatio float32) *OrbitCamera {
	c := &OrbitCamera{
		Target:   target,
		Distance: distance,
		Yaw:      0,
		Pitch:    0.3,
	}
	c.Camera = *NewCamera(fov, aspectRatio, 0.1, 1000.0)
	c.UpdatePosition()
	return c
}

func (c *OrbitCamera) UpdatePosition() {
	c.Pitch = reMath.Clamp(c.Pitch, -1.5, 1.5)

	sinPitch, cosPitch := math32.Sincos(c.Pitch)
	sinYaw, cosYaw := math32.Sincos(c.Yaw)

	offset := reMath.Vec3{
		X: c.Distance * cosPitch * sinYaw,
		Y: c.Distance * sinPitch,
		Z: c.Distance * cosPitch * cosYaw,
	}

	c.Position = c.Target.Add(offset)
	c.LookAt(c.Target, reMath.Vec3Up)
}

func (c *OrbitCamera) Orbit(deltaYaw, deltaPitch float32) {
	c.Yaw += deltaYaw
	c.Pitch += deltaPitch
	c.UpdatePosition()
}

func (c *OrbitCamera) Zoom(delta float32) {
	c.Distance += delta
	if c.Distance < 0.1 {
		c.Distance = 0.1
	}
	c.UpdatePosition()
}

// Pan moves the target in the camera plane.
func (c *OrbitCamera) Pan(dx, dy float32) {
	speed := c.Distance * 0.002
	offset := c.GetRight().Mul(-dx * speed).Add(c.GetUp().Mul(dy * speed))
	c.Target = c.Target.Add(offset)
	c.UpdatePosition()
}

// Focus re-targets the orbit on box, backing off far enough to frame it.
func (c *OrbitCamera) Focus(box AABB) {
	if !box.IsValid() {
		return
	}
	c.Target = box.Center()
	radius := box.Size().Length() * 0.5
	if radius > 0 {
		c.Distance = radius / math32.Sin(c.FOV/2)
	}
	c.UpdatePosition()
}

// SetFromEye places the orbit so the camera sits at eye looking along dir.
func (c *OrbitCamera) SetFromEye(eye, dir reMath.Vec3) {
	dir = dir.Normalize()
	if c.Distance <= 0 {
		c.Distance = 5
	}
	c.Target = eye.Add(dir.Mul(c.Distance))
	back := dir.Negate()
	c.Pitch = math32.Asin(reMath.Clamp(back.Y, -1, 1))
	c.Yaw = math32.Atan2(back.X, back.Z)
	c.UpdatePosition()
}
