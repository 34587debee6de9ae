package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scene-viewer/math"
)

func TestCameraLookAt(t *testing.T) {
	cam := NewCamera(1.0472, 1, 0.1, 100)
	cam.SetPosition(math.Vec3{X: 3, Y: 4, Z: 5})
	cam.LookAt(math.Vec3Zero, math.Vec3Up)

	want := math.Vec3{X: -3, Y: -4, Z: -5}.Normalize()
	assert.True(t, cam.GetForward().ApproxEqual(want, 1e-5), "forward %v", cam.GetForward())
	assert.InDelta(t, 0, cam.GetRight().Y, 1e-5, "right stays horizontal")

	// The target projects onto the centre of the screen.
	clip := math.Vec3Zero.ToVec4(1).MulMat(cam.GetViewProjectionMatrix())
	ndc := clip.ToVec3DivW()
	assert.InDelta(t, 0, ndc.X, 1e-5)
	assert.InDelta(t, 0, ndc.Y, 1e-5)

	id := cam.GetViewProjectionMatrix().Mul(cam.GetInverseViewProjection())
	assert.True(t, id.ApproxEqual(math.Mat4Identity(), 1e-3))
}

func TestCameraLookStraightDown(t *testing.T) {
	cam := NewCamera(1.0472, 1, 0.1, 100)
	cam.SetPosition(math.Vec3{Y: 10})
	cam.LookAt(math.Vec3Zero, math.Vec3Up)
	assert.True(t, cam.GetForward().ApproxEqual(math.Vec3Down, 1e-5))
}

func TestOrbitCameraFocus(t *testing.T) {
	cam := NewOrbitCamera(math.Vec3Zero, 5, 1.0472, 1)
	box := NewAABB(math.Vec3{X: 9, Y: -1, Z: -1}, math.Vec3{X: 11, Y: 1, Z: 1})

	cam.Focus(box)
	assert.Equal(t, math.Vec3{X: 10}, cam.Target)
	assert.Greater(t, cam.Distance, float32(1.7))
	assert.True(t, cam.GetForward().ApproxEqual(cam.Target.Sub(cam.Position).Normalize(), 1e-5))

	before := cam.Target
	cam.Focus(EmptyAABB())
	assert.Equal(t, before, cam.Target)
}

func TestOrbitCameraSetFromEye(t *testing.T) {
	cam := NewOrbitCamera(math.Vec3Zero, 5, 1.0472, 1)
	eye := math.Vec3{X: 1, Y: 2, Z: 8}
	dir := math.Vec3{X: 0, Y: -0.2, Z: -1}.Normalize()

	cam.SetFromEye(eye, dir)
	assert.True(t, cam.Position.ApproxEqual(eye, 1e-4), "position %v", cam.Position)
	assert.True(t, cam.GetForward().ApproxEqual(dir, 1e-4), "forward %v", cam.GetForward())
}
