package math

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Mat4 is a row-major 4x4 matrix used with row vectors: v' = v * M.
// Translation lives in the last row.
type Mat4 [4][4]float32

func Mat4Identity() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

func Mat4Zero() Mat4 {
	return Mat4{}
}

// Mul returns m * other. With row vectors m is applied first.
func (m Mat4) Mul(other Mat4) Mat4 {
	result := Mat4Zero()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 4; k++ {
				result[i][j] += m[i][k] * other[k][j]
			}
		}
	}
	return result
}

func (m Mat4) MulVec(v Vec4) Vec4 {
	return v.MulMat(m)
}

// MulVec3 transforms a point (w = 1) and divides by w.
func (m Mat4) MulVec3(v Vec3) Vec3 {
	return m.MulVec(v.ToVec4(1.0)).ToVec3DivW()
}

// MulDir transforms a direction (w = 0).
func (m Mat4) MulDir(v Vec3) Vec3 {
	return m.MulVec(v.ToVec4(0)).ToVec3()
}

func (m Mat4) Transpose() Mat4 {
	return Mat4{
		{m[0][0], m[1][0], m[2][0], m[3][0]},
		{m[0][1], m[1][1], m[2][1], m[3][1]},
		{m[0][2], m[1][2], m[2][2], m[3][2]},
		{m[0][3], m[1][3], m[2][3], m[3][3]},
	}
}

// Column returns column i as a Vec4.
func (m Mat4) Column(i int) Vec4 {
	return Vec4{m[0][i], m[1][i], m[2][i], m[3][i]}
}

func (m Mat4) Translation() Vec3 {
	return Vec3{m[3][0], m[3][1], m[3][2]}
}

// ApproxEqual compares element-wise within eps.
func (m Mat4) ApproxEqual(other Mat4, eps float32) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math32.Abs(m[i][j]-other[i][j]) > eps {
				return false
			}
		}
	}
	return true
}

func Mat4Translation(translation Vec3) Mat4 {
	m := Mat4Identity()
	m[3][0] = translation.X
	m[3][1] = translation.Y
	m[3][2] = translation.Z
	return m
}

func Mat4Scale(scale Vec3) Mat4 {
	m := Mat4Identity()
	m[0][0] = scale.X
	m[1][1] = scale.Y
	m[2][2] = scale.Z
	return m
}

func Mat4RotationX(angle float32) Mat4 {
	s, c := math32.Sincos(angle)
	return Mat4{
		{1, 0, 0, 0},
		{0, c, s, 0},
		{0, -s, c, 0},
		{0, 0, 0, 1},
	}
}

func Mat4RotationY(angle float32) Mat4 {
	s, c := math32.Sincos(angle)
	return Mat4{
		{c, 0, -s, 0},
		{0, 1, 0, 0},
		{s, 0, c, 0},
		{0, 0, 0, 1},
	}
}

func Mat4RotationZ(angle float32) Mat4 {
	s, c := math32.Sincos(angle)
	return Mat4{
		{c, s, 0, 0},
		{-s, c, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

func Mat4RotationAxis(axis Vec3, angle float32) Mat4 {
	axis = axis.Normalize()
	s, c := math32.Sincos(angle)
	t := 1 - c

	x, y, z := axis.X, axis.Y, axis.Z

	return Mat4{
		{t*x*x + c, t*x*y + s*z, t*x*z - s*y, 0},
		{t*x*y - s*z, t*y*y + c, t*y*z + s*x, 0},
		{t*x*z + s*y, t*y*z - s*x, t*z*z + c, 0},
		{0, 0, 0, 1},
	}
}

// Mat4Perspective builds an OpenGL style projection (clip z in [-w, w]).
func Mat4Perspective(fovY, aspect, near, far float32) Mat4 {
	tanHalfFovy := math32.Tan(fovY / 2)

	m := Mat4Zero()
	m[0][0] = 1 / (aspect * tanHalfFovy)
	m[1][1] = 1 / tanHalfFovy
	m[2][2] = -(far + near) / (far - near)
	m[2][3] = -1
	m[3][2] = -(2 * far * near) / (far - near)
	return m
}

func Mat4Orthographic(left, right, bottom, top, near, far float32) Mat4 {
	m := Mat4Identity()
	m[0][0] = 2 / (right - left)
	m[1][1] = 2 / (top - bottom)
	m[2][2] = -2 / (far - near)
	m[3][0] = -(right + left) / (right - left)
	m[3][1] = -(top + bottom) / (top - bottom)
	m[3][2] = -(far + near) / (far - near)
	return m
}

func Mat4LookAt(eye, target, up Vec3) Mat4 {
	zAxis := eye.Sub(target).Normalize()
	xAxis := up.Cross(zAxis).Normalize()
	yAxis := zAxis.Cross(xAxis)

	return Mat4{
		{xAxis.X, yAxis.X, zAxis.X, 0},
		{xAxis.Y, yAxis.Y, zAxis.Y, 0},
		{xAxis.Z, yAxis.Z, zAxis.Z, 0},
		{-xAxis.Dot(eye), -yAxis.Dot(eye), -zAxis.Dot(eye), 1},
	}
}

// Mat4TRS composes scale, then rotation (euler, radians), then translation.
func Mat4TRS(translation, rotation, scale Vec3) Mat4 {
	return Mat4Scale(scale).Mul(Mat4Rotation(rotation)).Mul(Mat4Translation(translation))
}

// Mat4FromTRS is Mat4TRS with a quaternion rotation.
func Mat4FromTRS(translation Vec3, rotation Quaternion, scale Vec3) Mat4 {
	return Mat4Scale(scale).Mul(rotation.ToMat4()).Mul(Mat4Translation(translation))
}

func Mat4Rotation(euler Vec3) Mat4 {
	return Mat4RotationZ(euler.Z).Mul(Mat4RotationX(euler.X)).Mul(Mat4RotationY(euler.Y))
}

// The row-major [4][4] layout flattened is exactly mgl32's column-major
// storage of the transposed matrix, so inversion and determinant carry over
// without copying element by element.
func (m Mat4) toMgl() mgl32.Mat4 {
	var out mgl32.Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i*4+j] = m[i][j]
		}
	}
	return out
}

func mat4FromMgl(g mgl32.Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = g[i*4+j]
		}
	}
	return out
}

func (m Mat4) Determinant() float32 {
	return m.toMgl().Det()
}

// Inverse returns the inverse of m. A singular matrix yields the zero matrix;
// use Invertible to check first.
func (m Mat4) Inverse() Mat4 {
	return mat4FromMgl(m.toMgl().Inv())
}

func (m Mat4) Invertible() bool {
	return math32.Abs(m.Determinant()) > 1e-12
}

// Decompose splits an affine matrix built as S*R*T back into its parts.
// Shear is not recovered.
func (m Mat4) Decompose() (translation Vec3, rotation Quaternion, scale Vec3) {
	translation = m.Translation()

	row0 := Vec3{m[0][0], m[0][1], m[0][2]}
	row1 := Vec3{m[1][0], m[1][1], m[1][2]}
	row2 := Vec3{m[2][0], m[2][1], m[2][2]}
	scale = Vec3{row0.Length(), row1.Length(), row2.Length()}
	if row0.Cross(row1).Dot(row2) < 0 {
		scale.X = -scale.X
	}

	if scale.X == 0 || scale.Y == 0 || scale.Z == 0 {
		return translation, QuaternionIdentity(), scale
	}
	row0 = row0.Div(scale.X)
	row1 = row1.Div(scale.Y)
	row2 = row2.Div(scale.Z)
	rotation = QuaternionFromRows(row0, row1, row2)
	return translation, rotation, scale
}
