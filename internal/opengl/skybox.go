package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"scene-viewer/core"
	"scene-viewer/math"
	"scene-viewer/scene"
)

// Skybox draws a scene.Sky gradient on an inverted unit cube. The vertex
// shader writes z = w, so every sky fragment sits on the far plane.
type Skybox struct {
	vao  uint32
	vbo  uint32
	ebo  uint32
	prog uint32

	vpLoc      int32
	zenithLoc  int32
	horizonLoc int32
	groundLoc  int32
}

const skyVertSrc = `
#version 410 core
layout(location = 0) in vec3 inPosition;
uniform mat4 skyVP;
out vec3 dir;
void main() {
    dir = inPosition;
    gl_Position = (skyVP * vec4(inPosition, 1.0)).xyww;
}
` + "\x00"

// Above the horizon the colour eases from horizon to zenith; below it the
// ground takes over within a third of the way down.
const skyFragSrc = `
#version 410 core
in vec3 dir;
out vec4 outColor;
uniform vec3 zenith;
uniform vec3 horizon;
uniform vec3 ground;
void main() {
    float t = normalize(dir).y;
    vec3 c = t >= 0.0
        ? mix(horizon, zenith, pow(t, 0.4))
        : mix(horizon, ground, min(-t * 3.0, 1.0));
    outColor = vec4(c, 1.0);
}
` + "\x00"

var (
	skyCorners = []float32{
		-1, -1, -1, 1, -1, -1, -1, 1, -1, 1, 1, -1,
		-1, -1, 1, 1, -1, 1, -1, 1, 1, 1, 1, 1,
	}
	// Wound to face inwards.
	skyIndices = []uint32{
		0, 2, 1, 1, 2, 3, // -Z
		4, 5, 6, 5, 7, 6, // +Z
		0, 4, 2, 2, 4, 6, // -X
		1, 3, 5, 3, 7, 5, // +X
		0, 1, 4, 1, 5, 4, // -Y
		2, 6, 3, 3, 6, 7, // +Y
	}
)

// NewSkybox compiles the gradient shader and uploads the cube.
func NewSkybox() (*Skybox, error) {
	prog, err := newProgram(skyVertSrc, skyFragSrc)
	if err != nil {
		return nil, fmt.Errorf("skybox shader: %w", err)
	}

	sb := &Skybox{
		prog:       prog,
		vpLoc:      gl.GetUniformLocation(prog, gl.Str("skyVP\x00")),
		zenithLoc:  gl.GetUniformLocation(prog, gl.Str("zenith\x00")),
		horizonLoc: gl.GetUniformLocation(prog, gl.Str("horizon\x00")),
		groundLoc:  gl.GetUniformLocation(prog, gl.Str("ground\x00")),
	}

	gl.GenVertexArrays(1, &sb.vao)
	gl.GenBuffers(1, &sb.vbo)
	gl.GenBuffers(1, &sb.ebo)
	gl.BindVertexArray(sb.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, sb.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(skyCorners)*4, gl.Ptr(skyCorners), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 12, gl.PtrOffset(0))
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, sb.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(skyIndices)*4, gl.Ptr(skyIndices), gl.STATIC_DRAW)
	gl.BindVertexArray(0)

	return sb, nil
}

// Draw renders sky. skyVP is the view matrix with its translation removed,
// times the projection.
func (sb *Skybox) Draw(sky *scene.Sky, skyVP math.Mat4) {
	// Depth 1.0 must pass against the cleared buffer without being written.
	gl.DepthFunc(gl.LEQUAL)
	gl.DepthMask(false)

	gl.UseProgram(sb.prog)
	gl.UniformMatrix4fv(sb.vpLoc, 1, false, &skyVP[0][0])
	setColor3(sb.zenithLoc, sky.Zenith)
	setColor3(sb.horizonLoc, sky.Horizon)
	setColor3(sb.groundLoc, sky.Ground)

	gl.BindVertexArray(sb.vao)
	gl.DrawElements(gl.TRIANGLES, int32(len(skyIndices)), gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)

	gl.DepthMask(true)
	gl.DepthFunc(gl.LESS)
}

func setColor3(loc int32, c core.Color) {
	gl.Uniform3f(loc, c.R, c.G, c.B)
}

func (sb *Skybox) Destroy() {
	gl.DeleteVertexArrays(1, &sb.vao)
	gl.DeleteBuffers(1, &sb.vbo)
	gl.DeleteBuffers(1, &sb.ebo)
	gl.DeleteProgram(sb.prog)
}
