package opengl

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"scene-viewer/core"
	"scene-viewer/math"
	"scene-viewer/scene"
)

const maxPointLights = 8

// GPUMesh holds the OpenGL buffer objects for an uploaded mesh.
type GPUMesh struct {
	VAO        uint32
	VBO        uint32
	EBO        uint32
	IndexCount int32
	HasIndices bool
}

// Renderer is the OpenGL backend. It satisfies scene.Backend: the draw pass
// hands it meshes and skies with their world matrices.
type Renderer struct {
	Logger *slog.Logger

	program uint32

	mvpLoc           int32
	modelLoc         int32
	lightViewProjLoc int32

	lightDirLoc       int32
	lightColorLoc     int32
	lightIntensityLoc int32
	ambientColorLoc   int32
	cameraPosLoc      int32

	pointLightCountLoc     int32
	pointLightPosLoc       [maxPointLights]int32
	pointLightColorLoc     [maxPointLights]int32
	pointLightIntensityLoc [maxPointLights]int32

	matAlbedoLoc    int32
	matSpecularLoc  int32
	matShininessLoc int32
	albedoTexLoc    int32
	hasTextureLoc   int32
	unlitLoc        int32

	shadowMapLoc  int32
	hasShadowsLoc int32

	shadowProg        uint32
	shadowLightMVPLoc int32
	shadowMap         *ShadowMap

	skybox *Skybox

	viewportW, viewportH int32
	wireframe            bool

	frame     scene.FrameState
	gpuMeshes map[*scene.Mesh]*GPUMesh
	textures  map[*scene.Texture]bool
}

var _ scene.Backend = (*Renderer)(nil)

const vertSrc = `
#version 410 core
layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec3 inNormal;
layout(location = 2) in vec2 inUV;
layout(location = 3) in vec4 inColor;

uniform mat4 mvp;
uniform mat4 model;
uniform mat4 lightViewProj;

out vec4 fragColor;
out vec3 fragNormal;
out vec2 fragUV;
out vec3 fragWorldPos;
out vec4 fragLightSpacePos;

void main() {
    vec4 worldPos     = model * vec4(inPosition, 1.0);
    fragLightSpacePos = lightViewProj * worldPos;
    gl_Position       = mvp * vec4(inPosition, 1.0);
    fragColor         = inColor;
    fragNormal        = mat3(transpose(inverse(model))) * inNormal;
    fragUV            = inUV;
    fragWorldPos      = worldPos.xyz;
}
` + "\x00"

// Blinn-Phong with one directional light, a handful of point lights and a
// PCF shadow lookup for the directional light.
const fragSrc = `
#version 410 core
in vec4 fragColor;
in vec3 fragNormal;
in vec2 fragUV;
in vec3 fragWorldPos;
in vec4 fragLightSpacePos;

out vec4 outColor;

uniform vec3  lightDir;
uniform vec3  lightColor;
uniform float lightIntensity;
uniform vec3  ambientColor;

#define MAX_POINT_LIGHTS 8
uniform int   pointLightCount;
uniform vec3  pointLightPos[MAX_POINT_LIGHTS];
uniform vec3  pointLightColor[MAX_POINT_LIGHTS];
uniform float pointLightIntensity[MAX_POINT_LIGHTS];

uniform vec3 cameraPos;

uniform vec4  matAlbedo;
uniform vec3  matSpecular;
uniform float matShininess;

uniform sampler2D albedoTex;
uniform bool      hasTexture;
uniform bool      unlit;

uniform sampler2DShadow shadowMap;
uniform bool            hasShadows;

float calcShadow() {
    vec3 p = fragLightSpacePos.xyz / fragLightSpacePos.w;
    p = p * 0.5 + 0.5;
    if (p.z > 1.0) return 1.0;
    float shadow = 0.0;
    float ts = 1.0 / float(textureSize(shadowMap, 0).x);
    for (int x = -1; x <= 1; x++) {
        for (int y = -1; y <= 1; y++) {
            shadow += texture(shadowMap, vec3(p.xy + vec2(float(x), float(y)) * ts, p.z - 0.002));
        }
    }
    return shadow / 9.0;
}

vec3 shade(vec3 N, vec3 L, vec3 V, vec3 base, vec3 radiance) {
    float NdL = max(dot(N, L), 0.0);
    vec3 color = radiance * NdL * base;
    if (NdL > 0.0) {
        vec3 H = normalize(L + V);
        color += radiance * matSpecular * pow(max(dot(N, H), 0.0), matShininess);
    }
    return color;
}

void main() {
    vec4 base = fragColor * matAlbedo;
    if (hasTexture) {
        base *= texture(albedoTex, fragUV);
    }
    if (unlit) {
        outColor = base;
        return;
    }

    vec3 N = normalize(fragNormal);
    vec3 V = normalize(cameraPos - fragWorldPos);
    float shadowFactor = hasShadows ? calcShadow() : 1.0;

    vec3 color = ambientColor * base.rgb;
    color += shadowFactor * shade(N, normalize(-lightDir), V, base.rgb, lightColor * lightIntensity);

    for (int i = 0; i < pointLightCount && i < MAX_POINT_LIGHTS; i++) {
        vec3  toLight = pointLightPos[i] - fragWorldPos;
        float dist    = length(toLight);
        float atten   = 1.0 / (1.0 + 0.09 * dist + 0.032 * dist * dist);
        color += shade(N, toLight / max(dist, 0.0001), V, base.rgb,
            pointLightColor[i] * pointLightIntensity[i] * atten);
    }
    outColor = vec4(color, base.a);
}
` + "\x00"

const depthVertSrc = `
#version 410 core
layout(location = 0) in vec3 inPosition;
uniform mat4 lightMVP;
void main() {
    gl_Position = lightMVP * vec4(inPosition, 1.0);
}
` + "\x00"

const depthFragSrc = `
#version 410 core
void main() {}
` + "\x00"

// NewRenderer initialises OpenGL. The window's context must be current.
func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	logger.Info("OpenGL ready",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)))

	prog, err := newProgram(vertSrc, fragSrc)
	if err != nil {
		return nil, fmt.Errorf("main shader compile: %w", err)
	}
	shadowProg, err := newProgram(depthVertSrc, depthFragSrc)
	if err != nil {
		gl.DeleteProgram(prog)
		return nil, fmt.Errorf("depth shader compile: %w", err)
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	loc := func(name string) int32 {
		return gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
	}
	r := &Renderer{
		Logger:     logger,
		program:    prog,
		shadowProg: shadowProg,

		mvpLoc:           loc("mvp"),
		modelLoc:         loc("model"),
		lightViewProjLoc: loc("lightViewProj"),

		lightDirLoc:        loc("lightDir"),
		lightColorLoc:      loc("lightColor"),
		lightIntensityLoc:  loc("lightIntensity"),
		ambientColorLoc:    loc("ambientColor"),
		cameraPosLoc:       loc("cameraPos"),
		pointLightCountLoc: loc("pointLightCount"),

		matAlbedoLoc:    loc("matAlbedo"),
		matSpecularLoc:  loc("matSpecular"),
		matShininessLoc: loc("matShininess"),
		albedoTexLoc:    loc("albedoTex"),
		hasTextureLoc:   loc("hasTexture"),
		unlitLoc:        loc("unlit"),

		shadowMapLoc:  loc("shadowMap"),
		hasShadowsLoc: loc("hasShadows"),

		shadowLightMVPLoc: gl.GetUniformLocation(shadowProg, gl.Str("lightMVP\x00")),

		gpuMeshes: make(map[*scene.Mesh]*GPUMesh),
		textures:  make(map[*scene.Texture]bool),
	}
	for i := 0; i < maxPointLights; i++ {
		r.pointLightPosLoc[i] = loc(fmt.Sprintf("pointLightPos[%d]", i))
		r.pointLightColorLoc[i] = loc(fmt.Sprintf("pointLightColor[%d]", i))
		r.pointLightIntensityLoc[i] = loc(fmt.Sprintf("pointLightIntensity[%d]", i))
	}

	// albedo=0, shadowMap=1
	gl.UseProgram(prog)
	gl.Uniform1i(r.albedoTexLoc, 0)
	gl.Uniform1i(r.shadowMapLoc, 1)
	ident := math.Mat4Identity()
	gl.UniformMatrix4fv(r.lightViewProjLoc, 1, false, &ident[0][0])

	return r, nil
}

// SetViewport resizes the viewport and remembers it for restoring after the
// shadow pass.
func (r *Renderer) SetViewport(width, height int) {
	r.viewportW = int32(width)
	r.viewportH = int32(height)
	gl.Viewport(0, 0, int32(width), int32(height))
}

// Viewport returns the size set by SetViewport.
func (r *Renderer) Viewport() (int, int) {
	return int(r.viewportW), int(r.viewportH)
}

// EnableShadows creates the depth FBO. Call once after NewRenderer.
func (r *Renderer) EnableShadows(size int) error {
	if r.shadowMap != nil {
		r.shadowMap.Destroy()
	}
	sm, err := NewShadowMap(size)
	if err != nil {
		return err
	}
	r.shadowMap = sm
	return nil
}

func (r *Renderer) HasShadowMap() bool {
	return r.shadowMap != nil
}

// BeginShadowPass binds the depth FBO. Meshes drawn with DrawShadow until
// EndShadowPass land in the shadow map.
func (r *Renderer) BeginShadowPass(lightViewProj math.Mat4) bool {
	if r.shadowMap == nil {
		return false
	}
	r.frame.LightViewProj = lightViewProj
	// Always fill, regardless of wireframe mode.
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	gl.BindFramebuffer(gl.FRAMEBUFFER, r.shadowMap.FBO)
	gl.Viewport(0, 0, r.shadowMap.Size, r.shadowMap.Size)
	gl.Clear(gl.DEPTH_BUFFER_BIT)
	gl.UseProgram(r.shadowProg)
	return true
}

// EndShadowPass restores the default framebuffer and viewport.
func (r *Renderer) EndShadowPass() {
	if r.shadowMap == nil {
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, r.viewportW, r.viewportH)
	r.applyPolygonMode()
}

// BeginFrame clears the framebuffer and uploads the per-frame uniforms.
func (r *Renderer) BeginFrame(f scene.FrameState) {
	r.frame = f
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, r.viewportW, r.viewportH)
	gl.ClearColor(f.Clear.R, f.Clear.G, f.Clear.B, f.Clear.A)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.UseProgram(r.program)
	gl.Uniform3f(r.ambientColorLoc, f.Ambient.R, f.Ambient.G, f.Ambient.B)
	gl.Uniform3f(r.cameraPosLoc, f.CameraPos.X, f.CameraPos.Y, f.CameraPos.Z)

	lightVP := f.LightViewProj
	gl.UniformMatrix4fv(r.lightViewProjLoc, 1, false, &lightVP[0][0])
	if f.Shadows && r.shadowMap != nil {
		gl.ActiveTexture(gl.TEXTURE1)
		gl.BindTexture(gl.TEXTURE_2D, r.shadowMap.DepthTex)
		gl.Uniform1i(r.hasShadowsLoc, 1)
	} else {
		gl.Uniform1i(r.hasShadowsLoc, 0)
	}

	// Used when the scene has no directional light.
	dir := math.Vec3{X: 0.5, Y: -1, Z: -0.5}.Normalize()
	dirColor := core.ColorWhite
	dirIntensity := float32(0)

	points := 0
	for _, l := range f.Lights {
		if l == nil {
			continue
		}
		switch l.Type {
		case scene.LightTypeDirectional:
			if l.Direction.LengthSqr() > 0 {
				dir = l.Direction.Normalize()
			}
			dirColor = l.Color
			dirIntensity = l.Intensity
		case scene.LightTypePoint:
			if points < maxPointLights {
				gl.Uniform3f(r.pointLightPosLoc[points], l.Position.X, l.Position.Y, l.Position.Z)
				gl.Uniform3f(r.pointLightColorLoc[points], l.Color.R, l.Color.G, l.Color.B)
				gl.Uniform1f(r.pointLightIntensityLoc[points], l.Intensity)
				points++
			}
		}
	}
	gl.Uniform3f(r.lightDirLoc, dir.X, dir.Y, dir.Z)
	gl.Uniform3f(r.lightColorLoc, dirColor.R, dirColor.G, dirColor.B)
	gl.Uniform1f(r.lightIntensityLoc, dirIntensity)
	gl.Uniform1i(r.pointLightCountLoc, int32(points))
}

// SetWireframe toggles wireframe rendering mode.
func (r *Renderer) SetWireframe(enabled bool) {
	r.wireframe = enabled
	r.applyPolygonMode()
}

func (r *Renderer) IsWireframe() bool {
	return r.wireframe
}

func (r *Renderer) applyPolygonMode() {
	if r.wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
}

// DrawMesh draws mesh for one pass. The shadow pass writes depth only and
// skips line meshes. The transparency pass blends and leaves the depth
// buffer untouched.
func (r *Renderer) DrawMesh(mesh *scene.Mesh, pass scene.DrawPass, model math.Mat4) error {
	gpu, err := r.ensureUploaded(mesh)
	if err != nil {
		return err
	}

	if pass&scene.DrawShadow != 0 {
		if mesh.DrawMode != scene.DrawTriangles || r.shadowMap == nil {
			return nil
		}
		lightMVP := model.Mul(r.frame.LightViewProj)
		gl.UniformMatrix4fv(r.shadowLightMVPLoc, 1, false, &lightMVP[0][0])
		r.drawBuffers(mesh, gpu)
		return nil
	}

	mvp := model.Mul(r.frame.View).Mul(r.frame.Projection)
	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.mvpLoc, 1, false, &mvp[0][0])
	gl.UniformMatrix4fv(r.modelLoc, 1, false, &model[0][0])

	mat := mesh.Material
	if mat == nil {
		mat = scene.DefaultMaterial()
	}
	r.applyMaterial(mat)

	if pass&scene.DrawTransparency != 0 {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
		gl.DepthMask(false)
		defer func() {
			gl.DepthMask(true)
			gl.Disable(gl.BLEND)
		}()
	}
	r.drawBuffers(mesh, gpu)
	return nil
}

// DrawOverlay draws a line mesh on top of everything else.
func (r *Renderer) DrawOverlay(mesh *scene.Mesh, model math.Mat4) error {
	gl.Disable(gl.DEPTH_TEST)
	defer gl.Enable(gl.DEPTH_TEST)
	return r.DrawMesh(mesh, scene.DrawSolid, model)
}

// DrawSky draws the gradient sky behind the solid geometry. Other passes
// ignore it.
func (r *Renderer) DrawSky(sky *scene.Sky, pass scene.DrawPass) error {
	if pass&scene.DrawSolid == 0 {
		return nil
	}
	if r.skybox == nil {
		sb, err := NewSkybox()
		if err != nil {
			return err
		}
		r.skybox = sb
	}
	// The sky must not move with the camera.
	view := r.frame.View
	view[3][0], view[3][1], view[3][2] = 0, 0, 0

	// Filled even in wireframe mode.
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	r.skybox.Draw(sky, view.Mul(r.frame.Projection))
	r.applyPolygonMode()
	return nil
}

func (r *Renderer) drawBuffers(mesh *scene.Mesh, gpu *GPUMesh) {
	primitive := uint32(gl.TRIANGLES)
	if mesh.DrawMode == scene.DrawLines {
		primitive = gl.LINES
	}
	gl.BindVertexArray(gpu.VAO)
	if gpu.HasIndices {
		gl.DrawElements(primitive, gpu.IndexCount, gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(primitive, 0, int32(len(mesh.Vertices)))
	}
	gl.BindVertexArray(0)
}

// applyMaterial sets the material uniforms. r.program must be bound.
func (r *Renderer) applyMaterial(mat *scene.Material) {
	gl.Uniform4f(r.matAlbedoLoc, mat.Albedo.R, mat.Albedo.G, mat.Albedo.B, mat.Albedo.A)
	gl.Uniform3f(r.matSpecularLoc, mat.Specular.R, mat.Specular.G, mat.Specular.B)
	gl.Uniform1f(r.matShininessLoc, mat.Shininess)
	gl.Uniform1i(r.unlitLoc, boolToInt(mat.Unlit))

	tex := mat.AlbedoTexture
	if tex != nil && tex.GLID == 0 {
		if err := r.UploadTexture(tex); err != nil {
			r.Logger.Warn("texture upload failed", "texture", tex.Name, "error", err)
			// Do not retry every frame.
			mat.AlbedoTexture = nil
			tex = nil
		}
	}
	if tex != nil {
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, tex.GLID)
		gl.Uniform1i(r.hasTextureLoc, 1)
	} else {
		gl.Uniform1i(r.hasTextureLoc, 0)
	}
}

// ReleaseMesh frees the GPU buffers of mesh.
func (r *Renderer) ReleaseMesh(mesh *scene.Mesh) {
	gpu, ok := r.gpuMeshes[mesh]
	if !ok {
		return
	}
	gl.DeleteVertexArrays(1, &gpu.VAO)
	gl.DeleteBuffers(1, &gpu.VBO)
	if gpu.HasIndices {
		gl.DeleteBuffers(1, &gpu.EBO)
	}
	delete(r.gpuMeshes, mesh)
	mesh.GPUData = nil
}

// Collect frees the buffers of every uploaded mesh not in live, and the
// textures those meshes no longer share. Call between frames.
func (r *Renderer) Collect(live []*scene.Mesh) int {
	keep := make(map[*scene.Mesh]bool, len(live))
	keepTex := make(map[*scene.Texture]bool)
	for _, m := range live {
		keep[m] = true
		if m.Material != nil && m.Material.AlbedoTexture != nil {
			keepTex[m.Material.AlbedoTexture] = true
		}
	}
	freed := 0
	for mesh := range r.gpuMeshes {
		if !keep[mesh] {
			r.ReleaseMesh(mesh)
			freed++
		}
	}
	for tex := range r.textures {
		if !keepTex[tex] {
			r.DeleteTexture(tex)
		}
	}
	return freed
}

// Destroy releases all GPU resources.
func (r *Renderer) Destroy() {
	for mesh := range r.gpuMeshes {
		r.ReleaseMesh(mesh)
	}
	for tex := range r.textures {
		r.DeleteTexture(tex)
	}
	if r.shadowMap != nil {
		r.shadowMap.Destroy()
	}
	if r.skybox != nil {
		r.skybox.Destroy()
	}
	gl.DeleteProgram(r.shadowProg)
	gl.DeleteProgram(r.program)
}

var errEmptyMesh = errors.New("mesh has no vertices")

// ensureUploaded uploads vertex and index data on first use.
func (r *Renderer) ensureUploaded(mesh *scene.Mesh) (*GPUMesh, error) {
	if gpu, ok := r.gpuMeshes[mesh]; ok {
		return gpu, nil
	}
	if len(mesh.Vertices) == 0 {
		return nil, fmt.Errorf("upload %q: %w: %w", mesh.Name, scene.ErrMissingResource, errEmptyMesh)
	}

	var v core.Vertex
	stride := int32(unsafe.Sizeof(v))

	gpu := &GPUMesh{
		IndexCount: int32(len(mesh.Indices)),
		HasIndices: len(mesh.Indices) > 0,
	}

	gl.GenVertexArrays(1, &gpu.VAO)
	gl.GenBuffers(1, &gpu.VBO)
	gl.BindVertexArray(gpu.VAO)

	gl.BindBuffer(gl.ARRAY_BUFFER, gpu.VBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(mesh.Vertices)*int(stride), gl.Ptr(mesh.Vertices), gl.STATIC_DRAW)

	attribs := []struct {
		size   int32
		offset uintptr
	}{
		{3, unsafe.Offsetof(v.Position)},
		{3, unsafe.Offsetof(v.Normal)},
		{2, unsafe.Offsetof(v.UV)},
		{4, unsafe.Offsetof(v.Color)},
	}
	for i, a := range attribs {
		gl.EnableVertexAttribArray(uint32(i))
		gl.VertexAttribPointer(uint32(i), a.size, gl.FLOAT, false, stride, gl.PtrOffset(int(a.offset)))
	}

	if gpu.HasIndices {
		gl.GenBuffers(1, &gpu.EBO)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gpu.EBO)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, gl.Ptr(mesh.Indices), gl.STATIC_DRAW)
	}
	gl.BindVertexArray(0)

	r.gpuMeshes[mesh] = gpu
	mesh.GPUData = gpu
	return gpu, nil
}

func newProgram(vertSrc, fragSrc string) (uint32, error) {
	vert, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex: %w", err)
	}
	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vert)
		return 0, fmt.Errorf("fragment: %w", err)
	}

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	gl.LinkProgram(prog)
	gl.DeleteShader(vert)
	gl.DeleteShader(frag)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("link failed: %v", log)
	}
	return prog, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %v", log)
	}
	return shader, nil
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
