package io

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"scene-viewer/core"
	"scene-viewer/math"
	"scene-viewer/scene"
)

const FormatVersion = "1"

// ErrUnknownFormat is returned for scene paths with an unsupported extension.
var ErrUnknownFormat = errors.New("unknown scene format")

// SceneFile is the persisted form of a scene.
type SceneFile struct {
	Version string      `json:"version" yaml:"version"`
	Camera  *CameraData `json:"camera,omitempty" yaml:"camera,omitempty"`
	Root    NodeData    `json:"root" yaml:"root"`
}

// CameraData stores the orbit camera state.
type CameraData struct {
	Target   [3]float32 `json:"target" yaml:"target"`
	Distance float32    `json:"distance" yaml:"distance"`
	Yaw      float32    `json:"yaw" yaml:"yaw"`
	Pitch    float32    `json:"pitch" yaml:"pitch"`
	FOV      float32    `json:"fov" yaml:"fov"`
	Near     float32    `json:"near" yaml:"near"`
	Far      float32    `json:"far" yaml:"far"`
}

// NodeData is one node of the persisted tree.
type NodeData struct {
	Kind     scene.Kind    `json:"kind" yaml:"kind"`
	Name     string        `json:"name" yaml:"name"`
	Source   string        `json:"source,omitempty" yaml:"source,omitempty"`
	Local    [16]float32   `json:"local" yaml:"local,flow"`
	Visible  bool          `json:"visible" yaml:"visible"`
	Material *MaterialData `json:"material,omitempty" yaml:"material,omitempty"`
	Light    *LightData    `json:"light,omitempty" yaml:"light,omitempty"`
	Sky      *SkyData      `json:"sky,omitempty" yaml:"sky,omitempty"`
	Children []NodeData    `json:"children,omitempty" yaml:"children,omitempty"`
}

type MaterialData struct {
	Name      string     `json:"name" yaml:"name"`
	Albedo    [4]float32 `json:"albedo" yaml:"albedo,flow"`
	Specular  [4]float32 `json:"specular" yaml:"specular,flow"`
	Shininess float32    `json:"shininess" yaml:"shininess"`
	Unlit     bool       `json:"unlit,omitempty" yaml:"unlit,omitempty"`
	Texture   string     `json:"texture,omitempty" yaml:"texture,omitempty"`
}

type LightData struct {
	Type      string     `json:"type" yaml:"type"` // "directional" or "point"
	Color     [4]float32 `json:"color" yaml:"color,flow"`
	Intensity float32    `json:"intensity" yaml:"intensity"`
}

type SkyData struct {
	Zenith  [4]float32 `json:"zenith" yaml:"zenith,flow"`
	Horizon [4]float32 `json:"horizon" yaml:"horizon,flow"`
	Ground  [4]float32 `json:"ground" yaml:"ground,flow"`
}

// Format is a scene file encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatForPath picks the encoding from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return FormatJSON, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// Marshal encodes f in the given format.
func Marshal(f *SceneFile, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return nil, fmt.Errorf("failed to marshal scene: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to marshal scene: %w", err)
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal scene: %w", err)
		}
		return data, nil
	}
}

// Unmarshal decodes a scene file in the given format.
func Unmarshal(data []byte, format Format) (*SceneFile, error) {
	f := &SceneFile{}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, f)
	default:
		err = json.Unmarshal(data, f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse scene file: %w", err)
	}
	if f.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported scene version %q", f.Version)
	}
	return f, nil
}

// WriteSceneFile saves f to path, choosing the encoding from the extension.
func WriteSceneFile(path string, f *SceneFile) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	data, err := Marshal(f, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write scene file: %w", err)
	}
	return nil
}

// ReadSceneFile loads a scene file, choosing the encoding from the extension.
func ReadSceneFile(path string) (*SceneFile, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	return Unmarshal(data, format)
}

// --- Helper conversions ---

func Vec3ToArray(v math.Vec3) [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

func ArrayToVec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

func ColorToArray(c core.Color) [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}

func ArrayToColor(a [4]float32) core.Color {
	return core.Color{R: a[0], G: a[1], B: a[2], A: a[3]}
}

// MatrixToArray flattens a matrix row by row.
func MatrixToArray(m math.Mat4) [16]float32 {
	var out [16]float32
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i*4+j] = m[i][j]
		}
	}
	return out
}

func ArrayToMatrix(a [16]float32) math.Mat4 {
	var m math.Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			m[i][j] = a[i*4+j]
		}
	}
	return m
}
