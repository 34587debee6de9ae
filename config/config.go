// Package config holds the viewer settings persisted between runs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"scene-viewer/math"
	"scene-viewer/scene"
)

// DefaultPath is the settings file read when no --config flag is given.
const DefaultPath = "viewer.toml"

type Config struct {
	Window WindowConfig `toml:"window"`
	Camera CameraConfig `toml:"camera"`
	View   ViewConfig   `toml:"view"`
	Assets AssetsConfig `toml:"assets"`
	Log    LogConfig    `toml:"log"`
}

type WindowConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

type CameraConfig struct {
	Eye       [3]float32 `toml:"eye"`
	Direction [3]float32 `toml:"direction"`
	// FOV is the vertical field of view in degrees.
	FOV  float32 `toml:"fov"`
	Near float32 `toml:"near"`
	Far  float32 `toml:"far"`
}

type ViewConfig struct {
	Wireframe    bool   `toml:"wireframe"`
	Environment  bool   `toml:"environment"`
	Grid         bool   `toml:"grid"`
	GUI          bool   `toml:"gui"`
	FPSCamera    bool   `toml:"fps_camera"`
	Shadows      bool   `toml:"shadows"`
	AntiAliasing bool   `toml:"anti_aliasing"`
	Rule         string `toml:"visibility_rule"`
	Texture      string `toml:"texture,omitempty"`
}

type AssetsConfig struct {
	Dirs []string `toml:"dirs"`
}

type LogConfig struct {
	Level string `toml:"level"`
	// Dir, when set, receives a daily log file next to stderr output.
	Dir string `toml:"dir,omitempty"`
}

func Default() *Config {
	return &Config{
		Window: WindowConfig{Width: 1280, Height: 720},
		Camera: CameraConfig{
			Eye:       [3]float32{0, 5, 10},
			Direction: [3]float32{0, -0.447, -0.894},
			FOV:       60,
			Near:      0.1,
			Far:       1000,
		},
		View: ViewConfig{
			Environment:  true,
			Grid:         true,
			GUI:          true,
			Shadows:      true,
			AntiAliasing: true,
			Rule:         scene.GateBoth.String(),
		},
		Assets: AssetsConfig{Dirs: []string{"assets"}},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate clamps out-of-range values and rejects settings that cannot be
// repaired.
func (c *Config) Validate() error {
	c.Window.Width = max(c.Window.Width, 64)
	c.Window.Height = max(c.Window.Height, 64)

	if c.Camera.Near <= 0 {
		c.Camera.Near = 0.1
	}
	if c.Camera.Far <= c.Camera.Near {
		c.Camera.Far = c.Camera.Near * 10000
	}
	c.Camera.FOV = math.Clamp(c.Camera.FOV, 1, 179)
	if c.CameraDirection().LengthSqr() == 0 {
		c.Camera.Direction = Default().Camera.Direction
	}

	if _, err := scene.ParseVisibilityRule(c.View.Rule); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Rule returns the configured visibility rule.
func (c *Config) Rule() scene.VisibilityRule {
	r, err := scene.ParseVisibilityRule(c.View.Rule)
	if err != nil {
		return scene.GateBoth
	}
	return r
}

func (c *Config) CameraEye() math.Vec3 {
	return math.Vec3{X: c.Camera.Eye[0], Y: c.Camera.Eye[1], Z: c.Camera.Eye[2]}
}

func (c *Config) CameraDirection() math.Vec3 {
	return math.Vec3{X: c.Camera.Direction[0], Y: c.Camera.Direction[1], Z: c.Camera.Direction[2]}
}

// SetCamera records the eye position and view direction.
func (c *Config) SetCamera(eye, dir math.Vec3) {
	c.Camera.Eye = [3]float32{eye.X, eye.Y, eye.Z}
	c.Camera.Direction = [3]float32{dir.X, dir.Y, dir.Z}
}

// FOVRadians returns the field of view in radians.
func (c *Config) FOVRadians() float32 {
	return math.ToRadians(c.Camera.FOV)
}
