package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/Carmen-Shannon/gemfall/engine/light"
	"github.com/Carmen-Shannon/gemfall/engine/postprocess/bloom"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/refraction"
)

// Config holds every process-start parameter of the gem scene.
// Values are loaded once before the frame loop starts and are never mutated afterwards,
// with the exception of an explicit restart which re-reads the same struct.
type Config struct {
	// Scene
	InstanceCount int   `json:"instanceCount"`
	Seed          int64 `json:"seed"` // 0 picks a time-based seed

	// Gem geometry
	Mesh     string `json:"mesh"`     // .gltf or .glb path, empty selects the procedural brilliant cut
	MeshNode string `json:"meshNode"` // node or mesh name inside Mesh, empty merges the default scene

	// Refraction
	IOR                float32 `json:"ior"`
	BounceCount        int     `json:"bounceCount"`
	AberrationStrength float32 `json:"aberrationStrength"`
	FresnelBias        float32 `json:"fresnelBias"`

	// Bloom
	BloomThreshold float32 `json:"bloomThreshold"`
	BloomIntensity float32 `json:"bloomIntensity"`
	BloomLevels    int     `json:"bloomLevels"`

	// Physics
	GroundFriction    float32    `json:"groundFriction"`
	GroundRestitution float32    `json:"groundRestitution"`
	GroundPosition    [3]float32 `json:"groundPosition"`
	GroundHalfExtents [3]float32 `json:"groundHalfExtents"`
	GemFriction       float32    `json:"gemFriction"`
	GemRestitution    float32    `json:"gemRestitution"`
	GemDensity        float32    `json:"gemDensity"`
	Gravity           float32    `json:"gravity"`
	TickRate          float64    `json:"tickRate"`
	Substeps          int        `json:"substeps"`
	SolverIterations  int        `json:"solverIterations"`

	// Camera
	CameraPosition  [3]float32 `json:"cameraPosition"`
	CameraFov       float32    `json:"cameraFov"` // degrees
	AutoRotate      bool       `json:"autoRotate"`
	AutoRotateSpeed float32    `json:"autoRotateSpeed"`

	// Shadows
	LightPosition [3]float32 `json:"lightPosition"` // the light shines from here toward the origin
	CastShadows   bool       `json:"castShadows"`
	ShadowHeight  float32    `json:"shadowHeight"` // y of the plane that catches the shadows
	ShadowOpacity float32    `json:"shadowOpacity"`

	// Output
	Background   string `json:"background"`
	Environment  string `json:"environment"` // image path, empty selects the procedural studio
	WindowWidth  int    `json:"windowWidth"`
	WindowHeight int    `json:"windowHeight"`
	WindowTitle  string `json:"windowTitle"`
	VSync        bool   `json:"vsync"`
	MSAA         int    `json:"msaa"`
	Profiling    bool   `json:"profiling"`

	// EnvironmentExposure scales a loaded LDR image so its highlights can cross the bloom threshold.
	EnvironmentExposure float32 `json:"environmentExposure"`
}

// ValidationError reports a configuration value outside its allowed range.
// Shader ranges are reported as *refraction.ShaderParameterError instead.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Default returns the configuration used when no file or flag overrides a value.
//
// Returns:
//   - *Config: a new config populated with defaults
func Default() *Config {
	return &Config{
		InstanceCount: 100,

		IOR:                3,
		BounceCount:        2,
		AberrationStrength: 0.02,
		FresnelBias:        0.1,

		BloomThreshold: 2.0,
		BloomIntensity: 1.5,
		BloomLevels:    9,

		GroundFriction:    1,
		GroundRestitution: 0,
		GroundPosition:    [3]float32{0, -11, 0},
		GroundHalfExtents: [3]float32{100, 10, 100},
		GemFriction:       0.5,
		GemRestitution:    0.1,
		GemDensity:        1,
		Gravity:           -9.81,
		TickRate:          60,
		Substeps:          2,
		SolverIterations:  10,

		CameraPosition:  [3]float32{-25, 1, 25},
		CameraFov:       15,
		AutoRotate:      true,
		AutoRotateSpeed: 0.1,

		LightPosition: [3]float32{5, 5, 5},
		CastShadows:   true,
		ShadowHeight:  -1,
		ShadowOpacity: 0.25,

		Background:   "#f0f0f0",
		WindowWidth:  1280,
		WindowHeight: 720,
		WindowTitle:  "gemfall",
		VSync:        true,
		MSAA:         4,

		EnvironmentExposure: 4,
	}
}

// Load reads a JSON config file on top of the defaults.
// Fields missing from the file keep their default values. An empty path returns the defaults.
//
// Parameters:
//   - path: the JSON file to read
//
// Returns:
//   - *Config: the merged configuration
//   - error: error if the file cannot be read or parsed
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config as indented JSON.
//
// Parameters:
//   - path: destination file
//
// Returns:
//   - error: error if encoding or writing fails
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RefractionParams returns the shader parameters described by the config.
func (c *Config) RefractionParams() refraction.Params {
	return refraction.Params{
		IOR:                c.IOR,
		Bounces:            c.BounceCount,
		AberrationStrength: c.AberrationStrength,
		FresnelBias:        c.FresnelBias,
	}
}

// BloomSettings returns the post-process parameters described by the config.
func (c *Config) BloomSettings() bloom.Settings {
	return bloom.Settings{
		Threshold: c.BloomThreshold,
		Intensity: c.BloomIntensity,
		Levels:    c.BloomLevels,
	}
}

// Light returns the directional light described by the config.
func (c *Config) Light() light.DirectionalLight {
	p := c.LightPosition
	return light.NewDirectionalLight(
		light.WithPosition(p[0], p[1], p[2]),
		light.WithCastsShadows(c.CastShadows),
	)
}

// ShadowCatcher returns the ground plane that shows the gems' shadows.
func (c *Config) ShadowCatcher() light.ShadowCatcher {
	catcher := light.DefaultShadowCatcher()
	catcher.Height = c.ShadowHeight
	catcher.Opacity = c.ShadowOpacity
	return catcher
}

// FixedStep returns the physics time step derived from the tick rate.
func (c *Config) FixedStep() float32 {
	if c.TickRate <= 0 {
		return 1.0 / 60.0
	}
	return float32(1.0 / c.TickRate)
}

// Validate checks every parameter and returns the first violation.
// Shader parameters come back as *refraction.ShaderParameterError, bloom parameters as
// *bloom.ParameterError, and everything else as *ValidationError.
//
// Returns:
//   - error: nil when the config can start the frame loop
func (c *Config) Validate() error {
	if c.InstanceCount < 1 {
		return &ValidationError{Field: "instanceCount", Value: c.InstanceCount, Reason: "must be a positive integer"}
	}
	if c.MeshNode != "" && c.Mesh == "" {
		return &ValidationError{Field: "meshNode", Value: c.MeshNode, Reason: "requires mesh"}
	}
	if err := c.RefractionParams().Validate(); err != nil {
		return err
	}
	if err := c.BloomSettings().Validate(); err != nil {
		return err
	}

	nonNegative := []struct {
		name string
		v    float32
	}{
		{"groundFriction", c.GroundFriction},
		{"groundRestitution", c.GroundRestitution},
		{"gemFriction", c.GemFriction},
		{"gemRestitution", c.GemRestitution},
	}
	for _, f := range nonNegative {
		if f.v < 0 || isNaN(f.v) {
			return &ValidationError{Field: f.name, Value: f.v, Reason: "must be >= 0"}
		}
	}

	if c.GemDensity <= 0 {
		return &ValidationError{Field: "gemDensity", Value: c.GemDensity, Reason: "must be > 0"}
	}
	for i, h := range c.GroundHalfExtents {
		if h <= 0 {
			return &ValidationError{Field: fmt.Sprintf("groundHalfExtents[%d]", i), Value: h, Reason: "must be > 0"}
		}
	}
	if c.TickRate <= 0 {
		return &ValidationError{Field: "tickRate", Value: c.TickRate, Reason: "must be > 0"}
	}
	if c.Substeps < 1 {
		return &ValidationError{Field: "substeps", Value: c.Substeps, Reason: "must be >= 1"}
	}
	if c.SolverIterations < 1 {
		return &ValidationError{Field: "solverIterations", Value: c.SolverIterations, Reason: "must be >= 1"}
	}
	if c.CameraFov <= 0 || c.CameraFov >= 180 {
		return &ValidationError{Field: "cameraFov", Value: c.CameraFov, Reason: "must be in (0, 180) degrees"}
	}
	if c.EnvironmentExposure <= 0 || isNaN(c.EnvironmentExposure) {
		return &ValidationError{Field: "environmentExposure", Value: c.EnvironmentExposure, Reason: "must be > 0"}
	}
	if c.ShadowOpacity < 0 || c.ShadowOpacity > 1 || isNaN(c.ShadowOpacity) {
		return &ValidationError{Field: "shadowOpacity", Value: c.ShadowOpacity, Reason: "must be in [0, 1]"}
	}
	if c.LightPosition == ([3]float32{}) {
		return &ValidationError{Field: "lightPosition", Value: c.LightPosition, Reason: "must differ from the origin the light shines at"}
	}
	if _, err := common.ParseHexColor(c.Background); err != nil {
		return &ValidationError{Field: "background", Value: c.Background, Reason: err.Error()}
	}
	switch c.MSAA {
	case 0, 1, 4, 8, 16:
	default:
		return &ValidationError{Field: "msaa", Value: c.MSAA, Reason: "must be one of 1, 4, 8, 16"}
	}
	return nil
}

func isNaN(f float32) bool {
	return f != f
}
