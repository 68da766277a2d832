package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/gemfall/engine/postprocess/bloom"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/refraction"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.InstanceCount != 100 {
		t.Errorf("InstanceCount = %d, want 100", cfg.InstanceCount)
	}
	if cfg.IOR != 3 || cfg.BounceCount != 2 || cfg.AberrationStrength != 0.02 || cfg.FresnelBias != 0.1 {
		t.Errorf("refraction defaults = %+v", cfg.RefractionParams())
	}
	if cfg.BloomThreshold != 2 || cfg.BloomIntensity != 1.5 || cfg.BloomLevels != 9 {
		t.Errorf("bloom defaults = %+v", cfg.BloomSettings())
	}
	if cfg.GroundFriction != 1 || cfg.GroundRestitution != 0 {
		t.Errorf("ground material = (%v, %v), want (1, 0)", cfg.GroundFriction, cfg.GroundRestitution)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != *Default() {
		t.Fatalf("Load(\"\") = %+v, want defaults", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gemfall.json")
	if err := os.WriteFile(path, []byte(`{"instanceCount": 12, "ior": 2.4}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.InstanceCount != 12 || cfg.IOR != 2.4 {
		t.Errorf("overrides not applied: count=%d ior=%v", cfg.InstanceCount, cfg.IOR)
	}
	if cfg.BounceCount != 2 || cfg.BloomLevels != 9 {
		t.Errorf("missing fields lost their defaults: bounces=%d levels=%d", cfg.BounceCount, cfg.BloomLevels)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	cfg := Default()
	cfg.Seed = 42
	cfg.AutoRotate = false
	cfg.Environment = "studio.hdr.png"
	cfg.Mesh = "dflat.glb"
	cfg.MeshNode = "Diamond_1_0"

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *cfg {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestValidateErrorTypes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		check  func(error) bool
	}{
		{"zero instances", func(c *Config) { c.InstanceCount = 0 }, isValidationError},
		{"node without mesh", func(c *Config) { c.MeshNode = "Diamond_1_0" }, isValidationError},
		{"non-positive ior", func(c *Config) { c.IOR = 0 }, isShaderError},
		{"negative bounces", func(c *Config) { c.BounceCount = -1 }, isShaderError},
		{"fresnel above one", func(c *Config) { c.FresnelBias = 1.5 }, isShaderError},
		{"zero bloom levels", func(c *Config) { c.BloomLevels = 0 }, isBloomError},
		{"negative friction", func(c *Config) { c.GroundFriction = -1 }, isValidationError},
		{"flat ground", func(c *Config) { c.GroundHalfExtents[1] = 0 }, isValidationError},
		{"zero tick rate", func(c *Config) { c.TickRate = 0 }, isValidationError},
		{"bad background", func(c *Config) { c.Background = "blue" }, isValidationError},
		{"odd msaa", func(c *Config) { c.MSAA = 3 }, isValidationError},
		{"fov too wide", func(c *Config) { c.CameraFov = 180 }, isValidationError},
		{"shadow opacity above one", func(c *Config) { c.ShadowOpacity = 1.2 }, isValidationError},
		{"light at the origin", func(c *Config) { c.LightPosition = [3]float32{} }, isValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.check(err) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
		})
	}
}

func TestFixedStep(t *testing.T) {
	cfg := Default()
	if got := cfg.FixedStep(); got != float32(1.0/60.0) {
		t.Errorf("FixedStep = %v, want 1/60", got)
	}
	cfg.TickRate = 0
	if got := cfg.FixedStep(); got != float32(1.0/60.0) {
		t.Errorf("FixedStep with zero rate = %v, want fallback 1/60", got)
	}
}

func TestLightAndShadowCatcher(t *testing.T) {
	cfg := Default()
	cfg.LightPosition = [3]float32{1, 4, -2}
	cfg.ShadowHeight = -3
	cfg.ShadowOpacity = 0.5

	l := cfg.Light()
	if p := l.Position(); p[0] != 1 || p[1] != 4 || p[2] != -2 {
		t.Errorf("light position = %v", p)
	}
	if !l.CastsShadows() {
		t.Error("default config light casts no shadows")
	}
	if c := cfg.ShadowCatcher(); c.Height != -3 || c.Opacity != 0.5 || c.HalfSize != 50 {
		t.Errorf("catcher = %+v", c)
	}

	cfg.CastShadows = false
	if cfg.Light().CastsShadows() {
		t.Error("castShadows=false still casts")
	}
}

func isValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func isShaderError(err error) bool {
	var v *refraction.ShaderParameterError
	return errors.As(err, &v)
}

func isBloomError(err error) bool {
	var v *bloom.ParameterError
	return errors.As(err, &v)
}
