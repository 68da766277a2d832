package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/gemfall/engine/light"
	"github.com/Carmen-Shannon/gemfall/engine/postprocess/bloom"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

func bloomShader(t *testing.T) shader.Shader {
	t.Helper()
	s, err := shader.NewShader("bloom", bloom.ShaderSource)
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}
	return s
}

func TestDefaults(t *testing.T) {
	p, err := NewPipeline("threshold", bloomShader(t))
	if err != nil {
		t.Fatal(err)
	}
	if p.VertexEntryPoint() != "vs_fullscreen" || p.FragmentEntryPoint() != "fs_threshold" {
		t.Errorf("entry points = %s/%s", p.VertexEntryPoint(), p.FragmentEntryPoint())
	}
	if p.TargetFormat() != wgpu.TextureFormatRGBA16Float || p.SampleCount() != 1 {
		t.Errorf("target = %v x%d", p.TargetFormat(), p.SampleCount())
	}
	if !p.DepthTestEnabled() || p.BlendState() != nil {
		t.Error("default pipeline should depth test without blending")
	}
	if p.RenderPipeline() != nil || p.BindGroupLayout(0) != nil {
		t.Error("unregistered pipeline has GPU objects")
	}
}

func TestOptions(t *testing.T) {
	p, err := NewPipeline("composite", bloomShader(t),
		WithEntryPoints("", "fs_composite"),
		WithTargetFormat(wgpu.TextureFormatBGRA8Unorm),
		WithSampleCount(0),
		WithDepthTestEnabled(false),
		WithBlendEnabled(true),
	)
	if err != nil {
		t.Fatal(err)
	}
	if p.FragmentEntryPoint() != "fs_composite" || p.VertexEntryPoint() != "vs_fullscreen" {
		t.Errorf("entry points = %s/%s", p.VertexEntryPoint(), p.FragmentEntryPoint())
	}
	if p.SampleCount() != 1 {
		t.Errorf("sample count = %d, want clamped to 1", p.SampleCount())
	}
	if p.BlendState() == nil {
		t.Error("blend state missing with blending enabled")
	}
}

func TestUnknownEntryPoint(t *testing.T) {
	if _, err := NewPipeline("bad", bloomShader(t), WithEntryPoints("", "fs_missing")); err == nil {
		t.Error("expected error for an unknown fragment entry")
	}
	if _, err := NewPipeline("nil", nil); err == nil {
		t.Error("expected error for a nil shader")
	}
}

func TestDepthOnlyPipeline(t *testing.T) {
	s, err := shader.NewShader("shadow_depth", light.ShadowDepthShaderSource)
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}
	if _, err := NewPipeline("shadow", s); err == nil {
		t.Error("expected error for a color pipeline over a vertex-only shader")
	}

	p, err := NewPipeline("shadow", s, WithDepthOnly(), WithDepthFormat(wgpu.TextureFormatDepth32Float), WithDepthBias(2, 1.5))
	if err != nil {
		t.Fatal(err)
	}
	if !p.DepthOnly() || p.FragmentEntryPoint() != "" || p.VertexEntryPoint() != "vs_shadow" {
		t.Errorf("depth only = %v, entries %q/%q", p.DepthOnly(), p.VertexEntryPoint(), p.FragmentEntryPoint())
	}
	if p.DepthFormat() != wgpu.TextureFormatDepth32Float || p.DepthBias() != 2 || p.DepthBiasSlopeScale() != 1.5 {
		t.Errorf("depth format %v, bias %d/%v", p.DepthFormat(), p.DepthBias(), p.DepthBiasSlopeScale())
	}
}
