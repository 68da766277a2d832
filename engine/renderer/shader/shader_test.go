package shader

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/gemfall/engine/light"
	"github.com/Carmen-Shannon/gemfall/engine/postprocess/bloom"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/refraction"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    AnnotationType
		wantErr bool
	}{
		{"plain code", "let x = 1.0;", "", false},
		{"plain comment", "// just a note", "", false},
		{"include", "//@gem:include camera", annotationTypeInclude, false},
		{"group", "//@gem:group 0 1 storage_uniform params refraction_params", AnnotationTypeBindingGroup, false},
		{"unknown struct", "//@gem:include light", "", true},
		{"bad group number", "//@gem:group x 0 storage_uniform camera camera", "", true},
		{"bad address space", "//@gem:group 0 0 private camera camera", "", true},
		{"missing args", "//@gem:group 0 0", "", true},
		{"unknown type", "//@gem:provider 0 0 camera", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := parseAnnotation(tt.line, 1)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want == "" {
				if a != nil && !tt.wantErr {
					t.Fatalf("got annotation %+v for a non-annotation line", a)
				}
				return
			}
			if a == nil || a.Type != tt.want {
				t.Fatalf("annotation = %+v, want type %q", a, tt.want)
			}
		})
	}
}

func TestProcessInjectsStructsOnce(t *testing.T) {
	src := "//@gem:include camera\n//@gem:include camera\n//@gem:group 0 0 storage_uniform camera camera\n"
	pp := NewPreProcessor()
	out, err := pp.Process(src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if n := strings.Count(out, "struct CameraUniform"); n != 1 {
		t.Errorf("CameraUniform injected %d times, want 1", n)
	}
	if !strings.Contains(out, "@group(0) @binding(0) var<uniform> camera: CameraUniform;") {
		t.Errorf("missing generated declaration in:\n%s", out)
	}
	decls := pp.Declarations()
	if len(decls) != 1 || *decls[0].Group != 0 || *decls[0].Binding != 0 || decls[0].Args[1] != "camera" {
		t.Errorf("declarations = %+v", decls)
	}
}

func TestRefractionShaderReflection(t *testing.T) {
	s, err := NewShader("refraction", refraction.ShaderSource)
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}
	if got := s.EntryPoint(ShaderTypeVertex); got != "vs_main" {
		t.Errorf("vertex entry = %q", got)
	}
	if got := s.EntryPoint(ShaderTypeFragment); got != "fs_main" {
		t.Errorf("fragment entry = %q", got)
	}
	if strings.Contains(s.Source(), annotationPrefix) {
		t.Error("processed source still contains annotations")
	}

	desc := s.BindGroupLayoutDescriptor(0)
	if len(desc.Entries) != 3 {
		t.Fatalf("group 0 has %d entries, want 3", len(desc.Entries))
	}
	camera, params, env := desc.Entries[0], desc.Entries[1], desc.Entries[2]
	if camera.Buffer.Type != wgpu.BufferBindingTypeUniform || camera.Buffer.MinBindingSize != 144 {
		t.Errorf("camera entry = %+v, want a 144-byte uniform", camera.Buffer)
	}
	if params.Buffer.Type != wgpu.BufferBindingTypeUniform || params.Buffer.MinBindingSize != 16 {
		t.Errorf("params entry = %+v, want a 16-byte uniform", params.Buffer)
	}
	if env.Texture.SampleType != wgpu.TextureSampleTypeUnfilterableFloat ||
		env.Texture.ViewDimension != wgpu.TextureViewDimension2D {
		t.Errorf("env entry = %+v, want an unfilterable 2D float texture", env.Texture)
	}
	if b, ok := s.BindGroupFromVarName(0, "env_map"); !ok || b != 2 {
		t.Errorf("env_map binding = %d, %v", b, ok)
	}
}

func TestBloomShaderReflection(t *testing.T) {
	s, err := NewShader("bloom", bloom.ShaderSource)
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}
	for _, name := range []string{"fs_threshold", "fs_downsample", "fs_upsample", "fs_composite"} {
		if !s.HasEntryPoint(ShaderTypeFragment, name) {
			t.Errorf("missing fragment entry %s", name)
		}
	}
	if s.HasEntryPoint(ShaderTypeFragment, "vs_fullscreen") {
		t.Error("vertex entry reported as fragment entry")
	}

	desc := s.BindGroupLayoutDescriptor(0)
	if len(desc.Entries) != 4 {
		t.Fatalf("group 0 has %d entries, want 4", len(desc.Entries))
	}
	if got := desc.Entries[1].Texture.SampleType; got != wgpu.TextureSampleTypeUnfilterableFloat {
		t.Errorf("tex_a sample type = %v, want unfilterable (load only)", got)
	}
	if got := desc.Entries[2].Texture.SampleType; got != wgpu.TextureSampleTypeFloat {
		t.Errorf("tex_b sample type = %v, want filterable (sampled)", got)
	}
	if got := desc.Entries[3].Sampler.Type; got != wgpu.SamplerBindingTypeFiltering {
		t.Errorf("sampler type = %v", got)
	}
}

func TestShadowShaderReflection(t *testing.T) {
	depth, err := NewShader("shadow_depth", light.ShadowDepthShaderSource)
	if err != nil {
		t.Fatalf("NewShader depth: %v", err)
	}
	if !depth.HasEntryPoint(ShaderTypeVertex, "vs_shadow") || depth.EntryPoint(ShaderTypeFragment) != "" {
		t.Error("depth shader should carry a vertex entry only")
	}
	entries := depth.BindGroupLayoutDescriptor(0).Entries
	if len(entries) != 1 || entries[0].Buffer.MinBindingSize != 96 {
		t.Fatalf("depth group 0 = %+v, want the 96-byte shadow uniform", entries)
	}

	catcher, err := NewShader("shadow_catcher", light.ShadowCatcherShaderSource)
	if err != nil {
		t.Fatalf("NewShader catcher: %v", err)
	}
	entries = catcher.BindGroupLayoutDescriptor(0).Entries
	if len(entries) != 4 {
		t.Fatalf("catcher group 0 has %d entries, want 4", len(entries))
	}
	if entries[0].Buffer.MinBindingSize != 144 || entries[1].Buffer.MinBindingSize != 96 {
		t.Errorf("uniform sizes = %d, %d", entries[0].Buffer.MinBindingSize, entries[1].Buffer.MinBindingSize)
	}
	if got := entries[2].Texture.SampleType; got != wgpu.TextureSampleTypeDepth {
		t.Errorf("shadow map sample type = %v, want depth", got)
	}
	if got := entries[3].Sampler.Type; got != wgpu.SamplerBindingTypeComparison {
		t.Errorf("shadow sampler type = %v, want comparison", got)
	}
}

func TestNewShaderErrors(t *testing.T) {
	if _, err := NewShader("empty", "struct A { x: f32 };"); err == nil {
		t.Error("expected error for a source without entry points")
	}
	if _, err := NewShader("bad", "//@gem:include nothing\n@vertex fn vs() {}"); err == nil {
		t.Error("expected error for an unknown include")
	}
}

func TestStructLayout(t *testing.T) {
	structs := parseStructBlocks(stripComments(`
struct Inner { a: vec3<f32>, b: f32, };
/* block /* nested */ comment */
struct Outer {
    inner: Inner,
    list: array<vec4<f32>, 3>,
    tail: u32, // trailing
};`))
	sizes := computeStructSizes(structs)
	if got := sizes["Inner"]; got.size != 16 || got.align != 16 {
		t.Errorf("Inner = %+v, want 16/16", got)
	}
	if got := sizes["Outer"]; got.size != 80 {
		t.Errorf("Outer size = %d, want 80", got.size)
	}
}

func TestPrimitiveLayout(t *testing.T) {
	tests := map[string]wgslTypeLayout{
		"f32":             {4, 4},
		"f16":             {2, 2},
		"vec2<f32>":       {8, 8},
		"vec3f":           {12, 16},
		"vec3<u32>":       {12, 16},
		"vec4h":           {8, 8},
		"mat3x3<f32>":     {48, 16},
		"mat4x4f":         {64, 16},
		"mat2x3f":         {32, 16},
		"mat4x2<f32>":     {32, 8},
		"atomic<u32>":     {4, 4},
		"array<vec3f, 2>": {32, 16},
	}
	for name, want := range tests {
		got, ok := resolveTypeLayout(name, nil)
		if !ok || got != want {
			t.Errorf("%s = %+v (%v), want %+v", name, got, ok, want)
		}
	}
	for _, name := range []string{"vec5f", "mat4f", "Camera", "texture_2d<f32>"} {
		if _, ok := resolveTypeLayout(name, nil); ok {
			t.Errorf("%s resolved, want unknown", name)
		}
	}
}

func TestStripCommentsKeepsLines(t *testing.T) {
	src := "a // one\n/* two\nthree */ b\nc"
	if got := stripComments(src); got != "a \n\n b\nc" {
		t.Errorf("stripComments = %q", got)
	}
}
