package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies a shader stage.
type ShaderType int

const (
	// ShaderTypeCompute indicates a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex indicates a @vertex entry point.
	ShaderTypeVertex

	// ShaderTypeFragment indicates a @fragment entry point.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface.
// One shader holds one WGSL module, which may carry several entry points per stage.
type shader struct {
	key                        string
	source                     string
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	entryPoints                map[ShaderType][]string
	module                     *wgpu.ShaderModuleDescriptor
	declarations               []Annotation
}

// Shader is a pre-processed and reflected WGSL module. It exposes everything pipeline creation
// needs: the module descriptor, the entry points per stage, and the bind group layouts derived
// from the source's resource declarations.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used as the module label.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source.
	//
	// Returns:
	//   - string: the WGSL source code
	Source() string

	// BindGroupLayoutDescriptor retrieves the layout descriptor for one bind group.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if the group is unused
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves every reflected layout descriptor keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name declared at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if nothing is declared there
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index of a variable within a group.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name
	//
	// Returns:
	//   - int: the binding index, or -1 if not found
	//   - bool: true if the variable was found
	BindGroupFromVarName(group int, varName string) (int, bool)

	// EntryPoint returns the first entry point of a stage.
	//
	// Parameters:
	//   - shaderType: the stage
	//
	// Returns:
	//   - string: the entry point name, or an empty string if the stage has none
	EntryPoint(shaderType ShaderType) string

	// EntryPoints returns every entry point of a stage in source order.
	//
	// Parameters:
	//   - shaderType: the stage
	//
	// Returns:
	//   - []string: the entry point names
	EntryPoints(shaderType ShaderType) []string

	// HasEntryPoint reports whether the module defines the named entry point for a stage.
	HasEntryPoint(shaderType ShaderType, name string) bool

	// Module returns the shader module descriptor.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor carrying the processed WGSL
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the binding annotations collected while pre-processing.
	//
	// Returns:
	//   - []Annotation: the group annotations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and reflects WGSL source.
// Bind group entries are visible to both the vertex and fragment stages, or to the compute
// stage when the module has a compute entry point.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - source: WGSL source, optionally carrying @gem: annotations
//
// Returns:
//   - Shader: the reflected shader
//   - error: an error if pre-processing fails or the source has no entry point
func NewShader(key string, source string) (Shader, error) {
	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: failed to pre-process source: %w", key, err)
	}

	s := &shader{
		key:          key,
		source:       processed,
		entryPoints:  make(map[ShaderType][]string),
		declarations: append([]Annotation(nil), pp.Declarations()...),
		module: &wgpu.ShaderModuleDescriptor{
			Label:          key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: processed},
		},
	}
	for _, st := range []ShaderType{ShaderTypeVertex, ShaderTypeFragment, ShaderTypeCompute} {
		if names := parseEntryPoints(processed, st); len(names) > 0 {
			s.entryPoints[st] = names
		}
	}
	if len(s.entryPoints) == 0 {
		return nil, fmt.Errorf("shader %s: source has no entry point", key)
	}

	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	if len(s.entryPoints[ShaderTypeCompute]) > 0 {
		visibility = wgpu.ShaderStageCompute
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(processed, visibility)
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) EntryPoint(shaderType ShaderType) string {
	if names := s.entryPoints[shaderType]; len(names) > 0 {
		return names[0]
	}
	return ""
}

func (s *shader) EntryPoints(shaderType ShaderType) []string {
	return s.entryPoints[shaderType]
}

func (s *shader) HasEntryPoint(shaderType ShaderType, name string) bool {
	for _, n := range s.entryPoints[shaderType] {
		if n == name {
			return true
		}
	}
	return false
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
