package renderer

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// The functions in this file turn renderer state into WebGPU descriptors. They touch no GPU
// objects beyond the ones passed in.

// surfaceConfiguration picks the swapchain setup for a size. The first reported format and
// alpha mode are used; a present mode the surface does not offer falls back to FIFO, which
// every surface supports.
func surfaceConfiguration(caps wgpu.SurfaceCapabilities, width, height int, mode wgpu.PresentMode) (*wgpu.SurfaceConfiguration, error) {
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		return nil, fmt.Errorf("surface reports no formats or alpha modes")
	}
	if !slices.Contains(caps.PresentModes, mode) {
		mode = wgpu.PresentModeFifo
	}
	return &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: mode,
		AlphaMode:   caps.AlphaModes[0],
	}, nil
}

func wgpuPresentMode(mode PresentMode) wgpu.PresentMode {
	if mode == PresentModeUncapped {
		return wgpu.PresentModeImmediate
	}
	return wgpu.PresentModeFifo
}

// renderTargetUsage is attachment-only for the scene depth and multisampled targets, which no
// pass samples. The Depth32Float shadow map is sampled by the catcher.
func renderTargetUsage(format wgpu.TextureFormat, sampleCount uint32) wgpu.TextureUsage {
	usage := wgpu.TextureUsageRenderAttachment
	if sampleCount <= 1 && format != wgpu.TextureFormatDepth24Plus {
		usage |= wgpu.TextureUsageTextureBinding
	}
	return usage
}

func textureSize(width, height uint32) wgpu.Extent3D {
	return wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}
}

// alignBufferSize rounds up to the 4-byte multiple WebGPU requires, never returning zero.
func alignBufferSize(size uint64) uint64 {
	return max(4, (size+3)&^3)
}

func depthStencilState(p pipeline.Pipeline) *wgpu.DepthStencilState {
	if !p.DepthTestEnabled() && !p.DepthWriteEnabled() {
		return nil
	}
	compare := wgpu.CompareFunctionAlways
	if p.DepthTestEnabled() {
		compare = wgpu.CompareFunctionLess
	}
	always := wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways}
	return &wgpu.DepthStencilState{
		Format:              p.DepthFormat(),
		DepthWriteEnabled:   p.DepthWriteEnabled(),
		DepthCompare:        compare,
		DepthBias:           p.DepthBias(),
		DepthBiasSlopeScale: p.DepthBiasSlopeScale(),
		StencilFront:        always,
		StencilBack:         always,
	}
}

// renderPipelineDescriptor describes p's single-target pipeline over one shader module.
// A depth-only pipeline has no fragment stage.
func renderPipelineDescriptor(p pipeline.Pipeline, layout *wgpu.PipelineLayout, module *wgpu.ShaderModule) *wgpu.RenderPipelineDescriptor {
	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: p.VertexEntryPoint(),
			Buffers:    p.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: p.FragmentEntryPoint(),
			Targets: []wgpu.ColorTargetState{{
				Format:    p.TargetFormat(),
				WriteMask: p.WriteMask(),
				Blend:     p.BlendState(),
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		DepthStencil: depthStencilState(p),
		Multisample: wgpu.MultisampleState{
			Count: p.SampleCount(),
			Mask:  0xFFFFFFFF,
		},
	}
	if p.DepthOnly() {
		desc.Fragment = nil
	}
	return desc
}

// renderPassDescriptor clears the color attachment, unless the target loads it, and the depth
// attachment when there is one. A multisampled color is resolved and then discarded. A
// depth-only target has no color attachment and keeps its depth for later passes to sample.
func renderPassDescriptor(label string, target passTarget, frameView *wgpu.TextureView) *wgpu.RenderPassDescriptor {
	if target.depthOnly {
		return &wgpu.RenderPassDescriptor{
			Label: label,
			DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
				View:            target.depth,
				DepthLoadOp:     wgpu.LoadOpClear,
				DepthStoreOp:    wgpu.StoreOpStore,
				DepthClearValue: 1,
			},
		}
	}
	color := target.color
	if color == nil {
		color = frameView
	}
	store := wgpu.StoreOpStore
	if target.resolve != nil {
		store = wgpu.StoreOpDiscard
	}
	load := wgpu.LoadOpClear
	if target.load {
		load = wgpu.LoadOpLoad
	}
	desc := &wgpu.RenderPassDescriptor{
		Label: label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:          color,
			ResolveTarget: target.resolve,
			LoadOp:        load,
			StoreOp:       store,
			ClearValue:    target.clear,
		}},
	}
	if target.depth != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            target.depth,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1,
		}
	}
	return desc
}

// samplerDescriptor fills unset staging fields with trilinear clamp-to-edge sampling.
func samplerDescriptor(label string, s common.SamplerStagingData) *wgpu.SamplerDescriptor {
	return &wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(s.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(s.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(s.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(s.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(s.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(s.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(s.LodMinClamp, 0),
		LodMaxClamp:   common.Coalesce(s.LodMaxClamp, 32),
		MaxAnisotropy: common.Coalesce(s.MaxAnisotropy, 1),
		Compare:       s.Compare,
	}
}

// bindingKind classifies a layout entry by the resource it expects.
type bindingKind int

const (
	bindingKindUniform bindingKind = iota
	bindingKindStorage
	bindingKindTexture
	bindingKindSampler
)

func classifyBinding(entry wgpu.BindGroupLayoutEntry) bindingKind {
	switch {
	case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
		return bindingKindTexture
	case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
		return bindingKindSampler
	case entry.Buffer.Type == wgpu.BufferBindingTypeUniform:
		return bindingKindUniform
	default:
		return bindingKindStorage
	}
}

// bufferUsage is the usage of a buffer the backend allocates for a binding of kind k.
func (k bindingKind) bufferUsage() wgpu.BufferUsage {
	if k == bindingKindUniform {
		return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	}
	return wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
}
