package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option applied to a provider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithSharedTextureView binds a view owned elsewhere, see ShareTextureView.
//
// Parameters:
//   - binding: the binding index
//   - tv: the shared view
//
// Returns:
//   - BindGroupProviderOption: a function that applies the option
func WithSharedTextureView(binding int, tv *wgpu.TextureView) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.textureViews[binding] = tv
		p.sharedViews[binding] = true
	}
}

// WithSharedSampler binds a sampler owned elsewhere, see ShareSampler.
//
// Parameters:
//   - binding: the binding index
//   - s: the shared sampler
//
// Returns:
//   - BindGroupProviderOption: a function that applies the option
func WithSharedSampler(binding int, s *wgpu.Sampler) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.samplers[binding] = s
		p.sharedSamplers[binding] = true
	}
}
