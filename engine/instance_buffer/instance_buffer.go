// Package instance_buffer bridges the physics world and the instanced draw. It owns one
// pre-allocated transform row and one color triple per dynamic body.
package instance_buffer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/Carmen-Shannon/gemfall/engine/physics"
	"github.com/go-gl/mathgl/mgl32"
)

// RowFloats is the number of floats in one transform row.
const RowFloats = 16

// TransformSource is the read side of the physics world the buffer needs.
type TransformSource interface {
	Transform(id physics.BodyID) (mgl32.Vec3, mgl32.Quat)
	Steps() uint64
}

// InstanceBuffer is the per-frame transform and color array consumed by the renderer.
// Row i always describes the body at index i of the ids the buffer was created with.
type InstanceBuffer interface {
	// Update rewrites every transform row from src without allocating, then stamps the buffer
	// with src.Steps().
	//
	// Parameters:
	//   - src: the transform source, normally the physics world
	Update(src TransformSource)

	// Len returns the number of instances.
	//
	// Returns:
	//   - int: the instance count
	Len() int

	// Transforms returns the flat transform array, RowFloats per instance.
	// The slice aliases the buffer and must be treated as read-only.
	//
	// Returns:
	//   - []float32: the transform rows
	Transforms() []float32

	// Colors returns the flat linear RGB array, 3 floats per instance.
	// The slice aliases the buffer and must be treated as read-only.
	//
	// Returns:
	//   - []float32: the colors
	Colors() []float32

	// TransformBytes returns a byte view of Transforms for GPU upload.
	//
	// Returns:
	//   - []byte: the transform rows as bytes
	TransformBytes() []byte

	// ColorBytes returns a byte view of Colors for GPU upload.
	//
	// Returns:
	//   - []byte: the colors as bytes
	ColorBytes() []byte

	// Row returns the transform row of instance i.
	//
	// Parameters:
	//   - i: instance index
	//
	// Returns:
	//   - []float32: the 16 floats of the model matrix
	Row(i int) []float32

	// Frame returns the physics step count recorded by the last Update.
	//
	// Returns:
	//   - uint64: the step stamp
	Frame() uint64
}

var _ InstanceBuffer = &instanceBuffer{}

type instanceBuffer struct {
	mu         sync.RWMutex
	ids        []physics.BodyID
	scales     []mgl32.Vec3
	transforms []float32
	colors     []float32
	frame      uint64
}

// NewInstanceBuffer allocates the buffer for len(ids) instances and copies the colors once.
//
// Parameters:
//   - ids: the body of each instance, in instance order
//   - scales: the scale of each instance
//   - colors: linear RGB, 3 floats per instance
//
// Returns:
//   - InstanceBuffer: the buffer
//   - error: error if the slice lengths disagree or there are no instances
func NewInstanceBuffer(ids []physics.BodyID, scales []mgl32.Vec3, colors []float32) (InstanceBuffer, error) {
	n := len(ids)
	if n == 0 {
		return nil, fmt.Errorf("instance buffer needs at least one instance")
	}
	if len(scales) != n {
		return nil, fmt.Errorf("got %d scales for %d instances", len(scales), n)
	}
	if len(colors) != 3*n {
		return nil, fmt.Errorf("got %d color floats for %d instances, want %d", len(colors), n, 3*n)
	}

	b := &instanceBuffer{
		ids:        append([]physics.BodyID(nil), ids...),
		scales:     append([]mgl32.Vec3(nil), scales...),
		transforms: make([]float32, n*RowFloats),
		colors:     append([]float32(nil), colors...),
	}
	for i := 0; i < n; i++ {
		common.Identity(b.transforms[i*RowFloats : (i+1)*RowFloats])
	}
	return b, nil
}

func (b *instanceBuffer) Update(src TransformSource) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, id := range b.ids {
		p, q := src.Transform(id)
		s := b.scales[i]
		common.ComposeTRS(b.transforms[i*RowFloats:(i+1)*RowFloats],
			p[0], p[1], p[2],
			q.V[0], q.V[1], q.V[2], q.W,
			s[0], s[1], s[2])
	}
	b.frame = src.Steps()
}

func (b *instanceBuffer) Len() int {
	return len(b.ids)
}

func (b *instanceBuffer) Transforms() []float32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.transforms
}

func (b *instanceBuffer) Colors() []float32 {
	return b.colors
}

func (b *instanceBuffer) TransformBytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return common.SliceToBytes(b.transforms)
}

func (b *instanceBuffer) ColorBytes() []byte {
	return common.SliceToBytes(b.colors)
}

func (b *instanceBuffer) Row(i int) []float32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.transforms[i*RowFloats : (i+1)*RowFloats]
}

func (b *instanceBuffer) Frame() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frame
}
