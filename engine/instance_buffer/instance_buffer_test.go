package instance_buffer

import (
	"testing"
	"unsafe"

	"github.com/Carmen-Shannon/gemfall/engine/physics"
	"github.com/go-gl/mathgl/mgl32"
)

type fakeSource struct {
	pos   map[physics.BodyID]mgl32.Vec3
	steps uint64
}

func (f *fakeSource) Transform(id physics.BodyID) (mgl32.Vec3, mgl32.Quat) {
	return f.pos[id], mgl32.QuatIdent()
}

func (f *fakeSource) Steps() uint64 {
	return f.steps
}

func newTestBuffer(t *testing.T, n int) (InstanceBuffer, []physics.BodyID) {
	t.Helper()
	ids := make([]physics.BodyID, n)
	scales := make([]mgl32.Vec3, n)
	colors := make([]float32, 3*n)
	for i := range ids {
		ids[i] = physics.BodyID(i)
		scales[i] = mgl32.Vec3{1, 1, 1}
		colors[3*i] = float32(i)
	}
	buf, err := NewInstanceBuffer(ids, scales, colors)
	if err != nil {
		t.Fatal(err)
	}
	return buf, ids
}

func TestInstanceBufferSizes(t *testing.T) {
	for _, n := range []int{1, 2, 7, 100} {
		buf, _ := newTestBuffer(t, n)
		if buf.Len() != n {
			t.Errorf("n=%d: Len = %d", n, buf.Len())
		}
		if got := len(buf.Transforms()); got != n*RowFloats {
			t.Errorf("n=%d: %d transform floats, want %d", n, got, n*RowFloats)
		}
		if got := len(buf.Colors()); got != 3*n {
			t.Errorf("n=%d: %d color floats, want %d", n, got, 3*n)
		}
		if got := len(buf.TransformBytes()); got != n*64 {
			t.Errorf("n=%d: %d transform bytes, want %d", n, got, n*64)
		}
		if got := len(buf.ColorBytes()); got != n*ColorStride {
			t.Errorf("n=%d: %d color bytes, want %d", n, got, n*ColorStride)
		}
	}
}

func TestNewInstanceBufferRejectsMismatch(t *testing.T) {
	ids := []physics.BodyID{0, 1}
	scales := []mgl32.Vec3{{1, 1, 1}, {1, 1, 1}}
	if _, err := NewInstanceBuffer(nil, nil, nil); err == nil {
		t.Error("expected error for zero instances")
	}
	if _, err := NewInstanceBuffer(ids, scales[:1], make([]float32, 6)); err == nil {
		t.Error("expected error for missing scale")
	}
	if _, err := NewInstanceBuffer(ids, scales, make([]float32, 5)); err == nil {
		t.Error("expected error for short color buffer")
	}
}

func TestUpdateWritesRowsInIDOrder(t *testing.T) {
	ids := []physics.BodyID{3, 1, 2}
	scales := []mgl32.Vec3{{1, 1, 1}, {2, 2, 2}, {1, 1, 1}}
	buf, err := NewInstanceBuffer(ids, scales, make([]float32, 9))
	if err != nil {
		t.Fatal(err)
	}
	src := &fakeSource{pos: map[physics.BodyID]mgl32.Vec3{
		1: {10, 0, 0},
		2: {20, 0, 0},
		3: {30, 0, 0},
	}, steps: 5}

	buf.Update(src)
	for i, id := range ids {
		row := buf.Row(i)
		if row[12] != src.pos[id][0] {
			t.Errorf("row %d translation = %v, want body %d at %v", i, row[12], id, src.pos[id][0])
		}
	}
	if buf.Row(1)[0] != 2 {
		t.Errorf("row 1 scale = %v, want 2", buf.Row(1)[0])
	}
	if buf.Frame() != 5 {
		t.Errorf("Frame = %d, want 5", buf.Frame())
	}
}

func TestUpdateDoesNotAllocate(t *testing.T) {
	buf, ids := newTestBuffer(t, 100)
	src := &fakeSource{pos: make(map[physics.BodyID]mgl32.Vec3)}
	for _, id := range ids {
		src.pos[id] = mgl32.Vec3{float32(id), 1, 2}
	}

	before := &buf.Transforms()[0]
	allocs := testing.AllocsPerRun(50, func() {
		src.steps++
		buf.Update(src)
	})
	if allocs != 0 {
		t.Errorf("Update allocated %v times per run", allocs)
	}
	if &buf.Transforms()[0] != before {
		t.Error("Update replaced the transform storage")
	}
}

func TestColorsAreCopiedOnce(t *testing.T) {
	colors := []float32{1, 0, 0}
	buf, err := NewInstanceBuffer([]physics.BodyID{0}, []mgl32.Vec3{{1, 1, 1}}, colors)
	if err != nil {
		t.Fatal(err)
	}
	colors[0] = 0.5
	buf.Update(&fakeSource{pos: map[physics.BodyID]mgl32.Vec3{}})
	if buf.Colors()[0] != 1 {
		t.Errorf("color changed to %v after the caller mutated its slice", buf.Colors()[0])
	}
}

func TestGPUInstanceLayout(t *testing.T) {
	var g GPUInstance
	if g.Size() != 64 || int(unsafe.Sizeof(g)) != 64 {
		t.Fatalf("GPUInstance size = %d, want 64", g.Size())
	}
	g.Model[15] = 1
	b := g.Marshal()
	if len(b) != 64 || b[60] != 0x00 || b[63] != 0x3f {
		t.Errorf("unexpected encoding of 1.0 in the last column: % x", b[60:64])
	}
}

func TestVertexBufferLayoutsMatchStrides(t *testing.T) {
	layouts := VertexBufferLayouts()
	if len(layouts) != 2 {
		t.Fatalf("got %d layouts, want 2", len(layouts))
	}
	var g GPUInstance
	if layouts[0].ArrayStride != uint64(g.Size()) || layouts[1].ArrayStride != ColorStride {
		t.Errorf("strides = %d/%d", layouts[0].ArrayStride, layouts[1].ArrayStride)
	}
	want := uint32(2)
	for _, l := range layouts {
		for _, a := range l.Attributes {
			if a.ShaderLocation != want {
				t.Errorf("location %d, want %d", a.ShaderLocation, want)
			}
			want++
		}
	}
}
