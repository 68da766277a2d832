package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func intPtr(v int) *int { return &v }

// octahedron returns a unit octahedron as little-endian float positions followed by uint16
// indices, and the byte length of the position block.
func octahedron() ([]byte, int) {
	pts := [][3]float32{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	var idx []uint16
	for _, x := range []uint16{0, 1} {
		for _, y := range []uint16{2, 3} {
			for _, z := range []uint16{4, 5} {
				idx = append(idx, x, y, z)
			}
		}
	}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, pts)
	posLen := buf.Len()
	_ = binary.Write(&buf, binary.LittleEndian, idx)
	return buf.Bytes(), posLen
}

// octahedronDoc describes the octahedron as mesh 0 referenced by the given nodes.
func octahedronDoc(binLen, posLen int, nodes []gltfNode, roots []int) gltfDocument {
	return gltfDocument{
		Asset:  gltfAsset{Version: "2.0"},
		Scene:  intPtr(0),
		Scenes: []gltfScene{{Nodes: roots}},
		Nodes:  nodes,
		Meshes: []gltfMesh{{
			Name: "Octa",
			Primitives: []gltfPrimitive{{
				Attributes: map[string]int{"POSITION": 0},
				Indices:    intPtr(1),
			}},
		}},
		Accessors: []gltfAccessor{
			{BufferView: intPtr(0), ComponentType: gltfComponentTypeFloat, Count: 6, Type: gltfAccessorTypeVec3},
			{BufferView: intPtr(1), ComponentType: gltfComponentTypeUnsignedShort, Count: 24, Type: gltfAccessorTypeScalar},
		},
		BufferViews: []gltfBufferView{
			{Buffer: 0, ByteLength: posLen},
			{Buffer: 0, ByteOffset: posLen, ByteLength: binLen - posLen},
		},
		Buffers: []gltfBuffer{{ByteLength: binLen}},
	}
}

func marshalGLTF(t *testing.T, doc gltfDocument, bin []byte) []byte {
	t.Helper()
	doc.Buffers[0].URI = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin)
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func marshalGLB(t *testing.T, doc gltfDocument, bin []byte) []byte {
	t.Helper()
	jsonData, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	for len(jsonData)%4 != 0 {
		jsonData = append(jsonData, ' ')
	}
	binData := append([]byte(nil), bin...)
	for len(binData)%4 != 0 {
		binData = append(binData, 0)
	}

	var out bytes.Buffer
	total := 12 + 8 + len(jsonData) + 8 + len(binData)
	_ = binary.Write(&out, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(total)})
	_ = binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(jsonData)), ChunkType: gltfGLBChunkJSON})
	out.Write(jsonData)
	_ = binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(binData)), ChunkType: gltfGLBChunkBIN})
	out.Write(binData)
	return out.Bytes()
}

func TestLoadReaderSceneRecentresAndRescales(t *testing.T) {
	bin, posLen := octahedron()
	doc := octahedronDoc(len(bin), posLen, []gltfNode{{
		Name:        "Gem",
		Mesh:        intPtr(0),
		Translation: &[3]float32{5, 2, -1},
	}}, []int{0})

	l := NewLoader(WithTargetRadius(0.5))
	m, err := l.LoadReader("octa", bytes.NewReader(marshalGLTF(t, doc, bin)), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if m.TriangleCount() != 8 {
		t.Errorf("got %d triangles, want 8", m.TriangleCount())
	}
	if !mgl32.FloatEqualThreshold(m.BoundingRadius(), 0.5, 1e-5) {
		t.Errorf("bounding radius %v, want 0.5", m.BoundingRadius())
	}
	for _, p := range m.Positions() {
		if p.Len() > 0.5+1e-5 {
			t.Fatalf("position %v lies outside the target radius", p)
		}
	}
	if l.Get("octa") != m {
		t.Error("mesh was not cached under its name")
	}
}

func TestLoadReaderGLBNamedNode(t *testing.T) {
	bin, posLen := octahedron()
	doc := octahedronDoc(len(bin), posLen, []gltfNode{
		{Name: "Root", Children: []int{1}},
		{Name: "Diamond_1_0", Mesh: intPtr(0), Scale: &[3]float32{3, 3, 3}},
	}, []int{0})

	l := NewLoader(WithNode("Diamond_1_0"))
	m, err := l.LoadReader("dflat", bytes.NewReader(marshalGLB(t, doc, bin)), true)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if m.Name() != "Diamond_1_0" {
		t.Errorf("mesh name %q", m.Name())
	}
	// A named node contributes its geometry without its transform.
	if !mgl32.FloatEqualThreshold(m.BoundingRadius(), 1, 1e-5) {
		t.Errorf("bounding radius %v, want 1", m.BoundingRadius())
	}
}

func TestLoadReaderNodeFallsBackToMeshName(t *testing.T) {
	bin, posLen := octahedron()
	doc := octahedronDoc(len(bin), posLen, []gltfNode{{Mesh: intPtr(0)}}, []int{0})

	_, err := NewLoader(WithNode("Octa")).LoadReader("octa", bytes.NewReader(marshalGLTF(t, doc, bin)), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
}

func TestLoadReaderMissingNode(t *testing.T) {
	bin, posLen := octahedron()
	doc := octahedronDoc(len(bin), posLen, []gltfNode{{Name: "Gem", Mesh: intPtr(0)}}, []int{0})

	_, err := NewLoader(WithNode("Diamond_1_0")).LoadReader("octa", bytes.NewReader(marshalGLTF(t, doc, bin)), false)
	if !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("got %v, want ErrNodeNotFound", err)
	}
}

func TestSceneAppliesNodeHierarchy(t *testing.T) {
	bin, posLen := octahedron()
	doc := octahedronDoc(len(bin), posLen, []gltfNode{
		{Name: "Parent", Children: []int{1}, Scale: &[3]float32{2, 2, 2}},
		{Name: "Child", Mesh: intPtr(0), Translation: &[3]float32{0, 4, 0}},
	}, []int{0})

	m, err := NewLoader().LoadReader("octa", bytes.NewReader(marshalGLTF(t, doc, bin)), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if !mgl32.FloatEqualThreshold(m.BoundingRadius(), 2, 1e-5) {
		t.Errorf("bounding radius %v, want 2", m.BoundingRadius())
	}
}

func TestNonTrianglePrimitivesAreSkipped(t *testing.T) {
	bin, posLen := octahedron()
	doc := octahedronDoc(len(bin), posLen, []gltfNode{{Mesh: intPtr(0)}}, []int{0})
	doc.Meshes[0].Primitives[0].Mode = intPtr(1) // lines

	_, err := NewLoader().LoadReader("octa", bytes.NewReader(marshalGLTF(t, doc, bin)), false)
	if !errors.Is(err, errNoTriangles) {
		t.Fatalf("got %v, want errNoTriangles", err)
	}
}

func TestAccessorPastBufferEnd(t *testing.T) {
	bin, posLen := octahedron()
	doc := octahedronDoc(len(bin), posLen, []gltfNode{{Mesh: intPtr(0)}}, []int{0})
	doc.Accessors[0].Count = 100

	_, err := NewLoader().LoadReader("octa", bytes.NewReader(marshalGLTF(t, doc, bin)), false)
	if !errors.Is(err, errAccessorOutOfRange) {
		t.Fatalf("got %v, want errAccessorOutOfRange", err)
	}
}

func TestInterleavedPositions(t *testing.T) {
	// Three points of a triangle interleaved with a float pad, stride 16.
	var buf bytes.Buffer
	for _, p := range [][4]float32{{0, 0, 0, 9}, {1, 0, 0, 9}, {0, 1, 0, 9}} {
		_ = binary.Write(&buf, binary.LittleEndian, p)
	}
	doc := gltfDocument{
		Asset:       gltfAsset{Version: "2.0"},
		Accessors:   []gltfAccessor{{BufferView: intPtr(0), ComponentType: gltfComponentTypeFloat, Count: 3, Type: gltfAccessorTypeVec3}},
		BufferViews: []gltfBufferView{{Buffer: 0, ByteLength: buf.Len(), ByteStride: intPtr(16)}},
		Buffers:     []gltfBuffer{{ByteLength: buf.Len()}},
	}

	p := newGLTFParser()
	if err := p.ParseReader(bytes.NewReader(marshalGLTF(t, doc, buf.Bytes())), false); err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	got, err := p.ReadVec3Accessor(0)
	if err != nil {
		t.Fatalf("ReadVec3Accessor: %v", err)
	}
	want := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRejectsWrongVersionAndMagic(t *testing.T) {
	p := newGLTFParser()
	if err := p.ParseReader(bytes.NewReader([]byte(`{"asset":{"version":"1.0"}}`)), false); !errors.Is(err, errInvalidGLTFVersion) {
		t.Errorf("got %v, want errInvalidGLTFVersion", err)
	}
	bad := make([]byte, 12)
	if err := p.ParseReader(bytes.NewReader(bad), true); !errors.Is(err, errInvalidGLBMagic) {
		t.Errorf("got %v, want errInvalidGLBMagic", err)
	}
}

func TestLoadFileCachesByPath(t *testing.T) {
	bin, posLen := octahedron()
	doc := octahedronDoc(len(bin), posLen, []gltfNode{{Mesh: intPtr(0)}}, []int{0})

	// External buffer next to the .gltf file.
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "octa.bin"), bin, 0o644); err != nil {
		t.Fatal(err)
	}
	doc.Buffers[0].URI = "octa.bin"
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "octa.gltf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader()
	first, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := l.Load(path)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if first != second {
		t.Error("second Load did not return the cached mesh")
	}
	if first.Name() != "octa" {
		t.Errorf("mesh name %q, want file stem", first.Name())
	}
	if len(l.Meshes()) != 1 {
		t.Errorf("cache holds %d meshes", len(l.Meshes()))
	}
	if _, err := l.Load(filepath.Join(dir, "octa.obj")); err == nil {
		t.Error("expected an error for an unsupported extension")
	}
}

func TestNormalizeKeepsUnitsWithoutTarget(t *testing.T) {
	pts := []mgl32.Vec3{{2, 2, 2}, {4, 2, 2}, {3, 5, 2}}
	normalize(pts, 0)
	// Bounding box centre (3, 3.5, 2) moves to the origin.
	if pts[0] != (mgl32.Vec3{-1, -1.5, 0}) {
		t.Errorf("got %v", pts[0])
	}
	if d := pts[1].Sub(pts[0]).Len(); math.Abs(float64(d)-2) > 1e-6 {
		t.Errorf("scale changed: edge length %v", d)
	}
}
