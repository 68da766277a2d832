package loader

// gltfDocument is the subset of a glTF 2.0 document needed to pull triangle geometry out of it.
// Materials, textures, skins and animations are ignored by json.Unmarshal.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
type gltfDocument struct {
	Asset gltfAsset `json:"asset"`

	// Scene is the default scene index, nil when the file does not name one.
	Scene *int `json:"scene,omitempty"`

	Scenes []gltfScene `json:"scenes,omitempty"`

	Nodes []gltfNode `json:"nodes,omitempty"`

	Meshes []gltfMesh `json:"meshes,omitempty"`

	Accessors []gltfAccessor `json:"accessors,omitempty"`

	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`

	Buffers []gltfBuffer `json:"buffers,omitempty"`

	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`
}

type gltfAsset struct {
	Version string `json:"version"`

	Generator string `json:"generator,omitempty"`
}

type gltfScene struct {
	Name string `json:"name,omitempty"`

	Nodes []int `json:"nodes,omitempty"`
}

// gltfNode is a scene graph node. A node carries either Matrix or any of the TRS fields.
type gltfNode struct {
	Name string `json:"name,omitempty"`

	Children []int `json:"children,omitempty"`

	Mesh *int `json:"mesh,omitempty"`

	Matrix *[16]float32 `json:"matrix,omitempty"`

	Translation *[3]float32 `json:"translation,omitempty"`

	// Rotation is a unit quaternion in (x, y, z, w) order.
	Rotation *[4]float32 `json:"rotation,omitempty"`

	Scale *[3]float32 `json:"scale,omitempty"`
}

type gltfMesh struct {
	Name string `json:"name,omitempty"`

	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`

	Indices *int `json:"indices,omitempty"`

	// Mode defaults to triangles when absent.
	Mode *int `json:"mode,omitempty"`
}

const (
	gltfPrimitiveModeTriangles = 4

	gltfAttributePosition = "POSITION"
)

type gltfAccessor struct {
	Name string `json:"name,omitempty"`

	BufferView *int `json:"bufferView,omitempty"`

	ByteOffset int `json:"byteOffset,omitempty"`

	ComponentType int `json:"componentType"`

	Count int `json:"count"`

	Type string `json:"type"`

	Sparse *gltfAccessorSparse `json:"sparse,omitempty"`
}

const (
	gltfComponentTypeByte          = 5120
	gltfComponentTypeUnsignedByte  = 5121
	gltfComponentTypeShort         = 5122
	gltfComponentTypeUnsignedShort = 5123
	gltfComponentTypeUnsignedInt   = 5125
	gltfComponentTypeFloat         = 5126
)

const (
	gltfAccessorTypeScalar = "SCALAR"
	gltfAccessorTypeVec2   = "VEC2"
	gltfAccessorTypeVec3   = "VEC3"
	gltfAccessorTypeVec4   = "VEC4"
	gltfAccessorTypeMat4   = "MAT4"
)

type gltfAccessorSparse struct {
	Count int `json:"count"`
}

type gltfBufferView struct {
	Buffer int `json:"buffer"`

	ByteOffset int `json:"byteOffset,omitempty"`

	ByteLength int `json:"byteLength"`

	ByteStride *int `json:"byteStride,omitempty"`
}

type gltfBuffer struct {
	URI string `json:"uri,omitempty"`

	ByteLength int `json:"byteLength"`

	// Data is filled by the parser from the URI or the GLB binary chunk.
	Data []byte `json:"-"`
}

// GLB container constants.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
type gltfGLBHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

type gltfGLBChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32
}

const (
	gltfGLBMagic     = 0x46546C67 // "glTF"
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON"
	gltfGLBChunkBIN  = 0x004E4942 // "BIN\0"
)
