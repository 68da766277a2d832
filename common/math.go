package common

import (
	"math"
	"unsafe"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Perspective writes a right-handed perspective projection whose clip depth runs from 0 at the
// near plane to 1 at the far plane, as WebGPU expects. mgl32.Perspective targets OpenGL's
// [-1, 1] depth and cannot be used here.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: width over height
//   - near, far: clip plane distances, 0 < near < far
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	Identity(out)

	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	out[15] = 0.0
}

// Orthographic writes a right-handed orthographic projection with the same [0, 1] clip depth
// as Perspective.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - left, right, bottom, top: the view volume's side planes
//   - near, far: clip plane distances along the view direction
func Orthographic(out []float32, left, right, bottom, top, near, far float32) {
	Identity(out)

	out[0] = 2 / (right - left)
	out[5] = 2 / (top - bottom)
	out[10] = 1 / (near - far)
	out[12] = -(right + left) / (right - left)
	out[13] = -(top + bottom) / (top - bottom)
	out[14] = near / (near - far)
}

// ComposeTRS writes a 4x4 model matrix built from a translation, a unit quaternion rotation and a
// per-axis scale. The result equals T * R * S in column-major order.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - px, py, pz: translation in world space
//   - qx, qy, qz, qw: rotation quaternion (vector part then scalar part)
//   - sx, sy, sz: scale factors along each local axis
func ComposeTRS(out []float32, px, py, pz, qx, qy, qz, qw, sx, sy, sz float32) {
	xx, yy, zz := qx*qx, qy*qy, qz*qz
	xy, xz, yz := qx*qy, qx*qz, qy*qz
	wx, wy, wz := qw*qx, qw*qy, qw*qz

	out[0] = (1 - 2*(yy+zz)) * sx
	out[1] = 2 * (xy + wz) * sx
	out[2] = 2 * (xz - wy) * sx
	out[3] = 0

	out[4] = 2 * (xy - wz) * sy
	out[5] = (1 - 2*(xx+zz)) * sy
	out[6] = 2 * (yz + wx) * sy
	out[7] = 0

	out[8] = 2 * (xz + wy) * sz
	out[9] = 2 * (yz - wx) * sz
	out[10] = (1 - 2*(xx+yy)) * sz
	out[11] = 0

	out[12] = px
	out[13] = py
	out[14] = pz
	out[15] = 1
}

// TransformPoint multiplies the point (x, y, z, 1) by a column-major 4x4 matrix and performs the
// perspective divide when w is not 1.
//
// Parameters:
//   - m: source matrix (16 elements, column-major)
//   - x, y, z: the point to transform
//
// Returns:
//   - float32, float32, float32: the transformed point
//   - float32: the clip-space w before the divide
func TransformPoint(m []float32, x, y, z float32) (float32, float32, float32, float32) {
	tx := m[0]*x + m[4]*y + m[8]*z + m[12]
	ty := m[1]*x + m[5]*y + m[9]*z + m[13]
	tz := m[2]*x + m[6]*y + m[10]*z + m[14]
	tw := m[3]*x + m[7]*y + m[11]*z + m[15]
	if tw != 0 && tw != 1 {
		return tx / tw, ty / tw, tz / tw, tw
	}
	return tx, ty, tz, tw
}
