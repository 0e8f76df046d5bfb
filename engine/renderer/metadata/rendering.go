package metadata

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
)

// ViewProjection is the per-image uniform shared by every draw of a frame.
type ViewProjection struct {
	Projection mgl32.Mat4
	View       mgl32.Mat4
}

var ViewProjectionSize = uint64(binary.Size(ViewProjection{}))

// Bytes serializes the uniform in std140 order (two column-major mat4).
func (vp *ViewProjection) Bytes() []byte {
	out := make([]byte, 0, ViewProjectionSize)
	out, _ = binary.Append(out, binary.LittleEndian, vp)
	return out
}

// vulkanClip maps OpenGL clip space onto Vulkan's: Y points down and depth
// runs from 0 to 1.
var vulkanClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Perspective is mgl32.Perspective followed by the Vulkan clip correction.
func Perspective(fovy, aspect, near, far float32) mgl32.Mat4 {
	return vulkanClip.Mul4(mgl32.Perspective(fovy, aspect, near, far))
}
