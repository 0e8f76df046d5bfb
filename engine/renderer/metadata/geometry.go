package metadata

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is the layout consumed by the geometry pipeline: position at
// location 0, color at location 1 and texture coordinates at location 2.
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

var (
	VertexSize         = uint32(binary.Size(Vertex{}))
	VertexColorOffset  = uint32(binary.Size(mgl32.Vec3{}))
	VertexTexUVsOffset = uint32(2 * binary.Size(mgl32.Vec3{}))
)

/**
 * @brief Represents the configuration for one mesh of a scene.
 */
type GeometryConfig struct {
	/** @brief The Name of the geometry. */
	Name string
	/** @brief An array of Vertices. */
	Vertices []Vertex
	/** @brief An array of Indices. */
	Indices []uint32
	/** @brief Index into the scene's material list. */
	MaterialIndex int
}

// VertexBytes serializes vertices the way they are laid out in the vertex buffer.
func VertexBytes(vertices []Vertex) []byte {
	out := make([]byte, 0, len(vertices)*int(VertexSize))
	out, _ = binary.Append(out, binary.LittleEndian, vertices)
	return out
}

func IndexBytes(indices []uint32) []byte {
	out := make([]byte, 0, len(indices)*4)
	out, _ = binary.Append(out, binary.LittleEndian, indices)
	return out
}
