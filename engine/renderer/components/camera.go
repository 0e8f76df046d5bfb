package components

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/metadata"
)

/**
 * @brief Represents the camera the view-projection uniform is built from.
 */
type Camera struct {
	/**
	 * @brief The position of this camera.
	 * NOTE: Do not set this directly, use SetPosition() instead
	 * so the view matrix is recalculated when needed.
	 */
	Position mgl32.Vec3
	/**
	 * @brief The rotation of this camera using Euler angles (pitch, yaw, roll).
	 * NOTE: Do not set this directly, use SetEulerRotation() instead.
	 */
	EulerRotation mgl32.Vec3
	// Vertical field of view in degrees.
	FieldOfView float32
	Near        float32
	Far         float32

	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty    bool
	ViewMatrix mgl32.Mat4
}

// pitch limit, 89 degrees
const pitchLimit = float32(1.55334306)

// NewCamera looks down -Z from z=5 at the origin with a 45 degree field of view.
func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.EulerRotation = mgl32.Vec3{}
	c.Position = mgl32.Vec3{0, 0, 5}
	c.FieldOfView = 45
	c.Near = 0.1
	c.Far = 1000
	c.IsDirty = true
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.Position = position
	c.IsDirty = true
}

// SetEulerRotation takes radians. Pitch is clamped short of straight up or down.
func (c *Camera) SetEulerRotation(rotation mgl32.Vec3) {
	rotation[0] = mgl32.Clamp(rotation[0], -pitchLimit, pitchLimit)
	c.EulerRotation = rotation
	c.IsDirty = true
}

func (c *Camera) GetView() mgl32.Mat4 {
	if c.IsDirty {
		rotation := mgl32.AnglesToQuat(c.EulerRotation[0], c.EulerRotation[1], c.EulerRotation[2], mgl32.XYZ).Mat4()
		translation := mgl32.Translate3D(c.Position[0], c.Position[1], c.Position[2])

		c.ViewMatrix = translation.Mul4(rotation).Inv()
		c.IsDirty = false
	}
	return c.ViewMatrix
}

// ViewProjection builds the uniform for a framebuffer of width x height.
func (c *Camera) ViewProjection(width, height uint32) metadata.ViewProjection {
	aspect := float32(1)
	if height != 0 {
		aspect = float32(width) / float32(height)
	}
	return metadata.ViewProjection{
		Projection: metadata.Perspective(mgl32.DegToRad(c.FieldOfView), aspect, c.Near, c.Far),
		View:       c.GetView(),
	}
}
