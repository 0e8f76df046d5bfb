package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestDefaultCameraMatchesLookAt(t *testing.T) {
	c := NewCamera()
	want := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	assert.True(t, want.ApproxEqualThreshold(c.GetView(), 1e-5))
	assert.False(t, c.IsDirty)
}

func TestCameraViewIsCachedUntilMoved(t *testing.T) {
	c := NewCamera()
	first := c.GetView()

	c.SetPosition(mgl32.Vec3{1, 0, 5})
	assert.True(t, c.IsDirty)
	moved := c.GetView()
	assert.False(t, first.ApproxEqual(moved))

	// the origin ends up one unit to the left
	p := moved.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, -1, p.X(), 1e-5)
}

func TestCameraPitchClamp(t *testing.T) {
	c := NewCamera()
	c.SetEulerRotation(mgl32.Vec3{3, 0.5, 0})
	assert.Equal(t, pitchLimit, c.EulerRotation[0])
	assert.Equal(t, float32(0.5), c.EulerRotation[1])
}

func TestViewProjectionDepthRange(t *testing.T) {
	vp := NewCamera().ViewProjection(800, 600)

	project := func(z float32) mgl32.Vec4 {
		return vp.Projection.Mul4x1(mgl32.Vec4{0, 0, z, 1})
	}
	near := project(-0.1)
	far := project(-1000)

	assert.InDelta(t, 0, near.Z()/near.W(), 1e-4)
	assert.InDelta(t, 1, far.Z()/far.W(), 1e-4)

	// Up in view space is down in Vulkan clip space.
	up := vp.Projection.Mul4x1(mgl32.Vec4{0, 1, -1, 1})
	assert.Less(t, up.Y(), float32(0))
}

func TestViewProjectionZeroHeight(t *testing.T) {
	vp := NewCamera().ViewProjection(800, 0)
	square := NewCamera().ViewProjection(1, 1)
	assert.Equal(t, square.Projection, vp.Projection)
}
