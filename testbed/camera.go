package testbed

import (
	gomath "math"

	"github.com/spaghettifunk/ember/engine/math"
)

// 89 degrees
const pitchLimit float32 = 1.55334306

/**
 * @brief A free-look camera. The view matrix is rebuilt lazily after the
 * position or rotation changed.
 */
type Camera struct {
	position math.Vec3
	/** @brief Rotation around the x axis in radians. */
	pitch float32
	/** @brief Rotation around the y axis in radians, 0 looks down -z. */
	yaw float32

	isDirty bool
	view    math.Mat4
}

func NewCamera(position math.Vec3) *Camera {
	return &Camera{
		position: position,
		isDirty:  true,
	}
}

func (c *Camera) Position() math.Vec3 {
	return c.position
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.position = position
	c.isDirty = true
}

func (c *Camera) View() math.Mat4 {
	if c.isDirty {
		c.view = math.NewMat4LookAt(c.position, c.position.Add(c.Forward()), math.NewVec3Up())
		c.isDirty = false
	}
	return c.view
}

// Forward returns the unit vector the camera looks along.
func (c *Camera) Forward() math.Vec3 {
	sy, cy := gomath.Sincos(float64(c.yaw))
	sp, cp := gomath.Sincos(float64(c.pitch))
	return math.NewVec3(float32(-sy*cp), float32(sp), float32(-cy*cp))
}

func (c *Camera) Right() math.Vec3 {
	return c.Forward().Cross(math.NewVec3Up()).Normalized()
}

func (c *Camera) MoveForward(amount float32) {
	c.SetPosition(c.position.Add(c.Forward().MulScalar(amount)))
}

func (c *Camera) MoveRight(amount float32) {
	c.SetPosition(c.position.Add(c.Right().MulScalar(amount)))
}

func (c *Camera) Yaw(amount float32) {
	c.yaw += amount
	c.isDirty = true
}

func (c *Camera) Pitch(amount float32) {
	// Clamp to avoid Gimbal lock.
	c.pitch = math.Clamp(c.pitch+amount, -pitchLimit, pitchLimit)
	c.isDirty = true
}
