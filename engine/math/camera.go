package math

import (
	m "math"

	glm "github.com/go-gl/mathgl/mgl32"
)

// clipCorrection maps GL clip space (y up, z in [-w, w]) onto Vulkan's
// (y down, z in [0, w]).
var clipCorrection = glm.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// VulkanPerspective builds a right-handed perspective projection for Vulkan
// clip space. fovy is in radians.
func VulkanPerspective(fovy, aspect, near, far float32) glm.Mat4 {
	return clipCorrection.Mul4(glm.Perspective(fovy, aspect, near, far))
}

// Camera orbits a target point. Angles are in radians.
type Camera struct {
	Target   glm.Vec3
	Distance float32
	Yaw      float32
	Pitch    float32
	FovY     float32
	Near     float32
	Far      float32
}

func NewCamera(distance float32) *Camera {
	return &Camera{
		Distance: distance,
		Pitch:    glm.DegToRad(20),
		FovY:     glm.DegToRad(60),
		Near:     0.1,
		Far:      100,
	}
}

// Position returns the eye position for the current orbit parameters.
func (c *Camera) Position() glm.Vec3 {
	pitch := Clamp(c.Pitch, -glm.DegToRad(89), glm.DegToRad(89))
	cp := float32(m.Cos(float64(pitch)))
	offset := glm.Vec3{
		c.Distance * cp * float32(m.Sin(float64(c.Yaw))),
		c.Distance * float32(m.Sin(float64(pitch))),
		c.Distance * cp * float32(m.Cos(float64(c.Yaw))),
	}
	return c.Target.Add(offset)
}

func (c *Camera) View() glm.Mat4 {
	return glm.LookAtV(c.Position(), c.Target, glm.Vec3{0, 1, 0})
}

func (c *Camera) Projection(aspect float32) glm.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return VulkanPerspective(c.FovY, aspect, c.Near, c.Far)
}

// ViewProjection composes projection * view for the given viewport size.
func (c *Camera) ViewProjection(width, height uint32) glm.Mat4 {
	aspect := float32(1)
	if height != 0 {
		aspect = float32(width) / float32(height)
	}
	return c.Projection(aspect).Mul4(c.View())
}
