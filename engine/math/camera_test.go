package math

import (
	m "math"
	"testing"

	glm "github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-4

// near compares absolutely; FloatEqualThreshold is relative away from zero
// and squares eps against zero.
func near(a, b float32) bool {
	return m.Abs(float64(a-b)) < eps
}

func project(mvp glm.Mat4, p glm.Vec3) glm.Vec3 {
	clip := mvp.Mul4x1(p.Vec4(1))
	return clip.Vec3().Mul(1 / clip.W())
}

func TestVulkanPerspectiveDepthRange(t *testing.T) {
	proj := VulkanPerspective(glm.DegToRad(60), 1, 0.1, 100)

	nearPlane := project(proj, glm.Vec3{0, 0, -0.1})
	if !near(nearPlane.Z(), 0) {
		t.Errorf("near plane depth = %f, want 0", nearPlane.Z())
	}
	far := project(proj, glm.Vec3{0, 0, -100})
	if !near(far.Z(), 1) {
		t.Errorf("far plane depth = %f, want 1", far.Z())
	}
	// +Y in view space lands in the upper half, which is -Y in Vulkan NDC
	up := project(proj, glm.Vec3{0, 1, -5})
	if up.Y() >= 0 {
		t.Errorf("y not flipped: %f", up.Y())
	}
}

func TestCameraTargetAtCenter(t *testing.T) {
	c := NewCamera(5)
	c.Target = glm.Vec3{1, 2, 3}
	c.Yaw = glm.DegToRad(30)

	if d := c.Position().Sub(c.Target).Len(); !near(d, 5) {
		t.Fatalf("eye distance = %f, want 5", d)
	}
	center := project(c.ViewProjection(1280, 720), c.Target)
	if !near(center.X(), 0) || !near(center.Y(), 0) {
		t.Fatalf("target projects to (%f, %f), want origin", center.X(), center.Y())
	}
	if center.Z() <= 0 || center.Z() >= 1 {
		t.Fatalf("target depth %f outside (0, 1)", center.Z())
	}
}

func TestCameraZeroHeight(t *testing.T) {
	c := NewCamera(3)
	m := c.ViewProjection(800, 0)
	for i, v := range m {
		if v != v {
			t.Fatalf("element %d is NaN", i)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 1, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Fatal("Clamp on ints")
	}
	if Clamp(uint32(4096), 1, 2048) != 2048 {
		t.Fatal("Clamp on uint32")
	}
}

func TestWrapAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{1, 1},
		{2 * m.Pi, 0},
		{-0.5, 2*m.Pi - 0.5},
		{5 * m.Pi, m.Pi},
	}
	for _, tt := range tests {
		if got := WrapAngle(tt.in); !near(float32(got), float32(tt.want)) {
			t.Errorf("WrapAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
