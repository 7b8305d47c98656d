package metadata

import "fmt"

type Extent struct {
	Width  uint32
	Height uint32
}

func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// SurfaceCapabilities is the part of the surface query the swapchain needs.
// A CurrentExtent of 0xFFFFFFFF in both fields means the surface size is
// decided by the swapchain.
type SurfaceCapabilities struct {
	MinImageCount  uint32
	MaxImageCount  uint32
	CurrentExtent  Extent
	MinImageExtent Extent
	MaxImageExtent Extent
}

const UndefinedExtent = 0xFFFFFFFF

func (c SurfaceCapabilities) ExtentDefined() bool {
	return c.CurrentExtent.Width != UndefinedExtent
}

// SwapchainConfig is what the manager asks the device to build.
type SwapchainConfig struct {
	Extent        Extent
	MinImageCount uint32
	ColorFormat   Format
}

// PresentStatus is the outcome of an acquire or present call that did not
// fail outright.
type PresentStatus uint8

const (
	PresentOK PresentStatus = iota
	PresentSuboptimal
	PresentOutOfDate
)

func (s PresentStatus) String() string {
	switch s {
	case PresentOK:
		return "ok"
	case PresentSuboptimal:
		return "suboptimal"
	case PresentOutOfDate:
		return "out of date"
	}
	return "unknown"
}
