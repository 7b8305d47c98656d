package renderer

import (
	"fmt"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

type SwapchainState uint8

const (
	SwapchainUninitialized SwapchainState = iota
	SwapchainReady
	SwapchainInvalidated
	SwapchainDestroyed
)

func (s SwapchainState) String() string {
	switch s {
	case SwapchainUninitialized:
		return "uninitialized"
	case SwapchainReady:
		return "ready"
	case SwapchainInvalidated:
		return "invalidated"
	case SwapchainDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// SwapchainManager owns the image chain, its views, the depth attachment and
// the per-image render-complete semaphores. Rebuilds are deferred: Invalidate
// and Resize only raise a flag that the scheduler consumes at the top of the
// next tick.
type SwapchainManager struct {
	device SwapchainDevice
	state  SwapchainState

	extent     metadata.Extent
	pending    metadata.Extent
	imageCount int
	generation uint64

	hasSwapchain      bool
	hasViews          bool
	hasDepth          bool
	hasPresentSignals bool
}

func NewSwapchainManager(device SwapchainDevice) *SwapchainManager {
	return &SwapchainManager{device: device}
}

// ChooseExtent picks the surface's own extent when it defines one, otherwise
// the requested extent clamped to what the surface accepts.
func ChooseExtent(caps metadata.SurfaceCapabilities, requested metadata.Extent) metadata.Extent {
	if caps.ExtentDefined() {
		return caps.CurrentExtent
	}
	return metadata.Extent{
		Width:  math.Clamp(requested.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: math.Clamp(requested.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func (s *SwapchainManager) Create(requested metadata.Extent) error {
	s.pending = requested
	if requested.IsZero() {
		s.state = SwapchainInvalidated
		return core.ErrZeroExtent
	}

	caps, err := s.device.SurfaceCapabilities()
	if err != nil {
		return err
	}
	extent := ChooseExtent(caps, requested)
	if extent.IsZero() {
		s.state = SwapchainInvalidated
		return core.ErrZeroExtent
	}

	count, err := s.device.CreateSwapchain(metadata.SwapchainConfig{
		Extent:        extent,
		MinImageCount: caps.MinImageCount,
		ColorFormat:   metadata.SwapchainColorFormat,
	})
	if err != nil {
		return s.fail("swapchain", err)
	}
	s.hasSwapchain = true
	s.imageCount = count

	if err := s.device.CreateImageViews(); err != nil {
		return s.fail("image views", err)
	}
	s.hasViews = true

	if err := s.device.CreateDepth(extent, metadata.DepthFormat); err != nil {
		return s.fail("depth attachment", err)
	}
	s.hasDepth = true

	if err := s.device.CreatePresentSemaphores(count); err != nil {
		return s.fail("present semaphores", err)
	}
	s.hasPresentSignals = true

	s.extent = extent
	s.generation++
	s.state = SwapchainReady
	core.LogDebug("Swapchain generation %d created: %s, %d images.", s.generation, extent, count)
	return nil
}

func (s *SwapchainManager) fail(what string, err error) error {
	s.release()
	s.state = SwapchainInvalidated
	return fmt.Errorf("failed to create %s: %w", what, err)
}

// Destroy releases whatever was created, newest first. Safe on a partially
// created or already destroyed manager.
func (s *SwapchainManager) Destroy() {
	s.release()
	s.state = SwapchainDestroyed
}

func (s *SwapchainManager) release() {
	if s.hasPresentSignals {
		s.device.DestroyPresentSemaphores()
		s.hasPresentSignals = false
	}
	if s.hasDepth {
		s.device.DestroyDepth()
		s.hasDepth = false
	}
	if s.hasViews {
		s.device.DestroyImageViews()
		s.hasViews = false
	}
	if s.hasSwapchain {
		s.device.DestroySwapchain()
		s.hasSwapchain = false
	}
	s.imageCount = 0
	s.extent = metadata.Extent{}
}

// Recreate tears the current generation down and builds a new one. The
// caller guarantees the GPU no longer reads the old images.
func (s *SwapchainManager) Recreate(requested metadata.Extent) error {
	s.Destroy()
	return s.Create(requested)
}

// Invalidate defers a rebuild at the current requested extent.
func (s *SwapchainManager) Invalidate() {
	if s.state == SwapchainReady {
		s.state = SwapchainInvalidated
	}
}

// Resize records the new framebuffer size and defers a rebuild.
func (s *SwapchainManager) Resize(extent metadata.Extent) {
	s.pending = extent
	s.Invalidate()
}

func (s *SwapchainManager) NeedsRebuild() bool {
	return s.state == SwapchainInvalidated
}

func (s *SwapchainManager) State() SwapchainState {
	return s.state
}

// PendingExtent is the size the next rebuild asks for.
func (s *SwapchainManager) PendingExtent() metadata.Extent {
	return s.pending
}

func (s *SwapchainManager) Extent() metadata.Extent {
	return s.extent
}

func (s *SwapchainManager) ImageCount() int {
	return s.imageCount
}

// Generation increments on every successful Create.
func (s *SwapchainManager) Generation() uint64 {
	return s.generation
}
