package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

type FrameOutcome uint8

const (
	// The frame was submitted and handed to presentation.
	FramePresented FrameOutcome = iota
	// Acquire reported out of date; nothing was submitted.
	FrameSkipped
	// The surface has zero area; no swapchain exists until it grows.
	FrameSuspended
)

func (o FrameOutcome) String() string {
	switch o {
	case FramePresented:
		return "presented"
	case FrameSkipped:
		return "skipped"
	case FrameSuspended:
		return "suspended"
	}
	return "unknown"
}

// FrameInput is what the application supplies every tick.
type FrameInput struct {
	ViewProjection [16]float32
	Time           float32
}

// SchedulerConfig holds what a FrameScheduler draws.
type SchedulerConfig struct {
	FramesInFlight int
	ClearColor     [4]float32
	Pipeline       Pipeline
	Scene          *SceneBuffers
}

// FrameScheduler drives acquire, record, submit and present, keeping at most
// FramesInFlight frames of GPU work outstanding.
type FrameScheduler struct {
	device    FrameDevice
	images    SwapchainDevice
	swapchain *SwapchainManager

	framesInFlight int
	clearColor     [4]float32
	pipeline       Pipeline
	scene          *SceneBuffers

	// Last frame id handed out. Equals the timeline value of the newest
	// submitted frame.
	frameID uint64
	acquire acquireRing
}

func NewFrameScheduler(device FrameDevice, images SwapchainDevice, swapchain *SwapchainManager, cfg SchedulerConfig) (*FrameScheduler, error) {
	if cfg.FramesInFlight < 1 {
		return nil, fmt.Errorf("frames in flight must be positive, got %d", cfg.FramesInFlight)
	}
	if cfg.Pipeline == nil || cfg.Scene == nil {
		return nil, core.ErrNotInitialized
	}
	return &FrameScheduler{
		device:         device,
		images:         images,
		swapchain:      swapchain,
		framesInFlight: cfg.FramesInFlight,
		clearColor:     cfg.ClearColor,
		pipeline:       cfg.Pipeline,
		scene:          cfg.Scene,
		acquire:        newAcquireRing(cfg.FramesInFlight),
	}, nil
}

// AcquireRingSize is the number of acquire semaphores the device must hold.
func (s *FrameScheduler) AcquireRingSize() int {
	return s.acquire.Size()
}

// FrameID returns the timeline value of the last submitted frame.
func (s *FrameScheduler) FrameID() uint64 {
	return s.frameID
}

// Tick runs one frame. Out-of-date surfaces and zero-area windows are
// reported through the outcome; any returned error is fatal.
func (s *FrameScheduler) Tick(input FrameInput) (FrameOutcome, error) {
	if s.swapchain.NeedsRebuild() {
		if err := s.device.WaitIdle(); err != nil {
			return FramePresented, err
		}
		err := s.swapchain.Recreate(s.swapchain.PendingExtent())
		if errors.Is(err, core.ErrZeroExtent) {
			return FrameSuspended, nil
		}
		if err != nil {
			core.LogError("failed to rebuild swapchain: %s", err)
			return FramePresented, err
		}
	}
	if s.swapchain.State() != SwapchainReady {
		return FramePresented, core.ErrNotInitialized
	}

	s.frameID++
	frameID := s.frameID
	slot := slotIndex(frameID, s.framesInFlight)

	if target, ok := waitTarget(frameID, s.framesInFlight); ok {
		if err := s.device.WaitTimeline(target); err != nil {
			return FramePresented, err
		}
	}

	if err := s.device.ResetSlot(slot); err != nil {
		return FramePresented, err
	}

	semaphore := s.acquire.Current()
	imageIndex, status, err := s.images.AcquireNextImage(semaphore)
	if err != nil {
		return FramePresented, err
	}
	if status == metadata.PresentOutOfDate {
		// nothing will ever signal this frame id, hand it back
		s.frameID--
		s.swapchain.Invalidate()
		core.LogDebug("Acquire out of date, skipping frame %d.", frameID)
		return FrameSkipped, nil
	}
	s.acquire.Advance()
	if status == metadata.PresentSuboptimal {
		core.LogDebug("Acquire suboptimal, rebuilding after frame %d.", frameID)
	}

	rec, err := s.device.BeginCommands(slot)
	if err != nil {
		return FramePresented, err
	}
	extent := s.swapchain.Extent()
	err = recordFrame(rec, &frameRecording{
		imageIndex: imageIndex,
		extent:     extent,
		clearColor: s.clearColor,
		pipeline:   s.pipeline,
		geometry:   s.scene.Geometry,
		ranges:     s.scene.Ranges,
		constants: metadata.FrameConstants{
			ViewProjection: input.ViewProjection,
			VertexAddress:  s.scene.VertexAddress,
			Time:           input.Time,
		},
	})
	if err != nil {
		return FramePresented, err
	}

	err = s.device.Submit(metadata.Submission{
		Slot:             slot,
		AcquireSemaphore: semaphore,
		ImageIndex:       imageIndex,
		TimelineValue:    frameID,
	})
	if err != nil {
		return FramePresented, err
	}

	presentStatus, err := s.images.Present(imageIndex)
	if err != nil {
		return FramePresented, err
	}
	if status == metadata.PresentSuboptimal || presentStatus != metadata.PresentOK {
		if presentStatus != metadata.PresentOK {
			core.LogDebug("Present %s, rebuilding before next frame.", presentStatus)
		}
		s.swapchain.Invalidate()
	}
	return FramePresented, nil
}
