package metadata

import (
	"encoding/binary"
	"math"
)

// DeviceAddress is a GPU virtual address of a buffer.
type DeviceAddress uint64

/** @brief Byte size of the push-constant block, std430 padded to 16. */
const FrameConstantsSize = 80

/**
 * @brief The per-frame push-constant block.
 */
type FrameConstants struct {
	/** @brief Column-major projection * view. */
	ViewProjection [16]float32
	/** @brief Where the vertex shader pulls vertices from. */
	VertexAddress DeviceAddress
	/** @brief Seconds since startup. */
	Time float32
}

// Bytes encodes the block as the shaders declare it: mat4 at 0, uint64 at
// 64, float at 72.
func (c FrameConstants) Bytes() []byte {
	out := make([]byte, FrameConstantsSize)
	for i, v := range c.ViewProjection {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint64(out[64:], uint64(c.VertexAddress))
	binary.LittleEndian.PutUint32(out[72:], math.Float32bits(c.Time))
	return out
}

/**
 * @brief One frame's queue submission, expressed in backend table indices.
 */
type Submission struct {
	/** @brief The frame slot whose command buffer is submitted. */
	Slot int
	/** @brief Index into the acquire semaphore ring, waited on before color output. */
	AcquireSemaphore int
	/** @brief The acquired image; selects the render-complete semaphore to signal. */
	ImageIndex uint32
	/** @brief The timeline value signaled when the frame completes. */
	TimelineValue uint64
}
