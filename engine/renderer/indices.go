package renderer

// There are two independent index spaces in the frame loop.
//
// The frame slot selects the command pool and buffer: slot = frameID mod
// framesInFlight. The slot is reused only after the backpressure wait on
// timeline value frameID - framesInFlight.
//
// The acquire ring selects the semaphore handed to the image acquire. It has
// framesInFlight+1 entries and its own counter, advanced only when an
// acquire actually succeeded. The semaphore acquired for frame F is waited on
// by F's submission, and is next handed out to frame F+framesInFlight+1,
// which first waits for timeline value F+1. By then F's submission has
// executed and the semaphore is unsignaled again.

func slotIndex(frameID uint64, framesInFlight int) int {
	return int(frameID % uint64(framesInFlight))
}

// waitTarget returns the timeline value frame frameID must wait for, and
// false when the first frames have nothing to wait on.
func waitTarget(frameID uint64, framesInFlight int) (uint64, bool) {
	if frameID <= uint64(framesInFlight) {
		return 0, false
	}
	return frameID - uint64(framesInFlight), true
}

type acquireRing struct {
	size    int
	counter uint64
}

func newAcquireRing(framesInFlight int) acquireRing {
	return acquireRing{size: framesInFlight + 1}
}

// Current is the semaphore index the next acquire uses.
func (r *acquireRing) Current() int {
	return int(r.counter % uint64(r.size))
}

// Advance consumes the current entry after a successful acquire.
func (r *acquireRing) Advance() {
	r.counter++
}

func (r *acquireRing) Size() int {
	return r.size
}
