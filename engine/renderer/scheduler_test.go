package renderer

import (
	"testing"

	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func tick(t *testing.T, r *Renderer) FrameOutcome {
	t.Helper()
	out, err := r.DrawFrame(FrameInput{Time: 1})
	if err != nil {
		t.Fatalf("DrawFrame: %v", err)
	}
	return out
}

func TestTimelineAdvancesOncePerTick(t *testing.T) {
	for _, fif := range []int{2, 3} {
		opts := defaultOptions()
		opts.FramesInFlight = fif
		r, dev := newTestRenderer(t, opts)

		start := r.scheduler.FrameID()
		for n := 1; n <= 10; n++ {
			if out := tick(t, r); out != FramePresented {
				t.Fatalf("tick %d: %s", n, out)
			}
			if got := r.scheduler.FrameID(); got != start+uint64(n) {
				t.Fatalf("fif=%d: after %d ticks timeline = %d, want %d", fif, n, got, start+uint64(n))
			}
		}
		if dev.count("submit ") != 10 || dev.count("present ") != 10 {
			t.Fatalf("submits %d presents %d", dev.count("submit "), dev.count("present "))
		}
	}
}

func TestBackpressureWaitsBeforeSlotReuse(t *testing.T) {
	r, dev := newTestRenderer(t, defaultOptions())

	tick(t, r)
	tick(t, r)
	if n := dev.count("wait "); n != 0 {
		t.Fatalf("ticks 1 and 2 waited %d times: %v", n, dev.log)
	}

	dev.log = nil
	tick(t, r)
	wait := dev.index("wait 1")
	reset := dev.index("reset 1")
	begin := dev.index("begin 1")
	if wait < 0 {
		t.Fatalf("tick 3 did not wait for frame 1: %v", dev.log)
	}
	if !(wait < reset && reset < begin) {
		t.Fatalf("expected wait < reset < begin, got %d %d %d", wait, reset, begin)
	}

	// the fake fails the test itself if any slot is recorded too early
	for i := 0; i < 20; i++ {
		tick(t, r)
	}
}

func TestSlotAndWaitTarget(t *testing.T) {
	tests := []struct {
		frame    uint64
		fif      int
		slot     int
		target   uint64
		mustWait bool
	}{
		{1, 2, 1, 0, false},
		{2, 2, 0, 0, false},
		{3, 2, 1, 1, true},
		{4, 2, 0, 2, true},
		{3, 3, 0, 0, false},
		{4, 3, 1, 1, true},
	}
	for _, tt := range tests {
		if got := slotIndex(tt.frame, tt.fif); got != tt.slot {
			t.Errorf("slotIndex(%d, %d) = %d, want %d", tt.frame, tt.fif, got, tt.slot)
		}
		target, ok := waitTarget(tt.frame, tt.fif)
		if ok != tt.mustWait || target != tt.target {
			t.Errorf("waitTarget(%d, %d) = %d, %v, want %d, %v", tt.frame, tt.fif, target, ok, tt.target, tt.mustWait)
		}
	}
}

func TestAcquireOutOfDateSkipsAndRebuilds(t *testing.T) {
	r, dev := newTestRenderer(t, defaultOptions())
	tick(t, r)
	tick(t, r)

	before := r.scheduler.FrameID()
	dev.acquireResults = []metadata.PresentStatus{metadata.PresentOutOfDate}
	dev.log = nil
	if out := tick(t, r); out != FrameSkipped {
		t.Fatalf("outcome = %s, want skipped", out)
	}
	if dev.count("submit ") != 0 || dev.count("draw ") != 0 || dev.count("begin ") != 0 {
		t.Fatalf("out-of-date tick recorded or submitted: %v", dev.log)
	}
	if r.scheduler.FrameID() != before {
		t.Fatalf("frame id %d not rolled back to %d", r.scheduler.FrameID(), before)
	}
	if !r.swapchain.NeedsRebuild() {
		t.Fatal("swapchain not flagged for rebuild")
	}

	dev.log = nil
	if out := tick(t, r); out != FramePresented {
		t.Fatalf("outcome = %s", out)
	}
	destroy := dev.index("swapchain.destroy")
	acquire := -1
	for i, l := range dev.log {
		if len(l) > 7 && l[:7] == "acquire" {
			acquire = i
			break
		}
	}
	if destroy < 0 || dev.index("idle") > destroy || acquire < destroy {
		t.Fatalf("rebuild must happen after idle and before acquire: %v", dev.log)
	}
	if got := r.scheduler.FrameID(); got != before+1 {
		t.Fatalf("frame id = %d, want %d", got, before+1)
	}
}

func TestSuboptimalAcquirePresentsThenRebuilds(t *testing.T) {
	r, dev := newTestRenderer(t, defaultOptions())
	dev.acquireResults = []metadata.PresentStatus{metadata.PresentSuboptimal}

	if out := tick(t, r); out != FramePresented {
		t.Fatalf("outcome = %s", out)
	}
	if dev.count("submit ") != 1 {
		t.Fatal("suboptimal frame was not submitted")
	}
	if !r.swapchain.NeedsRebuild() {
		t.Fatal("suboptimal acquire should schedule a rebuild")
	}
	gen := r.swapchain.Generation()
	tick(t, r)
	if r.swapchain.Generation() != gen+1 {
		t.Fatalf("generation %d, want %d", r.swapchain.Generation(), gen+1)
	}
}

func TestPresentOutOfDateRebuildsNextTick(t *testing.T) {
	r, dev := newTestRenderer(t, defaultOptions())
	dev.presentResults = []metadata.PresentStatus{metadata.PresentOutOfDate}

	tick(t, r)
	if !r.swapchain.NeedsRebuild() {
		t.Fatal("present out of date should schedule a rebuild")
	}
	dev.log = nil
	tick(t, r)
	if dev.count("swapchain.destroy") != 1 || dev.count("swapchain.create") != 1 {
		t.Fatalf("expected one rebuild: %v", dev.log)
	}
}

func TestResizeRebuildsOnceAtNewExtent(t *testing.T) {
	r, dev := newTestRenderer(t, defaultOptions())
	tick(t, r)
	if got := r.swapchain.Extent(); got != (metadata.Extent{Width: 1280, Height: 720}) {
		t.Fatalf("initial extent %s", got)
	}

	dev.log = nil
	r.OnResize(800, 600)
	tick(t, r)
	tick(t, r)

	if n := dev.count("swapchain.destroy"); n != 1 {
		t.Fatalf("destroyed %d times, want 1", n)
	}
	if n := dev.count("swapchain.create"); n != 1 {
		t.Fatalf("created %d times, want 1", n)
	}
	if dev.index("depth.create 800x600") < 0 {
		t.Fatalf("depth not recreated at 800x600: %v", dev.log)
	}
	if dev.index("depth.create 800x600") > dev.index("present 0 ok") && dev.index("present 0 ok") >= 0 {
		t.Fatalf("presented before rebuild: %v", dev.log)
	}
	if dev.index("viewport 800x600") < 0 {
		t.Fatalf("viewport not updated: %v", dev.log)
	}
}

func TestTwoSubmeshesTwoDraws(t *testing.T) {
	r, dev := newTestRenderer(t, defaultOptions())
	dev.log = nil
	tick(t, r)

	if dev.draws != 2 {
		t.Fatalf("draws = %d, want 2", dev.draws)
	}
	if dev.index("draw 300 0 0") < 0 || dev.index("draw 200 300 100") < 0 {
		t.Fatalf("draw offsets wrong: %v", dev.log)
	}
}

func TestRecordOrder(t *testing.T) {
	r, dev := newTestRenderer(t, defaultOptions())
	dev.log = nil
	tick(t, r)

	want := []string{
		"barrier 0 undefined->color-attachment",
		"barrier 1 undefined->depth-attachment",
		"rendering.begin 1280x720",
		"viewport 1280x720",
		"bind.pipeline",
		"push 80",
		"bind.index",
		"rendering.end",
		"barrier 0 color-attachment->present",
		"end",
	}
	last := -1
	for _, w := range want {
		i := dev.index(w)
		if i <= last {
			t.Fatalf("%q out of order in %v", w, dev.log)
		}
		last = i
	}
	if dev.index("submit 1 slot=1 sem=0 image=0") <= last {
		t.Fatalf("submit must follow recording: %v", dev.log)
	}
}

func TestPushConstantsCarryVertexAddress(t *testing.T) {
	r, dev := newTestRenderer(t, defaultOptions())
	tick(t, r)
	b := dev.pushed[0]
	var addr uint64
	for i := 7; i >= 0; i-- {
		addr = addr<<8 | uint64(b[64+i])
	}
	if addr != 0xABCD0000 {
		t.Fatalf("vertex address = %#x", addr)
	}
}

func TestAcquireRingNeverReusedWhilePending(t *testing.T) {
	for _, fif := range []int{2, 3} {
		opts := defaultOptions()
		opts.FramesInFlight = fif
		r, dev := newTestRenderer(t, opts)
		if dev.acquireSems != fif+1 {
			t.Fatalf("acquire ring = %d, want %d", dev.acquireSems, fif+1)
		}
		// interleave out-of-date skips; the fake fails on any premature reuse
		for i := 0; i < 30; i++ {
			if i%7 == 3 {
				dev.acquireResults = append(dev.acquireResults, metadata.PresentOutOfDate)
			}
			tick(t, r)
		}
	}
}

func TestMinimizedWindowSuspends(t *testing.T) {
	r, dev := newTestRenderer(t, defaultOptions())
	tick(t, r)

	r.OnResize(0, 0)
	dev.log = nil
	for i := 0; i < 3; i++ {
		if out := tick(t, r); out != FrameSuspended {
			t.Fatalf("outcome = %s, want suspended", out)
		}
	}
	if dev.count("submit ") != 0 || dev.count("acquire") != 0 {
		t.Fatalf("suspended ticks touched the swapchain: %v", dev.log)
	}
	if dev.count("swapchain.destroy") != 1 {
		t.Fatalf("old swapchain not destroyed once: %v", dev.log)
	}

	r.OnResize(640, 480)
	if out := tick(t, r); out != FramePresented {
		t.Fatalf("outcome after restore = %s", out)
	}
	if r.swapchain.Extent() != (metadata.Extent{Width: 640, Height: 480}) {
		t.Fatalf("extent = %s", r.swapchain.Extent())
	}
}

func TestTickPropagatesFatalErrors(t *testing.T) {
	for _, method := range []string{"Submit", "AcquireNextImage", "Present", "BeginCommands", "End", "ResetSlot"} {
		r, dev := newTestRenderer(t, defaultOptions())
		dev.fail[method] = errInjected
		if _, err := r.DrawFrame(FrameInput{}); err == nil {
			t.Errorf("%s failure was not returned", method)
		}
	}
}
