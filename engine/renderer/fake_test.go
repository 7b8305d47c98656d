package renderer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

var errInjected = errors.New("injected failure")

type fakeModule struct {
	stage metadata.ShaderStage
}

func (m *fakeModule) Stage() metadata.ShaderStage { return m.stage }

type fakePipeline struct{ size uint32 }

func (p *fakePipeline) PushConstantSize() uint32 { return p.size }

type fakeGeometry struct {
	address metadata.DeviceAddress
	indices uint32
}

func (g *fakeGeometry) VertexAddress() metadata.DeviceAddress { return g.address }
func (g *fakeGeometry) IndexCount() uint32                    { return g.indices }

type fakeTexture struct {
	name   string
	extent metadata.Extent
}

func (t *fakeTexture) Name() string             { return t.name }
func (t *fakeTexture) Extent() metadata.Extent { return t.extent }

// fakeDevice is an in-memory GPU. It keeps an ordered event log and checks
// the synchronization rules the real driver would only catch with
// validation layers: slots reused before their frame completed, acquire
// semaphores handed out while still pending, waits on values nobody submits.
type fakeDevice struct {
	t *testing.T

	log []string

	caps       metadata.SurfaceCapabilities
	imageCount int
	nextImage  uint32

	// scripted results, consumed front first; empty means PresentOK
	acquireResults []metadata.PresentStatus
	presentResults []metadata.PresentStatus

	// method name -> error returned by its next call
	fail map[string]error

	// shader stages are compiled concurrently
	mu   sync.Mutex
	live map[string]int

	slots        int
	acquireSems  int
	submitted    uint64
	completed    uint64
	slotFrame    map[int]uint64
	semPending   map[int]uint64 // semaphore -> frame whose submission consumes it, 0 while unconsumed
	semAcquired  map[int]bool
	lastAcquired int

	recording *fakeRecorder
	draws     int
	pushed    [][]byte
}

func newFakeDevice(t *testing.T) *fakeDevice {
	return &fakeDevice{
		t: t,
		caps: metadata.SurfaceCapabilities{
			MinImageCount:  3,
			MaxImageCount:  8,
			CurrentExtent:  metadata.Extent{Width: metadata.UndefinedExtent, Height: metadata.UndefinedExtent},
			MinImageExtent: metadata.Extent{Width: 1, Height: 1},
			MaxImageExtent: metadata.Extent{Width: 4096, Height: 4096},
		},
		fail:        map[string]error{},
		live:        map[string]int{},
		slotFrame:   map[int]uint64{},
		semPending:  map[int]uint64{},
		semAcquired: map[int]bool{},
	}
}

func (d *fakeDevice) record(format string, args ...interface{}) {
	d.log = append(d.log, fmt.Sprintf(format, args...))
}

func (d *fakeDevice) injected(method string) error {
	if err, ok := d.fail[method]; ok {
		delete(d.fail, method)
		d.record("%s failed", method)
		return err
	}
	return nil
}

// count returns how many log lines start with prefix.
func (d *fakeDevice) count(prefix string) int {
	n := 0
	for _, l := range d.log {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

func (d *fakeDevice) index(line string) int {
	for i, l := range d.log {
		if l == line {
			return i
		}
	}
	return -1
}

func (d *fakeDevice) leaks() []string {
	var out []string
	for k, v := range d.live {
		if v != 0 {
			out = append(out, fmt.Sprintf("%s=%d", k, v))
		}
	}
	return out
}

// complete marks every submitted frame up to value as finished on the GPU.
func (d *fakeDevice) complete(value uint64) {
	if value > d.submitted {
		d.t.Fatalf("GPU completed %d but only %d submitted", value, d.submitted)
	}
	if value > d.completed {
		d.completed = value
	}
}

// FrameDevice

func (d *fakeDevice) CreateFrameResources(slots, acquireSemaphores int) error {
	if err := d.injected("CreateFrameResources"); err != nil {
		return err
	}
	d.slots, d.acquireSems = slots, acquireSemaphores
	d.live["frame"]++
	d.record("frame.create %d %d", slots, acquireSemaphores)
	return nil
}

func (d *fakeDevice) DestroyFrameResources() {
	d.live["frame"]--
	d.record("frame.destroy")
}

func (d *fakeDevice) WaitTimeline(value uint64) error {
	d.record("wait %d", value)
	if value > d.submitted {
		d.t.Fatalf("wait on timeline %d which no submission signals (submitted %d)", value, d.submitted)
	}
	d.complete(value)
	return nil
}

func (d *fakeDevice) ResetSlot(slot int) error {
	if frame, ok := d.slotFrame[slot]; ok && frame > d.completed {
		d.t.Fatalf("slot %d reset while frame %d outstanding (completed %d)", slot, frame, d.completed)
	}
	d.record("reset %d", slot)
	return d.injected("ResetSlot")
}

func (d *fakeDevice) BeginCommands(slot int) (CommandRecorder, error) {
	if frame, ok := d.slotFrame[slot]; ok && frame > d.completed {
		d.t.Fatalf("slot %d recorded while frame %d outstanding (completed %d)", slot, frame, d.completed)
	}
	if err := d.injected("BeginCommands"); err != nil {
		return nil, err
	}
	d.record("begin %d", slot)
	d.recording = &fakeRecorder{d: d}
	return d.recording, nil
}

func (d *fakeDevice) Submit(s metadata.Submission) error {
	if err := d.injected("Submit"); err != nil {
		return err
	}
	if s.TimelineValue != d.submitted+1 {
		d.t.Fatalf("submitted timeline value %d after %d", s.TimelineValue, d.submitted)
	}
	if int(s.ImageIndex) >= d.imageCount {
		d.t.Fatalf("submitted image %d of %d", s.ImageIndex, d.imageCount)
	}
	d.submitted = s.TimelineValue
	d.slotFrame[s.Slot] = s.TimelineValue
	d.semPending[s.AcquireSemaphore] = s.TimelineValue
	d.record("submit %d slot=%d sem=%d image=%d", s.TimelineValue, s.Slot, s.AcquireSemaphore, s.ImageIndex)
	return nil
}

func (d *fakeDevice) WaitIdle() error {
	d.record("idle")
	d.completed = d.submitted
	return nil
}

// SwapchainDevice

func (d *fakeDevice) SurfaceCapabilities() (metadata.SurfaceCapabilities, error) {
	return d.caps, d.injected("SurfaceCapabilities")
}

func (d *fakeDevice) CreateSwapchain(cfg metadata.SwapchainConfig) (int, error) {
	if err := d.injected("CreateSwapchain"); err != nil {
		return 0, err
	}
	d.imageCount = int(cfg.MinImageCount)
	d.nextImage = 0
	d.live["swapchain"]++
	d.record("swapchain.create %s", cfg.Extent)
	return d.imageCount, nil
}

func (d *fakeDevice) DestroySwapchain() {
	d.live["swapchain"]--
	d.record("swapchain.destroy")
}

func (d *fakeDevice) CreateImageViews() error {
	if err := d.injected("CreateImageViews"); err != nil {
		return err
	}
	d.live["views"]++
	d.record("views.create")
	return nil
}

func (d *fakeDevice) DestroyImageViews() {
	d.live["views"]--
	d.record("views.destroy")
}

func (d *fakeDevice) CreateDepth(extent metadata.Extent, format metadata.Format) error {
	if err := d.injected("CreateDepth"); err != nil {
		return err
	}
	if format != metadata.DepthFormat {
		d.t.Fatalf("depth format %d", format)
	}
	d.live["depth"]++
	d.record("depth.create %s", extent)
	return nil
}

func (d *fakeDevice) DestroyDepth() {
	d.live["depth"]--
	d.record("depth.destroy")
}

func (d *fakeDevice) CreatePresentSemaphores(count int) error {
	if err := d.injected("CreatePresentSemaphores"); err != nil {
		return err
	}
	d.live["present-sems"]++
	d.record("present-sems.create %d", count)
	return nil
}

func (d *fakeDevice) DestroyPresentSemaphores() {
	d.live["present-sems"]--
	d.record("present-sems.destroy")
}

func (d *fakeDevice) AcquireNextImage(sem int) (uint32, metadata.PresentStatus, error) {
	if sem < 0 || sem >= d.acquireSems {
		d.t.Fatalf("acquire semaphore %d outside ring of %d", sem, d.acquireSems)
	}
	if d.semAcquired[sem] {
		frame := d.semPending[sem]
		if frame == 0 || frame > d.completed {
			d.t.Fatalf("acquire semaphore %d reused while pending (frame %d, completed %d)", sem, frame, d.completed)
		}
	}
	if err := d.injected("AcquireNextImage"); err != nil {
		return 0, metadata.PresentOK, err
	}
	status := metadata.PresentOK
	if len(d.acquireResults) > 0 {
		status = d.acquireResults[0]
		d.acquireResults = d.acquireResults[1:]
	}
	d.record("acquire sem=%d %s", sem, status)
	if status == metadata.PresentOutOfDate {
		return 0, status, nil
	}
	d.semAcquired[sem] = true
	d.semPending[sem] = 0
	img := d.nextImage
	d.nextImage = (d.nextImage + 1) % uint32(d.imageCount)
	return img, status, nil
}

func (d *fakeDevice) Present(imageIndex uint32) (metadata.PresentStatus, error) {
	if err := d.injected("Present"); err != nil {
		return metadata.PresentOK, err
	}
	status := metadata.PresentOK
	if len(d.presentResults) > 0 {
		status = d.presentResults[0]
		d.presentResults = d.presentResults[1:]
	}
	d.record("present %d %s", imageIndex, status)
	return status, nil
}

// ResourceDevice

func (d *fakeDevice) CreateShaderModule(stage metadata.ShaderStage, code []uint32) (ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateShaderModule." + stage.String()); err != nil {
		return nil, err
	}
	d.live["module"]++
	d.record("module.create %s", stage)
	return &fakeModule{stage: stage}, nil
}

func (d *fakeDevice) DestroyShaderModule(m ShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.live["module"]--
	d.record("module.destroy %s", m.Stage())
}

func (d *fakeDevice) CreatePipeline(vertex, fragment ShaderModule, cfg metadata.PipelineConfig) (Pipeline, error) {
	if err := d.injected("CreatePipeline"); err != nil {
		return nil, err
	}
	d.live["pipeline"]++
	d.record("pipeline.create")
	return &fakePipeline{size: cfg.PushConstantSize}, nil
}

func (d *fakeDevice) DestroyPipeline(Pipeline) {
	d.live["pipeline"]--
	d.record("pipeline.destroy")
}

func (d *fakeDevice) UploadGeometry(vertices []byte, indices []uint32) (GeometryBuffers, error) {
	if err := d.injected("UploadGeometry"); err != nil {
		return nil, err
	}
	d.live["geometry"]++
	d.record("geometry.upload %d %d", len(vertices)/metadata.VertexSize, len(indices))
	return &fakeGeometry{address: 0xABCD0000, indices: uint32(len(indices))}, nil
}

func (d *fakeDevice) DestroyGeometry(GeometryBuffers) {
	d.live["geometry"]--
	d.record("geometry.destroy")
}

func (d *fakeDevice) UploadTexture(img *metadata.ImageData) (Texture, error) {
	if err := d.injected("UploadTexture"); err != nil {
		return nil, err
	}
	d.live["texture"]++
	d.record("texture.upload %s", img.Name)
	return &fakeTexture{name: img.Name, extent: metadata.Extent{Width: img.Width, Height: img.Height}}, nil
}

func (d *fakeDevice) DestroyTexture(t Texture) {
	d.live["texture"]--
	d.record("texture.destroy %s", t.Name())
}

type fakeRecorder struct {
	d *fakeDevice
}

func (r *fakeRecorder) TransitionImages(ts ...metadata.ImageTransition) {
	for _, t := range ts {
		r.d.record("barrier %d %s->%s", t.Kind, t.From, t.To)
	}
}

func (r *fakeRecorder) BeginRendering(info metadata.RenderingInfo) {
	r.d.record("rendering.begin %s", info.Extent)
}

func (r *fakeRecorder) SetViewportAndScissor(extent metadata.Extent) {
	r.d.record("viewport %s", extent)
}

func (r *fakeRecorder) BindPipeline(Pipeline) {
	r.d.record("bind.pipeline")
}

func (r *fakeRecorder) PushConstants(p Pipeline, data []byte) {
	if uint32(len(data)) != p.PushConstantSize() {
		r.d.t.Fatalf("pushed %d bytes into a %d byte range", len(data), p.PushConstantSize())
	}
	r.d.pushed = append(r.d.pushed, data)
	r.d.record("push %d", len(data))
}

func (r *fakeRecorder) BindIndexBuffer(GeometryBuffers) {
	r.d.record("bind.index")
}

func (r *fakeRecorder) DrawIndexed(indexCount, firstIndex uint32, vertexOffset int32) {
	r.d.draws++
	r.d.record("draw %d %d %d", indexCount, firstIndex, vertexOffset)
}

func (r *fakeRecorder) EndRendering() {
	r.d.record("rendering.end")
}

func (r *fakeRecorder) End() error {
	r.d.record("end")
	return r.d.injected("End")
}

// fakeCompiler returns one word of SPIR-V per path, or the scripted error.
type fakeCompiler struct {
	mu     sync.Mutex
	errs   map[string]error
	called []string
}

func (c *fakeCompiler) Compile(ctx context.Context, path string, stage metadata.ShaderStage) ([]uint32, error) {
	c.mu.Lock()
	c.called = append(c.called, path)
	err := c.errs[path]
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return []uint32{0x07230203}, nil
}

// twoRangeScene has submeshes over indices [0,300) and [300,500).
func twoRangeScene() *metadata.Scene {
	scene := &metadata.Scene{
		Vertices: make([]metadata.Vertex, 200),
		Indices:  make([]uint32, 500),
		Ranges: []metadata.DrawRange{
			{VertexStart: 0, IndexStart: 0, IndexCount: 300},
			{VertexStart: 100, IndexStart: 300, IndexCount: 200},
		},
	}
	for i := range scene.Indices {
		scene.Indices[i] = uint32(i % 100)
	}
	return scene
}

func defaultOptions() Options {
	return Options{
		Extent:         metadata.Extent{Width: 1280, Height: 720},
		FramesInFlight: 2,
		ClearColor:     [4]float32{0, 0, 0.2, 1},
		VertexShader:   "shaders/mesh.vert",
		FragmentShader: "shaders/mesh.frag",
	}
}

func newTestRenderer(t *testing.T, opts Options) (*Renderer, *fakeDevice) {
	t.Helper()
	dev := newFakeDevice(t)
	r := New(dev, &fakeCompiler{})
	if err := r.Initialize(context.Background(), opts, twoRangeScene()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return r, dev
}
