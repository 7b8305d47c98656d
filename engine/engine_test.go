package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func TestRendererOptions(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Renderer.FramesInFlight = 3
	cfg.Renderer.ClearColor = [4]float32{1, 0, 0, 1}

	opts := rendererOptions(cfg, 640, 480)
	if opts.Extent != (metadata.Extent{Width: 640, Height: 480}) {
		t.Errorf("extent = %+v", opts.Extent)
	}
	if opts.FramesInFlight != 3 || opts.ClearColor != cfg.Renderer.ClearColor {
		t.Errorf("options = %+v", opts)
	}
	if opts.VertexShader != "shaders/mesh.vert" || opts.FragmentShader != "shaders/mesh.frag" {
		t.Errorf("shaders = %s, %s", opts.VertexShader, opts.FragmentShader)
	}
}

func TestContextConfig(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Renderer.Validation = false
	vc := contextConfig(cfg, []string{"VK_KHR_surface"})
	if vc.ApplicationName != cfg.Application.Name || vc.Validation || len(vc.Extensions) != 1 {
		t.Errorf("context config = %+v", vc)
	}
}

func TestStageString(t *testing.T) {
	for s := EngineStageUninitialized; s <= EngineStageShutdown; s++ {
		if s.String() == "unknown" {
			t.Errorf("stage %d has no name", s)
		}
	}
	if Stage(200).String() != "unknown" {
		t.Error("out of range stage")
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(&Game{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunBeforeInitialize(t *testing.T) {
	e, err := New(&Game{Config: core.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Run(context.Background()); !errors.Is(err, core.ErrNotInitialized) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewWiresInput(t *testing.T) {
	g := &Game{Config: core.DefaultConfig()}
	if _, err := New(g); err != nil {
		t.Fatal(err)
	}
	if g.Input == nil {
		t.Fatal("game has no input state")
	}
	w, h := g.Config.Application.Width, g.Config.Application.Height
	e, _ := New(g)
	if gw, gh := e.GetFramebufferSize(); gw != w || gh != h {
		t.Fatalf("size = %dx%d", gw, gh)
	}
}
