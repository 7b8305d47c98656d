package renderer

import (
	"context"
	"errors"
	"testing"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func TestBuildPipelineReleasesModules(t *testing.T) {
	dev := newFakeDevice(t)
	compiler := &fakeCompiler{}
	p, err := BuildPipeline(context.Background(), compiler, dev, "a.vert", "a.frag", metadata.DefaultPipelineConfig())
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.PushConstantSize() != metadata.FrameConstantsSize {
		t.Fatalf("pipeline = %#v", p)
	}
	if len(compiler.called) != 2 {
		t.Fatalf("compiled %v", compiler.called)
	}
	if dev.live["module"] != 0 {
		t.Fatalf("%d shader modules left alive", dev.live["module"])
	}
	if dev.index("pipeline.create") > dev.index("module.destroy fragment") {
		t.Fatal("modules destroyed before the pipeline was created")
	}
}

func TestBuildPipelineCompileErrorVerbatim(t *testing.T) {
	dev := newFakeDevice(t)
	diag := "a.frag:3: error: 'vec5' : no such type"
	compiler := &fakeCompiler{errs: map[string]error{
		"a.frag": &core.CompileError{Path: "a.frag", Stage: "fragment", Diagnostics: diag},
	}}

	p, err := BuildPipeline(context.Background(), compiler, dev, "a.vert", "a.frag", metadata.DefaultPipelineConfig())
	if p != nil {
		t.Fatal("expected a nil pipeline")
	}
	var ce *core.CompileError
	if !errors.As(err, &ce) || ce.Diagnostics != diag {
		t.Fatalf("err = %v", err)
	}
	// the vertex stage may already have its module when the fragment fails
	if dev.live["module"] != 0 {
		t.Fatalf("%d shader modules left alive after a compile failure", dev.live["module"])
	}
}

func TestBuildPipelinePartialFailures(t *testing.T) {
	tests := []struct {
		method string
	}{
		{"CreateShaderModule.vertex"},
		{"CreateShaderModule.fragment"},
		{"CreatePipeline"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			dev := newFakeDevice(t)
			dev.fail[tt.method] = errInjected
			p, err := BuildPipeline(context.Background(), &fakeCompiler{}, dev, "a.vert", "a.frag", metadata.DefaultPipelineConfig())
			if p != nil || !errors.Is(err, errInjected) {
				t.Fatalf("pipeline %v err %v", p, err)
			}
			if leaks := dev.leaks(); len(leaks) != 0 {
				t.Fatalf("leaked %v", leaks)
			}
		})
	}
}

func TestCompileShader(t *testing.T) {
	dev := newFakeDevice(t)
	m, err := compileShader(context.Background(), &fakeCompiler{}, dev, "a.vert", metadata.ShaderStageVertex)
	if err != nil {
		t.Fatal(err)
	}
	if m.Stage() != metadata.ShaderStageVertex {
		t.Fatalf("stage = %s", m.Stage())
	}
	dev.DestroyShaderModule(m)
}

func TestCompileShaderModuleFailure(t *testing.T) {
	dev := newFakeDevice(t)
	dev.fail["CreateShaderModule.fragment"] = errInjected
	m, err := compileShader(context.Background(), &fakeCompiler{}, dev, "a.frag", metadata.ShaderStageFragment)
	if m != nil || !errors.Is(err, errInjected) {
		t.Fatalf("module %v err %v", m, err)
	}
}

func TestBuildPipelineCompilesEachStage(t *testing.T) {
	dev := newFakeDevice(t)
	compiler := &fakeCompiler{}
	if _, err := BuildPipeline(context.Background(), compiler, dev, "a.vert", "a.frag", metadata.DefaultPipelineConfig()); err != nil {
		t.Fatal(err)
	}
	if dev.count("module.create vertex") != 1 || dev.count("module.create fragment") != 1 {
		t.Fatalf("log %v", dev.log)
	}
}

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := metadata.DefaultPipelineConfig()
	if cfg.CullMode != metadata.CullBack || cfg.FrontFace != metadata.FrontFaceClockwise {
		t.Error("expected back-face culling with clockwise front faces")
	}
	if !cfg.DepthTest || !cfg.DepthWrite || cfg.DepthCompare != metadata.CompareLess {
		t.Error("expected depth test less with writes")
	}
	if cfg.ColorFormat != metadata.FormatB8G8R8A8Srgb || cfg.DepthFormat != metadata.FormatD32Sfloat {
		t.Error("unexpected attachment formats")
	}
}
