package renderer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// compileShader compiles one stage and wraps it in a backend module.
// Compiler diagnostics come back untouched inside the *core.CompileError.
func compileShader(ctx context.Context, compiler ShaderCompiler, device ResourceDevice, path string, stage metadata.ShaderStage) (ShaderModule, error) {
	code, err := compiler.Compile(ctx, path, stage)
	if err != nil {
		return nil, err
	}
	module, err := device.CreateShaderModule(stage, code)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s module: %w", stage, err)
	}
	return module, nil
}

// BuildPipeline compiles both stages concurrently and links them into the
// mesh pipeline. The shader modules are released once the pipeline exists,
// or as soon as either stage fails. A nil Pipeline is returned with every
// error.
func BuildPipeline(ctx context.Context, compiler ShaderCompiler, device ResourceDevice, vertexPath, fragmentPath string, config metadata.PipelineConfig) (Pipeline, error) {
	var vertex, fragment ShaderModule

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		vertex, err = compileShader(gctx, compiler, device, vertexPath, metadata.ShaderStageVertex)
		return err
	})
	g.Go(func() (err error) {
		fragment, err = compileShader(gctx, compiler, device, fragmentPath, metadata.ShaderStageFragment)
		return err
	})
	err := g.Wait()
	if vertex != nil {
		defer device.DestroyShaderModule(vertex)
	}
	if fragment != nil {
		defer device.DestroyShaderModule(fragment)
	}
	if err != nil {
		return nil, err
	}

	pipeline, err := device.CreatePipeline(vertex, fragment, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create graphics pipeline: %w", err)
	}
	core.LogDebug("Graphics pipeline created from `%s` and `%s`.", vertexPath, fragmentPath)
	return pipeline, nil
}
