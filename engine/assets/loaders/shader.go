package loaders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// GlslcCompiler compiles GLSL to SPIR-V by running glslc. Files ending in
// .spv are read as precompiled modules instead.
type GlslcCompiler struct {
	// Compiler binary, looked up in PATH. Defaults to glslc.
	Binary string
}

func (gc *GlslcCompiler) Load(ctx context.Context, path string) (any, error) {
	stage, err := StageFromPath(path)
	if err != nil {
		return nil, err
	}
	return gc.Compile(ctx, path, stage)
}

func (gc *GlslcCompiler) Compile(ctx context.Context, path string, stage metadata.ShaderStage) ([]uint32, error) {
	if strings.EqualFold(filepath.Ext(path), ".spv") {
		return (&BinaryLoader{}).LoadSpirv(path)
	}

	bin := gc.Binary
	if bin == "" {
		bin = "glslc"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, glslcArgs(path, stage)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &core.CompileError{
				Path:        path,
				Stage:       stage.String(),
				Diagnostics: strings.TrimRight(stderr.String(), "\n"),
			}
		}
		return nil, fmt.Errorf("failed to run %s: %w", bin, err)
	}

	code, err := bytesToBytecode(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%s produced invalid output for `%s`: %w", bin, path, err)
	}
	core.LogDebug("Compiled %s shader `%s` (%d words).", stage, path, len(code))
	return code, nil
}

func glslcArgs(path string, stage metadata.ShaderStage) []string {
	return []string{
		"-fshader-stage=" + glslcStage(stage),
		"--target-env=vulkan1.3",
		"--target-spv=spv1.6",
		"-O",
		"-o", "-",
		path,
	}
}

func glslcStage(stage metadata.ShaderStage) string {
	if stage == metadata.ShaderStageFragment {
		return "frag"
	}
	return "vert"
}

// StageFromPath infers the stage from the usual GLSL extensions, looking
// through a trailing .spv.
func StageFromPath(path string) (metadata.ShaderStage, error) {
	name := strings.TrimSuffix(strings.ToLower(path), ".spv")
	switch filepath.Ext(name) {
	case ".vert":
		return metadata.ShaderStageVertex, nil
	case ".frag":
		return metadata.ShaderStageFragment, nil
	}
	return metadata.ShaderStageVertex, fmt.Errorf("cannot infer shader stage of `%s`", path)
}
