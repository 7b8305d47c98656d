//go:build mage

package main

import (
	"os"
	"strings"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shaderDir = "assets/shaders"

// Compiles every GLSL source under assets/shaders to SPIR-V next to it.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the engine binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/ember", "."), withEnv("CGO_ENABLED=1"), withStream())
	return err
}

func buildShaders() error {
	sources, err := shaderSources(shaderDir)
	if err != nil {
		return err
	}
	for _, src := range sources {
		if _, err := executeCmd("glslc", withArgs("--target-env=vulkan1.3", "-O", src, "-o", src+".spv"), withDir(shaderDir), withStream()); err != nil {
			return err
		}
	}
	return nil
}

func shaderSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".vert") || strings.HasSuffix(name, ".frag")) {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}
