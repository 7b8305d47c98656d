//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the engine with ember.toml.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "ember.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the test suite. Tests that need glslc skip without it.
func (Run) Tests() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withEnv("CGO_ENABLED=1"), withStream())
	return err
}
