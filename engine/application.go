package engine

import (
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Everything has been released
	EngineStageShutdown
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	case EngineStageShutdown:
		return "shutdown"
	}
	return "unknown"
}

func contextConfig(cfg *core.Config, extensions []string) vulkan.ContextConfig {
	return vulkan.ContextConfig{
		ApplicationName: cfg.Application.Name,
		Extensions:      extensions,
		Validation:      cfg.Renderer.Validation,
	}
}

func rendererOptions(cfg *core.Config, width, height uint32) renderer.Options {
	return renderer.Options{
		Extent:         metadata.Extent{Width: width, Height: height},
		FramesInFlight: int(cfg.Renderer.FramesInFlight),
		ClearColor:     cfg.Renderer.ClearColor,
		VertexShader:   cfg.Renderer.VertexShader,
		FragmentShader: cfg.Renderer.FragmentShader,
	}
}
