package assets

import "context"

// Loader reads one kind of asset from disk. The concrete type of the
// returned value depends on the loader.
type Loader interface {
	Load(ctx context.Context, path string) (any, error)
}

type ResourceType uint8

const (
	ResourceTypeNone ResourceType = iota
	// GLSL source compiled at startup
	ResourceTypeShader
	// precompiled SPIR-V
	ResourceTypeSpirv
	ResourceTypeScene
	ResourceTypeImage
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeSpirv:
		return "spirv"
	case ResourceTypeScene:
		return "scene"
	case ResourceTypeImage:
		return "image"
	}
	return "none"
}
