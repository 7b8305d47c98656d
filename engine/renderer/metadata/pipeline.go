package metadata

type Format uint8

const (
	FormatUndefined Format = iota
	// 8-bit BGRA, sRGB nonlinear. The presented surface format.
	FormatB8G8R8A8Srgb
	// 8-bit RGBA, sRGB. Textures.
	FormatR8G8B8A8Srgb
	// 32-bit float depth.
	FormatD32Sfloat
)

const (
	SwapchainColorFormat = FormatB8G8R8A8Srgb
	DepthFormat          = FormatD32Sfloat
	TextureFormat        = FormatR8G8B8A8Srgb
)

type ShaderStage uint8

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	}
	return "unknown"
}

type CullMode uint8

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

type FrontFace uint8

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

type CompareOp uint8

const (
	CompareLess CompareOp = iota
	CompareLessOrEqual
	CompareAlways
)

/**
 * @brief Fixed-function state and layout of the single graphics pipeline.
 * There is no vertex input state: geometry is pulled from a device address.
 */
type PipelineConfig struct {
	ColorFormat      Format
	DepthFormat      Format
	CullMode         CullMode
	FrontFace        FrontFace
	DepthTest        bool
	DepthWrite       bool
	DepthCompare     CompareOp
	PushConstantSize uint32
}

// DefaultPipelineConfig is the mesh pipeline: back-face culling with
// clockwise front faces, depth test less with writes, one opaque color target.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ColorFormat:      SwapchainColorFormat,
		DepthFormat:      DepthFormat,
		CullMode:         CullBack,
		FrontFace:        FrontFaceClockwise,
		DepthTest:        true,
		DepthWrite:       true,
		DepthCompare:     CompareLess,
		PushConstantSize: FrameConstantsSize,
	}
}
