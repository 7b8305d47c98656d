package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// Minimum instance and device API version.
var apiVersion = uint32(vk.MakeVersion(1, 3, 0))

const validationLayerName = "VK_LAYER_KHRONOS_validation"

const (
	portabilityEnumerationExtension = "VK_KHR_portability_enumeration"
	portabilitySubsetExtension      = "VK_KHR_portability_subset"
)

// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
const instanceCreateEnumeratePortability = 0x00000001

// The synchronization2 stage and access bits are 64-bit constants in the
// headers, the binding only carries the flag types.
const (
	stage2None                  vk.PipelineStageFlags2 = 0
	stage2VertexShader          vk.PipelineStageFlags2 = 0x00000008
	stage2FragmentShader        vk.PipelineStageFlags2 = 0x00000080
	stage2EarlyFragmentTests    vk.PipelineStageFlags2 = 0x00000100
	stage2LateFragmentTests     vk.PipelineStageFlags2 = 0x00000200
	stage2ColorAttachmentOutput vk.PipelineStageFlags2 = 0x00000400
	stage2Transfer              vk.PipelineStageFlags2 = 0x00001000
	stage2BottomOfPipe          vk.PipelineStageFlags2 = 0x00002000
	stage2AllCommands           vk.PipelineStageFlags2 = 0x00010000

	access2None                        vk.AccessFlags2 = 0
	access2ShaderRead                  vk.AccessFlags2 = 0x00000020
	access2ColorAttachmentRead         vk.AccessFlags2 = 0x00000080
	access2ColorAttachmentWrite        vk.AccessFlags2 = 0x00000100
	access2DepthStencilAttachmentRead  vk.AccessFlags2 = 0x00000200
	access2DepthStencilAttachmentWrite vk.AccessFlags2 = 0x00000400
	access2TransferWrite               vk.AccessFlags2 = 0x00001000
)

func vulkanFormat(f metadata.Format) vk.Format {
	switch f {
	case metadata.FormatB8G8R8A8Srgb:
		return vk.FormatB8g8r8a8Srgb
	case metadata.FormatR8G8B8A8Srgb:
		return vk.FormatR8g8b8a8Srgb
	case metadata.FormatD32Sfloat:
		return vk.FormatD32Sfloat
	}
	return vk.FormatUndefined
}

func vulkanLayout(l metadata.ImageLayout) vk.ImageLayout {
	switch l {
	case metadata.LayoutColorAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case metadata.LayoutDepthAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case metadata.LayoutPresent:
		return vk.ImageLayoutPresentSrc
	case metadata.LayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case metadata.LayoutShaderReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	}
	return vk.ImageLayoutUndefined
}

// layoutScope is the stage and access an image is used with while it sits
// in a layout. For the undefined layout it is the scope of the previous
// frame's writes to the same attachment.
func layoutScope(l metadata.ImageLayout, kind metadata.AttachmentKind) (vk.PipelineStageFlags2, vk.AccessFlags2) {
	switch l {
	case metadata.LayoutUndefined:
		if kind == metadata.AttachmentDepth {
			return stage2EarlyFragmentTests | stage2LateFragmentTests, access2DepthStencilAttachmentWrite
		}
		return stage2ColorAttachmentOutput, access2None
	case metadata.LayoutColorAttachment:
		return stage2ColorAttachmentOutput, access2ColorAttachmentRead | access2ColorAttachmentWrite
	case metadata.LayoutDepthAttachment:
		return stage2EarlyFragmentTests | stage2LateFragmentTests, access2DepthStencilAttachmentRead | access2DepthStencilAttachmentWrite
	case metadata.LayoutPresent:
		return stage2BottomOfPipe, access2None
	case metadata.LayoutTransferDst:
		return stage2Transfer, access2TransferWrite
	case metadata.LayoutShaderReadOnly:
		return stage2FragmentShader | stage2VertexShader, access2ShaderRead
	}
	return stage2AllCommands, access2None
}

func aspectMask(kind metadata.AttachmentKind) vk.ImageAspectFlags {
	if kind == metadata.AttachmentDepth {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

func vulkanStage(s metadata.ShaderStage) vk.ShaderStageFlagBits {
	if s == metadata.ShaderStageFragment {
		return vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageVertexBit
}

func vulkanCullMode(c metadata.CullMode) vk.CullModeFlags {
	switch c {
	case metadata.CullNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case metadata.CullFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	}
	return vk.CullModeFlags(vk.CullModeBackBit)
}

func vulkanFrontFace(f metadata.FrontFace) vk.FrontFace {
	if f == metadata.FrontFaceClockwise {
		return vk.FrontFaceClockwise
	}
	return vk.FrontFaceCounterClockwise
}

func vulkanCompareOp(c metadata.CompareOp) vk.CompareOp {
	switch c {
	case metadata.CompareLessOrEqual:
		return vk.CompareOpLessOrEqual
	case metadata.CompareAlways:
		return vk.CompareOpAlways
	}
	return vk.CompareOpLess
}

func boolToVk(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
