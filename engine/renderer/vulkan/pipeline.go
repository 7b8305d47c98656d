package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// The push-constant block is visible to both stages.
var pushConstantStages = vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)

// Max guaranteed push-constant size.
const maxPushConstantSize = 128

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout

	pushConstantSize uint32
}

func (p *VulkanPipeline) PushConstantSize() uint32 {
	return p.pushConstantSize
}

// CreatePipeline links the two stages into a dynamic-rendering pipeline.
// There is no vertex input: the vertex shader reads vertices from the
// address in the push constants.
func (b *Backend) CreatePipeline(vertex, fragment renderer.ShaderModule, config metadata.PipelineConfig) (renderer.Pipeline, error) {
	if config.PushConstantSize > maxPushConstantSize {
		return nil, fmt.Errorf("push-constant block of %d bytes exceeds %d", config.PushConstantSize, maxPushConstantSize)
	}
	vs, ok := vertex.(*VulkanShaderModule)
	if !ok || vs.Stage() != metadata.ShaderStageVertex {
		return nil, fmt.Errorf("vertex stage is not a vertex shader module")
	}
	fs, ok := fragment.(*VulkanShaderModule)
	if !ok || fs.Stage() != metadata.ShaderStageFragment {
		return nil, fmt.Errorf("fragment stage is not a fragment shader module")
	}

	outPipeline := &VulkanPipeline{pushConstantSize: config.PushConstantSize}

	// Pipeline layout: no descriptor sets, one push-constant range.
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	if config.PushConstantSize > 0 {
		pipelineLayoutCreateInfo.PushConstantRangeCount = 1
		pipelineLayoutCreateInfo.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: pushConstantStages,
			Offset:     0,
			Size:       config.PushConstantSize,
		}}
	}
	if err := check("vkCreatePipelineLayout", vk.CreatePipelineLayout(b.context.Device.LogicalDevice, &pipelineLayoutCreateInfo, b.context.Allocator, &outPipeline.PipelineLayout)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	// Viewport and scissor are dynamic; only the counts matter here.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vulkanCullMode(config.CullMode),
		FrontFace:               vulkanFrontFace(config.FrontFace),
		DepthBiasEnable:         vk.False,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   boolToVk(config.DepthTest),
		DepthWriteEnable:  boolToVk(config.DepthWrite),
		DepthCompareOp:    vulkanCompareOp(config.DepthCompare),
		StencilTestEnable: vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	// dynamic rendering: attachment formats instead of a render pass
	renderingFormats, err := renderingFormatsChain(vulkanFormat(config.ColorFormat), vulkanFormat(config.DepthFormat))
	if err != nil {
		vk.DestroyPipelineLayout(b.context.Device.LogicalDevice, outPipeline.PipelineLayout, b.context.Allocator)
		return nil, err
	}
	defer renderingFormats.free()

	stages := []vk.PipelineShaderStageCreateInfo{vs.ShaderStageCreateInfo(), fs.ShaderStageCreateInfo()}
	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:               renderingFormats.head,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          vk.NullRenderPass,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := check("vkCreateGraphicsPipelines", vk.CreateGraphicsPipelines(
		b.context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		b.context.Allocator,
		pipelines)); err != nil {
		core.LogError(err.Error())
		vk.DestroyPipelineLayout(b.context.Device.LogicalDevice, outPipeline.PipelineLayout, b.context.Allocator)
		return nil, err
	}
	outPipeline.Handle = pipelines[0]

	core.LogDebug("Graphics pipeline created!")
	return outPipeline, nil
}

func (b *Backend) DestroyPipeline(pipeline renderer.Pipeline) {
	p, ok := pipeline.(*VulkanPipeline)
	if !ok {
		return
	}
	if p.Handle != vk.NullPipeline {
		vk.DestroyPipeline(b.context.Device.LogicalDevice, p.Handle, b.context.Allocator)
		p.Handle = vk.NullPipeline
	}
	if p.PipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(b.context.Device.LogicalDevice, p.PipelineLayout, b.context.Allocator)
		p.PipelineLayout = vk.NullPipelineLayout
	}
}
