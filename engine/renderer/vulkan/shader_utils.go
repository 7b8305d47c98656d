package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderModule struct {
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	stage  metadata.ShaderStage
}

func (m *VulkanShaderModule) Stage() metadata.ShaderStage {
	return m.stage
}

// ShaderStageCreateInfo describes the module as a pipeline stage with entry
// point main.
func (m *VulkanShaderModule) ShaderStageCreateInfo() vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vulkanStage(m.stage),
		Module: m.Handle,
		PName:  VulkanSafeString("main"),
	}
}

func (b *Backend) CreateShaderModule(stage metadata.ShaderStage, code []uint32) (renderer.ShaderModule, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("empty %s shader bytecode", stage)
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
	module := &VulkanShaderModule{stage: stage}
	if err := check("vkCreateShaderModule", vk.CreateShaderModule(b.context.Device.LogicalDevice, &createInfo, b.context.Allocator, &module.Handle)); err != nil {
		core.LogError("failed to create %s shader module: %s", stage, err)
		return nil, err
	}
	return module, nil
}

func (b *Backend) DestroyShaderModule(module renderer.ShaderModule) {
	m, ok := module.(*VulkanShaderModule)
	if !ok || m.Handle == vk.NullShaderModule {
		return
	}
	vk.DestroyShaderModule(b.context.Device.LogicalDevice, m.Handle, b.context.Allocator)
	m.Handle = vk.NullShaderModule
}
