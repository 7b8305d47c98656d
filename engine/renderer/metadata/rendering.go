package metadata

type ImageLayout uint8

const (
	LayoutUndefined ImageLayout = iota
	LayoutColorAttachment
	LayoutDepthAttachment
	LayoutPresent
	LayoutTransferDst
	LayoutShaderReadOnly
)

func (l ImageLayout) String() string {
	switch l {
	case LayoutUndefined:
		return "undefined"
	case LayoutColorAttachment:
		return "color-attachment"
	case LayoutDepthAttachment:
		return "depth-attachment"
	case LayoutPresent:
		return "present"
	case LayoutTransferDst:
		return "transfer-dst"
	case LayoutShaderReadOnly:
		return "shader-read-only"
	}
	return "unknown"
}

type AttachmentKind uint8

const (
	AttachmentColor AttachmentKind = iota
	AttachmentDepth
)

// ImageTransition moves one frame attachment between layouts. For color
// attachments ImageIndex picks the swapchain image.
type ImageTransition struct {
	Kind       AttachmentKind
	ImageIndex uint32
	From       ImageLayout
	To         ImageLayout
}

/**
 * @brief Attachments and clears of one dynamic rendering scope.
 */
type RenderingInfo struct {
	Extent     Extent
	ImageIndex uint32
	ClearColor [4]float32
	ClearDepth float32
}
