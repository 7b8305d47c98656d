package renderer

import "github.com/spaghettifunk/ember/engine/renderer/metadata"

type frameRecording struct {
	imageIndex uint32
	extent     metadata.Extent
	clearColor [4]float32
	pipeline   Pipeline
	geometry   GeometryBuffers
	ranges     []metadata.DrawRange
	constants  metadata.FrameConstants
}

// recordFrame emits one frame: attachments into render layouts, a dynamic
// rendering scope with one indexed draw per range, color into present.
func recordFrame(rec CommandRecorder, f *frameRecording) error {
	// depth is cleared every frame, so undefined is always a valid source
	rec.TransitionImages(
		metadata.ImageTransition{
			Kind:       metadata.AttachmentColor,
			ImageIndex: f.imageIndex,
			From:       metadata.LayoutUndefined,
			To:         metadata.LayoutColorAttachment,
		},
		metadata.ImageTransition{
			Kind: metadata.AttachmentDepth,
			From: metadata.LayoutUndefined,
			To:   metadata.LayoutDepthAttachment,
		},
	)

	rec.BeginRendering(metadata.RenderingInfo{
		Extent:     f.extent,
		ImageIndex: f.imageIndex,
		ClearColor: f.clearColor,
		ClearDepth: 1.0,
	})
	rec.SetViewportAndScissor(f.extent)
	rec.BindPipeline(f.pipeline)
	rec.PushConstants(f.pipeline, f.constants.Bytes())
	rec.BindIndexBuffer(f.geometry)
	for _, r := range f.ranges {
		rec.DrawIndexed(r.IndexCount, r.IndexStart, int32(r.VertexStart))
	}
	rec.EndRendering()

	rec.TransitionImages(metadata.ImageTransition{
		Kind:       metadata.AttachmentColor,
		ImageIndex: f.imageIndex,
		From:       metadata.LayoutColorAttachment,
		To:         metadata.LayoutPresent,
	})
	return rec.End()
}
