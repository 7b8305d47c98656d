package renderer

import (
	"fmt"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// SceneBuffers is the device-resident copy of a Scene. Immutable once
// uploaded; the GPU reads it from every frame without locking.
type SceneBuffers struct {
	Geometry GeometryBuffers
	// Passed to the vertex shader in the push-constant block.
	VertexAddress metadata.DeviceAddress
	Ranges        []metadata.DrawRange
	Textures      []Texture
}

// ValidateScene checks that every draw range stays inside the index array
// and every index it references, offset by VertexStart, is a vertex.
func ValidateScene(scene *metadata.Scene) error {
	if scene == nil || len(scene.Vertices) == 0 || len(scene.Indices) == 0 || len(scene.Ranges) == 0 {
		return fmt.Errorf("%w: scene has no geometry", core.ErrInvalidScene)
	}
	vertexCount := uint64(len(scene.Vertices))
	indexCount := uint64(len(scene.Indices))
	for i, r := range scene.Ranges {
		end := uint64(r.IndexStart) + uint64(r.IndexCount)
		if r.IndexCount == 0 || end > indexCount {
			return fmt.Errorf("%w: range %d [%d,%d) outside %d indices", core.ErrInvalidScene, i, r.IndexStart, end, indexCount)
		}
		for _, idx := range scene.Indices[r.IndexStart:end] {
			if uint64(r.VertexStart)+uint64(idx) >= vertexCount {
				return fmt.Errorf("%w: range %d references vertex %d of %d", core.ErrInvalidScene, i, uint64(r.VertexStart)+uint64(idx), vertexCount)
			}
		}
	}
	for i := range scene.Images {
		if !scene.Images[i].Valid() {
			return fmt.Errorf("%w: image `%s` has %d bytes for %dx%dx%d", core.ErrInvalidScene,
				scene.Images[i].Name, len(scene.Images[i].Pixels), scene.Images[i].Width, scene.Images[i].Height, scene.Images[i].Components)
		}
	}
	return nil
}

// UploadScene copies the scene into device memory. The device blocks until
// each copy completes. On failure everything uploaded so far is released.
func UploadScene(device ResourceDevice, scene *metadata.Scene) (*SceneBuffers, error) {
	if err := ValidateScene(scene); err != nil {
		return nil, err
	}

	geometry, err := device.UploadGeometry(metadata.PackVertices(scene.Vertices), scene.Indices)
	if err != nil {
		return nil, fmt.Errorf("failed to upload geometry: %w", err)
	}
	buffers := &SceneBuffers{
		Geometry:      geometry,
		VertexAddress: geometry.VertexAddress(),
		Ranges:        append([]metadata.DrawRange(nil), scene.Ranges...),
	}

	for i := range scene.Images {
		tex, err := device.UploadTexture(&scene.Images[i])
		if err != nil {
			buffers.Destroy(device)
			return nil, fmt.Errorf("failed to upload texture `%s`: %w", scene.Images[i].Name, err)
		}
		buffers.Textures = append(buffers.Textures, tex)
	}

	core.LogInfo("Uploaded %d vertices, %d indices, %d ranges, %d textures.",
		len(scene.Vertices), len(scene.Indices), len(scene.Ranges), len(buffers.Textures))
	return buffers, nil
}

func (b *SceneBuffers) Destroy(device ResourceDevice) {
	for i := len(b.Textures) - 1; i >= 0; i-- {
		device.DestroyTexture(b.Textures[i])
	}
	b.Textures = nil
	if b.Geometry != nil {
		device.DestroyGeometry(b.Geometry)
		b.Geometry = nil
	}
}
