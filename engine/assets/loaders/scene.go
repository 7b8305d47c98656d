package loaders

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// glTF node hierarchies deeper than this are treated as malformed.
const maxNodeDepth = 64

// SceneLoader flattens a glTF or GLB file into one vertex array, one index
// array and a draw range per triangle primitive. Node transforms are baked
// into the positions.
type SceneLoader struct{}

func (sl *SceneLoader) Load(ctx context.Context, path string) (any, error) {
	return sl.LoadScene(ctx, path)
}

func (sl *SceneLoader) LoadScene(ctx context.Context, path string) (*metadata.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene `%s`: %w", path, err)
	}
	scene, err := sceneFromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("scene `%s`: %w", path, err)
	}
	images, err := loadImages(ctx, doc, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("scene `%s`: %w", path, err)
	}
	scene.Images = images

	core.LogInfo("Loaded scene `%s`: %d vertices, %d indices, %d ranges, %d images.",
		path, len(scene.Vertices), len(scene.Indices), len(scene.Ranges), len(scene.Images))
	return scene, nil
}

func sceneFromDocument(doc *gltf.Document) (*metadata.Scene, error) {
	b := &sceneBuilder{doc: doc, scene: &metadata.Scene{}}

	roots, err := rootNodes(doc)
	if err != nil {
		return nil, err
	}
	if roots == nil {
		// no node hierarchy: every mesh once, untransformed
		for i := range doc.Meshes {
			if err := b.addMesh(i, mgl32.Ident4()); err != nil {
				return nil, err
			}
		}
	}
	for _, root := range roots {
		if err := b.addNode(root, mgl32.Ident4(), 0); err != nil {
			return nil, err
		}
	}

	if len(b.scene.Ranges) == 0 {
		return nil, fmt.Errorf("%w: no triangle geometry", core.ErrInvalidScene)
	}
	return b.scene, nil
}

// rootNodes returns the nodes of the default scene, or of the first scene
// when none is marked default. A nil result means the file has no scenes.
func rootNodes(doc *gltf.Document) ([]int, error) {
	if len(doc.Scenes) == 0 {
		return nil, nil
	}
	index := 0
	if doc.Scene != nil {
		index = *doc.Scene
	}
	if index < 0 || index >= len(doc.Scenes) {
		return nil, fmt.Errorf("%w: default scene %d of %d", core.ErrInvalidScene, index, len(doc.Scenes))
	}
	nodes := doc.Scenes[index].Nodes
	if nodes == nil {
		nodes = []int{}
	}
	return nodes, nil
}

type sceneBuilder struct {
	doc   *gltf.Document
	scene *metadata.Scene
}

func (b *sceneBuilder) addNode(index int, parent mgl32.Mat4, depth int) error {
	if depth > maxNodeDepth {
		return fmt.Errorf("%w: node hierarchy deeper than %d", core.ErrInvalidScene, maxNodeDepth)
	}
	if index < 0 || index >= len(b.doc.Nodes) {
		return fmt.Errorf("%w: node %d of %d", core.ErrInvalidScene, index, len(b.doc.Nodes))
	}
	node := b.doc.Nodes[index]
	world := parent.Mul4(nodeTransform(node))

	if node.Mesh != nil {
		if err := b.addMesh(*node.Mesh, world); err != nil {
			return err
		}
	}
	for _, child := range node.Children {
		if err := b.addNode(child, world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// nodeTransform is the node's matrix, or T * R * S when it has none.
func nodeTransform(node *gltf.Node) mgl32.Mat4 {
	m := node.MatrixOrDefault()
	if m != gltf.DefaultMatrix {
		var out mgl32.Mat4
		for i := range m {
			out[i] = float32(m[i])
		}
		return out
	}
	t := node.TranslationOrDefault()
	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()
	rotation := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}.Normalize()
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(rotation.Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

func (b *sceneBuilder) addMesh(index int, world mgl32.Mat4) error {
	if index < 0 || index >= len(b.doc.Meshes) {
		return fmt.Errorf("%w: mesh %d of %d", core.ErrInvalidScene, index, len(b.doc.Meshes))
	}
	mesh := b.doc.Meshes[index]
	for i, primitive := range mesh.Primitives {
		if primitive.Mode != gltf.PrimitiveTriangles {
			core.LogWarn("Mesh `%s` primitive %d is not a triangle list, skipping.", mesh.Name, i)
			continue
		}
		if err := b.addPrimitive(primitive, world); err != nil {
			return fmt.Errorf("mesh `%s` primitive %d: %w", mesh.Name, i, err)
		}
	}
	return nil
}

func (b *sceneBuilder) addPrimitive(primitive *gltf.Primitive, world mgl32.Mat4) error {
	positions, err := b.readPositions(primitive)
	if err != nil {
		return err
	}
	uvs, err := b.readTextureCoords(primitive, len(positions))
	if err != nil {
		return err
	}
	indices, err := b.readIndices(primitive, len(positions))
	if err != nil {
		return err
	}

	vertexStart := uint32(len(b.scene.Vertices))
	for i, p := range positions {
		wp := world.Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1})
		b.scene.Vertices = append(b.scene.Vertices, metadata.Vertex{
			Position: [3]float32{wp.X(), wp.Y(), wp.Z()},
			UV:       uvs[i],
		})
	}
	b.scene.Ranges = append(b.scene.Ranges, metadata.DrawRange{
		VertexStart: vertexStart,
		IndexStart:  uint32(len(b.scene.Indices)),
		IndexCount:  uint32(len(indices)),
	})
	b.scene.Indices = append(b.scene.Indices, indices...)
	return nil
}

func (b *sceneBuilder) accessor(index int) (*gltf.Accessor, error) {
	if index < 0 || index >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d of %d", core.ErrInvalidScene, index, len(b.doc.Accessors))
	}
	return b.doc.Accessors[index], nil
}

func (b *sceneBuilder) readPositions(primitive *gltf.Primitive) ([][3]float32, error) {
	index, ok := primitive.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("%w: primitive has no positions", core.ErrInvalidScene)
	}
	acr, err := b.accessor(index)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(b.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: primitive has no vertices", core.ErrInvalidScene)
	}
	return positions, nil
}

// readTextureCoords returns the first UV set, or zeros when there is none.
func (b *sceneBuilder) readTextureCoords(primitive *gltf.Primitive, count int) ([][2]float32, error) {
	index, ok := primitive.Attributes[gltf.TEXCOORD_0]
	if !ok {
		return make([][2]float32, count), nil
	}
	acr, err := b.accessor(index)
	if err != nil {
		return nil, err
	}
	uvs, err := modeler.ReadTextureCoord(b.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read texture coordinates: %w", err)
	}
	if len(uvs) != count {
		return nil, fmt.Errorf("%w: %d texture coordinates for %d positions", core.ErrInvalidScene, len(uvs), count)
	}
	return uvs, nil
}

// readIndices returns the primitive's indices, local to its vertices. Non
// indexed primitives draw their vertices in order.
func (b *sceneBuilder) readIndices(primitive *gltf.Primitive, count int) ([]uint32, error) {
	if primitive.Indices == nil {
		indices := make([]uint32, count)
		for i := range indices {
			indices[i] = uint32(i)
		}
		return indices, nil
	}
	acr, err := b.accessor(*primitive.Indices)
	if err != nil {
		return nil, err
	}
	indices, err := modeler.ReadIndices(b.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read indices: %w", err)
	}
	if len(indices) == 0 || len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices is not a triangle list", core.ErrInvalidScene, len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= count {
			return nil, fmt.Errorf("%w: index %d of %d vertices", core.ErrInvalidScene, idx, count)
		}
	}
	return indices, nil
}

// loadImages decodes every image of the document in parallel. Images keep
// their declared order; unnamed or duplicate names get a generated one.
func loadImages(ctx context.Context, doc *gltf.Document, dir string) ([]metadata.ImageData, error) {
	images := make([]metadata.ImageData, len(doc.Images))
	names := imageNames(doc.Images)

	g, gctx := errgroup.WithContext(ctx)
	for i, img := range doc.Images {
		i, img := i, img
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := imageBytes(doc, img, dir)
			if err != nil {
				return fmt.Errorf("image `%s`: %w", names[i], err)
			}
			decoded, err := decodeBytes(names[i], data)
			if err != nil {
				return err
			}
			images[i] = *decoded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func imageNames(images []*gltf.Image) []string {
	names := make([]string, len(images))
	seen := make(map[string]bool, len(images))
	for i, img := range images {
		name := img.Name
		if name == "" || seen[name] {
			name = "image-" + uuid.NewString()
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

// imageBytes finds the encoded bytes of an image in a buffer view, a data
// URI or a file next to the scene.
func imageBytes(doc *gltf.Document, img *gltf.Image, dir string) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		index := *img.BufferView
		if index < 0 || index >= len(doc.BufferViews) {
			return nil, fmt.Errorf("%w: buffer view %d of %d", core.ErrInvalidScene, index, len(doc.BufferViews))
		}
		return modeler.ReadBufferView(doc, doc.BufferViews[index])
	case img.IsEmbeddedResource():
		return img.MarshalData()
	case img.URI != "":
		uri, err := url.PathUnescape(img.URI)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(uri)))
	}
	return nil, fmt.Errorf("%w: image has no data", core.ErrInvalidScene)
}
