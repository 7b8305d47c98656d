package loaders

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/spaghettifunk/ember/engine/core"
)

func triangleDocument(t *testing.T) *gltf.Document {
	t.Helper()
	doc := gltf.NewDocument()
	positions := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	uvs := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}})
	indices := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{
		Name: "triangle",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(indices),
			Attributes: map[string]int{gltf.POSITION: positions, gltf.TEXCOORD_0: uvs},
		}},
	}}
	return doc
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: uint8(255 * x), G: 0, B: 0, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSceneFromDocumentFlattensNodes(t *testing.T) {
	doc := triangleDocument(t)
	// the same mesh twice, the second instance moved along x
	doc.Nodes = []*gltf.Node{
		{Name: "a", Mesh: gltf.Index(0)},
		{Name: "b", Mesh: gltf.Index(0), Translation: [3]float64{10, 0, 0}},
	}
	doc.Scenes[0].Nodes = []int{0, 1}

	scene, err := sceneFromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(scene.Vertices) != 6 || len(scene.Indices) != 6 || len(scene.Ranges) != 2 {
		t.Fatalf("got %d vertices, %d indices, %d ranges", len(scene.Vertices), len(scene.Indices), len(scene.Ranges))
	}
	second := scene.Ranges[1]
	if second.VertexStart != 3 || second.IndexStart != 3 || second.IndexCount != 3 {
		t.Fatalf("second range %+v", second)
	}
	// indices stay local to the range
	for _, idx := range scene.Indices[second.IndexStart:] {
		if idx > 2 {
			t.Fatalf("index %d not local to its range", idx)
		}
	}
	if got := scene.Vertices[4].Position; got != [3]float32{11, 0, 0} {
		t.Fatalf("translated vertex %v", got)
	}
	if got := scene.Vertices[2].UV; got != [2]float32{0, 1} {
		t.Fatalf("uv %v", got)
	}
}

func TestSceneFromDocumentChildTransform(t *testing.T) {
	doc := triangleDocument(t)
	doc.Nodes = []*gltf.Node{
		{Name: "parent", Scale: [3]float64{2, 2, 2}, Children: []int{1}},
		{Name: "child", Mesh: gltf.Index(0), Translation: [3]float64{0, 0, 1}},
	}
	doc.Scenes[0].Nodes = []int{0}

	scene, err := sceneFromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if got := scene.Vertices[1].Position; got != [3]float32{2, 0, 2} {
		t.Fatalf("vertex %v, want parent scale applied after child translation", got)
	}
}

func TestSceneFromDocumentWithoutScenes(t *testing.T) {
	doc := triangleDocument(t)
	doc.Scenes = nil
	doc.Scene = nil
	scene, err := sceneFromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(scene.Ranges) != 1 {
		t.Fatalf("ranges %d", len(scene.Ranges))
	}
}

func TestSceneFromDocumentRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc *gltf.Document)
	}{
		{"no geometry", func(doc *gltf.Document) {
			doc.Nodes = []*gltf.Node{{Name: "empty"}}
			doc.Scenes[0].Nodes = []int{0}
		}},
		{"missing positions", func(doc *gltf.Document) {
			delete(doc.Meshes[0].Primitives[0].Attributes, gltf.POSITION)
			doc.Scenes = nil
		}},
		{"bad node", func(doc *gltf.Document) {
			doc.Scenes[0].Nodes = []int{7}
		}},
		{"cycle", func(doc *gltf.Document) {
			doc.Nodes = []*gltf.Node{{Name: "loop", Children: []int{0}}}
			doc.Scenes[0].Nodes = []int{0}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := triangleDocument(t)
			tt.mutate(doc)
			if _, err := sceneFromDocument(doc); !errors.Is(err, core.ErrInvalidScene) {
				t.Fatalf("err = %v, want ErrInvalidScene", err)
			}
		})
	}
}

func TestSceneFromDocumentSkipsNonTriangles(t *testing.T) {
	doc := triangleDocument(t)
	lines := *doc.Meshes[0].Primitives[0]
	lines.Mode = gltf.PrimitiveLines
	doc.Meshes[0].Primitives = append(doc.Meshes[0].Primitives, &lines)
	doc.Scenes = nil

	scene, err := sceneFromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(scene.Ranges) != 1 {
		t.Fatalf("ranges %d, want the line primitive skipped", len(scene.Ranges))
	}
}

func TestLoadImages(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "side.png"), pngBytes(t, 3, 2), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := triangleDocument(t)
	doc.Images = []*gltf.Image{
		{Name: "embedded", URI: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 2, 1))},
		{Name: "embedded", URI: "side.png"},
		{URI: "side.png"},
	}

	images, err := loadImages(context.Background(), doc, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 3 {
		t.Fatalf("%d images", len(images))
	}
	if images[0].Name != "embedded" || images[0].Width != 2 || images[0].Height != 1 {
		t.Fatalf("first image %s %dx%d", images[0].Name, images[0].Width, images[0].Height)
	}
	if images[1].Width != 3 || images[1].Height != 2 || !images[1].Valid() {
		t.Fatalf("second image %dx%d", images[1].Width, images[1].Height)
	}
	seen := map[string]bool{}
	for _, img := range images {
		if seen[img.Name] {
			t.Fatalf("duplicate name %s", img.Name)
		}
		seen[img.Name] = true
	}
	if !strings.HasPrefix(images[2].Name, "image-") {
		t.Fatalf("generated name %q", images[2].Name)
	}
}

func TestLoadImagesMissingFile(t *testing.T) {
	doc := triangleDocument(t)
	doc.Images = []*gltf.Image{{Name: "gone", URI: "gone.png"}}
	if _, err := loadImages(context.Background(), doc, t.TempDir()); err == nil {
		t.Fatal("expected error for missing image file")
	}
}
