package loaders

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	// decoders registered with image.Decode
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// TextureLoader decodes PNG, JPEG, BMP, TIFF and WebP files into tightly
// packed RGBA8 pixels.
type TextureLoader struct{}

func (tl *TextureLoader) Load(ctx context.Context, path string) (any, error) {
	return tl.LoadImage(path)
}

func (tl *TextureLoader) LoadImage(path string) (*metadata.ImageData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return DecodeImage(name, file)
}

// DecodeImage decodes any registered format and converts it to RGBA8.
func DecodeImage(name string, r io.Reader) (*metadata.ImageData, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image `%s`: %w", name, err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("image `%s` (%s) is empty", name, format)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	return &metadata.ImageData{
		Name:       name,
		Width:      uint32(bounds.Dx()),
		Height:     uint32(bounds.Dy()),
		Components: 4,
		Pixels:     rgba.Pix,
	}, nil
}

func decodeBytes(name string, data []byte) (*metadata.ImageData, error) {
	return DecodeImage(name, bytes.NewReader(data))
}
