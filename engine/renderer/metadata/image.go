package metadata

/**
 * @brief Raw pixels of one texture as produced by the scene loader.
 */
type ImageData struct {
	/** @brief The name of the image, unique within a scene. */
	Name string
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The number of channels per pixel, 1 to 4. */
	Components uint8
	/** @brief The pixel data of the image, tightly packed rows. */
	Pixels []uint8
}

// RGBA returns the pixels expanded to four 8-bit channels. Missing color
// channels replicate the first one and a missing alpha is opaque.
func (i *ImageData) RGBA() []uint8 {
	if i.Components == 4 {
		return i.Pixels
	}
	count := int(i.Width) * int(i.Height)
	out := make([]uint8, count*4)
	c := int(i.Components)
	for p := 0; p < count; p++ {
		src := i.Pixels[p*c : p*c+c]
		dst := out[p*4 : p*4+4]
		switch c {
		case 1:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[0], src[0], 255
		case 2:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[0], src[0], src[1]
		case 3:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[1], src[2], 255
		}
	}
	return out
}

// Valid reports whether the pixel buffer matches the declared size.
func (i *ImageData) Valid() bool {
	if i.Width == 0 || i.Height == 0 || i.Components < 1 || i.Components > 4 {
		return false
	}
	return len(i.Pixels) == int(i.Width)*int(i.Height)*int(i.Components)
}
