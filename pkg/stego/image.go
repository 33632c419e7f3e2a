package stego

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	// Registered so cover pictures supplied as JPEG or GIF still decode;
	// they are re-encoded as PNG after embedding.
	_ "image/gif"
	_ "image/jpeg"
)

// toRGBA normalizes any image (paletted, grayscale, RGBA, ...) into a
// freshly allocated RGBA raster so the LSB codec sees plain 8-bit
// channels. The input is never modified.
func toRGBA(img image.Image) *image.RGBA {
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}

// DecodeImage decodes raw image bytes in any registered format.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// EncodePNG serializes an image as PNG, the only lossless format the
// codec supports for output.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EmbedPayload decodes a cover image, embeds the payload and returns the
// stego image re-encoded as PNG.
func EmbedPayload(cover []byte, payload []byte) ([]byte, error) {
	img, err := DecodeImage(cover)
	if err != nil {
		return nil, err
	}

	encoded, err := Encode(img, payload)
	if err != nil {
		return nil, err
	}

	return EncodePNG(encoded)
}

// ExtractPayload decodes a stego PNG and extracts the embedded payload.
func ExtractPayload(data []byte) ([]byte, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return Decode(img)
}
