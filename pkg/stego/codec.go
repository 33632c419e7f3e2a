// Package stego implements the LSB image steganography codec used to
// carry a 32-byte password hash inside a user's cover picture.
//
// The payload is written bit by bit into the least-significant bit of
// each color channel, channel order R,G,B, pixels scanned left to right,
// top to bottom. The first 16 bit-slots hold a big-endian length prefix
// (always 256), the next 256 slots hold the payload itself.
package stego

import (
	"errors"
	"image"
)

const (
	// PayloadSize is the embedded payload size in bytes (a SHA-256 hash)
	PayloadSize = 32

	payloadBits = PayloadSize * 8 // 256
	lengthBits  = 16

	// requiredBits is the total channel capacity an image needs
	requiredBits = lengthBits + payloadBits // 272
)

var (
	ErrInsufficientCapacity = errors.New("image too small for payload")
	ErrInvalidLength        = errors.New("invalid embedded length")
	ErrInvalidPayloadSize   = errors.New("invalid payload size")
)

// Capacity returns the number of embeddable bits in an image: one per
// color channel, three channels per pixel.
func Capacity(bounds image.Rectangle) int {
	return bounds.Dx() * bounds.Dy() * 3
}

// Encode embeds a 32-byte payload into a copy of img and returns the
// stego image. Images that are not already RGB are normalized first.
// The result must be saved losslessly (PNG); any re-quantization
// destroys the embedded bits.
func Encode(img image.Image, payload []byte) (*image.RGBA, error) {
	if len(payload) != PayloadSize {
		return nil, ErrInvalidPayloadSize
	}
	if Capacity(img.Bounds()) < requiredBits {
		return nil, ErrInsufficientCapacity
	}

	rgba := toRGBA(img)

	slot := 0

	// 16-bit big-endian length prefix, most significant bit first.
	for i := lengthBits - 1; i >= 0; i-- {
		writeBit(rgba, slot, uint8(uint16(payloadBits)>>i)&1)
		slot++
	}

	// Payload bits, byte by byte, most significant bit first.
	for _, b := range payload {
		for i := 7; i >= 0; i-- {
			writeBit(rgba, slot, (b>>i)&1)
			slot++
		}
	}

	return rgba, nil
}

// Decode extracts the 32-byte payload embedded by Encode. The declared
// length must be exactly 256 bits; anything else means the image carries
// no payload or has been tampered with.
func Decode(img image.Image) ([]byte, error) {
	if Capacity(img.Bounds()) < requiredBits {
		return nil, ErrInsufficientCapacity
	}

	rgba := toRGBA(img)

	slot := 0

	length := 0
	for i := 0; i < lengthBits; i++ {
		length = length<<1 | int(readBit(rgba, slot))
		slot++
	}
	if length != payloadBits {
		return nil, ErrInvalidLength
	}

	payload := make([]byte, 0, PayloadSize)
	var b uint8
	for i := 0; i < length; i++ {
		b = b<<1 | readBit(rgba, slot)
		slot++
		if (i+1)%8 == 0 {
			payload = append(payload, b)
			b = 0
		}
	}

	if len(payload) != PayloadSize {
		return nil, ErrInvalidPayloadSize
	}

	return payload, nil
}

// writeBit sets the LSB of the channel addressed by slot. Slot n maps to
// pixel n/3, channel n%3 (R, G, B).
func writeBit(img *image.RGBA, slot int, bit uint8) {
	width := img.Bounds().Dx()
	pixel := slot / 3
	x := img.Bounds().Min.X + pixel%width
	y := img.Bounds().Min.Y + pixel/width

	offset := img.PixOffset(x, y) + slot%3
	img.Pix[offset] = img.Pix[offset]&0xFE | bit
}

// readBit returns the LSB of the channel addressed by slot.
func readBit(img *image.RGBA, slot int) uint8 {
	width := img.Bounds().Dx()
	pixel := slot / 3
	x := img.Bounds().Min.X + pixel%width
	y := img.Bounds().Min.Y + pixel/width

	return img.Pix[img.PixOffset(x, y)+slot%3] & 0x01
}
