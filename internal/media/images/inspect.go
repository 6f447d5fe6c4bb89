// Package images provides validation and placeholder generation for
// uploaded page and cover images.
package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/bbrks/go-blurhash"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// blurHashSize is the target size for BlurHash computation.
// BlurHash doesn't need high resolution - a small thumbnail produces nearly identical results.
// Using 64x64 reduces computation time from seconds to milliseconds.
const blurHashSize = 64

// Info describes a decoded upload.
type Info struct {
	Format   string // "jpeg", "png", "gif", "webp"
	Width    int
	Height   int
	BlurHash string
}

// MIMEType returns the MIME type for the detected format.
func (i Info) MIMEType() string {
	return "image/" + i.Format
}

// Inspect decodes an uploaded image, confirming it really is one, and
// computes a BlurHash placeholder for client-side rendering.
// Returns an error for anything the registered decoders can't parse.
func Inspect(data []byte) (Info, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	info := Info{
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	// Resize to small thumbnail for fast BlurHash computation.
	// BlurHash is a low-resolution placeholder, so we don't need the full image.
	thumbnail := resizeForBlurHash(img)

	// 4 horizontal, 3 vertical components - sweet spot for scanned pages and covers
	hash, err := blurhash.Encode(4, 3, thumbnail)
	if err != nil {
		return Info{}, fmt.Errorf("encode blurhash: %w", err)
	}
	info.BlurHash = hash

	return info, nil
}

// resizeForBlurHash creates a small thumbnail suitable for BlurHash computation.
// Uses simple nearest-neighbor scaling which is fast and sufficient for BlurHash.
func resizeForBlurHash(img image.Image) image.Image {
	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	// If image is already small enough, use it directly
	if srcWidth <= blurHashSize && srcHeight <= blurHashSize {
		return img
	}

	// Calculate target dimensions maintaining aspect ratio
	var dstWidth, dstHeight int
	if srcWidth > srcHeight {
		dstWidth = blurHashSize
		dstHeight = (srcHeight * blurHashSize) / srcWidth
		if dstHeight < 1 {
			dstHeight = 1
		}
	} else {
		dstHeight = blurHashSize
		dstWidth = (srcWidth * blurHashSize) / srcHeight
		if dstWidth < 1 {
			dstWidth = 1
		}
	}

	// Create destination image
	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))

	// Simple box scaling - fast and sufficient for BlurHash
	xRatio := float64(srcWidth) / float64(dstWidth)
	yRatio := float64(srcHeight) / float64(dstHeight)

	for y := 0; y < dstHeight; y++ {
		for x := 0; x < dstWidth; x++ {
			srcX := int(float64(x) * xRatio)
			srcY := int(float64(y) * yRatio)
			dst.Set(x, y, img.At(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}

	return dst
}
