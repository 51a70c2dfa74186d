// Package imaging validates product photos and prepares them for storage.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// MaxDimension is the maximum width or height for stored photos.
const MaxDimension = 1600

// ThumbDimension is the maximum width or height of thumbnails.
const ThumbDimension = 256

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

// MaxUploadSize limits the size of an uploaded photo in bytes.
const MaxUploadSize = 10 << 20

// ErrUnsupportedFormat is returned for data that is not a JPEG, PNG or WebP image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Photo is a processed photo and its thumbnail, both JPEG encoded.
type Photo struct {
	Data   []byte
	Thumb  []byte
	MIME   string
	Width  int
	Height int
}

// ProcessPhoto reads image data, validates the format by sniffing bytes,
// downscales it to MaxDimension and renders a thumbnail.
func ProcessPhoto(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	// Sniff actual MIME type from bytes (not trusting client headers).
	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s (only JPEG, PNG and WebP accepted)", ErrUnsupportedFormat, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %v", ErrUnsupportedFormat, err)
	}

	img = downscale(img, MaxDimension)
	full, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}
	thumb, err := encodeJPEG(downscale(img, ThumbDimension))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &Photo{
		Data:   full,
		Thumb:  thumb,
		MIME:   "image/jpeg",
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale resizes the image so neither dimension exceeds maxDim,
// preserving the aspect ratio. Smaller images are returned unchanged.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}
	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
	image.RegisterFormat("webp", "RIFF????WEBPVP8", webp.Decode, webp.DecodeConfig)
}
