package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// ErrNoImage is returned when an input carries no image payload.
var ErrNoImage = errors.New("ocr: no image data")

// InputOption mutates an OCR input generated from a decoded page image.
type InputOption func(*Input)

// WithID sets the identifier echoed back in the Result.
func WithID(id string) InputOption {
	return func(in *Input) { in.ID = id }
}

// WithLanguages sets language hints on the OCR input.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithDPI overrides the DPI value on the OCR input.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// Grayscale returns img converted to 8-bit grayscale. A *image.Gray is
// returned unchanged.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}

// InputFromImage converts a decoded page image into an OCR input: the image
// is reduced to grayscale and PNG-encoded.
func InputFromImage(img image.Image, opts ...InputOption) (Input, error) {
	if img == nil {
		return Input{}, ErrNoImage
	}
	gray := Grayscale(img)
	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return Input{}, fmt.Errorf("encode grayscale image: %w", err)
	}
	in := Input{
		ID:     "page-0",
		Image:  buf.Bytes(),
		Format: ImageFormatPNG,
		Width:  gray.Bounds().Dx(),
		Height: gray.Bounds().Dy(),
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}
