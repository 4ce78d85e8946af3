package ocr

import (
	"context"
	"image"
)

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

// ImageFormatPNG is the only format InputFromImage produces.
const ImageFormatPNG ImageFormat = "image/png"

// Box describes a rectangular area in pixel coordinates with the origin in
// the upper-left corner of the image.
type Box struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Corners returns the absolute top-left and bottom-right corners.
func (b Box) Corners() (x1, y1, x2, y2 int) {
	return b.X, b.Y, b.X + b.Width, b.Y + b.Height
}

// BoxFromRect converts an image.Rectangle to a Box.
func BoxFromRect(r image.Rectangle) Box {
	r = r.Canon()
	return Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Token is a single recognized word.
type Token struct {
	Text string
	// Confidence is the engine's recognition confidence in [0, 100]. The
	// Tesseract CLI reports -1 for words it could not score.
	Confidence int
	Box        Box
}

// Input encapsulates a single image submitted for OCR.
type Input struct {
	// ID is an optional caller-provided identifier that is echoed back in the
	// corresponding Result.
	ID string
	// Image is the encoded image payload in the format specified by Format.
	Image []byte
	// Format declares the image content type (e.g., image/png).
	Format ImageFormat
	// Width and Height are the pixel dimensions of the encoded image.
	Width  int
	Height int
	// DPI carries the effective dots-per-inch for the image; zero means unknown.
	DPI int
	// Languages is a list of trained-data names (e.g., "eng", "deu").
	Languages []string
	// Metadata allows callers to pass through engine-specific knobs (e.g.,
	// "tessedit_pageseg_mode" for Tesseract) without hard-coding them into
	// the API surface.
	Metadata map[string]string
}

// Result captures OCR output for a single input image.
type Result struct {
	// InputID mirrors the Input.ID that produced this result.
	InputID string
	// Engine is the Name of the engine that produced the tokens.
	Engine string
	// Tokens holds one entry per recognized word, possibly with empty text or
	// low confidence. Filtering is the caller's job.
	Tokens []Token
	// Ordered reports whether Tokens are in reading order.
	Ordered bool
}

// Engine is the OCR provider contract: one image in, one token list out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}
