// Package annotate renders an outline onto a copy of the scanned page: each
// heading gets a box and a label above its top-left corner, and its content
// words are stacked one per line below the box.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wudi/outline/segment"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultOutputPath is the well-known file the annotated page is written to.
const DefaultOutputPath = "output_image_with_boxes.jpg"

// DefaultStroke is the heading box outline width in pixels.
const DefaultStroke = 2

// Layout constants in pixels.
const (
	labelOffset   = 10 // label baseline above the box top
	contentOffset = 10 // first content baseline below the box bottom
	contentStride = 20 // baseline distance between content words
	defaultSize   = 13
)

var (
	headingColor = color.RGBA{R: 255, A: 255}
	contentColor = color.RGBA{B: 255, A: 255}
	plateColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Annotator draws outlines. The zero value is not usable; call New.
type Annotator struct {
	face    font.Face
	measure measureFunc
	stroke  int
	plates  bool
	quality int
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithFace draws labels with face instead of Go Regular.
func WithFace(face font.Face) Option {
	return func(a *Annotator) {
		a.face = face
		a.measure = drawerMeasure(face)
	}
}

// WithStroke sets the box outline width. Non-positive widths are ignored.
func WithStroke(px int) Option {
	return func(a *Annotator) {
		if px > 0 {
			a.stroke = px
		}
	}
}

// WithLabelPlates paints an opaque plate behind heading labels so they stay
// legible over dark scans.
func WithLabelPlates(on bool) Option {
	return func(a *Annotator) { a.plates = on }
}

// WithQuality sets the JPEG quality (1-100) used by WriteJPEG and WriteFile.
func WithQuality(q int) Option {
	return func(a *Annotator) {
		if q >= 1 && q <= 100 {
			a.quality = q
		}
	}
}

// New returns an Annotator drawing with Go Regular at 13px. When the
// TrueType face cannot be built it falls back to basicfont.Face7x13.
func New(opts ...Option) *Annotator {
	a := &Annotator{stroke: DefaultStroke, quality: 90}
	if face, err := regularFace(defaultSize); err == nil {
		a.face = face
		a.measure = shapedMeasure(defaultSize, face)
	} else {
		a.face = basicfont.Face7x13
		a.measure = drawerMeasure(basicfont.Face7x13)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Annotate returns an RGBA copy of img with res drawn on it. Neither img nor
// res is modified. A nil or empty res yields an unmodified copy.
func (a *Annotator) Annotate(img image.Image, res *segment.Result) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)

	for _, e := range res.Entries() {
		box := image.Rect(e.Coords.X1, e.Coords.Y1, e.Coords.X2, e.Coords.Y2)
		strokeRect(dst, box, headingColor, a.stroke)

		label := image.Pt(e.Coords.X1, e.Coords.Y1-labelOffset)
		if a.plates {
			a.paintPlate(dst, label, e.Heading)
		}
		a.drawText(dst, label, e.Heading, headingColor)

		y := e.Coords.Y2 + contentOffset
		for _, word := range strings.Fields(e.Content) {
			a.drawText(dst, image.Pt(e.Coords.X1, y), word, contentColor)
			y += contentStride
		}
	}
	return dst
}

// drawText draws s with its baseline starting at dot.
func (a *Annotator) drawText(dst draw.Image, dot image.Point, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: a.face,
		Dot:  fixed.P(dot.X, dot.Y),
	}
	d.DrawString(s)
}

func (a *Annotator) paintPlate(dst draw.Image, dot image.Point, s string) {
	m := a.face.Metrics()
	r := image.Rect(
		dot.X-1,
		dot.Y-m.Ascent.Ceil()-1,
		dot.X+a.measure(s)+1,
		dot.Y+m.Descent.Ceil()+1,
	)
	draw.Draw(dst, r, image.NewUniform(plateColor), image.Point{}, draw.Src)
}

// strokeRect outlines r with a border of width px drawn inside r.
func strokeRect(dst draw.Image, r image.Rectangle, c color.Color, px int) {
	r = r.Canon()
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+px),
		image.Rect(r.Min.X, r.Max.Y-px, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+px, r.Max.Y),
		image.Rect(r.Max.X-px, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}

// WriteJPEG encodes img as JPEG.
func (a *Annotator) WriteJPEG(w io.Writer, img image.Image) error {
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: a.quality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}

// WriteFile encodes img to path. The image is written to a temporary file in
// the same directory and renamed into place, so a failed write leaves no
// partial artifact behind.
func (a *Annotator) WriteFile(path string, img image.Image) (err error) {
	if path == "" {
		path = DefaultOutputPath
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".outline-*.jpg")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = a.WriteJPEG(tmp, img); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
