package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"reflect"
	"testing"
)

func TestInputFromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	in, err := InputFromImage(
		img,
		WithID("scan"),
		WithLanguages("eng", "spa"),
		WithDPI(300),
		WithTesseractPSM(6),
	)
	if err != nil {
		t.Fatalf("InputFromImage() error = %v", err)
	}
	if in.Format != ImageFormatPNG {
		t.Fatalf("unexpected format: %v", in.Format)
	}
	if in.ID != "scan" {
		t.Fatalf("unexpected id: %s", in.ID)
	}
	if in.Width != 4 || in.Height != 2 {
		t.Fatalf("unexpected dimensions: %dx%d", in.Width, in.Height)
	}
	if !reflect.DeepEqual(in.Languages, []string{"eng", "spa"}) {
		t.Fatalf("unexpected languages: %+v", in.Languages)
	}
	if in.DPI != 300 {
		t.Fatalf("unexpected dpi: %d", in.DPI)
	}
	if in.PageSegMode() != 6 {
		t.Fatalf("unexpected psm: %+v", in.Metadata)
	}

	decoded, err := png.Decode(bytes.NewReader(in.Image))
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if _, ok := decoded.(*image.Gray); !ok {
		t.Fatalf("expected grayscale payload, got %T", decoded)
	}
}

func TestInputFromImageNil(t *testing.T) {
	if _, err := InputFromImage(nil); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}

func TestGrayscaleKeepsGray(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 2, 2))
	if Grayscale(g) != g {
		t.Fatalf("expected gray image to be returned unchanged")
	}
}

type fakeEngine struct {
	result Result
	err    error
	input  Input
}

func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	f.input = in
	return f.result, f.err
}

func TestRecognizeImageSortsUnorderedResults(t *testing.T) {
	engine := &fakeEngine{result: Result{Tokens: []Token{
		{Text: "b", Box: Box{X: 50, Y: 10}},
		{Text: "c", Box: Box{X: 0, Y: 40}},
		{Text: "a", Box: Box{X: 0, Y: 10}},
	}}}
	res, err := RecognizeImage(context.Background(), engine, image.NewGray(image.Rect(0, 0, 8, 8)))
	if err != nil {
		t.Fatalf("RecognizeImage() error = %v", err)
	}
	var got []string
	for _, tok := range res.Tokens {
		got = append(got, tok.Text)
	}
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected order: %v", got)
	}
	if !res.Ordered || res.Engine != "fake" {
		t.Fatalf("unexpected result metadata: %+v", res)
	}
}

func TestRecognizeImageKeepsOrderedResults(t *testing.T) {
	tokens := []Token{
		{Text: "second", Box: Box{Y: 50}},
		{Text: "first", Box: Box{Y: 10}},
	}
	engine := &fakeEngine{result: Result{Tokens: tokens, Ordered: true}}
	res, err := RecognizeImage(context.Background(), engine, image.NewGray(image.Rect(0, 0, 8, 8)))
	if err != nil {
		t.Fatalf("RecognizeImage() error = %v", err)
	}
	if res.Tokens[0].Text != "second" {
		t.Fatalf("ordered engine output should not be resorted: %+v", res.Tokens)
	}
}

func TestRecognizeImageWrapsEngineError(t *testing.T) {
	boom := errors.New("boom")
	engine := &fakeEngine{err: boom}
	if _, err := RecognizeImage(context.Background(), engine, image.NewGray(image.Rect(0, 0, 1, 1))); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped engine error, got %v", err)
	}
}

func TestRecognizeImageCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := &fakeEngine{}
	if _, err := RecognizeImage(ctx, engine, image.NewGray(image.Rect(0, 0, 1, 1))); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDefaultEngineIsNoop(t *testing.T) {
	res, err := DefaultEngine().Recognize(context.Background(), Input{ID: "x"})
	if err != nil {
		t.Fatalf("noop Recognize() error = %v", err)
	}
	if res.InputID != "x" || len(res.Tokens) != 0 {
		t.Fatalf("unexpected noop result: %+v", res)
	}
}

func TestBoxCorners(t *testing.T) {
	b := Box{X: 3, Y: 4, Width: 10, Height: 20}
	x1, y1, x2, y2 := b.Corners()
	if x1 != 3 || y1 != 4 || x2 != 13 || y2 != 24 {
		t.Fatalf("unexpected corners: %d %d %d %d", x1, y1, x2, y2)
	}
	if got := BoxFromRect(image.Rect(13, 24, 3, 4)); got != b {
		t.Fatalf("BoxFromRect() = %+v, want %+v", got, b)
	}
}
