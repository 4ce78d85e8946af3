package tesseract

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/otiai10/gosseract/v2"
	"github.com/wudi/outline/ocr"
)

func init() {
	ocr.SetDefaultEngine(NewTesseractEngine())
}

// TesseractEngine implements ocr.Engine by linking libtesseract through the
// gosseract client.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs a libtesseract-backed OCR engine.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{clientFactory: gosseract.NewClient}
}

func (e *TesseractEngine) Name() string { return "gosseract" }

// Recognize performs word-level OCR on a single image input. The result
// iterator walks the page layout, so tokens come back in reading order.
func (e *TesseractEngine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if len(in.Image) == 0 {
		return ocr.Result{}, ocr.ErrNoImage
	}
	select {
	case <-ctx.Done():
		return ocr.Result{}, ctx.Err()
	default:
	}
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(in.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(in.PageSegMode())); err != nil {
		return ocr.Result{}, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(in.DPI)); err != nil {
			return ocr.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	for k, v := range in.Metadata {
		if k == ocr.MetaPageSegMode {
			continue
		}
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return ocr.Result{}, fmt.Errorf("set variable %s: %w", k, err)
		}
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize words: %w", err)
	}
	return ocr.Result{
		InputID: in.ID,
		Engine:  e.Name(),
		Tokens:  tokensFromBoxes(boxes),
		Ordered: true,
	}, nil
}

func tokensFromBoxes(boxes []gosseract.BoundingBox) []ocr.Token {
	tokens := make([]ocr.Token, 0, len(boxes))
	for _, b := range boxes {
		tokens = append(tokens, ocr.Token{
			Text:       b.Word,
			Confidence: clampConfidence(b.Confidence),
			Box:        ocr.BoxFromRect(b.Box),
		})
	}
	return tokens
}

// clampConfidence truncates like Tesseract's own TSV renderer and keeps the
// value inside [0, 100].
func clampConfidence(conf float64) int {
	if math.IsNaN(conf) || conf < 0 {
		return 0
	}
	if conf > 100 {
		return 100
	}
	return int(conf)
}
