// Package extract runs the full outline pipeline for one scanned page: decode
// the image, recognize words, segment headings and write the annotated copy.
package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/wudi/outline/annotate"
	"github.com/wudi/outline/observability"
	"github.com/wudi/outline/ocr"
	"github.com/wudi/outline/segment"
)

// ErrImageLoad reports that the input path could not be opened or decoded.
// No output artifact is written when it is returned.
var ErrImageLoad = errors.New("unable to load image")

// Extractor wires an OCR engine, a segmenter and an annotator together. Each
// Extract call is independent; an Extractor can be reused.
type Extractor struct {
	engine       ocr.Engine
	segmenter    *segment.Segmenter
	annotator    *annotate.Annotator
	inputOptions []ocr.InputOption
	outputPath   string
	ocrTimeout   time.Duration
	logger       observability.Logger
	tracer       observability.Tracer
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSegmenter replaces the default-threshold segmenter.
func WithSegmenter(s *segment.Segmenter) Option {
	return func(e *Extractor) { e.segmenter = s }
}

// WithAnnotator replaces the default annotator.
func WithAnnotator(a *annotate.Annotator) Option {
	return func(e *Extractor) { e.annotator = a }
}

// WithInputOptions sets options applied to every OCR input.
func WithInputOptions(opts ...ocr.InputOption) Option {
	return func(e *Extractor) { e.inputOptions = append([]ocr.InputOption(nil), opts...) }
}

// WithOutputPath sets where the annotated image is written.
func WithOutputPath(path string) Option {
	return func(e *Extractor) { e.outputPath = path }
}

// WithOCRTimeout bounds each recognition call. Zero or negative disables it.
func WithOCRTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.ocrTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithTracer sets the tracer.
func WithTracer(t observability.Tracer) Option {
	return func(e *Extractor) { e.tracer = t }
}

// New constructs an Extractor. If engine is nil, ocr.DefaultEngine is used.
func New(engine ocr.Engine, opts ...Option) *Extractor {
	if engine == nil {
		engine = ocr.DefaultEngine()
	}
	e := &Extractor{
		engine:     engine,
		outputPath: annotate.DefaultOutputPath,
		logger:     observability.NopLogger{},
		tracer:     observability.NopTracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.segmenter == nil {
		e.segmenter = segment.New(segment.DefaultConfig())
	}
	if e.annotator == nil {
		e.annotator = annotate.New()
	}
	return e
}

// OutputPath returns where Extract writes the annotated image.
func (e *Extractor) OutputPath() string { return e.outputPath }

// Extract runs the pipeline for the image at path and returns its outline.
// A path that is missing or not a decodable image yields an error wrapping
// ErrImageLoad and no output file. A page without headings still produces
// an (unannotated) output image and an empty outline.
func (e *Extractor) Extract(ctx context.Context, path string) (*segment.Result, error) {
	log := e.logger.With(observability.String("image", path))

	img, err := e.load(ctx, path)
	if err != nil {
		log.Error("load image", observability.Error("err", err))
		return nil, err
	}

	recognized, err := e.recognize(ctx, path, img)
	if err != nil {
		log.Error("recognize text", observability.Error("err", err))
		return nil, err
	}
	tokens := recognized.Tokens
	log.Debug("recognized",
		observability.String("engine", recognized.Engine),
		observability.Int("tokens", len(tokens)),
	)

	_, span := e.tracer.StartSpan(ctx, observability.SpanSegment)
	res := e.segmenter.Segment(tokens)
	stats := res.Stats()
	span.SetTag(observability.TagHeadingCount, stats.Headings)
	span.Finish()
	log.Debug("segmented",
		observability.Int("tokens", stats.Tokens),
		observability.Int("dropped", stats.Dropped),
		observability.Int("headings", stats.Headings),
		observability.Int("entries", res.Len()),
		observability.Int("orphans", stats.Orphans),
	)

	if err := e.write(ctx, img, res); err != nil {
		log.Error("write annotated image", observability.Error("err", err))
		return nil, err
	}
	log.Info("outline extracted",
		observability.Int("entries", res.Len()),
		observability.Bool("annotated", res.Len() > 0),
		observability.String("output", e.outputPath),
	)
	return res, nil
}

func (e *Extractor) load(ctx context.Context, path string) (image.Image, error) {
	_, span := e.tracer.StartSpan(ctx, observability.SpanLoad)
	defer span.Finish()
	span.SetTag(observability.TagImagePath, path)

	f, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("%w from %s: %v", ErrImageLoad, path, err)
		span.SetError(err)
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		err = fmt.Errorf("%w from %s: %v", ErrImageLoad, path, err)
		span.SetError(err)
		return nil, err
	}
	return img, nil
}

func (e *Extractor) recognize(ctx context.Context, path string, img image.Image) (ocr.Result, error) {
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanOCR)
	defer span.Finish()
	span.SetTag(observability.TagEngine, e.engine.Name())

	if e.ocrTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.ocrTimeout)
		defer cancel()
	}

	opts := append([]ocr.InputOption{ocr.WithID(filepath.Base(path))}, e.inputOptions...)
	res, err := ocr.RecognizeImage(ctx, e.engine, img, opts...)
	if err != nil {
		span.SetError(err)
		return ocr.Result{}, err
	}
	span.SetTag(observability.TagTokenCount, len(res.Tokens))
	return res, nil
}

func (e *Extractor) write(ctx context.Context, img image.Image, res *segment.Result) error {
	_, span := e.tracer.StartSpan(ctx, observability.SpanAnnotate)
	annotated := e.annotator.Annotate(img, res)
	span.Finish()

	_, span = e.tracer.StartSpan(ctx, observability.SpanWrite)
	defer span.Finish()
	if err := e.annotator.WriteFile(e.outputPath, annotated); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}
