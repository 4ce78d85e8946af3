package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/wudi/outline/annotate"
	"github.com/wudi/outline/config"
	"github.com/wudi/outline/extract"
	"github.com/wudi/outline/observability"
	"github.com/wudi/outline/ocr"
	"github.com/wudi/outline/ocr/tesseract"
	"github.com/wudi/outline/ocr/tesseractcli"
	"github.com/wudi/outline/report"
	"github.com/wudi/outline/segment"
)

type options struct {
	imagePath   string
	format      string
	reportPath  string
	scriptPath  string
	plates      bool
	stroke      int
	dpi         int
	whitelist   string
	fingerprint bool
	cfg         *config.Config
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "outline: %v\n", err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, failureMessage(err, opts.imagePath))
		os.Exit(1)
	}
}

// failureMessage is the console line printed when run fails.
func failureMessage(err error, imagePath string) string {
	if errors.Is(err, extract.ErrImageLoad) {
		return fmt.Sprintf("Error: Unable to load image from %s", imagePath)
	}
	return fmt.Sprintf("outline: %v", err)
}

func parseFlags(args []string) (options, error) {
	cfg, err := config.Load()
	if err != nil {
		return options{}, err
	}

	fs := flag.NewFlagSet("outline", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: outline [flags] <image>\n")
		fs.PrintDefaults()
	}
	engine := fs.String("engine", cfg.Engine, "OCR engine: cli or gosseract")
	enginePath := fs.String("engine-path", cfg.EnginePath, "Tesseract binary used by the cli engine")
	engineFormat := fs.String("engine-format", cfg.EngineFormat, "Tesseract renderer read by the cli engine: tsv or hocr")
	lang := fs.String("lang", strings.Join(cfg.Languages, "+"), "Tesseract languages, '+' separated")
	psm := fs.Int("psm", cfg.PageSegMode, "Tesseract page segmentation mode")
	out := fs.String("out", cfg.OutputPath, "Annotated output image (JPEG)")
	timeout := fs.Duration("timeout", cfg.OCRTimeout, "Abort text recognition after this long (0 disables)")
	dpi := fs.Int("dpi", 0, "Source resolution hint passed to Tesseract (0 lets Tesseract guess)")
	whitelist := fs.String("whitelist", "", "Restrict recognition to these characters")
	minConf := fs.Int("min-confidence", cfg.Segment.MinConfidence, "Confidence a word must exceed")
	minHeight := fs.Int("min-height", cfg.Segment.MinHeadingHeight, "Box height a heading must exceed")
	minGap := fs.Int("min-gap", cfg.Segment.MinHeadingGap, "Distance a heading must lie below the previous one")
	keyMode := fs.String("key-mode", cfg.Segment.KeyMode.String(), "Heading identity: detection or text")
	format := fs.String("format", report.FormatText, "Report format: text, json, markdown or html")
	reportPath := fs.String("report", "", "Also write the report to this file")
	scriptPath := fs.String("script", "", "JavaScript file defining format(entry) for custom output lines")
	plates := fs.Bool("plates", false, "Paint label plates behind headings")
	stroke := fs.Int("stroke", annotate.DefaultStroke, "Heading box outline width in pixels")
	fingerprint := fs.Bool("fingerprint", false, "Print the outline fingerprint after the report")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return options{}, fmt.Errorf("missing image path")
	}

	mode, ok := segment.ParseKeyMode(*keyMode)
	if !ok {
		return options{}, fmt.Errorf("unknown key mode %q", *keyMode)
	}
	if *stroke < 1 {
		return options{}, fmt.Errorf("stroke must be at least 1 pixel, got %d", *stroke)
	}
	if *dpi < 0 {
		return options{}, fmt.Errorf("dpi must not be negative, got %d", *dpi)
	}
	cfg.Engine = strings.ToLower(*engine)
	cfg.EnginePath = *enginePath
	cfg.EngineFormat = strings.ToLower(*engineFormat)
	cfg.Languages = strings.FieldsFunc(*lang, func(r rune) bool { return r == '+' })
	cfg.PageSegMode = *psm
	cfg.OutputPath = *out
	cfg.OCRTimeout = *timeout
	cfg.Segment = segment.Config{
		MinConfidence:    *minConf,
		MinHeadingHeight: *minHeight,
		MinHeadingGap:    *minGap,
		KeyMode:          mode,
	}
	if err := cfg.Validate(); err != nil {
		return options{}, err
	}

	return options{
		imagePath:   fs.Arg(0),
		format:      *format,
		reportPath:  *reportPath,
		scriptPath:  *scriptPath,
		plates:      *plates,
		stroke:      *stroke,
		dpi:         *dpi,
		whitelist:   *whitelist,
		fingerprint: *fingerprint,
		cfg:         cfg,
	}, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func newEngine(cfg *config.Config) (ocr.Engine, error) {
	switch cfg.Engine {
	case config.EngineGosseract:
		return tesseract.NewTesseractEngine(), nil
	default:
		return tesseractcli.New(cfg.EnginePath, tesseractcli.WithFormat(tesseractcli.OutputFormat(cfg.EngineFormat)))
	}
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	cfg := opts.cfg
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	slog.Debug("configuration loaded",
		"engine", cfg.Engine,
		"engine_path", cfg.EnginePath,
		"key_mode", cfg.Segment.KeyMode.String(),
	)

	var script *report.Script
	if opts.scriptPath != "" {
		src, err := os.ReadFile(opts.scriptPath)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		if script, err = report.NewScript(ctx, string(src)); err != nil {
			return err
		}
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return fmt.Errorf("init ocr engine: %w", err)
	}

	inputOpts := []ocr.InputOption{
		ocr.WithLanguages(cfg.Languages...),
		ocr.WithTesseractPSM(cfg.PageSegMode),
	}
	if opts.dpi > 0 {
		inputOpts = append(inputOpts, ocr.WithDPI(opts.dpi))
	}
	if opts.whitelist != "" {
		inputOpts = append(inputOpts, ocr.WithTesseractWhitelist(opts.whitelist))
	}

	ex := extract.New(engine,
		extract.WithSegmenter(segment.New(cfg.Segment)),
		extract.WithAnnotator(annotate.New(
			annotate.WithLabelPlates(opts.plates),
			annotate.WithStroke(opts.stroke),
		)),
		extract.WithInputOptions(inputOpts...),
		extract.WithOutputPath(cfg.OutputPath),
		extract.WithOCRTimeout(cfg.OCRTimeout),
		extract.WithLogger(observability.NewSlogLogger(logger)),
	)

	start := time.Now()
	res, err := ex.Extract(ctx, opts.imagePath)
	if err != nil {
		return err
	}
	slog.Debug("extraction finished", "elapsed", time.Since(start))

	if script != nil {
		err = script.Write(ctx, stdout, res)
	} else {
		err = report.Write(stdout, opts.format, res)
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if opts.reportPath != "" {
		if err := writeReportFile(opts.reportPath, opts.format, res); err != nil {
			return err
		}
	}
	if opts.fingerprint {
		fmt.Fprintf(stdout, "fingerprint: %s\n", res.Fingerprint())
	}
	return nil
}

func writeReportFile(path, format string, res *segment.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := report.Write(f, format, res); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report %q: %w", path, err)
	}
	return nil
}
