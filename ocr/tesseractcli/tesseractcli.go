// Package tesseractcli implements ocr.Engine by running a Tesseract binary as
// a subprocess. The binary location is configuration supplied at startup, so
// hosts with several Tesseract installs (or none on PATH) can pick one
// explicitly.
package tesseractcli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/wudi/outline/ocr"
	"github.com/wudi/outline/ocr/hocr"
)

// ErrEngineNotFound is returned when the configured binary cannot be resolved.
var ErrEngineNotFound = errors.New("tesseract binary not found")

// OutputFormat selects the Tesseract renderer used to read word boxes.
type OutputFormat string

const (
	FormatTSV  OutputFormat = "tsv"
	FormatHOCR OutputFormat = "hocr"
)

// DefaultPath is used when no engine path is configured.
const DefaultPath = "tesseract"

// wordLevel is the TSV level of word rows (page=1 ... word=5).
const wordLevel = 5

// runFunc executes the binary with args, feeding stdin, and returns stdout.
type runFunc func(ctx context.Context, path string, args []string, stdin []byte) ([]byte, error)

// Engine runs `tesseract stdin stdout ... <format>` per recognition.
type Engine struct {
	path   string
	format OutputFormat
	run    runFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithFormat selects the output renderer (TSV by default).
func WithFormat(f OutputFormat) Option {
	return func(e *Engine) { e.format = f }
}

// New returns an engine for the binary at path. The path is resolved through
// exec.LookPath so a bare name searches PATH.
func New(path string, opts ...Option) (*Engine, error) {
	if path == "" {
		path = DefaultPath
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineNotFound, path, err)
	}
	e := &Engine{path: resolved, format: FormatTSV, run: execRun}
	for _, opt := range opts {
		opt(e)
	}
	if e.format != FormatTSV && e.format != FormatHOCR {
		return nil, fmt.Errorf("unsupported tesseract output format %q", e.format)
	}
	return e, nil
}

func (e *Engine) Name() string { return "tesseract-cli" }

// Path returns the resolved binary location.
func (e *Engine) Path() string { return e.path }

// Recognize pipes the input image to Tesseract and parses its word output.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if len(in.Image) == 0 {
		return ocr.Result{}, ocr.ErrNoImage
	}
	out, err := e.run(ctx, e.path, e.args(in), in.Image)
	if err != nil {
		return ocr.Result{}, err
	}
	var tokens []ocr.Token
	switch e.format {
	case FormatHOCR:
		tokens, err = hocr.Parse(bytes.NewReader(out))
	default:
		tokens, err = ParseTSV(bytes.NewReader(out))
	}
	if err != nil {
		return ocr.Result{}, err
	}
	return ocr.Result{
		InputID: in.ID,
		Engine:  e.Name(),
		Tokens:  tokens,
		Ordered: true,
	}, nil
}

func (e *Engine) args(in ocr.Input) []string {
	args := []string{"stdin", "stdout"}
	if len(in.Languages) > 0 {
		args = append(args, "-l", strings.Join(in.Languages, "+"))
	}
	args = append(args, "--psm", strconv.Itoa(in.PageSegMode()))
	if in.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(in.DPI))
	}
	for _, k := range sortedKeys(in.Metadata) {
		if k == ocr.MetaPageSegMode {
			continue
		}
		args = append(args, "-c", k+"="+in.Metadata[k])
	}
	return append(args, string(e.format))
}

func execRun(ctx context.Context, path string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("run %s: %w", path, err)
		}
		return nil, fmt.Errorf("run %s: %w: %s", path, err, msg)
	}
	return stdout.Bytes(), nil
}

// ParseTSV reads Tesseract's TSV renderer output and returns its word rows.
// Tesseract does not quote fields, so rows are split on tabs directly.
// Confidences printed as decimals are truncated to integers.
func ParseTSV(r io.Reader) ([]ocr.Token, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var tokens []ocr.Token
	line := 0
	for sc.Scan() {
		line++
		row := strings.TrimRight(sc.Text(), "\r")
		if row == "" || (line == 1 && strings.HasPrefix(row, "level\t")) {
			continue
		}
		rec := strings.SplitN(row, "\t", 12)
		if len(rec) < 11 {
			return nil, fmt.Errorf("tsv line %d: expected at least 11 fields, got %d", line, len(rec))
		}
		level, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("tsv line %d: level: %w", line, err)
		}
		if level != wordLevel {
			continue
		}
		var geom [4]int
		for i := range geom {
			if geom[i], err = strconv.Atoi(rec[6+i]); err != nil {
				return nil, fmt.Errorf("tsv line %d: geometry: %w", line, err)
			}
		}
		conf, err := strconv.ParseFloat(rec[10], 64)
		if err != nil {
			return nil, fmt.Errorf("tsv line %d: conf: %w", line, err)
		}
		text := ""
		if len(rec) > 11 {
			text = rec[11]
		}
		tokens = append(tokens, ocr.Token{
			Text:       text,
			Confidence: int(conf),
			Box:        ocr.Box{X: geom[0], Y: geom[1], Width: geom[2], Height: geom[3]},
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tsv: %w", err)
	}
	return tokens, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
