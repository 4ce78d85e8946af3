package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wudi/outline/config"
	"github.com/wudi/outline/extract"
	"github.com/wudi/outline/segment"
)

func TestParseFlagsOverridesConfig(t *testing.T) {
	opts, err := parseFlags([]string{
		"-engine", "gosseract",
		"-lang", "eng+deu",
		"-psm", "6",
		"-key-mode", "text",
		"-min-confidence", "70",
		"-min-gap", "30",
		"-out", "annotated.jpg",
		"-format", "json",
		"-fingerprint",
		"-stroke", "4",
		"-dpi", "300",
		"-whitelist", "ABC",
		"-timeout", "3s",
		"sample.jpeg",
	})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.imagePath != "sample.jpeg" || opts.format != "json" || !opts.fingerprint {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.stroke != 4 || opts.dpi != 300 || opts.whitelist != "ABC" {
		t.Fatalf("unexpected drawing/ocr options: %+v", opts)
	}
	cfg := opts.cfg
	if cfg.OCRTimeout != 3*time.Second {
		t.Fatalf("OCRTimeout = %s", cfg.OCRTimeout)
	}
	if cfg.Engine != config.EngineGosseract || cfg.PageSegMode != 6 || cfg.OutputPath != "annotated.jpg" {
		t.Fatalf("flags not applied to config: %+v", cfg)
	}
	if len(cfg.Languages) != 2 || cfg.Languages[1] != "deu" {
		t.Fatalf("unexpected languages: %v", cfg.Languages)
	}
	want := segment.Config{MinConfidence: 70, MinHeadingHeight: 20, MinHeadingGap: 30, KeyMode: segment.KeyByText}
	if cfg.Segment != want {
		t.Fatalf("Segment = %+v, want %+v", cfg.Segment, want)
	}
}

func TestParseFlagsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing image", nil},
		{"two images", []string{"a.jpg", "b.jpg"}},
		{"bad key mode", []string{"-key-mode", "uuid", "a.jpg"}},
		{"bad engine", []string{"-engine", "paddle", "a.jpg"}},
		{"bad psm", []string{"-psm", "99", "a.jpg"}},
		{"negative timeout", []string{"-timeout", "-1s", "a.jpg"}},
		{"zero stroke", []string{"-stroke", "0", "a.jpg"}},
		{"negative dpi", []string{"-dpi", "-72", "a.jpg"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseFlags(tc.args); err == nil {
				t.Fatalf("expected error for %v", tc.args)
			}
		})
	}
}

func TestFailureMessage(t *testing.T) {
	loadErr := errors.Join(extract.ErrImageLoad, errors.New("no such file"))
	if got, want := failureMessage(loadErr, "scan.jpeg"), "Error: Unable to load image from scan.jpeg"; got != want {
		t.Fatalf("failureMessage(load) = %q, want %q", got, want)
	}
	if got := failureMessage(errors.New("engine crashed"), "scan.jpeg"); got != "outline: engine crashed" {
		t.Fatalf("failureMessage(other) = %q", got)
	}
}

func TestRunMissingImage(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable() error = %v", err)
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "boxes.jpg")
	missing := filepath.Join(dir, "missing.jpeg")
	opts, err := parseFlags([]string{"-engine", "cli", "-engine-path", exe, "-out", out, missing})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}

	var stdout bytes.Buffer
	err = run(context.Background(), opts, &stdout)
	if !errors.Is(err, extract.ErrImageLoad) {
		t.Fatalf("run() error = %v, want ErrImageLoad", err)
	}
	if got, want := failureMessage(err, opts.imagePath), "Error: Unable to load image from "+missing; got != want {
		t.Fatalf("failureMessage() = %q, want %q", got, want)
	}
	if strings.Contains(stdout.String(), "Heading:") {
		t.Fatalf("no report should be printed, got %q", stdout.String())
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("no output image should be written, stat err = %v", err)
	}
}
