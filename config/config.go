// Package config loads process-wide settings for the outline extractor from
// the environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/wudi/outline/segment"
)

// Engine names.
const (
	EngineCLI       = "cli"
	EngineGosseract = "gosseract"
)

// Config holds all configuration for the extractor.
type Config struct {
	// Engine selects the OCR backend: EngineCLI or EngineGosseract.
	Engine string
	// EnginePath is the Tesseract binary used by the CLI engine.
	EnginePath string
	// EngineFormat is the CLI renderer read for word boxes: "tsv" or "hocr".
	EngineFormat string
	Languages    []string
	PageSegMode  int

	// OCRTimeout bounds the recognition stage only. Zero disables it.
	OCRTimeout time.Duration

	OutputPath string
	Segment    segment.Config
	LogLevel   slog.Level
	LogFormat  string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first; variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults and
// validating values.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	var errs []string
	intVar := func(key string, def int) int {
		raw := get(key, strconv.Itoa(def))
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be an integer, got %q", key, raw))
			return def
		}
		return n
	}

	seg := segment.DefaultConfig()
	cfg := &Config{
		Engine:       strings.ToLower(get("OUTLINE_ENGINE", EngineCLI)),
		EnginePath:   get("OUTLINE_ENGINE_PATH", "tesseract"),
		EngineFormat: strings.ToLower(get("OUTLINE_ENGINE_FORMAT", "tsv")),
		Languages:    splitLanguages(get("OUTLINE_LANGUAGES", "eng")),
		PageSegMode:  intVar("OUTLINE_PSM", 3),
		OutputPath:   get("OUTLINE_OUTPUT", "output_image_with_boxes.jpg"),
		LogFormat:    strings.ToLower(get("OUTLINE_LOG_FORMAT", "text")),
	}
	seg.MinConfidence = intVar("OUTLINE_MIN_CONFIDENCE", seg.MinConfidence)
	seg.MinHeadingHeight = intVar("OUTLINE_MIN_HEADING_HEIGHT", seg.MinHeadingHeight)
	seg.MinHeadingGap = intVar("OUTLINE_MIN_HEADING_GAP", seg.MinHeadingGap)
	if mode, ok := segment.ParseKeyMode(get("OUTLINE_KEY_MODE", "detection")); ok {
		seg.KeyMode = mode
	} else {
		errs = append(errs, fmt.Sprintf("OUTLINE_KEY_MODE must be detection or text, got %q", getenv("OUTLINE_KEY_MODE")))
	}
	cfg.Segment = seg

	if raw := get("OUTLINE_OCR_TIMEOUT", "0"); raw != "0" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Sprintf("OUTLINE_OCR_TIMEOUT must be a non-negative duration, got %q", raw))
		}
		cfg.OCRTimeout = d
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(get("OUTLINE_LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Sprintf("OUTLINE_LOG_LEVEL: %v", err))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. It is called by FromEnv and again
// by callers that override fields from flags.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineCLI, EngineGosseract:
	default:
		return fmt.Errorf("invalid configuration: unknown engine %q", c.Engine)
	}
	switch c.EngineFormat {
	case "tsv", "hocr":
	default:
		return fmt.Errorf("invalid configuration: unknown engine format %q", c.EngineFormat)
	}
	if c.Engine == EngineCLI && c.EnginePath == "" {
		return fmt.Errorf("invalid configuration: engine path is required for the cli engine")
	}
	if c.PageSegMode < 0 || c.PageSegMode > 13 {
		return fmt.Errorf("invalid configuration: page segmentation mode %d out of range 0-13", c.PageSegMode)
	}
	if c.Segment.MinConfidence < 0 || c.Segment.MinConfidence > 100 {
		return fmt.Errorf("invalid configuration: min confidence %d out of range 0-100", c.Segment.MinConfidence)
	}
	if c.Segment.MinHeadingHeight < 0 || c.Segment.MinHeadingGap < 0 {
		return fmt.Errorf("invalid configuration: heading thresholds must be non-negative")
	}
	if c.OCRTimeout < 0 {
		return fmt.Errorf("invalid configuration: ocr timeout %s must not be negative", c.OCRTimeout)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid configuration: log format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func splitLanguages(s string) []string {
	var langs []string
	for _, l := range strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' || r == ' ' }) {
		langs = append(langs, l)
	}
	return langs
}
