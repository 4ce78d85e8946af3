// Package segment turns an unordered bag of OCR word tokens into an ordered
// heading -> content outline.
//
// Segmentation runs in two passes. The first walks tokens in the order the
// OCR engine supplied them: a confident, tall token that sits far enough
// below the previous heading opens a new heading, and every other confident
// token is attached to the most recent heading. The second pass sorts
// headings by their top edge and keeps, for each heading, only the attached
// words whose top edge lies strictly between that heading and the next one.
//
// Because the first pass depends on scan order, callers must hand tokens over
// in reading order (see ocr.SortReadingOrder).
package segment

import (
	"sort"
	"strconv"
	"strings"

	"github.com/wudi/outline/ocr"
)

// TypeHeading is the Type of every outline entry.
const TypeHeading = "heading"

// KeyMode selects how attached words are grouped under headings.
type KeyMode int

const (
	// KeyByDetection groups words under the heading occurrence that captured
	// them. Headings with identical text stay distinct entries.
	KeyByDetection KeyMode = iota
	// KeyByText groups words by heading text. Repeated headings share one
	// bucket that is rescanned for every occurrence, and the later occurrence
	// replaces the earlier one in the outline while keeping its position.
	KeyByText
)

// String returns the configuration name of the mode.
func (m KeyMode) String() string {
	switch m {
	case KeyByText:
		return "text"
	default:
		return "detection"
	}
}

// ParseKeyMode parses "detection" or "text".
func ParseKeyMode(s string) (KeyMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "detection":
		return KeyByDetection, true
	case "text":
		return KeyByText, true
	default:
		return KeyByDetection, false
	}
}

// Config holds the segmentation thresholds. All comparisons are strict.
type Config struct {
	// MinConfidence is the confidence a token must exceed to be considered.
	MinConfidence int
	// MinHeadingHeight is the box height a token must exceed to be a heading.
	MinHeadingHeight int
	// MinHeadingGap is how far a heading's top must lie below the previous
	// heading's top.
	MinHeadingGap int
	// KeyMode selects heading bucket identity.
	KeyMode KeyMode
}

// DefaultConfig returns the standard thresholds: confidence > 60,
// height > 20, gap > 20, detection-keyed buckets.
func DefaultConfig() Config {
	return Config{
		MinConfidence:    60,
		MinHeadingHeight: 20,
		MinHeadingGap:    20,
		KeyMode:          KeyByDetection,
	}
}

// Corners is a box stored as absolute top-left and bottom-right corners.
type Corners struct {
	X1, Y1, X2, Y2 int
}

func cornersOf(b ocr.Box) Corners {
	x1, y1, x2, y2 := b.Corners()
	return Corners{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Heading is a token classified as a heading during the first pass.
type Heading struct {
	// Index is the detection order of the heading (0-based).
	Index int
	Text  string
	Box   Corners
	Y     int
}

// Span is a word attached to a heading bucket during the first pass.
type Span struct {
	Text string
	Box  Corners
	Y    int
}

// Entry is one heading of the final outline.
type Entry struct {
	Heading string
	Content string
	Coords  Corners
	Type    string
	// Y is the heading's top edge.
	Y int
}

// Stats counts what happened to the input tokens.
type Stats struct {
	Tokens   int
	Dropped  int
	Headings int
	Spans    int
	// Orphans are confident words seen before the first heading; they are
	// never part of the outline.
	Orphans int
}

// Segmenter classifies tokens and builds outlines. It holds no state between
// calls and is safe for concurrent use.
type Segmenter struct {
	cfg Config
}

// New returns a Segmenter using cfg.
func New(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg}
}

// Config returns the thresholds in use.
func (s *Segmenter) Config() Config { return s.cfg }

// Segment builds the outline for tokens. It never fails; tokens that open no
// heading yield an empty result.
func (s *Segmenter) Segment(tokens []ocr.Token) *Result {
	headings, buckets, stats := s.classify(tokens)

	sort.SliceStable(headings, func(i, j int) bool { return headings[i].Y < headings[j].Y })

	res := &Result{stats: stats, index: make(map[string]int, len(headings))}
	for i, h := range headings {
		nextY, last := 0, i+1 == len(headings)
		if !last {
			nextY = headings[i+1].Y
		}
		var sb strings.Builder
		for _, sp := range buckets[s.bucketKey(h)] {
			if sp.Y > h.Y && (last || sp.Y < nextY) {
				sb.WriteString(sp.Text)
				sb.WriteByte(' ')
			}
		}
		res.put(Entry{
			Heading: h.Text,
			Content: strings.TrimSpace(sb.String()),
			Coords:  h.Box,
			Type:    TypeHeading,
			Y:       h.Y,
		}, s.cfg.KeyMode == KeyByText)
	}
	res.headings = headings
	return res
}

// classify is the first pass: tokens are visited in scan order.
func (s *Segmenter) classify(tokens []ocr.Token) ([]Heading, map[string][]Span, Stats) {
	var (
		headings []Heading
		buckets  = make(map[string][]Span)
		current  string
		lastY    int
		stats    = Stats{Tokens: len(tokens)}
	)
	for _, tok := range tokens {
		text := strings.TrimSpace(tok.Text)
		if tok.Confidence <= s.cfg.MinConfidence || text == "" {
			stats.Dropped++
			continue
		}
		y := tok.Box.Y
		if tok.Box.Height > s.cfg.MinHeadingHeight && (len(headings) == 0 || y > lastY+s.cfg.MinHeadingGap) {
			h := Heading{Index: len(headings), Text: text, Box: cornersOf(tok.Box), Y: y}
			headings = append(headings, h)
			current = s.bucketKey(h)
			lastY = y
			continue
		}
		if len(headings) == 0 {
			stats.Orphans++
			continue
		}
		buckets[current] = append(buckets[current], Span{Text: text, Box: cornersOf(tok.Box), Y: y})
		stats.Spans++
	}
	stats.Headings = len(headings)
	return headings, buckets, stats
}

func (s *Segmenter) bucketKey(h Heading) string {
	if s.cfg.KeyMode == KeyByText {
		return h.Text
	}
	return strconv.Itoa(h.Index)
}

// Segment runs a Segmenter with DefaultConfig over tokens.
func Segment(tokens []ocr.Token) *Result {
	return New(DefaultConfig()).Segment(tokens)
}
