// Package hocr reads word tokens out of hOCR documents, the HTML-based OCR
// format emitted by `tesseract ... hocr`.
//
// Only ocrx_word elements are inspected. Their title attribute carries the
// geometry and score as semicolon-separated properties:
//
//	<span class='ocrx_word' title='bbox 36 92 96 116; x_wconf 95'>Title</span>
//
// The bbox property holds absolute corners (x1 y1 x2 y2); x_wconf is the word
// confidence in [0, 100]. Words are returned in document order, which for
// Tesseract output is reading order.
package hocr

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wudi/outline/ocr"
	"golang.org/x/net/html"
)

// ErrBadBBox is returned when a word's bbox property cannot be parsed.
var ErrBadBBox = errors.New("hocr: malformed bbox")

const wordClass = "ocrx_word"

// Parse reads an hOCR document and returns its words as tokens.
func Parse(r io.Reader) ([]ocr.Token, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse hocr: %w", err)
	}
	var tokens []ocr.Token
	var walkErr error
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if walkErr != nil {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, wordClass) {
			tok, err := wordToken(n)
			if err != nil {
				walkErr = err
				return
			}
			tokens = append(tokens, tok)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if walkErr != nil {
		return nil, walkErr
	}
	return tokens, nil
}

func wordToken(n *html.Node) (ocr.Token, error) {
	props := titleProps(attr(n, "title"))
	bbox, ok := props["bbox"]
	if !ok {
		return ocr.Token{}, fmt.Errorf("%w: word %q has no bbox", ErrBadBBox, attr(n, "id"))
	}
	box, err := parseBBox(bbox)
	if err != nil {
		return ocr.Token{}, fmt.Errorf("word %q: %w", attr(n, "id"), err)
	}
	conf := -1
	if v, ok := props["x_wconf"]; ok {
		if c, err := strconv.Atoi(v); err == nil {
			conf = c
		}
	}
	return ocr.Token{
		Text:       strings.TrimSpace(nodeText(n)),
		Confidence: conf,
		Box:        box,
	}, nil
}

func parseBBox(v string) (ocr.Box, error) {
	fields := strings.Fields(v)
	if len(fields) != 4 {
		return ocr.Box{}, fmt.Errorf("%w: %q", ErrBadBBox, v)
	}
	var c [4]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return ocr.Box{}, fmt.Errorf("%w: %q", ErrBadBBox, v)
		}
		c[i] = n
	}
	return ocr.Box{X: c[0], Y: c[1], Width: c[2] - c[0], Height: c[3] - c[1]}, nil
}

// titleProps splits "bbox 1 2 3 4; x_wconf 95" into {"bbox": "1 2 3 4", "x_wconf": "95"}.
func titleProps(title string) map[string]string {
	props := make(map[string]string)
	for _, part := range strings.Split(title, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, " ")
		props[name] = strings.TrimSpace(value)
	}
	return props
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}
