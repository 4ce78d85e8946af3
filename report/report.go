// Package report writes outlines for people and programs: the plain
// "Heading:/Content:" console listing, JSON, Markdown, HTML and
// script-formatted lines.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/wudi/outline/segment"
	"github.com/yuin/goldmark"
)

// Format names accepted by Write.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// WriteText prints the console listing: a title line, then for each heading
// a blank line, "Heading: <text>" and "Content: <content>".
func WriteText(w io.Writer, res *segment.Result) error {
	var sb strings.Builder
	sb.WriteString("Extracted Headings and Contents:\n")
	for _, e := range res.Entries() {
		fmt.Fprintf(&sb, "\nHeading: %s\nContent: %s\n", e.Heading, e.Content)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

type coords struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

type entryJSON struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
	Coords  coords `json:"coords"`
	Type    string `json:"type"`
}

func toJSON(e segment.Entry) entryJSON {
	return entryJSON{
		Heading: e.Heading,
		Content: e.Content,
		Coords:  coords{X1: e.Coords.X1, Y1: e.Coords.Y1, X2: e.Coords.X2, Y2: e.Coords.Y2},
		Type:    e.Type,
	}
}

// WriteJSON writes the outline as an indented JSON array of entries.
func WriteJSON(w io.Writer, res *segment.Result) error {
	entries := res.Entries()
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toJSON(e))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// Markdown renders the outline as second-level sections.
func Markdown(res *segment.Result) string {
	var sb strings.Builder
	for i, e := range res.Entries() {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "## %s\n", escapeMarkdown(e.Heading))
		if e.Content != "" {
			fmt.Fprintf(&sb, "\n%s\n", escapeMarkdown(e.Content))
		}
	}
	return sb.String()
}

// WriteMarkdown writes Markdown(res) to w.
func WriteMarkdown(w io.Writer, res *segment.Result) error {
	_, err := io.WriteString(w, Markdown(res))
	return err
}

// WriteHTML converts the Markdown outline to HTML with goldmark.
func WriteHTML(w io.Writer, res *segment.Result) error {
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(Markdown(res)), &buf); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Write dispatches on format name.
func Write(w io.Writer, format string, res *segment.Result) error {
	switch format {
	case "", FormatText:
		return WriteText(w, res)
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatMarkdown:
		return WriteMarkdown(w, res)
	case FormatHTML:
		return WriteHTML(w, res)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`, "|", `\|`, "&", `\&`,
)

// escapeMarkdown keeps OCR text literal: words such as "*Note*", "#1",
// "- item", "1. item" or "&copy;" must not turn into emphasis, headings,
// lists or entities.
func escapeMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = escapeLineStart(markdownEscaper.Replace(line))
	}
	return strings.Join(lines, "\n")
}

// escapeLineStart neutralizes block markers that only matter at the start of
// a line: bullet and setext markers, and ordered list numbers "N." or "N)".
func escapeLineStart(line string) string {
	if line == "" {
		return line
	}
	switch line[0] {
	case '-', '+', '=':
		return `\` + line
	}
	n := 0
	for n < len(line) && n < 10 && line[n] >= '0' && line[n] <= '9' {
		n++
	}
	if n > 0 && n < len(line) && (line[n] == '.' || line[n] == ')') {
		return line[:n] + `\` + line[n:]
	}
	return line
}
