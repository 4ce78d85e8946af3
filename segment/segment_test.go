package segment

import (
	"math/rand"
	"reflect"
	"strconv"
	"testing"

	"github.com/wudi/outline/ocr"
)

func tok(text string, conf, x, y, w, h int) ocr.Token {
	return ocr.Token{Text: text, Confidence: conf, Box: ocr.Box{X: x, Y: y, Width: w, Height: h}}
}

func TestSegmentSingleHeading(t *testing.T) {
	res := Segment([]ocr.Token{
		tok("Title", 90, 0, 0, 50, 30),
		tok("intro", 80, 0, 40, 40, 15),
		tok("text", 80, 0, 60, 40, 15),
	})
	want := []Entry{{
		Heading: "Title",
		Content: "intro text",
		Coords:  Corners{X1: 0, Y1: 0, X2: 50, Y2: 30},
		Type:    TypeHeading,
		Y:       0,
	}}
	if got := res.Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Entries() = %+v, want %+v", got, want)
	}
	e, ok := res.Lookup("Title")
	if !ok || e.Content != "intro text" {
		t.Fatalf("Lookup(Title) = %+v, %v", e, ok)
	}
}

func TestSegmentShortTokensNeverFormHeadings(t *testing.T) {
	res := Segment([]ocr.Token{
		tok("small", 70, 0, 0, 40, 10),
		tok("words", 70, 50, 0, 40, 10),
	})
	if res.Len() != 0 {
		t.Fatalf("expected empty outline, got %+v", res.Entries())
	}
	if got := res.Stats().Orphans; got != 2 {
		t.Fatalf("Orphans = %d, want 2", got)
	}
}

func TestSegmentDropsLowConfidence(t *testing.T) {
	res := Segment([]ocr.Token{tok("Ghost", 50, 0, 0, 80, 30)})
	if res.Len() != 0 {
		t.Fatalf("low-confidence token formed a heading: %+v", res.Entries())
	}
	if got := res.Stats().Dropped; got != 1 {
		t.Fatalf("Dropped = %d, want 1", got)
	}

	res = Segment([]ocr.Token{
		tok("Title", 90, 0, 0, 50, 30),
		tok("ghost", 60, 0, 40, 40, 15),
		tok("  ", 95, 0, 50, 40, 15),
		tok("kept", 61, 0, 60, 40, 15),
	})
	e, _ := res.Lookup("Title")
	if e.Content != "kept" {
		t.Fatalf("Content = %q, want %q", e.Content, "kept")
	}
	if got := res.Stats().Dropped; got != 2 {
		t.Fatalf("Dropped = %d, want 2", got)
	}
}

func TestSegmentEmptyInput(t *testing.T) {
	res := Segment(nil)
	if res.Len() != 0 || len(res.Entries()) != 0 {
		t.Fatalf("expected empty outline")
	}
}

func TestSegmentWindowBoundariesAreExclusive(t *testing.T) {
	res := Segment([]ocr.Token{
		tok("First", 90, 0, 0, 60, 30),
		tok("same", 90, 70, 0, 30, 10),
		tok("mid", 90, 0, 50, 30, 10),
		tok("edge", 90, 0, 100, 30, 10),
		tok("Second", 90, 0, 100, 60, 30),
		tok("after", 90, 0, 130, 30, 10),
	})
	entries := res.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 headings, got %+v", entries)
	}
	if entries[0].Content != "mid" {
		t.Fatalf("First content = %q, want %q", entries[0].Content, "mid")
	}
	if entries[1].Content != "after" {
		t.Fatalf("Second content = %q, want %q", entries[1].Content, "after")
	}
}

func TestSegmentTallTokenTooCloseIsContent(t *testing.T) {
	res := Segment([]ocr.Token{
		tok("Big", 90, 0, 0, 60, 30),
		tok("Also", 90, 70, 15, 60, 30),
		tok("Gap20", 90, 0, 20, 60, 30),
	})
	if res.Len() != 1 {
		t.Fatalf("expected one heading, got %+v", res.Entries())
	}
	if e := res.Entries()[0]; e.Content != "Also Gap20" {
		t.Fatalf("Content = %q, want %q", e.Content, "Also Gap20")
	}
}

func TestSegmentAttachmentFollowsScanOrder(t *testing.T) {
	// "late" is attached to Second in scan order but lies above it, so no
	// window captures it.
	res := Segment([]ocr.Token{
		tok("First", 90, 0, 0, 60, 30),
		tok("Second", 90, 0, 100, 60, 30),
		tok("late", 90, 0, 50, 30, 10),
	})
	for _, e := range res.Entries() {
		if e.Content != "" {
			t.Fatalf("unexpected content under %q: %q", e.Heading, e.Content)
		}
	}
}

func duplicateHeadings() []ocr.Token {
	return []ocr.Token{
		tok("Notes", 90, 0, 0, 60, 30),
		tok("alpha", 90, 0, 40, 30, 10),
		tok("Body", 90, 0, 100, 60, 30),
		tok("beta", 90, 0, 140, 30, 10),
		tok("Notes", 90, 0, 200, 60, 30),
		tok("gamma", 90, 0, 240, 30, 10),
	}
}

func TestSegmentDuplicateHeadingsByDetection(t *testing.T) {
	res := Segment(duplicateHeadings())
	var got []string
	for _, e := range res.Entries() {
		got = append(got, e.Heading+":"+e.Content)
	}
	want := []string{"Notes:alpha", "Body:beta", "Notes:gamma"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	if e, _ := res.Lookup("Notes"); e.Content != "alpha" {
		t.Fatalf("Lookup should return first occurrence, got %+v", e)
	}
}

func TestSegmentDuplicateHeadingsByText(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeyMode = KeyByText
	res := New(cfg).Segment(duplicateHeadings())
	entries := res.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected repeated heading to collapse, got %+v", entries)
	}
	// The later occurrence wins but keeps the first occurrence's position.
	if entries[0].Heading != "Notes" || entries[0].Content != "gamma" || entries[0].Y != 200 {
		t.Fatalf("entries[0] = %+v", entries[0])
	}
	if entries[1].Heading != "Body" || entries[1].Content != "beta" {
		t.Fatalf("entries[1] = %+v", entries[1])
	}
	if got := len(res.Headings()); got != 3 {
		t.Fatalf("Headings() len = %d, want 3", got)
	}
}

func TestSegmentCustomThresholds(t *testing.T) {
	s := New(Config{MinConfidence: 10, MinHeadingHeight: 5, MinHeadingGap: 5})
	res := s.Segment([]ocr.Token{
		tok("h1", 20, 0, 0, 10, 8),
		tok("body", 20, 0, 4, 10, 4),
		tok("h2", 20, 0, 10, 10, 8),
	})
	if res.Len() != 2 {
		t.Fatalf("expected two headings, got %+v", res.Entries())
	}
	if s.Config().MinHeadingGap != 5 {
		t.Fatalf("Config() not preserved")
	}
}

func TestParseKeyMode(t *testing.T) {
	tests := []struct {
		in   string
		want KeyMode
		ok   bool
	}{
		{"", KeyByDetection, true},
		{"detection", KeyByDetection, true},
		{" TEXT ", KeyByText, true},
		{"uuid", KeyByDetection, false},
	}
	for _, tc := range tests {
		got, ok := ParseKeyMode(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseKeyMode(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
	if KeyByText.String() != "text" || KeyByDetection.String() != "detection" {
		t.Fatalf("unexpected KeyMode names")
	}
}

func randomTokens(r *rand.Rand, n int) []ocr.Token {
	tokens := make([]ocr.Token, n)
	for i := range tokens {
		text := "w" + strconv.Itoa(r.Intn(8))
		if r.Intn(10) == 0 {
			text = " "
		}
		tokens[i] = tok(text, r.Intn(101), r.Intn(500), r.Intn(1000), 5+r.Intn(40), 5+r.Intn(30))
	}
	return tokens
}

func TestSegmentProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		tokens := randomTokens(r, r.Intn(60))
		for _, mode := range []KeyMode{KeyByDetection, KeyByText} {
			cfg := DefaultConfig()
			cfg.KeyMode = mode
			s := New(cfg)
			res := s.Segment(tokens)

			for _, e := range res.Entries() {
				if !hasQualifyingToken(tokens, e.Heading) {
					t.Fatalf("round %d: heading %q not backed by a qualifying token", round, e.Heading)
				}
				if e.Heading == "" || e.Type != TypeHeading {
					t.Fatalf("round %d: malformed entry %+v", round, e)
				}
			}

			if again := s.Segment(tokens); again.Fingerprint() != res.Fingerprint() ||
				!reflect.DeepEqual(again.Entries(), res.Entries()) {
				t.Fatalf("round %d: segmentation is not idempotent", round)
			}

			if mode == KeyByDetection {
				entries := res.Entries()
				for i := 1; i < len(entries); i++ {
					if entries[i].Y < entries[i-1].Y {
						t.Fatalf("round %d: entries out of Y order: %+v", round, entries)
					}
				}
			}
		}
	}
}

func hasQualifyingToken(tokens []ocr.Token, text string) bool {
	for _, tk := range tokens {
		if tk.Text == text && tk.Confidence > 60 && tk.Box.Height > 20 {
			return true
		}
	}
	return false
}

func TestFingerprintDistinguishesOutlines(t *testing.T) {
	a := Segment([]ocr.Token{tok("Title", 90, 0, 0, 50, 30), tok("x", 90, 0, 40, 10, 10)})
	b := Segment([]ocr.Token{tok("Title", 90, 0, 0, 50, 30), tok("y", 90, 0, 40, 10, 10)})
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatalf("different outlines share a fingerprint")
	}
	if len(a.Fingerprint()) != 64 {
		t.Fatalf("unexpected fingerprint length %d", len(a.Fingerprint()))
	}
	var empty *Result
	if empty.Len() != 0 || empty.Entries() != nil {
		t.Fatalf("nil result should be empty")
	}
}
