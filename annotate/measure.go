package annotate

import (
	"bytes"
	"unicode"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// measureFunc returns the pixel advance of text as it will be drawn.
type measureFunc func(text string) int

// regularFace returns Go Regular at size pixels (72 DPI).
func regularFace(size float64) (font.Face, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// shapedMeasure measures Go Regular text with HarfBuzz shaping, which
// accounts for kerning and script direction. Falls back to the drawer's
// advance if the font cannot be loaded.
func shapedMeasure(size float64, fallback font.Face) measureFunc {
	face, err := gofont.ParseTTF(bytes.NewReader(goregular.TTF))
	if err != nil {
		return drawerMeasure(fallback)
	}
	shaper := &shaping.HarfbuzzShaper{}
	return func(text string) int {
		runes := []rune(text)
		if len(runes) == 0 {
			return 0
		}
		script := detectScript(runes)
		output := shaper.Shape(shaping.Input{
			Text:      runes,
			RunStart:  0,
			RunEnd:    len(runes),
			Direction: scriptDirection(script),
			Face:      face,
			Size:      fixed.Int26_6(size * 64),
			Script:    script,
			Language:  language.DefaultLanguage(),
		})
		var adv fixed.Int26_6
		for _, g := range output.Glyphs {
			adv += g.XAdvance
		}
		if adv < 0 {
			adv = -adv
		}
		return adv.Ceil()
	}
}

func drawerMeasure(face font.Face) measureFunc {
	return func(text string) int {
		return font.MeasureString(face, text).Ceil()
	}
}

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

// detectScript returns the most frequent script among runes, defaulting to
// Latin.
func detectScript(runes []rune) language.Script {
	counts := make(map[language.Script]int)
	best, bestCount := language.Latin, 0
	for _, r := range runes {
		var s language.Script
		switch {
		case unicode.Is(unicode.Latin, r):
			s = language.Latin
		case unicode.Is(unicode.Cyrillic, r):
			s = language.Cyrillic
		case unicode.Is(unicode.Greek, r):
			s = language.Greek
		case unicode.Is(unicode.Arabic, r):
			s = language.Arabic
		case unicode.Is(unicode.Hebrew, r):
			s = language.Hebrew
		default:
			continue
		}
		counts[s]++
		if counts[s] > bestCount {
			best, bestCount = s, counts[s]
		}
	}
	return best
}
