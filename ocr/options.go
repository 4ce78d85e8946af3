package ocr

import "strconv"

// Metadata keys understood by the Tesseract-backed engines.
const (
	MetaPageSegMode   = "tessedit_pageseg_mode"
	MetaCharWhitelist = "tessedit_char_whitelist"
)

// DefaultPageSegMode is Tesseract's fully automatic page segmentation.
const DefaultPageSegMode = 3

// WithTesseractPSM sets the page segmentation mode (PSM) for Tesseract.
// See https://tesseract-ocr.github.io/tessdoc/ImproveQuality.html#page-segmentation-method for values.
func WithTesseractPSM(mode int) InputOption {
	return withMeta(MetaPageSegMode, strconv.Itoa(mode))
}

// WithTesseractWhitelist restricts recognition to the provided characters.
func WithTesseractWhitelist(chars string) InputOption {
	return withMeta(MetaCharWhitelist, chars)
}

func withMeta(key, value string) InputOption {
	return func(in *Input) {
		if in.Metadata == nil {
			in.Metadata = make(map[string]string)
		}
		in.Metadata[key] = value
	}
}

// PageSegMode returns the PSM requested on the input, or DefaultPageSegMode
// when none or an invalid value is set.
func (in Input) PageSegMode() int {
	v, ok := in.Metadata[MetaPageSegMode]
	if !ok {
		return DefaultPageSegMode
	}
	mode, err := strconv.Atoi(v)
	if err != nil || mode < 0 || mode > 13 {
		return DefaultPageSegMode
	}
	return mode
}
