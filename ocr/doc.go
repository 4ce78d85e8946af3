// Package ocr defines the adapter layer between word-level OCR engines and the
// outline segmenter. Engines receive a single grayscale page image and return
// an unordered bag of word tokens, each carrying text, an integer confidence
// in [0, 100] and an axis-aligned bounding box in image pixels.
//
// Engines that emit tokens in reading order report it through Result.Ordered.
// Callers must apply SortReadingOrder to results that do not, because the
// segmenter's heading tracking depends on scan order.
package ocr
