package ocr

import "sort"

// SortReadingOrder sorts tokens top-to-bottom, then left-to-right, in place.
// The sort is stable so tokens sharing an origin keep their engine order.
func SortReadingOrder(tokens []Token) {
	sort.SliceStable(tokens, func(i, j int) bool {
		a, b := tokens[i].Box, tokens[j].Box
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}
