// Package textnorm normalizes German text for keyword matching while keeping
// an offset map back into the original, so evidence snippets can be cut from
// the untouched source text.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalized is the result of Normalize: the folded text plus, for every byte
// of Text, the byte offset in the original it came from.
type Normalized struct {
	Text    string
	Offsets []int
}

var umlautFold = map[rune]string{
	'ä': "ae",
	'ö': "oe",
	'ü': "ue",
	'ß': "ss",
}

// Normalize lowercases, folds umlauts (ä→ae, ö→oe, ü→ue, ß→ss) and collapses
// whitespace runs (including newlines) to a single space. Idempotent on its
// own output.
func Normalize(text string) Normalized {
	var b strings.Builder
	b.Grow(len(text))
	offsets := make([]int, 0, len(text))

	inSpace := true // swallow leading whitespace
	for i, r := range text {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				offsets = append(offsets, i)
				inSpace = true
			}
			continue
		}
		inSpace = false

		lower := unicode.ToLower(r)
		if folded, ok := umlautFold[lower]; ok {
			for j := 0; j < len(folded); j++ {
				b.WriteByte(folded[j])
				offsets = append(offsets, i)
			}
			continue
		}
		var buf [4]byte
		n := utf8.EncodeRune(buf[:], lower)
		for j := 0; j < n; j++ {
			b.WriteByte(buf[j])
			offsets = append(offsets, i)
		}
	}

	out := b.String()
	// Trailing space from a whitespace run at the end.
	if n := len(out); n > 0 && out[n-1] == ' ' {
		out = out[:n-1]
		offsets = offsets[:n-1]
	}
	return Normalized{Text: out, Offsets: offsets}
}

// OriginalSlice cuts [start,end) in normalized coordinates out of the original
// text, expanding to rune boundaries. Out-of-range indexes are clamped.
func (n Normalized) OriginalSlice(original string, start, end int) string {
	if len(n.Offsets) == 0 || start >= len(n.Offsets) {
		return ""
	}
	if start < 0 {
		start = 0
	}
	if end > len(n.Offsets) {
		end = len(n.Offsets)
	}
	if end <= start {
		return ""
	}
	from := n.Offsets[start]
	to := n.Offsets[end-1]
	if from > len(original) {
		return ""
	}
	if to < len(original) {
		_, size := utf8.DecodeRuneInString(original[to:])
		to += size
	}
	if to > len(original) {
		to = len(original)
	}
	return original[from:to]
}
