package knowledge

import (
	"strings"
	"unicode/utf8"
)

// separators in preference order when looking for a clean break point near
// the end of a chunk.
var separators = []string{"\n\n", "\n", ". ", " "}

// SplitText partitions text into overlapping chunks of roughly size
// characters. Each chunk after the first starts overlap characters before
// the previous chunk's end so a concept split mid-chunk still appears whole
// in one of them. Returns the chunks with their source offsets.
func SplitText(text string, size, overlap int) []Chunk {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else {
			end = breakPoint(text, start, end)
		}

		segment := strings.TrimSpace(text[start:end])
		if segment != "" {
			chunks = append(chunks, Chunk{Text: segment, Offset: start})
		}

		if end >= len(text) {
			break
		}
		next := end - overlap
		for next > start && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// breakPoint looks backwards from the hard limit for the best separator so
// chunks end on a paragraph, line or sentence boundary where possible. The
// search window is the final quarter of the chunk; a break earlier than that
// would waste too much of the budget.
func breakPoint(text string, start, limit int) int {
	window := (limit - start) / 4
	floor := limit - window
	for _, sep := range separators {
		if idx := strings.LastIndex(text[floor:limit], sep); idx >= 0 {
			return floor + idx + len(sep)
		}
	}
	// A hard cut must not land inside a multi-byte rune.
	for limit > start && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}
