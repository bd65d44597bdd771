package parser

import (
	"unicode/utf8"

	"document-qa/internal/models"
)

type span struct {
	start, end int
}

// chunkSpans splits content into byte ranges of at most maxChars with
// overlapChars of overlap. Ranges are trimmed of surrounding whitespace and
// never cut a rune in half.
func chunkSpans(content string, maxChars, overlapChars int) []span {
	// Handle edge cases
	if maxChars <= 0 {
		return nil
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2 // Reasonable default to avoid excessive overlap
	}

	first, last := trimSpan(content, 0, len(content))
	if first >= last {
		return nil
	}

	// If content is shorter than maxChars, return it as a single chunk
	if last-first <= maxChars {
		return []span{{first, last}}
	}

	var spans []span
	start := first
	for start < last {
		end := min(start+maxChars, last)

		// Find a clean break point (e.g., end of a word or sentence) if possible
		if end < last {
			// Look for a space or punctuation within the last 10% of the chunk
			lookBack := min(maxChars/10, end-start)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if content[i] == ' ' || content[i] == '\n' || content[i] == '.' {
					end = i + 1
					break
				}
			}
			end = runeFloor(content, end)
			if end <= start {
				// a single rune wider than maxChars
				_, size := utf8.DecodeRuneInString(content[start:])
				end = start + size
			}
		}

		if s, e := trimSpan(content, start, end); s < e {
			spans = append(spans, span{s, e})
		}

		if end >= last {
			break
		}
		// Move start forward, accounting for overlap
		next := runeFloor(content, end-overlapChars)
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

func trimSpan(s string, start, end int) (int, int) {
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return start, end
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// runeFloor moves i back to the start of the rune containing it.
func runeFloor(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// get chunks from a page; chunk ids are 1-based within the page
func (p *ParserConfig) getChunks(documentID string, page Page) []models.Chunk {
	var chunks []models.Chunk
	for i, sp := range chunkSpans(page.Text, p.ChunkSize, p.ChunkOverlap) {
		content := page.Text[sp.start:sp.end]
		chunkID := i + 1
		chunks = append(chunks, models.Chunk{
			ID:          models.ChunkKey(documentID, page.Number, chunkID),
			DocumentID:  documentID,
			Content:     content,
			PageNumber:  page.Number,
			ChunkID:     chunkID,
			StartOffset: sp.start,
			EndOffset:   sp.end,
			BBox:        page.spanBox(sp.start, sp.end),
			Images:      ImageRefs(content),
		})
	}
	return chunks
}
