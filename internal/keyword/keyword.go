package keyword

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"document-qa/internal/models"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true, "but": true,
	"by": true, "can": true, "do": true, "does": true, "for": true, "from": true, "has": true,
	"have": true, "how": true, "i": true, "in": true, "into": true, "is": true, "it": true, "its": true,
	"my": true, "of": true, "on": true, "or": true, "so": true, "that": true, "the": true, "their": true,
	"then": true, "there": true, "these": true, "this": true, "to": true, "was": true, "what": true,
	"when": true, "where": true, "which": true, "who": true, "why": true, "will": true, "with": true,
	"you": true, "your": true,
	"der": true, "die": true, "das": true, "und": true, "ist": true, "ein": true, "eine": true,
	"mit": true, "von": true, "zu": true, "den": true, "im": true, "auf": true, "für": true, "wie": true,
}

// Keywords lowercases text and returns its distinct non-stopword terms in
// order of first appearance.
func Keywords(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

type entry struct {
	chunk    models.Chunk
	keywords map[string]bool
}

// TableIndex is an in-memory keyword table per document. Chunks are ranked by
// the number of query keywords they contain.
type TableIndex struct {
	mu   sync.RWMutex
	docs map[string][]entry
}

func NewTableIndex() *TableIndex {
	return &TableIndex{docs: map[string][]entry{}}
}

// IndexChunks replaces the keyword table of a document.
func (t *TableIndex) IndexChunks(_ context.Context, documentID string, chunks []models.Chunk) error {
	entries := make([]entry, 0, len(chunks))
	for _, c := range chunks {
		kw := map[string]bool{}
		for _, w := range Keywords(c.Content) {
			kw[w] = true
		}
		entries = append(entries, entry{chunk: c, keywords: kw})
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.docs[documentID] = entries
	return nil
}

// Search returns up to topK chunks sharing at least one keyword with query.
// Ties keep document order.
func (t *TableIndex) Search(_ context.Context, documentID, query string, topK int) ([]models.ScoredChunk, error) {
	t.mu.RLock()
	entries, ok := t.docs[documentID]
	t.mu.RUnlock()
	if !ok {
		return nil, models.ErrIndexNotBuilt
	}

	terms := Keywords(query)
	if len(terms) == 0 || topK <= 0 {
		return nil, nil
	}

	var out []models.ScoredChunk
	for _, e := range entries {
		hits := 0
		for _, term := range terms {
			if e.keywords[term] {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		out = append(out, models.ScoredChunk{
			Chunk:     e.chunk,
			Score:     float64(hits),
			Retrieval: models.RetrievalKeyword,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// DeleteDocument drops the keyword table of a document.
func (t *TableIndex) DeleteDocument(_ context.Context, documentID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.docs, documentID)
	return nil
}
