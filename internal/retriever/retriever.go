package retriever

import (
	"context"
	"strings"

	"document-qa/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	ModeOR  = "OR"
	ModeAND = "AND"
)

// Searcher is implemented by the vector and keyword indices.
type Searcher interface {
	Search(ctx context.Context, documentID, query string, topK int) ([]models.ScoredChunk, error)
}

// Dual combines a vector and a keyword search over the same document.
type Dual struct {
	vector      Searcher
	keyword     Searcher
	vectorTopK  int
	keywordTopK int
	mode        string
}

func NewDual(vector, keyword Searcher, vectorTopK, keywordTopK int, mode string) *Dual {
	mode = strings.ToUpper(mode)
	if mode != ModeAND {
		mode = ModeOR
	}
	return &Dual{
		vector:      vector,
		keyword:     keyword,
		vectorTopK:  vectorTopK,
		keywordTopK: keywordTopK,
		mode:        mode,
	}
}

// Retrieve runs both strategies and merges their results. In OR mode the
// result is the union, in AND mode only chunks found by both are kept.
// Every chunk appears once: vector hits first in rank order, followed by
// keyword-only hits in rank order. When both strategies return a chunk, the
// copy carrying more metadata wins.
func (d *Dual) Retrieve(ctx context.Context, documentID, query string) ([]models.ScoredChunk, error) {
	vectorHits, err := d.vector.Search(ctx, documentID, query, d.vectorTopK)
	if err != nil {
		return nil, &models.RetrievalError{DocumentID: documentID, Strategy: models.RetrievalVector, Err: err}
	}
	keywordHits, err := d.keyword.Search(ctx, documentID, query, d.keywordTopK)
	if err != nil {
		return nil, &models.RetrievalError{DocumentID: documentID, Strategy: models.RetrievalKeyword, Err: err}
	}

	merged := Merge(vectorHits, keywordHits, d.mode)
	log.Debug().
		Str("document_id", documentID).
		Str("mode", d.mode).
		Int("vector", len(vectorHits)).
		Int("keyword", len(keywordHits)).
		Int("merged", len(merged)).
		Msg("Retrieved chunks")
	return merged, nil
}

// Merge deduplicates two ranked result lists by chunk id.
func Merge(vectorHits, keywordHits []models.ScoredChunk, mode string) []models.ScoredChunk {
	var out []models.ScoredChunk
	pos := map[string]int{}
	inKeyword := map[string]bool{}

	add := func(hit models.ScoredChunk) {
		if i, ok := pos[hit.ID]; ok {
			out[i] = pick(out[i], hit)
			return
		}
		pos[hit.ID] = len(out)
		out = append(out, hit)
	}

	for _, h := range vectorHits {
		add(h)
	}
	for _, h := range keywordHits {
		inKeyword[h.ID] = true
		add(h)
	}

	if mode != ModeAND {
		return out
	}
	inVector := map[string]bool{}
	for _, h := range vectorHits {
		inVector[h.ID] = true
	}
	both := out[:0]
	for _, h := range out {
		if inVector[h.ID] && inKeyword[h.ID] {
			both = append(both, h)
		}
	}
	return both
}

// pick keeps the richer copy of a chunk, the first one on a tie.
func pick(have, other models.ScoredChunk) models.ScoredChunk {
	keep := have
	if other.Richness() > have.Richness() {
		keep = other
		keep.Score = have.Score
	}
	if have.Retrieval != other.Retrieval {
		keep.Retrieval = models.RetrievalBoth
	}
	return keep
}
