package rag

import (
	"context"
	"strings"
	"sync"

	"document-qa/internal/citation"
	"document-qa/internal/models"
	"document-qa/internal/session"

	"github.com/rs/zerolog/log"
)

// Retriever returns the candidate chunks of a document for a query.
type Retriever interface {
	Retrieve(ctx context.Context, documentID, query string) ([]models.ScoredChunk, error)
}

// Engine answers questions about indexed documents.
type Engine struct {
	retriever   Retriever
	synthesizer *Synthesizer
	sessions    *session.Store

	// one query per document at a time
	locks sync.Map
}

// NewEngine wires the query path. sessions may be nil.
func NewEngine(retriever Retriever, synthesizer *Synthesizer, sessions *session.Store) *Engine {
	return &Engine{retriever: retriever, synthesizer: synthesizer, sessions: sessions}
}

func (e *Engine) lock(documentID string) func() {
	v, _ := e.locks.LoadOrStore(documentID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Forget drops the query lock and the session of a removed document.
func (e *Engine) Forget(documentID string) {
	e.locks.Delete(documentID)
	if e.sessions != nil {
		e.sessions.Delete(documentID)
	}
}

// AnswerQuery retrieves, synthesizes and resolves citations for one question.
// Retrieval and synthesis failures are returned as *models.RetrievalError and
// *models.SynthesisError; unresolvable citations only produce warnings.
func (e *Engine) AnswerQuery(ctx context.Context, documentID, question string) (*models.QueryResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, models.ErrEmptyQuestion
	}
	if documentID == "" {
		return nil, &models.RetrievalError{DocumentID: documentID, Err: models.ErrDocumentNotFound}
	}

	unlock := e.lock(documentID)
	defer unlock()

	hits, err := e.retriever.Retrieve(ctx, documentID, question)
	if err != nil {
		return nil, err
	}
	candidates := make([]models.Chunk, len(hits))
	for i, h := range hits {
		candidates[i] = h.Chunk
	}

	syn, err := e.synthesizer.Synthesize(ctx, question, candidates)
	if err != nil {
		return nil, err
	}

	mapped := citation.Map(syn.Answer, syn.Sources)
	resp := &models.QueryResponse{
		DocumentID:  documentID,
		Question:    question,
		Answer:      syn.Answer,
		Sources:     syn.Sources,
		Citations:   mapped.Citations,
		Annotations: mapped.Annotations,
		Images:      citation.CitedImages(syn.Sources, mapped.Citations),
		Warnings:    mapped.Warnings,
	}

	log.Info().
		Str("document_id", documentID).
		Int("sources", len(resp.Sources)).
		Int("citations", len(resp.Citations)).
		Int("warnings", len(resp.Warnings)).
		Msg("Answered query")

	if e.sessions != nil {
		e.sessions.Put(resp)
	}
	return resp, nil
}
