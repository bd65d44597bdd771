package models

import (
	"errors"
	"fmt"
)

var (
	ErrIndexNotBuilt    = errors.New("index not built")
	ErrDocumentNotFound = errors.New("document not found")
	ErrEmptyQuestion    = errors.New("question is empty")
	ErrEmptyAnswer      = errors.New("llm returned an empty answer")
)

// RetrievalError is returned when the indices of a document cannot be queried.
type RetrievalError struct {
	DocumentID string
	Strategy   string
	Err        error
}

func (e *RetrievalError) Error() string {
	if e.Strategy == "" {
		return fmt.Sprintf("retrieval failed for document %s: %v", e.DocumentID, e.Err)
	}
	return fmt.Sprintf("%s retrieval failed for document %s: %v", e.Strategy, e.DocumentID, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// SynthesisError is returned when the LLM call fails or yields unusable output.
type SynthesisError struct {
	Model string
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed (model %s): %v", e.Model, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
