package document

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"document-qa/internal/config"
	"document-qa/internal/helper"
	"document-qa/internal/models"
	"document-qa/internal/parser"

	"github.com/rs/zerolog/log"
)

// Index is implemented by the vector and keyword stores.
type Index interface {
	IndexChunks(ctx context.Context, documentID string, chunks []models.Chunk) error
	DeleteDocument(ctx context.Context, documentID string) error
}

// Forgetter drops per-document state held outside the indices.
type Forgetter interface {
	Forget(documentID string)
}

// Document is an ingested document.
type Document struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Path     string          `json:"path"`
	Pages    int             `json:"pages"`
	Chunks   []models.Chunk  `json:"chunks"`
	Analysis parser.Analysis `json:"analysis"`
}

// Manager parses files, fills both indices and keeps a registry of the
// ingested documents.
type Manager struct {
	cfg     *config.Config
	vector  Index
	keyword Index

	mu         sync.RWMutex
	docs       map[string]*Document
	forgetters []Forgetter
}

func NewManager(cfg *config.Config, vector, keyword Index) *Manager {
	return &Manager{cfg: cfg, vector: vector, keyword: keyword, docs: map[string]*Document{}}
}

// OnRemove registers f to be told about removed documents.
func (m *Manager) OnRemove(f Forgetter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forgetters = append(m.forgetters, f)
}

// Ingest parses filePath and indexes its chunks. Re-ingesting the same file
// replaces its indices.
func (m *Manager) Ingest(ctx context.Context, filePath string) (*Document, error) {
	id, err := helper.DocumentID(filePath)
	if err != nil {
		return nil, err
	}

	parsed, err := parser.ParseFile(filePath, id, m.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	if parsed.Analysis.LikelyScanned {
		log.Warn().
			Str("file", parsed.Name).
			Float64("scanned_ratio", parsed.Analysis.ScannedRatio).
			Str("reason", parsed.Analysis.Reason).
			Msg("Document looks scanned, consider running OCR first")
	}
	if len(parsed.Chunks) == 0 {
		return nil, fmt.Errorf("no text could be extracted from %s", parsed.Name)
	}

	if err := m.vector.IndexChunks(ctx, id, parsed.Chunks); err != nil {
		return nil, fmt.Errorf("failed to build vector index: %w", err)
	}
	if err := m.keyword.IndexChunks(ctx, id, parsed.Chunks); err != nil {
		if derr := m.vector.DeleteDocument(ctx, id); derr != nil {
			log.Error().Err(derr).Str("document_id", id).Msg("Error rolling back vector index")
		}
		return nil, fmt.Errorf("failed to build keyword index: %w", err)
	}

	doc := &Document{
		ID:       id,
		Name:     parsed.Name,
		Path:     parsed.Path,
		Pages:    len(parsed.Pages),
		Chunks:   parsed.Chunks,
		Analysis: parsed.Analysis,
	}
	m.mu.Lock()
	m.docs[id] = doc
	m.mu.Unlock()

	log.Info().Str("document_id", id).Str("file", doc.Name).Int("chunks", len(doc.Chunks)).Msg("Ingested document")
	return doc, nil
}

func (m *Manager) Get(documentID string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return nil, models.ErrDocumentNotFound
	}
	return doc, nil
}

// List returns the ingested documents sorted by name.
func (m *Manager) List() []*Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Remove drops a document and its indices.
func (m *Manager) Remove(ctx context.Context, documentID string) error {
	if _, err := m.Get(documentID); err != nil {
		return err
	}
	err := errors.Join(
		m.vector.DeleteDocument(ctx, documentID),
		m.keyword.DeleteDocument(ctx, documentID),
	)
	if err != nil {
		return fmt.Errorf("failed to remove document %s: %w", documentID, err)
	}
	m.mu.Lock()
	delete(m.docs, documentID)
	forgetters := append([]Forgetter(nil), m.forgetters...)
	m.mu.Unlock()

	for _, f := range forgetters {
		f.Forget(documentID)
	}
	return nil
}
