package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"document-qa/internal/models"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
)

const collectionPrefix = "doc_"

// VectorDBManager keeps one chromem collection per document.
type VectorDBManager struct {
	db            *chromem.DB
	embed         chromem.EmbeddingFunc
	dbPath        string
	compress      bool
	encryptionKey string
}

// EmbeddingFunc adapts a langchaingo embedder to chromem.
func EmbeddingFunc(e embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return e.EmbedQuery(ctx, text)
	}
}

// NewVectorDBManager initializes a new vector database manager
func NewVectorDBManager(dbPath string, inMemory, compress bool, encryptionKey string, embed chromem.EmbeddingFunc) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return &VectorDBManager{
		db:            db,
		embed:         embed,
		dbPath:        dbPath,
		compress:      compress,
		encryptionKey: encryptionKey,
	}, nil
}

func collectionName(documentID string) string {
	return collectionPrefix + documentID
}

// IndexChunks embeds and stores the chunks of a document, replacing any
// previously indexed chunks of it.
func (m *VectorDBManager) IndexChunks(ctx context.Context, documentID string, chunks []models.Chunk) error {
	if err := m.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	c, err := m.db.GetOrCreateCollection(collectionName(documentID), map[string]string{
		models.MetaDocumentID: documentID,
	}, m.embed)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %w", err)
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		// if content is empty, skip
		if chunk.Content == "" {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:       chunk.ID,
			Content:  chunk.Content,
			Metadata: chunk.Metadata(),
		})
	}
	if len(docs) == 0 {
		return nil
	}

	log.Info().Str("document_id", documentID).Msgf("Adding %d chunks to vector database", len(docs))
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Search runs a similarity search over the chunks of one document.
func (m *VectorDBManager) Search(ctx context.Context, documentID, query string, topK int) ([]models.ScoredChunk, error) {
	if query == "" {
		return nil, fmt.Errorf("query must be provided")
	}
	c := m.db.GetCollection(collectionName(documentID), m.embed)
	if c == nil {
		return nil, models.ErrIndexNotBuilt
	}

	n := min(topK, c.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := c.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryText: query,
		NResults:  n,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	out := make([]models.ScoredChunk, 0, len(results))
	for _, r := range results {
		out = append(out, models.ScoredChunk{
			Chunk:     models.ChunkFromMetadata(r.ID, r.Content, r.Metadata),
			Score:     float64(r.Similarity),
			Retrieval: models.RetrievalVector,
		})
	}
	return out, nil
}

// DeleteDocument drops the collection of a document.
func (m *VectorDBManager) DeleteDocument(_ context.Context, documentID string) error {
	if err := m.db.DeleteCollection(collectionName(documentID)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

func (m *VectorDBManager) exportPath(documentID string) string {
	return filepath.Join(m.dbPath, collectionName(documentID)+".chromem")
}

// Export writes the collection of a document to an encrypted file.
func (m *VectorDBManager) Export(documentID string) (string, error) {
	if m.encryptionKey == "" {
		return "", fmt.Errorf("encryption key is required")
	}
	if m.dbPath == "" {
		return "", fmt.Errorf("db path is required")
	}
	name := collectionName(documentID)
	if m.db.GetCollection(name, m.embed) == nil {
		return "", models.ErrIndexNotBuilt
	}

	path := m.exportPath(documentID)
	log.Debug().Str("collection", name).Str("file", path).Bool("compress", m.compress).Msg("Exporting collection")
	if err := m.db.ExportToFile(path, m.compress, m.encryptionKey, name); err != nil {
		return "", fmt.Errorf("failed to export database: %w", err)
	}
	return path, nil
}

// Import restores the collection of a document from a file written by Export.
func (m *VectorDBManager) Import(documentID string) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	path := m.exportPath(documentID)
	if err := m.db.ImportFromFile(path, m.encryptionKey, collectionName(documentID)); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	return nil
}
