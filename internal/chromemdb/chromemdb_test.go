package chromemdb

import (
	"context"
	"math"
	"strings"
	"testing"

	"document-qa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// letterEmbedder maps text to a normalized letter histogram.
type letterEmbedder struct{}

func (letterEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 27)
	v[26] = 1
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v, nil
}

func (e letterEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.EmbedQuery(ctx, t)
	}
	return out, nil
}

func testChunks(docID string) []models.Chunk {
	return []models.Chunk{
		{ID: models.ChunkKey(docID, 1, 1), DocumentID: docID, Content: "zzz zebra zone", PageNumber: 1, ChunkID: 1, EndOffset: 14},
		{ID: models.ChunkKey(docID, 3, 1), DocumentID: docID, Content: "aaa apple banana", PageNumber: 3, ChunkID: 1, EndOffset: 16,
			BBox: &models.BBox{X0: 1, Y0: 2, X1: 3, Y1: 4}, Images: []string{"img/a.jpg"}},
		{ID: models.ChunkKey(docID, 4, 1), DocumentID: docID, Content: "", PageNumber: 4, ChunkID: 1},
	}
}

func newManager(t *testing.T, dir, key string) *VectorDBManager {
	t.Helper()
	m, err := NewVectorDBManager(dir, true, false, key, EmbeddingFunc(letterEmbedder{}))
	require.NoError(t, err)
	return m
}

func TestSearchReturnsChunksWithMetadata(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, t.TempDir(), "")
	require.NoError(t, m.IndexChunks(ctx, "doc1", testChunks("doc1")))

	results, err := m.Search(ctx, "doc1", "aaa apple banana", 5)
	require.NoError(t, err)
	require.Len(t, results, 2, "empty chunks are not indexed and topK is clamped")

	top := results[0]
	assert.Equal(t, "doc1-p3-c1", top.ID)
	assert.Equal(t, 3, top.PageNumber)
	assert.Equal(t, "doc1", top.DocumentID)
	assert.Equal(t, models.RetrievalVector, top.Retrieval)
	require.NotNil(t, top.BBox)
	assert.Equal(t, models.BBox{X0: 1, Y0: 2, X1: 3, Y1: 4}, *top.BBox)
	assert.Equal(t, []string{"img/a.jpg"}, top.Images)
	assert.InDelta(t, 1.0, top.Score, 1e-4)
}

func TestSearchUnknownDocument(t *testing.T) {
	m := newManager(t, t.TempDir(), "")
	_, err := m.Search(context.Background(), "missing", "anything", 3)
	assert.ErrorIs(t, err, models.ErrIndexNotBuilt)
}

func TestDocumentsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, t.TempDir(), "")
	require.NoError(t, m.IndexChunks(ctx, "doc1", testChunks("doc1")))
	require.NoError(t, m.IndexChunks(ctx, "doc2", testChunks("doc2")))

	results, err := m.Search(ctx, "doc2", "zebra", 3)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "doc2", r.DocumentID)
	}

	require.NoError(t, m.DeleteDocument(ctx, "doc2"))
	_, err = m.Search(ctx, "doc2", "zebra", 3)
	assert.ErrorIs(t, err, models.ErrIndexNotBuilt)
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	key := strings.Repeat("k", 32)

	src := newManager(t, dir, key)
	require.NoError(t, src.IndexChunks(ctx, "doc1", testChunks("doc1")))
	path, err := src.Export("doc1")
	require.NoError(t, err)
	assert.FileExists(t, path)

	dst := newManager(t, dir, key)
	require.NoError(t, dst.Import("doc1"))
	results, err := dst.Search(ctx, "doc1", "zebra", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc1-p1-c1", results[0].ID)
}

func TestExportRequiresKey(t *testing.T) {
	m := newManager(t, t.TempDir(), "")
	_, err := m.Export("doc1")
	assert.Error(t, err)
}

func TestIndexChunksReplacesPreviousChunks(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, t.TempDir(), "")
	require.NoError(t, m.IndexChunks(ctx, "d", []models.Chunk{
		{ID: "d-p1-c1", DocumentID: "d", Content: "alpha one", PageNumber: 1, ChunkID: 1},
		{ID: "d-p1-c2", DocumentID: "d", Content: "beta two", PageNumber: 1, ChunkID: 2},
		{ID: "d-p1-c3", DocumentID: "d", Content: "gamma three", PageNumber: 1, ChunkID: 3},
	}))
	require.NoError(t, m.IndexChunks(ctx, "d", []models.Chunk{
		{ID: "d-p1-c1", DocumentID: "d", Content: "alpha one beta two gamma three", PageNumber: 1, ChunkID: 1},
	}))

	results, err := m.Search(ctx, "d", "gamma three", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha one beta two gamma three", results[0].Content)
}
