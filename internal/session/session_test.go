package session

import (
	"testing"

	"document-qa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(docID, answer string, page int) *models.QueryResponse {
	return &models.QueryResponse{
		DocumentID:  docID,
		Answer:      answer,
		Annotations: []models.Annotation{{Page: page, Label: "[1]"}},
	}
}

func TestPutReplacesLatest(t *testing.T) {
	s, err := NewStore(4)
	require.NoError(t, err)

	s.Put(response("doc", "first", 1))
	s.Put(response("doc", "second", 5))

	got, ok := s.Get("doc")
	require.True(t, ok)
	assert.Equal(t, "second", got.Answer)

	h := s.History("doc")
	require.Len(t, h, 2)
	assert.Equal(t, "first", h[0].Answer)

	anns, err := s.Annotations("doc", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, anns[0].Page)

	_, err = s.Annotations("doc", 2)
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)
}

func TestDocumentsAreIsolated(t *testing.T) {
	s, err := NewStore(4)
	require.NoError(t, err)

	s.Put(response("a", "for a", 1))
	_, ok := s.Get("b")
	assert.False(t, ok)
	assert.Empty(t, s.History("b"))

	s.Delete("a")
	_, ok = s.Get("a")
	assert.False(t, ok)
}

func TestEviction(t *testing.T) {
	s, err := NewStore(2)
	require.NoError(t, err)

	s.Put(response("a", "a", 1))
	s.Put(response("b", "b", 1))
	_, _ = s.Get("a")
	s.Put(response("c", "c", 1))

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("b")
	assert.False(t, ok)
	_, ok = s.Get("a")
	assert.True(t, ok)
}

func TestHistoryIsBounded(t *testing.T) {
	s, err := NewStore(1)
	require.NoError(t, err)
	for i := 0; i < maxHistory+5; i++ {
		s.Put(response("doc", "x", i))
	}
	h := s.History("doc")
	assert.Len(t, h, maxHistory)
	assert.Equal(t, 5, h[0].Annotations[0].Page)
}

func TestNewStoreRejectsZeroCapacity(t *testing.T) {
	_, err := NewStore(0)
	assert.Error(t, err)
}
