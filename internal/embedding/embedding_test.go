package embedding

import (
	"context"
	"testing"

	"document-qa/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEmbedder struct {
	vectors [][]float32
}

func (f fixedEmbedder) EmbedDocuments(_ context.Context, _ []string) ([][]float32, error) {
	return f.vectors, nil
}

func (f fixedEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return f.vectors[0], nil
}

func TestEmbedTexts(t *testing.T) {
	ctx := context.Background()
	e := fixedEmbedder{vectors: [][]float32{{1, 0}, {0, 1}}}

	out, err := EmbedTexts(ctx, e, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	_, err = EmbedTexts(ctx, e, []string{"a", "b", "c"})
	assert.ErrorContains(t, err, "2 vectors for 3 texts")

	out, err = EmbedTexts(ctx, e, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestNewEmbedderUnsupportedProvider(t *testing.T) {
	_, err := NewEmbedder(&config.LLMConfig{Provider: "bogus"})
	assert.Error(t, err)
}
