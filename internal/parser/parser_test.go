package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"document-qa/internal/config"
	"document-qa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSpansShortContent(t *testing.T) {
	spans := chunkSpans("  hello world \n", 100, 10)
	require.Len(t, spans, 1)
	assert.Equal(t, span{2, 13}, spans[0])
}

func TestChunkSpansEmpty(t *testing.T) {
	assert.Empty(t, chunkSpans("", 100, 10))
	assert.Empty(t, chunkSpans(" \n\t ", 100, 10))
	assert.Empty(t, chunkSpans("text", 0, 0))
}

func TestChunkSpansCoverWholeContent(t *testing.T) {
	content := strings.TrimSpace(strings.Repeat("word ", 100))
	spans := chunkSpans(content, 100, 20)
	require.Greater(t, len(spans), 1)

	assert.Equal(t, 0, spans[0].start)
	assert.Equal(t, len(content), spans[len(spans)-1].end)
	for i, sp := range spans {
		assert.LessOrEqual(t, sp.end-sp.start, 100)
		assert.Equal(t, strings.TrimSpace(content[sp.start:sp.end]), content[sp.start:sp.end])
		if i > 0 {
			assert.LessOrEqual(t, sp.start, spans[i-1].end, "gap between chunk %d and %d", i-1, i)
			assert.Greater(t, sp.start, spans[i-1].start)
		}
	}
}

func TestChunkSpansKeepRunesWhole(t *testing.T) {
	content := strings.Repeat("ü", 300)
	for _, sp := range chunkSpans(content, 101, 11) {
		assert.True(t, strings.HasPrefix(content[sp.start:sp.end], "ü"))
		assert.True(t, strings.HasSuffix(content[sp.start:sp.end], "ü"))
	}
}

func TestChunkSpansSmallerThanRune(t *testing.T) {
	content := "日本語"
	spans := chunkSpans(content, 2, 1)
	require.Len(t, spans, 3)
	assert.Equal(t, []span{{0, 3}, {3, 6}, {6, 9}}, spans)

	spans = chunkSpans("aü日b", 1, 0)
	var parts []string
	for _, sp := range spans {
		parts = append(parts, "aü日b"[sp.start:sp.end])
	}
	assert.Equal(t, []string{"a", "ü", "日", "b"}, parts)
}

func TestGetChunksCarriesPageMetadata(t *testing.T) {
	box := &models.BBox{X0: 10, Y0: 20, X1: 30, Y1: 40}
	other := &models.BBox{X0: 50, Y0: 15, X1: 70, Y1: 35}
	page := Page{
		Number: 4,
		Text:   "ab cd",
		boxes:  []*models.BBox{box, box, nil, other, other},
	}
	p := ParserConfig{ChunkSize: 100, ChunkOverlap: 10}

	chunks := p.getChunks("doc", page)
	require.Len(t, chunks, 1)
	c := chunks[0]
	assert.Equal(t, "doc-p4-c1", c.ID)
	assert.Equal(t, "doc", c.DocumentID)
	assert.Equal(t, 4, c.PageNumber)
	assert.Equal(t, 1, c.ChunkID)
	assert.Equal(t, 0, c.StartOffset)
	assert.Equal(t, 5, c.EndOffset)
	require.NotNil(t, c.BBox)
	assert.Equal(t, models.BBox{X0: 10, Y0: 15, X1: 70, Y1: 40}, *c.BBox)
}

func TestSpanBoxWithoutGeometry(t *testing.T) {
	page := Page{Number: 1, Text: "plain"}
	assert.Nil(t, page.spanBox(0, 5))
}

func TestImageRefs(t *testing.T) {
	content := "Intro ![](img/a.jpg) text ![chart](img/b.png) again ![](img/a.jpg)"
	assert.Equal(t, []string{"img/a.jpg", "img/b.png"}, ImageRefs(content))
	assert.Nil(t, ImageRefs("no images here"))
}

func TestDisplayText(t *testing.T) {
	assert.Equal(t, "Subtitle body", DisplayText("# **Title** ## Subtitle body"))
	assert.Equal(t, "Heading", DisplayText("## Heading"))
	assert.Equal(t, "plain text", DisplayText("  plain text  "))
}

func TestAnalyze(t *testing.T) {
	rich := Page{Number: 1, Text: strings.Repeat("meaningful words on a page ", 10)}
	sparse := Page{Number: 2, Text: "fig. 1"}

	a := Analyze([]Page{rich, rich, rich, rich})
	assert.False(t, a.LikelyScanned)
	assert.Equal(t, "Sufficient text content detected", a.Reason)

	a = Analyze([]Page{sparse, sparse, sparse, sparse, rich})
	assert.True(t, a.LikelyScanned)
	assert.Equal(t, 4, a.PagesWithMinimalText)
	assert.Equal(t, 0.8, a.ScannedRatio)
	assert.Equal(t, "Most pages contain very little extractable text", a.Reason)

	a = Analyze(nil)
	assert.True(t, a.LikelyScanned)
}

func TestParseFileText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	body := strings.Repeat("The pump is rated at 40 bar. ", 20)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg := config.Default()
	cfg.RAG.ChunkSize = 200
	cfg.RAG.ChunkOverlap = 40

	doc, err := ParseFile(path, "doc-1", cfg)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.Name)
	require.Len(t, doc.Pages, 1)
	require.Greater(t, len(doc.Chunks), 1)
	for _, c := range doc.Chunks {
		assert.Equal(t, "doc-1", c.DocumentID)
		assert.Equal(t, 1, c.PageNumber)
		assert.Equal(t, body[c.StartOffset:c.EndOffset], c.Content)
		assert.Nil(t, c.BBox)
	}
}

func TestParseFileUnsupported(t *testing.T) {
	_, err := ParseFile("archive.tar", "doc", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file format")
}
