package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"document-qa/internal/config"
	"document-qa/internal/models"
	"document-qa/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	answers []string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	i := min(len(f.prompts), len(f.answers)) - 1
	return f.answers[i], nil
}

func (f *fakeGenerator) Model() string { return "fake-model" }

type stubRetriever struct {
	hits []models.ScoredChunk
	err  error
}

func (s stubRetriever) Retrieve(_ context.Context, _, _ string) ([]models.ScoredChunk, error) {
	return s.hits, s.err
}

func ragConfig() config.RAGConfig {
	return config.Default().RAG
}

func chunks() []models.Chunk {
	return []models.Chunk{
		{ID: "d-p1-c1", DocumentID: "d", Content: "A", PageNumber: 1, ChunkID: 1},
		{ID: "d-p3-c1", DocumentID: "d", Content: "B", PageNumber: 3, ChunkID: 1},
	}
}

func TestSynthesizeCitationPrompt(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"See [1] and [2]."}}
	syn, err := NewSynthesizer(gen, ragConfig()).Synthesize(context.Background(), "What?", chunks())
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	p := gen.prompts[0]
	assert.Contains(t, p, "Source 1:\nA\n\nSource 2:\nB")
	assert.Contains(t, p, "Query: What?")
	assert.Contains(t, p, "CRITICAL INSTRUCTION")

	assert.Equal(t, "See [1] and [2].", syn.Answer)
	assert.Equal(t, chunks(), syn.Sources)
	assert.Equal(t, 1, syn.Prompts)
}

func TestSynthesizePlainGerman(t *testing.T) {
	cfg := ragConfig()
	cfg.PromptMode = models.PromptModePlain
	cfg.Language = "de"
	gen := &fakeGenerator{answers: []string{"Antwort"}}

	_, err := NewSynthesizer(gen, cfg).Synthesize(context.Background(), "Was?", chunks())
	require.NoError(t, err)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Allgemeinwissen")
	assert.Contains(t, gen.prompts[0], "Anfrage: Was?")
}

func TestSynthesizeRefineKeepsNumbering(t *testing.T) {
	cfg := ragConfig()
	cfg.MaxContextChars = 30
	src := []models.Chunk{
		{ID: "1", Content: strings.Repeat("a", 15), PageNumber: 1},
		{ID: "2", Content: strings.Repeat("b", 15), PageNumber: 2},
		{ID: "3", Content: strings.Repeat("c", 15), PageNumber: 3},
	}
	gen := &fakeGenerator{answers: []string{"first [1]", "second [1] [2]", "final [1] [2] [3]"}}

	syn, err := NewSynthesizer(gen, cfg).Synthesize(context.Background(), "q", src)
	require.NoError(t, err)
	require.Len(t, gen.prompts, 3)
	assert.Equal(t, 3, syn.Prompts)

	assert.Contains(t, gen.prompts[0], "Source 1:")
	assert.NotContains(t, gen.prompts[0], "Source 2:")
	assert.Contains(t, gen.prompts[1], "Source 2:\n"+strings.Repeat("b", 15))
	assert.Contains(t, gen.prompts[1], "Existing Answer: first [1]")
	assert.Contains(t, gen.prompts[2], "Source 3:")
	assert.Contains(t, gen.prompts[2], "Existing Answer: second [1] [2]")

	assert.Equal(t, "final [1] [2] [3]", syn.Answer)
	assert.Equal(t, src, syn.Sources)
}

func TestSynthesizeNoSources(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"unused"}}
	syn, err := NewSynthesizer(gen, ragConfig()).Synthesize(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, gen.prompts)
	assert.Equal(t, NoSourcesAnswer, syn.Answer)
	assert.Empty(t, syn.Sources)
}

func TestSynthesizeFailureIsNotRetried(t *testing.T) {
	boom := errors.New("provider down")
	gen := &fakeGenerator{err: boom}

	_, err := NewSynthesizer(gen, ragConfig()).Synthesize(context.Background(), "q", chunks())
	var serr *models.SynthesisError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "fake-model", serr.Model)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, gen.prompts, 1)
}

func scored(cs []models.Chunk) []models.ScoredChunk {
	out := make([]models.ScoredChunk, len(cs))
	for i, c := range cs {
		out[i] = models.ScoredChunk{Chunk: c, Retrieval: models.RetrievalVector}
	}
	return out
}

func TestAnswerQuery(t *testing.T) {
	sessions, err := session.NewStore(4)
	require.NoError(t, err)
	gen := &fakeGenerator{answers: []string{"See [1] and [5]."}}
	engine := NewEngine(stubRetriever{hits: scored(chunks())}, NewSynthesizer(gen, ragConfig()), sessions)

	resp, err := engine.AnswerQuery(context.Background(), "d", "  What?  ")
	require.NoError(t, err)

	assert.Equal(t, "d", resp.DocumentID)
	assert.Equal(t, "What?", resp.Question)
	assert.Equal(t, "See [1] and [5].", resp.Answer, "answer text is returned unmodified")
	assert.Equal(t, chunks(), resp.Sources)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, 1, resp.Citations[0].Marker)
	require.Len(t, resp.Annotations, 1)
	assert.Equal(t, 1, resp.Annotations[0].Page)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, 5, resp.Warnings[0].Marker)

	cached, ok := sessions.Get("d")
	require.True(t, ok)
	assert.Same(t, resp, cached)
}

func TestAnswerQueryErrors(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"x"}}
	synth := NewSynthesizer(gen, ragConfig())

	_, err := NewEngine(stubRetriever{}, synth, nil).AnswerQuery(context.Background(), "d", "   ")
	assert.ErrorIs(t, err, models.ErrEmptyQuestion)

	_, err = NewEngine(stubRetriever{}, synth, nil).AnswerQuery(context.Background(), "", "q")
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)

	rerr := &models.RetrievalError{DocumentID: "d", Strategy: models.RetrievalVector, Err: models.ErrIndexNotBuilt}
	sessions, err := session.NewStore(2)
	require.NoError(t, err)
	_, err = NewEngine(stubRetriever{err: rerr}, synth, sessions).AnswerQuery(context.Background(), "d", "q")
	var target *models.RetrievalError
	require.ErrorAs(t, err, &target)
	assert.ErrorIs(t, err, models.ErrIndexNotBuilt)
	_, ok := sessions.Get("d")
	assert.False(t, ok)
	assert.Empty(t, gen.prompts)

	failing := NewSynthesizer(&fakeGenerator{err: errors.New("timeout")}, ragConfig())
	_, err = NewEngine(stubRetriever{hits: scored(chunks())}, failing, nil).AnswerQuery(context.Background(), "d", "q")
	var serr *models.SynthesisError
	assert.ErrorAs(t, err, &serr)
}

func TestForgetDropsDocumentState(t *testing.T) {
	sessions, err := session.NewStore(4)
	require.NoError(t, err)
	gen := &fakeGenerator{answers: []string{"[1]"}}
	engine := NewEngine(stubRetriever{hits: scored(chunks())}, NewSynthesizer(gen, ragConfig()), sessions)

	_, err = engine.AnswerQuery(context.Background(), "d", "q")
	require.NoError(t, err)
	_, locked := engine.locks.Load("d")
	require.True(t, locked)

	engine.Forget("d")
	_, locked = engine.locks.Load("d")
	assert.False(t, locked)
	_, ok := sessions.Get("d")
	assert.False(t, ok)

	_, err = engine.AnswerQuery(context.Background(), "d", "q")
	assert.NoError(t, err)
}
