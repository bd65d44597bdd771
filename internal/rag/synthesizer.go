package rag

import (
	"context"
	"fmt"
	"strings"

	"document-qa/internal/config"
	"document-qa/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/prompts"
)

// NoSourcesAnswer is returned without calling the LLM when retrieval found nothing.
const NoSourcesAnswer = "Empty Response"

// Generator sends one prompt to an LLM.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Synthesis is an answer together with the sources the LLM was shown.
// Marker [k] in Answer refers to Sources[k-1].
type Synthesis struct {
	Answer  string
	Sources []models.Chunk
	Prompts int
}

type Synthesizer struct {
	gen             Generator
	qa              prompts.PromptTemplate
	refine          prompts.PromptTemplate
	maxContextChars int
}

func NewSynthesizer(gen Generator, cfg config.RAGConfig) *Synthesizer {
	qaTemplates := models.CitationPrompts
	if cfg.PromptMode == models.PromptModePlain {
		qaTemplates = models.PlainPrompts
	}
	lang := cfg.Language
	if _, ok := qaTemplates[lang]; !ok {
		lang = "en"
	}

	return &Synthesizer{
		gen: gen,
		qa: prompts.NewPromptTemplate(qaTemplates[lang],
			[]string{models.VarContext, models.VarQuery}),
		refine: prompts.NewPromptTemplate(models.RefinePrompts[lang],
			[]string{models.VarQuery, models.VarExistingAnswer, models.VarContextMsg}),
		maxContextChars: cfg.MaxContextChars,
	}
}

// Synthesize answers query from candidates. The sources are numbered in the
// order given and that numbering is kept across refine steps, so the first
// prompt carries sources 1..n, the next one n+1..m, and so on. An LLM failure
// aborts the query; nothing is retried.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, candidates []models.Chunk) (*Synthesis, error) {
	sources := append([]models.Chunk{}, candidates...)
	if len(sources) == 0 {
		log.Info().Msg("No sources retrieved, skipping llm call")
		return &Synthesis{Answer: NoSourcesAnswer, Sources: sources}, nil
	}

	var answer string
	batches := s.pack(sources)
	for i, batch := range batches {
		var prompt string
		var err error
		if i == 0 {
			prompt, err = s.qa.Format(map[string]any{
				models.VarContext: batch,
				models.VarQuery:   query,
			})
		} else {
			prompt, err = s.refine.Format(map[string]any{
				models.VarQuery:          query,
				models.VarExistingAnswer: answer,
				models.VarContextMsg:     batch,
			})
		}
		if err != nil {
			return nil, &models.SynthesisError{Model: s.gen.Model(), Err: fmt.Errorf("failed to format prompt: %w", err)}
		}

		log.Debug().Int("step", i+1).Int("steps", len(batches)).Msg("Synthesizing answer")
		answer, err = s.gen.Generate(ctx, prompt)
		if err != nil {
			return nil, &models.SynthesisError{Model: s.gen.Model(), Err: err}
		}
	}

	return &Synthesis{Answer: answer, Sources: sources, Prompts: len(batches)}, nil
}

// pack numbers the sources and groups them into contexts of at most
// maxContextChars. A source larger than the limit gets a context of its own.
func (s *Synthesizer) pack(sources []models.Chunk) []string {
	var batches []string
	var cur strings.Builder
	for i, src := range sources {
		entry := fmt.Sprintf("Source %d:\n%s", i+1, src.Content)
		if cur.Len() > 0 && s.maxContextChars > 0 &&
			cur.Len()+len(models.ContextSeparator)+len(entry) > s.maxContextChars {
			batches = append(batches, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString(models.ContextSeparator)
		}
		cur.WriteString(entry)
	}
	if cur.Len() > 0 {
		batches = append(batches, cur.String())
	}
	return batches
}
