// Package citation resolves [k] markers of a generated answer against the
// ordered source list shown to the LLM and derives viewer annotations.
//
// Marker k always refers to sources[k-1]. The answer text is never rewritten.
package citation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"document-qa/internal/models"
	"document-qa/internal/parser"

	"github.com/rs/zerolog/log"
)

// page-level box used when a chunk has no geometry
const (
	pageBoxX      = 10
	pageBoxY      = 10
	pageBoxWidth  = 575
	pageBoxHeight = 780

	chunkColor = "rgba(255, 0, 0, 0.3)"
	pageColor  = "rgba(255, 0, 0, 0.1)"
)

var markerRe = regexp.MustCompile(models.CitationRegex)

// Result holds everything derived from the markers of one answer.
type Result struct {
	Citations   []models.Citation
	Annotations []models.Annotation
	Warnings    []models.CitationWarning
}

// ExtractIndices returns the distinct markers of answer in order of first
// appearance. Markers too large for an int are reported as math.MaxInt.
func ExtractIndices(answer string) []int {
	var out []int
	seen := map[int]bool{}
	for _, m := range markerRe.FindAllStringSubmatch(answer, -1) {
		k, err := strconv.Atoi(m[1])
		if err != nil {
			k = math.MaxInt
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// Map resolves the markers of answer against sources. Out of range markers
// produce a warning and nothing else.
func Map(answer string, sources []models.Chunk) Result {
	res := Result{
		Citations:   []models.Citation{},
		Annotations: []models.Annotation{},
	}

	for _, k := range ExtractIndices(answer) {
		if k < 1 || k > len(sources) {
			w := models.CitationWarning{
				Marker:  k,
				Sources: len(sources),
				Message: fmt.Sprintf("citation [%d] is out of range (%d sources)", k, len(sources)),
			}
			log.Warn().Int("marker", k).Int("sources", len(sources)).Msg("Dropping unmatched citation")
			res.Warnings = append(res.Warnings, w)
			continue
		}

		src := sources[k-1]
		res.Citations = append(res.Citations, models.Citation{
			Marker:      k,
			SourceIndex: k - 1,
			ChunkID:     src.ID,
			PageNumber:  src.PageNumber,
			Text:        parser.DisplayText(src.Content),
		})
		res.Annotations = append(res.Annotations, annotate(k, src))
	}
	return res
}

func annotate(k int, src models.Chunk) models.Annotation {
	label := fmt.Sprintf("[%d]", k)
	if b := src.BBox; b != nil && b.Width() > 0 && b.Height() > 0 {
		return models.Annotation{
			Page:   src.PageNumber,
			X:      b.X0,
			Y:      b.Y0,
			Width:  b.Width(),
			Height: b.Height(),
			Color:  chunkColor,
			Title:  fmt.Sprintf("Source %s (Chunk)", label),
			Label:  label,
		}
	}
	return models.Annotation{
		Page:   src.PageNumber,
		X:      pageBoxX,
		Y:      pageBoxY,
		Width:  pageBoxWidth,
		Height: pageBoxHeight,
		Color:  pageColor,
		Title:  fmt.Sprintf("Source %s (Page)", label),
		Label:  label,
	}
}

// CitedImages collects the images referenced by the cited sources, in
// citation order and without duplicate paths.
func CitedImages(sources []models.Chunk, citations []models.Citation) []models.Image {
	var out []models.Image
	seen := map[string]bool{}
	for _, c := range citations {
		if c.SourceIndex < 0 || c.SourceIndex >= len(sources) {
			continue
		}
		src := sources[c.SourceIndex]
		refs := append([]string{}, src.Images...)
		refs = append(refs, parser.ImageRefs(src.Content)...)
		for _, path := range refs {
			if path == "" || seen[path] {
				continue
			}
			seen[path] = true
			out = append(out, models.Image{
				FilePath: path,
				Page:     src.PageNumber,
				Caption:  fmt.Sprintf("Image from page %d", src.PageNumber),
			})
		}
	}
	return out
}
