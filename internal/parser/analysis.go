package parser

import (
	"math"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// thresholds for detecting scanned (image only) documents
const (
	minTextLengthPerPage = 50
	minWordCountPerPage  = 10
	maxScannedRatio      = 0.3
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	markupRe     = regexp.MustCompile("[#*\\-_`\\[\\]()!]")
)

// Analysis summarises how much text could be extracted from a document.
type Analysis struct {
	TotalPages           int     `json:"total_pages"`
	PagesWithMinimalText int     `json:"pages_with_minimal_text"`
	AverageTextPerPage   float64 `json:"average_text_per_page"`
	AverageWordsPerPage  float64 `json:"average_words_per_page"`
	ScannedRatio         float64 `json:"likely_scanned_ratio"`
	LikelyScanned        bool    `json:"likely_scanned"`
	Reason               string  `json:"reason"`
}

// Analyze flags documents whose pages carry too little extractable text,
// which usually means the PDF is scanned and needs OCR first.
func Analyze(pages []Page) Analysis {
	if len(pages) == 0 {
		return Analysis{LikelyScanned: true, ScannedRatio: 1, Reason: "No content extracted"}
	}

	a := Analysis{TotalPages: len(pages)}
	var totalText, totalWords int
	for _, page := range pages {
		clean := whitespaceRe.ReplaceAllString(strings.TrimSpace(page.Text), " ")
		clean = markupRe.ReplaceAllString(clean, "")

		textLength := len([]rune(clean))
		wordCount := len(strings.Fields(clean))
		totalText += textLength
		totalWords += wordCount

		if textLength < minTextLengthPerPage || wordCount < minWordCountPerPage {
			a.PagesWithMinimalText++
		}
	}

	n := float64(len(pages))
	a.ScannedRatio = round(float64(a.PagesWithMinimalText)/n, 2)
	a.AverageTextPerPage = round(float64(totalText)/n, 1)
	a.AverageWordsPerPage = round(float64(totalWords)/n, 1)
	a.LikelyScanned = a.ScannedRatio > maxScannedRatio

	switch {
	case !a.LikelyScanned:
		a.Reason = "Sufficient text content detected"
	case a.ScannedRatio >= 0.8:
		a.Reason = "Most pages contain very little extractable text"
	case a.AverageTextPerPage < 30:
		a.Reason = "Very low average text content per page"
	default:
		a.Reason = "High ratio of pages with minimal text content"
	}

	log.Debug().Interface("analysis", a).Msg("PDF analysis")
	return a
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
