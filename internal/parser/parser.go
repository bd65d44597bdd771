package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"document-qa/internal/config"
	"document-qa/internal/models"

	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

const (
	defaultChunkSize    = 1000 // bytes
	defaultChunkOverlap = 200  // bytes
	defaultPageNumber   = 1
)

// Page is the extracted text of one page (sheet, slide) of a document.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`

	// boxes holds one entry per byte of Text; nil where no glyph geometry is known.
	boxes []*models.BBox
}

// ParsedDocument is the output of the ingestion parser.
type ParsedDocument struct {
	DocumentID string         `json:"document_id"`
	Name       string         `json:"name"`
	Path       string         `json:"path"`
	Pages      []Page         `json:"pages"`
	Chunks     []models.Chunk `json:"chunks"`
	Analysis   Analysis       `json:"analysis"`
}

type ParserConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

func newParserConfig(cfg *config.Config) ParserConfig {
	p := ParserConfig{ChunkSize: defaultChunkSize, ChunkOverlap: defaultChunkOverlap}
	if cfg != nil && cfg.RAG.ChunkSize > 0 {
		p.ChunkSize = cfg.RAG.ChunkSize
		p.ChunkOverlap = cfg.RAG.ChunkOverlap
	}
	return p
}

// ParseFile extracts pages from filePath and splits them into chunks owned by documentID.
func ParseFile(filePath, documentID string, cfg *config.Config) (*ParsedDocument, error) {
	pages, err := ReadPages(filePath)
	if err != nil {
		return nil, err
	}

	p := newParserConfig(cfg)
	doc := &ParsedDocument{
		DocumentID: documentID,
		Name:       filepath.Base(filePath),
		Path:       filePath,
		Pages:      pages,
		Analysis:   Analyze(pages),
	}
	for _, page := range pages {
		doc.Chunks = append(doc.Chunks, p.getChunks(documentID, page)...)
	}

	log.Debug().
		Str("document_id", documentID).
		Str("file", doc.Name).
		Int("pages", len(pages)).
		Int("chunks", len(doc.Chunks)).
		Msg("Parsed document")
	return doc, nil
}

// ReadPages extracts the text of every page of filePath, dispatching on the extension.
func ReadPages(filePath string) ([]Page, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return parsePDF(filePath)
	case ".docx":
		return parseDOCX(filePath)
	case ".pptx":
		return parsePPTX(filePath)
	case ".xlsx":
		return parseXLSX(filePath)
	case ".ods":
		return parseODS(filePath)
	case ".txt", ".md":
		return parseText(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func parseDOCX(filePath string) ([]Page, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	doc := r.Editable()
	var paragraphs []string
	for _, p := range strings.Split(doc.GetContent(), "\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	// DOCX has no page numbers
	return textPages(defaultPageNumber, strings.Join(paragraphs, "\n")), nil
}

func parsePPTX(filePath string) ([]Page, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	slides := map[int]*zip.File{}
	for _, file := range f.File {
		name := strings.TrimPrefix(file.Name, "ppt/slides/slide")
		if name == file.Name || !strings.HasSuffix(name, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ".xml"))
		if err != nil {
			continue
		}
		slides[n] = file
	}
	numbers := make([]int, 0, len(slides))
	for n := range slides {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var pages []Page
	for _, n := range numbers {
		rc, err := slides[n].Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		pages = append(pages, textPages(n, extractTextFromXML(string(data)))...)
	}
	return pages, nil
}

func parseXLSX(filePath string) ([]Page, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var pages []Page
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, textPages(sheetNum+1, text.String())...)
	}
	return pages, nil
}

func parseODS(filePath string) ([]Page, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []Page
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, textPages(sheetNum+1, text.String())...)
	}
	return pages, nil
}

func parseText(filePath string) ([]Page, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	// TXT has no pages
	return textPages(defaultPageNumber, string(data)), nil
}

// textPages wraps text without geometry; blank text yields no page.
func textPages(number int, text string) []Page {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []Page{{Number: number, Text: text}}
}

func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		endIdx := strings.Index(part, "</a:t>")
		if endIdx >= 0 {
			text.WriteString(part[:endIdx] + " ")
		}
	}
	return text.String()
}
