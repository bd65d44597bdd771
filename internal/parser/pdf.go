package parser

import (
	"fmt"
	"os"
	"strings"

	"document-qa/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

const (
	// US letter, used when the page carries no MediaBox
	defaultPageHeight = 792.0
	// horizontal gap, relative to the font size, that separates two words
	wordGapRatio = 0.15
)

func parsePDF(filePath string) ([]Page, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var pages []Page
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		page, err := readPDFPage(p, i)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// readPDFPage extracts the text of a page row by row and keeps the box of
// every glyph. When the layout cannot be read, plain text without geometry
// is returned instead.
func readPDFPage(p pdf.Page, number int) (page Page, err error) {
	page, err = readPDFLayout(p, number)
	if err == nil && strings.TrimSpace(page.Text) != "" {
		return page, nil
	}
	if err != nil {
		log.Debug().Err(err).Int("page", number).Msg("Falling back to plain text")
	}

	text, err := plainText(p)
	if err != nil {
		return Page{}, err
	}
	return Page{Number: number, Text: text}, nil
}

func plainText(p pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page content: %v", r)
		}
	}()
	return p.GetPlainText(nil)
}

func readPDFLayout(p pdf.Page, number int) (page Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page layout: %v", r)
		}
	}()

	rows, err := p.GetTextByRow()
	if err != nil {
		return Page{}, err
	}

	height := pageHeight(p.V)
	var b strings.Builder
	var boxes []*models.BBox
	write := func(s string, box *models.BBox) {
		b.WriteString(s)
		for range len(s) {
			boxes = append(boxes, box)
		}
	}

	for i, row := range rows {
		if i > 0 {
			write("\n", nil)
		}
		var prev *pdf.Text
		for j := range row.Content {
			t := row.Content[j]
			if t.S == "" {
				continue
			}
			if prev != nil && t.X-(prev.X+prev.W) > wordGapRatio*t.FontSize &&
				!strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(t.S, " ") {
				write(" ", nil)
			}
			write(t.S, &models.BBox{
				X0: t.X,
				Y0: height - t.Y - t.FontSize,
				X1: t.X + t.W,
				Y1: height - t.Y,
			})
			prev = &row.Content[j]
		}
	}

	return Page{Number: number, Text: b.String(), boxes: boxes}, nil
}

// pageHeight reads the MediaBox of the page, walking up inherited attributes.
func pageHeight(v pdf.Value) float64 {
	for depth := 0; depth < 8 && !v.IsNull(); depth++ {
		mb := v.Key("MediaBox")
		if mb.Len() == 4 {
			if h := mb.Index(3).Float64() - mb.Index(1).Float64(); h > 0 {
				return h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageHeight
}

// spanBox returns the union of the glyph boxes of text[start:end], nil when
// the page has no geometry for that range.
func (p Page) spanBox(start, end int) *models.BBox {
	if len(p.boxes) == 0 {
		return nil
	}
	end = min(end, len(p.boxes))
	var out *models.BBox
	for i := start; i < end; i++ {
		box := p.boxes[i]
		if box == nil {
			continue
		}
		if out == nil {
			b := *box
			out = &b
			continue
		}
		u := out.Union(*box)
		out = &u
	}
	return out
}
