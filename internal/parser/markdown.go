package parser

import (
	"regexp"
	"strings"

	"document-qa/internal/models"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	headerRe = regexp.MustCompile(models.HeaderRegex)
)

// ImageRefs returns the destinations of the markdown images in content, in
// order of appearance and without duplicates.
func ImageRefs(content string) []string {
	if !strings.Contains(content, "![") {
		return nil
	}

	src := []byte(content)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var refs []string
	seen := map[string]bool{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			dest := strings.TrimSpace(string(img.Destination))
			if dest != "" && !seen[dest] {
				seen[dest] = true
				refs = append(refs, dest)
			}
		}
		return ast.WalkContinue, nil
	})
	return refs
}

// DisplayText strips leading markdown headers from chunk text,
// e.g. "# **Title** ## Subtitle" -> "Subtitle".
func DisplayText(content string) string {
	s := strings.TrimSpace(content)
	s = headerRe.ReplaceAllString(s, "")
	s = strings.TrimLeft(s, " \t")
	s = strings.TrimLeft(s, "#")
	return strings.TrimSpace(s)
}
