// Package htmltext strips markup from HTML documents.
package htmltext

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// invisible elements whose text never reaches the rendered page.
var invisible = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
}

// Visible returns the document's human-visible text: every non-blank text
// node, trimmed, on its own line. Script, style, noscript and template
// contents are dropped.
func Visible(document string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var lines []string
	for _, n := range doc.Nodes {
		lines = appendText(lines, n)
	}
	return strings.Join(lines, "\n"), nil
}

func appendText(lines []string, n *html.Node) []string {
	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			lines = append(lines, text)
		}
		return lines
	case html.ElementNode:
		if _, skip := invisible[n.Data]; skip {
			return lines
		}
	case html.CommentNode, html.DoctypeNode:
		return lines
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		lines = appendText(lines, c)
	}
	return lines
}

// Raw returns every text node of the document concatenated as-is, including
// script and style contents and all original whitespace.
func Raw(document string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return doc.Text(), nil
}
