// File: internal/browser/snapshot/text.go
package snapshot

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blockTags start and end a line when rendered.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true, "li": true,
	"main": true, "nav": true, "ol": true, "p": true, "section": true, "table": true,
	"tr": true, "ul": true,
}

// hiddenTags never contribute text.
var hiddenTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "head": true,
}

// RenderText approximates innerText: block elements break lines, runs of
// whitespace collapse, and blank lines are dropped.
func RenderText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		walk(n, &b)
	}

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func walk(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if hiddenTags[n.Data] {
			return
		}
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, b)
	}
	if block {
		b.WriteByte('\n')
	}
}
