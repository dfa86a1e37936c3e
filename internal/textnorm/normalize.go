// Package textnorm turns feed markup into plain text and builds the
// case-folded text the matcher searches.
package textnorm

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var cdataPattern = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

var folder = cases.Fold()

// blockElements get a space on either side so adjacent paragraphs do not
// run together once the tags are gone.
var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "ul": {}, "ol": {}, "h1": {}, "h2": {},
	"h3": {}, "h4": {}, "h5": {}, "h6": {}, "blockquote": {}, "tr": {}, "td": {},
	"th": {}, "table": {}, "section": {}, "article": {}, "figure": {}, "figcaption": {},
	"header": {}, "footer": {}, "hr": {}, "pre": {}, "img": {},
}

// Normalize strips CDATA wrappers and markup, decodes HTML entities and
// collapses whitespace. The strip/decode step runs to a fixed point, so
// doubly escaped input such as "&amp;nbsp;" ends up as a plain space and
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	current := raw
	// Every pass that changes the text consumes at least one tag or entity,
	// so len(raw)+1 passes always reach the fixed point.
	for i := 0; i <= len(raw); i++ {
		next := collapseSpace(stripOnce(current))
		if next == current {
			return next
		}
		current = next
	}
	return current
}

// Searchable normalizes each part, joins them with single spaces and
// case-folds the result.
func Searchable(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if text := Normalize(part); text != "" {
			cleaned = append(cleaned, text)
		}
	}
	return Fold(strings.Join(cleaned, " "))
}

// Fold applies NFKC and Unicode case folding so "ＮＥＴＦＬＩＸ" and
// "Netflix" compare equal.
func Fold(text string) string {
	return folder.String(norm.NFKC.String(text))
}

func stripOnce(raw string) string {
	unwrapped := cdataPattern.ReplaceAllString(raw, "$1")
	if !strings.ContainsAny(unwrapped, "<&") {
		return unwrapped
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(escapeStrayLess(unwrapped)))
	if err != nil {
		return unwrapped
	}
	var b strings.Builder
	for _, node := range doc.Selection.Nodes {
		writeText(&b, node)
	}
	return b.String()
}

// escapeStrayLess rewrites every "<" that cannot open a tag as "&lt;" so the
// parser keeps it as text. A tag opener is "<" followed by a letter, "/", "!"
// or "?" with a ">" before the next "<".
func escapeStrayLess(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '<' && !opensTag(text[i+1:]) {
			b.WriteString("&lt;")
			continue
		}
		b.WriteByte(text[i])
	}
	return b.String()
}

func opensTag(rest string) bool {
	if rest == "" {
		return false
	}
	c := rest[0]
	letter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	if !letter && c != '/' && c != '!' && c != '?' {
		return false
	}
	end := strings.IndexByte(rest, '>')
	if end < 0 {
		return false
	}
	next := strings.IndexByte(rest, '<')
	return next < 0 || next > end
}

func writeText(b *strings.Builder, node *html.Node) {
	switch node.Type {
	case html.TextNode:
		b.WriteString(node.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if node.Data == "script" || node.Data == "style" {
			return
		}
	}

	_, block := blockElements[node.Data]
	if block && node.Type == html.ElementNode {
		b.WriteByte(' ')
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeText(b, child)
	}
	if block && node.Type == html.ElementNode {
		b.WriteByte(' ')
	}
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
