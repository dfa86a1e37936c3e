package extract

import (
	"encoding/xml"
	"strings"

	"github.com/mmcdole/gofeed"
)

// recoverItems salvages the complete <item> or <entry> blocks of a document
// gofeed rejected as a whole. Each block is re-parsed inside the document's
// own header so namespaces and feed language still apply. A block that is
// cut off or still unreadable comes back as an empty item, which is counted
// and then discarded. ok is false when no block could be read.
func recoverItems(doc string) (items []RawItem, ok bool) {
	tag := "item"
	start := findOpenTag(doc, tag, 0)
	if start < 0 {
		tag = "entry"
		start = findOpenTag(doc, tag, 0)
	}
	if start < 0 {
		return nil, false
	}

	header := doc[:start]
	closers := unclosedElements(header)
	closeTag := "</" + tag + ">"
	recovered := 0

	for pos := start; pos >= 0; pos = findOpenTag(doc, tag, pos) {
		end := strings.Index(doc[pos:], closeTag)
		if end < 0 {
			items = append(items, RawItem{})
			break
		}
		end += pos + len(closeTag)
		block := doc[pos:end]
		pos = end

		feed, err := gofeed.NewParser().ParseString(header + block + closers)
		if err != nil || len(feed.Items) == 0 || feed.Items[0] == nil {
			items = append(items, RawItem{})
			continue
		}
		items = append(items, fromGofeedItem(feed, feed.Items[0]))
		recovered++
	}
	return items, recovered > 0
}

// findOpenTag returns the offset of the next <name> or <name attr...> at or
// after from, or -1.
func findOpenTag(doc, name string, from int) int {
	open := "<" + name
	for from < len(doc) {
		idx := strings.Index(doc[from:], open)
		if idx < 0 {
			return -1
		}
		at := from + idx
		next := at + len(open)
		if next < len(doc) {
			switch doc[next] {
			case '>', '/', ' ', '\t', '\r', '\n':
				return at
			}
		}
		from = next
	}
	return -1
}

// unclosedElements returns the closing tags for every element still open at
// the end of header, innermost first.
func unclosedElements(header string) string {
	decoder := xml.NewDecoder(strings.NewReader(header))
	decoder.Strict = false

	var stack []string
	for {
		token, err := decoder.RawToken()
		if err != nil {
			break
		}
		switch el := token.(type) {
		case xml.StartElement:
			stack = append(stack, qualifiedName(el.Name))
		case xml.EndElement:
			name := qualifiedName(el.Name)
			if n := len(stack); n > 0 && stack[n-1] == name {
				stack = stack[:n-1]
			}
		}
	}

	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteString("</")
		b.WriteString(stack[i])
		b.WriteString(">")
	}
	return b.String()
}

func qualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}
