package matching

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"horse.fit/newslink/internal/db"
	"horse.fit/newslink/internal/textnorm"
)

// Priority classifies a contact search term.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityHigh
)

// term is one searchable form of an entity name.
type term struct {
	display   string
	folded    string
	priority  Priority
	matchType string
}

func newTerm(display string, priority Priority, matchType string) (term, bool) {
	display = textnorm.Normalize(display)
	if display == "" {
		return term{}, false
	}
	return term{
		display:   display,
		folded:    textnorm.Fold(display),
		priority:  priority,
		matchType: matchType,
	}, true
}

// contactTerms returns the search terms for a contact in priority order:
// full name and company name (high), then first and last name alone (low).
func contactTerms(contact db.Contact) []term {
	first := textnorm.Normalize(contact.FirstName)
	last := textnorm.Normalize(contact.LastName)

	terms := make([]term, 0, 4)
	add := func(display string, priority Priority, matchType string) {
		if t, ok := newTerm(display, priority, matchType); ok {
			terms = append(terms, t)
		}
	}

	if first != "" && last != "" {
		add(first+" "+last, PriorityHigh, db.MatchTypeName)
	}
	if contact.CompanyName != nil {
		add(*contact.CompanyName, PriorityHigh, db.MatchTypeCompany)
	}
	add(first, PriorityLow, db.MatchTypeName)
	if last != first {
		add(last, PriorityLow, db.MatchTypeName)
	}
	return terms
}

// industrySuffixes mark a name that already reads like a company name, so no
// "studios"/"entertainment"/"productions" variation is generated for it.
var industrySuffixes = []string{
	"studio",
	"studios",
	"entertainment",
	"production",
	"productions",
	"pictures",
	"films",
	"media",
	"television",
	"tv",
	"network",
	"networks",
	"group",
	"inc",
	"llc",
	"ltd",
	"corp",
	"co",
	"company",
}

var generatedSuffixes = []string{"studios", "entertainment", "productions"}

// stopwords never stand alone as a company or project term.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "of": {},
}

// nameVariations returns the company or project search terms. Names whose
// core (without a leading "the") is shorter than minRunes or is a stopword
// get no terms.
func nameVariations(name, matchType string, minRunes int) []term {
	base := textnorm.Normalize(name)
	if base == "" {
		return nil
	}

	candidates := []string{base}
	core := base
	if len(base) > 4 && strings.EqualFold(base[:4], "the ") {
		core = strings.TrimSpace(base[4:])
		candidates = append(candidates, core)
	}
	if utf8.RuneCountInString(core) < minRunes {
		return nil
	}
	if _, stop := stopwords[textnorm.Fold(core)]; stop {
		return nil
	}
	if !hasIndustrySuffix(core) {
		for _, suffix := range generatedSuffixes {
			candidates = append(candidates, core+" "+suffix)
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	terms := make([]term, 0, len(candidates))
	for _, candidate := range candidates {
		if utf8.RuneCountInString(candidate) < minRunes {
			continue
		}
		t, ok := newTerm(candidate, PriorityHigh, matchType)
		if !ok {
			continue
		}
		if _, dup := seen[t.folded]; dup {
			continue
		}
		seen[t.folded] = struct{}{}
		terms = append(terms, t)
	}
	return terms
}

func hasIndustrySuffix(name string) bool {
	words := strings.FieldsFunc(textnorm.Fold(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return false
	}
	last := words[len(words)-1]
	for _, suffix := range industrySuffixes {
		if last == suffix {
			return true
		}
	}
	return false
}

// containsWord reports whether needle occurs in haystack delimited by
// non-alphanumeric runes or the text edges. Both must be case-folded.
func containsWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	offset := 0
	for {
		idx := strings.Index(haystack[offset:], needle)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(needle)
		if isBoundaryBefore(haystack, start) && isBoundaryAfter(haystack, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(haystack[start:])
		offset = start + size
	}
}

func isBoundaryBefore(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return !isWordRune(r)
}

func isBoundaryAfter(text string, pos int) bool {
	if pos >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
