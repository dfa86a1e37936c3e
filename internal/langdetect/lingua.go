// Package langdetect assigns ISO 639-1 codes to article text.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
)

const minLetters = 12

// Detector returns an ISO 639-1 code for text, or "" when undecided.
type Detector interface {
	DetectISO6391(text string) string
}

// DefaultLanguages is the candidate set used when NewLingua gets fewer than two languages.
var DefaultLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Korean,
	lingua.Japanese,
	lingua.Chinese,
}

// Lingua is a Detector backed by lingua-go. Models load on first use.
type Lingua struct {
	languages []lingua.Language

	once     sync.Once
	detector lingua.LanguageDetector
}

func NewLingua(languages ...lingua.Language) *Lingua {
	if len(languages) < 2 {
		languages = DefaultLanguages
	}
	return &Lingua{languages: append([]lingua.Language(nil), languages...)}
}

func (l *Lingua) DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < minLetters {
		return ""
	}

	detected, exists := l.get().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(detected.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func (l *Lingua) get() lingua.LanguageDetector {
	l.once.Do(func() {
		l.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(l.languages...).
			Build()
	})
	return l.detector
}

// FromTag returns the primary ISO 639-1 subtag of a BCP 47 tag such as a
// feed's declared language ("en-US" -> "en"), or "" when unparseable.
func FromTag(raw string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(raw, "_", "-"))
	if trimmed == "" {
		return ""
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	code := base.String()
	if len(code) != 2 {
		return ""
	}
	return code
}

// Chain tries the declared tag first and falls back to detection.
type Chain struct {
	Detector Detector
}

func (c Chain) Resolve(declaredTag, text string) string {
	if code := FromTag(declaredTag); code != "" {
		return code
	}
	if c.Detector == nil {
		return ""
	}
	return c.Detector.DetectISO6391(text)
}
