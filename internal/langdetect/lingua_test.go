package langdetect

import "testing"

func TestFromTag(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"en-US":   "en",
		"EN_gb":   "en",
		"fr":      "fr",
		"pt-BR":   "pt",
		"":        "",
		"   ":     "",
		"not a!":  "",
		"zh-Hant": "zh",
	}
	for input, want := range cases {
		if got := FromTag(input); got != want {
			t.Fatalf("FromTag(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestLinguaDetectsEnglishHeadline(t *testing.T) {
	t.Parallel()

	detector := NewLingua()
	got := detector.DetectISO6391("Netflix greenlights a new limited series from the director of the acclaimed drama")
	if got != "en" {
		t.Fatalf("expected en, got %q", got)
	}
}

func TestLinguaSkipsShortText(t *testing.T) {
	t.Parallel()

	detector := NewLingua()
	if got := detector.DetectISO6391("A24"); got != "" {
		t.Fatalf("expected empty code for short text, got %q", got)
	}
}

type fixedDetector string

func (f fixedDetector) DetectISO6391(string) string { return string(f) }

func TestChainPrefersDeclaredTag(t *testing.T) {
	t.Parallel()

	chain := Chain{Detector: fixedDetector("de")}
	if got := chain.Resolve("en-US", "whatever"); got != "en" {
		t.Fatalf("expected declared tag to win, got %q", got)
	}
	if got := chain.Resolve("", "whatever"); got != "de" {
		t.Fatalf("expected detector fallback, got %q", got)
	}
	if got := (Chain{}).Resolve("", "text"); got != "" {
		t.Fatalf("expected empty without detector, got %q", got)
	}
}
