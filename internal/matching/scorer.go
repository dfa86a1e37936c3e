package matching

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Scorer constants. The values are empirical; they are kept as named
// constants so they can be tuned together with Thresholds.
const (
	termLengthNorm     = 20.0
	keywordBoost       = 0.3
	shortTermRunes     = 5
	longArticleRunes   = 500
	shortTermPenalty   = 0.5
	confidenceDecimals = 100.0
)

// industryKeywords are looked up in the case-folded article text.
var industryKeywords = []string{
	"studio",
	"production",
	"film",
	"director",
	"producer",
	"executive",
	"greenlight",
	"casting",
	"screenplay",
	"netflix",
	"hbo",
	"disney",
	"warner",
	"paramount",
	"universal",
	"sony",
	"amazon",
	"apple tv",
	"hulu",
	"lionsgate",
	"a24",
}

// Score returns the confidence in [0, 1] that matchedTerm in articleText is a
// real mention. articleText must already be case-folded.
func Score(matchedTerm, articleText string) float64 {
	termLen := utf8.RuneCountInString(matchedTerm)
	score := math.Min(float64(termLen)/termLengthNorm, 1.0)

	if hasIndustryKeyword(articleText) {
		score = math.Min(score+keywordBoost, 1.0)
	}

	if termLen < shortTermRunes && utf8.RuneCountInString(articleText) > longArticleRunes {
		score *= shortTermPenalty
	}

	return roundConfidence(score)
}

func hasIndustryKeyword(text string) bool {
	for _, keyword := range industryKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func roundConfidence(value float64) float64 {
	rounded := math.Round(value*confidenceDecimals) / confidenceDecimals
	return math.Max(0, math.Min(rounded, 1))
}
