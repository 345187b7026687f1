package extraction

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// DefaultTitleMaxLength bounds synthesized titles, in characters.
	DefaultTitleMaxLength = 200

	fallbackTitleWords = 3
)

// titleStopWords are capitalized label words that are never a drug name.
var titleStopWords = map[string]struct{}{
	"take": {}, "takes": {}, "each": {}, "tablet": {}, "tablets": {}, "capsule": {},
	"capsules": {}, "caps": {}, "tabs": {}, "contains": {}, "contain": {}, "dose": {},
	"dosage": {}, "daily": {}, "exp": {}, "expiry": {}, "lot": {}, "batch": {}, "per": {},
	"every": {}, "use": {}, "apply": {}, "strength": {}, "net": {}, "total": {},
	"only": {}, "for": {}, "with": {}, "adults": {}, "adult": {}, "children": {},
	"solution": {}, "syrup": {}, "cream": {}, "ointment": {}, "drops": {}, "injection": {},
}

func isTitleStopWord(word string) bool {
	_, ok := titleStopWords[strings.ToLower(word)]
	return ok
}

// drugNameRules find a drug-like name when the NER service returned no
// chemical: a capitalized word right before a dose, then a capitalized word
// with a common drug-name suffix.
var drugNameRules = ruleSet{
	{
		name: "name-before-dose",
		pattern: regexp.MustCompile(`\b([A-Z][A-Za-z]{2,}(?:-[A-Za-z]+)?)\s*` +
			amountPattern + `(?:\s*/\s*` + amountPattern + `)?\s*(?:(?i:mcg|mg|ml|iu)\b|%)`),
		group:  1,
		reject: isTitleStopWord,
	},
	{
		name: "drug-suffix",
		pattern: regexp.MustCompile(`\b[A-Z][a-z]{2,}(?:cillin|mycin|cycline|floxacin|profen|pril|sartan|olol|statin|` +
			`prazole|azole|dipine|tidine|formin|vir|mab|pam|lam|ine|ol|one|ide|in|il)\b`),
		reject: isTitleStopWord,
	},
}

// SynthesizeTitle builds a short display title. It prefers the first
// chemical name, then a drug-like word found in text, then the first few
// words of text; a dosage, when known, is appended to a name. The result is
// cut to maxLength characters on a word boundary (DefaultTitleMaxLength when
// maxLength <= 0). It returns "" only when both text and chemicals are empty.
func SynthesizeTitle(text string, chemicals []string, dosage string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultTitleMaxLength
	}

	if len(chemicals) > 0 && strings.TrimSpace(chemicals[0]) != "" {
		return truncateTitle(withDosage(chemicals[0], dosage), maxLength)
	}

	if m, ok := drugNameRules.find(text); ok {
		return truncateTitle(withDosage(m.value, dosage), maxLength)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	if len(words) > fallbackTitleWords {
		words = words[:fallbackTitleWords]
	}
	return truncateTitle(strings.Join(words, " "), maxLength)
}

func withDosage(name, dosage string) string {
	name = strings.TrimSpace(name)
	if dosage = strings.TrimSpace(dosage); dosage != "" {
		return name + " " + dosage
	}
	return name
}

// truncateTitle cuts title to max runes, backing up to the previous space
// when the cut would land inside a word.
func truncateTitle(title string, max int) string {
	runes := []rune(title)
	if len(runes) <= max {
		return title
	}

	cut := string(runes[:max])
	if !unicode.IsSpace(runes[max]) {
		if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRightFunc(cut, unicode.IsSpace)
}
