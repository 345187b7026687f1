package extraction

import "regexp"

const (
	amountPattern = `\d+(?:[.,]\d+)?`
	unitPattern   = `(?:(?:mcg|mg|ml|iu)\b|%)`

	// amountStart lets a dose follow letters ("Paracetamol500mg") but not
	// another number.
	amountStart = `(?:^|[^0-9.,/])`
)

// dosageRules are listed in precedence order: combination doses, then a
// plain amount with a unit, then a bare percentage.
var dosageRules = ruleSet{
	{
		name:    "combination",
		pattern: regexp.MustCompile(`(?i)` + amountStart + `(` + amountPattern + `\s*/\s*` + amountPattern + `\s*` + unitPattern + `)`),
		group:   1,
	},
	{
		name:    "amount",
		pattern: regexp.MustCompile(`(?i)` + amountStart + `(` + amountPattern + `\s*(?:mcg|mg|ml|iu)\b)`),
		group:   1,
	},
	{
		name:    "percentage",
		pattern: regexp.MustCompile(amountStart + `(` + amountPattern + `\s*%)`),
		group:   1,
	},
}

// ExtractDosage returns the first dosage-shaped substring of text, or ""
// when there is none. "Take 500/125mg twice daily" yields "500/125mg".
func ExtractDosage(text string) string {
	if m, ok := dosageRules.find(text); ok {
		return m.value
	}
	return ""
}
