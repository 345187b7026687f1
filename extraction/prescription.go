package extraction

import (
	"regexp"

	"github.com/pillchecker/pillchecker/extraction/entities"
)

var frequencyRules = ruleSet{
	{name: "word-per-day", pattern: regexp.MustCompile(`(?i)\b(?:once|twice|thrice|three\s+times|four\s+times)\s+(?:daily|a\s+day|per\s+day|every\s+day)\b`)},
	{name: "count-per-day", pattern: regexp.MustCompile(`(?i)\b\d+\s*(?:x|times?)\s*(?:daily|a\s+day|per\s+day|every\s+day)\b`)},
	{name: "every-hours", pattern: regexp.MustCompile(`(?i)\bevery\s+\d+(?:\s*(?:-|to)\s*\d+)?\s*(?:hours?|hrs?|h)\b`)},
	{name: "weekly", pattern: regexp.MustCompile(`(?i)\b(?:once|twice)\s+(?:weekly|a\s+week|per\s+week)\b`)},
	{name: "every-other-day", pattern: regexp.MustCompile(`(?i)\bevery\s+other\s+day\b`)},
	{name: "as-needed", pattern: regexp.MustCompile(`(?i)\bas\s+needed\b`)},
	{name: "daily", pattern: regexp.MustCompile(`(?i)\bdaily\b`)},
}

var timingRules = ruleSet{
	{name: "morning", pattern: regexp.MustCompile(`(?i)\bmorning\b`)},
	{name: "evening", pattern: regexp.MustCompile(`(?i)\bevening\b`)},
	{name: "bedtime", pattern: regexp.MustCompile(`(?i)\bbed\s*time\b`)},
	{name: "night", pattern: regexp.MustCompile(`(?i)\bnight\b`)},
	{name: "meals", pattern: regexp.MustCompile(`(?i)\b(?:with|before|after)\s+(?:food|meals?|breakfast|lunch|dinner)\b`)},
	{name: "empty-stomach", pattern: regexp.MustCompile(`(?i)\bon\s+an\s+empty\s+stomach\b`)},
	{name: "noon", pattern: regexp.MustCompile(`(?i)\b(?:noon|midday)\b`)},
}

const (
	expiryPrefix = `(?i)\b(?:exp(?:iry|ir(?:es?|ation))?(?:\s+date)?|use\s+(?:by|before)|best\s+before)\.?[\s:.\-]*`
	monthNames   = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?`

	dateDayMonthYear = `\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}`
	dateISO          = `\d{4}[/.\-]\d{1,2}[/.\-]\d{1,2}`
	dateYearMonth    = `\d{4}[/\-]\d{1,2}`
	dateMonthYear    = `(?:0?[1-9]|1[0-2])[/\-]\d{4}`
	dateMonthShort   = `(?:0?[1-9]|1[0-2])[/\-]\d{2}`
	dateMonthName    = monthNames + `\s*\d{4}`
)

// expiryLabelledRules match a date introduced by an expiry keyword; they
// take priority over any bare date on the label.
var expiryLabelledRules = ruleSet{
	{name: "labelled-dmy", pattern: regexp.MustCompile(expiryPrefix + `(` + dateDayMonthYear + `)\b`), group: 1},
	{name: "labelled-iso", pattern: regexp.MustCompile(expiryPrefix + `(` + dateISO + `)\b`), group: 1},
	{name: "labelled-ym", pattern: regexp.MustCompile(expiryPrefix + `(` + dateYearMonth + `)\b`), group: 1},
	{name: "labelled-my", pattern: regexp.MustCompile(expiryPrefix + `(` + dateMonthYear + `)\b`), group: 1},
	{name: "labelled-my-short", pattern: regexp.MustCompile(expiryPrefix + `(` + dateMonthShort + `)\b`), group: 1},
	{name: "labelled-month-name", pattern: regexp.MustCompile(expiryPrefix + `(` + dateMonthName + `)\b`), group: 1},
}

// notExpiryPrefix matches the end of text introducing a manufacture date or
// a lot number, so the date after it is not taken as the expiry.
var notExpiryPrefix = regexp.MustCompile(`(?i)\b(?:mfg|mfd|mfr|manufactured(?:\s+on)?|manufacturing|lot|batch)\.?` +
	`(?:\s*(?:date|no|number))?\.?[\s:.\-#]*$`)

// expiryBareRules are the fallback for a date with no expiry keyword.
var expiryBareRules = ruleSet{
	{name: "month-year", pattern: regexp.MustCompile(`\b` + dateMonthYear + `\b`), notAfter: notExpiryPrefix},
	{name: "iso", pattern: regexp.MustCompile(`\b` + dateISO + `\b`), notAfter: notExpiryPrefix},
	{name: "month-name", pattern: regexp.MustCompile(`(?i)\b` + dateMonthName + `\b`), notAfter: notExpiryPrefix},
}

// ExtractFrequency returns the first dosing-frequency phrase, lowercased.
func ExtractFrequency(text string) string {
	if m, ok := frequencyRules.find(text); ok {
		return collapseSpaces(m.value)
	}
	return ""
}

// ExtractTiming returns the first time-of-day or meal phrase, lowercased.
func ExtractTiming(text string) string {
	if m, ok := timingRules.find(text); ok {
		return collapseSpaces(m.value)
	}
	return ""
}

// ExtractExpiryDate returns the expiry date as printed on the label.
func ExtractExpiryDate(text string) string {
	if m, ok := firstOf(text, expiryLabelledRules, expiryBareRules); ok {
		return m.value
	}
	return ""
}

// ExtractPrescriptionDetails scans text for frequency, timing and expiry and
// attaches the already-normalized disease names and concept identifiers.
func ExtractPrescriptionDetails(text string, diseases, conceptIDs []string) entities.PrescriptionDetails {
	return entities.PrescriptionDetails{
		Frequency:          ExtractFrequency(text),
		Timing:             ExtractTiming(text),
		ExpiryDate:         ExtractExpiryDate(text),
		RelatedConditions:  append([]string{}, diseases...),
		ConceptIdentifiers: append([]string{}, conceptIDs...),
	}
}
