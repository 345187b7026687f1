// Package extraction turns OCR text and linked medical entities into a
// structured medication record: title, active ingredients, dosage and
// prescription details. Every function in this package is pure and total.
package extraction

import (
	"regexp"
	"strings"

	"github.com/pillchecker/pillchecker/logging"
)

// rule is one entry of a precedence-ordered pattern table.
// group selects the submatch returned (0 is the whole match). reject, when
// set, skips a candidate match and lets the scan continue to the next one;
// notAfter does the same when it matches the text just before the candidate.
type rule struct {
	name     string
	pattern  *regexp.Regexp
	group    int
	reject   func(value string) bool
	notAfter *regexp.Regexp
}

type ruleMatch struct {
	rule  string
	value string
	start int
}

// ruleSet picks the leftmost match across all of its rules. When two rules
// match at the same offset the one listed first wins.
type ruleSet []rule

func (rs ruleSet) find(text string) (ruleMatch, bool) {
	best := ruleMatch{start: -1}
	for _, r := range rs {
		m, ok := r.first(text)
		if !ok {
			continue
		}
		if best.start >= 0 && m.start >= best.start {
			continue
		}
		best = m
	}
	return best, best.start >= 0
}

func (r rule) first(text string) (ruleMatch, bool) {
	for _, loc := range r.pattern.FindAllStringSubmatchIndex(text, -1) {
		g := 2 * r.group
		if g+1 >= len(loc) || loc[g] < 0 {
			continue
		}
		value := strings.TrimSpace(text[loc[g]:loc[g+1]])
		if value == "" || (r.reject != nil && r.reject(value)) {
			continue
		}
		if r.notAfter != nil && r.notAfter.MatchString(text[:loc[g]]) {
			continue
		}
		return ruleMatch{rule: r.name, value: value, start: loc[g]}, true
	}
	return ruleMatch{}, false
}

// firstOf returns the first hit from the given sets, tried in order.
func firstOf(text string, sets ...ruleSet) (ruleMatch, bool) {
	for _, rs := range sets {
		if m, ok := rs.find(text); ok {
			return m, true
		}
	}
	return ruleMatch{}, false
}

// collapseSpaces lowercases a phrase and squeezes whitespace runs.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// guard runs one extraction stage, turning a panic into T's zero value.
func guard[T any](stage string, fn func() T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Extraction stage failed, treating as no match", "stage", stage, "panic", r)
			var zero T
			out = zero
		}
	}()
	return fn()
}
