package extraction

import (
	"strings"

	"github.com/pillchecker/pillchecker/extraction/entities"
	"github.com/pillchecker/pillchecker/logging"
	"golang.org/x/text/unicode/norm"
)

// Pipeline composes the extraction stages. It holds no mutable state and is
// safe for concurrent use.
type Pipeline struct {
	maxTitleLength int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxTitleLength overrides DefaultTitleMaxLength.
func WithMaxTitleLength(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxTitleLength = n
		}
	}
}

// NewPipeline creates a pipeline with the given options.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{maxTitleLength: DefaultTitleMaxLength}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultPipeline = NewPipeline()

// Process runs the default pipeline.
func Process(text string, ents []entities.LinkedEntity) entities.ExtractionResult {
	return defaultPipeline.Process(text, ents)
}

// Process derives the structured medication record for one scan. It never
// fails: a stage that finds nothing, or breaks, contributes an empty field.
func (p *Pipeline) Process(text string, ents []entities.LinkedEntity) entities.ExtractionResult {
	text = cleanText(text)

	normalized := guard("normalize", func() Normalized { return Normalize(ents) })
	if len(normalized.Unclassified) > 0 {
		logging.Debug("Ignoring entities without a recognized label", "names", normalized.Unclassified)
	}
	dosage := guard("dosage", func() string { return ExtractDosage(text) })
	title := guard("title", func() string {
		return SynthesizeTitle(text, normalized.Chemicals, dosage, p.maxTitleLength)
	})
	details := guard("prescription", func() entities.PrescriptionDetails {
		return ExtractPrescriptionDetails(text, normalized.Diseases, normalized.ConceptIDs)
	})

	if details.RelatedConditions == nil {
		details.RelatedConditions = []string{}
	}
	if details.ConceptIdentifiers == nil {
		details.ConceptIdentifiers = []string{}
	}

	return entities.ExtractionResult{
		Title:               title,
		ActiveIngredients:   strings.Join(normalized.Chemicals, ", "),
		Dosage:              dosage,
		PrescriptionDetails: details,
	}
}

// cleanText applies NFKC so OCR output such as full-width digits or ligatures
// matches the ASCII patterns, and squeezes whitespace runs.
func cleanText(text string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(text)), " ")
}
