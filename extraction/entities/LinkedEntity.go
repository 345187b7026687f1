package entities

import "strings"

// Entity labels emitted by the NER service. Matching is case-insensitive.
const (
	LabelChemical = "chemical"
	LabelDisease  = "disease"
)

// Concept is one knowledge-base concept the linker attached to an entity.
type Concept struct {
	CanonicalName string   `json:"canonical_name,omitempty" yaml:"canonical_name,omitempty"`
	ConceptID     string   `json:"concept_id,omitempty" yaml:"concept_id,omitempty"`
	Definition    string   `json:"definition,omitempty" yaml:"definition,omitempty"`
	Aliases       []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// LinkedEntity is a recognized span of OCR text with its medical grounding.
// LinkedConcepts keeps the linker's ordering; it may be empty.
type LinkedEntity struct {
	Text           string    `json:"text" yaml:"text" validate:"required"`
	Label          string    `json:"label,omitempty" yaml:"label,omitempty"`
	LinkedConcepts []Concept `json:"linked_concepts,omitempty" yaml:"linked_concepts,omitempty"`
}

// PrimaryConcept returns the first linked concept, if any.
func (e LinkedEntity) PrimaryConcept() (Concept, bool) {
	if len(e.LinkedConcepts) == 0 {
		return Concept{}, false
	}
	return e.LinkedConcepts[0], true
}

// DisplayName prefers the primary concept's canonical name over the raw text.
func (e LinkedEntity) DisplayName() string {
	if c, ok := e.PrimaryConcept(); ok {
		if name := strings.TrimSpace(c.CanonicalName); name != "" {
			return name
		}
	}
	return strings.TrimSpace(e.Text)
}

// HasLabel reports whether the entity carries the given label, ignoring case.
func (e LinkedEntity) HasLabel(label string) bool {
	return strings.EqualFold(strings.TrimSpace(e.Label), label)
}
