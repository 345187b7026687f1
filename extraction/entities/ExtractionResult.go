package entities

// PrescriptionDetails is the structured metadata pulled from a label.
// Empty strings mean the field was not found.
type PrescriptionDetails struct {
	Frequency          string   `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	Timing             string   `json:"timing,omitempty" yaml:"timing,omitempty"`
	ExpiryDate         string   `json:"expiry_date,omitempty" yaml:"expiry_date,omitempty"`
	RelatedConditions  []string `json:"related_conditions" yaml:"related_conditions"`
	ConceptIdentifiers []string `json:"concept_identifiers" yaml:"concept_identifiers"`
}

// IsEmpty reports whether no detail was found.
func (d PrescriptionDetails) IsEmpty() bool {
	return d.Frequency == "" && d.Timing == "" && d.ExpiryDate == "" &&
		len(d.RelatedConditions) == 0 && len(d.ConceptIdentifiers) == 0
}

// ExtractionResult is the structured view of one scanned medication.
// Title and Dosage are empty when absent.
type ExtractionResult struct {
	Title               string              `json:"title,omitempty" yaml:"title,omitempty"`
	ActiveIngredients   string              `json:"active_ingredients" yaml:"active_ingredients"`
	Dosage              string              `json:"dosage,omitempty" yaml:"dosage,omitempty"`
	PrescriptionDetails PrescriptionDetails `json:"prescription_details" yaml:"prescription_details"`
}
