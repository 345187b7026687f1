package entities

import "time"

// Medication is one persisted scan of a medication label for a profile.
type Medication struct {
	ID                  string              `json:"id" yaml:"id"`
	ProfileID           string              `json:"profile_id" yaml:"profile_id"`
	ScanURL             string              `json:"scan_url" yaml:"scan_url"`
	ScannedText         string              `json:"scanned_text" yaml:"scanned_text"`
	Title               string              `json:"title,omitempty" yaml:"title,omitempty"`
	ActiveIngredients   string              `json:"active_ingredients" yaml:"active_ingredients"`
	Dosage              string              `json:"dosage,omitempty" yaml:"dosage,omitempty"`
	PrescriptionDetails PrescriptionDetails `json:"prescription_details" yaml:"prescription_details"`
	ScanDate            time.Time           `json:"scan_date" yaml:"scan_date"`
}

// ApplyExtraction copies the structured fields of an extraction result.
func (m *Medication) ApplyExtraction(r ExtractionResult) {
	m.Title = r.Title
	m.ActiveIngredients = r.ActiveIngredients
	m.Dosage = r.Dosage
	m.PrescriptionDetails = r.PrescriptionDetails
}

// MedicationPage is one page of a profile's medications.
type MedicationPage struct {
	Items []Medication `json:"items"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Size  int          `json:"size"`
	Pages int          `json:"pages"`
}

// NewMedicationPage computes the page count for total items split by size.
func NewMedicationPage(items []Medication, total, page, size int) MedicationPage {
	if items == nil {
		items = []Medication{}
	}
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return MedicationPage{Items: items, Total: total, Page: page, Size: size, Pages: pages}
}
