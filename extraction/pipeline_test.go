package extraction

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/pillchecker/pillchecker/extraction/entities"
	"github.com/pillchecker/pillchecker/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessBuildsTitleFromCanonicalName(t *testing.T) {
	result := Process("Advil 200mg tablets", []entities.LinkedEntity{
		{Text: "Advil", Label: "chemical", LinkedConcepts: []entities.Concept{{CanonicalName: "Ibuprofen"}}},
	})

	assert.Equal(t, "Ibuprofen 200mg", result.Title)
	assert.Equal(t, "Ibuprofen", result.ActiveIngredients)
	assert.Equal(t, "200mg", result.Dosage)
}

func TestProcessPrescriptionDetails(t *testing.T) {
	result := Process("Take twice daily in the morning. Exp: 12/2025", []entities.LinkedEntity{
		{Text: "Pain", Label: "disease", LinkedConcepts: []entities.Concept{{CanonicalName: "Pain", ConceptID: "C0030193"}}},
	})

	assert.Equal(t, entities.PrescriptionDetails{
		Frequency:          "twice daily",
		Timing:             "morning",
		ExpiryDate:         "12/2025",
		RelatedConditions:  []string{"Pain"},
		ConceptIdentifiers: []string{"C0030193"},
	}, result.PrescriptionDetails)
}

func TestProcessEmptyInput(t *testing.T) {
	result := Process("", nil)

	assert.Empty(t, result.Title)
	assert.Equal(t, "", result.ActiveIngredients)
	assert.Empty(t, result.Dosage)
	assert.True(t, result.PrescriptionDetails.IsEmpty())
	assert.NotNil(t, result.PrescriptionDetails.RelatedConditions)
	assert.NotNil(t, result.PrescriptionDetails.ConceptIdentifiers)
}

func TestProcessNoMatch(t *testing.T) {
	result := Process("random unrelated sentence", []entities.LinkedEntity{})

	assert.Empty(t, result.Dosage)
	assert.Empty(t, result.ActiveIngredients)
	assert.True(t, result.PrescriptionDetails.IsEmpty())
	assert.Equal(t, "random unrelated sentence", result.Title)
}

func TestProcessDedupesActiveIngredients(t *testing.T) {
	result := Process("Ibuprofen and ibuprofen with codeine", []entities.LinkedEntity{
		{Text: "Ibuprofen", Label: "chemical"},
		{Text: "ibuprofen", Label: "chemical"},
		{Text: "codeine", Label: "chemical"},
	})

	assert.Equal(t, "Ibuprofen, codeine", result.ActiveIngredients)
}

func TestProcessCombinationDosage(t *testing.T) {
	result := Process("Take 500/125mg twice daily", nil)

	assert.Equal(t, "500/125mg", result.Dosage)
	assert.Equal(t, "twice daily", result.PrescriptionDetails.Frequency)
}

func TestProcessDoseGluedToName(t *testing.T) {
	result := Process("PARACETAMOL500MG TABLETS", nil)

	assert.Equal(t, "500MG", result.Dosage)
	assert.Equal(t, "PARACETAMOL 500MG", result.Title)
}

func TestProcessLogsUnlabeledEntities(t *testing.T) {
	var buf bytes.Buffer
	logging.InitLogger(logging.Options{Level: "debug", Console: &buf})
	t.Cleanup(func() {
		logging.InitLogger(logging.Options{Level: "info", Console: os.Stderr})
	})

	result := Process("Aspirin 75mg", []entities.LinkedEntity{{Text: "Aspirin"}})

	assert.Empty(t, result.ActiveIngredients)
	assert.Contains(t, buf.String(), "Ignoring entities without a recognized label")
	assert.Contains(t, buf.String(), "Aspirin")
}

func TestProcessNormalizesFullWidthText(t *testing.T) {
	result := Process("Paracetamol ５００ｍｇ\n\ntablets", nil)

	assert.Equal(t, "500mg", result.Dosage)
	assert.Equal(t, "Paracetamol 500mg", result.Title)
}

func TestProcessIsDeterministic(t *testing.T) {
	text := "Amoxicillin 500mg capsules. Take 3 times daily with food. EXP 08/2026"
	ents := []entities.LinkedEntity{
		{Text: "Amoxicillin", Label: "chemical", LinkedConcepts: []entities.Concept{{CanonicalName: "Amoxicillin", ConceptID: "C0002645"}}},
		{Text: "infection", Label: "disease"},
	}

	first := Process(text, ents)
	second := Process(text, ents)

	assert.Equal(t, first, second)
}

func TestProcessConcurrentCallsAreIndependent(t *testing.T) {
	p := NewPipeline(WithMaxTitleLength(50))
	ents := []entities.LinkedEntity{{Text: "Metformin", Label: "chemical"}}
	want := p.Process("Metformin 850mg twice daily", ents)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, p.Process("Metformin 850mg twice daily", ents))
		}()
	}
	wg.Wait()
}

func TestPipelineMaxTitleLength(t *testing.T) {
	p := NewPipeline(WithMaxTitleLength(9))
	result := p.Process("Vitamin C 1000mg", []entities.LinkedEntity{{Text: "Vitamin C", Label: "chemical"}})

	assert.Equal(t, "Vitamin C", result.Title)
}

func TestGuardRecoversFromPanic(t *testing.T) {
	got := guard("broken", func() string { panic("boom") })

	require.Equal(t, "", got)
}
