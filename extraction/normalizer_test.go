package extraction

import (
	"testing"

	"github.com/pillchecker/pillchecker/extraction/entities"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmpty(t *testing.T) {
	n := Normalize(nil)

	assert.Empty(t, n.Chemicals)
	assert.Empty(t, n.Diseases)
	assert.Empty(t, n.ConceptIDs)
	assert.NotNil(t, n.Chemicals)
	assert.NotNil(t, n.Diseases)
	assert.NotNil(t, n.ConceptIDs)
}

func TestNormalizePrefersCanonicalName(t *testing.T) {
	n := Normalize([]entities.LinkedEntity{
		{
			Text:  "Advil",
			Label: "CHEMICAL",
			LinkedConcepts: []entities.Concept{
				{CanonicalName: "Ibuprofen", ConceptID: "C0020740", Aliases: []string{"Advil", "Motrin"}},
				{CanonicalName: "Ibuprofen sodium"},
			},
		},
		{Text: "Paracetamol", Label: "chemical", LinkedConcepts: []entities.Concept{{CanonicalName: ""}}},
	})

	assert.Equal(t, []string{"Ibuprofen", "Paracetamol"}, n.Chemicals)
	assert.Equal(t, []string{"C0020740"}, n.ConceptIDs)
}

func TestNormalizeDedupesCaseInsensitively(t *testing.T) {
	n := Normalize([]entities.LinkedEntity{
		{Text: "Ibuprofen", Label: "chemical"},
		{Text: "ibuprofen", Label: "chemical"},
		{Text: "IBUPROFEN", Label: "Chemical"},
		{Text: "Codeine", Label: "chemical"},
		{Text: "Headache", Label: "disease"},
		{Text: "headache", Label: "DISEASE"},
	})

	assert.Equal(t, []string{"Ibuprofen", "Codeine"}, n.Chemicals)
	assert.Equal(t, []string{"Headache"}, n.Diseases)
}

func TestNormalizeDedupesWithUnicodeFolding(t *testing.T) {
	n := Normalize([]entities.LinkedEntity{
		{Text: "Épinéphrine", Label: "chemical"},
		{Text: "ÉPINÉPHRINE", Label: "chemical"},
	})

	assert.Equal(t, []string{"Épinéphrine"}, n.Chemicals)
}

func TestNormalizeUnlabeledEntitiesAreNotClassified(t *testing.T) {
	n := Normalize([]entities.LinkedEntity{
		{Text: "tablets"},
		{Text: "Aspirin", Label: "ENTITY", LinkedConcepts: []entities.Concept{{CanonicalName: "Aspirin", ConceptID: "C0004057"}}},
	})

	assert.Empty(t, n.Chemicals)
	assert.Empty(t, n.Diseases)
	assert.Equal(t, []string{"tablets", "Aspirin"}, n.Unclassified)
	assert.Equal(t, []string{"C0004057"}, n.ConceptIDs)
}

func TestNormalizeConceptIDsKeepOrderWithoutDuplicates(t *testing.T) {
	n := Normalize([]entities.LinkedEntity{
		{Text: "Pain", Label: "disease", LinkedConcepts: []entities.Concept{{CanonicalName: "Pain", ConceptID: "C0030193"}}},
		{Text: "Ibuprofen", Label: "chemical", LinkedConcepts: []entities.Concept{{CanonicalName: "Ibuprofen", ConceptID: "C0020740"}}},
		{Text: "pain", Label: "disease", LinkedConcepts: []entities.Concept{{CanonicalName: "Pain", ConceptID: "C0030193"}}},
		{Text: "Fever", Label: "disease", LinkedConcepts: []entities.Concept{{CanonicalName: "Fever", ConceptID: "  "}}},
	})

	assert.Equal(t, []string{"C0030193", "C0020740"}, n.ConceptIDs)
	assert.Equal(t, []string{"Pain", "Fever"}, n.Diseases)
}

func TestNormalizeSkipsBlankNames(t *testing.T) {
	n := Normalize([]entities.LinkedEntity{{Text: "   ", Label: "chemical"}})

	assert.Empty(t, n.Chemicals)
}
