package nerclient

import (
	"strings"

	"github.com/pillchecker/pillchecker/extraction/entities"
	"github.com/pillchecker/pillchecker/logging"
)

// wireResponse is the service reply. Entities come in one of three shapes:
// nested linker output with "umls_entities", flat records carrying one
// concept's fields next to the span, or transformer output with "details".
type wireResponse struct {
	Entities []wireEntity `json:"entities"`
}

type wireEntity struct {
	Text  string `json:"text" validate:"required"`
	Label string `json:"label"`

	UMLSEntities   []wireConcept `json:"umls_entities"`
	LinkedConcepts []wireConcept `json:"linked_concepts"`

	CUI           string   `json:"cui"`
	ConceptID     string   `json:"concept_id"`
	CanonicalName string   `json:"canonical_name"`
	Definition    string   `json:"definition"`
	Aliases       []string `json:"aliases"`

	Details *wireDetails `json:"details"`
}

type wireConcept struct {
	CanonicalName string   `json:"canonical_name"`
	ConceptID     string   `json:"concept_id"`
	CUI           string   `json:"cui"`
	Definition    string   `json:"definition"`
	Aliases       []string `json:"aliases"`
}

type wireDetails struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Synonyms    []string `json:"synonyms"`
}

func (w wireConcept) toConcept() entities.Concept {
	id := w.ConceptID
	if id == "" {
		id = w.CUI
	}
	return entities.Concept{
		CanonicalName: w.CanonicalName,
		ConceptID:     id,
		Definition:    w.Definition,
		Aliases:       w.Aliases,
	}
}

func (w wireEntity) concepts() []entities.Concept {
	nested := w.UMLSEntities
	if len(nested) == 0 {
		nested = w.LinkedConcepts
	}
	if len(nested) > 0 {
		out := make([]entities.Concept, 0, len(nested))
		for _, c := range nested {
			out = append(out, c.toConcept())
		}
		return out
	}

	flat := wireConcept{
		CanonicalName: w.CanonicalName,
		ConceptID:     w.ConceptID,
		CUI:           w.CUI,
		Definition:    w.Definition,
		Aliases:       w.Aliases,
	}
	if flat.CanonicalName != "" || flat.ConceptID != "" || flat.CUI != "" {
		return []entities.Concept{flat.toConcept()}
	}

	if w.Details != nil && w.Details.Name != "" {
		return []entities.Concept{{
			CanonicalName: w.Details.Name,
			Definition:    w.Details.Description,
			Aliases:       w.Details.Synonyms,
		}}
	}
	return nil
}

// toLinkedEntities drops entries without usable text and keeps the order of
// the rest.
func (c *Client) toLinkedEntities(raw []wireEntity) []entities.LinkedEntity {
	out := make([]entities.LinkedEntity, 0, len(raw))
	for i, w := range raw {
		w.Text = strings.TrimSpace(w.Text)
		if err := c.validate.Struct(w); err != nil {
			logging.Warn("Dropping invalid entity from entity-linking response", "index", i, "error", err)
			continue
		}
		out = append(out, entities.LinkedEntity{
			Text:           w.Text,
			Label:          strings.ToLower(strings.TrimSpace(w.Label)),
			LinkedConcepts: w.concepts(),
		})
	}
	return out
}
