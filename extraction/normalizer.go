package extraction

import (
	"strings"

	"github.com/pillchecker/pillchecker/extraction/entities"
	"golang.org/x/text/cases"
)

type entityClass int

const (
	classUnknown entityClass = iota
	classChemical
	classDisease
)

// labelClasses maps a lowercased NER label to its group.
var labelClasses = map[string]entityClass{
	entities.LabelChemical: classChemical,
	entities.LabelDisease:  classDisease,
}

func classify(label string) entityClass {
	return labelClasses[strings.ToLower(strings.TrimSpace(label))]
}

// Normalized holds the deduplicated display names per group, in first-seen
// order and casing, plus the concept identifiers of every entity.
// Unclassified collects entities without a recognized label; Pipeline.Process
// logs it at debug level and does not use it to build the result.
type Normalized struct {
	Chemicals    []string
	Diseases     []string
	Unclassified []string
	ConceptIDs   []string
}

// foldSet tracks names already emitted, compared after Unicode case folding.
type foldSet struct {
	fold cases.Caser
	seen map[string]struct{}
}

func newFoldSet() *foldSet {
	return &foldSet{fold: cases.Fold(), seen: make(map[string]struct{})}
}

// add reports whether name was new.
func (s *foldSet) add(name string) bool {
	key := s.fold.String(name)
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Normalize classifies entities into chemicals and diseases and dedupes
// their display names case-insensitively.
func Normalize(ents []entities.LinkedEntity) Normalized {
	out := Normalized{
		Chemicals:    []string{},
		Diseases:     []string{},
		Unclassified: []string{},
		ConceptIDs:   []string{},
	}

	chemicals, diseases, unclassified := newFoldSet(), newFoldSet(), newFoldSet()
	conceptIDs := make(map[string]struct{})

	for _, ent := range ents {
		if c, ok := ent.PrimaryConcept(); ok {
			if id := strings.TrimSpace(c.ConceptID); id != "" {
				if _, dup := conceptIDs[id]; !dup {
					conceptIDs[id] = struct{}{}
					out.ConceptIDs = append(out.ConceptIDs, id)
				}
			}
		}

		name := ent.DisplayName()
		if name == "" {
			continue
		}

		switch classify(ent.Label) {
		case classChemical:
			if chemicals.add(name) {
				out.Chemicals = append(out.Chemicals, name)
			}
		case classDisease:
			if diseases.add(name) {
				out.Diseases = append(out.Diseases, name)
			}
		default:
			if unclassified.add(name) {
				out.Unclassified = append(out.Unclassified, name)
			}
		}
	}

	return out
}
