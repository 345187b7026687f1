package entities

// ExtractRequest is the body of a stateless extraction call: OCR text plus
// the entities the linker produced for it.
type ExtractRequest struct {
	Text     string         `json:"text" yaml:"text" validate:"required,max=100000"`
	Entities []LinkedEntity `json:"entities" yaml:"entities" validate:"max=1000,dive"`
}
