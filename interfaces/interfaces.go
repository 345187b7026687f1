// Package interfaces defines the contracts between the PillChecker packages
// so that OCR, NER, storage and persistence can be swapped in tests.
package interfaces

import (
	"context"

	"github.com/pillchecker/pillchecker/extraction/entities"
)

// UploadRequest is one label image submitted for a profile.
type UploadRequest struct {
	ProfileID   string
	Filename    string
	ContentType string
	Content     []byte
}

// Extractor turns OCR text and linked entities into a structured result.
type Extractor interface {
	Process(text string, ents []entities.LinkedEntity) entities.ExtractionResult
}

// EntityLinker is the remote biomedical NER and entity-linking service.
type EntityLinker interface {
	ExtractEntities(ctx context.Context, text string) ([]entities.LinkedEntity, error)
	Ping(ctx context.Context) error
}

// TextRecognizer extracts text from an image.
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// FileStorage stores uploaded scans and returns their public URL.
type FileStorage interface {
	Upload(ctx context.Context, content []byte, relPath, contentType string) (string, error)
	Download(ctx context.Context, relPath string) ([]byte, error)
	Delete(ctx context.Context, relPath string) error
	// RelPath maps a public URL returned by Upload back to its relative path.
	RelPath(publicURL string) (string, bool)
}

// MedicationStore persists medication records. Every lookup is scoped to a
// profile; a record of another profile behaves as missing.
type MedicationStore interface {
	Create(ctx context.Context, m *entities.Medication) error
	Get(ctx context.Context, profileID, id string) (entities.Medication, error)
	List(ctx context.Context, profileID string, page, size int) ([]entities.Medication, int, error)
	Recent(ctx context.Context, profileID string, limit int) ([]entities.Medication, error)
	Delete(ctx context.Context, profileID, id string) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// ScanProcessor runs the upload workflow for one image and removes scans
// together with their stored image.
type ScanProcessor interface {
	Process(ctx context.Context, req UploadRequest) (*entities.Medication, error)
	Remove(ctx context.Context, profileID, id string) error
}

// Scheduler defines the contract for background jobs.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker reports service health for the /health endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (status string, details map[string]any, httpStatus int)
}

// DataValidator validates user input at the HTTP boundary.
type DataValidator interface {
	// ValidateProfileID returns the canonical form of a profile UUID.
	ValidateProfileID(input string) (string, error)

	// ValidateMedicationID returns the canonical form of a medication UUID.
	ValidateMedicationID(input string) (string, error)

	// ValidateUpload checks an uploaded image's name, type and size.
	ValidateUpload(filename, contentType string, size int64) error

	// DetectImageType sniffs the uploaded bytes and returns the image MIME type.
	DetectImageType(content []byte) (string, error)

	// ValidatePagination parses page and size query values.
	ValidatePagination(page, size string) (int, int, error)

	// ValidateLimit parses the recent-items limit query value.
	ValidateLimit(limit string) (int, error)

	// ValidateExtractRequest checks the stateless extraction body.
	ValidateExtractRequest(req *entities.ExtractRequest) error
}
