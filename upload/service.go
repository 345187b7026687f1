// Package upload runs the medication scan workflow: store the image,
// recognize its text, link medical entities, structure the result and
// persist it.
package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pillchecker/pillchecker/extraction/entities"
	"github.com/pillchecker/pillchecker/interfaces"
	"github.com/pillchecker/pillchecker/logging"
	"github.com/pillchecker/pillchecker/metrics"
	"github.com/pillchecker/pillchecker/storage"
)

var _ interfaces.ScanProcessor = (*Service)(nil)

// ErrRecognitionFailed is returned when no text could be read from the image.
var ErrRecognitionFailed = errors.New("text recognition failed")

// Service wires the workflow's collaborators. The entity linker is optional.
type Service struct {
	files     interfaces.FileStorage
	ocr       interfaces.TextRecognizer
	linker    interfaces.EntityLinker
	extractor interfaces.Extractor
	store     interfaces.MedicationStore
	now       func() time.Time
}

// NewService creates the workflow. Pass a nil linker to run without NER.
func NewService(
	files interfaces.FileStorage,
	ocr interfaces.TextRecognizer,
	linker interfaces.EntityLinker,
	extractor interfaces.Extractor,
	store interfaces.MedicationStore,
) *Service {
	return &Service{
		files:     files,
		ocr:       ocr,
		linker:    linker,
		extractor: extractor,
		store:     store,
		now:       time.Now,
	}
}

// Analysis is the outcome of reading one image without persisting it.
type Analysis struct {
	Text     string                    `json:"scanned_text" yaml:"scanned_text"`
	Entities []entities.LinkedEntity   `json:"entities" yaml:"entities"`
	Result   entities.ExtractionResult `json:"result" yaml:"result"`
}

// Analyze recognizes text in image, links entities when a linker is
// configured and runs the extraction pipeline. Entity-linking failures are
// logged and the pipeline runs without entities.
func (s *Service) Analyze(ctx context.Context, image []byte) (*Analysis, error) {
	text, err := s.ocr.Recognize(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}
	logging.Info("OCR extracted text", "length", len(text))

	ents := s.linkEntities(ctx, text)
	result := s.extractor.Process(text, ents)
	recordExtraction(result)

	return &Analysis{Text: text, Entities: ents, Result: result}, nil
}

func (s *Service) linkEntities(ctx context.Context, text string) []entities.LinkedEntity {
	if s.linker == nil {
		metrics.NERRequestsTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		logging.Warn("Entity linking disabled, continuing without entities")
		return []entities.LinkedEntity{}
	}

	ents, err := s.linker.ExtractEntities(ctx, text)
	if err != nil {
		logging.Warn("Entity extraction failed, continuing without entities", "error", err)
		return []entities.LinkedEntity{}
	}
	logging.Info("Entity linker extracted entities", "count", len(ents))
	return ents
}

// Process stores the uploaded image, analyzes it and persists the resulting
// medication. The stored image is removed again if a later step fails.
func (s *Service) Process(ctx context.Context, req interfaces.UploadRequest) (*entities.Medication, error) {
	med, err := s.process(ctx, req)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.UploadsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return med, nil
}

func (s *Service) process(ctx context.Context, req interfaces.UploadRequest) (*entities.Medication, error) {
	relPath := storage.ScanPath(req.ProfileID, req.Filename)
	logging.Info("Processing medication image", "profile_id", req.ProfileID, "path", relPath)

	url, err := s.files.Upload(ctx, req.Content, relPath, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("storing image: %w", err)
	}

	analysis, err := s.Analyze(ctx, req.Content)
	if err != nil {
		s.discard(relPath)
		return nil, err
	}

	med := &entities.Medication{
		ProfileID:   req.ProfileID,
		ScanURL:     url,
		ScannedText: analysis.Text,
		ScanDate:    s.now(),
	}
	med.ApplyExtraction(analysis.Result)

	if err := s.store.Create(ctx, med); err != nil {
		s.discard(relPath)
		return nil, fmt.Errorf("saving medication: %w", err)
	}

	logging.Info("Created medication record",
		"id", med.ID, "title", med.Title, "ingredients", med.ActiveIngredients, "dosage", med.Dosage)
	return med, nil
}

// discard removes an image whose scan could not be completed.
func (s *Service) discard(relPath string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.files.Delete(ctx, relPath); err != nil {
		logging.Warn("Failed to remove stored image after failed upload", "path", relPath, "error", err)
	}
}

// Remove deletes the profile's medication and its stored image. A missing
// image does not fail the call once the record is gone.
func (s *Service) Remove(ctx context.Context, profileID, id string) error {
	med, err := s.store.Get(ctx, profileID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, profileID, id); err != nil {
		return err
	}

	if relPath, ok := s.files.RelPath(med.ScanURL); ok {
		if err := s.files.Delete(ctx, relPath); err != nil && !errors.Is(err, storage.ErrNotFound) {
			logging.Warn("Failed to remove stored image", "path", relPath, "error", err)
		}
	}
	logging.Info("Deleted medication record", "id", id, "profile_id", profileID)
	return nil
}

func recordExtraction(r entities.ExtractionResult) {
	d := r.PrescriptionDetails
	metrics.RecordExtraction(
		r.Title != "",
		r.ActiveIngredients != "",
		r.Dosage != "",
		d.Frequency != "",
		d.Timing != "",
		d.ExpiryDate != "",
	)
}
