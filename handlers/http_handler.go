package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"

	"github.com/pillchecker/pillchecker/data"
	"github.com/pillchecker/pillchecker/extraction/entities"
	"github.com/pillchecker/pillchecker/interfaces"
	"github.com/pillchecker/pillchecker/logging"
	"github.com/pillchecker/pillchecker/upload"
	"github.com/pillchecker/pillchecker/validation"
)

const (
	// UploadField is the multipart form field holding the label image.
	UploadField = "image"

	multipartMemory = 8 << 20
	maxExtractBody  = 1 << 20
)

// HTTPHandlerImpl serves the API endpoints with injected dependencies.
type HTTPHandlerImpl struct {
	store     interfaces.MedicationStore
	scans     interfaces.ScanProcessor
	extractor interfaces.Extractor
	validator interfaces.DataValidator
	health    interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(
	store interfaces.MedicationStore,
	scans interfaces.ScanProcessor,
	extractor interfaces.Extractor,
	validator interfaces.DataValidator,
	health interfaces.HealthChecker,
) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		store:     store,
		scans:     scans,
		extractor: extractor,
		validator: validator,
		health:    health,
	}
}

// UploadMedication stores and processes an uploaded label image.
func (h *HTTPHandlerImpl) UploadMedication(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RespondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		RespondWithError(w, http.StatusBadRequest, "expected a multipart form with an '"+UploadField+"' file")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "missing '"+UploadField+"' file")
		return
	}
	defer func() { _ = file.Close() }()

	if err := h.validator.ValidateUpload(header.Filename, header.Header.Get("Content-Type"), header.Size); err != nil {
		logging.Warn("Rejected upload", "filename", header.Filename, "error", err)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		logging.Error("Failed to read uploaded file", "error", err)
		RespondWithError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	contentType, err := h.validator.DetectImageType(content)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	med, err := h.scans.Process(r.Context(), interfaces.UploadRequest{
		ProfileID:   ProfileID(r.Context()),
		Filename:    header.Filename,
		ContentType: contentType,
		Content:     content,
	})
	switch {
	case err == nil:
		RespondWithJSON(w, http.StatusCreated, med)
	case errors.Is(err, upload.ErrRecognitionFailed):
		logging.Error("Failed to read text from image", "error", err)
		RespondWithError(w, http.StatusUnprocessableEntity, "could not read text from the image")
	default:
		logging.Error("Failed to process medication", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to process medication image. Please try again.")
	}
}

// ListMedications returns one page of the caller's medications.
func (h *HTTPHandlerImpl) ListMedications(w http.ResponseWriter, r *http.Request) {
	page, size, err := h.validator.ValidatePagination(r.URL.Query().Get("page"), r.URL.Query().Get("size"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.store.List(r.Context(), ProfileID(r.Context()), page, size)
	if err != nil {
		logging.Error("Failed to list medications", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "failed to list medications")
		return
	}
	RespondWithJSON(w, http.StatusOK, entities.NewMedicationPage(items, total, page, size))
}

// RecentMedications returns the caller's newest medications.
func (h *HTTPHandlerImpl) RecentMedications(w http.ResponseWriter, r *http.Request) {
	limit, err := h.validator.ValidateLimit(r.URL.Query().Get("limit"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.store.Recent(r.Context(), ProfileID(r.Context()), limit)
	if err != nil {
		logging.Error("Failed to load recent medications", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "failed to load recent medications")
		return
	}
	if items == nil {
		items = []entities.Medication{}
	}
	RespondWithJSON(w, http.StatusOK, items)
}

// GetMedication returns one of the caller's medications.
func (h *HTTPHandlerImpl) GetMedication(w http.ResponseWriter, r *http.Request) {
	id, err := h.validator.ValidateMedicationID(chi.URLParam(r, "id"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	med, err := h.store.Get(r.Context(), ProfileID(r.Context()), id)
	if errors.Is(err, data.ErrNotFound) {
		RespondWithError(w, http.StatusNotFound, "Medication not found")
		return
	}
	if err != nil {
		logging.Error("Failed to get medication", "id", id, "error", err)
		RespondWithError(w, http.StatusInternalServerError, "failed to get medication")
		return
	}
	RespondWithJSON(w, http.StatusOK, med)
}

// DeleteMedication removes one of the caller's medications and its image.
func (h *HTTPHandlerImpl) DeleteMedication(w http.ResponseWriter, r *http.Request) {
	id, err := h.validator.ValidateMedicationID(chi.URLParam(r, "id"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.scans.Remove(r.Context(), ProfileID(r.Context()), id)
	if errors.Is(err, data.ErrNotFound) {
		RespondWithError(w, http.StatusNotFound, "Medication not found")
		return
	}
	if err != nil {
		logging.Error("Failed to delete medication", "id", id, "error", err)
		RespondWithError(w, http.StatusInternalServerError, "failed to delete medication")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Extract runs the extraction pipeline on posted text and entities.
func (h *HTTPHandlerImpl) Extract(w http.ResponseWriter, r *http.Request) {
	var req entities.ExtractRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExtractBody))
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RespondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.validator.ValidateExtractRequest(&req); err != nil {
		if !errors.Is(err, validation.ErrInvalidInput) {
			logging.Error("Unexpected extract validation error", "error", err)
		}
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, h.extractor.Process(req.Text, req.Entities))
}

// HealthResponse keeps a stable field order in the health payload.
type HealthResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}

// HealthCheck returns service health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, httpStatus := h.health.HealthCheck(r.Context())

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	RespondWithJSON(w, httpStatus, HealthResponse{
		Status: status,
		Data:   details,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	})
}
