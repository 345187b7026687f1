// Package validation checks user input at the HTTP boundary.
package validation

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pillchecker/pillchecker/extraction/entities"
	"github.com/pillchecker/pillchecker/interfaces"
)

// ErrInvalidInput wraps every validation failure.
var ErrInvalidInput = errors.New("invalid input")

const (
	DefaultPage      = 1
	DefaultPageSize  = 10
	MaxPageSize      = 100
	DefaultLimit     = 5
	MaxLimit         = 50
	maxFilenameBytes = 255
)

// imageTypes maps accepted image MIME types to their file extensions.
var imageTypes = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/tiff": {".tif", ".tiff"},
	"image/bmp":  {".bmp"},
	"image/gif":  {".gif"},
	"image/webp": {".webp"},
}

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct {
	maxUploadSize int64
	validate      *validator.Validate
}

// NewDataValidator creates a validator accepting uploads up to maxUploadSize bytes.
func NewDataValidator(maxUploadSize int64) *DataValidatorImpl {
	return &DataValidatorImpl{
		maxUploadSize: maxUploadSize,
		validate:      validator.New(),
	}
}

var _ interfaces.DataValidator = (*DataValidatorImpl)(nil)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ValidateProfileID validates the X-Profile-ID header value
func (v *DataValidatorImpl) ValidateProfileID(input string) (string, error) {
	return parseUUID(input, "profile id")
}

// ValidateMedicationID validates a medication id path parameter
func (v *DataValidatorImpl) ValidateMedicationID(input string) (string, error) {
	return parseUUID(input, "medication id")
}

func parseUUID(input, what string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", invalid("%s cannot be empty", what)
	}
	id, err := uuid.Parse(trimmed)
	if err != nil || len(trimmed) != 36 {
		return "", invalid("%s must be a UUID", what)
	}
	return id.String(), nil
}

// ValidateUpload checks the declared name, type and size of an uploaded image.
func (v *DataValidatorImpl) ValidateUpload(filename, contentType string, size int64) error {
	if size <= 0 {
		return invalid("file is empty")
	}
	if v.maxUploadSize > 0 && size > v.maxUploadSize {
		return invalid("file too large: maximum %d bytes", v.maxUploadSize)
	}

	if strings.TrimSpace(filename) == "" {
		return invalid("filename cannot be empty")
	}
	if len(filename) > maxFilenameBytes {
		return invalid("filename too long: maximum %d bytes", maxFilenameBytes)
	}
	if strings.ContainsRune(filename, 0) {
		return invalid("filename contains invalid characters")
	}

	mediaType := normalizeMediaType(contentType)
	extensions, ok := imageTypes[mediaType]
	if !ok {
		return invalid("unsupported content type %q: expected an image", contentType)
	}

	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
	if ext == "" {
		return nil
	}
	for _, allowed := range extensions {
		if ext == allowed {
			return nil
		}
	}
	return invalid("file extension %s does not match content type %s", ext, mediaType)
}

// DetectImageType sniffs content and returns its MIME type when it is an
// accepted image format.
func (v *DataValidatorImpl) DetectImageType(content []byte) (string, error) {
	if len(content) == 0 {
		return "", invalid("file is empty")
	}
	detected := mimetype.Detect(content)
	mediaType := normalizeMediaType(detected.String())
	if _, ok := imageTypes[mediaType]; !ok {
		return "", invalid("file content is %s, not a supported image", mediaType)
	}
	return mediaType, nil
}

func normalizeMediaType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "image/jpg" || mediaType == "image/pjpeg" {
		return "image/jpeg"
	}
	return mediaType
}

// ValidatePagination parses page and size, defaulting to page 1 of 10.
func (v *DataValidatorImpl) ValidatePagination(page, size string) (int, int, error) {
	p, err := parsePositive(page, DefaultPage, "page")
	if err != nil {
		return 0, 0, err
	}
	s, err := parsePositive(size, DefaultPageSize, "size")
	if err != nil {
		return 0, 0, err
	}
	if s > MaxPageSize {
		return 0, 0, invalid("size must be at most %d", MaxPageSize)
	}
	return p, s, nil
}

// ValidateLimit parses the recent-items limit, defaulting to 5.
func (v *DataValidatorImpl) ValidateLimit(limit string) (int, error) {
	l, err := parsePositive(limit, DefaultLimit, "limit")
	if err != nil {
		return 0, err
	}
	if l > MaxLimit {
		return 0, invalid("limit must be at most %d", MaxLimit)
	}
	return l, nil
}

func parsePositive(input string, defaultValue int, name string) (int, error) {
	if input == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return 0, invalid("%s must be a number", name)
	}
	if n < 1 {
		return 0, invalid("%s must be at least 1", name)
	}
	return n, nil
}

// ValidateExtractRequest checks the stateless extraction body.
func (v *DataValidatorImpl) ValidateExtractRequest(req *entities.ExtractRequest) error {
	if req == nil {
		return invalid("request body is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return invalid("text cannot be empty")
	}
	if err := v.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return invalid("field %s failed on the '%s' rule", fe.Namespace(), fe.Tag())
		}
		return invalid("%v", err)
	}
	return nil
}
