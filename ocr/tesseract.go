// Package ocr recognizes text on medication label images with Tesseract.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/pillchecker/pillchecker/interfaces"
	"github.com/pillchecker/pillchecker/metrics"
)

var _ interfaces.TextRecognizer = (*Recognizer)(nil)

// ErrEmptyImage is returned for zero-length input.
var ErrEmptyImage = errors.New("image is empty")

// engine is the subset of *gosseract.Client the recognizer drives.
type engine interface {
	SetImageFromBytes(data []byte) error
	SetLanguage(langs ...string) error
	Text() (string, error)
	Close() error
}

// Recognizer runs one Tesseract client per call, so it is safe for
// concurrent use.
type Recognizer struct {
	languages     []string
	clientFactory func() engine
}

// NewRecognizer creates a Tesseract-backed recognizer for the given
// languages (for example "eng", "fra").
func NewRecognizer(languages ...string) *Recognizer {
	return &Recognizer{
		languages:     languages,
		clientFactory: func() engine { return gosseract.NewClient() },
	}
}

// Recognize returns the text found in image with whitespace runs, line
// breaks included, collapsed to single spaces.
func (r *Recognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(image) == 0 {
		return "", ErrEmptyImage
	}

	start := time.Now()
	defer func() { metrics.OCRDuration.Observe(time.Since(start).Seconds()) }()

	c := r.clientFactory()
	defer func() { _ = c.Close() }()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(r.languages) > 0 {
		if err := c.SetLanguage(r.languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.Join(strings.Fields(text), " "), nil
}
