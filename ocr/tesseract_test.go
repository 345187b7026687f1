package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	text      string
	textErr   error
	imageErr  error
	languages []string
	image     []byte
	closed    bool
}

func (f *fakeEngine) SetImageFromBytes(data []byte) error {
	f.image = data
	return f.imageErr
}

func (f *fakeEngine) SetLanguage(langs ...string) error {
	f.languages = langs
	return nil
}

func (f *fakeEngine) Text() (string, error) { return f.text, f.textErr }

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

func newFakeRecognizer(f *fakeEngine, langs ...string) *Recognizer {
	r := NewRecognizer(langs...)
	r.clientFactory = func() engine { return f }
	return r
}

func TestRecognizeCollapsesWhitespace(t *testing.T) {
	f := &fakeEngine{text: "Ibuprofen  200mg\n\nTake one tablet\ttwice daily\n"}
	r := newFakeRecognizer(f, "eng", "fra")

	got, err := r.Recognize(context.Background(), []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.Equal(t, "Ibuprofen 200mg Take one tablet twice daily", got)
	assert.Equal(t, []string{"eng", "fra"}, f.languages)
	assert.True(t, f.closed)
}

func TestRecognizeEmptyImage(t *testing.T) {
	r := newFakeRecognizer(&fakeEngine{})
	_, err := r.Recognize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestRecognizeCancelledContext(t *testing.T) {
	f := &fakeEngine{text: "never"}
	r := newFakeRecognizer(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Recognize(ctx, []byte("img"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, f.image, "engine must not run after cancellation")
}

func TestRecognizeEngineErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := newFakeRecognizer(&fakeEngine{imageErr: boom}).Recognize(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, boom)

	f := &fakeEngine{textErr: boom}
	_, err = newFakeRecognizer(f).Recognize(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, boom)
	assert.True(t, f.closed)
}
