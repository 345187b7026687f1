package nerclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pillchecker/pillchecker/extraction/entities"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:     srv.URL + "/",
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	})
	require.NoError(t, err)
	return c, srv
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "ftp://biomed"})
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "http://biomed:8001/"})
	require.NoError(t, err)
	assert.Equal(t, "http://biomed:8001", c.BaseURL())
}

func TestExtractEntitiesBlankTextSkipsCall(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	got, err := c.ExtractEntities(context.Background(), "   \n")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, calls.Load())
}

func TestExtractEntitiesNestedShape(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/extract_entities", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ibuprofen 200mg", body["text"])

		_, _ = w.Write([]byte(`{"entities":[
			{"text":"Ibuprofen","umls_entities":[
				{"canonical_name":"Ibuprofen","definition":"NSAID","aliases":["Advil"],"concept_id":"C0020740"},
				{"canonical_name":"Ibuprofen Sodium"}
			]},
			{"text":"200mg"}
		]}`))
	})

	got, err := c.ExtractEntities(context.Background(), "Ibuprofen 200mg")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Ibuprofen", got[0].Text)
	require.Len(t, got[0].LinkedConcepts, 2)
	assert.Equal(t, entities.Concept{
		CanonicalName: "Ibuprofen",
		ConceptID:     "C0020740",
		Definition:    "NSAID",
		Aliases:       []string{"Advil"},
	}, got[0].LinkedConcepts[0])
	assert.Empty(t, got[1].LinkedConcepts)
}

func TestExtractEntitiesFlatShape(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"entities":[
			{"text":"Ibuprofen","label":"CHEMICAL","start":0,"end":9,"cui":"C0020740",
			 "canonical_name":"Ibuprofen","aliases":["Advil","Motrin"],"definition":"..."},
			{"text":"fever","label":"DISEASE","start":20,"end":25},
			{"text":"  ","label":"CHEMICAL"},
			{"label":"DISEASE"}
		]}`))
	})

	got, err := c.ExtractEntities(context.Background(), "Ibuprofen for fever")
	require.NoError(t, err)
	require.Len(t, got, 2, "entries without text are dropped")

	assert.Equal(t, "chemical", got[0].Label)
	require.Len(t, got[0].LinkedConcepts, 1)
	assert.Equal(t, "C0020740", got[0].LinkedConcepts[0].ConceptID)
	assert.Equal(t, []string{"Advil", "Motrin"}, got[0].LinkedConcepts[0].Aliases)

	assert.True(t, got[1].HasLabel(entities.LabelDisease))
	assert.Empty(t, got[1].LinkedConcepts)
}

func TestExtractEntitiesDetailsShape(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"entities":[
			{"text":"advil","label":"Chemical","score":0.98,
			 "details":{"name":"Ibuprofen","description":"NSAID","synonyms":["Advil"]}}
		]}`))
	})

	got, err := c.ExtractEntities(context.Background(), "advil")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ibuprofen", got[0].DisplayName())
}

func TestExtractEntitiesRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"entities":[{"text":"Aspirin","label":"CHEMICAL"}]}`))
	})

	got, err := c.ExtractEntities(context.Background(), "Aspirin")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExtractEntitiesGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.ExtractEntities(context.Background(), "Aspirin")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExtractEntitiesDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "text field required", http.StatusUnprocessableEntity)
	})

	_, err := c.ExtractEntities(context.Background(), "Aspirin")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Contains(t, err.Error(), "422")
	assert.Equal(t, int32(1), calls.Load())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
}

func TestExtractEntitiesMalformedJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"entities": [`))
	})

	_, err := c.ExtractEntities(context.Background(), "Aspirin")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestExtractEntitiesUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
	require.NoError(t, err)

	_, err = c.ExtractEntities(context.Background(), "Aspirin")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestFindHelpers(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"entities":[
			{"text":"Ibuprofen","label":"CHEMICAL"},
			{"text":"fever","label":"DISEASE"},
			{"text":"Paracetamol","label":"chemical"},
			{"text":"tablet"}
		]}`))
	})
	ctx := context.Background()

	chemicals, err := c.FindChemicals(ctx, "x")
	require.NoError(t, err)
	assert.Len(t, chemicals, 2)

	diseases, err := c.FindDiseases(ctx, "x")
	require.NoError(t, err)
	require.Len(t, diseases, 1)
	assert.Equal(t, "fever", diseases[0].Text)

	names, err := c.FindActiveIngredients(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ibuprofen", "Paracetamol"}, names)
}

func TestPing(t *testing.T) {
	healthy := atomic.Bool{}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	err := c.Ping(context.Background())
	assert.ErrorIs(t, err, ErrServiceUnavailable)

	healthy.Store(true)
	assert.NoError(t, c.Ping(context.Background()))
}
