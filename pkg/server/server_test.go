package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/devraulu/normurl/pkg/normalize"
	"github.com/devraulu/normurl/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, store storage.Storage) http.Handler {
	t.Helper()
	n, err := normalize.New(normalize.DefaultOptions())
	require.NoError(t, err)
	return New(n, store, 2)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNormalizeEndpoint(t *testing.T) {
	h := newHandler(t, nil)

	rec := get(t, h, "/normalize?url="+url.QueryEscape("www.Example.com/foo/?b=2&a=1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, "www.Example.com/foo/?b=2&a=1", body["input"])
	assert.Equal(t, "http://example.com/foo?a=1&b=2", body["normalized"])
}

func TestNormalizeEndpointErrors(t *testing.T) {
	h := newHandler(t, nil)

	rec := get(t, h, "/normalize")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing url parameter", decode(t, rec)["error"])

	rec = get(t, h, "/normalize?url="+url.QueryEscape("/relative/path/"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "unexpected error")
}

func TestBatchEndpoint(t *testing.T) {
	h := newHandler(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/normalize", strings.NewReader(`{"urls":["example.com/","http://","HTTPS://example.org:443/a/"]}`))
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "http://example.com", resp.Results[0].Normalized)
	assert.NotEmpty(t, resp.Results[1].Error)
	assert.Equal(t, "https://example.org/a", resp.Results[2].Normalized)
	assert.Equal(t, 2, resp.Processed)
	assert.Equal(t, 1, resp.Errored)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/normalize", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLookupWithoutStore(t *testing.T) {
	h := newHandler(t, nil)

	assert.Equal(t, http.StatusNotImplemented, get(t, h, "/lookup?url=example.com").Code)
	assert.Equal(t, http.StatusNotImplemented, get(t, h, "/hosts").Code)
	assert.Equal(t, http.StatusNotImplemented, get(t, h, "/hosts/example.com").Code)
}

func TestLookupWithStore(t *testing.T) {
	store := storage.NewMemoryStorage()
	_, err := store.SaveURL(context.Background(), storage.Record{
		Original:   "www.example.com/a/",
		Normalized: "http://example.com/a",
		Host:       "example.com",
	})
	require.NoError(t, err)

	h := newHandler(t, store)

	rec := get(t, h, "/lookup?url="+url.QueryEscape("HTTP://www.example.com/a?utm_source=feed"))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "www.example.com/a/", body["original"])
	assert.EqualValues(t, 1, body["seen_count"])

	rec = get(t, h, "/lookup?url=example.com/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, h, "/lookup?url=/relative")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, h, "/hosts?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"host":"example.com","count":1}]`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/hosts?limit=x").Code)
}

func TestHostURLsEndpoint(t *testing.T) {
	store := storage.NewMemoryStorage()
	for _, rec := range []storage.Record{
		{Original: "example.com/a", Normalized: "http://example.com/a", Host: "example.com"},
		{Original: "example.com/b", Normalized: "http://example.com/b", Host: "example.com"},
		{Original: "example.org", Normalized: "http://example.org", Host: "example.org"},
	} {
		_, err := store.SaveURL(context.Background(), rec)
		require.NoError(t, err)
	}

	h := newHandler(t, store)

	rec := get(t, h, "/hosts/example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []recordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "http://example.com/a", records[0].Normalized)
	assert.Equal(t, "http://example.com/b", records[1].Normalized)

	rec = get(t, h, "/hosts/example.com?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 1)

	rec = get(t, h, "/hosts/unknown.test")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/hosts/example.com?limit=0").Code)
}

func TestIndexPage(t *testing.T) {
	h := newHandler(t, nil)

	rec := get(t, h, "/?url="+url.QueryEscape("www.example.com"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<code>http://example.com</code>")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)
}
