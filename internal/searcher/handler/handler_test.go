package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/contributor"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/descriptor"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/highlight"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/errors"
)

const testCatalog = `
configurables:
  - id: editor
    name: Editor
    children:
      - id: editor.general
        name: General
        options:
          - text: Font Size
            path: Font
          - text: Show line numbers
            path: Gutter
  - id: appearance
    name: Appearance
    options:
      - text: Color
        path: Scheme
        synonyms: [colour]
`

type testServer struct {
	server *httptest.Server
	engine *indexer.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	catalog, err := contributor.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	tok := tokenizer.New(tokenizer.DefaultStopWords(), nil)
	engine := indexer.NewEngine(config.IndexConfig{MaxBuildAttempts: 1}, tok, nil, catalog)
	exec := executor.New(engine, parser.New(config.SearchConfig{PathSeparator: parser.DefaultSeparator}), nil)
	h := New(exec, highlight.New(tok), engine, catalog)

	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testServer{server: srv, engine: engine}
}

func getJSON(t *testing.T, rawURL string, out any) int {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t)

	var body searchResponse
	status := getJSON(t, ts.server.URL+"/api/v1/options/search?q=font", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "font", body.Query)
	assert.Equal(t, []entry{{ID: "editor.general", Name: "General"}}, body.ContentHits)
	assert.Empty(t, body.NameHits)
	assert.Equal(t, "font", body.SpotlightFilter)
}

func TestSearchIncremental(t *testing.T) {
	ts := newTestServer(t)

	var body searchResponse
	status := getJSON(t, ts.server.URL+"/api/v1/options/search?q=colour&incremental=true&previous=appearance,editor.general,unknown", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []entry{{ID: "appearance", Name: "Appearance"}}, body.ContentHits)
}

func TestSearchPath(t *testing.T) {
	ts := newTestServer(t)

	var body searchResponse
	q := url.QueryEscape("Settings | Editor | General | Font")
	status := getJSON(t, ts.server.URL+"/api/v1/options/search?q="+q, &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []entry{{ID: "editor.general", Name: "General"}}, body.ContentHits)
	assert.Equal(t, "Font", body.SpotlightFilter)
}

func TestSearchRejectsBadIncremental(t *testing.T) {
	ts := newTestServer(t)

	var body map[string]string
	status := getJSON(t, ts.server.URL+"/api/v1/options/search?q=font&incremental=maybe", &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "incremental")
}

func TestPrefix(t *testing.T) {
	ts := newTestServer(t)

	var body prefixResponse
	status := getJSON(t, ts.server.URL+"/api/v1/options/prefix?p=siz", &body)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, body.Constrained)
	assert.Equal(t, []descriptor.OptionDescription{
		{GroupName: "General", ConfigurableID: "editor.general", Hit: "Font Size", Path: "Font"},
	}, body.Options)

	var bad map[string]string
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.server.URL+"/api/v1/options/prefix", &bad))
}

func TestPaths(t *testing.T) {
	ts := newTestServer(t)

	var body executor.SpotlightResult
	status := getJSON(t, ts.server.URL+"/api/v1/options/paths?id=editor.general&q=line+numbers", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"Gutter"}, body.Paths)
	assert.Equal(t, []string{"line", "numbers"}, body.Words)

	var missing map[string]string
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.server.URL+"/api/v1/options/paths?id=nope&q=x", &missing))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.server.URL+"/api/v1/options/paths?q=x", &missing))
}

func TestHighlight(t *testing.T) {
	ts := newTestServer(t)

	var body highlightResponse
	status := getJSON(t, ts.server.URL+"/api/v1/options/highlight?text="+url.QueryEscape("Show line numbers")+"&q=numbers", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []highlight.Range{{Start: 10, End: 17}}, body.Ranges)
	assert.Equal(t, "Show line <mark>numbers</mark>", body.HTML)
}

func TestStatsAndInvalidate(t *testing.T) {
	ts := newTestServer(t)

	var stats indexer.Stats
	require.Equal(t, http.StatusOK, getJSON(t, ts.server.URL+"/api/v1/index/stats", &stats))
	assert.Equal(t, "empty", stats.State)

	var body searchResponse
	getJSON(t, ts.server.URL+"/api/v1/options/search?q=font", &body)
	require.Equal(t, http.StatusOK, getJSON(t, ts.server.URL+"/api/v1/index/stats", &stats))
	assert.Equal(t, "ready", stats.State)
	assert.Positive(t, stats.Words)

	resp, err := http.Post(ts.server.URL+"/api/v1/index/invalidate", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Nil(t, ts.engine.Snapshot())
	assert.Equal(t, uint64(1), ts.engine.Stats().Generation)
}

type failingSearcher struct{ err error }

func (f failingSearcher) GetConfigurables(ctx context.Context, req executor.Request) (*executor.Hit, error) {
	return nil, f.err
}

func (f failingSearcher) FindByPrefix(ctx context.Context, prefix string) ([]descriptor.OptionDescription, bool, error) {
	return nil, false, f.err
}

func (f failingSearcher) Spotlight(ctx context.Context, id, filter string) (*executor.SpotlightResult, error) {
	return nil, f.err
}

func TestErrorMapping(t *testing.T) {
	catalog, err := contributor.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	tok := tokenizer.New(tokenizer.DefaultStopWords(), nil)
	engine := indexer.NewEngine(config.IndexConfig{MaxBuildAttempts: 1}, tok, nil)

	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("search: %w", apperrors.ErrIndexInvalidated), http.StatusServiceUnavailable},
		{fmt.Errorf("search: %w", apperrors.ErrBuildCancelled), http.StatusRequestTimeout},
		{fmt.Errorf("search: boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := New(failingSearcher{err: tt.err}, highlight.New(tok), engine, catalog)
			rec := httptest.NewRecorder()
			h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/options/search?q=x", nil))
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusInternalServerError {
				assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
			}
		})
	}
}
