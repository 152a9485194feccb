// Package handler exposes the option index over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/configurable"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/descriptor"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/highlight"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/logger"
)

type Searcher interface {
	GetConfigurables(ctx context.Context, req executor.Request) (*executor.Hit, error)
	FindByPrefix(ctx context.Context, prefix string) ([]descriptor.OptionDescription, bool, error)
	Spotlight(ctx context.Context, configurableID, filter string) (*executor.SpotlightResult, error)
}

// Index is the administrative surface of the index engine.
type Index interface {
	Stats() indexer.Stats
	Invalidate(source string)
}

// Tree supplies the configurable tree queries run against.
type Tree interface {
	Roots() []*configurable.Configurable
}

type Handler struct {
	searcher    Searcher
	highlighter *highlight.Highlighter
	index       Index
	tree        Tree
	logger      *slog.Logger
}

func New(searcher Searcher, highlighter *highlight.Highlighter, index Index, tree Tree) *Handler {
	return &Handler{
		searcher:    searcher,
		highlighter: highlighter,
		index:       index,
		tree:        tree,
		logger:      slog.Default().With("component", "options-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/options/search", h.Search)
	mux.HandleFunc("GET /api/v1/options/prefix", h.Prefix)
	mux.HandleFunc("GET /api/v1/options/paths", h.Paths)
	mux.HandleFunc("GET /api/v1/options/highlight", h.Highlight)
	mux.HandleFunc("GET /api/v1/index/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/index/invalidate", h.Invalidate)
}

type entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type searchResponse struct {
	Query           string  `json:"query"`
	NameHits        []entry `json:"name_hits"`
	NameFullHits    []entry `json:"name_full_hits"`
	ContentHits     []entry `json:"content_hits"`
	SpotlightFilter string  `json:"spotlight_filter"`
	LatencyMs       float64 `json:"latency_ms"`
}

type prefixResponse struct {
	Prefix      string                         `json:"prefix"`
	Constrained bool                           `json:"constrained"`
	Options     []descriptor.OptionDescription `json:"options"`
}

type highlightResponse struct {
	highlight.MarkedText
	HTML string `json:"html"`
}

// Search answers GET /api/v1/options/search?q=&incremental=&previous=id,id.
// An empty q matches everything.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	params := r.URL.Query()
	query := params.Get("q")

	incremental := false
	if raw := params.Get("incremental"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "incremental must be a boolean"))
			return
		}
		incremental = parsed
	}

	roots := h.tree.Roots()
	var previous []*configurable.Configurable
	for _, id := range splitList(params.Get("previous")) {
		if c := configurable.Find(roots, id); c != nil {
			previous = append(previous, c)
		}
	}

	hit, err := h.searcher.GetConfigurables(ctx, executor.Request{
		Groups:      roots,
		Query:       query,
		Previous:    previous,
		Incremental: incremental,
	})
	if err != nil {
		logger.FromContext(ctx).Error("search failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	latency := time.Since(start)
	logger.FromContext(ctx).Info("search completed",
		"query", query,
		"incremental", incremental,
		"content_hits", len(hit.ContentHits),
		"latency_ms", latency.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, searchResponse{
		Query:           query,
		NameHits:        entries(hit.NameHits),
		NameFullHits:    entries(hit.NameFullHits),
		ContentHits:     entries(hit.ContentHits),
		SpotlightFilter: hit.SpotlightFilter,
		LatencyMs:       float64(latency.Microseconds()) / 1000,
	})
}

// Prefix answers GET /api/v1/options/prefix?p=.
func (h *Handler) Prefix(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("p")
	if strings.TrimSpace(prefix) == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'p' is required"))
		return
	}
	options, ok, err := h.searcher.FindByPrefix(r.Context(), prefix)
	if err != nil {
		logger.FromContext(r.Context()).Error("prefix lookup failed", "prefix", prefix, "error", err)
		h.writeError(w, err)
		return
	}
	if options == nil {
		options = []descriptor.OptionDescription{}
	}
	h.writeJSON(w, http.StatusOK, prefixResponse{Prefix: prefix, Constrained: ok, Options: options})
}

// Paths answers GET /api/v1/options/paths?id=&q= with the words to
// highlight and the inner paths of one configurable.
func (h *Handler) Paths(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'id' is required"))
		return
	}
	if configurable.Find(h.tree.Roots(), id) == nil {
		h.writeError(w, apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "configurable %q not found", id))
		return
	}
	result, err := h.searcher.Spotlight(r.Context(), id, r.URL.Query().Get("q"))
	if err != nil {
		logger.FromContext(r.Context()).Error("inner paths failed", "id", id, "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Highlight answers GET /api/v1/options/highlight?text=&q=.
func (h *Handler) Highlight(w http.ResponseWriter, r *http.Request) {
	marked := h.highlighter.MarkMatches(r.URL.Query().Get("text"), r.URL.Query().Get("q"))
	if marked.Ranges == nil {
		marked.Ranges = []highlight.Range{}
	}
	h.writeJSON(w, http.StatusOK, highlightResponse{
		MarkedText: marked,
		HTML:       marked.Render("<mark>", "</mark>"),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.index.Stats())
}

func (h *Handler) Invalidate(w http.ResponseWriter, r *http.Request) {
	h.index.Invalidate("http")
	logger.FromContext(r.Context()).Info("index invalidated over http")
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := http.StatusText(status)
	if status < http.StatusInternalServerError {
		message = err.Error()
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}

func entries(list []*configurable.Configurable) []entry {
	out := make([]entry, 0, len(list))
	for _, c := range list {
		out = append(out, entry{ID: c.ID, Name: c.DisplayName})
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
