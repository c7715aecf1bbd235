// Package handler serves the question-answering HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/pipeline"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/tracing"
)

const maxQueryLength = 1000

// Limits bounds the per-request match counts.
type Limits struct {
	MaxFileMatches     int
	MaxSentenceMatches int
}

type Handler struct {
	pipeline  *pipeline.Pipeline
	holder    *pipeline.Holder
	cache     *cache.AnswerCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	limits    Limits
	logger    *slog.Logger
}

// New wires the handler. answerCache, collector and m may be nil.
func New(
	p *pipeline.Pipeline,
	holder *pipeline.Holder,
	answerCache *cache.AnswerCache,
	collector *analytics.Collector,
	m *metrics.Metrics,
	limits Limits,
) *Handler {
	return &Handler{
		pipeline:  p,
		holder:    holder,
		cache:     answerCache,
		collector: collector,
		metrics:   m,
		limits:    limits,
		logger:    slog.Default().With("component", "answer-handler"),
	}
}

// Answer handles GET /api/v1/answer?q=...&files=N&sentences=M.
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartTrace(r.Context(), "answer", middleware.GetRequestID(r.Context()))
	log := logger.FromContext(ctx)
	defer func() {
		span.End()
		span.Log(ctx, log)
	}()

	req, err := h.parseRequest(r)
	if err != nil {
		h.countQuery("invalid")
		h.writeError(w, err)
		return
	}
	prep := h.holder.Current()
	if prep == nil {
		h.countQuery("error")
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "corpus not loaded"})
		return
	}

	compute := func(ctx context.Context) (*pipeline.Result, error) {
		return h.pipeline.Answer(ctx, prep, req)
	}
	var result *pipeline.Result
	cacheHit := false
	if h.cache != nil {
		key := cache.Key{
			Fingerprint:     prep.Fingerprint(),
			Terms:           h.pipeline.QueryTerms(req.Query),
			FileMatches:     req.FileMatches,
			SentenceMatches: req.SentenceMatches,
		}
		result, cacheHit, err = h.cache.GetOrCompute(ctx, key, compute)
	} else {
		result, err = compute(ctx)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = apperrors.Wrapf(apperrors.ErrTimeout, "answering %q", req.Query)
		}
		log.Error("answer failed", "query", req.Query, "error", err)
		h.countQuery("error")
		h.writeError(w, err)
		return
	}
	if cacheHit || result.Query != req.Query {
		// Cached answers are shared between queries with the same terms.
		copied := *result
		copied.Query = req.Query
		result = &copied
	}

	span.Set("cache_hit", cacheHit)
	latency := time.Since(start)
	h.observe(result, cacheHit, latency)
	log.Info("answer completed",
		"query", req.Query,
		"files", len(result.Files),
		"sentences", len(result.Sentences),
		"unknown_terms", len(result.UnknownTerms),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.track(ctx, result, cacheHit, latency)
	h.writeJSON(w, http.StatusOK, result)
}

// Reload handles POST /api/v1/corpus/reload.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	prep, err := h.holder.Reload(r.Context())
	if err != nil {
		h.countReload("error")
		h.writeError(w, err)
		return
	}
	h.countReload("ok")
	if h.metrics != nil {
		h.metrics.CorpusDocuments.Set(float64(prep.Files.Len()))
	}
	if h.cache != nil {
		if _, err := h.cache.Invalidate(r.Context()); err != nil {
			h.logger.Warn("cache invalidation after reload failed", "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "reloaded",
		"files":       prep.Files.Len(),
		"fingerprint": prep.Fingerprint(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	stats := map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	}
	if state, ok := h.cache.CircuitState(); ok {
		stats["circuit"] = state
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache invalidation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) parseRequest(r *http.Request) (pipeline.Request, error) {
	params := r.URL.Query()
	query := strings.TrimSpace(params.Get("q"))
	if query == "" {
		return pipeline.Request{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"query parameter 'q' is required")
	}
	if len(query) > maxQueryLength {
		return pipeline.Request{}, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"query exceeds %d bytes", maxQueryLength)
	}
	files, err := parseCount(params.Get("files"), "files", h.limits.MaxFileMatches)
	if err != nil {
		return pipeline.Request{}, err
	}
	sentences, err := parseCount(params.Get("sentences"), "sentences", h.limits.MaxSentenceMatches)
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{Query: query, FileMatches: files, SentenceMatches: sentences}, nil
}

// parseCount returns 0 for an absent value so the pipeline default applies.
// Values above max are capped.
func parseCount(raw, name string, limit int) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"%s must be a positive integer", name)
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n, nil
}

func (h *Handler) observe(result *pipeline.Result, cacheHit bool, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.metrics.CacheMissesTotal.Inc()
	} else {
		status = "disabled"
	}
	h.metrics.AnswerLatency.WithLabelValues(status).Observe(latency.Seconds())
	switch {
	case len(result.Terms) == 0:
		h.countQuery("empty_query")
	case len(result.Sentences) == 0 || result.Sentences[0].MatchScore == 0:
		h.countQuery("no_match")
	default:
		h.countQuery("answered")
	}
}

func (h *Handler) track(ctx context.Context, result *pipeline.Result, cacheHit bool, latency time.Duration) {
	if h.collector == nil {
		return
	}
	eventType := analytics.EventAnswer
	switch {
	case cacheHit:
		eventType = analytics.EventCacheHit
	case h.cache != nil:
		eventType = analytics.EventCacheMiss
	}
	files := make([]string, len(result.Files))
	for i, f := range result.Files {
		files[i] = f.ID
	}
	var top float64
	if len(result.Sentences) > 0 {
		top = result.Sentences[0].MatchScore
	}
	h.collector.Track(analytics.QueryEvent{
		Type:              eventType,
		Query:             result.Query,
		Terms:             result.Terms,
		UnknownTerms:      result.UnknownTerms,
		Files:             files,
		Returned:          len(result.Sentences),
		TopScore:          top,
		LatencyMs:         latency.Milliseconds(),
		CacheHit:          cacheHit,
		CorpusFingerprint: result.CorpusFingerprint,
		Timestamp:         time.Now().UTC(),
		RequestID:         middleware.GetRequestID(ctx),
	})
}

func (h *Handler) countQuery(outcome string) {
	if h.metrics != nil {
		h.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) countReload(status string) {
	if h.metrics != nil {
		h.metrics.CorpusReloadsTotal.WithLabelValues(status).Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status code. Only AppError messages reach the
// client; anything else is reported generically.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := http.StatusText(status)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Error()
	} else if status != http.StatusInternalServerError {
		message = err.Error()
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
