package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
	"github.com/velikanov/hybrid-query-engine/internal/core/ports"
	"github.com/velikanov/hybrid-query-engine/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	resolver ports.QueryResolver
	planner  ports.StatementPlanner
	searcher ports.DocumentSearcher
	ingestor ports.DocumentIngestor
	reader   ports.DocumentReader
	remover  ports.DocumentRemover

	options RouterOptions
}

// RouterOptions carries the traffic-control knobs and optional
// observability hooks. Zero values disable the corresponding layer.
type RouterOptions struct {
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxInFlight      int
	BackpressureWait time.Duration
	Metrics          *metrics.HTTPServerMetrics

	// CollectionStats, when set, adds per-collection point counts to
	// the health response. A stats failure never fails the check.
	CollectionStats func(ctx context.Context) (map[string]int, error)
}

func NewRouter(
	resolver ports.QueryResolver,
	planner ports.StatementPlanner,
	searcher ports.DocumentSearcher,
	ingestor ports.DocumentIngestor,
	reader ports.DocumentReader,
	remover ports.DocumentRemover,
	options RouterOptions,
) *Router {
	if options.BackpressureWait <= 0 {
		options.BackpressureWait = 100 * time.Millisecond
	}
	return &Router{
		resolver: resolver,
		planner:  planner,
		searcher: searcher,
		ingestor: ingestor,
		reader:   reader,
		remover:  remover,
		options:  options,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/query", rt.resolveQuery)
	mux.HandleFunc("/v1/search", rt.searchDocuments)
	mux.HandleFunc("/v1/sql/plan", rt.planStatement)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.documentByID)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.options.MaxInFlight, rt.options.BackpressureWait)
	handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst)
	if rt.options.Metrics != nil {
		handler = rt.options.Metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{"status": "ok"}
	if rt.options.CollectionStats != nil {
		if stats, err := rt.options.CollectionStats(r.Context()); err == nil {
			payload["collections"] = stats
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (rt *Router) resolveQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string            `json:"question"`
		Context  map[string]string `json:"context"`
		TypeHint string            `json:"type_hint"`
		Limit    int               `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := rt.resolver.Resolve(r.Context(), domain.Query{
		Text:     req.Question,
		Context:  req.Context,
		TypeHint: domain.QueryType(req.TypeHint),
	}, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}

	rt.recordResolution(answer, time.Since(start))
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) recordResolution(answer *domain.ResolvedAnswer, duration time.Duration) {
	m := rt.options.Metrics
	if m == nil || answer == nil {
		return
	}
	m.RecordResolution(
		serviceName,
		string(answer.Classification.Type),
		string(answer.Strategy),
		answer.Success,
		answer.TotalResults,
		duration,
	)
	if answer.SQLPath.Ran && !answer.SQLPath.Succeeded {
		m.RecordPathFailure(serviceName, "sql")
	}
	if answer.DocumentPath.Ran && !answer.DocumentPath.Succeeded {
		m.RecordPathFailure(serviceName, "document")
	}
}

func (rt *Router) searchDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query    string            `json:"query"`
		Category string            `json:"category"`
		Metadata map[string]string `json:"metadata"`
		Limit    int               `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	candidates, err := rt.searcher.Search(r.Context(), req.Query, domain.SearchFilter{
		Category: req.Category,
		Metadata: req.Metadata,
	}, req.Limit)
	if rt.options.Metrics != nil {
		rt.options.Metrics.RecordSearch(serviceName, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": candidates,
		"total":   len(candidates),
	})
}

func (rt *Router) planStatement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string            `json:"question"`
		Context  map[string]string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	candidate, err := rt.planner.Plan(r.Context(), domain.Query{
		Text:    req.Question,
		Context: req.Context,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// Validation outcome is part of the payload: a rejected candidate
	// still returns 200 with security_valid=false.
	writeJSON(w, http.StatusOK, candidate)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		r.FormValue("category"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) documentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := rt.reader.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if err := rt.remover.Remove(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
