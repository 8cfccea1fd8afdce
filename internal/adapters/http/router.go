// Package httpadapter exposes the chat and ingestion services over HTTP.
package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
	"github.com/karisazi/faq-chatbot/internal/core/ports"
	"github.com/karisazi/faq-chatbot/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	chat    ports.ChatService
	ingest  ports.SourceIngestor
	sources ports.SourceReader
	index   ports.VectorIndex
	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger

	rateLimitRPS   int
	rateLimitBurst int
	maxInFlight    int
}

type RouterOptions struct {
	Metrics        *metrics.HTTPServerMetrics
	Logger         *slog.Logger
	RateLimitRPS   int
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(
	chat ports.ChatService,
	ingest ports.SourceIngestor,
	sources ports.SourceReader,
	index ports.VectorIndex,
	opts RouterOptions,
) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		chat:           chat,
		ingest:         ingest,
		sources:        sources,
		index:          index,
		metrics:        opts.Metrics,
		logger:         logger,
		rateLimitRPS:   opts.RateLimitRPS,
		rateLimitBurst: opts.RateLimitBurst,
		maxInFlight:    opts.MaxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/chat", rt.postChat)
	mux.HandleFunc("POST /v1/sources", rt.uploadSource)
	mux.HandleFunc("GET /v1/sources/{source_id}", rt.getSourceByID)
	mux.HandleFunc("GET /v1/admin/records", rt.listRecords)
	mux.HandleFunc("DELETE /v1/admin/records/{category}/{record_id}", rt.deleteRecord)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = backpressureMiddleware(handler, rt.maxInFlight, 200*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) postChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query   string            `json:"query"`
		History []domain.ChatTurn `json:"history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	start := time.Now()
	answer, err := rt.chat.Answer(r.Context(), req.Query, req.History)
	if err != nil {
		rt.logger.Error("chat_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordCacheLookup(serviceName, answer.Cached)
		rt.metrics.RecordRoutingDecision(serviceName, string(answer.Category))
		rt.metrics.RecordFallback(serviceName, answer.FallbackReason)
		if !answer.Cached {
			rt.metrics.RecordChatObservation(serviceName, len(answer.Sources), time.Since(start))
		}
	}

	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) uploadSource(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	source, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSourceUpload(serviceName)
	}
	writeJSON(w, http.StatusAccepted, source)
}

func (rt *Router) getSourceByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("source_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "source id is required")
		return
	}

	source, err := rt.sources.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, source)
}

// Query parameters other than category and limit become metadata-equality
// filters, e.g. /v1/admin/records?category=product_sales&product_name=SmartHome.
func (rt *Router) listRecords(w http.ResponseWriter, r *http.Request) {
	category, err := domain.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	filter := domain.SearchFilter{Metadata: map[string]string{}}
	for key, values := range r.URL.Query() {
		if key == "category" || key == "limit" || len(values) == 0 {
			continue
		}
		filter.Metadata[key] = values[0]
	}

	records, err := rt.index.Scroll(r.Context(), category, limit, filter)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"records":  records,
	})
}

func (rt *Router) deleteRecord(w http.ResponseWriter, r *http.Request) {
	category, err := domain.ParseCategory(r.PathValue("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	recordID := r.PathValue("record_id")
	if recordID == "" {
		writeError(w, http.StatusBadRequest, "record id is required")
		return
	}

	if err := rt.index.DeleteByID(r.Context(), category, recordID); err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "record_id": recordID})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
