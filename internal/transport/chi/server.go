package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/caredesk-cloud/caredesk/internal/domain"
	healthuc "github.com/caredesk-cloud/caredesk/internal/usecase/health"
	indexuc "github.com/caredesk-cloud/caredesk/internal/usecase/index"
	retrievaluc "github.com/caredesk-cloud/caredesk/internal/usecase/retrieval"
	sentimentuc "github.com/caredesk-cloud/caredesk/internal/usecase/sentiment"
	trenduc "github.com/caredesk-cloud/caredesk/internal/usecase/trend"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the retrieval and conversation-priority API over chi.
type Server struct {
	index         *indexuc.Service
	retrieval     *retrievaluc.Service
	sentiment     *sentimentuc.Service
	trends        *trenduc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	index *indexuc.Service,
	retrieval *retrievaluc.Service,
	sentiment *sentimentuc.Service,
	trends *trenduc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		index:     index,
		retrieval: retrieval,
		sentiment: sentiment,
		trends:    trends,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyInput, http.StatusBadRequest, CodeEmptyInput),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrCrossTenantAccess, http.StatusForbidden, CodeCrossTenantAccess),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrEmbeddingBackend, http.StatusBadGateway, CodeEmbeddingBackend),
	}
	return s
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orgs/{org}", func(r chi.Router) {
			r.Post("/documents", s.IngestDocument)
			r.Post("/documents/batch", s.IngestBatch)
			r.Get("/documents", s.ListDocuments)
			r.Get("/documents/{id}", s.GetDocument)
			r.Delete("/documents/{id}", s.DeleteDocument)
			r.Post("/search", s.Search)
			r.Get("/stats", s.Stats)
			r.Delete("/", s.DropOrg)
		})
		r.Post("/messages/evaluate", s.EvaluateMessage)
		r.Get("/conversations/{conversation}/trend", s.ConversationTrend)
	})
}

// IngestDocument handles POST /api/v1/orgs/{org}/documents.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "org")

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res, err := s.index.Ingest(r.Context(), orgID, req.Content, req.Metadata)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{
		DocumentID: res.DocumentID,
		Seq:        res.Seq,
		TokensUsed: res.TotalTokens,
	})
}

// IngestBatch handles POST /api/v1/orgs/{org}/documents/batch.
func (s *Server) IngestBatch(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "org")

	var req BatchIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "documents are required")
		return
	}

	items := make([]indexuc.Item, len(req.Documents))
	for i, d := range req.Documents {
		items[i] = indexuc.Item{Content: d.Content, Metadata: d.Metadata}
	}

	res, err := s.index.IngestBatch(r.Context(), orgID, items)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, BatchIngestResponse{
		DocumentIDs: res.DocumentIDs,
		Indices:     res.Indices,
		Skipped:     res.Skipped,
		TokensUsed:  res.TotalTokens,
	})
}

// GetDocument handles GET /api/v1/orgs/{org}/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "org")
	docID := chi.URLParam(r, "id")

	doc, err := s.index.GetDocument(r.Context(), orgID, docID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DocumentResponse{
		ID:       doc.ID(),
		Content:  doc.Content(),
		Metadata: doc.Metadata(),
		Seq:      doc.Seq(),
	})
}

// ListDocuments handles GET /api/v1/orgs/{org}/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "org")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "limit must be an integer")
			return
		}
		limit = n
	}

	list, err := s.index.ListDocuments(r.Context(), orgID, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]DocumentSummaryItem, len(list.Documents))
	for i, d := range list.Documents {
		items[i] = DocumentSummaryItem{
			ID:             d.ID,
			ContentPreview: d.ContentPreview,
			Metadata:       d.Metadata,
		}
	}

	writeJSON(w, http.StatusOK, ListDocumentsResponse{Documents: items, Total: list.Total})
}

// DeleteDocument handles DELETE /api/v1/orgs/{org}/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "org")
	docID := chi.URLParam(r, "id")

	if err := s.index.Delete(r.Context(), orgID, docID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /api/v1/orgs/{org}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "org")

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	results, err := s.retrieval.Search(r.Context(), orgID, req.Query, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = SearchResultItem{
			ID:         results[i].ID(),
			Similarity: results[i].Similarity(),
			Content:    results[i].Content(),
			Metadata:   results[i].Metadata(),
		}
	}

	writeJSON(w, http.StatusOK, SearchResponse{Items: items, Total: len(items)})
}

// Stats handles GET /api/v1/orgs/{org}/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "org")

	stats, err := s.index.Stats(r.Context(), orgID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		DocumentCount:  stats.DocumentCount,
		CollectionName: stats.CollectionName,
	})
}

// DropOrg handles DELETE /api/v1/orgs/{org}.
func (s *Server) DropOrg(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "org")

	n, err := s.index.DropOrg(r.Context(), orgID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DropOrgResponse{DocumentsDeleted: n})
}

// EvaluateMessage handles POST /api/v1/messages/evaluate.
func (s *Server) EvaluateMessage(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if domain.NormalizeText(req.Text) == "" {
		writeError(w, http.StatusBadRequest, CodeEmptyInput, "text is required")
		return
	}

	assessment := s.sentiment.Evaluate(r.Context(), req.Text)

	resp := EvaluateResponse{
		Sentiment:      string(assessment.Sentiment),
		Confidence:     assessment.Confidence,
		Priority:       string(assessment.Priority),
		Escalate:       assessment.Escalate,
		Degraded:       assessment.Degraded,
		DegradedReason: assessment.DegradedReason,
	}

	// Degraded verdicts are not recorded: a neutral fallback score would
	// skew the conversation history.
	if req.ConversationID != "" && !assessment.Degraded {
		cls := domain.Classification{
			Label:      assessment.Sentiment,
			Confidence: assessment.Confidence,
		}
		if err := s.trends.Record(r.Context(), req.ConversationID, cls); err != nil {
			s.handleDomainError(w, err)
			return
		}
		tr, err := s.trends.Trend(r.Context(), req.ConversationID)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		resp.Trend = trendToDTO(tr)
	}

	writeJSON(w, http.StatusOK, resp)
}

// ConversationTrend handles GET /api/v1/conversations/{conversation}/trend.
func (s *Server) ConversationTrend(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversation")

	tr, err := s.trends.Trend(r.Context(), conversationID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, trendToDTO(tr))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func trendToDTO(tr domain.ConversationTrend) *TrendResponse {
	return &TrendResponse{
		Trend:      string(tr.Trend),
		RecentAvg:  tr.RecentAvg,
		OverallAvg: tr.OverallAvg,
		Messages:   tr.Messages,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var cte *domain.CrossTenantAccessError
	if errors.As(err, &cte) {
		return cte.Error()
	}

	sentinels := []error{
		domain.ErrEmptyInput,
		domain.ErrInvalidArgument,
		domain.ErrVectorDimMismatch,
		domain.ErrCrossTenantAccess,
		domain.ErrDocumentNotFound,
		domain.ErrEmbeddingBackend,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
