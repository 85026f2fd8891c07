package chi

// ErrorCode is a machine-readable error identifier returned to clients.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeEmptyInput        ErrorCode = "empty_input"
	CodeDocumentNotFound  ErrorCode = "document_not_found"
	CodeCrossTenantAccess ErrorCode = "cross_tenant_access"
	CodeVectorDimMismatch ErrorCode = "vector_dim_mismatch"
	CodeEmbeddingBackend  ErrorCode = "embedding_backend_error"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// IngestRequest submits one document for indexing.
type IngestRequest struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IngestResponse reports a stored document.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Seq        int64  `json:"seq"`
	TokensUsed int    `json:"tokens_used"`
}

// BatchIngestRequest submits multiple documents for indexing.
type BatchIngestRequest struct {
	Documents []IngestRequest `json:"documents"`
}

// BatchIngestResponse reports a batch ingestion. Indices map each stored
// document back to its position in the request.
type BatchIngestResponse struct {
	DocumentIDs []string `json:"document_ids"`
	Indices     []int    `json:"indices"`
	Skipped     int      `json:"skipped"`
	TokensUsed  int      `json:"tokens_used"`
}

// DocumentResponse is one full document.
type DocumentResponse struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Seq      int64             `json:"seq"`
}

// DocumentSummaryItem is one entry in a document listing.
type DocumentSummaryItem struct {
	ID             string            `json:"id"`
	ContentPreview string            `json:"content_preview"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// ListDocumentsResponse is a bounded page of an organization's documents.
type ListDocumentsResponse struct {
	Documents []DocumentSummaryItem `json:"documents"`
	Total     int                   `json:"total"`
}

// SearchRequest runs a semantic search over the organization's documents.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResultItem is one retrieval hit.
type SearchResultItem struct {
	ID         string            `json:"id"`
	Similarity float64           `json:"similarity"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SearchResponse wraps retrieval hits.
type SearchResponse struct {
	Items []SearchResultItem `json:"items"`
	Total int                `json:"total"`
}

// StatsResponse describes one organization's index.
type StatsResponse struct {
	DocumentCount  int    `json:"document_count"`
	CollectionName string `json:"collection_name"`
}

// DropOrgResponse reports an organization wipe.
type DropOrgResponse struct {
	DocumentsDeleted int `json:"documents_deleted"`
}

// EvaluateRequest scores a chat message. ConversationID is optional; when
// set, the score is recorded into the conversation's trend history.
type EvaluateRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Text           string `json:"text"`
}

// EvaluateResponse carries the per-message assessment and, when a
// conversation is tracked, its sentiment trend.
type EvaluateResponse struct {
	Sentiment      string         `json:"sentiment"`
	Confidence     float64        `json:"confidence"`
	Priority       string         `json:"priority"`
	Escalate       bool           `json:"escalate"`
	Degraded       bool           `json:"degraded,omitempty"`
	DegradedReason string         `json:"degraded_reason,omitempty"`
	Trend          *TrendResponse `json:"trend,omitempty"`
}

// TrendResponse summarizes a conversation's sentiment trajectory.
type TrendResponse struct {
	Trend      string  `json:"trend"`
	RecentAvg  float64 `json:"recent_avg"`
	OverallAvg float64 `json:"overall_avg"`
	Messages   int     `json:"messages"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
