package index

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caredesk-cloud/caredesk/internal/domain"
	domdoc "github.com/caredesk-cloud/caredesk/internal/domain/document"
)

// DefaultMaxBatchSize caps the number of documents accepted in one batch
// ingest.
const DefaultMaxBatchSize = 100

// Item is one document submitted for ingestion.
type Item struct {
	Content  string
	Metadata map[string]string
}

// IngestResult reports a single-document ingestion.
type IngestResult struct {
	DocumentID  string
	Seq         int64
	TotalTokens int
}

// BatchIngestResult reports a batch ingestion. Indices map each stored
// document back to its position in the submitted batch; Skipped counts
// inputs dropped as empty.
type BatchIngestResult struct {
	DocumentIDs []string
	Indices     []int
	Skipped     int
	TotalTokens int
}

// Stats describes one organization's index.
type Stats struct {
	DocumentCount  int
	CollectionName string
}

// DefaultListLimit caps document listings unless the caller asks for less.
const DefaultListLimit = 50

// contentPreviewLen is the number of characters shown per document in listings.
const contentPreviewLen = 100

// DocumentSummary is one entry in a document listing. Content is trimmed to a
// short preview; fetch the document by id for the full text.
type DocumentSummary struct {
	ID             string
	ContentPreview string
	Metadata       map[string]string
}

// DocumentList is a bounded page of an organization's documents. Total is the
// full document count, independent of the page size.
type DocumentList struct {
	Documents []DocumentSummary
	Total     int
}

// Service handles document ingestion with automatic vectorization and
// ownership tracking.
type Service struct {
	repo         Repository
	ownership    Ownership
	embedder     Embedder
	vectorDim    int
	maxBatchSize int
	logger       *zap.Logger
}

// New creates an index service.
func New(repo Repository, ownership Ownership, embedder Embedder, vectorDim int, logger *zap.Logger) *Service {
	return &Service{
		repo:         repo,
		ownership:    ownership,
		embedder:     embedder,
		vectorDim:    vectorDim,
		maxBatchSize: DefaultMaxBatchSize,
		logger:       logger,
	}
}

// WithMaxBatchSize overrides the batch ingest cap.
func (s *Service) WithMaxBatchSize(n int) *Service {
	if n > 0 {
		s.maxBatchSize = n
	}
	return s
}

// Ingest vectorizes and stores one document under the organization's index.
// The organization_id metadata field is always overwritten with orgID.
func (s *Service) Ingest(ctx context.Context, orgID, content string, metadata map[string]string) (IngestResult, error) {
	normalized := domain.NormalizeText(content)
	if normalized == "" {
		return IngestResult{}, fmt.Errorf("ingest: %w", domain.ErrEmptyInput)
	}

	if err := s.repo.EnsureIndex(ctx, orgID); err != nil {
		return IngestResult{}, fmt.Errorf("ensure index: %w", err)
	}

	embRes, err := s.embedder.EmbedText(ctx, normalized)
	if err != nil {
		return IngestResult{}, fmt.Errorf("vectorize document: %w", err)
	}
	if err := s.checkDim(embRes.Embedding); err != nil {
		return IngestResult{}, err
	}

	doc, err := s.buildDocument(ctx, orgID, normalized, metadata, embRes.Embedding)
	if err != nil {
		return IngestResult{}, err
	}

	if err := s.repo.Upsert(ctx, orgID, &doc); err != nil {
		return IngestResult{}, fmt.Errorf("upsert document: %w", err)
	}
	if err := s.ownership.Claim(ctx, doc.ID(), orgID); err != nil {
		return IngestResult{}, fmt.Errorf("claim ownership: %w", err)
	}

	return IngestResult{
		DocumentID:  doc.ID(),
		Seq:         doc.Seq(),
		TotalTokens: embRes.TotalTokens,
	}, nil
}

// IngestBatch vectorizes and stores multiple documents in one embedding call.
// Empty documents are skipped; a batch with nothing left returns
// domain.ErrEmptyInput.
func (s *Service) IngestBatch(ctx context.Context, orgID string, items []Item) (BatchIngestResult, error) {
	if len(items) > s.maxBatchSize {
		return BatchIngestResult{}, fmt.Errorf(
			"batch too large: %d items (max %d): %w",
			len(items), s.maxBatchSize, domain.ErrInvalidArgument)
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Content
	}

	embRes, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return BatchIngestResult{}, fmt.Errorf("vectorize batch: %w", err)
	}

	if err := s.repo.EnsureIndex(ctx, orgID); err != nil {
		return BatchIngestResult{}, fmt.Errorf("ensure index: %w", err)
	}

	docs := make([]domdoc.Document, 0, len(embRes.Embeddings))
	ids := make([]string, 0, len(embRes.Embeddings))
	for j, origIdx := range embRes.Indices {
		if err := s.checkDim(embRes.Embeddings[j]); err != nil {
			return BatchIngestResult{}, err
		}
		item := items[origIdx]
		doc, buildErr := s.buildDocument(ctx, orgID,
			domain.NormalizeText(item.Content), item.Metadata, embRes.Embeddings[j])
		if buildErr != nil {
			return BatchIngestResult{}, buildErr
		}
		docs = append(docs, doc)
		ids = append(ids, doc.ID())
	}

	if err := s.repo.UpsertMulti(ctx, orgID, docs); err != nil {
		return BatchIngestResult{}, fmt.Errorf("upsert batch: %w", err)
	}
	if err := s.ownership.ClaimMulti(ctx, ids, orgID); err != nil {
		return BatchIngestResult{}, fmt.Errorf("claim ownership: %w", err)
	}

	skipped := len(items) - len(docs)
	if skipped > 0 {
		s.logger.Info("Skipped empty documents in batch",
			zap.String("org_id", orgID),
			zap.Int("skipped", skipped),
		)
	}

	return BatchIngestResult{
		DocumentIDs: ids,
		Indices:     embRes.Indices,
		Skipped:     skipped,
		TotalTokens: embRes.TotalTokens,
	}, nil
}

// Delete removes a document after verifying it belongs to the organization.
// An unknown document id is a no-op. A document owned by another organization
// yields a cross-tenant access error, regardless of whether the caller could
// see it.
func (s *Service) Delete(ctx context.Context, orgID, docID string) error {
	owner, err := s.ownership.Owner(ctx, docID)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		s.logger.Debug("delete of unknown document ignored",
			zap.String("org_id", orgID), zap.String("doc_id", docID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}
	if owner != orgID {
		return domain.NewCrossTenantAccess(docID)
	}

	if err := s.repo.Delete(ctx, orgID, docID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := s.ownership.Release(ctx, docID); err != nil {
		return fmt.Errorf("release ownership: %w", err)
	}
	return nil
}

// GetDocument loads one document with its full content and metadata. Keys are
// org-scoped, so another tenant's id reads as domain.ErrDocumentNotFound.
func (s *Service) GetDocument(ctx context.Context, orgID, docID string) (domdoc.Document, error) {
	doc, err := s.repo.Get(ctx, orgID, docID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns up to limit document summaries for an organization,
// sorted by id. limit <= 0 falls back to DefaultListLimit.
func (s *Service) ListDocuments(ctx context.Context, orgID string, limit int) (DocumentList, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	ids, err := s.repo.DocumentIDs(ctx, orgID)
	if err != nil {
		return DocumentList{}, fmt.Errorf("list documents: %w", err)
	}
	sort.Strings(ids)

	total := len(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	summaries := make([]DocumentSummary, 0, len(ids))
	for _, id := range ids {
		doc, err := s.repo.Get(ctx, orgID, id)
		if errors.Is(err, domain.ErrDocumentNotFound) {
			// Deleted between the scan and the read.
			continue
		}
		if err != nil {
			return DocumentList{}, fmt.Errorf("get document %s: %w", id, err)
		}
		summaries = append(summaries, DocumentSummary{
			ID:             doc.ID(),
			ContentPreview: previewContent(doc.Content()),
			Metadata:       doc.Metadata(),
		})
	}

	return DocumentList{Documents: summaries, Total: total}, nil
}

// previewContent trims content to contentPreviewLen runes with an ellipsis.
func previewContent(content string) string {
	runes := []rune(content)
	if len(runes) <= contentPreviewLen {
		return content
	}
	return string(runes[:contentPreviewLen]) + "..."
}

// Stats returns document count and index name for an organization.
func (s *Service) Stats(ctx context.Context, orgID string) (Stats, error) {
	count, err := s.repo.Count(ctx, orgID)
	if err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	return Stats{
		DocumentCount:  count,
		CollectionName: s.repo.IndexName(orgID),
	}, nil
}

// DropOrg removes the organization's index, documents, and ownership
// records. Returns the number of documents removed.
func (s *Service) DropOrg(ctx context.Context, orgID string) (int, error) {
	ids, err := s.repo.DocumentIDs(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}

	n, err := s.repo.DropOrg(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("drop org: %w", err)
	}

	if err := s.ownership.Release(ctx, ids...); err != nil {
		return 0, fmt.Errorf("release ownership: %w", err)
	}

	s.logger.Info("Dropped organization index",
		zap.String("org_id", orgID),
		zap.Int("documents", n),
	)
	return n, nil
}

// buildDocument assembles a stored document: fresh ID, forced
// organization_id, vector, and the next sequence number.
func (s *Service) buildDocument(
	ctx context.Context, orgID, content string, metadata map[string]string, vector []float32,
) (domdoc.Document, error) {
	id := "doc_" + uuid.NewString()

	doc, err := domdoc.New(id, content, metadata)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("build document: %w", err)
	}
	doc.SetMetadataField("organization_id", orgID)

	seq, err := s.repo.NextSeq(ctx, orgID)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("next seq: %w", err)
	}

	return doc.WithVector(vector).WithSeq(seq), nil
}

func (s *Service) checkDim(vec []float32) error {
	if s.vectorDim > 0 && len(vec) != s.vectorDim {
		return fmt.Errorf("vector dimension mismatch: got %d, want %d: %w",
			len(vec), s.vectorDim, domain.ErrVectorDimMismatch)
	}
	return nil
}
