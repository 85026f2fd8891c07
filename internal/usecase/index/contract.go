package index

import (
	"context"

	"github.com/caredesk-cloud/caredesk/internal/domain"
	domdoc "github.com/caredesk-cloud/caredesk/internal/domain/document"
)

// Repository defines the storage contract for per-organization document
// indexes.
type Repository interface {
	EnsureIndex(ctx context.Context, orgID string) error
	NextSeq(ctx context.Context, orgID string) (int64, error)
	Upsert(ctx context.Context, orgID string, doc *domdoc.Document) error
	UpsertMulti(ctx context.Context, orgID string, docs []domdoc.Document) error
	Get(ctx context.Context, orgID, docID string) (domdoc.Document, error)
	Delete(ctx context.Context, orgID, docID string) error
	Count(ctx context.Context, orgID string) (int, error)
	DocumentIDs(ctx context.Context, orgID string) ([]string, error)
	DropOrg(ctx context.Context, orgID string) (int, error)
	IndexName(orgID string) string
}

// Ownership is the global document-to-organization registry.
type Ownership interface {
	Claim(ctx context.Context, docID, orgID string) error
	ClaimMulti(ctx context.Context, docIDs []string, orgID string) error
	Owner(ctx context.Context, docID string) (string, error)
	Release(ctx context.Context, docIDs ...string) error
}

// Embedder vectorizes normalized text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) (domain.EmbeddingResult, error)
	EmbedBatch(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
