package retrieval

import (
	"context"

	"github.com/caredesk-cloud/caredesk/internal/domain"
	"github.com/caredesk-cloud/caredesk/internal/domain/search/result"
)

// Repository runs KNN searches over an organization's index.
type Repository interface {
	SearchKNN(ctx context.Context, orgID string, vector []float32, k int) ([]result.Result, error)
}

// Embedder vectorizes the search query.
type Embedder interface {
	EmbedText(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
