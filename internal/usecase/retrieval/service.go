package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/caredesk-cloud/caredesk/internal/domain"
	"github.com/caredesk-cloud/caredesk/internal/domain/search/result"
)

// Service orchestrates semantic retrieval: query vectorization, KNN search,
// and deterministic ordering.
type Service struct {
	repo        Repository
	embedder    Embedder
	defaultTopK int
	maxTopK     int
	logger      *zap.Logger
}

// New creates a retrieval service.
func New(repo Repository, embedder Embedder, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		embedder:    embedder,
		defaultTopK: 5,
		maxTopK:     100,
		logger:      logger,
	}
}

// WithTopKLimits configures the default and maximum result counts.
func (s *Service) WithTopKLimits(defaultTopK, maxTopK int) *Service {
	if defaultTopK > 0 {
		s.defaultTopK = defaultTopK
	}
	if maxTopK > 0 {
		s.maxTopK = maxTopK
	}
	return s
}

// Search embeds the query and returns the organization's top-k matches
// ordered by similarity, with insertion order as the tie-break. topK 0 means
// "use the default"; a negative topK is rejected. An organization with no
// indexed documents gets an empty result, not an error.
func (s *Service) Search(ctx context.Context, orgID, query string, topK int) ([]result.Result, error) {
	if topK < 0 {
		return nil, fmt.Errorf("top_k must be positive: %w", domain.ErrInvalidArgument)
	}
	if topK == 0 {
		topK = s.defaultTopK
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}

	embRes, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	results, err := s.repo.SearchKNN(ctx, orgID, embRes.Embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	// Similarity descending, then insertion order ascending for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity() != results[j].Similarity() {
			return results[i].Similarity() > results[j].Similarity()
		}
		return results[i].Seq() < results[j].Seq()
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}
