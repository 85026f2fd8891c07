package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/caredesk-cloud/caredesk/internal/domain"
)

// Service is the embedding gateway. It normalizes input and rejects empty
// text before any backend call is made.
type Service struct {
	embedder domain.Embedder
	logger   *zap.Logger
}

// New creates an embedding gateway.
func New(embedder domain.Embedder, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, logger: logger}
}

// EmbedText normalizes and vectorizes a single text.
// Text that is empty after normalization returns domain.ErrEmptyInput.
func (s *Service) EmbedText(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	normalized := domain.NormalizeText(text)
	if normalized == "" {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", domain.ErrEmptyInput)
	}

	result, err := s.embedder.Embed(ctx, normalized)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	return result, nil
}

// EmbedBatch normalizes each text and vectorizes the non-empty ones.
// The returned Indices map each embedding back to its position in texts,
// so callers can tell which inputs were dropped as empty. A batch with no
// non-empty texts returns domain.ErrEmptyInput.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	surviving := make([]string, 0, len(texts))
	original := make([]int, 0, len(texts))
	for i, text := range texts {
		normalized := domain.NormalizeText(text)
		if normalized == "" {
			continue
		}
		surviving = append(surviving, normalized)
		original = append(original, i)
	}

	if len(surviving) == 0 {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed batch: %w", domain.ErrEmptyInput)
	}

	if dropped := len(texts) - len(surviving); dropped > 0 {
		s.logger.Debug("Dropped empty texts from batch",
			zap.Int("dropped", dropped),
			zap.Int("surviving", len(surviving)),
		)
	}

	result, err := s.batchEmbed(ctx, surviving)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed batch: %w", err)
	}

	// Remap inner indices (positions within surviving) to caller positions.
	indices := make([]int, len(result.Indices))
	for j, k := range result.Indices {
		indices[j] = original[k]
	}
	result.Indices = indices

	return result, nil
}

func (s *Service) batchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := s.embedder.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, s.embedder, texts)
}
