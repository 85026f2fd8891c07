package trend

import "context"

// Repository stores per-conversation sentiment score history.
type Repository interface {
	Append(ctx context.Context, conversationID string, score float64) error
	Scores(ctx context.Context, conversationID string) ([]float64, error)
}
