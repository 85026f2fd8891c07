// Package trend persists per-conversation sentiment score sequences.
package trend

import (
	"context"
	"fmt"
	"strconv"
)

// store is the consumer interface for score sequences (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Repo stores signed sentiment scores as Redis lists, one per conversation.
type Repo struct {
	store  store
	prefix string
}

// New creates a trend repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Append records a signed score at the end of the conversation's sequence.
func (r *Repo) Append(ctx context.Context, conversationID string, score float64) error {
	val := strconv.FormatFloat(score, 'f', -1, 64)
	if err := r.store.RPush(ctx, r.key(conversationID), val); err != nil {
		return fmt.Errorf("append score %s: %w", conversationID, err)
	}
	return nil
}

// Scores returns the full score sequence in insertion order.
// Unknown conversations report an empty sequence.
func (r *Repo) Scores(ctx context.Context, conversationID string) ([]float64, error) {
	vals, err := r.store.LRange(ctx, r.key(conversationID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("scores %s: %w", conversationID, err)
	}

	scores := make([]float64, 0, len(vals))
	for _, v := range vals {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse score %q for %s: %w", v, conversationID, err)
		}
		scores = append(scores, f)
	}
	return scores, nil
}

func (r *Repo) key(conversationID string) string {
	return fmt.Sprintf("%sconv:%s:scores", r.prefix, conversationID)
}
