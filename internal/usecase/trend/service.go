package trend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/caredesk-cloud/caredesk/internal/domain"
)

const (
	// recentWindow is the number of trailing scores compared against the
	// whole history.
	recentWindow = 3
	// trendBand is the dead zone around the overall average inside which a
	// conversation counts as stable.
	trendBand = 0.2
)

// Service tracks per-conversation sentiment trajectories.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// New creates a trend service.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record appends the signed score of a classification to the conversation
// history.
func (s *Service) Record(ctx context.Context, conversationID string, cls domain.Classification) error {
	if err := s.repo.Append(ctx, conversationID, cls.SignedScore()); err != nil {
		return fmt.Errorf("append score: %w", err)
	}
	return nil
}

// Trend classifies the conversation's sentiment trajectory. Fewer than two
// recorded scores yields INSUFFICIENT_DATA.
func (s *Service) Trend(ctx context.Context, conversationID string) (domain.ConversationTrend, error) {
	scores, err := s.repo.Scores(ctx, conversationID)
	if err != nil {
		return domain.ConversationTrend{}, fmt.Errorf("load scores: %w", err)
	}

	n := len(scores)
	if n < 2 {
		return domain.ConversationTrend{
			Trend:    domain.TrendInsufficientData,
			Messages: n,
		}, nil
	}

	overall := mean(scores)
	window := recentWindow
	if window > n {
		window = n
	}
	recent := mean(scores[n-window:])

	direction := domain.TrendStable
	switch {
	case recent > overall+trendBand:
		direction = domain.TrendImproving
	case recent < overall-trendBand:
		direction = domain.TrendDeclining
	}

	return domain.ConversationTrend{
		Trend:      direction,
		RecentAvg:  recent,
		OverallAvg: overall,
		Messages:   n,
	}, nil
}

func mean(scores []float64) float64 {
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
