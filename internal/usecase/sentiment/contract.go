package sentiment

import (
	"context"

	"github.com/caredesk-cloud/caredesk/internal/domain"
)

// Classifier scores the sentiment of a single message.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Classification, error)
}
