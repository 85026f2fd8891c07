package sentiment

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/caredesk-cloud/caredesk/internal/domain"
	"github.com/caredesk-cloud/caredesk/internal/metrics"
)

// Escalation thresholds.
const (
	highPriorityConfidence = 0.8
	escalationConfidence   = 0.85
)

// criticalKeywords escalate on a single occurrence.
var criticalKeywords = []string{
	"cancel", "refund", "lawsuit", "lawyer", "terrible", "worst",
	"angry", "furious", "manager", "supervisor", "unacceptable",
	"disgusted", "incompetent",
}

// frustrationKeywords escalate when two or more distinct words occur.
var frustrationKeywords = []string{
	"frustrated", "annoyed", "disappointed", "upset",
}

// Service evaluates message sentiment into a priority and escalation verdict.
// A failing sentiment backend never fails the chat path: the service degrades
// to a neutral assessment instead.
type Service struct {
	classifier Classifier
	logger     *zap.Logger
}

// New creates a sentiment service.
func New(classifier Classifier, logger *zap.Logger) *Service {
	return &Service{classifier: classifier, logger: logger}
}

// Evaluate classifies text and derives priority and escalation.
// On backend failure it returns a degraded neutral assessment, never an error.
func (s *Service) Evaluate(ctx context.Context, text string) domain.Assessment {
	cls, err := s.classifier.Classify(ctx, text)
	if err != nil {
		metrics.SentimentFallbacksTotal.Inc()
		s.logger.Warn("Sentiment backend unavailable, serving neutral fallback",
			zap.Error(err),
		)
		return domain.Assessment{
			Sentiment:      domain.LabelNeutral,
			Confidence:     0.5,
			Priority:       domain.PriorityMedium,
			Escalate:       false,
			Degraded:       true,
			DegradedReason: err.Error(),
		}
	}

	reason, escalate := escalationReason(text, cls)
	if escalate {
		metrics.EscalationsTotal.WithLabelValues(reason).Inc()
	}

	return domain.Assessment{
		Sentiment:  cls.Label,
		Confidence: cls.Confidence,
		Priority:   priorityFor(cls),
		Escalate:   escalate,
	}
}

// priorityFor maps a classification to a handling priority.
func priorityFor(cls domain.Classification) domain.Priority {
	if cls.Label == domain.LabelNegative {
		if cls.Confidence > highPriorityConfidence {
			return domain.PriorityHigh
		}
		return domain.PriorityMedium
	}
	return domain.PriorityLow
}

// escalationReason decides whether a message needs escalation and why.
// Keyword matching is case-insensitive substring search.
func escalationReason(text string, cls domain.Classification) (string, bool) {
	if cls.Label == domain.LabelNegative && cls.Confidence > escalationConfidence {
		return "confidence", true
	}

	lower := strings.ToLower(text)

	for _, kw := range criticalKeywords {
		if strings.Contains(lower, kw) {
			return "keyword", true
		}
	}

	distinct := 0
	for _, kw := range frustrationKeywords {
		if strings.Contains(lower, kw) {
			distinct++
		}
	}
	if distinct >= 2 {
		return "frustration", true
	}

	return "", false
}
