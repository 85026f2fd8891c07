package domain

import "context"

// Label is a sentiment classification label.
type Label string

// Sentiment labels.
const (
	LabelPositive Label = "POSITIVE"
	LabelNegative Label = "NEGATIVE"
	LabelNeutral  Label = "NEUTRAL"
)

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	switch l {
	case LabelPositive, LabelNegative, LabelNeutral:
		return true
	}
	return false
}

// Priority is the handling priority assigned to a message.
type Priority string

// Message priorities.
const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Trend is the direction of a conversation's sentiment trajectory.
type Trend string

// Conversation trends.
const (
	TrendImproving        Trend = "IMPROVING"
	TrendDeclining        Trend = "DECLINING"
	TrendStable           Trend = "STABLE"
	TrendInsufficientData Trend = "INSUFFICIENT_DATA"
)

// Classifier is the sentiment inference contract.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// Classification is a raw backend verdict for one message.
type Classification struct {
	Label      Label
	Confidence float64
}

// SignedScore folds label and confidence into a single signed value:
// +confidence for POSITIVE, -confidence for NEGATIVE, 0 for NEUTRAL.
func (c Classification) SignedScore() float64 {
	switch c.Label {
	case LabelPositive:
		return c.Confidence
	case LabelNegative:
		return -c.Confidence
	default:
		return 0
	}
}

// Assessment is the full per-message evaluation returned to the chat path.
type Assessment struct {
	Sentiment      Label
	Confidence     float64
	Priority       Priority
	Escalate       bool
	Degraded       bool
	DegradedReason string
}

// ConversationTrend summarizes a conversation's sentiment trajectory.
type ConversationTrend struct {
	Trend      Trend
	RecentAvg  float64
	OverallAvg float64
	Messages   int
}
