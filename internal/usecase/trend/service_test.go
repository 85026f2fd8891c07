package trend

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/caredesk-cloud/caredesk/internal/domain"
)

type mockRepo struct {
	scores    []float64
	scoresErr error
	appended  []float64
	appendErr error
}

func (m *mockRepo) Append(_ context.Context, _ string, score float64) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appended = append(m.appended, score)
	return nil
}

func (m *mockRepo) Scores(_ context.Context, _ string) ([]float64, error) {
	return m.scores, m.scoresErr
}

func newTestService(repo *mockRepo) *Service {
	return New(repo, zap.NewNop())
}

func TestRecord_SignedScores(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	cases := []struct {
		cls  domain.Classification
		want float64
	}{
		{domain.Classification{Label: domain.LabelPositive, Confidence: 0.9}, 0.9},
		{domain.Classification{Label: domain.LabelNegative, Confidence: 0.7}, -0.7},
		{domain.Classification{Label: domain.LabelNeutral, Confidence: 0.95}, 0},
	}
	for _, c := range cases {
		if err := svc.Record(ctx, "conv-1", c.cls); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for i, c := range cases {
		if repo.appended[i] != c.want {
			t.Errorf("appended[%d] = %v, want %v", i, repo.appended[i], c.want)
		}
	}
}

func TestTrend_InsufficientData(t *testing.T) {
	for _, scores := range [][]float64{nil, {0.9}} {
		repo := &mockRepo{scores: scores}
		svc := newTestService(repo)

		tr, err := svc.Trend(context.Background(), "conv-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.Trend != domain.TrendInsufficientData {
			t.Errorf("trend = %q for %d scores", tr.Trend, len(scores))
		}
		if tr.Messages != len(scores) {
			t.Errorf("messages = %d", tr.Messages)
		}
	}
}

func TestTrend_Improving(t *testing.T) {
	repo := &mockRepo{scores: []float64{-0.9, -0.8, 0.9, 0.9, 0.9}}
	svc := newTestService(repo)

	tr, err := svc.Trend(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Trend != domain.TrendImproving {
		t.Errorf("trend = %q, want IMPROVING", tr.Trend)
	}
	if math.Abs(tr.RecentAvg-0.9) > 1e-9 {
		t.Errorf("recent avg = %v", tr.RecentAvg)
	}
	if math.Abs(tr.OverallAvg-0.2) > 1e-9 {
		t.Errorf("overall avg = %v", tr.OverallAvg)
	}
}

func TestTrend_Declining(t *testing.T) {
	repo := &mockRepo{scores: []float64{0.9, 0.8, -0.9, -0.9, -0.9}}
	svc := newTestService(repo)

	tr, err := svc.Trend(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Trend != domain.TrendDeclining {
		t.Errorf("trend = %q, want DECLINING", tr.Trend)
	}
}

func TestTrend_VolatileHistoryIsStable(t *testing.T) {
	// recent swing stays inside the band around the overall average
	repo := &mockRepo{scores: []float64{0.9, -0.9, -0.8, 0.7, 0.9}}
	svc := newTestService(repo)

	tr, err := svc.Trend(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Trend != domain.TrendStable {
		t.Errorf("trend = %q, want STABLE", tr.Trend)
	}
	if tr.Messages != 5 {
		t.Errorf("messages = %d", tr.Messages)
	}
}

func TestTrend_TwoMessagesIsStable(t *testing.T) {
	// window covers the whole history, recent == overall
	repo := &mockRepo{scores: []float64{-0.9, 0.9}}
	svc := newTestService(repo)

	tr, err := svc.Trend(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Trend != domain.TrendStable {
		t.Errorf("trend = %q, want STABLE", tr.Trend)
	}
}

func TestTrend_RepoError(t *testing.T) {
	repo := &mockRepo{scoresErr: errors.New("store down")}
	svc := newTestService(repo)

	if _, err := svc.Trend(context.Background(), "conv-1"); err == nil {
		t.Fatal("expected error")
	}
}
