package trend

import (
	"context"
	"testing"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	rpushFn  func(ctx context.Context, key string, values ...string) error
	lrangeFn func(ctx context.Context, key string, start, stop int64) ([]string, error)
}

func (m *mockStore) RPush(ctx context.Context, key string, values ...string) error {
	if m.rpushFn != nil {
		return m.rpushFn(ctx, key, values...)
	}
	return nil
}

func (m *mockStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if m.lrangeFn != nil {
		return m.lrangeFn(ctx, key, start, stop)
	}
	return nil, nil
}

func TestAppend(t *testing.T) {
	ms := &mockStore{}
	var gotKey string
	var gotVals []string
	ms.rpushFn = func(_ context.Context, key string, values ...string) error {
		gotKey = key
		gotVals = values
		return nil
	}

	repo := New(ms, "caredesk:")
	if err := repo.Append(context.Background(), "conv-1", -0.85); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "caredesk:conv:conv-1:scores" {
		t.Errorf("key = %q", gotKey)
	}
	if len(gotVals) != 1 || gotVals[0] != "-0.85" {
		t.Errorf("values = %v", gotVals)
	}
}

func TestScores(t *testing.T) {
	ms := &mockStore{}
	ms.lrangeFn = func(_ context.Context, key string, start, stop int64) ([]string, error) {
		if start != 0 || stop != -1 {
			t.Errorf("range = [%d, %d]", start, stop)
		}
		return []string{"0.9", "-0.8", "0"}, nil
	}

	repo := New(ms, "caredesk:")
	scores, err := repo.Scores(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0.9, -0.8, 0}
	if len(scores) != len(want) {
		t.Fatalf("scores = %v", scores)
	}
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("scores[%d] = %v, want %v", i, scores[i], want[i])
		}
	}
}

func TestScores_Empty(t *testing.T) {
	repo := New(&mockStore{}, "caredesk:")

	scores, err := repo.Scores(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("expected empty, got %v", scores)
	}
}

func TestScores_ParseError(t *testing.T) {
	ms := &mockStore{}
	ms.lrangeFn = func(_ context.Context, _ string, _, _ int64) ([]string, error) {
		return []string{"not-a-number"}, nil
	}

	repo := New(ms, "caredesk:")
	if _, err := repo.Scores(context.Background(), "conv-1"); err == nil {
		t.Fatal("expected error")
	}
}
