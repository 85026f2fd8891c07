package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/caredesk-cloud/caredesk/internal/domain"
	domdoc "github.com/caredesk-cloud/caredesk/internal/domain/document"
)

// --- Mocks ---

type mockRepo struct {
	ensureErr    error
	seq          int64
	seqErr       error
	upserted     []domdoc.Document
	upsertErr    error
	deleteErr    error
	countResult  int
	countErr     error
	docIDs       []string
	docs         map[string]domdoc.Document
	dropCount    int
	dropErr      error
	ensureCalls  int
	deletedDocID string
}

func (m *mockRepo) EnsureIndex(_ context.Context, _ string) error {
	m.ensureCalls++
	return m.ensureErr
}

func (m *mockRepo) NextSeq(_ context.Context, _ string) (int64, error) {
	if m.seqErr != nil {
		return 0, m.seqErr
	}
	m.seq++
	return m.seq, nil
}

func (m *mockRepo) Upsert(_ context.Context, _ string, doc *domdoc.Document) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, *doc)
	return nil
}

func (m *mockRepo) UpsertMulti(_ context.Context, _ string, docs []domdoc.Document) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, docs...)
	return nil
}

func (m *mockRepo) Get(_ context.Context, _, docID string) (domdoc.Document, error) {
	doc, ok := m.docs[docID]
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *mockRepo) Delete(_ context.Context, _, docID string) error {
	m.deletedDocID = docID
	return m.deleteErr
}

func (m *mockRepo) Count(_ context.Context, _ string) (int, error) {
	return m.countResult, m.countErr
}

func (m *mockRepo) DocumentIDs(_ context.Context, _ string) ([]string, error) {
	return m.docIDs, nil
}

func (m *mockRepo) DropOrg(_ context.Context, _ string) (int, error) {
	return m.dropCount, m.dropErr
}

func (m *mockRepo) IndexName(orgID string) string {
	return "caredesk:org:" + orgID + ":idx"
}

type mockOwnership struct {
	claims    map[string]string
	ownerOf   map[string]string
	released  []string
	claimErr  error
	ownerErr  error
	releaseFn func(docIDs ...string) error
}

func newMockOwnership() *mockOwnership {
	return &mockOwnership{claims: map[string]string{}, ownerOf: map[string]string{}}
}

func (m *mockOwnership) Claim(_ context.Context, docID, orgID string) error {
	if m.claimErr != nil {
		return m.claimErr
	}
	m.claims[docID] = orgID
	return nil
}

func (m *mockOwnership) ClaimMulti(_ context.Context, docIDs []string, orgID string) error {
	if m.claimErr != nil {
		return m.claimErr
	}
	for _, id := range docIDs {
		m.claims[id] = orgID
	}
	return nil
}

func (m *mockOwnership) Owner(_ context.Context, docID string) (string, error) {
	if m.ownerErr != nil {
		return "", m.ownerErr
	}
	owner, ok := m.ownerOf[docID]
	if !ok {
		return "", domain.ErrDocumentNotFound
	}
	return owner, nil
}

func (m *mockOwnership) Release(_ context.Context, docIDs ...string) error {
	if m.releaseFn != nil {
		return m.releaseFn(docIDs...)
	}
	m.released = append(m.released, docIDs...)
	return nil
}

type mockEmbedder struct {
	dim      int
	tokens   int
	embedErr error
	batchErr error
}

func (m *mockEmbedder) EmbedText(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedErr != nil {
		return domain.EmbeddingResult{}, m.embedErr
	}
	if domain.NormalizeText(text) == "" {
		return domain.EmbeddingResult{}, domain.ErrEmptyInput
	}
	return domain.EmbeddingResult{Embedding: make([]float32, m.dim), TotalTokens: m.tokens}, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	var embeddings [][]float32
	var indices []int
	for i, t := range texts {
		if domain.NormalizeText(t) == "" {
			continue
		}
		embeddings = append(embeddings, make([]float32, m.dim))
		indices = append(indices, i)
	}
	if len(embeddings) == 0 {
		return domain.BatchEmbeddingResult{}, domain.ErrEmptyInput
	}
	return domain.BatchEmbeddingResult{
		Embeddings:  embeddings,
		Indices:     indices,
		TotalTokens: m.tokens * len(embeddings),
	}, nil
}

func newTestService(repo *mockRepo, own *mockOwnership, emb *mockEmbedder) *Service {
	return New(repo, own, emb, emb.dim, zap.NewNop())
}

// --- Ingest tests ---

func TestIngest_Success(t *testing.T) {
	repo := &mockRepo{}
	own := newMockOwnership()
	emb := &mockEmbedder{dim: 8, tokens: 11}
	svc := newTestService(repo, own, emb)

	res, err := svc.Ingest(context.Background(), "org-1", "How do I reset my password?",
		map[string]string{"source": "faq"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(res.DocumentID, "doc_") {
		t.Errorf("document ID = %q", res.DocumentID)
	}
	if res.Seq != 1 {
		t.Errorf("seq = %d", res.Seq)
	}
	if res.TotalTokens != 11 {
		t.Errorf("tokens = %d", res.TotalTokens)
	}
	if repo.ensureCalls != 1 {
		t.Errorf("ensure calls = %d", repo.ensureCalls)
	}
	if len(repo.upserted) != 1 {
		t.Fatalf("upserted = %d docs", len(repo.upserted))
	}
	doc := repo.upserted[0]
	if doc.Metadata()["organization_id"] != "org-1" {
		t.Errorf("organization_id = %q", doc.Metadata()["organization_id"])
	}
	if doc.Metadata()["source"] != "faq" {
		t.Errorf("source = %q", doc.Metadata()["source"])
	}
	if own.claims[res.DocumentID] != "org-1" {
		t.Errorf("ownership not claimed: %v", own.claims)
	}
}

func TestIngest_OverwritesOrganizationID(t *testing.T) {
	repo := &mockRepo{}
	own := newMockOwnership()
	emb := &mockEmbedder{dim: 4}
	svc := newTestService(repo, own, emb)

	_, err := svc.Ingest(context.Background(), "org-1", "content",
		map[string]string{"organization_id": "org-spoofed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.upserted[0].Metadata()["organization_id"] != "org-1" {
		t.Errorf("organization_id = %q, spoofed value must be overwritten",
			repo.upserted[0].Metadata()["organization_id"])
	}
}

func TestIngest_EmptyContent(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, newMockOwnership(), &mockEmbedder{dim: 4})

	_, err := svc.Ingest(context.Background(), "org-1", "   \n ", nil)
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
	if repo.ensureCalls != 0 {
		t.Errorf("index should not be touched for empty input")
	}
}

func TestIngest_EmbedError(t *testing.T) {
	svc := newTestService(&mockRepo{}, newMockOwnership(),
		&mockEmbedder{dim: 4, embedErr: domain.ErrEmbeddingBackend})

	_, err := svc.Ingest(context.Background(), "org-1", "content", nil)
	if !errors.Is(err, domain.ErrEmbeddingBackend) {
		t.Errorf("expected ErrEmbeddingBackend, got %v", err)
	}
}

func TestIngest_DimMismatch(t *testing.T) {
	repo := &mockRepo{}
	emb := &mockEmbedder{dim: 4}
	svc := New(repo, newMockOwnership(), emb, 8, zap.NewNop())

	_, err := svc.Ingest(context.Background(), "org-1", "content", nil)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}

// --- IngestBatch tests ---

func TestIngestBatch_SkipsEmpties(t *testing.T) {
	repo := &mockRepo{}
	own := newMockOwnership()
	emb := &mockEmbedder{dim: 4, tokens: 2}
	svc := newTestService(repo, own, emb)

	res, err := svc.IngestBatch(context.Background(), "org-1", []Item{
		{Content: "A"},
		{Content: "   "},
		{Content: "B"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.DocumentIDs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(res.DocumentIDs))
	}
	if res.Skipped != 1 {
		t.Errorf("skipped = %d", res.Skipped)
	}
	if len(res.Indices) != 2 || res.Indices[0] != 0 || res.Indices[1] != 2 {
		t.Errorf("indices = %v, want [0 2]", res.Indices)
	}
	if len(repo.upserted) != 2 {
		t.Errorf("upserted = %d", len(repo.upserted))
	}
	for _, id := range res.DocumentIDs {
		if own.claims[id] != "org-1" {
			t.Errorf("ownership not claimed for %s", id)
		}
	}
}

func TestIngestBatch_AllEmpty(t *testing.T) {
	svc := newTestService(&mockRepo{}, newMockOwnership(), &mockEmbedder{dim: 4})

	_, err := svc.IngestBatch(context.Background(), "org-1", []Item{{Content: ""}, {Content: " "}})
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestIngestBatch_TooLarge(t *testing.T) {
	svc := newTestService(&mockRepo{}, newMockOwnership(), &mockEmbedder{dim: 4}).
		WithMaxBatchSize(2)

	items := []Item{{Content: "a"}, {Content: "b"}, {Content: "c"}}
	_, err := svc.IngestBatch(context.Background(), "org-1", items)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestIngestBatch_SequencesAssigned(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, newMockOwnership(), &mockEmbedder{dim: 4})

	_, err := svc.IngestBatch(context.Background(), "org-1", []Item{{Content: "a"}, {Content: "b"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.upserted[0].Seq() != 1 || repo.upserted[1].Seq() != 2 {
		t.Errorf("seqs = %d, %d", repo.upserted[0].Seq(), repo.upserted[1].Seq())
	}
}

// --- Delete tests ---

func TestDelete_Success(t *testing.T) {
	repo := &mockRepo{}
	own := newMockOwnership()
	own.ownerOf["doc-1"] = "org-1"
	svc := newTestService(repo, own, &mockEmbedder{dim: 4})

	if err := svc.Delete(context.Background(), "org-1", "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.deletedDocID != "doc-1" {
		t.Errorf("deleted = %q", repo.deletedDocID)
	}
	if len(own.released) != 1 || own.released[0] != "doc-1" {
		t.Errorf("released = %v", own.released)
	}
}

func TestDelete_CrossTenant(t *testing.T) {
	repo := &mockRepo{}
	own := newMockOwnership()
	own.ownerOf["doc-1"] = "org-2"
	svc := newTestService(repo, own, &mockEmbedder{dim: 4})

	err := svc.Delete(context.Background(), "org-1", "doc-1")
	if !errors.Is(err, domain.ErrCrossTenantAccess) {
		t.Fatalf("expected ErrCrossTenantAccess, got %v", err)
	}
	if repo.deletedDocID != "" {
		t.Error("document must not be deleted on cross-tenant access")
	}
}

func TestDelete_UnknownIsNoop(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, newMockOwnership(), &mockEmbedder{dim: 4})

	err := svc.Delete(context.Background(), "org-1", "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.deletedDocID != "" {
		t.Errorf("storage delete should not run for an unknown id, got %q", repo.deletedDocID)
	}
}

// --- GetDocument / ListDocuments tests ---

func TestGetDocument_Success(t *testing.T) {
	repo := &mockRepo{docs: map[string]domdoc.Document{
		"doc-1": domdoc.Reconstruct("doc-1", "full content here",
			map[string]string{"organization_id": "org-1", "source": "faq"}, nil, 3),
	}}
	svc := newTestService(repo, newMockOwnership(), &mockEmbedder{dim: 4})

	doc, err := svc.GetDocument(context.Background(), "org-1", "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Content() != "full content here" {
		t.Errorf("content = %q", doc.Content())
	}
	if doc.Metadata()["source"] != "faq" {
		t.Errorf("source = %q", doc.Metadata()["source"])
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	svc := newTestService(&mockRepo{}, newMockOwnership(), &mockEmbedder{dim: 4})

	_, err := svc.GetDocument(context.Background(), "org-1", "ghost")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestListDocuments_PreviewAndTotal(t *testing.T) {
	long := strings.Repeat("x", 150)
	repo := &mockRepo{
		docIDs: []string{"doc-b", "doc-a"},
		docs: map[string]domdoc.Document{
			"doc-a": domdoc.Reconstruct("doc-a", "short", map[string]string{"source": "faq"}, nil, 1),
			"doc-b": domdoc.Reconstruct("doc-b", long, nil, nil, 2),
		},
	}
	svc := newTestService(repo, newMockOwnership(), &mockEmbedder{dim: 4})

	list, err := svc.ListDocuments(context.Background(), "org-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.Total != 2 {
		t.Errorf("total = %d", list.Total)
	}
	if len(list.Documents) != 2 {
		t.Fatalf("documents = %d", len(list.Documents))
	}
	if list.Documents[0].ID != "doc-a" || list.Documents[1].ID != "doc-b" {
		t.Errorf("listing must be sorted by id, got %q, %q",
			list.Documents[0].ID, list.Documents[1].ID)
	}
	if list.Documents[0].ContentPreview != "short" {
		t.Errorf("short content must not be truncated, got %q", list.Documents[0].ContentPreview)
	}
	want := strings.Repeat("x", 100) + "..."
	if list.Documents[1].ContentPreview != want {
		t.Errorf("preview = %q", list.Documents[1].ContentPreview)
	}
}

func TestListDocuments_LimitKeepsTotal(t *testing.T) {
	repo := &mockRepo{
		docIDs: []string{"doc-1", "doc-2", "doc-3"},
		docs: map[string]domdoc.Document{
			"doc-1": domdoc.Reconstruct("doc-1", "a", nil, nil, 1),
			"doc-2": domdoc.Reconstruct("doc-2", "b", nil, nil, 2),
			"doc-3": domdoc.Reconstruct("doc-3", "c", nil, nil, 3),
		},
	}
	svc := newTestService(repo, newMockOwnership(), &mockEmbedder{dim: 4})

	list, err := svc.ListDocuments(context.Background(), "org-1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Documents) != 2 {
		t.Errorf("documents = %d, want limit applied", len(list.Documents))
	}
	if list.Total != 3 {
		t.Errorf("total = %d, must count beyond the page", list.Total)
	}
}

func TestListDocuments_SkipsConcurrentlyDeleted(t *testing.T) {
	repo := &mockRepo{
		docIDs: []string{"doc-1", "doc-2"},
		docs: map[string]domdoc.Document{
			"doc-2": domdoc.Reconstruct("doc-2", "b", nil, nil, 2),
		},
	}
	svc := newTestService(repo, newMockOwnership(), &mockEmbedder{dim: 4})

	list, err := svc.ListDocuments(context.Background(), "org-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Documents) != 1 || list.Documents[0].ID != "doc-2" {
		t.Errorf("documents = %+v", list.Documents)
	}
}

// --- Stats / DropOrg tests ---

func TestStats(t *testing.T) {
	repo := &mockRepo{countResult: 42}
	svc := newTestService(repo, newMockOwnership(), &mockEmbedder{dim: 4})

	stats, err := svc.Stats(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.DocumentCount != 42 {
		t.Errorf("count = %d", stats.DocumentCount)
	}
	if stats.CollectionName != "caredesk:org:org-1:idx" {
		t.Errorf("collection = %q", stats.CollectionName)
	}
}

func TestDropOrg(t *testing.T) {
	repo := &mockRepo{docIDs: []string{"a", "b"}, dropCount: 2}
	own := newMockOwnership()
	svc := newTestService(repo, own, &mockEmbedder{dim: 4})

	n, err := svc.DropOrg(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("dropped = %d", n)
	}
	if len(own.released) != 2 {
		t.Errorf("released = %v", own.released)
	}
}
