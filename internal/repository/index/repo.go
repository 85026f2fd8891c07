package index

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/caredesk-cloud/caredesk/internal/db"
	"github.com/caredesk-cloud/caredesk/internal/domain"
	domdoc "github.com/caredesk-cloud/caredesk/internal/domain/document"
	"github.com/caredesk-cloud/caredesk/internal/domain/search/result"
)

// store is the consumer interface for per-organization indexes (ISP).
//
//nolint:interfacebloat // index repo needs hash + counter + index management operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// HNSWConfig holds HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo manages one FT index and document hash set per organization.
type Repo struct {
	store     store
	prefix    string
	vectorDim int
	hnsw      HNSWConfig
}

// New creates an index repository.
func New(s store, prefix string, vectorDim int) *Repo {
	return &Repo{store: s, prefix: prefix, vectorDim: vectorDim, hnsw: HNSWConfig{M: 32, EFConstruct: 400}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// EnsureIndex creates the organization's FT index if it does not exist yet.
// Concurrent creation races collapse into success.
func (r *Repo) EnsureIndex(ctx context.Context, orgID string) error {
	name := r.IndexName(orgID)

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     name,
		Prefixes: []string{r.docPrefix(orgID)},
		Fields: []db.IndexField{
			{Name: "organization_id", Type: db.IndexFieldTag},
			{
				Name:              "__vector",
				Alias:             "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// NextSeq returns the next insertion sequence number for an organization.
func (r *Repo) NextSeq(ctx context.Context, orgID string) (int64, error) {
	n, err := r.store.IncrBy(ctx, r.seqKey(orgID), 1)
	if err != nil {
		return 0, fmt.Errorf("next seq %s: %w", orgID, err)
	}
	return n, nil
}

// Upsert stores a single document hash.
func (r *Repo) Upsert(ctx context.Context, orgID string, doc *domdoc.Document) error {
	key := r.docKey(orgID, doc.ID())
	if err := r.store.HSet(ctx, key, buildHashFields(doc)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// UpsertMulti stores multiple document hashes in one pipelined round-trip.
func (r *Repo) UpsertMulti(ctx context.Context, orgID string, docs []domdoc.Document) error {
	if len(docs) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(docs))
	for i := range docs {
		items[i] = db.HashSetItem{
			Key:    r.docKey(orgID, docs[i].ID()),
			Fields: buildHashFields(&docs[i]),
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset multi %s: %w", orgID, err)
	}
	return nil
}

// Get loads a single document hash. The key is org-scoped, so a foreign
// tenant's id simply reads as absent. Unknown ids map to domain.ErrDocumentNotFound.
func (r *Repo) Get(ctx context.Context, orgID, id string) (domdoc.Document, error) {
	key := r.docKey(orgID, id)

	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}

	return parseDocumentFields(id, fields), nil
}

// Delete removes a document hash.
func (r *Repo) Delete(ctx context.Context, orgID, id string) error {
	key := r.docKey(orgID, id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// SearchKNN runs a KNN search over the organization's index.
// Absent indexes (no documents ingested yet) report zero hits.
func (r *Repo) SearchKNN(ctx context.Context, orgID string, vector []float32, k int) ([]result.Result, error) {
	q := &db.KNNQuery{
		IndexName: r.IndexName(orgID),
		Vector:    vector,
		K:         k,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		var dbErr *db.Error
		if errors.As(err, &dbErr) && isUnknownIndex(dbErr.Err) {
			return nil, nil
		}
		return nil, fmt.Errorf("search knn %s: %w", orgID, err)
	}

	return parseKNNResults(sr, r.docPrefix(orgID)), nil
}

// Count returns the number of documents stored for an organization.
func (r *Repo) Count(ctx context.Context, orgID string) (int, error) {
	keys, err := r.store.Scan(ctx, r.docPrefix(orgID)+"*")
	if err != nil {
		return 0, fmt.Errorf("scan docs %s: %w", orgID, err)
	}
	return len(keys), nil
}

// DocumentIDs lists all document IDs stored for an organization.
func (r *Repo) DocumentIDs(ctx context.Context, orgID string) ([]string, error) {
	prefix := r.docPrefix(orgID)
	keys, err := r.store.Scan(ctx, prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan docs %s: %w", orgID, err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, prefix))
	}
	return ids, nil
}

// DropOrg removes the organization's index, all document hashes and the
// sequence counter. Returns the number of documents removed.
func (r *Repo) DropOrg(ctx context.Context, orgID string) (int, error) {
	if err := r.store.DropIndex(ctx, r.IndexName(orgID)); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return 0, fmt.Errorf("drop index %s: %w", orgID, err)
	}

	keys, err := r.store.Scan(ctx, r.docPrefix(orgID)+"*")
	if err != nil {
		return 0, fmt.Errorf("scan docs %s: %w", orgID, err)
	}
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return 0, fmt.Errorf("del %s: %w", key, err)
		}
	}

	if err := r.store.Del(ctx, r.seqKey(orgID)); err != nil {
		return 0, fmt.Errorf("del seq %s: %w", orgID, err)
	}

	return len(keys), nil
}

// IndexName returns the FT index name for an organization.
func (r *Repo) IndexName(orgID string) string {
	return fmt.Sprintf("%sorg:%s:idx", r.prefix, orgID)
}

// Redis key patterns: caredesk:org:{org}:doc:{id}, caredesk:org:{org}:idx, caredesk:org:{org}:seq

func (r *Repo) docKey(orgID, id string) string {
	return fmt.Sprintf("%sorg:%s:doc:%s", r.prefix, orgID, id)
}

func (r *Repo) docPrefix(orgID string) string {
	return fmt.Sprintf("%sorg:%s:doc:", r.prefix, orgID)
}

func (r *Repo) seqKey(orgID string) string {
	return fmt.Sprintf("%sorg:%s:seq", r.prefix, orgID)
}

// isUnknownIndex reports whether the server rejected the query because the
// index was never created (empty tenant).
func isUnknownIndex(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such index") ||
		strings.Contains(strings.ToLower(err.Error()), "unknown index")
}
