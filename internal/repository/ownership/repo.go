// Package ownership maintains the global document-to-organization registry.
// Per-organization storage cannot tell a missing document from a foreign one;
// the registry provides that distinction for delete requests.
package ownership

import (
	"context"
	"errors"
	"fmt"

	"github.com/caredesk-cloud/caredesk/internal/db"
	"github.com/caredesk-cloud/caredesk/internal/domain"
)

// store is the consumer interface for the registry (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGet(ctx context.Context, key, field string) (string, error)
	HDel(ctx context.Context, key string, fields ...string) error
}

// Repo implements the document ownership registry over a single hash.
type Repo struct {
	store store
	key   string
}

// New creates an ownership repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, key: prefix + "ownership"}
}

// Claim records that a document belongs to an organization.
func (r *Repo) Claim(ctx context.Context, docID, orgID string) error {
	if err := r.store.HSet(ctx, r.key, map[string]string{docID: orgID}); err != nil {
		return fmt.Errorf("claim %s: %w", docID, err)
	}
	return nil
}

// ClaimMulti records ownership for multiple documents in one HSET.
func (r *Repo) ClaimMulti(ctx context.Context, docIDs []string, orgID string) error {
	if len(docIDs) == 0 {
		return nil
	}
	fields := make(map[string]string, len(docIDs))
	for _, id := range docIDs {
		fields[id] = orgID
	}
	if err := r.store.HSet(ctx, r.key, fields); err != nil {
		return fmt.Errorf("claim multi: %w", err)
	}
	return nil
}

// Owner returns the owning organization of a document.
// Unknown documents map to domain.ErrDocumentNotFound.
func (r *Repo) Owner(ctx context.Context, docID string) (string, error) {
	orgID, err := r.store.HGet(ctx, r.key, docID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", domain.ErrDocumentNotFound
		}
		return "", fmt.Errorf("owner %s: %w", docID, err)
	}
	return orgID, nil
}

// Release removes registry entries for the given documents.
func (r *Repo) Release(ctx context.Context, docIDs ...string) error {
	if len(docIDs) == 0 {
		return nil
	}
	if err := r.store.HDel(ctx, r.key, docIDs...); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}
