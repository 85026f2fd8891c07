package document

import (
	"fmt"
	"regexp"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 163840 // 160KB

// Document is the knowledge-base document aggregate (immutable value object).
type Document struct {
	id       string
	content  string
	metadata map[string]string
	vector   []float32
	seq      int64
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. Content: non-empty, max 160KB.
// Organization scoping of metadata happens in the service layer.
func New(id, content string, metadata map[string]string) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if content == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}

	return Document{
		id:       id,
		content:  content,
		metadata: cloneStringMap(metadata),
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, content string, metadata map[string]string, vector []float32, seq int64) Document {
	return Document{id: id, content: content, metadata: metadata, vector: vector, seq: seq}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the document text content.
func (d *Document) Content() string { return d.content }

// Metadata returns the metadata fields.
func (d *Document) Metadata() map[string]string { return d.metadata }

// Vector returns the embedding vector.
func (d *Document) Vector() []float32 { return d.vector }

// Seq returns the per-organization insertion sequence number.
func (d *Document) Seq() int64 { return d.seq }

// WithVector returns a copy with the given vector set.
func (d Document) WithVector(v []float32) Document {
	return Document{id: d.id, content: d.content, metadata: d.metadata, vector: v, seq: d.seq}
}

// WithSeq returns a copy with the given sequence number set.
func (d Document) WithSeq(seq int64) Document {
	return Document{id: d.id, content: d.content, metadata: d.metadata, vector: d.vector, seq: seq}
}

// SetMetadataField sets one metadata field in place.
func (d *Document) SetMetadataField(key, value string) {
	if d.metadata == nil {
		d.metadata = make(map[string]string, 1)
	}
	d.metadata[key] = value
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
