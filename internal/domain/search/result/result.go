package result

// Result is a single retrieval hit.
type Result struct {
	id         string
	similarity float64
	content    string
	metadata   map[string]string
	seq        int64
}

// New creates a retrieval result.
func New(id string, similarity float64, content string, metadata map[string]string, seq int64) Result {
	return Result{id: id, similarity: similarity, content: content, metadata: metadata, seq: seq}
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Similarity returns the similarity score in [0, 1].
func (r *Result) Similarity() float64 { return r.similarity }

// Content returns the document content.
func (r *Result) Content() string { return r.content }

// Metadata returns the document metadata.
func (r *Result) Metadata() map[string]string { return r.metadata }

// Seq returns the document's insertion sequence number (tie-break ordering).
func (r *Result) Seq() int64 { return r.seq }
