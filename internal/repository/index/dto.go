package index

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/caredesk-cloud/caredesk/internal/db"
	domdoc "github.com/caredesk-cloud/caredesk/internal/domain/document"
	"github.com/caredesk-cloud/caredesk/internal/domain/search/result"
)

// Reserved hash fields; everything else is free-form metadata.
const (
	fieldContent = "__content"
	fieldVector  = "__vector"
	fieldSeq     = "__seq"
)

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
func buildHashFields(doc *domdoc.Document) map[string]string {
	m := make(map[string]string, 3+len(doc.Metadata()))
	m[fieldContent] = doc.Content()
	m[fieldVector] = vectorToBytes(doc.Vector())
	m[fieldSeq] = strconv.FormatInt(doc.Seq(), 10)
	for k, v := range doc.Metadata() {
		m[k] = v
	}
	return m
}

// parseKNNResults converts db.SearchResult entries into []result.Result.
func parseKNNResults(sr *db.SearchResult, docPrefix string) []result.Result {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		docID := strings.TrimPrefix(entry.Key, docPrefix)
		results = append(results, parseEntryFields(docID, entry))
	}
	return results
}

// parseEntryFields parses a KNN entry from flat hash fields.
func parseEntryFields(docID string, entry db.SearchEntry) result.Result {
	var content string
	var seq int64
	metadata := make(map[string]string)

	for k, v := range entry.Fields {
		switch k {
		case fieldContent:
			content = v
		case fieldVector:
			// vectors are not returned to callers
		case fieldSeq:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				seq = n
			}
		default:
			metadata[k] = v
		}
	}

	return result.New(docID, entry.Score, content, metadata, seq)
}

// parseDocumentFields hydrates a full Document from flat hash fields.
func parseDocumentFields(id string, fields map[string]string) domdoc.Document {
	var content string
	var seq int64
	var vector []float32
	metadata := make(map[string]string)

	for k, v := range fields {
		switch k {
		case fieldContent:
			content = v
		case fieldVector:
			vector = bytesToVector(v)
		case fieldSeq:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				seq = n
			}
		default:
			metadata[k] = v
		}
	}

	return domdoc.Reconstruct(id, content, metadata, vector, seq)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
