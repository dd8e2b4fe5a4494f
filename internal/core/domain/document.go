package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Document represents an embedded content unit stored for retrieval.
// Documents are immutable after insert; re-ingestion of identical content
// is prevented by the content hash.
type Document struct {
	// ID is the store-assigned identifier.
	ID string

	// Content is the UTF-8 text of the chunk. Never empty.
	Content string

	// Metadata contains arbitrary key-value pairs (title, source,
	// filename, chunk position). No fixed schema is enforced.
	Metadata map[string]any

	// Embedding is the vector representation. Its length must equal the
	// embedder's Dimensions().
	Embedding []float32

	// ContentHash is the sha256 hex digest of the normalised content,
	// unique within a collection.
	ContentHash string

	// CreatedAt is when the document was inserted.
	CreatedAt time.Time
}

// Chunk is a transient text window carved from a source document during
// ingestion. It is never persisted; once embedded it becomes a Document.
type Chunk struct {
	// Content is the text content of this chunk.
	Content string

	// StartOffset is the rune offset of the chunk within the source text.
	StartOffset int

	// Length is the chunk content length in runes.
	Length int

	// Index is the ordinal position within the source document.
	Index int

	// Metadata is inherited from the source document.
	Metadata map[string]any
}

// SimilarityResult is a single retrieval hit.
type SimilarityResult struct {
	// Document is the matched document.
	Document Document

	// Score is the cosine similarity in [0,1]. Result sets are ordered
	// descending by score.
	Score float64
}

// ContentHash computes the deduplication hash for document content.
// Whitespace runs are collapsed before hashing so formatting-only
// differences do not defeat deduplication.
func ContentHash(content string) string {
	normalised := strings.Join(strings.Fields(content), " ")
	sum := sha256.Sum256([]byte(normalised))
	return hex.EncodeToString(sum[:])
}
