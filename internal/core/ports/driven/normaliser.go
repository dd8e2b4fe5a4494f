package driven

import "context"

// Normaliser converts raw file content into clean text for chunking.
// Each normaliser handles specific file extensions (e.g. .md, .txt).
type Normaliser interface {
	// SupportedExtensions returns the lower-case file extensions this
	// normaliser handles, including the leading dot.
	SupportedExtensions() []string

	// Normalise extracts the title and plain text content.
	Normalise(ctx context.Context, uri string, content []byte) (*NormaliseResult, error)
}

// NormaliseResult is the output of normalisation. Chunking happens later
// in the ingestion pipeline.
type NormaliseResult struct {
	// Title is a human-readable title (first heading or filename).
	Title string

	// Content is the plain text content.
	Content string

	// Metadata carries format information for the stored documents.
	Metadata map[string]any
}
