// Package plaintext normalises plain text documents.
package plaintext

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".txt", ".text"}
}

// Normalise returns the content as-is with line endings unified, and a
// title derived from the filename.
func (n *Normaliser) Normalise(_ context.Context, uri string, content []byte) (*driven.NormaliseResult, error) {
	if content == nil {
		return nil, domain.ErrInvalidInput
	}

	text := strings.ReplaceAll(string(content), "\r\n", "\n")

	return &driven.NormaliseResult{
		Title:   TitleFromFilename(uri),
		Content: strings.TrimSpace(text),
		Metadata: map[string]any{
			"format": "plaintext",
		},
	}, nil
}

// TitleFromFilename derives a human-readable title from a file path.
func TitleFromFilename(uri string) string {
	filename := filepath.Base(uri)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
