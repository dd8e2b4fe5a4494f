// Package normalisers converts source files into clean text before
// chunking. ForPath selects the normaliser for a file by extension;
// plaintext is the fallback.
package normalisers

import (
	"path/filepath"
	"strings"

	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
	"github.com/migratio-labs/ragserve/internal/normalisers/markdown"
	"github.com/migratio-labs/ragserve/internal/normalisers/plaintext"
)

// ForPath returns the normaliser handling the file at path, or nil when
// the extension is not ingestible.
func ForPath(path string) driven.Normaliser {
	ext := strings.ToLower(filepath.Ext(path))
	for _, n := range []driven.Normaliser{markdown.New(), plaintext.New()} {
		for _, supported := range n.SupportedExtensions() {
			if ext == supported {
				return n
			}
		}
	}
	return nil
}
