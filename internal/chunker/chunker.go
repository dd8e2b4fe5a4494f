// Package chunker provides a fixed-size sliding-window text splitter.
package chunker

import (
	"fmt"

	"github.com/migratio-labs/ragserve/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 200

// Splitter splits text into overlapping fixed-size chunks.
// The window advances by chunkSize - overlap each step, so the loop is
// bounded as long as overlap < chunkSize; New enforces that.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		s.chunkSize = size
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		s.overlap = overlap
	}
}

// New creates a splitter. It fails with domain.ErrInvalidInput unless
// chunkSize > 0 and 0 <= overlap < chunkSize.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be > 0, got %d", domain.ErrInvalidInput, s.chunkSize)
	}
	if s.overlap < 0 || s.overlap >= s.chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, chunk size), got %d", domain.ErrInvalidInput, s.overlap)
	}

	return s, nil
}

// ChunkSize returns the configured chunk size.
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int {
	return s.overlap
}

// Split slices text into chunks of up to chunkSize characters, each
// starting overlap characters before the previous one ended. The final
// chunk may be shorter. Empty text produces no chunks.
//
// Sizes and offsets count runes, not bytes, so multibyte text is never
// cut mid-character and every chunk is valid UTF-8.
func (s *Splitter) Split(text string) []domain.Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	step := s.chunkSize - s.overlap
	estimated := len(runes)/step + 1
	chunks := make([]domain.Chunk, 0, estimated)

	for start, index := 0, 0; start < len(runes); start, index = start+step, index+1 {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, domain.Chunk{
			Content:     string(runes[start:end]),
			StartOffset: start,
			Length:      end - start,
			Index:       index,
		})
	}

	return chunks
}
