package domain

// ChunkFailure records a single chunk that could not be embedded or stored.
// Sibling chunks continue processing; failures are reported in the summary.
type ChunkFailure struct {
	// File is the source file path.
	File string

	// ChunkIndex is the ordinal position of the failed chunk.
	ChunkIndex int

	// Err is the failure cause.
	Err error
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	// FilesProcessed is the number of source files read.
	FilesProcessed int

	// ChunksStored is the number of new documents inserted.
	ChunksStored int

	// ChunksSkipped is the number of chunks skipped by deduplication.
	ChunksSkipped int

	// ChunksFailed is the number of chunks that failed to embed or store.
	ChunksFailed int

	// Failures lists the individual chunk failures.
	Failures []ChunkFailure
}
