// Package domain contains the core types and errors of the retrieval
// pipeline: documents, chunks, similarity results, chat messages and the
// error taxonomy shared by services and adapters.
package domain
