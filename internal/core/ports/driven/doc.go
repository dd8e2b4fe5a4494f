// Package driven defines the outbound ports of the core: the embedding
// service, the document store, generation backends and normalisers.
// Adapters under internal/adapters/driven implement them.
package driven
