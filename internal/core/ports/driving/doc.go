// Package driving defines the inbound ports of the core: the operations
// the CLI and HTTP API invoke. Services under internal/core/services
// implement them.
package driving
