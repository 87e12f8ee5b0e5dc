// Package domain defines the core entities of repochat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: text handed over by a document source
//   - Chunk: a bounded segment of a document, the unit of retrieval
//   - VectorEntry / VectorMatch: what the vector index stores and returns
//   - Answer: a language model answer with the chunks it was grounded on
//   - AppSettings: injected configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
package domain
