// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: maps text to a fixed-dimension vector
//   - VectorIndex: namespaced similarity index with co-located payload
//   - DocumentSource: loads documents from a path or repository URL
//   - PostProcessorPipeline: turns a document into chunks
//   - ConfigStore: application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: answers questions. Without it, ask returns retrieved context only.
//   - PromptStore: user-editable prompt templates. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
