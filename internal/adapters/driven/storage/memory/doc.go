// Package memory provides in-memory implementations of the config store and
// vector index ports, used by tests and by the "memory" store backend.
package memory
