// Package mcp exposes the code assistant over the Model Context Protocol,
// so editors and agents can ingest code and ask questions about it.
package mcp

import "errors"

// ErrMissingAssistant is returned when the assistant service is not provided.
var ErrMissingAssistant = errors.New("mcp: assistant service is required")
