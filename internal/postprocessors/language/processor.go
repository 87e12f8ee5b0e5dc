// Package language tags chunks with the programming language of their origin file.
package language

import (
	"context"
	"path"
	"strings"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// MetadataKey is the chunk metadata key set by this processor.
const MetadataKey = "language"

var byExtension = map[string]string{
	".py": "python", ".ipynb": "python",
	".js": "javascript", ".jsx": "javascript",
	".ts": "typescript", ".tsx": "typescript",
	".java": "java", ".kt": "kotlin", ".swift": "swift",
	".c": "c", ".cpp": "cpp", ".cs": "csharp", ".vb": "vb",
	".go": "go", ".rs": "rust", ".php": "php", ".rb": "ruby",
	".sh": "shell", ".bat": "batch", ".pl": "perl", ".m": "objective-c",
	".r": "r", ".lua": "lua", ".sql": "sql",
	".html": "html", ".css": "css",
	".json": "json", ".xml": "xml", ".yml": "yaml", ".yaml": "yaml",
	".md": "markdown", ".txt": "text",
}

// Processor sets chunk metadata "language" from the origin file extension.
// Chunks with an unknown extension are passed through untagged.
type Processor struct{}

// New creates a language processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "language"
}

// Process tags each chunk. It never creates or drops chunks.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		origin := chunks[i].Origin
		if origin == "" {
			origin = doc.Source
		}
		lang := Detect(origin)
		if lang == "" {
			continue
		}
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any)
		}
		chunks[i].Metadata[MetadataKey] = lang
	}
	return chunks, nil
}

// Detect returns the language for a file path or URL, or "".
func Detect(source string) string {
	return byExtension[strings.ToLower(path.Ext(source))]
}
