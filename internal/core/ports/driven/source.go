package driven

import (
	"context"

	"github.com/custodia-labs/repochat/internal/core/domain"
)

// DocumentSource loads text documents from a root.
//
// The root is a local directory or a repository URL. Implementations filter
// out dependency, build and hidden directories, lock and packaging files and
// binary content. Unreadable files are skipped with a logged warning; only a
// root that cannot be read at all is an error (domain.ErrSourceUnavailable).
type DocumentSource interface {
	// Load returns every document under root.
	Load(ctx context.Context, root string) ([]domain.Document, error)
}

// DocumentChange is emitted by a watching source when a file changes.
type DocumentChange struct {
	// Document holds the new content. Content is empty for removals.
	Document domain.Document

	// Removed is true when the file was deleted or renamed away.
	Removed bool
}

// WatchableSource is an optional interface for sources that can push changes.
type WatchableSource interface {
	DocumentSource

	// Watch streams changes under root until ctx is cancelled.
	Watch(ctx context.Context, root string) (<-chan DocumentChange, error)
}
