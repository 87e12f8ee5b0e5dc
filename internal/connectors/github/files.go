package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/repochat/internal/connectors/filesystem"
	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// Source loads repository files through the API.
type Source struct {
	client      *Client
	maxFileSize int
}

// NewSource creates an API document source. maxFileSize of zero means
// filesystem.DefaultMaxFileSize.
func NewSource(client *Client, maxFileSize int) *Source {
	if maxFileSize <= 0 {
		maxFileSize = filesystem.DefaultMaxFileSize
	}
	return &Source{client: client, maxFileSize: maxFileSize}
}

// Load lists the repository tree and fetches every accepted blob. Blobs that
// cannot be fetched or decoded are skipped with a warning.
func (s *Source) Load(ctx context.Context, root string) ([]domain.Document, error) {
	ref, err := ParseRepoURL(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	if ref.Ref == "" {
		repo, err := s.client.GetRepository(ctx, ref.Owner, ref.Repo)
		if err != nil {
			return nil, sourceError(ref, err)
		}
		ref.Ref = repo.GetDefaultBranch()
	}

	tree, err := s.client.GetTree(ctx, ref.Owner, ref.Repo, ref.Ref)
	if err != nil {
		return nil, sourceError(ref, err)
	}
	if tree.GetTruncated() {
		logger.Warnw("repository tree truncated, loading partial listing", "repo", ref.String())
	}

	docs := make([]domain.Document, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		path := entry.GetPath()
		if !filesystem.AcceptPath(path) {
			continue
		}
		if entry.GetSize() > s.maxFileSize {
			logger.Debugw("skipping large file", "path", path, "size", entry.GetSize())
			continue
		}

		content, err := s.fetchBlob(ctx, ref, entry.GetSHA())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if IsRateLimited(err) {
				return nil, sourceError(ref, err)
			}
			logger.Warnw("skipping file", "path", path, "error", err)
			continue
		}
		if !utf8.Valid(content) {
			logger.Debugw("skipping non-UTF-8 file", "path", path)
			continue
		}

		docs = append(docs, domain.Document{
			Source:  path,
			Content: string(content),
			Metadata: map[string]any{
				"repository": ref.RepositoryURL(),
				"ref":        ref.Ref,
				"sha":        entry.GetSHA(),
				"size":       entry.GetSize(),
				"html_url":   fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", ref.Owner, ref.Repo, ref.Ref, path),
			},
		})
	}

	logger.Debugw("loaded documents", "repo", ref.String(), "count", len(docs))
	return docs, nil
}

// fetchBlob fetches a blob and decodes it.
func (s *Source) fetchBlob(ctx context.Context, ref RepoRef, sha string) ([]byte, error) {
	blob, err := s.client.GetBlob(ctx, ref.Owner, ref.Repo, sha)
	if err != nil {
		return nil, err
	}

	if blob.GetEncoding() == "base64" {
		content := strings.ReplaceAll(blob.GetContent(), "\n", "")
		return base64.StdEncoding.DecodeString(content)
	}
	return []byte(blob.GetContent()), nil
}

func sourceError(ref RepoRef, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if IsNotFound(err) {
		err = fmt.Errorf("%w: %w", ErrRepoNotFound, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, ref.String(), err)
}
