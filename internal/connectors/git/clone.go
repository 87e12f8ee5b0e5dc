// Package git loads documents from a remote repository by shallow-cloning it
// into a temporary directory and walking the checkout.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/custodia-labs/repochat/internal/connectors/filesystem"
	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/logger"
)

// Ensure Cloner implements the interface.
var _ driven.DocumentSource = (*Cloner)(nil)

// Options configures a Cloner.
type Options struct {
	// Binary is the git executable. Defaults to "git" on PATH.
	Binary string

	// TempDir is the parent of clone directories. Defaults to os.TempDir().
	TempDir string

	// Loader walks the checkout. Defaults to filesystem.New with default options.
	Loader *filesystem.Loader
}

// Cloner shallow-clones a repository and loads its files.
type Cloner struct {
	binary  string
	tempDir string
	loader  *filesystem.Loader
}

// New creates a git document source.
func New(opts Options) *Cloner {
	if opts.Binary == "" {
		opts.Binary = "git"
	}
	if opts.Loader == nil {
		opts.Loader = filesystem.New(filesystem.Options{})
	}
	return &Cloner{binary: opts.Binary, tempDir: opts.TempDir, loader: opts.Loader}
}

// Available reports whether the git binary can be found.
func (c *Cloner) Available() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

// IsRepositoryURL reports whether root looks like a clonable remote.
func IsRepositoryURL(root string) bool {
	root = strings.TrimSpace(root)
	if strings.HasPrefix(root, "git@") && strings.Contains(root, ":") {
		return true
	}
	u, err := url.Parse(root)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https", "ssh", "git":
		return true
	default:
		return false
	}
}

// Load clones repoURL with depth 1 and returns its documents. The clone is
// removed before Load returns.
func (c *Cloner) Load(ctx context.Context, repoURL string) ([]domain.Document, error) {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return nil, fmt.Errorf("%w: repository URL is required", domain.ErrInvalidInput)
	}

	dir, err := os.MkdirTemp(c.tempDir, "repochat-clone-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create clone dir: %w", domain.ErrSourceUnavailable, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warnw("cannot remove clone", "dir", dir, "error", err)
		}
	}()

	logger.Debugw("cloning repository", "url", repoURL, "dir", dir)
	if err := c.clone(ctx, repoURL, dir); err != nil {
		return nil, err
	}

	docs, err := c.loader.Load(ctx, dir)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Metadata["repository"] = repoURL
		delete(docs[i].Metadata, "path")
	}
	return docs, nil
}

func (c *Cloner) clone(ctx context.Context, repoURL, dir string) error {
	cmd := exec.CommandContext(ctx, c.binary, "clone", "--depth", "1", "--quiet", "--", repoURL, dir)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return fmt.Errorf("%w: git not available: %w", domain.ErrSourceUnavailable, err)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: clone %s: %s", domain.ErrSourceUnavailable, repoURL, msg)
	}
	return nil
}
