package connectors

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/repochat/internal/connectors/git"
	"github.com/custodia-labs/repochat/internal/connectors/github"
	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/logger"
)

// Ensure Router implements the interfaces.
var (
	_ driven.DocumentSource  = (*Router)(nil)
	_ driven.WatchableSource = (*Router)(nil)
)

// RouterConfig wires the sources a Router can dispatch to.
type RouterConfig struct {
	// Local loads and watches directories. Required.
	Local driven.WatchableSource

	// Git clones remote repositories. Optional.
	Git *git.Cloner

	// GitHub fetches github.com repositories through the API. Optional.
	GitHub driven.DocumentSource

	// PreferAPI uses GitHub for github.com URLs even when git is installed.
	PreferAPI bool
}

// Router selects a document source by root shape.
type Router struct {
	local        driven.WatchableSource
	clone        driven.DocumentSource
	api          driven.DocumentSource
	preferAPI    bool
	gitAvailable func() bool
}

// NewRouter creates a Router.
func NewRouter(cfg RouterConfig) *Router {
	r := &Router{
		local:        cfg.Local,
		api:          cfg.GitHub,
		preferAPI:    cfg.PreferAPI,
		gitAvailable: func() bool { return false },
	}
	if cfg.Git != nil {
		r.clone = cfg.Git
		r.gitAvailable = cfg.Git.Available
	}
	return r
}

// Load returns the documents under root. Failures other than invalid input
// and cancellation surface as domain.ErrSourceUnavailable.
func (r *Router) Load(ctx context.Context, root string) ([]domain.Document, error) {
	source, kind, err := r.route(root)
	if err != nil {
		return nil, err
	}
	logger.Debugw("routing source", "root", root, "loader", kind)

	docs, err := source.Load(ctx, root)
	if err != nil {
		return nil, classify(err)
	}
	return docs, nil
}

// Watch streams changes under a local root. Remote roots cannot be watched.
func (r *Router) Watch(ctx context.Context, root string) (<-chan driven.DocumentChange, error) {
	if github.IsRepositoryURL(root) || git.IsRepositoryURL(root) {
		return nil, fmt.Errorf("%w: watch requires a local directory, got %q", domain.ErrInvalidInput, root)
	}
	changes, err := r.local.Watch(ctx, root)
	if err != nil {
		return nil, classify(err)
	}
	return changes, nil
}

func (r *Router) route(root string) (driven.DocumentSource, string, error) {
	isGitHub := github.IsRepositoryURL(root)
	isRemote := isGitHub || git.IsRepositoryURL(root)

	switch {
	case isGitHub && r.api != nil && (r.preferAPI || !r.gitAvailable()):
		return r.api, "github", nil
	case isRemote && r.clone != nil && r.gitAvailable():
		return r.clone, "git", nil
	case isRemote:
		return nil, "", fmt.Errorf("%w: no loader for %q: git is not installed", domain.ErrSourceUnavailable, root)
	default:
		return r.local, "filesystem", nil
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrSourceUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
}
