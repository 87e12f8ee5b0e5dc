package github

import (
	"fmt"
	"net/url"
	"strings"
)

// RepoRef names a repository and an optional ref to load.
type RepoRef struct {
	Owner string
	Repo  string

	// Ref is a branch, tag or commit. Empty means the default branch.
	Ref string
}

// RepositoryURL returns the https URL of the repository without the ref.
func (r RepoRef) RepositoryURL() string {
	return "https://github.com/" + r.Owner + "/" + r.Repo
}

// String returns the canonical https URL, including the ref when set.
func (r RepoRef) String() string {
	s := r.RepositoryURL()
	if r.Ref != "" {
		s += "/tree/" + r.Ref
	}
	return s
}

// IsRepositoryURL reports whether root parses as a github.com repository.
func IsRepositoryURL(root string) bool {
	_, err := ParseRepoURL(root)
	return err == nil
}

// ParseRepoURL accepts https://github.com/owner/repo[.git][/tree/ref],
// github.com/owner/repo and git@github.com:owner/repo.git.
func ParseRepoURL(root string) (RepoRef, error) {
	raw := strings.TrimSpace(root)
	switch {
	case strings.HasPrefix(raw, "git@github.com:"):
		raw = "https://github.com/" + strings.TrimPrefix(raw, "git@github.com:")
	case strings.HasPrefix(raw, "github.com/"):
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidURL, root)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || !strings.EqualFold(strings.TrimPrefix(u.Host, "www."), "github.com") {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidURL, root)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidURL, root)
	}

	ref := RepoRef{Owner: parts[0], Repo: strings.TrimSuffix(parts[1], ".git")}
	if ref.Repo == "" {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidURL, root)
	}
	if len(parts) >= 4 && parts[2] == "tree" {
		ref.Ref = strings.Join(parts[3:], "/")
	}
	return ref, nil
}
