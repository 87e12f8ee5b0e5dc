package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/repochat/internal/core/domain"
)

type fakeFile struct {
	path    string
	content string
	size    int
}

// fakeGitHub serves the repository, tree and blob endpoints for octo/demo.
type fakeGitHub struct {
	files      []fakeFile
	blobStatus map[string]int
	repoStatus int
	blobCalls  atomic.Int32
	auth       atomic.Value
}

func (f *fakeGitHub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}

	mux.HandleFunc("GET /repos/octo/demo", func(w http.ResponseWriter, r *http.Request) {
		f.auth.Store(r.Header.Get("Authorization"))
		if f.repoStatus != 0 {
			write(w, f.repoStatus, map[string]any{"message": "Not Found"})
			return
		}
		write(w, http.StatusOK, map[string]any{"name": "demo", "default_branch": "main"})
	})

	mux.HandleFunc("GET /repos/octo/demo/git/trees/{ref}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		entries := []map[string]any{{"path": "src", "type": "tree", "sha": "dir"}}
		for i, file := range f.files {
			size := file.size
			if size == 0 {
				size = len(file.content)
			}
			entries = append(entries, map[string]any{
				"path": file.path, "type": "blob", "sha": "sha" + strconv.Itoa(i), "size": size,
			})
		}
		write(w, http.StatusOK, map[string]any{"sha": r.PathValue("ref"), "tree": entries, "truncated": false})
	})

	mux.HandleFunc("GET /repos/octo/demo/git/blobs/{sha}", func(w http.ResponseWriter, r *http.Request) {
		f.blobCalls.Add(1)
		sha := r.PathValue("sha")
		if status, ok := f.blobStatus[sha]; ok {
			write(w, status, map[string]any{"message": "boom"})
			return
		}
		i, err := strconv.Atoi(strings.TrimPrefix(sha, "sha"))
		require.NoError(t, err)
		encoded := base64.StdEncoding.EncodeToString([]byte(f.files[i].content))
		// GitHub wraps base64 content at 60 columns.
		if len(encoded) > 8 {
			encoded = encoded[:8] + "\n" + encoded[8:]
		}
		write(w, http.StatusOK, map[string]any{"sha": sha, "content": encoded, "encoding": "base64"})
	})
	return mux
}

func newTestSource(t *testing.T, fake *fakeGitHub, token string) *Source {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), ClientOptions{
		Token:             token,
		BaseURL:           server.URL,
		RequestsPerSecond: -1,
	})
	require.NoError(t, err)
	return NewSource(client, 64)
}

func TestSource_Load(t *testing.T) {
	fake := &fakeGitHub{files: []fakeFile{
		{path: "main.go", content: "package main\n\nfunc main() {}"},
		{path: "src/app.py", content: "print('hello')"},
		{path: "node_modules/lib/index.js", content: "ignored"},
		{path: "package.json", content: "{}"},
		{path: "assets/logo.png", content: "png"},
		{path: "docs/big.md", content: "big", size: 1 << 20},
		{path: "latin1.txt", content: string([]byte{0x63, 0x61, 0x66, 0xe9})},
	}}
	src := newTestSource(t, fake, "")

	docs, err := src.Load(context.Background(), "https://github.com/octo/demo")

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "main.go", docs[0].Source)
	assert.Equal(t, "package main\n\nfunc main() {}", docs[0].Content)
	assert.Equal(t, "src/app.py", docs[1].Source)
	assert.Equal(t, "main", docs[1].Metadata["ref"])
	assert.Equal(t, "https://github.com/octo/demo", docs[1].Metadata["repository"])
	assert.Equal(t, "https://github.com/octo/demo/blob/main/src/app.py", docs[1].Metadata["html_url"])
	assert.Equal(t, int32(3), fake.blobCalls.Load(), "filtered and oversized entries are not fetched")
	assert.Empty(t, fake.auth.Load())
}

func TestSource_Load_WithTokenAndRef(t *testing.T) {
	fake := &fakeGitHub{files: []fakeFile{{path: "README.md", content: "# Demo"}}}
	src := newTestSource(t, fake, "secret-token")

	docs, err := src.Load(context.Background(), "github.com/octo/demo/tree/dev")

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "dev", docs[0].Metadata["ref"])
	assert.Equal(t, "https://github.com/octo/demo", docs[0].Metadata["repository"])
	assert.Nil(t, fake.auth.Load(), "repository lookup skipped when the ref is given")

	_, err = src.Load(context.Background(), "https://github.com/octo/demo")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", fake.auth.Load())
}

func TestSource_Load_SkipsFailedBlobs(t *testing.T) {
	fake := &fakeGitHub{
		files: []fakeFile{
			{path: "a.go", content: "package a"},
			{path: "b.go", content: "package b"},
		},
		blobStatus: map[string]int{"sha0": http.StatusInternalServerError},
	}
	src := newTestSource(t, fake, "")

	docs, err := src.Load(context.Background(), "https://github.com/octo/demo")

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b.go", docs[0].Source)
}

func TestSource_Load_Errors(t *testing.T) {
	t.Run("not a github url", func(t *testing.T) {
		src := newTestSource(t, &fakeGitHub{}, "")
		_, err := src.Load(context.Background(), "https://gitlab.com/octo/demo")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.ErrorIs(t, err, ErrInvalidURL)
	})

	t.Run("repository not found", func(t *testing.T) {
		src := newTestSource(t, &fakeGitHub{repoStatus: http.StatusNotFound}, "")
		_, err := src.Load(context.Background(), "https://github.com/octo/demo")
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
		assert.ErrorIs(t, err, ErrRepoNotFound)
		assert.True(t, IsNotFound(err))
	})

	t.Run("rate limited", func(t *testing.T) {
		fake := &fakeGitHub{
			files:      []fakeFile{{path: "a.go", content: "package a"}},
			blobStatus: map[string]int{"sha0": http.StatusTooManyRequests},
		}
		src := newTestSource(t, fake, "")
		_, err := src.Load(context.Background(), "https://github.com/octo/demo")
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
		assert.True(t, IsRateLimited(err))
	})

	t.Run("cancelled", func(t *testing.T) {
		src := newTestSource(t, &fakeGitHub{}, "")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := src.Load(ctx, "https://github.com/octo/demo")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		root string
		want RepoRef
		ok   bool
	}{
		{"https://github.com/octo/demo", RepoRef{Owner: "octo", Repo: "demo"}, true},
		{"https://github.com/octo/demo.git", RepoRef{Owner: "octo", Repo: "demo"}, true},
		{"https://www.github.com/octo/demo/", RepoRef{Owner: "octo", Repo: "demo"}, true},
		{"github.com/octo/demo", RepoRef{Owner: "octo", Repo: "demo"}, true},
		{"git@github.com:octo/demo.git", RepoRef{Owner: "octo", Repo: "demo"}, true},
		{"https://github.com/octo/demo/tree/feature/x", RepoRef{Owner: "octo", Repo: "demo", Ref: "feature/x"}, true},
		{"https://github.com/octo", RepoRef{}, false},
		{"https://gitlab.com/octo/demo", RepoRef{}, false},
		{"ftp://github.com/octo/demo", RepoRef{}, false},
		{"/home/octo/demo", RepoRef{}, false},
		{"", RepoRef{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.root, func(t *testing.T) {
			got, err := ParseRepoURL(tt.root)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidURL)
				assert.False(t, IsRepositoryURL(tt.root))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsRepositoryURL(tt.root))
		})
	}
}

func TestRepoRef_String(t *testing.T) {
	assert.Equal(t, "https://github.com/octo/demo", RepoRef{Owner: "octo", Repo: "demo"}.String())
	assert.Equal(t, "https://github.com/octo/demo/tree/v1", RepoRef{Owner: "octo", Repo: "demo", Ref: "v1"}.String())
	assert.Equal(t, "https://github.com/octo/demo", RepoRef{Owner: "octo", Repo: "demo", Ref: "v1"}.RepositoryURL())
}

func TestRateLimiter(t *testing.T) {
	t.Run("quota sets reserve", func(t *testing.T) {
		r := NewRateLimiter(AnonymousRateLimit, -1)
		assert.Equal(t, Quota{Limit: AnonymousRateLimit, Remaining: AnonymousRateLimit}, r.Quota())
		assert.Equal(t, 6, r.reserve)
		assert.Equal(t, 100, NewRateLimiter(0, 0).reserve)
	})

	t.Run("observes headers", func(t *testing.T) {
		r := NewRateLimiter(GitHubRateLimit, -1)
		reset := time.Now().Add(time.Hour).Unix()
		resp := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}
		resp.Header.Set(HeaderRateRemaining, "42")
		resp.Header.Set(HeaderRateLimit, "5000")
		resp.Header.Set(HeaderRateReset, strconv.FormatInt(reset, 10))

		require.NoError(t, r.Observe(resp))

		q := r.Quota()
		assert.Equal(t, 42, q.Remaining)
		assert.Equal(t, time.Unix(reset, 0), q.Reset)
	})

	t.Run("holds requests when quota is low", func(t *testing.T) {
		r := NewRateLimiter(GitHubRateLimit, -1)
		resp := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}
		resp.Header.Set(HeaderRateRemaining, "1")
		resp.Header.Set(HeaderRateReset, strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
		require.NoError(t, r.Observe(resp))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
	})

	t.Run("reports 429 with retry-after", func(t *testing.T) {
		r := NewRateLimiter(GitHubRateLimit, -1)
		resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
		resp.Header.Set(HeaderRetryAfter, "30")

		err := r.Observe(resp)

		var rlErr *RateLimitError
		require.ErrorAs(t, err, &rlErr)
		assert.WithinDuration(t, time.Now().Add(30*time.Second), rlErr.ResetAt, 2*time.Second)
	})

	t.Run("403 counts only when exhausted", func(t *testing.T) {
		r := NewRateLimiter(GitHubRateLimit, -1)
		resp := &http.Response{StatusCode: http.StatusForbidden, Header: http.Header{}}
		resp.Header.Set(HeaderRateRemaining, "10")
		assert.NoError(t, r.Observe(resp))

		resp.Header.Set(HeaderRateRemaining, "0")
		assert.Error(t, r.Observe(resp))
	})

	t.Run("nil response", func(t *testing.T) {
		assert.NoError(t, NewRateLimiter(0, 0).Observe(nil))
	})
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{StatusCode: 401, Message: "Bad credentials", URL: "https://api.github.com/user"}
	assert.Equal(t, "github: API error 401: Bad credentials (URL: https://api.github.com/user)", err.Error())
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsNotFound(err))
}
