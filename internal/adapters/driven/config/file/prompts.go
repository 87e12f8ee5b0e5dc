package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/repochat/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

const promptReadme = "# repochat prompts\n\n" +
	"Templates used when the language model answers a question.\n\n" +
	"- `answer_system.txt`: system message, no placeholders\n" +
	"- `answer_user.txt`: user message with two `%s` placeholders,\n" +
	"  the retrieved context first, then the question\n\n" +
	"A template without exactly those two placeholders is ignored and the\n" +
	"built-in default is used. Delete a file to restore the default.\n"

// PromptStore reads answer prompts from <dir>/<name>.txt. The directory is
// seeded with the defaults and a README on the first Load; until then the
// store touches nothing on disk. A prompt that cannot be read falls back to
// driven.DefaultPrompts.
type PromptStore struct {
	dir  string
	seed func() error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore creates a store over dir, or ~/.repochat/prompts if empty.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		root, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(root, "prompts")
	}
	s := &PromptStore{dir: dir, cache: map[string]string{}}
	s.seed = sync.OnceValue(s.writeDefaults)
	return s, nil
}

// Load returns the template called name.
func (s *PromptStore) Load(name string) (string, error) {
	fallback, known := driven.DefaultPrompts[name]

	if err := s.seed(); err != nil {
		if known {
			return fallback, nil
		}
		return "", fmt.Errorf("prompt %q: %w", name, err)
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if known {
			return fallback, nil
		}
		return "", fmt.Errorf("prompt %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = strings.TrimSpace(string(data))
	return s.cache[name], nil
}

// Reload drops cached templates so the next Load rereads the files.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// writeDefaults creates the directory and any missing default files.
// Existing files are never overwritten.
func (s *PromptStore) writeDefaults() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}

	files := map[string]string{filepath.Join(s.dir, "README.md"): promptReadme}
	for name, content := range driven.DefaultPrompts {
		files[s.path(name)] = content
	}
	for path, content := range files {
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}
