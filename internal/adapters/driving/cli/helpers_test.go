package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/repochat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/core/services"
)

// mockAssistant implements driving.AssistantService for command tests.
type mockAssistant struct {
	mu sync.Mutex

	answer    *domain.Answer
	askErr    error
	count     int
	ingestErr error
	stats     domain.IndexStats

	questions  []string
	roots      []string
	batches    [][]domain.Document
	namespaces []string
}

func (m *mockAssistant) Ingest(_ context.Context, docs []domain.Document, namespace string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, docs)
	m.namespaces = append(m.namespaces, namespace)
	return len(docs) * 2, m.ingestErr
}

func (m *mockAssistant) IngestSource(_ context.Context, root, namespace string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roots = append(m.roots, root)
	m.namespaces = append(m.namespaces, namespace)
	return m.count, m.ingestErr
}

func (m *mockAssistant) Ask(_ context.Context, question, namespace string) (*domain.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = append(m.questions, question)
	m.namespaces = append(m.namespaces, namespace)
	if m.askErr != nil {
		return nil, m.askErr
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{Question: question}, nil
}

func (m *mockAssistant) Retrieve(_ context.Context, _, _ string) ([]domain.RetrievedChunk, error) {
	return nil, nil
}

func (m *mockAssistant) Status(_ context.Context, namespace string) (domain.IndexStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.namespaces = append(m.namespaces, namespace)
	stats := m.stats
	stats.Namespace = namespace
	return stats, nil
}

func (m *mockAssistant) lastNamespace() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.namespaces) == 0 {
		return ""
	}
	return m.namespaces[len(m.namespaces)-1]
}

// mockWatcher implements driven.WatchableSource with a caller-fed channel.
type mockWatcher struct {
	changes chan driven.DocumentChange
	root    string
}

func (w *mockWatcher) Load(_ context.Context, _ string) ([]domain.Document, error) {
	return nil, nil
}

func (w *mockWatcher) Watch(_ context.Context, root string) (<-chan driven.DocumentChange, error) {
	w.root = root
	return w.changes, nil
}

// testEnv is an isolated config file plus injected services.
type testEnv struct {
	store     *file.ConfigStore
	settings  *services.SettingsService
	assistant *mockAssistant
}

// newTestEnv resets command globals and injects services backed by a temp config.
func newTestEnv(t *testing.T, m *mockAssistant) *testEnv {
	t.Helper()

	store, err := file.NewConfigStoreAt(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	settings := services.NewSettingsService(store)
	settings.SetEnvLookup(func(string) string { return "" })

	resetFlags()
	SetFactories(nil, nil)
	SetServices(store, settings, &Runtime{Assistant: m})
	t.Cleanup(func() {
		resetFlags()
		SetServices(nil, nil, nil)
	})

	return &testEnv{store: store, settings: settings, assistant: m}
}

func resetFlags() {
	configPath = ""
	verbose = false
	namespaceFlag = ""
	askJSON = false
	askShowSources = true
	statusJSON = false
	chatPlain = false
	serveAddr = ""
	serveAllowLocal = false
	watchDebounce = 500 * time.Millisecond
	watchNoInitial = false
	configPing = false
}

// run executes the root command with args and stdin, returning combined output.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return runContext(t, context.Background(), stdin, args...)
}

func runContext(t *testing.T, ctx context.Context, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}
