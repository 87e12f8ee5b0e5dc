package cli

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
)

func TestRootCmd_Commands(t *testing.T) {
	var names []string
	for _, c := range Root().Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"ask", "chat", "config", "ingest", "mcp", "serve", "status", "version", "watch"} {
		assert.Contains(t, names, want)
	}
}

func TestIngestCmd(t *testing.T) {
	t.Run("ingests into the configured namespace", func(t *testing.T) {
		m := &mockAssistant{count: 5}
		newTestEnv(t, m)

		out, err := run(t, "", "ingest", "./repo")

		require.NoError(t, err)
		assert.Equal(t, []string{"./repo"}, m.roots)
		assert.Equal(t, domain.DefaultNamespace, m.lastNamespace())
		assert.Contains(t, out, "Stored 5 chunks")
	})

	t.Run("namespace flag", func(t *testing.T) {
		m := &mockAssistant{}
		newTestEnv(t, m)

		_, err := run(t, "", "ingest", "--namespace", "demo", "https://github.com/octo/demo")

		require.NoError(t, err)
		assert.Equal(t, "demo", m.lastNamespace())
	})

	t.Run("invalid namespace", func(t *testing.T) {
		m := &mockAssistant{}
		newTestEnv(t, m)

		_, err := run(t, "", "ingest", "-n", "no spaces allowed", "./repo")

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, m.roots)
	})

	t.Run("source unavailable", func(t *testing.T) {
		newTestEnv(t, &mockAssistant{ingestErr: domain.ErrSourceUnavailable})

		_, err := run(t, "", "ingest", "/does/not/exist")

		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
		assert.Contains(t, err.Error(), "ingest failed")
	})

	t.Run("requires one argument", func(t *testing.T) {
		newTestEnv(t, &mockAssistant{})

		_, err := run(t, "", "ingest")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "accepts 1 arg(s)")
	})
}

func TestAskCmd(t *testing.T) {
	answer := &domain.Answer{
		Question: "what does a do?",
		Text:     "It returns one.",
		Sources: []domain.RetrievedChunk{
			{ID: "1", Origin: "a.py", Score: 0.9},
			{ID: "2", Origin: "a.py", Score: 0.7},
			{ID: "3", Origin: "b.py", Score: 0.2},
		},
	}

	t.Run("prints answer and distinct sources", func(t *testing.T) {
		m := &mockAssistant{answer: answer}
		newTestEnv(t, m)

		out, err := run(t, "", "ask", "what", "does", "a", "do?")

		require.NoError(t, err)
		assert.Equal(t, []string{"what does a do?"}, m.questions)
		assert.Contains(t, out, "It returns one.")
		assert.Equal(t, 1, strings.Count(out, "- a.py"))
		assert.Contains(t, out, "- b.py")
	})

	t.Run("json output", func(t *testing.T) {
		newTestEnv(t, &mockAssistant{answer: answer})

		out, err := run(t, "", "ask", "--json", "q")

		require.NoError(t, err)
		var got domain.Answer
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "It returns one.", got.Text)
		assert.Len(t, got.Sources, 3)
	})

	t.Run("no context", func(t *testing.T) {
		newTestEnv(t, &mockAssistant{answer: &domain.Answer{Text: "I don't know."}})

		out, err := run(t, "", "ask", "anything")

		require.NoError(t, err)
		assert.Contains(t, out, "no indexed code matched")
		assert.NotContains(t, out, "Sources:")
	})

	t.Run("llm unavailable", func(t *testing.T) {
		newTestEnv(t, &mockAssistant{askErr: domain.ErrLLMUnavailable})

		_, err := run(t, "", "ask", "why")

		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
		assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	})

	t.Run("blank question", func(t *testing.T) {
		m := &mockAssistant{}
		newTestEnv(t, m)

		_, err := run(t, "", "ask", "  ")

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, m.questions)
	})
}

func TestStatusCmd(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		newTestEnv(t, &mockAssistant{stats: domain.IndexStats{Index: "chat-with-code", Count: 42, Dimension: 384}})

		out, err := run(t, "", "status", "-n", "s1")

		require.NoError(t, err)
		assert.Contains(t, out, "chat-with-code")
		assert.Contains(t, out, "Namespace: s1")
		assert.Contains(t, out, "Chunks:    42")
	})

	t.Run("json", func(t *testing.T) {
		newTestEnv(t, &mockAssistant{stats: domain.IndexStats{Count: 3}})

		out, err := run(t, "", "status", "--json")

		require.NoError(t, err)
		var stats domain.IndexStats
		require.NoError(t, json.Unmarshal([]byte(out), &stats))
		assert.Equal(t, int64(3), stats.Count)
	})
}

func TestChatCmd_LineMode(t *testing.T) {
	t.Run("answers until quit", func(t *testing.T) {
		m := &mockAssistant{answer: &domain.Answer{Text: "forty-two", Sources: []domain.RetrievedChunk{{Origin: "life.go"}}}}
		newTestEnv(t, m)

		out, err := run(t, "what is it?\n\n/status\nq\nnever asked\n", "chat")

		require.NoError(t, err)
		assert.Equal(t, []string{"what is it?"}, m.questions)
		assert.Contains(t, out, "forty-two")
		assert.Contains(t, out, "- life.go")
		assert.Contains(t, out, "default-session: 0 chunks")
		assert.Contains(t, out, "(or 'q' to quit)")
	})

	t.Run("ends at end of input", func(t *testing.T) {
		m := &mockAssistant{}
		newTestEnv(t, m)

		_, err := run(t, "one\ntwo", "chat", "--plain")

		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two"}, m.questions)
	})

	t.Run("ingests the argument first", func(t *testing.T) {
		m := &mockAssistant{count: 9}
		newTestEnv(t, m)

		out, err := run(t, "exit\n", "chat", "./repo")

		require.NoError(t, err)
		assert.Equal(t, []string{"./repo"}, m.roots)
		assert.Contains(t, out, "Stored 9 chunks.")
	})

	t.Run("in-chat ingest and errors keep the loop alive", func(t *testing.T) {
		m := &mockAssistant{askErr: errors.New("model overloaded")}
		newTestEnv(t, m)

		out, err := run(t, "/ingest\n/ingest ./src\nwhy?\nquit\n", "chat")

		require.NoError(t, err)
		assert.Contains(t, out, "usage: /ingest <path|url>")
		assert.Equal(t, []string{"./src"}, m.roots)
		assert.Contains(t, out, "Error: model overloaded")
	})

	t.Run("initial ingest failure", func(t *testing.T) {
		newTestEnv(t, &mockAssistant{ingestErr: domain.ErrSourceUnavailable})

		_, err := run(t, "", "chat", "/missing")

		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	})
}

func TestWatchCmd(t *testing.T) {
	t.Run("batches changes until the stream ends", func(t *testing.T) {
		m := &mockAssistant{count: 4}
		env := newTestEnv(t, m)
		w := &mockWatcher{changes: make(chan driven.DocumentChange, 4)}
		SetServices(env.store, env.settings, &Runtime{Assistant: m, Watcher: w})

		w.changes <- driven.DocumentChange{Document: domain.Document{Source: "a.go", Content: "v1"}}
		w.changes <- driven.DocumentChange{Document: domain.Document{Source: "a.go", Content: "v2"}}
		w.changes <- driven.DocumentChange{Document: domain.Document{Source: "b.go", Content: "b"}}
		w.changes <- driven.DocumentChange{Document: domain.Document{Source: "c.go"}, Removed: true}
		close(w.changes)

		out, err := run(t, "", "watch", "--debounce", "1h", "./src")

		require.NoError(t, err)
		assert.Equal(t, "./src", w.root)
		assert.Equal(t, []string{"./src"}, m.roots)
		require.Len(t, m.batches, 1)
		batch := m.batches[0]
		require.Len(t, batch, 2)
		assert.Equal(t, "a.go", batch[0].Source)
		assert.Equal(t, "v2", batch[0].Content)
		assert.Equal(t, "b.go", batch[1].Source)
		assert.Contains(t, out, "Stored 4 chunks")
		assert.Contains(t, out, "Removed c.go")
		assert.Contains(t, out, "Re-ingested 2 files (4 chunks)")
	})

	t.Run("debounce flushes while watching", func(t *testing.T) {
		m := &mockAssistant{}
		env := newTestEnv(t, m)
		w := &mockWatcher{changes: make(chan driven.DocumentChange)}
		SetServices(env.store, env.settings, &Runtime{Assistant: m, Watcher: w})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			w.changes <- driven.DocumentChange{Document: domain.Document{Source: "x.py", Content: "x"}}
			assert.Eventually(t, func() bool {
				m.mu.Lock()
				defer m.mu.Unlock()
				return len(m.batches) == 1
			}, 2*time.Second, 5*time.Millisecond)
			cancel()
		}()

		_, err := runContext(t, ctx, "", "watch", "--no-initial", "--debounce", "10ms", "./src")

		require.NoError(t, err)
		assert.Empty(t, m.roots)
		require.Len(t, m.batches, 1)
		assert.Equal(t, "x.py", m.batches[0][0].Source)
	})

	t.Run("no watcher", func(t *testing.T) {
		newTestEnv(t, &mockAssistant{})

		_, err := run(t, "", "watch", "./src")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not supported")
	})
}

func TestLoadRuntime_Factory(t *testing.T) {
	env := newTestEnv(t, &mockAssistant{})
	SetServices(env.store, env.settings, nil)

	calls := 0
	m := &mockAssistant{count: 1}
	SetFactories(nil, func(_ context.Context, settings *domain.AppSettings) (*Runtime, error) {
		calls++
		assert.Equal(t, "chat-with-code", settings.Store.Index)
		return &Runtime{Assistant: m, Warnings: []string{"LLM unreachable"}}, nil
	})
	t.Cleanup(func() { SetFactories(nil, nil) })

	out, err := run(t, "", "ingest", "./a")
	require.NoError(t, err)
	_, err = run(t, "", "status")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Contains(t, out, "Warning: LLM unreachable")
}

func TestLoadRuntime_InvalidSettings(t *testing.T) {
	env := newTestEnv(t, &mockAssistant{})
	SetServices(env.store, env.settings, nil)
	require.NoError(t, env.store.Set("chunking.overlap", int64(900)))

	called := false
	SetFactories(nil, func(context.Context, *domain.AppSettings) (*Runtime, error) {
		called = true
		return nil, nil
	})
	t.Cleanup(func() { SetFactories(nil, nil) })

	_, err := run(t, "", "status")

	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.False(t, called)
}

func TestLoadRuntime_NotConfigured(t *testing.T) {
	env := newTestEnv(t, &mockAssistant{})
	SetServices(env.store, env.settings, nil)

	_, err := run(t, "", "status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "assistant service not configured")
}

func TestServerNamespace(t *testing.T) {
	env := newTestEnv(t, &mockAssistant{})

	assert.Equal(t, "", serverNamespace(), "unset lets the server generate one")

	require.NoError(t, env.store.Set("session.namespace", "team"))
	assert.Equal(t, "team", serverNamespace())

	namespaceFlag = "flag-ns"
	assert.Equal(t, "flag-ns", serverNamespace())
}

func TestCloseRuntime(t *testing.T) {
	env := newTestEnv(t, &mockAssistant{})
	closed := 0
	SetServices(env.store, env.settings, &Runtime{Assistant: env.assistant, Close: func() error {
		closed++
		return nil
	}})

	closeRuntime()
	closeRuntime()

	assert.Equal(t, 1, closed)
}
