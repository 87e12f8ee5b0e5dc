package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/postprocessors"
)

// mockLLM records the last Answer call.
type mockLLM struct {
	reply       string
	err         error
	gotContext  string
	gotQuestion string
	calls       int
}

func (m *mockLLM) Chat(context.Context, []driven.ChatMessage, driven.ChatOptions) (string, error) {
	return m.reply, m.err
}

func (m *mockLLM) Answer(_ context.Context, contextText, question string) (string, error) {
	m.calls++
	m.gotContext = contextText
	m.gotQuestion = question
	return m.reply, m.err
}

func (m *mockLLM) ModelName() string { return "mock-llm" }

func (m *mockLLM) Ping(context.Context) error { return nil }

func (m *mockLLM) Close() error { return nil }

var _ driven.LLMService = (*mockLLM)(nil)

// mockSource returns fixed documents or an error.
type mockSource struct {
	docs    []domain.Document
	err     error
	gotRoot string
}

func (m *mockSource) Load(_ context.Context, root string) ([]domain.Document, error) {
	m.gotRoot = root
	return m.docs, m.err
}

func newTestAssistant(t *testing.T, llm driven.LLMService, topK int) (*AssistantService, *recordingIndex) {
	t.Helper()
	index := newRecordingIndex()
	coord := newTestCoordinator(t, newMockEmbedding(testDims), index)
	pipeline, err := postprocessors.NewDefaultPipeline(domain.ChunkingSettings{Size: 500, Overlap: 50})
	require.NoError(t, err)

	return NewAssistantService(coord, pipeline, llm, topK), index
}

func TestNewAssistantService_DefaultTopK(t *testing.T) {
	svc := NewAssistantService(nil, nil, nil, 0)
	assert.Equal(t, DefaultTopK, svc.topK)
}

func TestAssistantService_Ingest(t *testing.T) {
	svc, index := newTestAssistant(t, nil, 3)
	ctx := context.Background()

	n, err := svc.Ingest(ctx, []domain.Document{
		{Source: "a.py", Content: "def add(a,b): return a+b"},
		{Source: "b.py", Content: "class Foo: pass"},
		{Source: "empty.txt", Content: "   \n"},
	}, "ns")

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, index.upserts)

	stats, err := svc.Status(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Count)
}

func TestAssistantService_Ingest_LongDocumentIsChunked(t *testing.T) {
	svc, _ := newTestAssistant(t, nil, 3)
	ctx := context.Background()
	content := strings.Repeat("line of source code\n", 100)

	n, err := svc.Ingest(ctx, []domain.Document{{Source: "long.go", Content: content}}, "ns")

	require.NoError(t, err)
	assert.Greater(t, n, 1)
}

func TestAssistantService_Ingest_NothingToStore(t *testing.T) {
	svc, index := newTestAssistant(t, nil, 3)

	n, err := svc.Ingest(context.Background(), nil, "ns")

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, index.upserts)
}

func TestAssistantService_Ingest_InvalidNamespace(t *testing.T) {
	svc, _ := newTestAssistant(t, nil, 3)

	_, err := svc.Ingest(context.Background(), []domain.Document{{Source: "a", Content: "x"}}, "")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAssistantService_Ask(t *testing.T) {
	llm := &mockLLM{reply: "It adds two numbers."}
	svc, _ := newTestAssistant(t, llm, 2)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, []domain.Document{
		{Source: "a.py", Content: "def add(a,b): return a+b"},
		{Source: "b.py", Content: "class Foo: pass"},
	}, "ns")
	require.NoError(t, err)

	answer, err := svc.Ask(ctx, "  what does add do?  ", "ns")

	require.NoError(t, err)
	assert.Equal(t, "It adds two numbers.", answer.Text)
	assert.Equal(t, "what does add do?", answer.Question)
	assert.Equal(t, "what does add do?", llm.gotQuestion)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, answer.Sources[0].Text+"\n\n"+answer.Sources[1].Text, llm.gotContext)
	assert.True(t, answer.HasContext())
}

func TestAssistantService_Ask_EmptyNamespaceStillAsks(t *testing.T) {
	llm := &mockLLM{reply: "I don't know."}
	svc, _ := newTestAssistant(t, llm, 3)

	answer, err := svc.Ask(context.Background(), "anything?", "empty")

	require.NoError(t, err)
	assert.False(t, answer.HasContext())
	assert.Equal(t, 1, llm.calls)
	assert.Empty(t, llm.gotContext)
}

func TestAssistantService_Ask_NoLLM(t *testing.T) {
	svc, _ := newTestAssistant(t, nil, 3)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, []domain.Document{{Source: "a.go", Content: "package main"}}, "ns")
	require.NoError(t, err)

	answer, err := svc.Ask(ctx, "package main", "ns")

	require.NoError(t, err)
	assert.Empty(t, answer.Text)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "a.go", answer.Sources[0].Origin)
}

func TestAssistantService_Ask_EmptyQuestion(t *testing.T) {
	llm := &mockLLM{}
	svc, _ := newTestAssistant(t, llm, 3)

	_, err := svc.Ask(context.Background(), " \t", "ns")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, llm.calls)
}

func TestAssistantService_Ask_LLMFailure(t *testing.T) {
	tests := []struct {
		name    string
		llmErr  error
		wantErr error
	}{
		{name: "unclassified", llmErr: errors.New("500 internal"), wantErr: domain.ErrLLMUnavailable},
		{name: "already classified", llmErr: fmt.Errorf("%w: timeout", domain.ErrLLMUnavailable), wantErr: domain.ErrLLMUnavailable},
		{name: "cancelled", llmErr: context.Canceled, wantErr: context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestAssistant(t, &mockLLM{err: tt.llmErr}, 3)

			_, err := svc.Ask(context.Background(), "q", "ns")

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAssistantService_Retrieve(t *testing.T) {
	svc, _ := newTestAssistant(t, nil, 1)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, []domain.Document{
		{Source: "a.py", Content: "def add(a,b): return a+b"},
		{Source: "b.py", Content: "class Foo: pass"},
	}, "ns")
	require.NoError(t, err)

	got, err := svc.Retrieve(ctx, "addition function", "ns")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.py", got[0].Origin)
}

func TestAssistantService_IngestSource(t *testing.T) {
	svc, _ := newTestAssistant(t, nil, 3)
	source := &mockSource{docs: []domain.Document{{Source: "main.go", Content: "package main"}}}
	svc.SetDocumentSource(source)

	n, err := svc.IngestSource(context.Background(), "/repo", "ns")

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "/repo", source.gotRoot)
}

func TestAssistantService_IngestSource_Errors(t *testing.T) {
	t.Run("no source", func(t *testing.T) {
		svc, _ := newTestAssistant(t, nil, 3)
		_, err := svc.IngestSource(context.Background(), "/repo", "ns")
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("empty root", func(t *testing.T) {
		svc, _ := newTestAssistant(t, nil, 3)
		svc.SetDocumentSource(&mockSource{})
		_, err := svc.IngestSource(context.Background(), " ", "ns")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("loader failure is wrapped", func(t *testing.T) {
		svc, index := newTestAssistant(t, nil, 3)
		svc.SetDocumentSource(&mockSource{err: errors.New("clone failed")})
		_, err := svc.IngestSource(context.Background(), "https://github.com/x/y", "ns")
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
		assert.Zero(t, index.upserts)
	})

	t.Run("classified loader failure kept", func(t *testing.T) {
		svc, _ := newTestAssistant(t, nil, 3)
		cause := fmt.Errorf("%w: not a directory", domain.ErrSourceUnavailable)
		svc.SetDocumentSource(&mockSource{err: cause})
		_, err := svc.IngestSource(context.Background(), "/nope", "ns")
		assert.Equal(t, cause, err)
	})
}
