package mcp

import (
	"context"

	"github.com/custodia-labs/repochat/internal/core/domain"
)

// mockAssistant is a mock implementation of driving.AssistantService.
type mockAssistant struct {
	answer *domain.Answer
	chunks []domain.RetrievedChunk
	stats  domain.IndexStats
	count  int
	err    error

	root      string
	question  string
	namespace string
}

func (m *mockAssistant) Ingest(_ context.Context, docs []domain.Document, namespace string) (int, error) {
	m.namespace = namespace
	return len(docs), m.err
}

func (m *mockAssistant) IngestSource(_ context.Context, root, namespace string) (int, error) {
	m.root = root
	m.namespace = namespace
	return m.count, m.err
}

func (m *mockAssistant) Ask(_ context.Context, question, namespace string) (*domain.Answer, error) {
	m.question = question
	m.namespace = namespace
	return m.answer, m.err
}

func (m *mockAssistant) Retrieve(_ context.Context, query, namespace string) ([]domain.RetrievedChunk, error) {
	m.question = query
	m.namespace = namespace
	return m.chunks, m.err
}

func (m *mockAssistant) Status(_ context.Context, namespace string) (domain.IndexStats, error) {
	m.namespace = namespace
	stats := m.stats
	stats.Namespace = namespace
	return stats, m.err
}
