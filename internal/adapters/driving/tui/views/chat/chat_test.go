package chat

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/repochat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/repochat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/repochat/internal/core/domain"
)

// mockAssistant implements driving.AssistantService for testing.
type mockAssistant struct {
	answer    *domain.Answer
	askErr    error
	ingested  int
	ingestErr error
	stats     domain.IndexStats

	questions []string
	roots     []string
	namespace string
}

func (m *mockAssistant) Ingest(_ context.Context, docs []domain.Document, _ string) (int, error) {
	return len(docs), nil
}

func (m *mockAssistant) IngestSource(_ context.Context, root, namespace string) (int, error) {
	m.roots = append(m.roots, root)
	m.namespace = namespace
	return m.ingested, m.ingestErr
}

func (m *mockAssistant) Ask(_ context.Context, question, namespace string) (*domain.Answer, error) {
	m.questions = append(m.questions, question)
	m.namespace = namespace
	return m.answer, m.askErr
}

func (m *mockAssistant) Retrieve(_ context.Context, _, _ string) ([]domain.RetrievedChunk, error) {
	return nil, nil
}

func (m *mockAssistant) Status(_ context.Context, namespace string) (domain.IndexStats, error) {
	m.namespace = namespace
	return m.stats, nil
}

func newTestView(m *mockAssistant) *View {
	v := NewView(nil, nil, m, "session-1")
	v.SetDimensions(100, 30)
	return v
}

func typeLine(v *View, line string) (*View, tea.Cmd) {
	v.input.SetValue(line)
	return v.Update(tea.KeyMsg{Type: tea.KeyEnter})
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil, &mockAssistant{}, "ns")

	require.NotNil(t, v)
	assert.False(t, v.Ready())
	assert.Equal(t, "Initialising...", v.View())
	assert.NotNil(t, v.Init())
}

func TestView_Ask(t *testing.T) {
	m := &mockAssistant{answer: &domain.Answer{
		Question: "what does a do?",
		Text:     "It returns one.",
		Sources: []domain.RetrievedChunk{
			{ID: "a.py_0", Origin: "a.py"},
			{ID: "a.py_1", Origin: "a.py"},
			{ID: "b.py_0", Origin: "b.py"},
		},
	}}
	v := newTestView(m)

	v, cmd := typeLine(v, "  what does a do?  ")
	require.NotNil(t, cmd)
	assert.True(t, v.Busy())
	assert.Equal(t, "", v.Input())
	assert.Equal(t, status.StateThinking, v.StatusBar().State())
	require.Len(t, v.Turns(), 1)
	assert.True(t, v.Turns()[0].Pending)

	v, _ = v.Update(cmd())

	assert.False(t, v.Busy())
	assert.Equal(t, []string{"what does a do?"}, m.questions)
	assert.Equal(t, "session-1", m.namespace)
	turn := v.Turns()[0]
	assert.False(t, turn.Pending)
	assert.Equal(t, "It returns one.", turn.Answer)
	assert.Equal(t, []string{"a.py", "b.py"}, turn.Sources)
	assert.Empty(t, turn.Note)
	assert.Contains(t, v.View(), "It returns one.")
}

func TestView_Ask_NoContext(t *testing.T) {
	m := &mockAssistant{answer: &domain.Answer{Question: "q?", Text: "I don't know."}}
	v := newTestView(m)

	v, cmd := typeLine(v, "q?")
	v, _ = v.Update(cmd())

	assert.Equal(t, noContextNote, v.Turns()[0].Note)
}

func TestView_Ask_Error(t *testing.T) {
	m := &mockAssistant{askErr: domain.ErrLLMUnavailable}
	v := newTestView(m)

	v, cmd := typeLine(v, "why?")
	v, _ = v.Update(cmd())

	assert.ErrorIs(t, v.Turns()[0].Err, domain.ErrLLMUnavailable)
	assert.Equal(t, status.StateError, v.StatusBar().State())
	assert.Contains(t, v.View(), "Error:")
}

func TestView_IgnoresInputWhileBusy(t *testing.T) {
	m := &mockAssistant{answer: &domain.Answer{Text: "a"}}
	v := newTestView(m)

	v, first := typeLine(v, "one")
	require.NotNil(t, first)
	v, second := typeLine(v, "two")

	assert.Nil(t, second)
	assert.Len(t, v.Turns(), 1)
}

func TestView_EmptyLine(t *testing.T) {
	v := newTestView(&mockAssistant{})

	v, cmd := typeLine(v, "   ")

	assert.Nil(t, cmd)
	assert.Empty(t, v.Turns())
}

func TestView_QuitWords(t *testing.T) {
	for _, word := range []string{"q", "Q", "quit", "exit"} {
		t.Run(word, func(t *testing.T) {
			v := newTestView(&mockAssistant{})

			_, cmd := typeLine(v, word)

			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestView_Ingest(t *testing.T) {
	m := &mockAssistant{ingested: 12, stats: domain.IndexStats{Namespace: "session-1", Count: 12}}
	v := newTestView(m)

	v, cmd := typeLine(v, "/ingest ./repo")
	require.NotNil(t, cmd)
	assert.Equal(t, status.StateIngesting, v.StatusBar().State())

	v, statusCmd := v.Update(cmd())
	assert.Equal(t, []string{"./repo"}, m.roots)
	assert.Equal(t, "Ingested 12 chunks from ./repo", v.Turns()[0].Note)
	require.NotNil(t, statusCmd)

	v, _ = v.Update(statusCmd())
	assert.Equal(t, int64(12), v.StatusBar().Chunks())
}

func TestView_Ingest_Errors(t *testing.T) {
	t.Run("missing argument", func(t *testing.T) {
		v := newTestView(&mockAssistant{})

		v, cmd := typeLine(v, "/ingest")

		assert.Nil(t, cmd)
		require.Len(t, v.Turns(), 1)
		assert.Contains(t, v.Turns()[0].Err.Error(), "usage")
	})

	t.Run("source unavailable", func(t *testing.T) {
		v := newTestView(&mockAssistant{ingestErr: domain.ErrSourceUnavailable})

		v, cmd := typeLine(v, "/ingest /nope")
		v, next := v.Update(cmd())

		assert.Nil(t, next)
		assert.ErrorIs(t, v.Turns()[0].Err, domain.ErrSourceUnavailable)
	})
}

func TestView_StatusCommand(t *testing.T) {
	m := &mockAssistant{stats: domain.IndexStats{Count: 7}}
	v := newTestView(m)

	v, cmd := typeLine(v, "/status")
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())

	assert.Equal(t, int64(7), v.StatusBar().Chunks())
	assert.Empty(t, v.Turns())
}

func TestView_NoAssistant(t *testing.T) {
	v := NewView(nil, nil, nil, "ns")
	v.SetDimensions(80, 24)

	v, cmd := typeLine(v, "hello")
	v, _ = v.Update(cmd())

	assert.False(t, v.Busy())
	assert.Equal(t, status.StateError, v.StatusBar().State())
	assert.Equal(t, ErrNoAssistant.Error(), v.StatusBar().Message())
}

func TestView_UnpromptedAnswer(t *testing.T) {
	v := newTestView(&mockAssistant{})

	v, _ = v.Update(messages.AnswerReceived{Answer: &domain.Answer{Text: "late"}, Err: nil})

	require.Len(t, v.Turns(), 1)
	assert.Equal(t, "late", v.Turns()[0].Answer)
}

func TestView_ErrorOccurred(t *testing.T) {
	v := newTestView(&mockAssistant{})

	v, _ = v.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.Equal(t, "boom", v.StatusBar().Message())
}

func TestView_Scroll(t *testing.T) {
	v := newTestView(&mockAssistant{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Nil(t, cmd)
	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Nil(t, cmd)
}

func TestView_TypesIntoInput(t *testing.T) {
	v := newTestView(&mockAssistant{})

	for _, r := range "hi" {
		v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	assert.Equal(t, "hi", v.Input())
}
