// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/repochat/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/repochat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/repochat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/repochat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/repochat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/repochat/internal/core/ports/driving"
)

// ErrNoAssistant is returned when the view has no assistant service.
var ErrNoAssistant = errors.New("chat: assistant service not available")

// noContextNote is shown under answers produced without retrieved context.
const noContextNote = "(no indexed code matched; answer has no repository context)"

// Turn is one exchange in the transcript.
type Turn struct {
	Question string
	Answer   string
	Sources  []string
	Note     string
	Err      error
	Pending  bool
}

// View is the chat view: transcript, input and status bar.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.ChatInput
	transcript viewport.Model
	statusbar  *status.Bar

	assistant driving.AssistantService
	namespace string
	ctx       context.Context

	turns  []Turn
	busy   bool
	width  int
	height int
	ready  bool
}

// NewView creates a chat view bound to one session namespace.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	assistant driving.AssistantService,
	namespace string,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	bar.SetSession(namespace, 0)

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewChatInput(s),
		transcript: viewport.New(80, 16),
		statusbar:  bar,
		assistant:  assistant,
		namespace:  namespace,
		ctx:        context.Background(),
		width:      80,
		height:     24,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the cursor and loads the session status.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.loadStatus())
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.IngestCompleted:
		cmd := v.handleIngest(msg)
		return v, cmd

	case messages.StatusLoaded:
		if msg.Err == nil {
			v.statusbar.SetSession(v.namespace, msg.Stats.Count)
		}
		return v, nil

	case messages.ErrorOccurred:
		v.busy = false
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keymap.ScrollUp):
		v.transcript.PageUp()
		return v, nil
	case key.Matches(msg, v.keymap.ScrollDown):
		v.transcript.PageDown()
		return v, nil
	case key.Matches(msg, v.keymap.Send):
		return v.submit()
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit interprets the input line: a quit word, a slash command or a question.
func (v *View) submit() (*View, tea.Cmd) {
	line := strings.TrimSpace(v.input.Value())
	if line == "" || v.busy {
		return v, nil
	}
	v.input.Reset()

	switch lower := strings.ToLower(line); {
	case lower == "q" || lower == "quit" || lower == "exit":
		return v, tea.Quit

	case lower == "/status":
		return v, v.loadStatus()

	case strings.HasPrefix(lower, "/ingest"):
		root := strings.TrimSpace(line[len("/ingest"):])
		if root == "" {
			v.appendTurn(Turn{Question: line, Err: errors.New("usage: /ingest <path|url>")})
			return v, nil
		}
		v.busy = true
		v.statusbar.SetState(status.StateIngesting)
		v.statusbar.SetMessage(root)
		v.appendTurn(Turn{Question: line, Pending: true})
		return v, v.ingest(root)
	}

	v.busy = true
	v.statusbar.SetState(status.StateThinking)
	v.statusbar.SetMessage("")
	v.appendTurn(Turn{Question: line, Pending: true})
	return v, v.ask(line)
}

func (v *View) ask(question string) tea.Cmd {
	return func() tea.Msg {
		if v.assistant == nil {
			return messages.ErrorOccurred{Err: ErrNoAssistant}
		}
		answer, err := v.assistant.Ask(v.ctx, question, v.namespace)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

func (v *View) ingest(root string) tea.Cmd {
	return func() tea.Msg {
		if v.assistant == nil {
			return messages.ErrorOccurred{Err: ErrNoAssistant}
		}
		n, err := v.assistant.IngestSource(v.ctx, root, v.namespace)
		return messages.IngestCompleted{Root: root, Chunks: n, Err: err}
	}
}

func (v *View) loadStatus() tea.Cmd {
	return func() tea.Msg {
		if v.assistant == nil {
			return messages.ErrorOccurred{Err: ErrNoAssistant}
		}
		stats, err := v.assistant.Status(v.ctx, v.namespace)
		return messages.StatusLoaded{Stats: stats, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.busy = false
	turn := v.pendingTurn()
	if msg.Err != nil {
		turn.Err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
	} else if msg.Answer != nil {
		turn.Answer = msg.Answer.Text
		seen := make(map[string]bool)
		for _, src := range msg.Answer.Sources {
			if !seen[src.Origin] {
				seen[src.Origin] = true
				turn.Sources = append(turn.Sources, src.Origin)
			}
		}
		if !msg.Answer.HasContext() {
			turn.Note = noContextNote
		}
		v.statusbar.Clear()
	}
	v.refresh()
}

func (v *View) handleIngest(msg messages.IngestCompleted) tea.Cmd {
	v.busy = false
	turn := v.pendingTurn()
	if msg.Err != nil {
		turn.Err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		v.refresh()
		return nil
	}
	turn.Note = fmt.Sprintf("Ingested %d chunks from %s", msg.Chunks, msg.Root)
	v.statusbar.Clear()
	v.statusbar.SetMessage(turn.Note)
	v.refresh()
	return v.loadStatus()
}

// pendingTurn returns the last turn, creating one if a reply arrives unprompted.
func (v *View) pendingTurn() *Turn {
	if len(v.turns) == 0 || !v.turns[len(v.turns)-1].Pending {
		v.turns = append(v.turns, Turn{})
	}
	turn := &v.turns[len(v.turns)-1]
	turn.Pending = false
	return turn
}

func (v *View) appendTurn(t Turn) {
	v.turns = append(v.turns, t)
	v.refresh()
}

// refresh re-renders the transcript and keeps the newest turn in view.
func (v *View) refresh() {
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.turns) == 0 {
		return v.styles.Muted.Render("Ask a question about the indexed code, or /ingest a path or repository URL.")
	}

	wrap := lipgloss.NewStyle().Width(max(v.width-4, 20))
	var b strings.Builder
	for i, t := range v.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(v.styles.Question.Render("You: " + t.Question))
		switch {
		case t.Pending:
			b.WriteString("\n" + v.styles.Muted.Render("  ..."))
		case t.Err != nil:
			b.WriteString("\n" + v.styles.Error.Render("  Error: "+t.Err.Error()))
		default:
			if t.Answer != "" {
				b.WriteString("\n" + v.styles.Answer.Render(wrap.Render(t.Answer)))
			}
			for _, src := range t.Sources {
				b.WriteString("\n" + v.styles.Source.Render("- "+src))
			}
			if t.Note != "" {
				b.WriteString("\n" + v.styles.Muted.Render("  "+t.Note))
			}
		}
	}
	return b.String()
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("repochat"),
		"",
		v.transcript.View(),
		"",
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	// title, blank lines, bordered input, status bar
	v.transcript.Width = width
	v.transcript.Height = max(height-8, 3)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Turns returns the transcript.
func (v *View) Turns() []Turn {
	return v.turns
}

// Busy reports whether a request is in flight.
func (v *View) Busy() bool {
	return v.busy
}

// Input returns the current input value.
func (v *View) Input() string {
	return v.input.Value()
}

// StatusBar returns the status bar, for inspection.
func (v *View) StatusBar() *status.Bar {
	return v.statusbar
}
