// Package tui provides the interactive chat surface, a Bubbletea
// program that streams answers and renders citations in place.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
	"github.com/mcpress/bookchat/internal/core/ports/driving"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89b4fa"))

	questionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#f9e2af"))

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6c7086"))

	confidenceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a6e3a1"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f9e2af"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f38ba8"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6c7086"))
)

// answerDeltaMsg carries one streamed answer fragment.
type answerDeltaMsg struct {
	delta string
}

// answerDoneMsg carries the completed answer with its citations.
type answerDoneMsg struct {
	answer *domain.Answer
}

// answerErrMsg reports a failed question.
type answerErrMsg struct {
	err error
}

// Model is the chat conversation model following the Elm architecture.
type Model struct {
	ctx  context.Context
	chat driving.ChatService

	input      textinput.Model
	history    []driven.ChatMessage
	transcript []string

	// question and partial hold the in-flight exchange while the
	// answer streams.
	question  string
	partial   strings.Builder
	streaming bool
	deltas    chan tea.Msg

	width    int
	quitting bool
}

// Ensure Model implements tea.Model.
var _ tea.Model = (*Model)(nil)

// NewModel creates a chat model over the given chat service.
func NewModel(ctx context.Context, chat driving.ChatService) *Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about the MC Press library..."
	ti.CharLimit = 512
	ti.Width = 60
	ti.Focus()

	return &Model{
		ctx:   ctx,
		chat:  chat,
		input: ti,
	}
}

// Init starts the cursor blink.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key input and streamed answer messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		inputWidth := msg.Width - 4
		if inputWidth < 20 {
			inputWidth = 20
		}
		m.input.Width = inputWidth
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			if m.streaming {
				return m, nil
			}
			return m.submit()
		}

		if m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case answerDeltaMsg:
		m.partial.WriteString(msg.delta)
		return m, m.nextMsg()

	case answerDoneMsg:
		m.finishExchange(msg.answer)
		return m, textinput.Blink

	case answerErrMsg:
		m.transcript = append(m.transcript,
			errorStyle.Render(fmt.Sprintf("Error: %v", msg.err)), "")
		m.streaming = false
		m.partial.Reset()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts streaming the typed question, if there is one.
func (m *Model) submit() (tea.Model, tea.Cmd) {
	question := strings.TrimSpace(m.input.Value())
	if question == "" {
		return m, nil
	}
	if question == "exit" || question == "quit" {
		m.quitting = true
		return m, tea.Quit
	}

	m.question = question
	m.partial.Reset()
	m.streaming = true
	m.input.Reset()
	m.transcript = append(m.transcript, questionStyle.Render("> "+question), "")
	return m, m.ask(question)
}

// ask runs the chat service in the background, forwarding each streamed
// fragment as a message.
func (m *Model) ask(question string) tea.Cmd {
	ch := make(chan tea.Msg, 16)
	m.deltas = ch

	history := m.history
	go func() {
		answer, err := m.chat.Ask(m.ctx, question, history, func(delta string) error {
			ch <- answerDeltaMsg{delta: delta}
			return nil
		})
		if err != nil {
			ch <- answerErrMsg{err: err}
		} else {
			ch <- answerDoneMsg{answer: answer}
		}
		close(ch)
	}()

	return m.nextMsg()
}

// nextMsg waits for the next streamed message.
func (m *Model) nextMsg() tea.Cmd {
	ch := m.deltas
	return func() tea.Msg {
		return <-ch
	}
}

// finishExchange folds the completed answer into the transcript and
// conversation history.
func (m *Model) finishExchange(answer *domain.Answer) {
	m.transcript = append(m.transcript, answer.Text, "")
	m.transcript = append(m.transcript, renderMeta(answer)...)

	m.history = append(m.history,
		driven.ChatMessage{Role: "user", Content: m.question},
		driven.ChatMessage{Role: "assistant", Content: answer.Text},
	)
	m.question = ""
	m.partial.Reset()
	m.streaming = false
}

// renderMeta renders the citation block under a finished answer.
func renderMeta(answer *domain.Answer) []string {
	if !answer.UsedContext {
		return []string{
			warnStyle.Render("Answered from general knowledge; no matching documentation was found."),
			"",
		}
	}

	lines := []string{titleStyle.Render("Sources")}
	for _, src := range answer.Sources {
		line := fmt.Sprintf("  %s, p. %s", src.Title, src.Page)
		if src.Author != "" {
			line += " by " + src.Author
		}
		lines = append(lines, sourceStyle.Render(line))
		if src.MCPressURL != "" {
			lines = append(lines, sourceStyle.Render("    "+src.MCPressURL))
		}
	}
	lines = append(lines,
		confidenceStyle.Render(fmt.Sprintf("Confidence: %.3f", answer.Confidence)), "")
	return lines
}

// View renders the transcript, the streaming answer, and the input.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("bookchat"))
	b.WriteString("\n\n")

	for _, line := range m.transcript {
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.streaming {
		b.WriteString(m.partial.String())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("streaming..."))
	} else {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter: ask  •  esc: quit"))
	}
	b.WriteString("\n")
	return b.String()
}

// Run starts the interactive chat program.
func Run(ctx context.Context, chat driving.ChatService) error {
	if chat == nil {
		return domain.ErrLLMUnavailable
	}

	p := tea.NewProgram(NewModel(ctx, chat), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
