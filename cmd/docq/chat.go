package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question-answering session",
	Long: `Open an interactive terminal session against the docqad server.
Type a question and press Enter; answers stream into a scrollable
transcript with their confidence and sources.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	client := newClient(serverURL)

	// Fail fast when the server is unreachable rather than inside the TUI.
	var health HealthResponse
	if err := client.getJSON("/health", &health); err != nil {
		return err
	}

	p := tea.NewProgram(newChatModel(client, health.Version), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// answerMsg carries one completed ask round-trip into the update loop.
type answerMsg struct {
	resp *QuestionResponse
	err  error
}

type chatModel struct {
	client        *apiClient
	serverVersion string

	input    textinput.Model
	viewport viewport.Model

	transcript []string
	waiting    bool
	status     string
	ready      bool
}

func newChatModel(client *apiClient, serverVersion string) chatModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return chatModel{
		client:        client,
		serverVersion: serverVersion,
		input:         ti,
		viewport:      viewport.New(0, 0),
		status:        "Connected. Ctrl+C to quit.",
	}
}

func (m chatModel) Init() tea.Cmd { return textinput.Blink }

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + ih + 1 // header + status + input frame + spacer
		vh := msg.Height - reserved - th
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(strings.Join(m.transcript, "\n"))
		return m, nil

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.transcript = append(m.transcript, renderAnswer(msg.resp), "")
			m.status = fmt.Sprintf("Answered in %.2fs. Ctrl+C to quit.", msg.resp.ProcessingTime)
		}
		m.viewport.SetContent(strings.Join(m.transcript, "\n"))
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			m.status = "Thinking..."
			m.transcript = append(m.transcript, questionStyle.Render("You: "+q))
			m.viewport.SetContent(strings.Join(m.transcript, "\n"))
			m.viewport.GotoBottom()
			return m, m.ask(q)
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("docqad chat") +
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("  server "+m.serverVersion)
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

// ask performs the round-trip off the update loop.
func (m chatModel) ask(question string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		var resp QuestionResponse
		if err := client.postJSON("/api/v1/qa/ask", QuestionRequest{Question: question}, &resp); err != nil {
			return answerMsg{err: err}
		}
		return answerMsg{resp: &resp}
	}
}

func renderAnswer(resp *QuestionResponse) string {
	var b strings.Builder
	b.WriteString(answerStyle.Render("docqad: "))
	b.WriteString(resp.Answer)
	b.WriteString("\n")
	b.WriteString(sourceStyle.Render(fmt.Sprintf("confidence %.2f", resp.ConfidenceScore)))
	for i, src := range resp.Sources {
		b.WriteString("\n")
		b.WriteString(sourceStyle.Render(fmt.Sprintf("  [%d] %s (%.3f)", i+1, src.DocumentName, src.Score)))
	}
	return b.String()
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	answerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	sourceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
