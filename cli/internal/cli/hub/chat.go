package hub

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	agenthub "github.com/agenthub-dev/agenthub/go/pkg/hub"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/accumulate"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/normalize"
)

// NewChatCmd creates the interactive chat command.
func NewChatCmd(load hubLoader) *cobra.Command {
	var slot string

	cmd := &cobra.Command{
		Use:   "chat [backend-id]",
		Short: "Chat with a backend interactively",
		Long: `Open an interactive chat session against one backend. The backend's
server is launched on first message and reused for the whole session.

Examples:
  agenthub chat gemini
  agenthub chat claude --slot work`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, _, err := load()
			if err != nil {
				return err
			}
			defer h.Close()

			model := newChatModel(h, args[0], slot)
			program := tea.NewProgram(model, tea.WithAltScreen())
			_, err = program.Run()
			return err
		},
	}

	cmd.Flags().StringVar(&slot, "slot", "default", "Conversation slot to chat on")
	return cmd
}

var (
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	agentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	toolStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
)

type turnUpdateMsg struct{ update agenthub.TurnUpdate }

type turnDoneMsg struct{ err error }

type chatModel struct {
	hub       *agenthub.Hub
	backendID string
	slotID    string

	input   textinput.Model
	spin    spinner.Model
	width   int
	busy    bool
	history []string
	current *accumulate.ChatMessage
	err     error

	updates chan tea.Msg
	cancel  context.CancelFunc
}

func newChatModel(h *agenthub.Hub, backendID, slotID string) *chatModel {
	input := textinput.New()
	input.Placeholder = "Send a message (esc to cancel the turn, ctrl+c to quit)"
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return &chatModel{
		hub:       h,
		backendID: backendID,
		slotID:    slotID,
		input:     input,
		spin:      spin,
		width:     80,
		updates:   make(chan tea.Msg, 64),
	}
}

func (m *chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case tea.KeyEsc:
			if m.busy {
				go m.hub.CancelTurn(context.Background(), m.backendID, m.slotID)
			}
			return m, nil
		case tea.KeyEnter:
			if m.busy || strings.TrimSpace(m.input.Value()) == "" {
				break
			}
			text := m.input.Value()
			m.input.Reset()
			m.history = append(m.history, userStyle.Render("you ")+text)
			return m, tea.Batch(m.startTurn(text), m.spin.Tick, m.waitForUpdate())
		}

	case turnUpdateMsg:
		snapshot := msg.update.Message
		m.current = &snapshot
		return m, m.waitForUpdate()

	case turnDoneMsg:
		m.busy = false
		m.err = msg.err
		if m.current != nil {
			m.history = append(m.history, m.renderMessage(*m.current))
			m.current = nil
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.busy {
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startTurn runs the turn on its own goroutine, feeding snapshots through
// the updates channel so the event loop stays responsive.
func (m *chatModel) startTurn(text string) tea.Cmd {
	m.busy = true
	m.err = nil
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	return func() tea.Msg {
		_, err := m.hub.RunTurn(ctx, m.backendID, m.slotID, text, func(u agenthub.TurnUpdate) {
			m.updates <- turnUpdateMsg{update: u}
		})
		m.updates <- turnDoneMsg{err: err}
		return nil
	}
}

func (m *chatModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

func (m *chatModel) View() string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("agenthub · %s · slot %s", m.backendID, m.slotID)))
	sb.WriteString("\n\n")

	for _, entry := range m.history {
		sb.WriteString(entry)
		sb.WriteString("\n")
	}
	if m.current != nil {
		sb.WriteString(m.renderMessage(*m.current))
		sb.WriteString("\n")
	}
	if m.err != nil {
		sb.WriteString(errorStyle.Render("error: " + m.err.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if m.busy {
		sb.WriteString(m.spin.View() + dimStyle.Render(" thinking..."))
	} else {
		sb.WriteString(m.input.View())
	}
	return sb.String()
}

func (m *chatModel) renderMessage(msg accumulate.ChatMessage) string {
	width := m.width
	if width < 20 {
		width = 80
	}
	var sb strings.Builder
	for _, b := range msg.Blocks {
		sb.WriteString(renderBlock(b, width))
	}
	return sb.String()
}

func renderBlock(b accumulate.MessageBlock, width int) string {
	switch b.Type {
	case normalize.BlockText:
		return wordwrap.String(b.Content, width) + "\n"
	case normalize.BlockReasoning:
		return dimStyle.Render(wordwrap.String("· "+b.Content, width)) + "\n"
	case normalize.BlockCommandExecution:
		head := "$ "
		if b.Meta != nil && b.Meta.Command != "" {
			head += b.Meta.Command
		}
		out := toolStyle.Render(head) + "\n"
		if b.Content != "" {
			out += dimStyle.Render(b.Content)
			if !strings.HasSuffix(b.Content, "\n") {
				out += "\n"
			}
		}
		return out
	case normalize.BlockToolCall:
		name := "tool"
		if b.Meta != nil && b.Meta.ToolName != "" {
			name = b.Meta.ToolName
		}
		status := ""
		if b.Meta != nil && b.Meta.Status != "" {
			status = " [" + b.Meta.Status + "]"
		}
		return toolStyle.Render("⚙ "+name+status) + "\n"
	case normalize.BlockFileChange:
		out := toolStyle.Render("✎ file change") + "\n"
		if b.Meta != nil {
			for _, f := range b.Meta.Files {
				out += dimStyle.Render("  "+f.Path) + "\n"
			}
		}
		return out
	case normalize.BlockWebSearch:
		q := ""
		if b.Meta != nil {
			q = b.Meta.Query
		}
		return toolStyle.Render("⌕ "+q) + "\n"
	case normalize.BlockTodoList:
		var out string
		if b.Meta != nil {
			for _, todo := range b.Meta.Todos {
				mark := "☐"
				if todo.Done {
					mark = "☑"
				}
				out += dimStyle.Render("  "+mark+" "+todo.Text) + "\n"
			}
		}
		return out
	case normalize.BlockError:
		return errorStyle.Render(wordwrap.String(b.Content, width)) + "\n"
	case normalize.BlockArtifact:
		if b.Artifact == nil {
			return ""
		}
		name := b.Artifact.Name
		if name == "" {
			name = b.Artifact.ArtifactID
		}
		return toolStyle.Render("⇩ artifact "+name) + "\n" +
			dimStyle.Render(wordwrap.String(strings.Join(b.Artifact.Parts, ""), width)) + "\n"
	}
	return wordwrap.String(b.Content, width) + "\n"
}
