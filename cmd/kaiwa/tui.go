package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/kaiwa-labs/kaiwa-core/core/render"
)

// tui adapts a bubbletea program to the pipeline's render surface. Surface
// calls arrive from pipeline goroutines and are forwarded as messages;
// bubbletea serializes them into the model.
type tui struct {
	program        *tea.Program
	submitText     func(text string) error
	pausePlayback  func()
	resumePlayback func()
}

func newTUI() *tui {
	t := &tui{}
	model := conversationModel{
		input: textinput.New(),
		owner: t,
	}
	model.input.Placeholder = "type here when speech fails"
	model.input.CharLimit = 500
	t.program = tea.NewProgram(model, tea.WithAltScreen())
	return t
}

type (
	stateMsg      string
	levelMsg      int
	transcriptMsg string
	replyMsg      render.ReplyUpdate
	errorMsg      string
	warningMsg    string
)

func (t *tui) ShowState(state string)            { t.program.Send(stateMsg(state)) }
func (t *tui) ShowLevel(level int)               { t.program.Send(levelMsg(level)) }
func (t *tui) ShowTranscript(text string)        { t.program.Send(transcriptMsg(text)) }
func (t *tui) ShowReply(update render.ReplyUpdate) { t.program.Send(replyMsg(update)) }
func (t *tui) ShowError(message string)          { t.program.Send(errorMsg(message)) }
func (t *tui) ShowWarning(message string)        { t.program.Send(warningMsg(message)) }

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	stateStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	transcriptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("248"))
	replyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	interruptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Strikethrough(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	meterStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("120"))
)

type conversationModel struct {
	owner *tui

	width      int
	state      string
	paused     bool
	level      int
	transcript string
	reply      render.ReplyUpdate
	notice     string
	noticeKind string

	input textinput.Model
}

func (m conversationModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m conversationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlP:
			if m.state != "speaking" {
				return m, nil
			}
			if m.paused {
				if m.owner.resumePlayback != nil {
					m.owner.resumePlayback()
				}
				m.paused = false
			} else {
				if m.owner.pausePlayback != nil {
					m.owner.pausePlayback()
				}
				m.paused = true
			}
			return m, nil
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			if m.owner.submitText != nil {
				if err := m.owner.submitText(text); err != nil {
					m.notice = err.Error()
					m.noticeKind = "warning"
					return m, nil
				}
			}
			m.input.Reset()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case stateMsg:
		m.state = string(msg)
		if m.state != "speaking" {
			m.paused = false
		}
		if m.state == "listening" {
			m.notice = ""
		}
		if m.state == "idle" {
			m.input.Focus()
		}
		return m, nil

	case levelMsg:
		m.level = int(msg)
		return m, nil

	case transcriptMsg:
		m.transcript = string(msg)
		m.notice = ""
		return m, nil

	case replyMsg:
		m.reply = render.ReplyUpdate(msg)
		return m, nil

	case errorMsg:
		m.notice = string(msg)
		m.noticeKind = "error"
		return m, nil

	case warningMsg:
		m.notice = string(msg)
		m.noticeKind = "warning"
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m conversationModel) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("kaiwa"))
	b.WriteString("  ")
	b.WriteString(stateStyle.Render(m.state))
	if m.paused {
		b.WriteString(stateStyle.Render(" (paused, ctrl+p to resume)"))
	}
	b.WriteString("\n")
	b.WriteString(meterStyle.Render(levelMeter(m.level)))
	b.WriteString("\n\n")

	if m.transcript != "" {
		b.WriteString(transcriptStyle.Render("you: " + m.transcript))
		b.WriteString("\n")
	}

	if m.reply.PartialText != "" {
		text := wordwrap.String(m.reply.PartialText, width-2)
		if m.reply.IsInterrupted {
			b.WriteString(interruptStyle.Render(text))
		} else {
			b.WriteString(replyStyle.Render(text))
		}
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString("\n")
		if m.noticeKind == "error" {
			b.WriteString(errorStyle.Render(m.notice))
		} else {
			b.WriteString(warningStyle.Render(m.notice))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	return b.String()
}

// levelMeter renders the 0..100 microphone level as a 20 cell bar.
func levelMeter(level int) string {
	if level < 0 {
		level = 0
	} else if level > 100 {
		level = 100
	}
	filled := level / 5
	return fmt.Sprintf("mic [%s%s]", strings.Repeat("█", filled), strings.Repeat("░", 20-filled))
}
