// Package ui hosts the full-screen terminal model for term mode: a
// scrolling log of channel traffic, an input line, and a status bar.
package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/otxo/fotolink/internal/util"
	"github.com/otxo/fotolink/pkg/transfer"
)

const maxLogLines = 500

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62"))
	sentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// lineMsg is one line read from the channel.
type lineMsg string

// readErrMsg is a hard channel read failure; it ends the session.
type readErrMsg struct{ err error }

// TermModel is the bubbletea model bridging the channel to the screen.
// The channel reader runs as a command pump: each delivered line schedules
// the next read, so exactly one read is in flight at any time.
type TermModel struct {
	ch       transfer.Channel
	portName string
	baud     int

	vp    viewport.Model
	input textinput.Model
	lines []string

	rx, tx int
	width  int
	ready  bool
	err    error
}

// NewTermModel returns the model for the channel behind portName.
func NewTermModel(ch transfer.Channel, portName string, baud int) TermModel {
	input := textinput.New()
	input.Placeholder = "line to send"
	input.Prompt = "> "
	input.Focus()

	return TermModel{
		ch:       ch,
		portName: portName,
		baud:     baud,
		input:    input,
	}
}

func (m TermModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.readLine())
}

// readLine blocks until the channel delivers a line or fails hard. Idle
// timeouts are the quiet state of a serial link and keep the pump going.
func (m TermModel) readLine() tea.Cmd {
	return func() tea.Msg {
		for {
			line, err := m.ch.ReadLine()
			if err != nil {
				if errors.Is(err, transfer.ErrReadTimeout) {
					continue
				}
				return readErrMsg{err: err}
			}
			return lineMsg(line)
		}
	}
}

func (m TermModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		vpHeight := msg.Height - 2 // input line + status bar
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.vp = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = vpHeight
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.send()
		}

	case lineMsg:
		m.rx++
		m.append(string(msg))
		return m, m.readLine()

	case readErrMsg:
		if errors.Is(msg.err, io.EOF) {
			// The peer side went away; nothing wrong on ours.
			m.append(sentStyle.Render("-- channel closed --"))
		} else {
			m.err = msg.err
			m.append(errStyle.Render("-- channel error: " + msg.err.Error() + " --"))
		}
		return m, tea.Quit
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.vp, cmd = m.vp.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// send writes the input line to the channel and echoes it in the log.
func (m TermModel) send() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if line == "" {
		return m, nil
	}
	if _, err := io.WriteString(m.ch, line+"\n"); err != nil {
		m.err = err
		m.append(errStyle.Render("-- write failed: " + err.Error() + " --"))
		return m, tea.Quit
	}
	m.tx++
	m.append(sentStyle.Render("> " + line))
	return m, nil
}

func (m *TermModel) append(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
	m.refresh()
}

func (m *TermModel) refresh() {
	if !m.ready {
		return
	}
	m.vp.SetContent(strings.Join(m.lines, "\n"))
	m.vp.GotoBottom()
}

func (m TermModel) View() string {
	if !m.ready {
		return "attaching to " + m.portName + "..."
	}
	return m.vp.View() + "\n" + m.input.View() + "\n" + m.statusBar()
}

// statusBar lays out fixed-width segments so the counters do not shift as
// they grow.
func (m TermModel) statusBar() string {
	left := util.Fit(fmt.Sprintf(" %s @ %d", m.portName, m.baud), 30)
	right := util.Fit(fmt.Sprintf("rx %d  tx %d  esc quits ", m.rx, m.tx), 28)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return statusStyle.Render(left + strings.Repeat(" ", gap) + right)
}

// Err reports the channel failure that ended the session, if any.
func (m TermModel) Err() error {
	return m.err
}
