// Package tui is the interactive control surface: it shows whether Flora is
// listening and lets the user pause, resume and type commands.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/nathfavour/flora/pkg/engine"
	"github.com/nathfavour/flora/pkg/pause"
	"github.com/nathfavour/flora/pkg/skills"
)

const maxTranscript = 200

// Messages delivered from outside the program via tea.Program.Send.
type (
	// TurnMsg carries a dispatched turn.
	TurnMsg engine.Turn
	// ResponseMsg is text the worker emitted.
	ResponseMsg string
	// WorkerDoneMsg reports that the worker loop returned.
	WorkerDoneMsg struct{ Err error }
	// PluginChangedMsg reports an edit in the plugin directory.
	PluginChangedMsg string
)

type pauseMsg bool

type entryKind int

const (
	entryYou entryKind = iota
	entryFlora
	entryIgnored
	entryError
)

type entry struct {
	kind entryKind
	text string
}

type Options struct {
	Pause *pause.Controller
	// Submit queues typed text for the worker. It reports false when the
	// text could not be queued.
	Submit   func(string) bool
	Skills   []string
	Failures []skills.LoadFailure
	Voice    bool
	Version  string
}

type Model struct {
	pause    *pause.Controller
	submit   func(string) bool
	skills   []string
	failures []skills.LoadFailure
	voice    bool
	version  string

	paused     bool
	transcript []entry
	notice     string
	workerDone bool

	spinner spinner.Model
	input   textinput.Model
	width   int
	height  int
	ready   bool
}

func New(opts Options) Model {
	if opts.Pause == nil {
		opts.Pause = pause.NewController()
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(green)))

	in := textinput.New()
	in.Placeholder = "type a command, e.g. flora what time is it"
	in.Prompt = "> "
	in.CharLimit = 256

	return Model{
		pause:    opts.Pause,
		submit:   opts.Submit,
		skills:   opts.Skills,
		failures: opts.Failures,
		voice:    opts.Voice,
		version:  opts.Version,
		paused:   opts.Pause.IsPaused(),
		spinner:  sp,
		input:    in,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.watchPause(), textinput.Blink)
}

// watchPause waits for the next pause state change, whoever made it.
func (m Model) watchPause() tea.Cmd {
	ch := m.pause.Changed()
	c := m.pause
	return func() tea.Msg {
		<-ch
		return pauseMsg(c.IsPaused())
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, m.mainWidth()-4)
		m.ready = true
		return m, nil

	case pauseMsg:
		m.paused = bool(msg)
		return m, m.watchPause()

	case TurnMsg:
		m.addTurn(engine.Turn(msg))
		return m, nil

	case ResponseMsg:
		m.add(entryFlora, string(msg))
		return m, nil

	case WorkerDoneMsg:
		m.workerDone = true
		if msg.Err != nil {
			m.notice = "worker stopped: " + msg.Err.Error()
		} else {
			m.notice = "worker finished"
		}
		return m, nil

	case PluginChangedMsg:
		m.notice = fmt.Sprintf("%s changed; restart to reload skills", string(msg))
		return m, nil

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.togglePause()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.input.Focused() {
		switch msg.Type {
		case tea.KeyEsc:
			m.input.Blur()
			return m, nil
		case tea.KeyEnter:
			m.send(m.input.Value())
			m.input.SetValue("")
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case " ", "p":
		m.togglePause()
	case "i", "tab", "enter":
		cmd := m.input.Focus()
		return m, cmd
	}
	return m, nil
}

func (m *Model) togglePause() {
	m.paused = m.pause.Toggle()
}

func (m *Model) send(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if m.workerDone {
		m.notice = "worker is not running"
		return
	}
	if m.submit == nil || !m.submit(text) {
		m.notice = "input dropped: worker busy"
		return
	}
	m.notice = ""
}

func (m *Model) addTurn(t engine.Turn) {
	m.add(entryYou, t.Raw)
	switch {
	case t.Outcome == engine.OutcomeIgnored:
		m.add(entryIgnored, "ignored: "+t.Reason)
	case t.Outcome == engine.OutcomeError && t.Err != nil:
		m.add(entryError, t.Path+": "+t.Err.Error())
	}
}

func (m *Model) add(kind entryKind, text string) {
	if text == "" {
		return
	}
	m.transcript = append(m.transcript, entry{kind: kind, text: text})
	if n := len(m.transcript) - maxTranscript; n > 0 {
		m.transcript = m.transcript[n:]
	}
}

// Paused reports the state the model last observed.
func (m Model) Paused() bool { return m.paused }

func (m Model) mainWidth() int {
	w := m.width - 34
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) View() string {
	if !m.ready {
		return "Starting Flora..."
	}

	header := styleHeader.Render("FLORA " + m.version)

	var badge string
	if m.paused {
		badge = stylePaused.Render("⏸ PAUSED")
	} else {
		badge = styleRunning.Render(m.spinner.View() + " RUNNING")
	}

	var left strings.Builder
	left.WriteString(badge + "\n")
	left.WriteString(styleSectionTitle.Render("TRANSCRIPT") + "\n")
	left.WriteString(m.renderTranscript())
	if !m.voice {
		left.WriteString("\n" + m.input.View())
	}

	var side strings.Builder
	side.WriteString(styleSectionTitle.Render("SKILLS") + "\n")
	for _, s := range m.skills {
		side.WriteString("• " + s + "\n")
	}
	if len(m.failures) > 0 {
		side.WriteString(styleSectionTitle.Render("LOAD FAILURES") + "\n")
		for _, f := range m.failures {
			side.WriteString(styleError.Render(runewidth.Truncate("✗ "+f.Error(), 28, "…")) + "\n")
		}
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, left.String(), styleSidebar.Render(side.String()))

	help := "[click/space/p] pause • [i] type • [esc] stop typing • [q] quit"
	if m.notice != "" {
		help = m.notice + "\n" + help
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, styleFooter.Render(help))
}

func (m Model) renderTranscript() string {
	rows := m.height - 14
	if rows < 3 {
		rows = 3
	}
	start := 0
	if len(m.transcript) > rows {
		start = len(m.transcript) - rows
	}
	width := m.mainWidth()

	var b strings.Builder
	for _, e := range m.transcript[start:] {
		var line string
		switch e.kind {
		case entryYou:
			line = styleYou.Render(runewidth.Truncate("YOU: "+e.text, width, "…"))
		case entryFlora:
			line = styleFlora.Render(runewidth.Truncate("FLORA: "+e.text, width, "…"))
		case entryIgnored:
			line = styleIgnored.Render(runewidth.Truncate("  ("+e.text+")", width, "…"))
		case entryError:
			line = styleError.Render(runewidth.Truncate("  ! "+e.text, width, "…"))
		}
		b.WriteString(line + "\n")
	}
	if len(m.transcript) == 0 {
		b.WriteString(styleIgnored.Render("Say \"flora\" or type a command.") + "\n")
	}
	return b.String()
}
