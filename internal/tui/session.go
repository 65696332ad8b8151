package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/fakeyudi/intervbot/internal/engine"
	"github.com/fakeyudi/intervbot/internal/eventloop"
	"github.com/fakeyudi/intervbot/internal/report"
)

// SessionOptions configures a session screen.
type SessionOptions struct {
	Grader     engine.Grader
	Request    engine.StartRequest
	Journal    engine.Journal
	Speaker    engine.Speaker
	Recognizer engine.Recognizer
	// AutoSpeak reads each question aloud when it is shown.
	AutoSpeak   bool
	Participant string
	// Export writes the finished results and returns the file path. Nil
	// disables the export key.
	Export func(*report.Report) (string, error)
	Log    zerolog.Logger
}

// runMsg carries a callback posted to the controller's loop.
type runMsg func()

// SessionModel is the Bubble Tea model for a running interview or quiz.
// It owns the engine controller; every controller callback runs inside
// Update so the model and the controller share one goroutine.
type SessionModel struct {
	opts SessionOptions
	ctrl *engine.Controller
	runs chan func()

	snap       engine.Snapshot
	input      textarea.Model
	spinner    spinner.Model
	cursor     int
	submitting bool
	warning    string
	alert      string
	notice     string
	empty      bool
	results    *engine.Results
	resultsVP  viewport.Model
	abandoned  bool
	err        error

	width  int
	height int
}

// NewSession builds a session screen. The session starts in Init.
func NewSession(opts SessionOptions) *SessionModel {
	m := &SessionModel{
		opts: opts,
		runs: make(chan func(), 256),
	}

	ta := textarea.New()
	ta.Placeholder = "Type your answer…"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	ta.SetHeight(5)
	ta.Focus()
	m.input = ta
	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))

	loop := eventloop.Func(func(fn func()) { m.runs <- fn })
	m.ctrl = engine.New(engine.Config{
		Grader:     opts.Grader,
		Loop:       loop,
		Journal:    opts.Journal,
		Speaker:    opts.Speaker,
		Recognizer: opts.Recognizer,
		Log:        opts.Log,
		Hooks: engine.Hooks{
			Question:   m.onQuestion,
			Submitting: func(b bool) { m.submitting = b },
			Warning:    func(msg string) { m.warning = msg },
			Alert:      func(err error) { m.alert = err.Error() },
			Input:      m.onInput,
			Finalized:  m.onFinalized,
			Empty:      func() { m.empty = true },
		},
	})
	return m
}

func (m *SessionModel) onQuestion(snap engine.Snapshot) {
	m.snap = snap
	m.cursor = 0
	m.warning = ""
	m.alert = ""
	m.input.Reset()
	m.input.SetValue(snap.Input)
	if m.opts.AutoSpeak {
		m.ctrl.Speak()
	}
}

func (m *SessionModel) onFinalized(res engine.Results) {
	m.results = &res
	m.submitting = false
	m.layoutResults()
}

// layoutResults sizes the results viewport below the title and above the
// status lines.
func (m *SessionModel) layoutResults() {
	if m.results == nil {
		return
	}
	width, height := m.size()
	vp := viewport.New(width, max(1, height-4))
	vp.SetContent(renderSummary(m.report()) + renderAnswers(*m.results, width))
	m.resultsVP = vp
}

func (m *SessionModel) size() (int, int) {
	w, h := m.width, m.height
	if w == 0 {
		w = 80
	}
	if h == 0 {
		h = 24
	}
	return w, h
}

func (m *SessionModel) onInput(text string) {
	if m.input.Value() != text {
		m.input.SetValue(text)
	}
}

// wait delivers the next posted callback as a runMsg.
func (m *SessionModel) wait() tea.Cmd {
	return func() tea.Msg { return runMsg(<-m.runs) }
}

// Results returns the finished results, or nil if the session was left early.
func (m *SessionModel) Results() *engine.Results { return m.results }

// Abandoned reports whether the user went back before finishing.
func (m *SessionModel) Abandoned() bool { return m.abandoned }

// Err returns the error that stopped the session from starting.
func (m *SessionModel) Err() error { return m.err }

func (m *SessionModel) Init() tea.Cmd {
	if err := m.ctrl.Start(m.opts.Request); err != nil {
		m.err = err
		return tea.Quit
	}
	m.snap = m.ctrl.Snapshot()
	return tea.Batch(m.wait(), m.spinner.Tick)
}

func (m *SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runMsg:
		msg()
		m.snap = m.ctrl.Snapshot()
		return m, m.wait()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(max(20, msg.Width-4))
		m.layoutResults()
		return m, nil

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		m.snap = m.ctrl.Snapshot()
		return m, cmd
	}
	return m, nil
}

func (m *SessionModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	k := msg.String()
	if k == "ctrl+c" {
		if m.results == nil {
			m.abandoned = true
		}
		m.ctrl.Dispose()
		return tea.Quit
	}

	switch {
	case m.results != nil:
		return m.handleResultsKey(msg)
	case m.empty:
		if k == "esc" || k == "q" || k == "enter" {
			m.ctrl.Back()
			m.abandoned = true
			return tea.Quit
		}
		return nil
	}

	switch m.ctrl.State() {
	case engine.Idle:
		// Start failed; the alert explains why.
		if k == "esc" || k == "q" || k == "enter" {
			m.abandoned = true
			return tea.Quit
		}
		return nil
	case engine.Answering:
	default:
		if k == "esc" {
			m.ctrl.Back()
			m.abandoned = true
			return tea.Quit
		}
		return nil
	}

	switch k {
	case "esc":
		m.ctrl.Back()
		m.abandoned = true
		return tea.Quit
	case "ctrl+s", "enter":
		m.submit()
		return nil
	case "ctrl+l":
		if m.snap.Listening {
			m.ctrl.StopListening()
		} else {
			m.ctrl.StartListening()
		}
		return nil
	case "ctrl+t":
		m.ctrl.Speak()
		return nil
	}

	if m.snap.Question != nil && m.snap.Question.IsMultipleChoice() {
		m.handleOptionKey(k, len(m.snap.Question.Options))
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctrl.SetInput(m.input.Value())
	if strings.TrimSpace(m.input.Value()) != "" {
		m.warning = ""
	}
	return cmd
}

func (m *SessionModel) handleOptionKey(k string, n int) {
	switch k {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}
	case " ":
	default:
		if len(k) == 1 && k[0] >= '1' && k[0] <= '9' && int(k[0]-'1') < n {
			m.cursor = int(k[0] - '1')
		} else {
			return
		}
	}
	if err := m.ctrl.Select(m.cursor); err != nil {
		m.alert = err.Error()
		return
	}
	m.warning = ""
}

func (m *SessionModel) submit() {
	err := m.ctrl.Submit(engine.SubmitOptions{})
	if err != nil && !errors.Is(err, engine.ErrEmptyAnswer) {
		m.alert = err.Error()
	}
}

func (m *SessionModel) handleResultsKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "esc", "enter":
		return tea.Quit
	case "up", "down", "k", "j", "pgup", "pgdown":
		var cmd tea.Cmd
		m.resultsVP, cmd = m.resultsVP.Update(msg)
		return cmd
	case "r":
		m.ctrl.Restart()
		m.results = nil
		m.notice = ""
		m.alert = ""
		if err := m.ctrl.Start(m.opts.Request); err != nil {
			m.alert = err.Error()
		}
	case "e":
		if m.opts.Export == nil {
			return nil
		}
		path, err := m.opts.Export(m.report())
		if err != nil {
			m.alert = "export failed: " + err.Error()
			return nil
		}
		m.notice = "Saved " + path
	}
	return nil
}

func (m *SessionModel) report() *report.Report {
	return report.New(*m.results, m.opts.Participant, time.Now())
}

func (m *SessionModel) View() string {
	if m.err != nil {
		return alertStyle.Render(m.err.Error()) + "\n"
	}
	width, _ := m.size()

	if m.results != nil {
		return m.viewResults(width)
	}

	title := "intervbot"
	if m.snap.Role != "" {
		title += "  " + m.snap.Role + " (" + string(m.snap.Difficulty) + ")"
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Width(width).Render(title) + "\n\n")

	switch {
	case m.empty:
		sb.WriteString("  No questions found for the selected role and difficulty.\n\n")
		sb.WriteString(dimStyle.Render("  enter/esc back") + "\n")
		return sb.String()
	case m.snap.State == engine.Starting:
		sb.WriteString("  " + m.spinner.View() + " Starting session…\n")
		return sb.String()
	case m.snap.Question == nil:
		if m.alert != "" {
			sb.WriteString("  " + alertStyle.Render(m.alert) + "\n\n")
		}
		sb.WriteString(dimStyle.Render("  enter/esc back") + "\n")
		return sb.String()
	}

	badge := timerStyle
	if m.snap.Remaining <= 10 {
		badge = timerLowStyle
	}
	progress := labelStyle.Render(fmt.Sprintf("  Question %d/%d", m.snap.Index+1, m.snap.Total))
	sb.WriteString(progress + "  " + badge.Render(m.snap.Clock()) + "\n")
	if m.snap.Available > 0 && m.snap.Available < m.snap.Requested {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  Showing %d of %d requested", m.snap.Available, m.snap.Requested)) + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(indent(renderQuestionText(m.snap.Question.Text, width-4), "  ") + "\n\n")

	if m.snap.Question.IsMultipleChoice() {
		for i, opt := range m.snap.Question.Options {
			mark := "( )"
			if i == m.snap.Selected {
				mark = "(•)"
			}
			line := fmt.Sprintf("%d. %s %s", i+1, mark, opt)
			if i == m.cursor {
				line = cursorStyle.Render("› " + line)
			} else {
				line = "  " + line
			}
			sb.WriteString("  " + line + "\n")
		}
	} else {
		sb.WriteString(indent(m.input.View(), "  ") + "\n")
	}
	sb.WriteString("\n")

	if m.submitting {
		sb.WriteString("  " + m.spinner.View() + " Submitting…\n")
	}
	if m.snap.Listening {
		sb.WriteString("  " + warningStyle.Render("● Listening") + "\n")
	}
	if m.warning != "" {
		sb.WriteString("  " + warningStyle.Render(m.warning) + "\n")
	}
	if m.alert != "" {
		sb.WriteString("  " + alertStyle.Render(m.alert) + "\n")
	}

	hint := "enter submit  ctrl+l listen  ctrl+t speak  esc back  ctrl+c quit"
	if m.snap.Question.IsMultipleChoice() {
		hint = "↑/↓ or 1-9 choose  enter submit  ctrl+t speak  esc back"
	}
	sb.WriteString("\n" + statusBarStyle.Width(width).Render(hint))
	return sb.String()
}

func (m *SessionModel) viewResults(width int) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Width(width).Render("intervbot  Results") + "\n")
	sb.WriteString(m.resultsVP.View() + "\n")
	switch {
	case m.alert != "":
		sb.WriteString("  " + alertStyle.Render(m.alert) + "\n")
	case m.notice != "":
		sb.WriteString("  " + rightStyle.Render(m.notice) + "\n")
	default:
		sb.WriteString("\n")
	}
	hint := "↑/↓ scroll  r restart  q quit"
	if m.opts.Export != nil {
		hint = "↑/↓ scroll  r restart  e export  q quit"
	}
	sb.WriteString(statusBarStyle.Width(width).Render(hint))
	return sb.String()
}

// RunSession runs a session full screen and returns the model once the
// program exits and background saves have finished.
func RunSession(opts SessionOptions) (*SessionModel, error) {
	m := NewSession(opts)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	m.ctrl.Dispose()
	m.ctrl.Wait()
	if err != nil {
		return m, err
	}
	return m, m.err
}
