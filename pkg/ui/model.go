package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	dberr "ccsim/pkg/error"
	"ccsim/pkg/schedule"
	"ccsim/pkg/scheduler"
)

// Model represents the application state
type Model struct {
	editor      textarea.Model
	grid        table.Model
	spinner     spinner.Model
	help        help.Model
	highlighter *ScheduleHighlighter

	algorithm scheduler.Algorithm
	options   scheduler.Options

	width      int
	height     int
	running    bool
	showHelp   bool
	lastResult *scheduler.Result
	lastError  error
	gridErr    error
	history    []string

	lastRunTime time.Duration
	keys        keyMap
}

func NewModel(alg scheduler.Algorithm, opts scheduler.Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Enter an operation sequence, e.g. R1(A)W2(A)C1C2"
	ta.CharLimit = 5000
	ta.ShowLineNumbers = false
	ta.SetHeight(4)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle().Background(bgLight)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(textMuted)
	ta.FocusedStyle.Text = lipgloss.NewStyle().Foreground(textPrimary)

	t := table.New(
		table.WithColumns([]table.Column{{Title: "Schedule", Width: 20}}),
		table.WithRows([]table.Row{}),
		table.WithFocused(false),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(primaryColor).
		BorderBottom(true).
		Bold(true).
		Foreground(primaryColor)
	s.Selected = s.Selected.
		Foreground(bgDark).
		Background(secondaryColor).
		Bold(false)
	t.SetStyles(s)

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		editor:      ta,
		grid:        t,
		spinner:     sp,
		help:        help.New(),
		highlighter: NewScheduleHighlighter(),
		algorithm:   alg,
		options:     opts,
		keys:        keys,
		history:     make([]string, 0),
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()

	case tea.KeyMsg:
		if m.running {
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Run):
			input := strings.TrimSpace(m.editor.Value())
			if input == "" {
				return m, nil
			}
			m.running = true
			return m, tea.Batch(m.spinner.Tick, m.runSimulation(input))

		case key.Matches(msg, m.keys.ToggleAlgorithm):
			m.algorithm = nextAlgorithm(m.algorithm)
			return m, nil

		case key.Matches(msg, m.keys.TogglePolicy):
			if m.options.AbortedPolicy == schedule.OmitAborted {
				m.options.AbortedPolicy = schedule.FlagAborted
			} else {
				m.options.AbortedPolicy = schedule.OmitAborted
			}
			return m, nil

		case key.Matches(msg, m.keys.Clear):
			m.editor.SetValue("")
			m.lastResult = nil
			m.lastError = nil
			m.gridErr = nil
			m.setGrid(schedule.Grid{})
			return m, nil

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		}

	case simulationMsg:
		m.running = false
		m.lastResult = msg.result
		m.lastError = msg.err
		m.lastRunTime = msg.duration

		if msg.err == nil {
			m.history = append(m.history, msg.input)
			grid, err := schedule.BuildGrid(msg.result.Output)
			m.gridErr = err
			m.setGrid(grid)
		} else {
			m.gridErr = nil
			m.setGrid(schedule.Grid{})
		}
		return m, nil

	case spinner.TickMsg:
		if m.running {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	if !m.running {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		cmds = append(cmds, cmd)

		m.grid, cmd = m.grid.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	sections := []string{
		m.renderHeader(),
		m.renderEditor(),
	}

	switch {
	case m.running:
		sections = append(sections, m.renderRunning())
	case m.lastError != nil:
		sections = append(sections, m.renderError())
	case m.lastResult != nil:
		sections = append(sections, m.renderResult())
	}

	sections = append(sections, m.renderStatusBar())

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	}

	return appStyle.Render(strings.Join(sections, "\n"))
}

func (m Model) renderHelp() string {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(primaryColor).
		Padding(1, 2).
		Background(bgMedium).
		Render(m.help.FullHelpView(m.keys.FullHelp()))
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("ccsim schedule simulator")
	alg := algorithmBadgeStyle.Render(algorithmLabel(m.algorithm))
	policy := policyBadgeStyle.Render("aborted: " + m.options.AbortedPolicy.String())

	header := lipgloss.JoinHorizontal(lipgloss.Left, title, "  ", alg, policy)

	separator := strings.Repeat("─", max(m.width-4, 0))
	return header + "\n" + lipgloss.NewStyle().Foreground(bgLight).Render(separator)
}

func (m Model) renderEditor() string {
	label := lipgloss.NewStyle().
		Foreground(primaryColor).
		Bold(true).
		Render("Operation sequence")

	return fmt.Sprintf("%s\n%s", label, editorStyle.Render(m.editor.View()))
}

func (m Model) renderRunning() string {
	content := lipgloss.JoinHorizontal(
		lipgloss.Left,
		m.spinner.View(),
		" Scheduling...",
	)

	return lipgloss.NewStyle().
		Foreground(primaryColor).
		Padding(1, 0).
		Render(content)
}

func (m Model) renderError() string {
	label := " ERROR "
	if code := dberr.CodeOf(m.lastError); code != "" {
		label = " " + code + " "
	}
	message := lipgloss.NewStyle().
		Foreground(errorColor).
		Render(m.lastError.Error())

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(errorColor).
		Padding(0, 1).
		Render(fmt.Sprintf("%s %s", errorStyle.Render(label), message))
}

func (m Model) renderResult() string {
	r := m.lastResult

	summary := fmt.Sprintf("%s %d committed, %d aborted in %v",
		successStyle.Render(" ✓ "), len(r.Committed), len(r.Aborts), m.lastRunTime)

	lines := []string{
		summary,
		m.highlighter.Highlight(r.Output),
	}
	if m.gridErr != nil {
		lines = append(lines, diagnosticStyle.Render("• "+m.gridErr.Error()))
	} else {
		lines = append(lines, m.grid.View())
	}

	for _, a := range r.Aborts {
		restart := ""
		if a.Restarted {
			restart = ", restarted"
		}
		lines = append(lines, abortStyle.Render(
			fmt.Sprintf("✗ %s incarnation %d: %s%s", a.TxID, a.Incarnation, a.Code, restart)))
	}
	for _, d := range r.Diagnostics {
		lines = append(lines, diagnosticStyle.Render("• "+d))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderStatusBar() string {
	status := fmt.Sprintf("● %d runs", len(m.history))

	timer := ""
	if m.lastRunTime > 0 {
		timer = fmt.Sprintf(" | Last run: %v", m.lastRunTime)
	}

	content := lipgloss.NewStyle().
		Foreground(accentColor).
		Render(status) +
		lipgloss.NewStyle().
			Foreground(textMuted).
			Render(timer+" | "+m.help.ShortHelpView(m.keys.ShortHelp()))

	return statusBarStyle.
		Width(max(m.width-4, 0)).
		Render(content)
}

// setGrid replaces the table contents. Rows are cleared before the columns
// change so the table never renders a row narrower than its columns.
func (m *Model) setGrid(g schedule.Grid) {
	columns := []table.Column{{Title: "#", Width: 4}}
	for i, h := range g.Headers {
		columns = append(columns, table.Column{Title: h, Width: columnWidth(h, g.Rows, i)})
	}

	rows := make([]table.Row, len(g.Rows))
	for i, r := range g.Rows {
		row := make(table.Row, 0, len(r)+1)
		row = append(row, strconv.Itoa(i+1))
		rows[i] = append(row, r...)
	}

	m.grid.SetRows(nil)
	m.grid.SetColumns(columns)
	m.grid.SetRows(rows)
	if len(rows) > 0 {
		m.grid.Focus()
	} else {
		m.grid.Blur()
	}
}

func columnWidth(header string, rows [][]string, index int) int {
	const minWidth, maxWidth = 6, 16

	width := len(header) + 2
	for _, row := range rows {
		if index < len(row) {
			width = max(width, len(row[index])+2)
		}
	}
	return min(max(width, minWidth), maxWidth)
}

func (m *Model) updateLayout() {
	m.editor.SetWidth(max(m.width-6, 10))
	m.grid.SetHeight(max(m.height-20, 5))
}

func nextAlgorithm(current scheduler.Algorithm) scheduler.Algorithm {
	for i, a := range scheduler.Algorithms {
		if a == current {
			return scheduler.Algorithms[(i+1)%len(scheduler.Algorithms)]
		}
	}
	return scheduler.Algorithms[0]
}

func algorithmLabel(a scheduler.Algorithm) string {
	switch a {
	case scheduler.TwoPhaseLocking:
		return "Two-Phase Locking"
	case scheduler.Optimistic:
		return "Optimistic (OCC)"
	default:
		return a.String()
	}
}

type simulationMsg struct {
	input    string
	result   *scheduler.Result
	err      error
	duration time.Duration
}

func (m Model) runSimulation(input string) tea.Cmd {
	alg, opts := m.algorithm, m.options
	return func() tea.Msg {
		start := time.Now()
		result, err := scheduler.Simulate(input, alg, opts)

		return simulationMsg{
			input:    input,
			result:   result,
			err:      err,
			duration: time.Since(start),
		}
	}
}
