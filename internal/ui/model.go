package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertwitch/treeop/internal/format"
	"github.com/dustin/go-humanize"
)

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for a panel's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	// borderStyle defines the style for a panel's borders.
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	// infoStyle defines the style for a panel's text.
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	// helpStyle defines the style for the help line's text.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// ScanTickMsg is a [tea.Msg] carrying a snapshot timestamp.
type ScanTickMsg struct {
	t time.Time
}

// TeaModel is the principal [tea.Model] for the command-line user
// interface.
type TeaModel struct {
	width  int
	height int

	cancel context.CancelFunc

	uiHandler *Handler
	state     *ScanState

	fileProgress progress.Model

	ready bool
}

// NewTeaModel returns an initial new [TeaModel].
func NewTeaModel(uiHandler *Handler, state *ScanState, cancel context.CancelFunc) TeaModel {
	fileProgress := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(80), //nolint:mnd
	)

	return TeaModel{
		uiHandler:    uiHandler,
		state:        state,
		fileProgress: fileProgress,
		cancel:       cancel,
	}
}

// Init initializes the model within a [tea.Program].
func (m TeaModel) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		scanTick(),
	)
}

// scanTick produces a [tea.Cmd] that emits a [ScanTickMsg] for the
// next render pass.
func scanTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { //nolint:mnd
		return ScanTickMsg{t: t}
	})
}

// Update is the principal message handling method of the model.
//
//nolint:ireturn
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()

			return m, tea.Quit
		case "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.fileProgress.Width = m.width - 4 //nolint:mnd

		if !m.ready {
			m.ready = true
			m.uiHandler.Ready.Store(true)
		}

	case ScanTickMsg:
		_, percent, _ := m.state.Snapshot()
		cmds = append(cmds, m.fileProgress.SetPercent(percent), scanTick())

	case progress.FrameMsg:
		progressModel, cmd := m.fileProgress.Update(msg)
		if p, ok := progressModel.(progress.Model); ok {
			m.fileProgress = p
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the dashboard: counters, hash rate, the current path
// and, while hashing, a per-file progress bar.
func (m TeaModel) View() string {
	if !m.ready {
		return "Starting..."
	}

	path, _, hashing := m.state.Snapshot()

	counters := fmt.Sprintf("Files: %s  Dirs: %s  Size: %s  Hashing: %s",
		humanize.Comma(int64(m.state.Files.Load())),  //nolint:gosec
		humanize.Comma(int64(m.state.Dirs.Load())),   //nolint:gosec
		format.FormatCompactSize(m.state.Bytes.Load()),
		format.FormatRateMB(m.state.HashRate()))

	pathLine := format.AbbreviatePath(path, max(0, m.width-4)) //nolint:mnd

	content := titleStyle.Render(" treeop ") + "\n" +
		infoStyle.Render(counters) + "\n" +
		infoStyle.Render(pathLine)

	if hashing {
		content += "\n" + m.fileProgress.View()
	}

	panel := borderStyle.Width(max(0, m.width-2)).Render(content) //nolint:mnd

	return panel + "\n" + helpStyle.Render("q: quit  ctrl+c: abort")
}
