package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/desertthunder/sp2yt/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ProgressView ViewState = iota
	ResultView
)

// Job is the conversion the TUI runs and observes. Search-only jobs return a result without a playlist.
type Job func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.ConvertResult, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	title        string
	job          Job
	view         ViewState
	width        int
	height       int
	spinner      spinner.Model
	rows         list.Model
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.ConvertResult
	err          error
	help         help.Model
	keys         keyMap
	open         func(string) error
}

// NewModel creates a TUI model that runs job and renders its progress under title.
func NewModel(ctx context.Context, title string, job Job) *Model {
	ctx, cancel := context.WithCancel(ctx)
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.err

	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		title:   title,
		job:     job,
		view:    ProgressView,
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
		open:    shared.OpenBrowser,
	}
}

// Result returns the outcome of the job once the model reached [ResultView].
func (m *Model) Result() (*tasks.ConvertResult, error) {
	return m.result, m.err
}

// Init starts the job and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.hasRows() {
			m.rows.SetSize(msg.Width-4, msg.Height-10)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if m.view != ProgressView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.progress = msg.data.(tasks.ProgressUpdate)
			return m, m.waitForProgress()
		case MsgJobComplete:
			outcome := msg.data.(jobOutcome)
			m.result, m.err = outcome.result, outcome.err
			m.view = ResultView
			if m.result != nil && m.result.Report != nil {
				m.rows = list.New(reportItems(m.result.Report), list.NewDefaultDelegate(), 0, 0)
				m.rows.Title = m.title
				m.rows.SetShowHelp(false)
				m.rows.SetSize(max(m.width-4, 0), max(m.height-10, 0))
			}
			return m, nil
		}
	}

	if m.hasRows() {
		var cmd tea.Cmd
		m.rows, cmd = m.rows.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.cancel()
		return m, tea.Quit
	case m.view == ResultView && key.Matches(msg, m.keys.open):
		if target := m.target(); target != "" {
			if err := m.open(target); err != nil {
				m.err = err
			}
		}
		return m, nil
	}

	if m.hasRows() {
		var cmd tea.Cmd
		m.rows, cmd = m.rows.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) hasRows() bool {
	return m.view == ResultView && m.result != nil && m.result.Report != nil
}

// target is the URL the open key sends to the browser.
func (m *Model) target() string {
	if m.result == nil {
		return ""
	}
	if m.result.RedirectURL != "" {
		return m.result.RedirectURL
	}
	return m.result.PlaylistURL
}

func (m *Model) start() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	progress := m.progressChan

	go func() {
		result, err := m.job(m.ctx, progress)
		m.result = result
		m.err = err
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress := m.progressChan
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return jobCompleteMsg(m.result, m.err)
		}
		return progressUpdateMsg(update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ProgressView:
		return m.renderProgress()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderProgress() string {
	title := styles.title.Render(m.title)

	var phase string
	switch m.progress.Phase {
	case tasks.FetchTracks:
		phase = "Fetching tracks from Spotify..."
	case tasks.SearchTracks:
		phase = fmt.Sprintf("Searching YouTube (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Authorize:
		phase = "Checking YouTube authorization..."
	case tasks.CreatePlaylist:
		phase = "Creating YouTube playlist..."
	default:
		phase = "Processing..."
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n%s %s\n%s\n\n%s", title, m.spinner.View(), phase, styles.help.Render(m.progress.Message), helpView)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.open, m.keys.quit})

	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Failed: %v", m.err)) + "\n\n" + helpView
	}
	if m.result == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}

	if !m.hasRows() {
		return fmt.Sprintf("%s\n\n%s", Summary(m.result), helpView)
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", Summary(m.result), m.rows.View(), helpView)
}

// Summary renders the outcome of a conversion as a short styled block.
//
// Used by the TUI result view and by the plain CLI output.
func Summary(result *tasks.ConvertResult) string {
	var b strings.Builder
	report := result.Report

	switch {
	case result.RedirectURL != "":
		b.WriteString(styles.warn.Render("YouTube authorization required"))
		fmt.Fprintf(&b, "\nOpen %s to continue", result.RedirectURL)
	case result.PlaylistURL != "":
		b.WriteString(styles.ok.Render("✓ Playlist published"))
		fmt.Fprintf(&b, "\n%s", result.PlaylistURL)
	default:
		b.WriteString(styles.ok.Render("✓ Search complete"))
	}

	if report != nil {
		fmt.Fprintf(&b, "\nMatched %d/%d tracks", len(report.Matches), len(report.Tracks))
		if n := len(report.Unmatched); n > 0 {
			b.WriteString(styles.warn.Render(fmt.Sprintf(" • %d without results", n)))
		}
		if n := len(report.Failed); n > 0 {
			b.WriteString(styles.err.Render(fmt.Sprintf(" • %d searches failed", n)))
		}
	}

	if pub := result.Publish; pub != nil {
		fmt.Fprintf(&b, "\nInserted %d videos", pub.Inserted)
		if n := len(pub.Failed); n > 0 {
			b.WriteString(styles.err.Render(fmt.Sprintf(" • %d inserts failed", n)))
		}
	}

	return b.String()
}

// Run runs job inside a full-screen program and returns its outcome.
func Run(ctx context.Context, title string, job Job) (*tasks.ConvertResult, error) {
	model := NewModel(ctx, title, job)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return nil, err
	}
	return model.Result()
}
