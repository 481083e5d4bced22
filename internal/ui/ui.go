package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/playlist-etl/internal/tasks"
)

// RunFunc performs one pipeline run, reporting on progress. It must not close progress.
type RunFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.RunResult, error)

// ViewState represents the current view of the monitor.
type ViewState int

const (
	RunningView ViewState = iota
	ResultView
)

// Model follows a single pipeline run.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	run          RunFunc
	bucket       string
	view         ViewState
	progressChan chan tasks.ProgressUpdate
	completeChan chan runCompleteMsg
	progress     tasks.ProgressUpdate
	canceling    bool
	result       *tasks.RunResult
	err          error
	spinner      spinner.Model
	help         help.Model
	keys         keyMap
}

type progressUpdateMsg tasks.ProgressUpdate

type runCompleteMsg struct {
	result *tasks.RunResult
	err    error
}

// NewModel creates a monitor for a run writing to bucket.
func NewModel(ctx context.Context, bucket string, run RunFunc) *Model {
	ctx, cancel := context.WithCancel(ctx)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = NewStyle("#7D56F4")
	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		run:     run,
		bucket:  bucket,
		view:    RunningView,
		spinner: sp,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Result returns the outcome once the monitor has exited.
func (m *Model) Result() (*tasks.RunResult, error) {
	return m.result, m.err
}

// Init starts the run.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !key.Matches(msg, m.keys.quit) {
			return m, nil
		}
		if m.view == ResultView {
			return m, tea.Quit
		}
		m.canceling = true
		m.cancel()
		return m, nil

	case spinner.TickMsg:
		if m.view == ResultView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case runCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.cancel()
		return m, tea.Quit
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case RunningView:
		return m.renderRunning()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) start() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.completeChan = make(chan runCompleteMsg, 1)

	go func() {
		result, err := m.run(m.ctx, m.progressChan)
		close(m.progressChan)
		m.completeChan <- runCompleteMsg{result: result, err: err}
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return <-m.completeChan
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderRunning() string {
	title := styles.Title(fmt.Sprintf("Extracting into %s", m.bucket))

	phase := "Starting..."
	switch m.progress.Phase {
	case tasks.FetchItems:
		phase = fmt.Sprintf("Fetching playlists (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Decompose:
		phase = fmt.Sprintf("Decomposing (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Enrich:
		phase = "Enriching artists"
	case tasks.Encode:
		phase = fmt.Sprintf("Encoding tables (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Upload:
		phase = fmt.Sprintf("Writing objects (%d/%d)", m.progress.Step, m.progress.Total)
	}
	if m.progress.Message == "" {
		phase = "Starting..."
	}

	status := m.help.ShortHelpView(m.keys.ShortHelp())
	if m.canceling {
		status = styles.Warn("Canceling...")
	}
	return fmt.Sprintf("%s\n%s %s\n%s\n\n%s\n", title, m.spinner.View(), phase, m.progress.Message, status)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.Err(fmt.Sprintf("✗ Run failed: %v", m.err)) + "\n"
	}
	if m.result == nil {
		return styles.Err("No result available") + "\n"
	}

	title := styles.OK(fmt.Sprintf("✓ Run %s complete in %.1fs", m.result.RunID, m.result.Elapsed().Seconds()))
	info := fmt.Sprintf("Tracks: %d  Skipped: %d", len(m.result.Dataset.Tracks), m.result.Dataset.Skipped)
	return fmt.Sprintf("%s\n%s\n%s\n", title, info, FilesTable(m.bucket, m.result.Files))
}

// Run shows the monitor until the run finishes and returns its outcome.
func Run(ctx context.Context, bucket string, run RunFunc) (*tasks.RunResult, error) {
	m := NewModel(ctx, bucket, run)
	if _, err := tea.NewProgram(m, tea.WithContext(ctx)).Run(); err != nil {
		return nil, fmt.Errorf("progress display failed: %w", err)
	}
	return m.Result()
}
