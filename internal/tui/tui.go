// Package tui provides a Bubble Tea terminal user interface for imagenet-downloader.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/handiism/imagenet-downloader/internal/config"
	"github.com/handiism/imagenet-downloader/internal/download"
	"github.com/handiism/imagenet-downloader/internal/history"
	ioutils "github.com/handiism/imagenet-downloader/internal/io"
	"github.com/handiism/imagenet-downloader/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateRunning
	StateComplete
	StateError
)

// Focused input field.
const (
	fieldLabel = iota
	fieldWNIDs
	fieldCount
)

// maxLogs is the number of progress lines kept on screen.
const maxLogs = 10

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	inputs   []textinput.Model
	focus    int
	spinner  spinner.Model
	progress progress.Model
	settings *config.Settings
	logger   *slog.Logger
	logs     []LogEntry
	err      error

	// Run context
	ctx    context.Context
	cancel context.CancelFunc

	manager *download.Manager
	events  chan download.ProgressEvent
	outcome model.RunOutcome

	// Run progress
	receivedBytes int64
	doneCats      int32
	totalCats     int32

	// Options
	recursive bool
	verbose   bool

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel(settings *config.Settings, logger *slog.Logger) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	label := textinput.New()
	label.Placeholder = "dog"
	label.Prompt = "Label: "
	label.CharLimit = 100
	label.Width = 40
	label.Focus()

	wnids := textinput.New()
	wnids.Placeholder = "n02084071, n02085374"
	wnids.Prompt = "WNIDs: "
	wnids.CharLimit = 500
	wnids.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		inputs:    []textinput.Model{label, wnids},
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		logger:    logger,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
		recursive: true,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// RunDoneMsg is sent when the run finishes.
	RunDoneMsg struct {
		Outcome model.RunOutcome
		Err     error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateRunning {
				// The run drains and reports through RunDoneMsg.
				m.cancel()
				m.appendLog(LogEntry{Message: "Cancelling...", Level: download.LevelWarning})
				return m, nil
			}

		case "tab", "shift+tab", "down", "up":
			if m.state == StateInput {
				step := 1
				if s := msg.String(); s == "shift+tab" || s == "up" {
					step = fieldCount - 1
				}
				m.setFocus((m.focus + step) % fieldCount)
				return m, nil
			}

		case "ctrl+r":
			if m.state == StateInput {
				m.recursive = !m.recursive
				return m, nil
			}

		case "ctrl+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "enter":
			if m.state == StateInput {
				return m.start()
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.reset()
				return m, textinput.Blink
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case RunDoneMsg:
		m.drainEvents()
		m.outcome = msg.Outcome
		if m.manager != nil {
			m.receivedBytes, m.doneCats, m.totalCats = m.manager.GetProgress()
		}
		switch {
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errors.New("cancelled by user")
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateRunning {
			m.drainEvents()
			m.receivedBytes, m.doneCats, m.totalCats = m.manager.GetProgress()

			var percent float64
			if m.totalCats > 0 {
				percent = float64(m.doneCats) / float64(m.totalCats)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) setFocus(field int) {
	m.focus = field
	for i := range m.inputs {
		if i == field {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *Model) reset() {
	m.state = StateInput
	m.logs = nil
	m.err = nil
	m.manager = nil
	m.events = nil
	m.outcome = model.RunOutcome{}
	m.receivedBytes, m.doneCats, m.totalCats = 0, 0, 0
	m.ctx, m.cancel = context.WithCancel(context.Background())
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.setFocus(fieldLabel)
}

// start validates the form and launches the run.
func (m Model) start() (tea.Model, tea.Cmd) {
	instructions, err := model.ExpandInstructions(m.inputs[fieldLabel].Value(), m.inputs[fieldWNIDs].Value(), m.recursive)
	if err == nil {
		err = m.settings.RequireCredentials()
	}
	if err != nil {
		m.err = err
		return m, nil
	}

	m.err = nil
	m.state = StateRunning
	m.events = make(chan download.ProgressEvent, 256)
	events := m.events
	m.manager = download.NewManager(m.settings, m.logger, func(event download.ProgressEvent) {
		select {
		case events <- event:
		default:
			// Buffer full; the line is dropped.
		}
	}, nil)

	return m, tea.Batch(runInstructions(m.ctx, m.manager, m.settings, instructions), m.spinner.Tick, m.tickProgress())
}

func (m *Model) drainEvents() {
	for {
		select {
		case event := <-m.events:
			if event.Level == download.LevelVerbose && !m.verbose {
				continue
			}
			m.appendLog(LogEntry{Message: event.Message, Level: event.Level})
		default:
			return
		}
	}
}

func (m *Model) appendLog(entry LogEntry) {
	m.logs = append(m.logs, entry)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// runInstructions prepares the dataset, holds its lock for the run and
// records the outcome.
func runInstructions(ctx context.Context, manager *download.Manager, settings *config.Settings, instructions []model.Instruction) tea.Cmd {
	return func() tea.Msg {
		if err := manager.PrepareLayout(); err != nil {
			return RunDoneMsg{Err: fmt.Errorf("prepare dataset directories: %w", err)}
		}
		layout := manager.Layout()

		lock, err := ioutils.AcquireLock(layout.LockPath())
		if err != nil {
			return RunDoneMsg{Err: err}
		}
		defer lock.Release()

		var store *history.Store
		if settings.History {
			store, err = history.Open(ctx, history.Path(layout))
			if err != nil {
				return RunDoneMsg{Err: fmt.Errorf("open run history: %w", err)}
			}
			defer store.Close()
		}

		outcome := manager.Run(ctx, instructions)
		if store != nil {
			_ = store.Record(context.WithoutCancel(ctx), outcome)
		}
		return RunDoneMsg{Outcome: outcome}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ImageNet Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Build image classification datasets from WordNet synsets"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateRunning:
		b.WriteString(m.viewRunning())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("What should be downloaded?"))
	b.WriteString("\n\n")
	for _, input := range m.inputs {
		b.WriteString(input.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Include all hyponyms (ctrl+r)\n", checkbox(m.recursive)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (ctrl+v)\n", checkbox(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Dataset: %s | concurrency %d | validation %d%%",
		m.settings.BaseDir, m.settings.MaxConcurrentDownloads, m.settings.ValidationSplit)))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewRunning() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(labelStyle.Render(fmt.Sprintf("%s ← %s", strings.TrimSpace(m.inputs[fieldLabel].Value()), m.inputs[fieldWNIDs].Value())))
	b.WriteString("\n\n")

	var percent float64
	if m.totalCats > 0 {
		percent = float64(m.doneCats) / float64(m.totalCats)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Categories: %d/%d | Downloaded: %s",
		m.doneCats,
		m.totalCats,
		humanize.Bytes(uint64(m.receivedBytes)),
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	totals := m.outcome.Totals()
	title := "Dataset ready"
	if !m.outcome.Succeeded() {
		title = "Finished with failures"
	}

	box := boxStyle.Render(fmt.Sprintf(
		"%s\n\n"+
			"Categories: %d\n"+
			"Failed: %d\n"+
			"Already downloaded: %d\n"+
			"Extraction warnings: %d\n"+
			"Size: %s\n"+
			"Took: %s",
		title,
		totals.Resolved,
		totals.Failed,
		totals.Skipped,
		totals.ExtractionWarnings,
		humanize.Bytes(uint64(totals.Bytes)),
		m.outcome.Duration().Round(time.Second),
	))

	var b strings.Builder
	b.WriteString(box)
	b.WriteString("\n")
	for _, o := range m.outcome.Instructions {
		if o.Err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("%s (%s): %v", o.Instruction.Label, o.Instruction.RootID, o.Err)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • tab: next field • ctrl+r: hyponyms • ctrl+v: verbose • esc: quit"
	case StateRunning:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// Run starts the TUI application.
func Run(settings *config.Settings, logger *slog.Logger) error {
	p := tea.NewProgram(NewModel(settings, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
