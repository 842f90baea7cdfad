package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/driveclone/internal/links"
	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/desertthunder/driveclone/internal/store"
	"github.com/desertthunder/driveclone/internal/tasks"
)

// Focus is the component receiving key input.
type Focus int

const (
	InputFocus Focus = iota
	ListFocus
)

// ModelOpts contains the dependencies of a [Model].
type ModelOpts struct {
	Store        *store.Store
	Orchestrator *tasks.Orchestrator
	Resolver     links.Resolver // Optional; jobs get default names when nil
}

// Model is the clone dashboard: a link input above the live job list.
type Model struct {
	ctx          context.Context
	store        *store.Store
	orchestrator *tasks.Orchestrator
	resolver     links.Resolver

	focus    Focus
	width    int
	height   int
	input    textinput.Model
	jobs     list.Model
	run      *runState
	progress tasks.ProgressUpdate
	result   *tasks.RunResult
	status   string
	err      error
	help     help.Model
	keys     keyMap
}

// runState is owned by one background run; result and err are written before updates is closed.
type runState struct {
	updates chan tasks.ProgressUpdate
	result  *tasks.RunResult
	err     error
}

// NewModel creates a dashboard over the given store.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	input := textinput.New()
	input.Placeholder = "https://drive.google.com/file/d/..."
	input.Prompt = "Link › "
	input.CharLimit = 2048
	input.Focus()

	jobs := list.New(jobItems(opts.Store.List()), list.NewDefaultDelegate(), 0, 0)
	jobs.Title = "Clone jobs"
	jobs.SetShowHelp(false)
	jobs.SetFilteringEnabled(false)

	return &Model{
		ctx:          ctx,
		store:        opts.Store,
		orchestrator: opts.Orchestrator,
		resolver:     opts.Resolver,
		focus:        InputFocus,
		input:        input,
		jobs:         jobs,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-10, 20)
		m.jobs.SetSize(msg.Width-4, max(msg.Height-10, 4))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateFocused(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgJobAdded:
		data := msg.data.(jobAdded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Queued %s", data.job.FileName)
		m.input.Reset()
		m.refresh()
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		m.refresh()
		return m, m.waitForProgress()

	case MsgRunComplete:
		data := msg.data.(runComplete)
		m.run = nil
		m.refresh()
		switch {
		case errors.Is(data.err, shared.ErrBusy):
			m.err = data.err
		case data.err != nil:
			m.err = fmt.Errorf("run failed: %w", data.err)
		case data.result != nil:
			m.result = data.result
			m.status = data.result.Summary()
		}
		return m, nil

	case MsgActionDone:
		data := msg.data.(actionDone)
		m.err = data.err
		if data.err == nil {
			m.status = data.status
		}
		m.refresh()
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.run):
		return m, m.startRun()
	case key.Matches(msg, m.keys.focus):
		m.toggleFocus()
		return m, nil
	}

	if m.focus == InputFocus {
		if key.Matches(msg, m.keys.add) {
			return m, m.addLink(m.input.Value())
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case msg.String() == "q":
		return m, tea.Quit
	case key.Matches(msg, m.keys.remove):
		return m, m.onSelected(m.removeJob)
	case key.Matches(msg, m.keys.cancel):
		return m, m.onSelected(m.cancelJob)
	case key.Matches(msg, m.keys.retry):
		return m, m.onSelected(m.retryJob)
	}

	var cmd tea.Cmd
	m.jobs, cmd = m.jobs.Update(msg)
	return m, cmd
}

func (m *Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == InputFocus {
		m.input, cmd = m.input.Update(msg)
	} else {
		m.jobs, cmd = m.jobs.Update(msg)
	}
	return m, cmd
}

func (m *Model) toggleFocus() {
	if m.focus == InputFocus {
		m.focus = ListFocus
		m.input.Blur()
		return
	}
	m.focus = InputFocus
	m.input.Focus()
}

// refresh reloads the list from the store, keeping the cursor in range.
func (m *Model) refresh() {
	index := m.jobs.Index()
	m.jobs.SetItems(jobItems(m.store.List()))
	if n := len(m.jobs.Items()); n > 0 {
		m.jobs.Select(min(index, n-1))
	}
}

func (m *Model) selected() (jobItem, bool) {
	item, ok := m.jobs.SelectedItem().(jobItem)
	return item, ok
}

func (m *Model) onSelected(action func(id string) tea.Cmd) tea.Cmd {
	item, ok := m.selected()
	if !ok {
		return nil
	}
	return action(item.job.ID)
}

func (m *Model) addLink(raw string) tea.Cmd {
	return func() tea.Msg {
		job, err := m.store.AddLink(m.ctx, raw, m.resolver)
		return jobAddedMsg(job, err)
	}
}

func (m *Model) removeJob(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.store.Remove(id); err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg("Removed job", nil)
	}
}

func (m *Model) cancelJob(id string) tea.Cmd {
	return func() tea.Msg {
		if !m.orchestrator.Cancel(id) {
			return actionDoneMsg("", fmt.Errorf("%w: job is not running", shared.ErrInvalidArgument))
		}
		return actionDoneMsg("Cancelling job", nil)
	}
}

func (m *Model) retryJob(id string) tea.Cmd {
	return func() tea.Msg {
		job, err := m.store.Requeue(id)
		if err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg(fmt.Sprintf("Requeued %s", job.FileName), nil)
	}
}

func (m *Model) startRun() tea.Cmd {
	if m.run != nil {
		return nil
	}
	m.err = nil
	m.result = nil

	run := &runState{updates: make(chan tasks.ProgressUpdate, 50)}
	m.run = run
	go func() {
		run.result, run.err = m.orchestrator.RunAll(m.ctx, run.updates)
		close(run.updates)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	run := m.run
	return func() tea.Msg {
		if run == nil {
			return runCompleteMsg(nil, nil)
		}

		update, ok := <-run.updates
		if !ok {
			return runCompleteMsg(run.result, run.err)
		}
		return progressUpdateMsg(update)
	}
}

// View renders the input, the job list, and a status line.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("driveclone"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if len(m.jobs.Items()) == 0 {
		b.WriteString(styles.help.Render("No Links: add a Google Drive link to start cloning"))
		b.WriteString("\n")
	} else {
		b.WriteString(m.jobs.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	if m.focus == ListFocus {
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.remove, m.keys.cancel, m.keys.retry, m.keys.run, m.keys.focus, m.keys.quit}))
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return b.String()
}

func (m *Model) statusLine() string {
	switch {
	case m.err != nil:
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case m.run != nil:
		if m.progress.Message != "" {
			return styles.warn.Render(m.progress.Message)
		}
		return styles.warn.Render("Running...")
	case m.result != nil && m.result.Failed > 0:
		return styles.warn.Render(m.status)
	case m.status != "":
		return styles.ok.Render(m.status)
	default:
		return styles.help.Render(formatCounts(m.store))
	}
}

func formatCounts(st *store.Store) string {
	counts := st.Counts()
	return fmt.Sprintf("%d jobs • %d queued • %d completed • %d failed",
		st.Len(), counts[models.StatusQueued], counts[models.StatusCompleted], counts[models.StatusFailed])
}
