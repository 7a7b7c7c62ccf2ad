// Package tui is the terminal event loop. All view state lives on the
// single bubbletea update goroutine; fetches run as background
// commands that post messages back, so no state is ever touched from
// two execution contexts. Switching views cancels the abandoned view's
// in-flight fetch, and per-view sequence numbers discard results that
// arrive after a newer request has started.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hubview/hubview/pkg/github"
	"github.com/hubview/hubview/pkg/rate"
)

// View identifies which resource listing is active.
type View int

const (
	ViewRepos View = iota
	ViewIssues
	ViewPulls
	ViewWorkflows
	ViewRuns

	viewCount
)

func (v View) title() string {
	switch v {
	case ViewRepos:
		return "Repositories"
	case ViewIssues:
		return "Issues"
	case ViewPulls:
		return "Pull Requests"
	case ViewWorkflows:
		return "Workflows"
	case ViewRuns:
		return "Runs"
	default:
		return "?"
	}
}

// listState is the per-view display state: the rows fetched so far,
// the cursor, and the continuation URL for lazy loading.
type listState struct {
	items   []item
	cursor  int
	next    string
	loaded  bool
	loading bool
	stale   bool
	errText string
}

// Model is the bubbletea model.
type Model struct {
	ctx    context.Context
	gh     *github.Client
	limits *rate.LimitState
	keys   keyMap
	spin   spinner.Model

	view   View
	owner  string
	repo   string
	branch string

	lists   [viewCount]listState
	seqs    [viewCount]uint64
	cancels [viewCount]context.CancelFunc

	notice string
	rl     rate.Snapshot

	width  int
	height int
}

func New(ctx context.Context, gh *github.Client, limits *rate.LimitState) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:    ctx,
		gh:     gh,
		limits: limits,
		keys:   defaultKeyMap(),
		spin:   sp,
	}
}

// initMsg kicks off the first load from Update, where state mutations
// (sequence numbers, cancel funcs) actually persist.
type initMsg struct{}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, func() tea.Msg { return initMsg{} })
}

// loadStart captures the state mutation and command of starting a
// fetch, so Update can apply both on the single UI goroutine.
type loadStart struct {
	cmd tea.Cmd
}

// startLoad cancels any in-flight fetch for the view, bumps its
// sequence number and returns the background fetch command. Mutates
// the receiver; callers must keep the modified model.
func (m *Model) startLoad(view View, from string, force bool) loadStart {
	if cancel := m.cancels[view]; cancel != nil {
		cancel()
	}
	fetchCtx, cancel := context.WithCancel(m.ctx)
	m.cancels[view] = cancel
	m.seqs[view]++
	seq := m.seqs[view]
	m.lists[view].loading = true
	if from == "" {
		m.lists[view].errText = ""
	}

	gh := m.gh
	limits := m.limits
	owner, repo := m.owner, m.repo
	return loadStart{cmd: func() tea.Msg {
		return fetchPage(fetchCtx, gh, limits, view, owner, repo, from, force, seq)
	}}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case initMsg:
		start := m.startLoad(ViewRepos, "", false)
		return m, start.cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pageLoadedMsg:
		// Last-request-wins: a result from a superseded request for
		// this view is discarded even if it arrives late.
		if msg.seq != m.seqs[msg.view] {
			return m, nil
		}
		m.finishLoad(msg.view)
		state := &m.lists[msg.view]
		state.loading = false
		state.loaded = true
		state.stale = msg.stale
		state.errText = ""
		state.items = append(state.items, msg.items...)
		state.next = msg.next
		if state.cursor >= len(state.items) && len(state.items) > 0 {
			state.cursor = len(state.items) - 1
		}
		m.rl = msg.limits
		return m, nil

	case pageErrMsg:
		if msg.seq != m.seqs[msg.view] {
			return m, nil
		}
		m.finishLoad(msg.view)
		if errors.Is(msg.err, context.Canceled) {
			return m, nil
		}
		state := &m.lists[msg.view]
		state.loading = false
		// Pages already shown stay valid; only the failure is added.
		state.errText = describeError(msg.err)
		return m, nil

	case mutationDoneMsg:
		if msg.err != nil {
			m.notice = describeError(msg.err)
			return m, m.fadeNotice()
		}
		m.notice = msg.notice
		m.lists[msg.view] = listState{}
		start := m.startLoad(msg.view, "", false)
		return m, tea.Batch(start.cmd, m.fadeNotice())

	case statusFadeMsg:
		m.notice = ""
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := &m.lists[m.view]
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelAll()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if state.cursor > 0 {
			state.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if state.cursor < len(state.items)-1 {
			state.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if m.view == ViewRepos {
			if sel, ok := m.selected(); ok {
				return m.selectRepo(sel)
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Back):
		return m.switchView(ViewRepos)

	case key.Matches(msg, m.keys.NextView):
		next := (m.view + 1) % viewCount
		if next != ViewRepos && m.repo == "" {
			m.notice = "select a repository first"
			return m, m.fadeNotice()
		}
		return m.switchView(next)

	case key.Matches(msg, m.keys.Refresh):
		m.lists[m.view] = listState{}
		start := m.startLoad(m.view, "", true)
		return m, start.cmd

	case key.Matches(msg, m.keys.LoadMore):
		if state.next != "" && !state.loading {
			start := m.startLoad(m.view, state.next, false)
			return m, start.cmd
		}
		return m, nil

	case key.Matches(msg, m.keys.CloseItem):
		if m.view == ViewIssues {
			if sel, ok := m.selected(); ok && sel.issueNum > 0 {
				return m, m.closeIssueCmd(sel.issueNum)
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Dispatch):
		if m.view == ViewWorkflows {
			if sel, ok := m.selected(); ok && sel.workflowID > 0 {
				return m, m.dispatchCmd(sel.workflowID)
			}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) selected() (item, bool) {
	state := m.lists[m.view]
	if state.cursor < 0 || state.cursor >= len(state.items) {
		return item{}, false
	}
	return state.items[state.cursor], true
}

// selectRepo fixes the repository context and jumps to its issues.
func (m Model) selectRepo(sel item) (tea.Model, tea.Cmd) {
	if sel.owner == "" || sel.repo == "" {
		return m, nil
	}
	changed := sel.owner != m.owner || sel.repo != m.repo
	m.owner, m.repo, m.branch = sel.owner, sel.repo, sel.branch
	if changed {
		// Stale per-repo listings belong to the previous repository.
		for v := ViewIssues; v < viewCount; v++ {
			if cancel := m.cancels[v]; cancel != nil {
				cancel()
				m.cancels[v] = nil
			}
			m.lists[v] = listState{}
		}
	}
	return m.switchView(ViewIssues)
}

// switchView cancels the abandoned view's in-flight fetch and lazily
// loads the target if it has nothing to show yet.
func (m Model) switchView(target View) (tea.Model, tea.Cmd) {
	if target == m.view {
		return m, nil
	}
	if cancel := m.cancels[m.view]; cancel != nil {
		cancel()
		m.cancels[m.view] = nil
		m.lists[m.view].loading = false
	}
	m.view = target
	state := m.lists[target]
	if !state.loaded && !state.loading {
		start := m.startLoad(target, "", false)
		return m, start.cmd
	}
	return m, nil
}

// finishLoad releases the cancel context of a completed fetch. Only
// called once the terminal message for the view's current request has
// arrived; cancelling then is a no-op for the fetch itself.
func (m *Model) finishLoad(view View) {
	if cancel := m.cancels[view]; cancel != nil {
		cancel()
		m.cancels[view] = nil
	}
}

func (m *Model) cancelAll() {
	for v := View(0); v < viewCount; v++ {
		if cancel := m.cancels[v]; cancel != nil {
			cancel()
			m.cancels[v] = nil
		}
	}
}

func (m Model) closeIssueCmd(number int) tea.Cmd {
	gh, ctx := m.gh, m.ctx
	owner, repo := m.owner, m.repo
	view := m.view
	return func() tea.Msg {
		_, err := gh.CloseIssue(ctx, owner, repo, number)
		return mutationDoneMsg{view: view, notice: "issue closed", err: err}
	}
}

func (m Model) dispatchCmd(workflowID int64) tea.Cmd {
	gh, ctx := m.gh, m.ctx
	owner, repo, ref := m.owner, m.repo, m.branch
	view := ViewRuns
	if ref == "" {
		ref = "main"
	}
	return func() tea.Msg {
		err := gh.DispatchWorkflow(ctx, owner, repo, workflowID, ref)
		return mutationDoneMsg{view: view, notice: "workflow dispatched", err: err}
	}
}

func (m Model) fadeNotice() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return statusFadeMsg{}
	})
}
