package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hubview/hubview/pkg/rate"
	"github.com/hubview/hubview/pkg/transport"
)

func testModel(t *testing.T) Model {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, nil, rate.NewLimitState())
}

func updated(t *testing.T, m tea.Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model, cmd
}

func loaded(view View, seq uint64, items ...item) pageLoadedMsg {
	return pageLoadedMsg{view: view, seq: seq, items: items}
}

func TestPageLoadedAppliesCurrentSequence(t *testing.T) {
	m := testModel(t)
	m.seqs[ViewRepos] = 1

	m, _ = updated(t, m, loaded(ViewRepos, 1, item{primary: "o/r"}))
	state := m.lists[ViewRepos]
	if !state.loaded || len(state.items) != 1 || state.items[0].primary != "o/r" {
		t.Fatalf("current-sequence result not applied: %+v", state)
	}
}

func TestLastRequestWinsDiscardsStaleResult(t *testing.T) {
	m := testModel(t)
	// A newer request (seq 2) superseded the one that produced this
	// result (seq 1).
	m.seqs[ViewIssues] = 2

	m, _ = updated(t, m, loaded(ViewIssues, 1, item{primary: "#1 stale"}))
	if len(m.lists[ViewIssues].items) != 0 {
		t.Fatal("stale result was applied")
	}
	if m.lists[ViewIssues].loaded {
		t.Fatal("stale result marked the view loaded")
	}

	// The current request's result still lands.
	m, _ = updated(t, m, loaded(ViewIssues, 2, item{primary: "#2 current"}))
	if len(m.lists[ViewIssues].items) != 1 || m.lists[ViewIssues].items[0].primary != "#2 current" {
		t.Fatalf("current result lost: %+v", m.lists[ViewIssues])
	}
}

func TestLoadMoreAppendsWithoutDroppingShownPages(t *testing.T) {
	m := testModel(t)
	m.seqs[ViewIssues] = 1
	first := loaded(ViewIssues, 1, item{primary: "#1"}, item{primary: "#2"})
	first.next = "page2"
	m, _ = updated(t, m, first)

	m.seqs[ViewIssues] = 2
	m, _ = updated(t, m, loaded(ViewIssues, 2, item{primary: "#3"}))

	state := m.lists[ViewIssues]
	if len(state.items) != 3 {
		t.Fatalf("expected 3 items after load-more, got %d", len(state.items))
	}
	if state.next != "" {
		t.Fatalf("continuation not updated: %q", state.next)
	}
}

func TestPageErrorKeepsShownItemsAndStaysRunning(t *testing.T) {
	m := testModel(t)
	m.seqs[ViewIssues] = 1
	m, _ = updated(t, m, loaded(ViewIssues, 1, item{primary: "#1"}))

	m.seqs[ViewIssues] = 2
	m, cmd := updated(t, m, pageErrMsg{
		view: ViewIssues,
		seq:  2,
		err:  &transport.NetworkError{URL: "x", Err: errors.New("down")},
	})
	if cmd != nil {
		t.Fatal("a fetch failure must not emit a command (and never quit)")
	}
	state := m.lists[ViewIssues]
	if len(state.items) != 1 {
		t.Fatal("fetch failure dropped already shown items")
	}
	if state.errText == "" {
		t.Fatal("fetch failure not surfaced in the view state")
	}
	if state.loading {
		t.Fatal("loading flag stuck after failure")
	}
}

func TestStalePageErrorDiscarded(t *testing.T) {
	m := testModel(t)
	m.seqs[ViewIssues] = 3
	m, _ = updated(t, m, pageErrMsg{view: ViewIssues, seq: 2, err: errors.New("old failure")})
	if m.lists[ViewIssues].errText != "" {
		t.Fatal("superseded failure leaked into the view")
	}
}

func TestCanceledFetchReportsNothing(t *testing.T) {
	m := testModel(t)
	m.seqs[ViewPulls] = 1
	m, _ = updated(t, m, pageErrMsg{view: ViewPulls, seq: 1, err: context.Canceled})
	if m.lists[ViewPulls].errText != "" {
		t.Fatal("cancellation rendered as an error")
	}
}

func TestCompletedFetchReleasesItsContext(t *testing.T) {
	m := testModel(t)
	m.seqs[ViewRepos] = 1
	released := false
	m.cancels[ViewRepos] = func() { released = true }

	m, _ = updated(t, m, loaded(ViewRepos, 1, item{primary: "o/r"}))
	if !released {
		t.Fatal("completed fetch left its cancel context unreleased")
	}
	if m.cancels[ViewRepos] != nil {
		t.Fatal("cancel slot not cleared after completion")
	}
}

func TestFailedFetchReleasesItsContext(t *testing.T) {
	m := testModel(t)
	m.seqs[ViewIssues] = 1
	released := false
	m.cancels[ViewIssues] = func() { released = true }

	m, _ = updated(t, m, pageErrMsg{view: ViewIssues, seq: 1, err: errors.New("down")})
	if !released {
		t.Fatal("failed fetch left its cancel context unreleased")
	}
	if m.cancels[ViewIssues] != nil {
		t.Fatal("cancel slot not cleared after failure")
	}
}

func TestStaleResultDoesNotReleaseCurrentContext(t *testing.T) {
	m := testModel(t)
	m.seqs[ViewIssues] = 2
	released := false
	m.cancels[ViewIssues] = func() { released = true }

	m, _ = updated(t, m, loaded(ViewIssues, 1, item{primary: "stale"}))
	if released || m.cancels[ViewIssues] == nil {
		t.Fatal("a superseded result must not touch the current request's context")
	}
}

func TestSwitchViewCancelsAbandonedFetch(t *testing.T) {
	m := testModel(t)
	m.repo, m.owner = "r", "o"
	m.view = ViewIssues

	canceled := false
	m.cancels[ViewIssues] = func() { canceled = true }
	m.lists[ViewIssues].loading = true
	// The target has content, so no new fetch starts.
	m.lists[ViewPulls] = listState{loaded: true}

	next, cmd := m.switchView(ViewPulls)
	m = next.(Model)
	if !canceled {
		t.Fatal("abandoned view's fetch not canceled")
	}
	if m.view != ViewPulls {
		t.Fatalf("view not switched: %v", m.view)
	}
	if cmd != nil {
		t.Fatal("loaded target view must not refetch on switch")
	}
	if m.lists[ViewIssues].loading {
		t.Fatal("abandoned view still marked loading")
	}
}

func TestSwitchViewLazilyLoadsEmptyTarget(t *testing.T) {
	m := testModel(t)
	m.repo, m.owner = "r", "o"
	m.view = ViewIssues

	next, cmd := m.switchView(ViewPulls)
	m = next.(Model)
	if cmd == nil {
		t.Fatal("empty target view must start a fetch")
	}
	if m.seqs[ViewPulls] != 1 {
		t.Fatalf("fetch sequence not started: %d", m.seqs[ViewPulls])
	}
	if !m.lists[ViewPulls].loading {
		t.Fatal("target view not marked loading")
	}
}

func TestStartLoadSupersedesInFlightFetch(t *testing.T) {
	m := testModel(t)
	canceled := false
	m.cancels[ViewRepos] = func() { canceled = true }
	m.seqs[ViewRepos] = 4

	start := m.startLoad(ViewRepos, "", false)
	if start.cmd == nil {
		t.Fatal("no fetch command produced")
	}
	if !canceled {
		t.Fatal("previous in-flight fetch not canceled")
	}
	if m.seqs[ViewRepos] != 5 {
		t.Fatalf("sequence not bumped: %d", m.seqs[ViewRepos])
	}
}

func TestSelectRepoClearsPerRepoViews(t *testing.T) {
	m := testModel(t)
	m.owner, m.repo = "o", "old"
	m.lists[ViewIssues] = listState{items: []item{{primary: "#1 old repo"}}, loaded: true}
	m.lists[ViewRuns] = listState{items: []item{{primary: "old run"}}, loaded: true}

	next, cmd := m.selectRepo(item{owner: "o", repo: "new", branch: "main"})
	m = next.(Model)
	if m.repo != "new" || m.branch != "main" {
		t.Fatalf("repo context not updated: %s %s", m.repo, m.branch)
	}
	if len(m.lists[ViewRuns].items) != 0 {
		t.Fatal("previous repository's listings survived the switch")
	}
	if m.view != ViewIssues {
		t.Fatalf("selection must land on issues, got %v", m.view)
	}
	if cmd == nil {
		t.Fatal("issues of the new repository must start loading")
	}
}

func TestSelectSameRepoKeepsListings(t *testing.T) {
	m := testModel(t)
	m.owner, m.repo = "o", "r"
	m.view = ViewRepos
	m.lists[ViewIssues] = listState{items: []item{{primary: "#1"}}, loaded: true}

	next, _ := m.selectRepo(item{owner: "o", repo: "r"})
	m = next.(Model)
	if len(m.lists[ViewIssues].items) != 1 {
		t.Fatal("re-selecting the same repository cleared its listings")
	}
}

func TestQuitCancelsEverything(t *testing.T) {
	m := testModel(t)
	var canceled int
	for v := View(0); v < viewCount; v++ {
		m.cancels[v] = func() { canceled++ }
	}

	_, cmd := updated(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("quit key produced no command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Fatalf("expected quit, got %v", msg)
	}
	if canceled != int(viewCount) {
		t.Fatalf("not all in-flight fetches canceled: %d", canceled)
	}
}

func TestTabWithoutRepositoryBlocksPerRepoViews(t *testing.T) {
	m := testModel(t)
	m.view = ViewRepos

	m, _ = updated(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.view != ViewRepos {
		t.Fatal("tab switched to a per-repo view with no repository selected")
	}
	if m.notice == "" {
		t.Fatal("missing repository hint not shown")
	}
}

func TestMutationSuccessReloadsView(t *testing.T) {
	m := testModel(t)
	m.view = ViewIssues
	m.owner, m.repo = "o", "r"
	m.lists[ViewIssues] = listState{items: []item{{primary: "#1"}}, loaded: true}

	m, cmd := updated(t, m, mutationDoneMsg{view: ViewIssues, notice: "issue closed"})
	if m.notice != "issue closed" {
		t.Fatalf("notice lost: %q", m.notice)
	}
	if len(m.lists[ViewIssues].items) != 0 {
		t.Fatal("view not cleared for reload after mutation")
	}
	if cmd == nil {
		t.Fatal("mutation success must trigger a reload")
	}
	if m.seqs[ViewIssues] != 1 {
		t.Fatalf("reload sequence not started: %d", m.seqs[ViewIssues])
	}
}

func TestMutationFailureKeepsView(t *testing.T) {
	m := testModel(t)
	m.view = ViewIssues
	m.lists[ViewIssues] = listState{items: []item{{primary: "#1"}}, loaded: true}

	m, _ = updated(t, m, mutationDoneMsg{view: ViewIssues, err: errors.New("conflict")})
	if len(m.lists[ViewIssues].items) != 1 {
		t.Fatal("failed mutation cleared the view")
	}
	if m.notice == "" {
		t.Fatal("failure not surfaced as a notice")
	}
}

func TestDescribeErrorTaxonomy(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&transport.AuthError{StatusCode: 401, URL: "x"}, "authentication failed — check your token"},
		{&transport.NetworkError{URL: "x", Err: errors.New("refused")}, "network error — showing cached data where available"},
	}
	for _, tc := range cases {
		if got := describeError(tc.err); got != tc.want {
			t.Fatalf("describeError(%T) = %q, want %q", tc.err, got, tc.want)
		}
	}
	if describeError(nil) != "" {
		t.Fatal("nil error must describe as empty")
	}
}
