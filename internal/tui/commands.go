package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hubview/hubview/pkg/cache"
	"github.com/hubview/hubview/pkg/github"
	"github.com/hubview/hubview/pkg/model"
	"github.com/hubview/hubview/pkg/paginate"
	"github.com/hubview/hubview/pkg/rate"
	"github.com/hubview/hubview/pkg/transport"
)

// fetchPage runs on a background goroutine and fetches exactly one
// page for the view. The continuation URL travels inside the returned
// message, so all pagination state stays on the UI goroutine.
func fetchPage(ctx context.Context, gh *github.Client, limits *rate.LimitState, view View, owner, repo, from string, force bool, seq uint64) tea.Msg {
	var (
		items     []item
		next      string
		fromCache bool
		stale     bool
		err       error
	)
	switch view {
	case ViewRepos:
		items, next, fromCache, stale, err = drainOne(gh.Repositories(ctx, from, force), repoItem)
	case ViewIssues:
		items, next, fromCache, stale, err = drainOne(gh.Issues(ctx, owner, repo, from, force), issueItem)
	case ViewPulls:
		items, next, fromCache, stale, err = drainOne(gh.PullRequests(ctx, owner, repo, from, force), pullItem)
	case ViewWorkflows:
		items, next, fromCache, stale, err = drainOne(gh.Workflows(ctx, owner, repo, from, force), workflowItem)
	case ViewRuns:
		items, next, fromCache, stale, err = drainOne(gh.WorkflowRuns(ctx, owner, repo, from, force), runItem)
	}
	if err != nil {
		return pageErrMsg{view: view, seq: seq, err: err}
	}
	return pageLoadedMsg{
		view:      view,
		seq:       seq,
		items:     items,
		next:      next,
		fromCache: fromCache,
		stale:     stale,
		limits:    limits.Snapshot(),
	}
}

// drainOne takes the first page of a sequence and converts its rows.
func drainOne[T any](seq *paginate.Seq[T], convert func(T) item) (items []item, next string, fromCache, stale bool, err error) {
	page, ok := seq.Next()
	if !ok {
		return nil, "", false, false, seq.Err()
	}
	items = make([]item, 0, len(page.Items))
	for _, it := range page.Items {
		items = append(items, convert(it))
	}
	return items, page.Next, page.FromCache, page.Stale, nil
}

// describeError renders the error taxonomy for the status bar.
func describeError(err error) string {
	var (
		authErr    *transport.AuthError
		rateErr    *transport.RateLimitedError
		netErr     *transport.NetworkError
		schemaErr  *model.SchemaError
		cacheIOErr *cache.CacheIOError
		seqErr     *paginate.SeqError
	)
	switch {
	case errors.As(err, &rateErr):
		return fmt.Sprintf("rate limited, retry in %s", rateErr.ResumeAfter.Round(time.Second))
	case errors.As(err, &authErr):
		return "authentication failed — check your token"
	case errors.As(err, &netErr):
		return "network error — showing cached data where available"
	case errors.As(err, &schemaErr):
		return "unexpected response shape: " + schemaErr.Error()
	case errors.As(err, &cacheIOErr):
		return "cache persistence unavailable"
	case errors.As(err, &seqErr):
		return describeError(seqErr.Err)
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}
