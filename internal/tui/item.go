package tui

import (
	"fmt"
	"strings"

	"github.com/hubview/hubview/pkg/model"
)

// item is the view-agnostic list row. The typed resource fields a view
// action needs (issue number, workflow id, repo coordinates) ride
// along so actions never reach back into cache or resource state.
type item struct {
	id         int64
	primary    string
	secondary  string
	issueNum   int
	workflowID int64
	owner      string
	repo       string
	branch     string
}

func repoItem(r *model.Repository) item {
	owner, repo := splitFullName(r.FullName)
	visibility := "public"
	if r.Private {
		visibility = "private"
	}
	return item{
		id:        r.ID,
		primary:   r.FullName,
		secondary: fmt.Sprintf("%s · ★%d · %d open issues", visibility, r.StargazersCnt, r.OpenIssues),
		owner:     owner,
		repo:      repo,
		branch:    r.DefaultBranch,
	}
}

func issueItem(i *model.Issue) item {
	author := "unknown"
	if i.User != nil {
		author = i.User.Login
	}
	return item{
		id:        i.ID,
		primary:   fmt.Sprintf("#%d %s", i.Number, i.Title),
		secondary: fmt.Sprintf("%s · %s · %d comments", i.State, author, i.Comments),
		issueNum:  i.Number,
	}
}

func pullItem(p *model.PullRequest) item {
	state := p.State
	if p.Draft {
		state = "draft"
	}
	author := "unknown"
	if p.User != nil {
		author = p.User.Login
	}
	return item{
		id:        p.ID,
		primary:   fmt.Sprintf("#%d %s", p.Number, p.Title),
		secondary: fmt.Sprintf("%s · %s · +%d -%d", state, author, p.Additions, p.Deletions),
	}
}

func workflowItem(w *model.Workflow) item {
	return item{
		id:         w.ID,
		primary:    w.Name,
		secondary:  fmt.Sprintf("%s · %s", w.State, w.Path),
		workflowID: w.ID,
	}
}

func runItem(r *model.WorkflowRun) item {
	outcome := r.Conclusion
	if outcome == "" {
		outcome = r.Status
	}
	title := r.DisplayTitle
	if title == "" {
		title = r.Name
	}
	return item{
		id:        r.ID,
		primary:   fmt.Sprintf("#%d %s", r.RunNumber, title),
		secondary: fmt.Sprintf("%s · %s · %s", outcome, r.HeadBranch, r.CreatedAt.Format("2006-01-02 15:04")),
	}
}

func splitFullName(fullName string) (owner, repo string) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok {
		return fullName, ""
	}
	return owner, repo
}
