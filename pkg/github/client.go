// Package github is the typed resource client: it maps GitHub list and
// mutation endpoints onto the response cache and pagination engine and
// decodes payloads into model resources.
package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hubview/hubview/pkg/cache"
	"github.com/hubview/hubview/pkg/model"
	"github.com/hubview/hubview/pkg/paginate"
	"github.com/hubview/hubview/pkg/transport"
)

// Client reads through the response cache and writes through the
// transport directly (mutations must not be cached), invalidating the
// affected listing prefix afterwards.
type Client struct {
	cache     *cache.Cache
	transport transport.Transporter
	base      string
	perPage   int
}

func New(c *cache.Cache, tr transport.Transporter, baseURL string, perPage int) *Client {
	return &Client{cache: c, transport: tr, base: baseURL, perPage: perPage}
}

// Repositories lists the authenticated user's repositories. from
// resumes a listing at a continuation URL; empty starts from the
// beginning. force revalidates the first page against the server.
func (c *Client) Repositories(ctx context.Context, from string, force bool) *paginate.Seq[*model.Repository] {
	if from == "" {
		from = fmt.Sprintf("%s/user/repos?per_page=%d&sort=updated", c.base, c.perPage)
	}
	return listSeq[model.Repository](c, ctx, from, "", force)
}

// Issues lists open issues of owner/repo. GitHub includes pull
// requests in this listing; rows with a pull_request ref are filtered
// out so the view shows plain issues only.
func (c *Client) Issues(ctx context.Context, owner, repo, from string, force bool) *paginate.Seq[*model.Issue] {
	if from == "" {
		from = fmt.Sprintf("%s/repos/%s/%s/issues?per_page=%d&state=open", c.base, owner, repo, c.perPage)
	}
	return listSeqFiltered[model.Issue](c, ctx, from, "", force,
		func(i *model.Issue) bool { return i.PullRequestRef == nil })
}

// PullRequests lists open pull requests of owner/repo.
func (c *Client) PullRequests(ctx context.Context, owner, repo, from string, force bool) *paginate.Seq[*model.PullRequest] {
	if from == "" {
		from = fmt.Sprintf("%s/repos/%s/%s/pulls?per_page=%d&state=open", c.base, owner, repo, c.perPage)
	}
	return listSeq[model.PullRequest](c, ctx, from, "", force)
}

// Workflows lists the Actions workflow definitions of owner/repo.
func (c *Client) Workflows(ctx context.Context, owner, repo, from string, force bool) *paginate.Seq[*model.Workflow] {
	if from == "" {
		from = fmt.Sprintf("%s/repos/%s/%s/actions/workflows?per_page=%d", c.base, owner, repo, c.perPage)
	}
	return listSeq[model.Workflow](c, ctx, from, "workflows", force)
}

// WorkflowRuns lists recent Actions runs of owner/repo.
func (c *Client) WorkflowRuns(ctx context.Context, owner, repo, from string, force bool) *paginate.Seq[*model.WorkflowRun] {
	if from == "" {
		from = fmt.Sprintf("%s/repos/%s/%s/actions/runs?per_page=%d", c.base, owner, repo, c.perPage)
	}
	return listSeq[model.WorkflowRun](c, ctx, from, "workflow_runs", force)
}

// CloseIssue closes the issue and invalidates the cached issue
// listings of the repository.
func (c *Client) CloseIssue(ctx context.Context, owner, repo string, number int) (*model.Issue, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d", c.base, owner, repo, number)
	raw, err := c.transport.Do(ctx, &transport.Request{
		Method: http.MethodPatch,
		URL:    url,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(`{"state":"closed"}`),
	})
	if err != nil {
		return nil, err
	}
	if raw.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("close issue #%d: unexpected status %d", number, raw.StatusCode)
	}
	issue, err := model.Decode[model.Issue](raw.Body)
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(fmt.Sprintf("%s/repos/%s/%s/issues", c.base, owner, repo))
	return issue, nil
}

// DispatchWorkflow triggers a workflow_dispatch event on ref and
// invalidates the cached Actions listings so the new run shows up.
func (c *Client) DispatchWorkflow(ctx context.Context, owner, repo string, workflowID int64, ref string) error {
	url := fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%d/dispatches", c.base, owner, repo, workflowID)
	raw, err := c.transport.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		URL:    url,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(`{"ref":` + strconv.Quote(ref) + `}`),
	})
	if err != nil {
		return err
	}
	if raw.StatusCode != http.StatusNoContent {
		return fmt.Errorf("dispatch workflow %d: unexpected status %d", workflowID, raw.StatusCode)
	}
	c.cache.Invalidate(fmt.Sprintf("%s/repos/%s/%s/actions", c.base, owner, repo))
	return nil
}
