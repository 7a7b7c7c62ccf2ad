package model

import (
	"encoding/json"
	"time"
)

// User is a GitHub account reference embedded in other resources.
type User struct {
	ID      int64  `json:"id"`
	Login   string `json:"login"`
	HTMLURL string `json:"html_url"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (u *User) ResourceID() int64                     { return u.ID }
func (u *User) setExtra(m map[string]json.RawMessage) { u.Extra = m }
func (u *User) extra() map[string]json.RawMessage     { return u.Extra }
func (u *User) validate() *SchemaError {
	if u.Login == "" {
		return &SchemaError{Field: "login", Reason: "missing or empty"}
	}
	return nil
}

// Repository is a GitHub repository.
type Repository struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Owner         *User     `json:"owner"`
	Private       bool      `json:"private"`
	Description   string    `json:"description"`
	DefaultBranch string    `json:"default_branch"`
	StargazersCnt int       `json:"stargazers_count"`
	OpenIssues    int       `json:"open_issues_count"`
	UpdatedAt     time.Time `json:"updated_at"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *Repository) ResourceID() int64                     { return r.ID }
func (r *Repository) setExtra(m map[string]json.RawMessage) { r.Extra = m }
func (r *Repository) extra() map[string]json.RawMessage     { return r.Extra }
func (r *Repository) validate() *SchemaError {
	if r.ID == 0 {
		return &SchemaError{Field: "id", Reason: "missing or zero"}
	}
	if r.FullName == "" {
		return &SchemaError{Field: "full_name", Reason: "missing or empty"}
	}
	return nil
}

// Issue is a GitHub issue. GitHub's issues listing also returns pull
// requests; PullRequestRef is non-nil for those rows.
type Issue struct {
	ID             int64      `json:"id"`
	Number         int        `json:"number"`
	Title          string     `json:"title"`
	State          string     `json:"state"`
	User           *User      `json:"user"`
	Body           string     `json:"body"`
	Comments       int        `json:"comments"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ClosedAt       *time.Time `json:"closed_at"`
	PullRequestRef *struct {
		URL string `json:"url"`
	} `json:"pull_request"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (i *Issue) ResourceID() int64                     { return i.ID }
func (i *Issue) setExtra(m map[string]json.RawMessage) { i.Extra = m }
func (i *Issue) extra() map[string]json.RawMessage     { return i.Extra }
func (i *Issue) validate() *SchemaError {
	if i.ID == 0 {
		return &SchemaError{Field: "id", Reason: "missing or zero"}
	}
	if i.Number <= 0 {
		return &SchemaError{Field: "number", Reason: "missing or non-positive"}
	}
	return nil
}

// BranchRef is the head/base of a pull request.
type BranchRef struct {
	Ref  string `json:"ref"`
	SHA  string `json:"sha"`
	User *User  `json:"user"`
}

// PullRequest is a GitHub pull request.
type PullRequest struct {
	ID           int64      `json:"id"`
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	State        string     `json:"state"`
	Draft        bool       `json:"draft"`
	User         *User      `json:"user"`
	Body         string     `json:"body"`
	Head         *BranchRef `json:"head"`
	Base         *BranchRef `json:"base"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	ChangedFiles int        `json:"changed_files"`
	CreatedAt    time.Time  `json:"created_at"`
	MergedAt     *time.Time `json:"merged_at"`
	ClosedAt     *time.Time `json:"closed_at"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (p *PullRequest) ResourceID() int64                     { return p.ID }
func (p *PullRequest) setExtra(m map[string]json.RawMessage) { p.Extra = m }
func (p *PullRequest) extra() map[string]json.RawMessage     { return p.Extra }
func (p *PullRequest) validate() *SchemaError {
	if p.ID == 0 {
		return &SchemaError{Field: "id", Reason: "missing or zero"}
	}
	if p.Number <= 0 {
		return &SchemaError{Field: "number", Reason: "missing or non-positive"}
	}
	return nil
}

// Workflow is a GitHub Actions workflow definition.
type Workflow struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (w *Workflow) ResourceID() int64                     { return w.ID }
func (w *Workflow) setExtra(m map[string]json.RawMessage) { w.Extra = m }
func (w *Workflow) extra() map[string]json.RawMessage     { return w.Extra }
func (w *Workflow) validate() *SchemaError {
	if w.ID == 0 {
		return &SchemaError{Field: "id", Reason: "missing or zero"}
	}
	if w.Path == "" {
		return &SchemaError{Field: "path", Reason: "missing or empty"}
	}
	return nil
}

// WorkflowRun is a single execution of a workflow.
type WorkflowRun struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	RunNumber    int       `json:"run_number"`
	DisplayTitle string    `json:"display_title"`
	Status       string    `json:"status"`
	Conclusion   string    `json:"conclusion"`
	HeadBranch   string    `json:"head_branch"`
	HeadSHA      string    `json:"head_sha"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (w *WorkflowRun) ResourceID() int64                     { return w.ID }
func (w *WorkflowRun) setExtra(m map[string]json.RawMessage) { w.Extra = m }
func (w *WorkflowRun) extra() map[string]json.RawMessage     { return w.Extra }
func (w *WorkflowRun) validate() *SchemaError {
	if w.ID == 0 {
		return &SchemaError{Field: "id", Reason: "missing or zero"}
	}
	return nil
}
