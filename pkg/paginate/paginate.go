// Package paginate turns GitHub's page-based list endpoints into a
// lazy, finite sequence of typed pages. A sequence is restartable by
// constructing it again from the initial request; it holds no state
// beyond the in-flight cursor.
package paginate

import (
	"context"
	"fmt"
)

// Page is one fetched batch of decoded items plus the opaque
// continuation (the next page URL, empty when the listing is
// exhausted).
type Page[T any] struct {
	Items []T
	Next  string
	// FromCache and Stale mirror the response cache flags so views can
	// label what they render.
	FromCache bool
	Stale     bool
}

// FetchFunc fetches and decodes a single page at url.
type FetchFunc[T any] func(ctx context.Context, url string) (*Page[T], error)

// SeqError marks a sequence that failed mid-stream, as opposed to one
// that ran to exhaustion. Pages yielded before the failure stay valid.
type SeqError struct {
	URL string
	Err error
}

func (e *SeqError) Error() string {
	return fmt.Sprintf("page fetch failed at %s: %v", e.URL, e.Err)
}

func (e *SeqError) Unwrap() error { return e.Err }

// Seq is a lazy page sequence. Not safe for concurrent use; one
// consumer drives it.
type Seq[T any] struct {
	ctx   context.Context
	fetch FetchFunc[T]
	next  string
	done  bool
	err   error
}

// New starts a sequence at the initial request URL.
func New[T any](ctx context.Context, initial string, fetch FetchFunc[T]) *Seq[T] {
	return &Seq[T]{ctx: ctx, fetch: fetch, next: initial}
}

// Next yields the following page. It returns false when the sequence
// is over — either exhausted (Err returns nil) or failed mid-stream
// (Err returns the *SeqError). A failure on page N never invalidates
// pages already yielded.
func (s *Seq[T]) Next() (*Page[T], bool) {
	if s.done {
		return nil, false
	}
	if err := s.ctx.Err(); err != nil {
		s.fail(s.next, err)
		return nil, false
	}
	page, err := s.fetch(s.ctx, s.next)
	if err != nil {
		s.fail(s.next, err)
		return nil, false
	}
	s.next = page.Next
	if s.next == "" {
		s.done = true
	}
	return page, true
}

// Err reports why the sequence ended: nil for normal exhaustion, a
// *SeqError for a mid-stream failure.
func (s *Seq[T]) Err() error { return s.err }

func (s *Seq[T]) fail(url string, err error) {
	s.done = true
	s.err = &SeqError{URL: url, Err: err}
}

// Collect drains the sequence into a single item slice, stopping after
// maxPages pages (0 means no bound). The caller still checks Err.
func Collect[T any](s *Seq[T], maxPages int) []T {
	var items []T
	for pages := 0; maxPages == 0 || pages < maxPages; pages++ {
		page, ok := s.Next()
		if !ok {
			break
		}
		items = append(items, page.Items...)
	}
	return items
}
