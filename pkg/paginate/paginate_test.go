package paginate

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

// pagedFetch serves a scripted set of pages keyed by URL, counting how
// often each is requested.
func pagedFetch(pages map[string]*Page[int], calls map[string]int) FetchFunc[int] {
	return func(_ context.Context, url string) (*Page[int], error) {
		calls[url]++
		p, ok := pages[url]
		if !ok {
			return nil, errors.New("unexpected page url: " + url)
		}
		return p, nil
	}
}

func TestSeqConcatenatesPagesInOrder(t *testing.T) {
	calls := map[string]int{}
	fetch := pagedFetch(map[string]*Page[int]{
		"start": {Items: []int{1, 2}, Next: "c1"},
		"c1":    {Items: []int{3, 4}, Next: "c2"},
		"c2":    {Items: []int{5}},
	}, calls)

	s := New(context.Background(), "start", fetch)
	items := Collect(s, 0)

	if s.Err() != nil {
		t.Fatalf("exhausted sequence reported error: %v", s.Err())
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d: %v", len(items), items)
	}
	for i, v := range items {
		if v != i+1 {
			t.Fatalf("order or duplication broken: %v", items)
		}
	}
	for url, n := range calls {
		if n != 1 {
			t.Fatalf("page %s fetched %d times", url, n)
		}
	}
	// The sequence stays terminated.
	if _, ok := s.Next(); ok {
		t.Fatal("exhausted sequence yielded another page")
	}
}

func TestSeqLazyFetching(t *testing.T) {
	calls := map[string]int{}
	fetch := pagedFetch(map[string]*Page[int]{
		"start": {Items: []int{1}, Next: "c1"},
		"c1":    {Items: []int{2}},
	}, calls)

	s := New(context.Background(), "start", fetch)
	if len(calls) != 0 {
		t.Fatal("constructing a sequence must not fetch")
	}
	if _, ok := s.Next(); !ok {
		t.Fatal("first page missing")
	}
	if calls["c1"] != 0 {
		t.Fatal("second page fetched before being requested")
	}
}

func TestSeqMidStreamFailureKeepsPriorPages(t *testing.T) {
	boom := errors.New("backend exploded")
	fetch := func(_ context.Context, url string) (*Page[int], error) {
		switch url {
		case "start":
			return &Page[int]{Items: []int{1, 2}, Next: "c1"}, nil
		default:
			return nil, boom
		}
	}

	s := New(context.Background(), "start", fetch)
	items := Collect(s, 0)

	if len(items) != 2 || items[0] != 1 || items[1] != 2 {
		t.Fatalf("pages yielded before the failure were lost: %v", items)
	}
	var serr *SeqError
	if !errors.As(s.Err(), &serr) {
		t.Fatalf("expected *SeqError, got %T: %v", s.Err(), s.Err())
	}
	if serr.URL != "c1" || !errors.Is(serr, boom) {
		t.Fatalf("error lost its position or cause: %v", serr)
	}
}

func TestSeqEmptyListing(t *testing.T) {
	s := New(context.Background(), "start", func(_ context.Context, _ string) (*Page[int], error) {
		return &Page[int]{}, nil
	})
	page, ok := s.Next()
	if !ok || len(page.Items) != 0 {
		t.Fatalf("empty listing should yield one empty page, got ok=%v page=%+v", ok, page)
	}
	if _, ok := s.Next(); ok {
		t.Fatal("empty listing must terminate after its single page")
	}
	if s.Err() != nil {
		t.Fatalf("empty listing is exhaustion, not failure: %v", s.Err())
	}
}

func TestSeqCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(ctx, "start", func(_ context.Context, _ string) (*Page[int], error) {
		t.Fatal("fetch must not run after cancellation")
		return nil, nil
	})
	if _, ok := s.Next(); ok {
		t.Fatal("canceled sequence yielded a page")
	}
	if !errors.Is(s.Err(), context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", s.Err())
	}
}

func TestCollectPageBound(t *testing.T) {
	fetch := func(_ context.Context, url string) (*Page[int], error) {
		return &Page[int]{Items: []int{1}, Next: "more"}, nil
	}
	s := New(context.Background(), "start", fetch)
	items := Collect(s, 3)
	if len(items) != 3 {
		t.Fatalf("page bound ignored: got %d items", len(items))
	}
}

func TestNextLink(t *testing.T) {
	h := http.Header{}
	h.Set("Link", `<https://api.github.com/repositories/1/issues?page=4>; rel="next", <https://api.github.com/repositories/1/issues?page=9>; rel="last"`)
	if got := NextLink(h); got != "https://api.github.com/repositories/1/issues?page=4" {
		t.Fatalf("wrong next link: %q", got)
	}

	h = http.Header{}
	h.Set("Link", `<https://api.github.com/repositories/1/issues?page=1>; rel="prev"`)
	if got := NextLink(h); got != "" {
		t.Fatalf("expected no next link, got %q", got)
	}

	if got := NextLink(http.Header{}); got != "" {
		t.Fatalf("expected empty for missing header, got %q", got)
	}
}
