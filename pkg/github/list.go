package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/hubview/hubview/pkg/model"
	"github.com/hubview/hubview/pkg/paginate"
)

// listSeq builds a page sequence over a list endpoint. envelope names
// the JSON object field the items live under ("" for bare arrays, as
// issues/pulls/repos; "workflows"/"workflow_runs" for Actions). force
// revalidates the first page only: continuation pages go through the
// normal freshness path.
func listSeq[T any, P interface {
	*T
	model.Resource
}](c *Client, ctx context.Context, from, envelope string, force bool) *paginate.Seq[P] {
	return listSeqFiltered[T, P](c, ctx, from, envelope, force, nil)
}

func listSeqFiltered[T any, P interface {
	*T
	model.Resource
}](c *Client, ctx context.Context, from, envelope string, force bool, keep func(P) bool) *paginate.Seq[P] {
	first := true
	fetch := func(ctx context.Context, url string) (*paginate.Page[P], error) {
		forceThis := force && first
		first = false
		return fetchListPage[T, P](c, ctx, url, envelope, forceThis, keep)
	}
	return paginate.New(ctx, from, fetch)
}

func fetchListPage[T any, P interface {
	*T
	model.Resource
}](c *Client, ctx context.Context, url, envelope string, force bool, keep func(P) bool) (*paginate.Page[P], error) {
	key, err := model.NewCacheKey(http.MethodGet, url, http.Header{})
	if err != nil {
		return nil, err
	}
	res, err := c.cache.Fetch(ctx, key, force)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list %s: unexpected status %d", url, res.StatusCode)
	}

	rawItems, err := splitItems(res.Body, envelope)
	if err != nil {
		return nil, err
	}

	page := &paginate.Page[P]{
		Items:     make([]P, 0, len(rawItems)),
		Next:      paginate.NextLink(res.Header),
		FromCache: res.FromCache,
		Stale:     res.Stale,
	}
	for idx, raw := range rawItems {
		item, err := model.Decode[T, P](raw)
		if err != nil {
			// A schema failure is scoped to the item, never the page.
			var serr *model.SchemaError
			if errors.As(err, &serr) {
				log.Warn().Str("url", url).Int("index", idx).Err(serr).Msg("[github] skipping undecodable item")
				continue
			}
			return nil, err
		}
		if keep != nil && !keep(item) {
			continue
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

// splitItems cuts a listing body into per-item raw messages, unwrapping
// the envelope field when the endpoint uses one.
func splitItems(body []byte, envelope string) ([]json.RawMessage, error) {
	payload := body
	if envelope != "" {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, &model.SchemaError{Reason: "listing is not a JSON object: " + err.Error()}
		}
		inner, ok := wrapper[envelope]
		if !ok {
			return nil, &model.SchemaError{Field: envelope, Reason: "missing listing envelope"}
		}
		payload = inner
	}
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, &model.SchemaError{Reason: "listing is not a JSON array: " + err.Error()}
	}
	return items, nil
}
