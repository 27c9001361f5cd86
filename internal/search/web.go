package search

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// WebResult is one hit from the general web index: a URL, a display title,
// and the snippet of page text the index matched.
type WebResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type webSearchResponse struct {
	Results []WebResult `json:"results"`
}

// SearchWeb issues one query against the web index and returns the top hits.
// An empty result set is not an error; callers decide what no evidence means.
func (c *Client) SearchWeb(ctx context.Context, query string) ([]WebResult, error) {
	if query == "" {
		return nil, fmt.Errorf("web search: %w: empty query", ErrPermanent)
	}

	endpoint, maxResults := c.webEndpoint()

	var out webSearchResponse
	if _, err := c.doSearch(ctx, "web_search", func(ctx context.Context) (*resty.Response, error) {
		return endpoint.R().
			SetContext(ctx).
			SetQueryParam("q", query).
			SetQueryParam("limit", fmt.Sprintf("%d", maxResults)).
			SetResult(&out).
			Get("/search")
	}); err != nil {
		return nil, err
	}

	if len(out.Results) > maxResults {
		out.Results = out.Results[:maxResults]
	}
	return out.Results, nil
}
