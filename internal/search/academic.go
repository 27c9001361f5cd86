package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// PaperResult is one hit from the academic-paper index.
type PaperResult struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Authors []string `json:"authors"`
	Link    string   `json:"link"`
}

type academicSearchResponse struct {
	Papers []PaperResult `json:"papers"`
}

// SearchAcademic queries the academic-metadata index.
func (c *Client) SearchAcademic(ctx context.Context, query string) ([]PaperResult, error) {
	if query == "" {
		return nil, fmt.Errorf("academic search: %w: empty query", ErrPermanent)
	}

	endpoint, maxResults := c.academicEndpoint()

	var out academicSearchResponse
	if _, err := c.doSearch(ctx, "academic_search", func(ctx context.Context) (*resty.Response, error) {
		return endpoint.R().
			SetContext(ctx).
			SetQueryParam("q", query).
			SetQueryParam("max_results", fmt.Sprintf("%d", maxResults)).
			SetResult(&out).
			Get("/papers/search")
	}); err != nil {
		return nil, err
	}

	if len(out.Papers) > maxResults {
		out.Papers = out.Papers[:maxResults]
	}
	return out.Papers, nil
}

// FormatPaper renders one paper as the evidence block used downstream:
// title, summary, authors, and the paper link. Citation granularity for
// academic results is per paper, so no inline markers are needed here.
func FormatPaper(p PaperResult, token string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	if p.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", p.Summary)
	}
	if len(p.Authors) > 0 {
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(p.Authors, ", "))
	}
	fmt.Fprintf(&b, "Link: %s %s", p.Link, token)
	return b.String()
}
