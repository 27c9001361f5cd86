package activities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/deepscout-ai/deepscout/internal/metrics"
	"github.com/deepscout-ai/deepscout/internal/search"
	"github.com/deepscout-ai/deepscout/internal/sources"
)

// Retrieval workers absorb their own failures: every dispatched item yields
// exactly one Evidence record, failed or not, so the loop never loses track
// of an item. Only cancellation propagates as an activity error.

// WebSearchWorker runs one web search, registers every surfaced URL in the
// session source registry, and annotates each snippet with its citation
// marker.
func (a *Activities) WebSearchWorker(ctx context.Context, input WorkItemInput) (*Evidence, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()

	results, err := a.search.SearchWeb(ctx, input.Item.Query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("WebSearchWorker: search failed",
			"item_id", input.Item.ID,
			"error", err.Error(),
		)
		metrics.RecordWorkItemMetrics(KindWeb, true, float64(time.Since(start).Milliseconds()))
		return failedEvidence(input.Item, err), nil
	}

	reg := a.sources.For(input.SessionID)
	var blocks []string
	var refs []sources.Ref
	for _, r := range results {
		ref := reg.Assign(r.URL, r.Title)
		refs = append(refs, ref)
		snippet := r.Snippet
		if snippet == "" {
			snippet = r.Title
		}
		blocks = append(blocks, sources.InsertMarker(snippet, ref.Token))
	}

	text := strings.Join(blocks, "\n")
	if text == "" {
		text = fmt.Sprintf("No web results found for %q.", input.Item.Query)
	}

	metrics.RecordWorkItemMetrics(KindWeb, false, float64(time.Since(start).Milliseconds()))
	logger.Info("WebSearchWorker: done",
		"item_id", input.Item.ID,
		"results", len(results),
	)
	return &Evidence{
		ItemID:  input.Item.ID,
		Kind:    KindWeb,
		Text:    text,
		Sources: refs,
	}, nil
}

// AcademicSearchWorker runs one academic search and formats each paper as a
// citation-bearing evidence block. Citation granularity is per paper.
func (a *Activities) AcademicSearchWorker(ctx context.Context, input WorkItemInput) (*Evidence, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()

	papers, err := a.search.SearchAcademic(ctx, input.Item.Query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("AcademicSearchWorker: search failed",
			"item_id", input.Item.ID,
			"error", err.Error(),
		)
		metrics.RecordWorkItemMetrics(KindAcademic, true, float64(time.Since(start).Milliseconds()))
		return failedEvidence(input.Item, err), nil
	}

	reg := a.sources.For(input.SessionID)
	var blocks []string
	var refs []sources.Ref
	for _, p := range papers {
		ref := reg.Assign(p.Link, p.Title)
		refs = append(refs, ref)
		blocks = append(blocks, search.FormatPaper(p, ref.Token))
	}

	text := strings.Join(blocks, "\n\n")
	if text == "" {
		text = fmt.Sprintf("No academic papers found for %q.", input.Item.Query)
	}

	metrics.RecordWorkItemMetrics(KindAcademic, false, float64(time.Since(start).Milliseconds()))
	logger.Info("AcademicSearchWorker: done",
		"item_id", input.Item.ID,
		"papers", len(papers),
	)
	return &Evidence{
		ItemID:  input.Item.ID,
		Kind:    KindAcademic,
		Text:    text,
		Sources: refs,
	}, nil
}

// DocumentWorker extracts the full text of one stored document. Missing or
// unreadable documents become failed evidence, not activity errors.
func (a *Activities) DocumentWorker(ctx context.Context, input WorkItemInput) (*Evidence, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()

	text, err := a.docs.Extract(input.Item.Document)
	if err != nil {
		logger.Warn("DocumentWorker: extraction failed",
			"item_id", input.Item.ID,
			"document", input.Item.Document,
			"error", err.Error(),
		)
		metrics.RecordWorkItemMetrics(KindDocument, true, float64(time.Since(start).Milliseconds()))
		return failedEvidence(input.Item, err), nil
	}

	metrics.RecordWorkItemMetrics(KindDocument, false, float64(time.Since(start).Milliseconds()))
	logger.Info("DocumentWorker: done",
		"item_id", input.Item.ID,
		"chars", len(text),
	)
	return &Evidence{
		ItemID: input.Item.ID,
		Kind:   KindDocument,
		Text:   text,
	}, nil
}

func failedEvidence(item WorkItem, err error) *Evidence {
	return &Evidence{
		ItemID: item.ID,
		Kind:   item.Kind,
		Failed: true,
		Error:  err.Error(),
	}
}
