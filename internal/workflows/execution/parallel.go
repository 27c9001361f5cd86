package execution

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/deepscout-ai/deepscout/internal/activities"
	"github.com/deepscout-ai/deepscout/internal/constants"
)

// BatchConfig controls fan-out behavior for one evidence-gathering round.
type BatchConfig struct {
	MaxConcurrency int                // Maximum concurrent work items
	Semaphore      workflow.Semaphore // Concurrency control (interface, not pointer)
	ModelTier      string
	// Activity timeout per work item; a timed-out worker equals a failed
	// worker.
	ItemTimeout time.Duration
}

// ExecuteBatch runs every work item of one round in parallel with
// concurrency control and merges the outcomes at a single fan-in point.
// Exactly one Evidence record comes back per dispatched item: workers
// absorb their own failures, and anything that still errors here (timeout,
// unexpected activity failure) is converted to a failure-marked record.
// Temporal-level retry is disabled because the search clients own retry.
// Workflow cancellation fails the in-flight futures fast; once they settle
// the context error is returned so the caller can discard the aborted
// round instead of accumulating it.
func ExecuteBatch(
	ctx workflow.Context,
	items []activities.WorkItem,
	sessionID string,
	config BatchConfig,
) ([]activities.Evidence, error) {

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting evidence batch",
		"item_count", len(items),
		"max_concurrency", config.MaxConcurrency,
	)

	if len(items) == 0 {
		return nil, nil
	}

	if config.Semaphore == nil {
		if config.MaxConcurrency <= 0 {
			config.MaxConcurrency = 5
		}
		config.Semaphore = workflow.NewSemaphore(ctx, int64(config.MaxConcurrency))
	}
	if config.ItemTimeout <= 0 {
		config.ItemTimeout = 2 * time.Minute
	}

	// Channel for collecting in-flight futures with a release handshake
	futuresChan := workflow.NewChannel(ctx)

	type futureWithIndex struct {
		Index   int
		Future  workflow.Future
		Release workflow.Channel // send a signal when it's safe to release the semaphore
	}

	activityOpts := workflow.ActivityOptions{
		StartToCloseTimeout: config.ItemTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOpts)

	for i, item := range items {
		i := i
		item := item

		workflow.Go(ctx, func(ctx workflow.Context) {
			if err := config.Semaphore.Acquire(ctx, 1); err != nil {
				logger.Error("Failed to acquire semaphore",
					"item_id", item.ID,
					"error", err,
				)
				futuresChan.Send(ctx, futureWithIndex{Index: i})
				return
			}
			rel := workflow.NewChannel(ctx)

			future := workflow.ExecuteActivity(ctx, activityNameFor(item.Kind),
				activities.WorkItemInput{
					Item:      item,
					SessionID: sessionID,
					ModelTier: config.ModelTier,
				})

			futuresChan.Send(ctx, futureWithIndex{Index: i, Future: future, Release: rel})

			// Hold the permit until the collector has processed the result
			var sig struct{}
			rel.Receive(ctx, &sig)
			config.Semaphore.Release(1)
		})
	}

	results := make([]activities.Evidence, len(items))
	received := 0
	processed := 0
	skippedNil := 0
	failedCount := 0

	sel := workflow.NewSelector(ctx)

	var registerReceive func()
	registerReceive = func() {
		sel.AddReceive(futuresChan, func(c workflow.ReceiveChannel, more bool) {
			var fwi futureWithIndex
			c.Receive(ctx, &fwi)
			received++
			if fwi.Future == nil {
				results[fwi.Index] = failureRecord(items[fwi.Index], "failed to schedule work item")
				failedCount++
				skippedNil++
			} else {
				fwi := fwi
				sel.AddFuture(fwi.Future, func(f workflow.Future) {
					var ev activities.Evidence
					if err := f.Get(ctx, &ev); err != nil {
						logger.Warn("Work item failed",
							"item_id", items[fwi.Index].ID,
							"kind", items[fwi.Index].Kind,
							"error", err,
						)
						results[fwi.Index] = failureRecord(items[fwi.Index], err.Error())
						failedCount++
					} else {
						results[fwi.Index] = ev
						if ev.Failed {
							failedCount++
						}
					}

					if fwi.Release != nil {
						var sig struct{}
						fwi.Release.Send(ctx, sig)
					}
					processed++
				})
			}

			if received < len(items) {
				registerReceive()
			}
		})
	}

	registerReceive()

	for processed < (len(items) - skippedNil) {
		sel.Select(ctx)
	}

	if err := ctx.Err(); err != nil {
		logger.Info("Evidence batch aborted by cancellation",
			"total_items", len(items),
		)
		return results, err
	}

	logger.Info("Evidence batch completed",
		"total_items", len(items),
		"failed", failedCount,
	)
	return results, nil
}

// activityNameFor maps a work item kind to its worker activity. Unknown
// kinds fall back to web search, matching the loop's permissive typing.
func activityNameFor(kind string) string {
	switch kind {
	case activities.KindAcademic:
		return constants.AcademicSearchWorkerActivity
	case activities.KindDocument:
		return constants.DocumentWorkerActivity
	default:
		return constants.WebSearchWorkerActivity
	}
}

func failureRecord(item activities.WorkItem, msg string) activities.Evidence {
	return activities.Evidence{
		ItemID: item.ID,
		Kind:   item.Kind,
		Failed: true,
		Error:  msg,
	}
}
